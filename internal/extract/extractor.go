package extract

import (
	"context"
	"encoding/json"

	"github.com/antoniostano/maistro/internal/protocol"
)

// ExistingRecord is one (key, type-tag, value) triple handed to the extractor
// so it can revise records already in the store.
type ExistingRecord struct {
	Key   string          `json:"key"`
	Tool  string          `json:"tool"`
	Value json.RawMessage `json:"value"`
}

// ResponseMeta carries per-record metadata returned by the extractor. DocID
// names the existing record a response revises; empty means a new record.
type ResponseMeta struct {
	DocID string `json:"doc_id,omitempty"`
}

// Result pairs extracted records with their metadata, index for index.
type Result struct {
	Responses []json.RawMessage
	Metadata  []ResponseMeta
}

// Extractor converts conversation history plus existing records into zero or
// more upserted records.
type Extractor interface {
	Extract(ctx context.Context, msgs []protocol.Message, existing []ExistingRecord) (Result, error)
}

// Observer is notified of every document tool invocation the extractor makes,
// so callers can report what changed.
type Observer interface {
	OnToolCall(call protocol.ToolCall)
}
