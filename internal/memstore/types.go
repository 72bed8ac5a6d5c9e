package memstore

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// Category partitions memory by what kind of fact it holds.
type Category string

const (
	CategoryProfile      Category = "profile"
	CategoryTodo         Category = "todo"
	CategoryInstructions Category = "instructions"
)

// Categories lists every memory category in presentation order.
func Categories() []Category {
	return []Category{CategoryProfile, CategoryTodo, CategoryInstructions}
}

// Namespace scopes every read and write to one (category, user) pair.
// Nothing outside a namespace is ever visible through it.
type Namespace struct {
	Category Category
	UserID   string
}

// Item is a single structured record stored under a namespace.
type Item struct {
	Key       string          `json:"key"`
	Value     json.RawMessage `json:"value"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

var ErrNotFound = errors.New("memory item not found")

// Store persists per-user, per-category memory records across turns and
// threads. Put upserts by key: an existing key is overwritten in place, a new
// key is appended. Search returns items in insertion order within the
// namespace.
type Store interface {
	Put(ctx context.Context, ns Namespace, key string, value json.RawMessage) error
	Get(ctx context.Context, ns Namespace, key string) (Item, error)
	Search(ctx context.Context, ns Namespace) ([]Item, error)
	Close() error
}
