package extract

import (
	"context"
	"sync"

	"github.com/antoniostano/maistro/internal/protocol"
)

// MockExtractor returns scripted results, in order. Once the script is
// exhausted it returns empty results.
type MockExtractor struct {
	mu      sync.Mutex
	script  []Result
	failure error
	calls   int
}

func NewMockExtractor(results ...Result) *MockExtractor {
	return &MockExtractor{script: results}
}

// Enqueue appends results to the script.
func (m *MockExtractor) Enqueue(results ...Result) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, results...)
}

// Fail makes every subsequent Extract call return err.
func (m *MockExtractor) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failure = err
}

func (m *MockExtractor) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *MockExtractor) Extract(_ context.Context, _ []protocol.Message, _ []ExistingRecord) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.failure != nil {
		return Result{}, m.failure
	}
	if len(m.script) == 0 {
		return Result{}, nil
	}
	next := m.script[0]
	m.script = m.script[1:]
	return next, nil
}
