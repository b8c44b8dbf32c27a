// Package testutil provides deterministic test doubles shared across
// packages, so traces and golden snapshots stay reproducible.
package testutil

import (
	"fmt"
	"sync"
)

// SequentialHandles generates predictable request handles for tests.
//
// Handles are "req-0001", "req-0002", ... in submission order, which keeps
// scenario traces and golden snapshots byte-identical across runs.
//
// Implements engine.HandleGenerator.
//
// Thread-safety: safe for concurrent use via internal mutex.
type SequentialHandles struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequentialHandles creates a generator with the given prefix.
// An empty prefix defaults to "req".
func NewSequentialHandles(prefix string) *SequentialHandles {
	if prefix == "" {
		prefix = "req"
	}
	return &SequentialHandles{prefix: prefix}
}

// Generate returns the next handle in sequence.
func (g *SequentialHandles) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%04d", g.prefix, g.n)
}
