package testutil

import (
	"fmt"
	"sync"
)

// SequenceIDs generates UUID-shaped ids from a counter:
//
//	00000000-0000-7000-8000-000000000001
//	00000000-0000-7000-8000-000000000002
//
// The same scenario with a fresh SequenceIDs produces byte-identical
// responses, which makes golden comparison possible.
//
// Thread-safety: NewID is safe for concurrent use.
type SequenceIDs struct {
	mu sync.Mutex
	n  int64
}

// NewSequenceIDs creates a generator whose first id ends in 1.
func NewSequenceIDs() *SequenceIDs {
	return &SequenceIDs{}
}

// NewID returns the next id.
//
// Implements engine.IDGenerator.
func (g *SequenceIDs) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("00000000-0000-7000-8000-%012d", g.n)
}

// Count returns how many ids have been issued.
func (g *SequenceIDs) Count() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.n
}
