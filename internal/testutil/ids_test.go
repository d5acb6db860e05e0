package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSequenceIDs_Deterministic(t *testing.T) {
	a := NewSequenceIDs()
	b := NewSequenceIDs()

	for i := 0; i < 10; i++ {
		assert.Equal(t, a.NewID(), b.NewID())
	}
}

func TestSequenceIDs_Format(t *testing.T) {
	gen := NewSequenceIDs()

	assert.Equal(t, "00000000-0000-7000-8000-000000000001", gen.NewID())
	assert.Equal(t, "00000000-0000-7000-8000-000000000002", gen.NewID())
	assert.Equal(t, int64(2), gen.Count())
}

func TestSequenceIDs_ThreadSafe(t *testing.T) {
	gen := NewSequenceIDs()

	var wg sync.WaitGroup
	var mu sync.Mutex
	seen := make(map[string]bool)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				id := gen.NewID()
				mu.Lock()
				assert.False(t, seen[id], "duplicate id %s", id)
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, 1000)
}
