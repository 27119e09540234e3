package testutil

import (
	"fmt"
	"sync"
)

// SequentialIDs hands out "<prefix>-1", "<prefix>-2", ... as block client IDs.
//
// This enables deterministic test execution and golden trace comparison.
// The same scenario with a fresh SequentialIDs produces byte-identical traces.
//
// Implements blocks.IDGenerator.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type SequentialIDs struct {
	mu     sync.Mutex
	prefix string
	next   int
}

// NewSequentialIDs creates a generator. If prefix is empty, IDs are
// "block-1", "block-2", ...
func NewSequentialIDs(prefix string) *SequentialIDs {
	if prefix == "" {
		prefix = "block"
	}
	return &SequentialIDs{prefix: prefix, next: 1}
}

// NewClientID returns the next ID in sequence.
func (g *SequentialIDs) NewClientID() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	id := fmt.Sprintf("%s-%d", g.prefix, g.next)
	g.next++
	return id
}

// Reset restarts the sequence at 1.
func (g *SequentialIDs) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.next = 1
}

// FixedIDs returns predetermined client IDs in order.
//
// Panics if all IDs have been consumed. This is a fail-fast approach to
// catch a test that creates more blocks than it declared.
type FixedIDs struct {
	mu  sync.Mutex
	ids []string
	idx int
}

// NewFixedIDs creates a generator that returns ids in order.
func NewFixedIDs(ids ...string) *FixedIDs {
	return &FixedIDs{ids: ids}
}

// NewClientID returns the next predetermined ID.
func (g *FixedIDs) NewClientID() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.ids) {
		panic("FixedIDs: all ids exhausted")
	}
	id := g.ids[g.idx]
	g.idx++
	return id
}
