package engine

import (
	"github.com/ef-ds/deque"

	"github.com/roach88/blocksync/internal/ir"
)

// push is one block list forwarded to the owner and not yet seen coming
// back as the controlled value.
type push struct {
	blocks []*ir.Block
	seq    int64
}

// outbox is the FIFO of pending outbound pushes.
//
// Pushes are matched against inbound values by list identity, in the order
// they were sent. A match confirms that push and discards every push queued
// before it: the owner has moved past them.
//
// Thread-safety: outbox is NOT safe for concurrent use. It lives on the
// store's goroutine like the rest of BlockSync.
type outbox struct {
	items deque.Deque
}

// Push appends a push to the back of the queue.
func (q *outbox) Push(p push) {
	q.items.PushBack(p)
}

// Len returns the number of unconfirmed pushes.
func (q *outbox) Len() int {
	return q.items.Len()
}

// Front returns the oldest unconfirmed push.
func (q *outbox) Front() (push, bool) {
	v, ok := q.items.Front()
	if !ok {
		return push{}, false
	}
	return v.(push), true
}

// Clear drops every pending push.
func (q *outbox) Clear() {
	q.items.Init()
}

// Confirm looks for the latest push whose list is value. If found, that push
// and all pushes before it are removed and the confirmed push is returned.
func (q *outbox) Confirm(value []*ir.Block) (push, bool) {
	idx := q.indexOf(value)
	if idx < 0 {
		return push{}, false
	}
	var confirmed push
	for i := 0; i <= idx; i++ {
		v, _ := q.items.PopFront()
		confirmed = v.(push)
	}
	return confirmed, true
}

// indexOf returns the position of the last push of value. It scans by
// rotating the queue once; deque has no iterator.
func (q *outbox) indexOf(value []*ir.Block) int {
	idx := -1
	n := q.items.Len()
	for i := 0; i < n; i++ {
		v, _ := q.items.PopFront()
		if ir.SameBlockList(v.(push).blocks, value) {
			idx = i
		}
		q.items.PushBack(v)
	}
	return idx
}
