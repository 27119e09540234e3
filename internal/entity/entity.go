// Package entity provides an owning entity for synchronized block lists: a
// document that holds the controlled value, records undo checkpoints, and
// optionally journals every accepted list to the revision store.
package entity

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/roach88/blocksync/internal/engine"
	"github.com/roach88/blocksync/internal/ir"
	"github.com/roach88/blocksync/internal/store"
)

// checkpoint is one undo step.
type checkpoint struct {
	blocks    []*ir.Block
	selection ir.Selection
}

// Entity owns a block list the way a post owns its content.
//
// Persistent changes (OnChange) create undo checkpoints. Transient changes
// (OnInput) replace the live value without one; the next checkpoint or an
// undo absorbs them. Undo and Redo hand out the exact list instances that
// were recorded, so a connected BlockSync sees a new identity and reseeds.
//
// Thread-safety: Entity is NOT safe for concurrent use. It is driven from
// the store's goroutine through its callbacks.
type Entity struct {
	name   string
	logger *slog.Logger
	ctx    context.Context

	journal *store.Store
	head    string // ID of the last journaled revision
	stamp   int64
	err     error

	history []checkpoint
	index   int
	dirty   bool // transient edits on top of history[index]

	value     []*ir.Block
	selection ir.Selection

	observers []*observer
}

type observer struct {
	fn     func()
	active bool
}

// Option configures an Entity.
type Option func(*Entity)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Entity) {
		e.logger = logger
	}
}

// WithRevisionStore journals every value the entity takes to st.
func WithRevisionStore(st *store.Store) Option {
	return func(e *Entity) {
		e.journal = st
	}
}

// WithContext sets the context used for journal writes.
// Default: context.Background().
func WithContext(ctx context.Context) Option {
	return func(e *Entity) {
		e.ctx = ctx
	}
}

// WithSelection sets the selection stored with the initial value.
func WithSelection(sel ir.Selection) Option {
	return func(e *Entity) {
		e.selection = sel
	}
}

// New creates an entity holding initial as its first checkpoint.
func New(name string, initial []*ir.Block, opts ...Option) *Entity {
	if initial == nil {
		initial = []*ir.Block{}
	}
	e := &Entity{
		name:   name,
		logger: slog.Default(),
		ctx:    context.Background(),
		value:  initial,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.history = []checkpoint{{blocks: initial, selection: e.selection}}
	return e
}

// Restore creates an entity from the last revision journaled for name in
// st, and keeps journaling to st. An entity with no revisions starts empty.
func Restore(ctx context.Context, name string, st *store.Store, opts ...Option) (*Entity, error) {
	rev, found, err := st.LatestRevision(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("restore entity %s: %w", name, err)
	}

	opts = append([]Option{WithRevisionStore(st), WithContext(ctx)}, opts...)
	if !found {
		return New(name, nil, opts...), nil
	}
	e := New(name, rev.Blocks, append(opts, WithSelection(rev.Selection))...)
	e.head = rev.ID
	e.stamp = rev.Stamp
	e.logger.Debug("entity restored", "entity", name, "seq", rev.Seq, "revision", rev.ID)
	return e, nil
}

// Name returns the entity's name.
func (e *Entity) Name() string { return e.name }

// Value returns the current block list. It must not be mutated.
func (e *Entity) Value() []*ir.Block { return e.value }

// Selection returns the selection recorded with the current value.
func (e *Entity) Selection() ir.Selection { return e.selection }

// Stamp returns the logical clock stamp of the last push the entity
// accepted. A BlockSync resuming a restored entity starts its clock there.
func (e *Entity) Stamp() int64 { return e.stamp }

// JournalErr returns the first journal write error, if any. Journal
// failures never interrupt editing.
func (e *Entity) JournalErr() error { return e.err }

// CanUndo reports whether Undo would change the value.
func (e *Entity) CanUndo() bool { return e.dirty || e.index > 0 }

// CanRedo reports whether Redo would change the value.
func (e *Entity) CanRedo() bool { return e.index < len(e.history)-1 }

// OnChange accepts a persistent change: it becomes a new undo checkpoint
// and discards anything that could have been redone.
func (e *Entity) OnChange(blocks []*ir.Block, meta engine.Meta) {
	e.history = append(e.history[:e.index+1], checkpoint{blocks: blocks, selection: meta.Selection})
	e.index++
	e.dirty = false
	e.accept(blocks, meta.Selection, meta.Seq, true)
}

// OnInput accepts a transient change. No checkpoint is created, but the
// redo branch is still discarded.
func (e *Entity) OnInput(blocks []*ir.Block, meta engine.Meta) {
	e.history = e.history[:e.index+1]
	e.dirty = true
	e.accept(blocks, meta.Selection, meta.Seq, false)
}

// Undo returns to the last checkpoint. Transient edits made since that
// checkpoint are undone first; otherwise the previous checkpoint is
// restored.
func (e *Entity) Undo() bool {
	switch {
	case e.dirty:
		e.dirty = false
	case e.index > 0:
		e.index--
	default:
		return false
	}
	cp := e.history[e.index]
	e.accept(cp.blocks, cp.selection, e.stamp, true)
	return true
}

// Redo re-applies the checkpoint after the current one.
func (e *Entity) Redo() bool {
	if !e.CanRedo() {
		return false
	}
	e.index++
	cp := e.history[e.index]
	e.accept(cp.blocks, cp.selection, e.stamp, true)
	return true
}

// Subscribe registers fn to run after every value change. The returned
// function unsubscribes.
func (e *Entity) Subscribe(fn func()) (unsubscribe func()) {
	o := &observer{fn: fn, active: true}
	e.observers = append(e.observers, o)
	return func() {
		if !o.active {
			return
		}
		o.active = false
		e.observers = slices.DeleteFunc(e.observers, func(x *observer) bool { return x == o })
	}
}

// Props returns sync props binding clientID to this entity.
func (e *Entity) Props(clientID string) engine.Props {
	sel := e.selection
	return engine.Props{
		ClientID:  clientID,
		Value:     e.value,
		Selection: &sel,
		OnChange:  e.OnChange,
		OnInput:   e.OnInput,
	}
}

// Connect keeps b's props current: every value change of the entity is
// handed to b.Update, the way a host re-renders with the owner's new state.
func (e *Entity) Connect(b *engine.BlockSync, clientID string) (disconnect func()) {
	return e.Subscribe(func() {
		b.Update(e.Props(clientID))
	})
}

func (e *Entity) accept(blocks []*ir.Block, sel ir.Selection, stamp int64, persistent bool) {
	e.value = blocks
	e.selection = sel
	e.stamp = stamp
	e.record(persistent)
	e.logger.Debug("entity changed",
		"entity", e.name,
		"persistent", persistent,
		"blocks", len(blocks),
		"undo_index", e.index,
		"stamp", stamp,
	)
	for _, o := range slices.Clone(e.observers) {
		if o.active {
			o.fn()
		}
	}
}

// record appends the current value to the journal.
func (e *Entity) record(persistent bool) {
	if e.journal == nil {
		return
	}
	rev, err := e.journal.AppendRevision(e.ctx, store.Revision{
		Entity:     e.name,
		ParentID:   e.head,
		Persistent: persistent,
		Blocks:     e.value,
		Selection:  e.selection,
		Stamp:      e.stamp,
	})
	if err != nil {
		e.logger.Error("journal write failed", "entity", e.name, "error", err)
		if e.err == nil {
			e.err = err
		}
		return
	}
	e.head = rev.ID
}
