package engine

import (
	"log/slog"
	"slices"

	"github.com/roach88/blocksync/internal/editor"
	"github.com/roach88/blocksync/internal/ir"
)

// Store is the part of the block tree store a BlockSync reads and drives.
// *editor.Store implements it.
type Store interface {
	Blocks(rootClientID string) []*ir.Block
	BlockName(clientID string) string
	BlockParents(clientID string, ascending bool) []string
	Registry() editor.Registry
	AreInnerBlocksControlled(clientID string) bool
	Selection() ir.Selection
	IsLastBlockChangePersistent() bool
	IsLastBlockChangeIgnored() bool

	Subscribe(fn func()) (unsubscribe func())
	Batch(fn func())
	MarkNextChangeAsNotPersistent()
	ResetBlocks(list []*ir.Block)
	ResetSelection(start, end ir.SelectionPoint, initialPosition *int)
	ReplaceInnerBlocks(rootClientID string, list []*ir.Block, updateSelection bool, initialPosition int) bool
	SetHasControlledInnerBlocks(clientID string, controlled bool) bool
}

var _ Store = (*editor.Store)(nil)

// Meta accompanies every forwarded block list.
type Meta struct {
	// Selection is the store's selection when the list was forwarded.
	Selection ir.Selection

	// Seq is the push's logical clock stamp.
	Seq int64
}

// ChangeFunc receives a block list forwarded out of the store.
type ChangeFunc func(blocks []*ir.Block, meta Meta)

// Props describe the controlled value a BlockSync keeps the store in step
// with. They play the role of a host component's props: pass fresh Props to
// Update every time the owner's state changes.
type Props struct {
	// ClientID is the attachment point. "" attaches at the store root; any
	// other value attaches to that block's inner blocks.
	ClientID string

	// Value is the owner's block list. A nil Value means the owner has no
	// value yet: nothing is seeded. An empty, non-nil Value seeds an empty
	// list.
	Value []*ir.Block

	// Selection, when set, is restored every time Value is seeded.
	Selection *ir.Selection

	// OnChange receives persistent changes (undo checkpoints).
	OnChange ChangeFunc

	// OnInput receives transient changes.
	OnInput ChangeFunc
}

// history is the outcome of the previous store notification, used to
// detect a change that is made first and marked persistent afterwards.
type history struct {
	persistent bool // persistence of the last change seen
	changed    bool // whether the previous notification changed the list
}

// BlockSync keeps the blocks at one attachment point of a Store consistent
// with an externally owned block list, in both directions.
//
// Inbound, a new controlled value reseeds the store unless it is a push
// this BlockSync forwarded itself. Outbound, every store change at the
// attachment point is forwarded through OnChange or OnInput unless it was
// caused by seeding or flagged as ignored.
//
// Thread-safety: BlockSync is NOT safe for concurrent use. Like the Store
// it drives, all calls must happen on one goroutine.
type BlockSync struct {
	store  Store
	props  Props
	logger *slog.Logger
	clock  Sequencer

	attached    bool
	subscribed  bool
	unsubscribe func()

	// incoming marks a seed the subscriber has not yet seen land.
	incoming    []*ir.Block
	hasIncoming bool
	outgoing    outbox

	observed []*ir.Block
	hist     history
}

// BlockSyncOption configures a BlockSync.
type BlockSyncOption func(*BlockSync)

// WithLogger sets the logger. Default: the store's logger when it has one,
// else slog.Default().
func WithLogger(logger *slog.Logger) BlockSyncOption {
	return func(b *BlockSync) {
		b.logger = logger
	}
}

// WithClock sets the sequencer that stamps outbound pushes.
// Default: NewClock().
func WithClock(clock Sequencer) BlockSyncOption {
	return func(b *BlockSync) {
		b.clock = clock
	}
}

// NewBlockSync creates a BlockSync for props. It does nothing until Attach.
func NewBlockSync(store Store, props Props, opts ...BlockSyncOption) *BlockSync {
	b := &BlockSync{
		store:  store,
		props:  props,
		logger: slog.Default(),
		clock:  NewClock(),
	}
	if l, ok := store.(interface{ Logger() *slog.Logger }); ok {
		b.logger = l.Logger()
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Attached reports whether the BlockSync is attached.
func (b *BlockSync) Attached() bool {
	return b.attached
}

// PendingOutgoing returns how many forwarded lists have not yet come back
// as the controlled value.
func (b *BlockSync) PendingOutgoing() int {
	return b.outgoing.Len()
}

// Attach seeds the store from the controlled value, restores its
// selection, and starts forwarding store changes. Attaching twice is a
// no-op.
func (b *BlockSync) Attach() {
	if b.attached {
		return
	}
	b.attached = true
	b.outgoing.Clear()
	b.seed()
	b.restoreSelection()
	b.subscribe()
	b.logger.Debug("block sync attached", "client_id", b.props.ClientID, "blocks", len(b.props.Value))
}

// Detach stops forwarding and releases the attachment point: the root is
// reset to an empty list, or a nested block's inner blocks are emptied and
// no longer marked controlled. Detaching twice is a no-op.
func (b *BlockSync) Detach() {
	if !b.attached {
		return
	}
	b.attached = false
	b.subscribed = false
	if b.unsubscribe != nil {
		b.unsubscribe()
		b.unsubscribe = nil
	}
	b.unseed()
	b.outgoing.Clear()
	b.clearIncoming()
	b.logger.Debug("block sync detached", "client_id", b.props.ClientID)
}

// Update hands the BlockSync the owner's latest props.
//
// Callbacks are always replaced, so the next forward uses them. A new
// attachment point detaches from the old one and attaches to the new one.
// A new Value is reconciled against the pending pushes: a value this
// BlockSync forwarded is confirmed; anything else reseeds the store.
func (b *BlockSync) Update(props Props) {
	prev := b.props
	b.props = props
	if !b.attached {
		return
	}

	if props.ClientID != prev.ClientID {
		b.props = prev
		b.Detach()
		b.props = props
		b.Attach()
		return
	}
	if ir.SameBlockList(props.Value, prev.Value) && (props.Value == nil) == (prev.Value == nil) {
		return
	}
	b.reconcile()
}

// reconcile handles a new controlled value.
func (b *BlockSync) reconcile() {
	value := b.props.Value
	if p, ok := b.outgoing.Confirm(value); ok {
		b.logger.Debug("push confirmed",
			"client_id", b.props.ClientID,
			"seq", p.seq,
			"pending_outgoing", b.outgoing.Len(),
		)
		return
	}
	if value != nil && ir.SameBlockList(b.store.Blocks(b.props.ClientID), value) {
		return
	}

	b.outgoing.Clear()
	b.seed()
	b.restoreSelection()
}

// seed puts the controlled value into the store as a non-persistent change.
func (b *BlockSync) seed() {
	value := b.props.Value
	if value == nil {
		return
	}
	id := b.props.ClientID

	if id == "" {
		b.store.MarkNextChangeAsNotPersistent()
		if b.subscribed {
			b.setIncoming(value)
		}
		b.store.ResetBlocks(value)
		return
	}

	if b.store.BlockName(id) == "" {
		b.logger.Debug("seed skipped, attachment block is gone", "client_id", id)
		return
	}
	b.store.MarkNextChangeAsNotPersistent()
	b.store.Batch(func() {
		b.store.SetHasControlledInnerBlocks(id, true)
		clones := b.seedBlocks(value)
		if b.subscribed {
			b.setIncoming(clones)
		}
		b.store.MarkNextChangeAsNotPersistent()
		b.store.ReplaceInnerBlocks(id, clones, false, 0)
	})
}

// seedBlocks copies value for a nested attachment point. If any client ID
// in value is already live elsewhere in the store, the whole value is
// cloned with fresh client IDs instead.
func (b *BlockSync) seedBlocks(value []*ir.Block) []*ir.Block {
	root := b.props.ClientID
	collision := ""
	ir.Walk(value, func(blk *ir.Block) bool {
		if collision == "" && b.livesOutside(blk.ClientID, root) {
			collision = blk.ClientID
		}
		return collision == ""
	})
	if collision == "" {
		return ir.CopyTree(value)
	}

	b.logger.Debug("seed client id in use, cloning value",
		"client_id", root,
		"collision", collision,
	)
	registry := b.store.Registry()
	clones := make([]*ir.Block, len(value))
	for i, blk := range value {
		clones[i] = registry.CloneBlock(blk, nil, nil)
	}
	return clones
}

// livesOutside reports whether clientID is a block in the store that is
// not inside root.
func (b *BlockSync) livesOutside(clientID, root string) bool {
	if clientID == root {
		return true
	}
	if b.store.BlockName(clientID) == "" {
		return false
	}
	return !slices.Contains(b.store.BlockParents(clientID, true), root)
}

// unseed releases the attachment point.
func (b *BlockSync) unseed() {
	id := b.props.ClientID
	if id == "" {
		b.store.MarkNextChangeAsNotPersistent()
		b.store.ResetBlocks([]*ir.Block{})
		return
	}
	if b.store.BlockName(id) == "" {
		return
	}
	b.store.MarkNextChangeAsNotPersistent()
	b.store.Batch(func() {
		b.store.SetHasControlledInnerBlocks(id, false)
		b.store.MarkNextChangeAsNotPersistent()
		b.store.ReplaceInnerBlocks(id, nil, false, 0)
	})
}

func (b *BlockSync) restoreSelection() {
	sel := b.props.Selection
	if sel == nil || b.props.Value == nil {
		return
	}
	b.store.ResetSelection(sel.Start, sel.End, sel.InitialPosition)
}

func (b *BlockSync) setIncoming(list []*ir.Block) {
	b.incoming = list
	b.hasIncoming = true
}

func (b *BlockSync) clearIncoming() {
	b.incoming = nil
	b.hasIncoming = false
}

func (b *BlockSync) subscribe() {
	b.observed = b.store.Blocks(b.props.ClientID)
	b.hist = history{persistent: b.store.IsLastBlockChangePersistent()}
	b.subscribed = true
	b.unsubscribe = b.store.Subscribe(b.onStoreChange)
}

// onStoreChange runs after every store notification while attached.
func (b *BlockSync) onStoreChange() {
	id := b.props.ClientID
	if id != "" {
		// A stale subscription for a removed block must not touch anything.
		if b.store.BlockName(id) == "" {
			return
		}
		// Someone reset the block's children out from under us. The
		// controlled value is authoritative again.
		if b.props.Value != nil && !b.store.AreInnerBlocksControlled(id) {
			b.logger.Debug("inner blocks no longer controlled, reseeding", "client_id", id)
			b.outgoing.Clear()
			b.seed()
			return
		}
	}

	persistent := b.store.IsLastBlockChangePersistent()
	current := b.store.Blocks(id)
	changed := !ir.SameBlockList(current, b.observed)
	b.observed = current

	// A seed that left the list as it was has landed without a change.
	if b.hasIncoming && !changed {
		b.clearIncoming()
		b.hist.persistent = persistent
		b.hist.changed = false
		return
	}

	if changed && (b.hasIncoming || b.store.IsLastBlockChangeIgnored()) {
		b.clearIncoming()
		b.hist.persistent = persistent
		return
	}

	// A list forwarded as input becomes a checkpoint when the store later
	// marks that same change persistent.
	confirmed := b.hist.changed && !changed && persistent && !b.hist.persistent
	if changed || confirmed {
		b.hist.persistent = persistent
		b.forward(current, persistent)
	}
	b.hist.changed = changed
}

func (b *BlockSync) forward(list []*ir.Block, persistent bool) {
	seq := b.clock.Next()
	b.outgoing.Push(push{blocks: list, seq: seq})

	fn, kind := b.props.OnInput, "input"
	if persistent {
		fn, kind = b.props.OnChange, "change"
	}
	b.logger.Debug("forward blocks",
		"client_id", b.props.ClientID,
		"kind", kind,
		"seq", seq,
		"blocks", len(list),
		"pending_outgoing", b.outgoing.Len(),
	)
	if fn != nil {
		fn(list, Meta{Selection: b.store.Selection(), Seq: seq})
	}
}
