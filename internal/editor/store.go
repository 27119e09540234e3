package editor

import (
	"log/slog"
	"slices"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/roach88/blocksync/internal/blocks"
)

// MaxNotifyDepth bounds how many notification rounds one dispatch may
// trigger when observers dispatch in response to a notification.
const MaxNotifyDepth = 100

// DefaultPolicyCacheSize is the number of memoized insert-permission answers.
const DefaultPolicyCacheSize = 1024

// stamps version the parts of state derived answers depend on.
type stamps struct {
	blocks       uint64 // any block map
	structure    uint64 // names, order, parents
	settings     uint64
	listSettings uint64
	modes        uint64 // editing modes and editor mode
}

// Store is the block tree store.
//
// Thread-safety: Store is NOT safe for concurrent use. All calls, including
// scheduled automatic-change work, must happen on one goroutine.
type Store struct {
	registry        Registry
	templates       TemplateValidator
	logger          *slog.Logger
	scheduler       Scheduler
	checkInvariants bool

	blocks          *blocksState
	selection       selectionState
	initialPosition *int
	settings        Settings
	listSettings    map[string]BlockListSettings
	editingModes    map[string]EditingMode
	editorMode      EditorMode
	templateValid   bool
	automatic       automaticStatus

	// Persistence classification of the last block change.
	persistent            bool
	ignored               bool
	lastAction            *Action
	markNextNotPersistent bool
	explicitPersistent    *bool

	version uint64
	stamps  stamps

	batchDepth  int
	dirty       bool
	notifying   bool
	observers   []*observer
	dispatchers []*observer

	insertMemo *lru.Cache[insertKey, bool]
}

type observer struct {
	onChange   func()
	onDispatch func(Action)
	active     bool
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithLogger sets the logger for diagnostics and invariant reports.
// Default: slog.Default().
func WithLogger(logger *slog.Logger) StoreOption {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithInvariantChecks makes invariant violations panic with an
// *InvariantError instead of being logged. Tests enable it.
func WithInvariantChecks(enabled bool) StoreOption {
	return func(s *Store) {
		s.checkInvariants = enabled
	}
}

// WithScheduler sets the scheduler that finalizes automatic changes.
// Default: a new IdleQueue.
func WithScheduler(scheduler Scheduler) StoreOption {
	return func(s *Store) {
		s.scheduler = scheduler
	}
}

// WithTemplateValidator sets the template collaborator.
// Default: blocks.TemplateValidator over the store's registry.
func WithTemplateValidator(v TemplateValidator) StoreOption {
	return func(s *Store) {
		s.templates = v
	}
}

// WithSettings sets the initial editor settings.
func WithSettings(settings Settings) StoreOption {
	return func(s *Store) {
		s.settings = settings
	}
}

// New creates an empty store backed by registry.
func New(registry Registry, opts ...StoreOption) *Store {
	s := &Store{
		registry:      registry,
		logger:        slog.Default(),
		scheduler:     &IdleQueue{},
		listSettings:  make(map[string]BlockListSettings),
		editingModes:  make(map[string]EditingMode),
		editorMode:    EditorModeEdit,
		templateValid: true,
		persistent:    true,
	}
	if r, ok := registry.(*blocks.Registry); ok {
		s.templates = blocks.TemplateValidator{Registry: r}
	} else {
		s.templates = blocks.TemplateValidator{}
	}
	for _, opt := range opts {
		opt(s)
	}

	s.blocks = newBlocksState(s.violate)
	memo, err := lru.New[insertKey, bool](DefaultPolicyCacheSize)
	if err != nil {
		// Only fails for a non-positive size.
		panic(err)
	}
	s.insertMemo = memo
	return s
}

// Registry returns the block-type collaborator.
func (s *Store) Registry() Registry {
	return s.registry
}

// Logger returns the store's logger, for collaborators that log alongside it.
func (s *Store) Logger() *slog.Logger {
	return s.logger
}

// Version increases whenever observable state changes.
func (s *Store) Version() uint64 {
	return s.version
}

func (s *Store) touch() {
	s.version++
}

// Subscribe registers fn to run after every dispatch (or batch) that changed
// state. The returned function unsubscribes; it is safe to call more than
// once and from inside fn.
func (s *Store) Subscribe(fn func()) (unsubscribe func()) {
	o := &observer{onChange: fn, active: true}
	s.observers = append(s.observers, o)
	return func() {
		if !o.active {
			return
		}
		o.active = false
		s.observers = slices.DeleteFunc(s.observers, func(x *observer) bool { return x == o })
	}
}

// OnDispatch registers fn to see every action before it is reduced,
// including the ones composite methods dispatch internally. It is meant for
// tracing and tests.
func (s *Store) OnDispatch(fn func(Action)) (unsubscribe func()) {
	o := &observer{onDispatch: fn, active: true}
	s.dispatchers = append(s.dispatchers, o)
	return func() {
		if !o.active {
			return
		}
		o.active = false
		s.dispatchers = slices.DeleteFunc(s.dispatchers, func(x *observer) bool { return x == o })
	}
}

// Batch runs fn with notifications deferred. Observers are notified at most
// once, after the outermost batch returns, and never see the intermediate
// states fn passes through.
func (s *Store) Batch(fn func()) {
	s.batchDepth++
	defer func() {
		s.batchDepth--
		if s.batchDepth == 0 {
			s.flush()
		}
	}()
	fn()
}

// dispatch reduces one action and notifies observers unless a batch is open.
func (s *Store) dispatch(a Action) {
	for _, o := range slices.Clone(s.dispatchers) {
		if o.active {
			o.onDispatch(a)
		}
	}

	before := s.version
	s.reduce(&a)
	s.logger.Debug("dispatch", "action", a, "version", s.version)
	if s.version != before {
		s.dirty = true
	}
	if s.batchDepth == 0 {
		s.flush()
	}
}

// flush notifies observers until no observer dispatches further changes.
// A dispatch from inside an observer does not re-enter the loop: it marks
// the store dirty and the loop runs another round.
func (s *Store) flush() {
	if s.notifying {
		return
	}
	s.notifying = true
	defer func() { s.notifying = false }()

	for rounds := 0; s.dirty; rounds++ {
		if rounds >= MaxNotifyDepth {
			s.dirty = false
			s.violate(ErrCodeNotifyOverflow, "", "observers still dispatching after %d notification rounds", rounds)
			return
		}
		s.dirty = false
		for _, o := range slices.Clone(s.observers) {
			if o.active {
				o.onChange()
			}
		}
	}
}

// reduce applies a to every slice of state.
func (s *Store) reduce(a *Action) {
	selectionChanged := s.reduceSelection(a)
	blocksChanged := s.reduceBlocks(a)
	s.classifyChange(a, blocksChanged)
	if blocksChanged {
		s.stamps.blocks++
		s.touch()
	}
	if selectionChanged {
		s.touch()
	}
	s.reduceInitialPosition(a)
	s.reduceSettings(a)
	s.reduceEditingModes(a)
	s.reduceAutomaticChange(a, blocksChanged, selectionChanged)
}

// classifyChange records whether the last block change is persistent (an
// undo checkpoint) and whether it should be ignored by synchronization.
func (s *Store) classifyChange(a *Action, changed bool) {
	if changed {
		s.setIgnored(a.Type == ActionReceiveBlocks)
	}
	if a.Type == ActionSetExplicitPersistent {
		s.explicitPersistent = a.Persistent
	}
	if s.explicitPersistent != nil {
		s.setPersistent(*s.explicitPersistent)
		return
	}

	explicit := a.Type == ActionMarkLastChangeAsPersistent || s.markNextNotPersistent
	if !changed && !explicit {
		s.markNextNotPersistent = a.Type == ActionMarkNextChangeAsNotPersistent
		return
	}

	if explicit {
		s.setPersistent(!s.markNextNotPersistent)
	} else {
		s.setPersistent(!isUpdatingSameBlockAttribute(a, s.lastAction))
	}

	last := *a
	s.lastAction = &last
	s.markNextNotPersistent = a.Type == ActionMarkNextChangeAsNotPersistent
}

func (s *Store) setPersistent(persistent bool) {
	if s.persistent != persistent {
		s.persistent = persistent
		s.touch()
	}
}

func (s *Store) setIgnored(ignored bool) {
	if s.ignored != ignored {
		s.ignored = ignored
		s.touch()
	}
}

// isUpdatingSameBlockAttribute reports whether a continues a run of
// attribute updates to the same keys of the same blocks, which coalesce into
// one undo step.
func isUpdatingSameBlockAttribute(a, last *Action) bool {
	if a.Type != ActionUpdateBlockAttributes || last == nil || last.Type != ActionUpdateBlockAttributes {
		return false
	}
	if !slices.Equal(a.ClientIDs, last.ClientIDs) || a.UniqueByBlock != last.UniqueByBlock {
		return false
	}
	if a.UniqueByBlock {
		return sameKeys(a.AttributesByID, last.AttributesByID)
	}
	return sameKeys(a.Attributes, last.Attributes)
}

func sameKeys[V any](a, b map[string]V) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}

// IsLastBlockChangePersistent reports whether the last block change should
// create an undo checkpoint.
func (s *Store) IsLastBlockChangePersistent() bool {
	return s.persistent
}

// IsLastBlockChangeIgnored reports whether the last block change should not
// be forwarded to the document owner at all.
func (s *Store) IsLastBlockChangeIgnored() bool {
	return s.ignored
}

// MarkLastChangeAsPersistent turns the last block change into an undo
// checkpoint after the fact.
func (s *Store) MarkLastChangeAsPersistent() {
	s.dispatch(Action{Type: ActionMarkLastChangeAsPersistent})
}

// MarkNextChangeAsNotPersistent makes the next block change transient.
func (s *Store) MarkNextChangeAsNotPersistent() {
	s.dispatch(Action{Type: ActionMarkNextChangeAsNotPersistent})
}

// SetExplicitPersistent overrides persistence classification for every
// following change until it is called with nil.
func (s *Store) SetExplicitPersistent(persistent *bool) {
	var p *bool
	if persistent != nil {
		v := *persistent
		p = &v
	}
	s.dispatch(Action{Type: ActionSetExplicitPersistent, Persistent: p})
}
