package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/blocksync/internal/blocks"
	"github.com/roach88/blocksync/internal/compiler"
	"github.com/roach88/blocksync/internal/editor"
	"github.com/roach88/blocksync/internal/engine"
	"github.com/roach88/blocksync/internal/entity"
	"github.com/roach88/blocksync/internal/ir"
	"github.com/roach88/blocksync/internal/store"
	"github.com/roach88/blocksync/internal/testutil"
)

// owner is an entity and the BlockSync binding it to one attachment point.
type owner struct {
	clientID    string
	entity      *entity.Entity
	sync        *engine.BlockSync
	unsubscribe func()
}

// Harness is the test execution engine.
// It runs scenarios with a deterministic clock and client IDs.
type Harness struct {
	store   *editor.Store
	journal *store.Store
	clock   *testutil.DeterministicClock
	logger  *slog.Logger
	result  *Result

	root   *owner
	nested map[string]*owner
}

// Option configures a scenario run.
type Option func(*runConfig)

type runConfig struct {
	logger  *slog.Logger
	journal *store.Store
}

// WithLogger sets the logger handed to the store, syncs, and entities.
// Default: a logger that discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(c *runConfig) {
		c.logger = logger
	}
}

// WithJournal journals the scenario's entities to st instead of a fresh
// in-memory database, whether or not the scenario sets journal. The caller
// owns st and closes it.
func WithJournal(st *store.Store) Option {
	return func(c *runConfig) {
		c.journal = st
	}
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs against a fresh store and, when it journals, a fresh
// in-memory database. Deterministic helpers ensure reproducible traces.
//
// Execution flow:
//  1. Compile the CUE block declarations
//  2. Build the store and the owning entities
//  3. Attach the root BlockSync, then the nested ones
//  4. Execute flow steps with expect validation
//  5. Check store invariants and evaluate assertions
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	cfg := runConfig{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&cfg)
	}

	project, err := LoadProject(scenario.Specs, blocks.WithIDGenerator(testutil.NewSequentialIDs("gen")))
	if err != nil {
		return nil, fmt.Errorf("failed to load specs: %w", err)
	}

	ctx := context.Background()
	h := &Harness{
		clock:  testutil.NewDeterministicClock(),
		logger: cfg.logger,
		result: NewResult(),
		nested: make(map[string]*owner),
	}

	switch {
	case cfg.journal != nil:
		h.journal = cfg.journal
	case scenario.Journal:
		h.journal, err = store.Open(":memory:")
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory journal: %w", err)
		}
		defer h.journal.Close()
	}

	h.store = editor.New(project.Registry,
		editor.WithSettings(project.Settings),
		editor.WithLogger(h.logger),
		editor.WithInvariantChecks(true),
	)
	stopTrace := h.store.OnDispatch(h.traceDispatch)
	defer stopTrace()

	var sel []entity.Option
	if scenario.Selection != nil {
		sel = append(sel, entity.WithSelection(*scenario.Selection))
	}
	h.root = h.attach(ctx, scenario.Entity, "", scenario.Value, sel...)
	for _, n := range scenario.Nested {
		h.nested[n.ClientID] = h.attach(ctx, scenario.Entity+"/"+n.ClientID, n.ClientID, n.Value)
	}

	if err := h.executeFlow(scenario.Flow); err != nil {
		return nil, fmt.Errorf("failed to execute flow: %w", err)
	}

	if err := h.store.CheckInvariants(); err != nil {
		h.result.AddError(fmt.Sprintf("store invariants: %v", err))
	}
	if err := h.root.entity.JournalErr(); err != nil {
		h.result.AddError(fmt.Sprintf("journal: %v", err))
	}

	h.result.Blocks = h.store.Blocks("")
	h.result.Selection = h.store.Selection()
	h.result.Value = h.root.entity.Value()

	actx := &AssertionContext{
		Journal: h.journal,
		Ctx:     ctx,
	}
	for _, errMsg := range EvaluateAssertions(h.result, scenario.Assertions, actx) {
		h.result.AddError(errMsg)
	}

	return h.result, nil
}

// LoadProject compiles and unifies CUE block declaration files.
func LoadProject(paths []string, opts ...blocks.RegistryOption) (*compiler.Project, error) {
	ctx := cuecontext.New()
	var value cue.Value
	for i, path := range paths {
		src, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		v := ctx.CompileBytes(src, cue.Filename(path))
		if err := v.Err(); err != nil {
			return nil, fmt.Errorf("compile %s: %w", path, err)
		}
		if i == 0 {
			value = v
		} else {
			value = value.Unify(v)
		}
	}
	return compiler.CompileProject(value, opts...)
}

// attach creates an owning entity for clientID and binds it with a
// BlockSync. Every entity change re-renders the sync with fresh props.
func (h *Harness) attach(ctx context.Context, name, clientID string, value []BlockSpec, opts ...entity.Option) *owner {
	opts = append(opts, entity.WithLogger(h.logger), entity.WithContext(ctx))
	if h.journal != nil {
		opts = append(opts, entity.WithRevisionStore(h.journal))
	}

	o := &owner{clientID: clientID}
	o.entity = entity.New(name, buildBlocks(value), opts...)
	o.sync = engine.NewBlockSync(h.store, h.props(o),
		engine.WithLogger(h.logger),
		engine.WithClock(h.clock),
	)
	o.sync.Attach()
	o.unsubscribe = o.entity.Subscribe(func() {
		o.sync.Update(h.props(o))
	})
	return o
}

// props returns the owner's current props with forwards traced.
func (h *Harness) props(o *owner) engine.Props {
	p := o.entity.Props(o.clientID)
	p.OnChange = h.traceForward("change", o.clientID, p.OnChange)
	p.OnInput = h.traceForward("input", o.clientID, p.OnInput)
	return p
}

func (h *Harness) traceForward(kind, clientID string, next engine.ChangeFunc) engine.ChangeFunc {
	return func(list []*ir.Block, meta engine.Meta) {
		h.result.AddTrace(EventForward, kind, ir.Object{
			"client_id": ir.String(clientID),
			"blocks":    ir.BlocksArray(list),
			"selection": ir.SelectionObject(meta.Selection),
		}, meta.Seq)
		next(list, meta)
	}
}

func (h *Harness) traceDispatch(a editor.Action) {
	h.result.AddTrace(EventDispatch, string(a.Type), dispatchArgs(a), h.clock.Next())
}

// dispatchArgs summarizes an action for the trace.
func dispatchArgs(a editor.Action) ir.Object {
	args := ir.Object{}
	if a.ClientID != "" {
		args["client_id"] = ir.String(a.ClientID)
	}
	if len(a.ClientIDs) > 0 {
		args["client_ids"] = stringArray(a.ClientIDs)
	}
	if a.RootClientID != "" {
		args["root_client_id"] = ir.String(a.RootClientID)
	}
	if a.Blocks != nil {
		ids := make([]string, len(a.Blocks))
		for i, b := range a.Blocks {
			ids[i] = b.ClientID
		}
		args["blocks"] = stringArray(ids)
	}
	if a.Attributes != nil {
		args["attributes"] = a.Attributes
	}
	switch a.Type {
	case editor.ActionSetHasControlledInnerBlocks:
		args["controlled"] = ir.Bool(a.HasControlledInnerBlocks)
	case editor.ActionSelectionChange, editor.ActionResetSelection, editor.ActionMultiSelect:
		args["selection"] = ir.SelectionObject(ir.Selection{Start: a.Start, End: a.End})
	}
	return args
}

func stringArray(ss []string) ir.Array {
	arr := make(ir.Array, len(ss))
	for i, s := range ss {
		arr[i] = ir.String(s)
	}
	return arr
}
