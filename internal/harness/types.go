package harness

import "github.com/roach88/blocksync/internal/ir"

// Trace event types.
const (
	// EventStep is a scenario flow step the harness performed.
	EventStep = "step"

	// EventDispatch is a store action, including the ones composite
	// operations and BlockSync seeding dispatch internally.
	EventDispatch = "dispatch"

	// EventForward is a block list a BlockSync forwarded to its owner.
	EventForward = "forward"
)

// TraceEvent is one entry of a scenario trace.
type TraceEvent struct {
	Type   string    `json:"type"`   // EventStep, EventDispatch, or EventForward
	Action string    `json:"action"` // step name, action type, or "change"/"input"
	Args   ir.Object `json:"args,omitempty"`
	Seq    int64     `json:"seq"`
}

// Label is how assertions refer to an event: "<type>:<action>", e.g.
// "forward:change" or "dispatch:RESET_BLOCKS".
func (e TraceEvent) Label() string {
	return e.Type + ":" + e.Action
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if every expect clause and assertion matches.
	Pass bool `json:"pass"`

	// Trace contains steps, dispatches, and forwards in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Blocks is the store's root block list after the flow.
	Blocks []*ir.Block `json:"blocks"`

	// Selection is the store's selection after the flow.
	Selection ir.Selection `json:"selection"`

	// Value is the owning entity's value after the flow.
	Value []*ir.Block `json:"value"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends an event to the trace.
func (r *Result) AddTrace(typ, action string, args ir.Object, seq int64) {
	r.Trace = append(r.Trace, TraceEvent{
		Type:   typ,
		Action: action,
		Args:   args,
		Seq:    seq,
	})
}
