// Package harness runs block sync scenarios as executable contract tests.
//
// A scenario compiles CUE block declarations, builds an editor store, binds
// an owning entity to it through a BlockSync, performs a flow of edits, and
// asserts on the resulting trace and final state.
//
// # Scenario Format
//
//	name: scenario_name
//	description: "What this scenario validates"
//	specs:
//	  - ../../compiler/testdata/blocks/blocks.cue
//	value:
//	  - client_id: a
//	    name: core/paragraph
//	    attributes: { content: "Hello" }
//	journal: true
//	flow:
//	  - do: update_attributes
//	    client_ids: [a]
//	    attributes: { content: "Hello world" }
//	    expect: { ok: true }
//	assertions:
//	  - type: trace_contains
//	    action: forward:change
//	    args: { client_id: "" }
//	  - type: final_state
//	    table: revisions
//	    where: { entity: post, seq: 2 }
//	    expect: { persistent: true }
//
// # Trace
//
// The trace interleaves three event types: the flow steps the harness
// performed (step), every action the store dispatched (dispatch), and every
// list a BlockSync forwarded to its owner (forward). Assertions name events
// by label, "<type>:<action>", e.g. "dispatch:REPLACE_INNER_BLOCKS".
//
// # Assertion Types
//
//   - trace_contains: an event with the label appears with matching args
//   - trace_order: labels appear in the given order
//   - trace_count: a label appears exactly N times
//   - final_state: a journal row has the expected values
//   - final_blocks: the store's root list matches, block by block
//   - final_selection: the store's selection start matches
//
// # Deterministic Testing
//
// Every run uses a fresh store, sequential client IDs ("gen-1", "gen-2",
// ...), one testutil.DeterministicClock shared by the trace and every
// BlockSync, and an isolated in-memory SQLite journal. Identical scenarios
// produce identical traces, which golden files pin down.
package harness
