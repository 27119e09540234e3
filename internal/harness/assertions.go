package harness

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/roach88/blocksync/internal/ir"
	"github.com/roach88/blocksync/internal/store"
)

// validIdentifier matches valid SQL identifiers (table/column names).
// Only allows alphanumeric and underscore, must start with letter or underscore.
// This prevents SQL injection via identifier interpolation.
var validIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for i, event := range e.Trace {
			if event.Type != EventDispatch {
				fmt.Fprintf(&buf, "  [%d] %s\n", i+1, event.Label())
			}
		}
	}

	return buf.String()
}

// assertTraceContains checks if the trace contains an event with the
// assertion's label and matching args (subset match).
func assertTraceContains(trace []TraceEvent, assertion Assertion) error {
	expected, err := ir.ObjectFromAny(nonNilMap(assertion.Args))
	if err != nil {
		return fmt.Errorf("trace_contains args: %w", err)
	}

	for _, event := range trace {
		if event.Label() == assertion.Action && matchValue(event.Args, expected) {
			return nil
		}
	}

	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: fmt.Sprintf("%s with args %v", assertion.Action, assertion.Args),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks if labels appear in the specified order.
// Labels don't need to be consecutive, and each label matches the first
// occurrence after the previous one.
func assertTraceOrder(trace []TraceEvent, assertion Assertion) error {
	pos := 0
	for i, label := range assertion.Actions {
		found := -1
		for j := pos; j < len(trace); j++ {
			if trace[j].Label() == label {
				found = j
				break
			}
		}
		if found < 0 {
			actual := fmt.Sprintf("missing %s", label)
			if i > 0 {
				actual = fmt.Sprintf("no %s after %s", label, assertion.Actions[i-1])
			}
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("events in order: %v", assertion.Actions),
				Actual:   actual,
				Trace:    trace,
			}
		}
		pos = found + 1
	}
	return nil
}

// assertTraceCount checks if the label appears exactly the specified number of times.
func assertTraceCount(trace []TraceEvent, assertion Assertion) error {
	count := 0
	for _, event := range trace {
		if event.Label() == assertion.Action {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %s", assertion.Count, assertion.Action),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertFinalBlocks checks the store's root list block by block. Each
// expected block is a subset of the block's object form: client_id, name,
// attributes, inner_blocks. The list lengths must match.
func assertFinalBlocks(actual []*ir.Block, assertion Assertion) error {
	if len(actual) != len(assertion.Blocks) {
		return &AssertionError{
			Type:     AssertFinalBlocks,
			Expected: fmt.Sprintf("%d root blocks", len(assertion.Blocks)),
			Actual:   fmt.Sprintf("%d root blocks: %s", len(actual), describeBlocks(actual)),
		}
	}

	for i, want := range assertion.Blocks {
		expected, err := ir.ObjectFromAny(want)
		if err != nil {
			return fmt.Errorf("final_blocks[%d]: %w", i, err)
		}
		if !matchValue(scenarioObject(actual[i]), expected) {
			return &AssertionError{
				Type:     AssertFinalBlocks,
				Expected: fmt.Sprintf("block %d matching %v", i, want),
				Actual:   describeBlocks(actual),
			}
		}
	}
	return nil
}

// assertFinalSelection checks the selection start: client_id,
// attribute_key, offset.
func assertFinalSelection(actual ir.Selection, assertion Assertion) error {
	expected, err := ir.ObjectFromAny(assertion.Expect)
	if err != nil {
		return fmt.Errorf("final_selection: %w", err)
	}

	got := ir.Object{
		"client_id":     ir.String(actual.Start.ClientID),
		"attribute_key": ir.String(actual.Start.AttributeKey),
	}
	if actual.Start.Offset != nil {
		got["offset"] = ir.Int(*actual.Start.Offset)
	}

	if !matchValue(got, expected) {
		return &AssertionError{
			Type:     AssertFinalSelection,
			Expected: fmt.Sprintf("selection start %v", assertion.Expect),
			Actual:   fmt.Sprintf("selection start %v", ir.ToAny(got)),
		}
	}
	return nil
}

// scenarioObject is a block in the field names scenarios use.
func scenarioObject(b *ir.Block) ir.Object {
	inner := make(ir.Array, len(b.InnerBlocks))
	for i, child := range b.InnerBlocks {
		inner[i] = scenarioObject(child)
	}
	attrs := b.Attributes
	if attrs == nil {
		attrs = ir.Object{}
	}
	return ir.Object{
		"client_id":    ir.String(b.ClientID),
		"name":         ir.String(b.Name),
		"invalid":      ir.Bool(!b.IsValid),
		"attributes":   attrs,
		"inner_blocks": inner,
	}
}

func describeBlocks(list []*ir.Block) string {
	parts := make([]string, len(list))
	for i, b := range list {
		parts[i] = fmt.Sprintf("%s(%s)", b.Name, b.ClientID)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// assertFinalState checks if a journal table row contains expected values.
// Queries with parameterized SQL and validates expected values using subset
// semantics.
//
// Security: Table and column names are validated against a whitelist pattern
// to prevent SQL injection via identifier interpolation.
func assertFinalState(ctx context.Context, st *store.Store, assertion Assertion) error {
	if assertion.Table == "" {
		return fmt.Errorf("final_state assertion requires table name")
	}

	if !validIdentifier.MatchString(assertion.Table) {
		return fmt.Errorf("invalid table name %q: must match pattern %s", assertion.Table, validIdentifier.String())
	}

	whereSQL, whereArgs, err := buildWhereClause(assertion.Where)
	if err != nil {
		return err
	}

	query := fmt.Sprintf("SELECT * FROM %s", assertion.Table)
	if whereSQL != "" {
		query += " WHERE " + whereSQL
	}

	rows, err := st.DB().QueryContext(ctx, query, whereArgs...)
	if err != nil {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("query table %s", assertion.Table),
			Actual:   fmt.Sprintf("query error: %v", err),
		}
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return fmt.Errorf("get columns: %w", err)
	}

	if !rows.Next() {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("row in %s where %s", assertion.Table, formatWhereClause(assertion.Where)),
			Actual:   "row not found",
		}
	}

	values := make([]any, len(columns))
	valuePtrs := make([]any, len(columns))
	for i := range values {
		valuePtrs[i] = &values[i]
	}
	if err := rows.Scan(valuePtrs...); err != nil {
		return fmt.Errorf("scan row: %w", err)
	}

	// Multiple matching rows would make the assertion ambiguous
	if rows.Next() {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("exactly one row in %s where %s", assertion.Table, formatWhereClause(assertion.Where)),
			Actual:   "multiple rows matched (assertion is ambiguous)",
		}
	}

	actualRow := make(map[string]any)
	for i, col := range columns {
		actualRow[col] = values[i]
	}

	for _, key := range sortedKeys(assertion.Expect) {
		expectedValue := assertion.Expect[key]
		actualValue, exists := actualRow[key]
		if !exists {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("field %q to exist", key),
				Actual:   fmt.Sprintf("field %q not present in result columns: %v", key, columns),
			}
		}

		if !stateValuesEqual(expectedValue, actualValue) {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("field %q = %v (type %T)", key, expectedValue, expectedValue),
				Actual:   fmt.Sprintf("field %q = %v (type %T)", key, actualValue, actualValue),
			}
		}
	}

	return nil
}

// buildWhereClause constructs parameterized WHERE clause from assertion.Where.
// Keys are sorted for determinism.
func buildWhereClause(where map[string]any) (string, []any, error) {
	if len(where) == 0 {
		return "", nil, nil
	}

	keys := sortedKeys(where)
	clauses := make([]string, 0, len(keys))
	args := make([]any, 0, len(keys))

	for _, key := range keys {
		if !validIdentifier.MatchString(key) {
			return "", nil, fmt.Errorf("invalid column name %q in where clause: must match pattern %s", key, validIdentifier.String())
		}
		clauses = append(clauses, fmt.Sprintf("%s = ?", key))
		args = append(args, toSQLValue(where[key]))
	}

	return strings.Join(clauses, " AND "), args, nil
}

// toSQLValue converts a YAML value to a SQL-compatible value. Booleans
// become 0/1 the way the journal stores them.
func toSQLValue(v any) any {
	switch val := v.(type) {
	case bool:
		if val {
			return int64(1)
		}
		return int64(0)
	case string, int, int64:
		return val
	default:
		return fmt.Sprintf("%v", val)
	}
}

// formatWhereClause creates a human-readable description of WHERE conditions.
func formatWhereClause(where map[string]any) string {
	if len(where) == 0 {
		return "(no conditions)"
	}

	keys := sortedKeys(where)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, where[k]))
	}
	return strings.Join(parts, " AND ")
}

// stateValuesEqual compares expected YAML values with SQLite column values.
func stateValuesEqual(expected, actual any) bool {
	if expected == nil || actual == nil {
		return expected == nil && actual == nil
	}

	switch exp := expected.(type) {
	case string:
		switch act := actual.(type) {
		case string:
			return exp == act
		case []byte:
			return exp == string(act)
		}
		return false
	case int:
		act, ok := actual.(int64)
		return ok && int64(exp) == act
	case int64:
		act, ok := actual.(int64)
		return ok && exp == act
	case bool:
		// SQLite stores booleans as integers
		if act, ok := actual.(int64); ok {
			return exp == (act != 0)
		}
		act, ok := actual.(bool)
		return ok && exp == act
	}
	return fmt.Sprint(expected) == fmt.Sprint(actual)
}

// matchValue reports whether actual contains expected: objects match when
// every expected key matches, arrays element by element with equal length,
// and scalars by value.
func matchValue(actual, expected ir.Value) bool {
	switch exp := expected.(type) {
	case ir.Object:
		act, ok := actual.(ir.Object)
		if !ok {
			return false
		}
		for key, want := range exp {
			got, exists := act[key]
			if !exists || !matchValue(got, want) {
				return false
			}
		}
		return true
	case ir.Array:
		act, ok := actual.(ir.Array)
		if !ok || len(act) != len(exp) {
			return false
		}
		for i := range exp {
			if !matchValue(act[i], exp[i]) {
				return false
			}
		}
		return true
	default:
		return ir.Equal(actual, expected)
	}
}

func nonNilMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// AssertionContext provides context for evaluating assertions.
type AssertionContext struct {
	Journal *store.Store
	Ctx     context.Context
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
// The actx parameter provides journal access for final_state assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, assertion)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, assertion)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion)
		case AssertFinalBlocks:
			err = assertFinalBlocks(result.Blocks, assertion)
		case AssertFinalSelection:
			err = assertFinalSelection(result.Selection, assertion)
		case AssertFinalState:
			if actx == nil || actx.Journal == nil {
				err = fmt.Errorf("assertion[%d]: final_state requires a journal (set journal: true)", i)
			} else {
				err = assertFinalState(actx.Ctx, actx.Journal, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
