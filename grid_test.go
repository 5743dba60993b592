package gridcalc

import (
	"math"
	"testing"
)

// GridTestCase drives a context of grids through a scenario and asserts
// on the resulting cell state. the first failing step records its error
// and short-circuits the rest of the chain.
type GridTestCase struct {
	t    *testing.T
	name string
	ctx  *Context
	grid *Grid
	err  error
}

func NewGridTestCase(t *testing.T, name string) *GridTestCase {
	tc := &GridTestCase{
		t:    t,
		name: name,
		ctx:  NewContext(),
	}
	return tc.AddGrid("main", Config{Height: 6, Width: 6})
}

func (tc *GridTestCase) AddGrid(name string, cfg Config) *GridTestCase {
	if tc.err != nil {
		return tc
	}
	cfg.Name = name
	cfg.Context = tc.ctx
	g, err := NewGrid(cfg)
	if err != nil {
		tc.err = err
		tc.t.Errorf("%s: AddGrid(%s) failed: %v", tc.name, name, err)
		return tc
	}
	tc.grid = g
	return tc
}

// OnGrid switches the target of subsequent steps to a named grid
func (tc *GridTestCase) OnGrid(name string) *GridTestCase {
	if tc.err != nil {
		return tc
	}
	g := tc.ctx.GridByName(name)
	if g == nil {
		tc.err = NewAppError(NotFound, "grid not found")
		tc.t.Errorf("%s: OnGrid(%s): grid not registered", tc.name, name)
		return tc
	}
	tc.grid = g
	return tc
}

func (tc *GridTestCase) Set(id CellID, value string) *GridTestCase {
	if tc.err != nil {
		return tc
	}
	if _, err := tc.grid.SetValueByID(id, value, false); err != nil {
		tc.err = err
		tc.t.Errorf("%s: Set(%s, %q) failed: %v", tc.name, id, value, err)
	}
	return tc
}

func (tc *GridTestCase) Clear(id CellID) *GridTestCase {
	return tc.Set(id, "")
}

func (tc *GridTestCase) AssertDisplayEq(id CellID, expected string) *GridTestCase {
	if tc.err != nil {
		return tc
	}
	row, col, err := PositionOf(id)
	if err != nil {
		tc.err = err
		tc.t.Errorf("%s: bad cell id %s: %v", tc.name, id, err)
		return tc
	}
	actual, err := tc.grid.GetDisplayValue(row, col)
	if err != nil {
		tc.err = err
		tc.t.Errorf("%s: GetDisplayValue(%s) failed: %v", tc.name, id, err)
		return tc
	}
	if actual != expected {
		tc.t.Errorf("%s: %s!%s = %q, want %q", tc.name, tc.grid.Name(), id, actual, expected)
	}
	return tc
}

func (tc *GridTestCase) AssertNumberEq(id CellID, expected float64) *GridTestCase {
	if tc.err != nil {
		return tc
	}
	v, err := tc.grid.GetCalculatedValueByID(id)
	if err != nil {
		tc.err = err
		tc.t.Errorf("%s: GetCalculatedValue(%s) failed: %v", tc.name, id, err)
		return tc
	}
	if v.Kind != KindNumber {
		tc.t.Errorf("%s: %s!%s has kind %d, want number %v", tc.name, tc.grid.Name(), id, v.Kind, expected)
		return tc
	}
	if math.Abs(v.Number-expected) > 1e-9 {
		tc.t.Errorf("%s: %s!%s = %v, want %v", tc.name, tc.grid.Name(), id, v.Number, expected)
	}
	return tc
}

func (tc *GridTestCase) AssertErrorKind(id CellID, expected ErrorKind) *GridTestCase {
	if tc.err != nil {
		return tc
	}
	v, err := tc.grid.GetCalculatedValueByID(id)
	if err != nil {
		tc.err = err
		tc.t.Errorf("%s: GetCalculatedValue(%s) failed: %v", tc.name, id, err)
		return tc
	}
	if v.Kind != KindError || v.Err == nil {
		tc.t.Errorf("%s: %s!%s = %+v, want an error value", tc.name, tc.grid.Name(), id, v)
		return tc
	}
	if v.Err.Kind != expected {
		tc.t.Errorf("%s: %s!%s has error kind %d, want %d", tc.name, tc.grid.Name(), id, v.Err.Kind, expected)
	}
	return tc
}

func (tc *GridTestCase) AssertEmpty(id CellID) *GridTestCase {
	if tc.err != nil {
		return tc
	}
	v, err := tc.grid.GetCalculatedValueByID(id)
	if err != nil {
		tc.err = err
		tc.t.Errorf("%s: GetCalculatedValue(%s) failed: %v", tc.name, id, err)
		return tc
	}
	if !v.IsEmpty() {
		tc.t.Errorf("%s: %s!%s = %+v, want empty", tc.name, tc.grid.Name(), id, v)
	}
	return tc
}

func (tc *GridTestCase) AssertEdge(source, consumer CellID) *GridTestCase {
	if tc.err != nil {
		return tc
	}
	if !containsID(tc.grid.Graph().ConsumersOf(source), consumer) {
		tc.t.Errorf("%s: expected edge %s -> %s", tc.name, source, consumer)
	}
	if !containsID(tc.grid.Graph().SourcesOf(consumer), source) {
		tc.t.Errorf("%s: edge %s -> %s missing from the inverse map", tc.name, source, consumer)
	}
	return tc
}

func (tc *GridTestCase) AssertNoEdges(consumer CellID) *GridTestCase {
	if tc.err != nil {
		return tc
	}
	if sources := tc.grid.Graph().SourcesOf(consumer); len(sources) > 0 {
		tc.t.Errorf("%s: %s still has sources %v", tc.name, consumer, sources)
	}
	return tc
}

func TestLiteralValues(t *testing.T) {
	NewGridTestCase(t, "literals").
		Set("A1", "100").
		Set("A2", "hello").
		Set("A3", "TRUE").
		Set("A4", "3.25").
		AssertNumberEq("A1", 100).
		AssertDisplayEq("A2", "hello").
		AssertDisplayEq("A3", "TRUE").
		AssertDisplayEq("A4", "3.25")
}

func TestConstantFormula(t *testing.T) {
	NewGridTestCase(t, "constant formula").
		Set("A1", "=5").
		AssertNumberEq("A1", 5).
		AssertDisplayEq("A1", "5")
}

func TestFormulaReadsLiteral(t *testing.T) {
	NewGridTestCase(t, "formula reads literal").
		Set("A1", "100").
		Set("B1", "=A1*2").
		AssertNumberEq("B1", 200).
		AssertEdge("A1", "B1")
}

func TestChangePropagatesThroughChain(t *testing.T) {
	NewGridTestCase(t, "chain propagation").
		Set("A1", "1").
		Set("B1", "=A1*2").
		Set("C1", "=B1+1").
		AssertNumberEq("C1", 3).
		Set("A1", "10").
		AssertNumberEq("B1", 20).
		AssertNumberEq("C1", 21)
}

func TestForwardReferenceWakesUpLater(t *testing.T) {
	// B1 refers to a still-empty A1. once A1 gets a value the edge must
	// already be in place to re-evaluate B1.
	NewGridTestCase(t, "forward reference").
		Set("B1", "=A1").
		AssertEmpty("B1").
		AssertEdge("A1", "B1").
		Set("A1", "7").
		AssertNumberEq("B1", 7)
}

func TestReplacingFormulaSeversOldEdges(t *testing.T) {
	NewGridTestCase(t, "rebind on formula change").
		Set("A1", "1").
		Set("A2", "2").
		Set("B1", "=A1").
		AssertEdge("A1", "B1").
		Set("B1", "=A2").
		AssertEdge("A2", "B1").
		Set("A1", "50").
		AssertNumberEq("B1", 2)
}

func TestClearCellSeversEdgesAndPropagates(t *testing.T) {
	tc := NewGridTestCase(t, "clear cell").
		Set("A1", "4").
		Set("B1", "=A1*2").
		AssertNumberEq("B1", 8).
		Clear("A1").
		AssertNumberEq("B1", 0).
		Clear("B1").
		AssertNoEdges("B1").
		AssertEmpty("B1")
	if tc.grid.Graph().EdgeCount() != 0 {
		t.Errorf("expected an empty graph after clearing, have %d edges", tc.grid.Graph().EdgeCount())
	}
}

func TestDivisionByZeroDisplay(t *testing.T) {
	NewGridTestCase(t, "division by zero").
		Set("A1", "=1/0").
		Set("A2", "=-1/0").
		Set("A3", "=0/0").
		AssertDisplayEq("A1", "#DIV/0!").
		AssertDisplayEq("A2", "#DIV/0!").
		AssertDisplayEq("A3", "#VALUE!")
}

func TestSyntaxErrorBecomesErrorValue(t *testing.T) {
	NewGridTestCase(t, "syntax error").
		Set("A1", "=1+").
		AssertErrorKind("A1", ErrKindSyntax)
}

func TestEvalErrorBecomesErrorValue(t *testing.T) {
	NewGridTestCase(t, "eval error").
		Set("A1", "words").
		Set("B1", "=A1*2").
		AssertErrorKind("B1", ErrKindEval).
		AssertDisplayEq("B1", "error in calculation")
}

func TestErrorPropagatesToReaders(t *testing.T) {
	NewGridTestCase(t, "error propagates").
		Set("A1", "5").
		Set("B1", "=A1*2").
		Set("C1", "=B1+1").
		AssertNumberEq("C1", 11).
		Set("A1", "oops").
		AssertErrorKind("B1", ErrKindEval).
		AssertErrorKind("C1", ErrKindEval)
}

func TestOutOfRangeReferenceIsEvalError(t *testing.T) {
	NewGridTestCase(t, "reference beyond grid").
		Set("A1", "=Z99").
		AssertErrorKind("A1", ErrKindEval)
}

func TestBuiltinFunctions(t *testing.T) {
	NewGridTestCase(t, "builtins").
		Set("A1", "3").
		Set("A2", "-7").
		Set("B1", "=SUM(A1, A2, 10)").
		Set("B2", "=ABS(A2)").
		Set("B3", "=MIN(A1, A2)").
		Set("B4", "=MAX(A1, A2, 0)").
		Set("B5", `=IF(A1 > 2, "big", "small")`).
		Set("B6", `=CONCATENATE("n=", A1)`).
		AssertNumberEq("B1", 6).
		AssertNumberEq("B2", 7).
		AssertNumberEq("B3", -7).
		AssertNumberEq("B4", 3).
		AssertDisplayEq("B5", "big").
		AssertDisplayEq("B6", "n=3")
}

func TestOperatorsAndPrecedence(t *testing.T) {
	NewGridTestCase(t, "operators").
		Set("A1", "=1+2*3").
		Set("A2", "=(1+2)*3").
		Set("A3", "=2^3^2").
		Set("A4", "=50%").
		Set("A5", "=-4+10").
		Set("A6", `="a" & "b" & 1`).
		Set("B1", "=1 < 2").
		Set("B2", "=2 <> 2").
		AssertNumberEq("A1", 7).
		AssertNumberEq("A2", 9).
		AssertNumberEq("A3", 512).
		AssertNumberEq("A4", 0.5).
		AssertNumberEq("A5", 6).
		AssertDisplayEq("A6", "ab1").
		AssertDisplayEq("B1", "TRUE").
		AssertDisplayEq("B2", "FALSE")
}

func TestUnchangedWriteIsNoOp(t *testing.T) {
	g, err := NewGrid(Config{Height: 4, Width: 4})
	if err != nil {
		t.Fatal(err)
	}
	rawEvents := 0
	g.Observers().OnRawValueChanged(func(CellID, string) { rawEvents++ })

	if changed, _ := g.SetValue(0, 0, "5", false); !changed {
		t.Fatal("first write should change the cell")
	}
	if changed, _ := g.SetValue(0, 0, "5", false); changed {
		t.Error("identical write should be a no-op")
	}
	if rawEvents != 1 {
		t.Errorf("raw listener fired %d times, want 1", rawEvents)
	}

	if changed, _ := g.SetValue(0, 0, "5", true); !changed {
		t.Error("forced write should count as a change")
	}
	if rawEvents != 2 {
		t.Errorf("raw listener fired %d times after force, want 2", rawEvents)
	}
}

func TestObserverUnsubscribe(t *testing.T) {
	g, err := NewGrid(Config{Height: 4, Width: 4})
	if err != nil {
		t.Fatal(err)
	}
	calcEvents := 0
	token := g.Observers().OnCalculatedValueChanged(func(CellID, CellValue) { calcEvents++ })

	g.SetValue(0, 0, "=1+1", false)
	if calcEvents != 1 {
		t.Fatalf("calc listener fired %d times, want 1", calcEvents)
	}
	if !g.Observers().Unsubscribe(token) {
		t.Fatal("Unsubscribe should find the listener")
	}
	if g.Observers().Unsubscribe(token) {
		t.Error("second Unsubscribe should report not found")
	}
	g.SetValue(0, 0, "=2+2", false)
	if calcEvents != 1 {
		t.Errorf("calc listener fired after unsubscribe, count %d", calcEvents)
	}
}

func TestPanickingObserverIsContained(t *testing.T) {
	g, err := NewGrid(Config{Height: 4, Width: 4})
	if err != nil {
		t.Fatal(err)
	}
	g.Observers().OnRawValueChanged(func(CellID, string) { panic("listener bug") })
	seen := ""
	g.Observers().OnRawValueChanged(func(id CellID, raw string) { seen = raw })

	if _, err := g.SetValue(0, 0, "ok", false); err != nil {
		t.Fatalf("SetValue failed: %v", err)
	}
	if seen != "ok" {
		t.Errorf("later listener did not run, saw %q", seen)
	}
	if raw, _ := g.GetRawValue(0, 0); raw != "ok" {
		t.Errorf("write did not survive the panicking listener: %q", raw)
	}
}

func TestLoadGridGrowsToFit(t *testing.T) {
	g, err := NewGrid(Config{Height: 2, Width: 2})
	if err != nil {
		t.Fatal(err)
	}
	rows := [][]string{
		{"1", "2", "3"},
		{"4", "5", "6"},
		{"=A1+C2", "", ""},
	}
	if err := g.LoadGrid(rows); err != nil {
		t.Fatal(err)
	}
	if g.Height() != 3 || g.Width() != 3 {
		t.Fatalf("grid is %dx%d, want 3x3", g.Height(), g.Width())
	}
	v, err := g.GetCalculatedValueByID("A3")
	if err != nil {
		t.Fatal(err)
	}
	if v.Kind != KindNumber || v.Number != 7 {
		t.Errorf("A3 = %+v, want 7", v)
	}
}

func TestGridConfigValidation(t *testing.T) {
	if _, err := NewGrid(Config{Height: 1, Width: 5}); err == nil {
		t.Error("expected error for a 1-row grid")
	}
	if _, err := NewGrid(Config{MaxIterations: -1}); err == nil {
		t.Error("expected error for negative maxIterations")
	}
	if _, err := NewGrid(Config{IterationEpsilon: -0.5}); err == nil {
		t.Error("expected error for negative iterationEpsilon")
	}

	g, err := NewGrid(Config{})
	if err != nil {
		t.Fatal(err)
	}
	if g.Height() != DefaultHeight || g.Width() != DefaultWidth {
		t.Errorf("defaults not applied: %dx%d", g.Height(), g.Width())
	}
}

func TestShapeOperationsThroughGrid(t *testing.T) {
	g, err := NewGrid(Config{Height: 3, Width: 3})
	if err != nil {
		t.Fatal(err)
	}
	g.SetValue(0, 0, "corner", false)

	g.AddRow()
	g.AddColumn()
	if g.Height() != 4 || g.Width() != 4 {
		t.Fatalf("grid is %dx%d after growth, want 4x4", g.Height(), g.Width())
	}

	if err := g.InsertRowBefore(0); err != nil {
		t.Fatal(err)
	}
	if raw, _ := g.GetRawValue(1, 0); raw != "corner" {
		t.Errorf("content did not shift down on insert, A2 = %q", raw)
	}
	if err := g.RemoveRow(0); err != nil {
		t.Fatal(err)
	}
	if raw, _ := g.GetRawValue(0, 0); raw != "corner" {
		t.Errorf("content did not shift back on remove, A1 = %q", raw)
	}

	for g.Height() > MinRows {
		if err := g.PopRow(); err != nil {
			t.Fatal(err)
		}
	}
	if err := g.PopRow(); err == nil {
		t.Error("expected the minimum-size guard to reject the pop")
	}
}
