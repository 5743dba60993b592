package gridcalc

import "testing"

func compiles(text string) bool {
	_, err := NewFormulaCompiler().Compile(text)
	return err == nil
}

func TestCompilerValidFormulas(t *testing.T) {
	valid := []string{
		"1+2",
		"A1",
		"A1*2",
		"SUM(A1, B1, 3)",
		"Sheet2!A1",
		"Sheet2!A1 + Sheet3!B1",
		`"Hello"`,
		`CONCATENATE("Hello ", "world")`,
		"-A1",
		"+3",
		"50%",
		"2^3^2",
		"(1+2)*3",
		"A1 <> B1",
		"A1 <= 5",
		"TRUE",
		"IF(A1 > 0, 1, 0)",
		"MAX()",
	}
	for _, formula := range valid {
		t.Run(formula, func(t *testing.T) {
			if !compiles(formula) {
				t.Errorf("failed to compile valid formula: %s", formula)
			}
		})
	}
}

func TestCompilerInvalidFormulas(t *testing.T) {
	invalid := []string{
		"",
		"   ",
		"1+",
		"SUM(",
		"SUM(1,",
		"(1+2",
		`"hello`,
		"1 2",
		"@",
		"Sheet2!",
		"Sheet2!xyz",
		"UNKNOWN",
		"A0",
	}
	for _, formula := range invalid {
		t.Run(formula, func(t *testing.T) {
			if compiles(formula) {
				t.Errorf("compiled invalid formula: %s", formula)
			}
		})
	}
}

func TestCompilerCollectsLocalRefs(t *testing.T) {
	expr, err := NewFormulaCompiler().Compile("A1 + B2*A1 + SUM(C3, A1)")
	if err != nil {
		t.Fatal(err)
	}
	refs := expr.CellRefs()
	want := []CellID{"A1", "B2", "C3"}
	if len(refs) != len(want) {
		t.Fatalf("CellRefs = %v, want %v", refs, want)
	}
	for i := range want {
		if refs[i] != want[i] {
			t.Fatalf("CellRefs = %v, want %v", refs, want)
		}
	}
	if len(expr.RemoteRefs()) != 0 {
		t.Errorf("RemoteRefs = %v, want none", expr.RemoteRefs())
	}
}

func TestCompilerCollectsRemoteRefs(t *testing.T) {
	expr, err := NewFormulaCompiler().Compile("rates!B2 * A1 + rates!B2")
	if err != nil {
		t.Fatal(err)
	}
	remote := expr.RemoteRefs()
	if len(remote) != 1 {
		t.Fatalf("RemoteRefs = %v, want one deduplicated ref", remote)
	}
	if remote[0].Grid != "rates" || remote[0].Cell != "B2" {
		t.Errorf("RemoteRefs[0] = %+v", remote[0])
	}
	// a remote ref must not leak into the local edge set
	refs := expr.CellRefs()
	if len(refs) != 1 || refs[0] != "A1" {
		t.Errorf("CellRefs = %v, want [A1]", refs)
	}
}

func TestCompilerEvaluatesWithoutGridState(t *testing.T) {
	g, err := NewGrid(Config{Height: 4, Width: 4})
	if err != nil {
		t.Fatal(err)
	}
	cases := []struct {
		formula string
		want    float64
	}{
		{"1+2*3", 7},
		{"10-4-3", 3},
		{"2^10", 1024},
		{"100*10%", 10},
		{"-(3+4)", -7},
		{"ABS(0-9)", 9},
		{"IF(1 > 2, 5, 6)", 6},
	}
	for _, c := range cases {
		expr, err := NewFormulaCompiler().Compile(c.formula)
		if err != nil {
			t.Fatalf("Compile(%s) failed: %v", c.formula, err)
		}
		v, err := expr.Eval(g)
		if err != nil {
			t.Fatalf("Eval(%s) failed: %v", c.formula, err)
		}
		if v.Kind != KindNumber || v.Number != c.want {
			t.Errorf("Eval(%s) = %+v, want %v", c.formula, v, c.want)
		}
	}
}
