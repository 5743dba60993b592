package gridcalc

// RemoteRef identifies a cell in a sibling grid by grid name and cell ID
type RemoteRef struct {
	Grid string
	Cell CellID
}

// Expression is a compiled formula. implementations must be pure: Eval
// reads cell values through the grid but never mutates it.
type Expression interface {
	// Eval computes the expression against the grid. faults are
	// reported through the error return; they never panic.
	Eval(g *Grid) (CellValue, error)

	// CellRefs enumerates the same-grid cell references, deduplicated,
	// in discovery order
	CellRefs() []CellID

	// RemoteRefs enumerates the cross-grid references, deduplicated,
	// in discovery order
	RemoteRefs() []RemoteRef
}

// Compiler turns formula text (marker already stripped) into an
// evaluable expression. a failure to compile is a syntax fault.
type Compiler interface {
	Compile(text string) (Expression, error)
}
