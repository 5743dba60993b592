package gridcalc

import (
	"fmt"
	"io"
	"log/slog"
)

// FormulaMarker is the reserved character that makes a raw value a
// formula. the marker is stripped before compilation.
const FormulaMarker = '='

// stripFormulaMarker returns the formula text without its marker and
// whether the raw value is formula-marked
func stripFormulaMarker(raw string) (string, bool) {
	if len(raw) > 0 && raw[0] == FormulaMarker {
		return raw[1:], true
	}
	return "", false
}

// defaults applied by NewGrid when the config leaves fields zero
const (
	DefaultHeight           = 10
	DefaultWidth            = 10
	DefaultMaxIterations    = 20
	DefaultIterationEpsilon = 0.001
)

// Config configures a grid instance
type Config struct {
	// Name registers the grid in Context for cross-grid references.
	// required when Context is set.
	Name string

	// Height and Width are the initial dimensions. zero means the
	// default; values below the 2x2 minimum are rejected.
	Height int
	Width  int

	// Iterate permits circular formulas to stabilize over repeated
	// bounded evaluation instead of being reported as cycles
	Iterate bool

	// MaxIterations caps per-cell evaluations within one propagation
	// pass. zero means the default.
	MaxIterations int

	// IterationEpsilon is the numeric convergence threshold. zero means
	// the default.
	IterationEpsilon float64

	// Context links this grid with named siblings for cross-grid
	// references. optional.
	Context *Context

	// Compiler compiles formula text. nil selects the built-in
	// FormulaCompiler.
	Compiler Compiler

	// Logger receives engine diagnostics. nil discards them (the
	// diagnostic observer channel fires either way).
	Logger *slog.Logger

	// Rerender is invoked after every shape mutation. nil is a no-op
	// for headless use.
	Rerender func()
}

// Grid owns a store of raw and calculated values, the dependency graph
// over its cells, and the scheduler that keeps calculated values
// consistent as cells change
type Grid struct {
	name      string
	store     *GridStore
	graph     *DependencyGraph
	scheduler *Scheduler
	observers *ObserverRegistry
	compiler  Compiler
	ctx       *Context
	logger    *slog.Logger
}

// NewGrid constructs a grid from config, applying defaults and
// registering it in the context when one is attached
func NewGrid(cfg Config) (*Grid, error) {
	if cfg.Height == 0 {
		cfg.Height = DefaultHeight
	}
	if cfg.Width == 0 {
		cfg.Width = DefaultWidth
	}
	if cfg.Height < MinRows || cfg.Width < MinCols {
		return nil, NewAppError(InvalidArgument, fmt.Sprintf("grid must be at least %dx%d", MinRows, MinCols))
	}
	if cfg.MaxIterations == 0 {
		cfg.MaxIterations = DefaultMaxIterations
	}
	if cfg.MaxIterations < 1 {
		return nil, NewAppError(InvalidArgument, "maxIterations must be positive")
	}
	if cfg.IterationEpsilon == 0 {
		cfg.IterationEpsilon = DefaultIterationEpsilon
	}
	if cfg.IterationEpsilon < 0 {
		return nil, NewAppError(InvalidArgument, "iterationEpsilon must not be negative")
	}
	if cfg.Compiler == nil {
		cfg.Compiler = NewFormulaCompiler()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	g := &Grid{
		name:      cfg.Name,
		graph:     NewDependencyGraph(),
		observers: NewObserverRegistry(),
		compiler:  cfg.Compiler,
		ctx:       cfg.Context,
		logger:    cfg.Logger,
	}
	g.store = NewGridStore(cfg.Height, cfg.Width, cfg.Rerender)
	g.scheduler = NewScheduler(g, cfg.Iterate, cfg.MaxIterations, cfg.IterationEpsilon)

	if cfg.Context != nil {
		if err := cfg.Context.Register(cfg.Name, g); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// Name returns the grid's registered name ("" when standalone)
func (g *Grid) Name() string {
	return g.name
}

// Height returns the current row count
func (g *Grid) Height() int {
	return g.store.Height()
}

// Width returns the current column count
func (g *Grid) Width() int {
	return g.store.Width()
}

// Observers returns the grid's notification registry
func (g *Grid) Observers() *ObserverRegistry {
	return g.observers
}

// Graph returns the dependency graph for diagnostic purposes
func (g *Grid) Graph() *DependencyGraph {
	return g.graph
}

// GridByName resolves a sibling grid through the attached context
func (g *Grid) GridByName(name string) (*Grid, error) {
	if g.ctx == nil {
		return nil, NewAppError(FailedPrecondition, "no context attached")
	}
	remote := g.ctx.GridByName(name)
	if remote == nil {
		return nil, NewAppError(NotFound, fmt.Sprintf("grid %q not found", name))
	}
	return remote, nil
}

// SetValue writes a raw value at (row, col). a write equal to the
// existing raw value is a no-op unless force is set. otherwise the
// calculated cache is evicted, the cell's outgoing dependency edges are
// severed, and either formula evaluation starts (formula-marked values)
// or the change propagates to the cell's existing consumers. returns
// whether the cell changed.
func (g *Grid) SetValue(row, col int, value string, force bool) (bool, error) {
	if !g.store.InRange(row, col) {
		return false, NewAppError(OutOfRange, fmt.Sprintf("cell (%d, %d) out of range", row, col))
	}
	if g.store.RawValue(row, col) == value && !force {
		return false, nil
	}

	id := AddressOf(row, col)
	g.store.SetRaw(row, col, value)
	g.store.ClearCalc(row, col)
	g.severOutgoing(id)
	g.observers.emitRawChanged(id, value)

	if formulaText, isFormula := stripFormulaMarker(value); isFormula {
		g.scheduler.Evaluate(row, col, formulaText)
		return true, nil
	}

	// the cell stopped being (or never was) a formula, but other
	// formulas may still read it
	coerced := CoerceLiteral(value)
	g.store.SetCalc(row, col, coerced)
	if g.graph.HasConsumers(id) {
		g.scheduler.Propagate(id)
	}
	g.observers.emitCalcChanged(id, coerced)
	if g.ctx != nil {
		g.ctx.cellChanged(g, id)
	}
	return true, nil
}

// SetValueByID is SetValue addressed by cell ID
func (g *Grid) SetValueByID(id CellID, value string, force bool) (bool, error) {
	row, col, err := PositionOf(id)
	if err != nil {
		return false, err
	}
	return g.SetValue(row, col, value, force)
}

// ClearCell empties a cell's raw value, which evicts its cache, severs
// its outgoing edges, and propagates to any consumers
func (g *Grid) ClearCell(row, col int) error {
	_, err := g.SetValue(row, col, "", false)
	return err
}

// GetRawValue returns the raw value at (row, col)
func (g *Grid) GetRawValue(row, col int) (string, error) {
	if !g.store.InRange(row, col) {
		return "", NewAppError(OutOfRange, fmt.Sprintf("cell (%d, %d) out of range", row, col))
	}
	return g.store.RawValue(row, col), nil
}

// GetRawValueByID is GetRawValue addressed by cell ID
func (g *Grid) GetRawValueByID(id CellID) (string, error) {
	row, col, err := PositionOf(id)
	if err != nil {
		return "", err
	}
	return g.GetRawValue(row, col)
}

// GetCalculatedValue returns the cached calculated value at (row, col)
func (g *Grid) GetCalculatedValue(row, col int) (CellValue, error) {
	if !g.store.InRange(row, col) {
		return Empty(), NewAppError(OutOfRange, fmt.Sprintf("cell (%d, %d) out of range", row, col))
	}
	return g.store.CalcValue(row, col), nil
}

// GetCalculatedValueByID is GetCalculatedValue addressed by cell ID
func (g *Grid) GetCalculatedValueByID(id CellID) (CellValue, error) {
	row, col, err := PositionOf(id)
	if err != nil {
		return Empty(), err
	}
	return g.GetCalculatedValue(row, col)
}

// GetDisplayValue returns the formatted display text at (row, col)
func (g *Grid) GetDisplayValue(row, col int) (string, error) {
	v, err := g.GetCalculatedValue(row, col)
	if err != nil {
		return "", err
	}
	return Format(v), nil
}

// LoadGrid bulk-writes rows of raw values starting at (0, 0), growing
// the grid as needed to fit the data. every non-empty cell is written
// with force semantics.
func (g *Grid) LoadGrid(rows [][]string) error {
	needHeight := len(rows)
	needWidth := 0
	for _, row := range rows {
		if len(row) > needWidth {
			needWidth = len(row)
		}
	}
	for g.store.Height() < needHeight {
		g.AddRow()
	}
	for g.store.Width() < needWidth {
		g.AddColumn()
	}
	for r, row := range rows {
		for c, value := range row {
			if value == "" {
				continue
			}
			if _, err := g.SetValue(r, c, value, true); err != nil {
				return err
			}
		}
	}
	return nil
}

// AddRow appends an empty row at the bottom
func (g *Grid) AddRow() {
	g.store.AddRow()
}

// AddColumn appends an empty column at the right
func (g *Grid) AddColumn() {
	g.store.AddColumn()
}

// InsertRowBefore inserts an empty row before idx
func (g *Grid) InsertRowBefore(idx int) error {
	return g.store.InsertRowBefore(idx)
}

// InsertColumnBefore inserts an empty column before idx
func (g *Grid) InsertColumnBefore(idx int) error {
	return g.store.InsertColumnBefore(idx)
}

// RemoveRow removes the row at idx, subject to the minimum-size guard
func (g *Grid) RemoveRow(idx int) error {
	return g.store.RemoveRow(idx)
}

// RemoveColumn removes the column at idx, subject to the minimum-size
// guard
func (g *Grid) RemoveColumn(idx int) error {
	return g.store.RemoveColumn(idx)
}

// PopRow removes the bottom row
func (g *Grid) PopRow() error {
	return g.store.PopRow()
}

// PopColumn removes the rightmost column
func (g *Grid) PopColumn() error {
	return g.store.PopColumn()
}

// valueForEval is the value a formula sees when it reads a cell: the
// cached calculated value when present, the coerced literal for plain
// cells, and empty for formula cells that have not been evaluated yet
func (g *Grid) valueForEval(row, col int) CellValue {
	cached := g.store.CalcValue(row, col)
	if !cached.IsEmpty() {
		return cached
	}
	raw := g.store.RawValue(row, col)
	if _, isFormula := stripFormulaMarker(raw); isFormula {
		return Empty()
	}
	return CoerceLiteral(raw)
}

// severOutgoing drops the cell's outgoing dependency edges and any
// cross-grid subscriptions it owned
func (g *Grid) severOutgoing(id CellID) {
	g.graph.SeverOutgoing(id)
	if g.ctx != nil {
		g.ctx.UnsubscribeAll(g, id)
	}
}

// diagnostic reports a non-fatal engine condition to both the logger
// and the diagnostic observer channel
func (g *Grid) diagnostic(level DiagnosticLevel, message string) {
	if level == LevelWarn {
		g.logger.Warn(message, "grid", g.name)
	} else {
		g.logger.Info(message, "grid", g.name)
	}
	g.observers.emitDiagnostic(level, message)
}
