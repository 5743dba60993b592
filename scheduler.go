package gridcalc

import "fmt"

// dependencyEdge identifies a directed source -> consumer trigger within
// one propagation pass
type dependencyEdge struct {
	source   CellID
	consumer CellID
}

// calcPass is the transient state of one propagation pass. it exists
// only while a propagation is active and is fully discarded at pass end.
// its presence on the scheduler doubles as the pass-active flag.
type calcPass struct {
	visits     map[CellID]int              // per-cell evaluation counter
	provenance map[dependencyEdge]struct{} // strict mode: edges seen this pass
	queue      []CellID                    // pending consumers, FIFO
	queued     map[CellID]struct{}         // members of queue
}

func newCalcPass() *calcPass {
	return &calcPass{
		visits:     make(map[CellID]int),
		provenance: make(map[dependencyEdge]struct{}),
		queued:     make(map[CellID]struct{}),
	}
}

func (p *calcPass) enqueue(id CellID) {
	if _, already := p.queued[id]; already {
		return
	}
	p.queued[id] = struct{}{}
	p.queue = append(p.queue, id)
}

func (p *calcPass) dequeue() (CellID, bool) {
	if len(p.queue) == 0 {
		return "", false
	}
	id := p.queue[0]
	p.queue = p.queue[1:]
	delete(p.queued, id)
	return id, true
}

// Scheduler runs formula evaluation and breadth-first recalculation
// propagation for one grid. it is single-threaded: a triggering mutation
// runs its entire pass to completion before returning, and reentrancy is
// nested synchronous calls resolved by checking for an active pass, not
// by locking.
type Scheduler struct {
	grid          *Grid
	iterate       bool    // allow circular formulas to stabilize iteratively
	maxIterations int     // per-cell visitation cap within one pass
	epsilon       float64 // numeric convergence threshold
	pass          *calcPass
	remoteDepth   int // nesting depth of cross-grid trigger callbacks
}

// NewScheduler creates a scheduler for the grid
func NewScheduler(grid *Grid, iterate bool, maxIterations int, epsilon float64) *Scheduler {
	return &Scheduler{
		grid:          grid,
		iterate:       iterate,
		maxIterations: maxIterations,
		epsilon:       epsilon,
	}
}

// Evaluate compiles and evaluates formula text for the cell at
// (row, col), commits the result if it changed, rebinds the cell's
// dependency edges, and propagates to consumers. it returns the
// formatted display text of the cell's calculated value. formula faults
// degrade to a ComputeError value; Evaluate never returns an error.
func (sch *Scheduler) Evaluate(row, col int, formulaText string) string {
	g := sch.grid
	id := AddressOf(row, col)

	// guard: bound repeated evaluation of one cell within a pass
	if sch.pass != nil {
		sch.pass.visits[id]++
		if sch.pass.visits[id] > sch.maxIterations {
			g.diagnostic(LevelWarn, fmt.Sprintf("iteration limit reached for a circular reference at %s", id))
			return Format(g.store.CalcValue(row, col))
		}
	}

	expr, compileErr := g.compiler.Compile(formulaText)
	var newValue CellValue
	if compileErr != nil {
		// a compile fault is treated like an evaluation fault
		newValue = ErrValue(NewComputeError(ErrKindSyntax, compileErr.Error()))
	} else {
		newValue = sch.safeEval(expr)
	}

	// convergence check: an unchanged result commits nothing and
	// propagates nothing. this is what lets stable circular formulas
	// stop re-propagating. the edge set is still refreshed, so a formula
	// whose first result happens to be empty records the edges that will
	// wake it up later.
	oldValue := g.store.CalcValue(row, col)
	if oldValue.EqualWithin(newValue, sch.epsilon) {
		if expr != nil {
			sch.rebind(id, row, col, expr)
		}
		return Format(oldValue)
	}

	g.store.SetCalc(row, col, newValue)

	if expr != nil {
		sch.rebind(id, row, col, expr)
	}

	sch.Propagate(id)

	g.observers.emitCalcChanged(id, newValue)
	if g.ctx != nil {
		g.ctx.cellChanged(g, id)
	}
	return Format(newValue)
}

// safeEval evaluates the expression, converting any fault (returned or
// panicked) into a compute-error sentinel. evaluation never propagates
// an exception out of the scheduler.
func (sch *Scheduler) safeEval(expr Expression) (result CellValue) {
	defer func() {
		if recovered := recover(); recovered != nil {
			result = ErrValue(NewComputeError(ErrKindEval, "error in calculation"))
		}
	}()
	value, err := expr.Eval(sch.grid)
	if err != nil {
		return ErrValue(NewComputeError(ErrKindEval, "error in calculation"))
	}
	return value
}

// rebind replaces the cell's same-grid edges with the expression's
// current reference set and rebuilds its cross-grid subscriptions from
// scratch, so no stale subscription outlives the formula that created it
func (sch *Scheduler) rebind(id CellID, row, col int, expr Expression) {
	g := sch.grid
	g.graph.BindEdges(id, expr.CellRefs())

	if g.ctx == nil {
		return
	}
	g.ctx.UnsubscribeAll(g, id)
	for _, ref := range expr.RemoteRefs() {
		if g.ctx.GridByName(ref.Grid) == nil {
			continue
		}
		g.ctx.Subscribe(g, id, ref.Grid, ref.Cell, sch.remoteTrigger(row, col))
	}
}

// remoteTrigger builds the callback run when a subscribed remote cell
// changes: re-evaluate this cell's current formula. the raw value is
// re-read at trigger time in case the formula has since been replaced.
// trigger nesting is bounded by maxIterations so a divergent cycle that
// spans grids cannot recurse without limit.
func (sch *Scheduler) remoteTrigger(row, col int) func() {
	return func() {
		raw := sch.grid.store.RawValue(row, col)
		formulaText, ok := stripFormulaMarker(raw)
		if !ok {
			return
		}
		if sch.remoteDepth >= sch.maxIterations {
			sch.grid.diagnostic(LevelWarn, fmt.Sprintf("iteration limit reached for a cross-grid reference at %s", AddressOf(row, col)))
			return
		}
		sch.remoteDepth++
		defer func() { sch.remoteDepth-- }()
		sch.Evaluate(row, col, formulaText)
	}
}

// Propagate schedules recalculation of every consumer of the given cell.
//
// when no pass is active this call owns the pass: it seeds the queue
// with the cell's direct consumers and drains it in FIFO order, which
// recalculates consumers in breadth-first discovery order. nested calls
// from evaluations inside the drain only enqueue; the owning call keeps
// draining until the queue is empty, then discards all pass state.
func (sch *Scheduler) Propagate(cell CellID) {
	g := sch.grid

	if sch.pass != nil {
		// nested trigger inside an in-flight pass
		for _, consumer := range g.graph.ConsumersOf(cell) {
			if !sch.iterate {
				edge := dependencyEdge{source: cell, consumer: consumer}
				if _, seen := sch.pass.provenance[edge]; seen {
					// the same edge fired twice in one pass: a true cycle
					g.diagnostic(LevelWarn, fmt.Sprintf("circular reference detected: %s -> %s", cell, consumer))
					continue
				}
				sch.pass.provenance[edge] = struct{}{}
			}
			sch.pass.enqueue(consumer)
		}
		return
	}

	sch.pass = newCalcPass()
	defer func() { sch.pass = nil }()

	sch.pass.visits[cell] = 1
	for _, consumer := range g.graph.ConsumersOf(cell) {
		sch.pass.enqueue(consumer)
	}

	for {
		consumer, ok := sch.pass.dequeue()
		if !ok {
			return
		}
		row, col, err := PositionOf(consumer)
		if err != nil || !g.store.InRange(row, col) {
			continue
		}
		if formulaText, isFormula := stripFormulaMarker(g.store.RawValue(row, col)); isFormula {
			sch.Evaluate(row, col, formulaText)
		}
	}
}
