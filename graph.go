package gridcalc

// DependencyGraph tracks directed edges source -> consumer, meaning the
// consumer's formula reads the source's value. edges are stored
// redundantly in both directions for O(1) lookup either way; the two
// maps are kept mutual inverses by every mutation.
//
// sets are stored as slices in discovery order so that propagation is
// deterministic. the order carries no semantic meaning.
type DependencyGraph struct {
	consumersOf map[CellID][]CellID // source -> cells whose formulas read it
	sourcesOf   map[CellID][]CellID // consumer -> cells its formula reads
}

// NewDependencyGraph creates an empty dependency graph
func NewDependencyGraph() *DependencyGraph {
	return &DependencyGraph{
		consumersOf: make(map[CellID][]CellID),
		sourcesOf:   make(map[CellID][]CellID),
	}
}

// ConsumersOf returns the cells whose formulas read the given source,
// in discovery order
func (dg *DependencyGraph) ConsumersOf(source CellID) []CellID {
	consumers := dg.consumersOf[source]
	result := make([]CellID, len(consumers))
	copy(result, consumers)
	return result
}

// SourcesOf returns the cells the given consumer's formula reads, in
// discovery order
func (dg *DependencyGraph) SourcesOf(consumer CellID) []CellID {
	sources := dg.sourcesOf[consumer]
	result := make([]CellID, len(sources))
	copy(result, sources)
	return result
}

// HasConsumers reports whether any formula reads the given cell
func (dg *DependencyGraph) HasConsumers(source CellID) bool {
	return len(dg.consumersOf[source]) > 0
}

// BindEdges replaces the consumer's source set with newSources. sources
// no longer present lose the consumer from their consumer sets; new
// sources gain it if absent. duplicates in newSources are ignored past
// the first occurrence.
func (dg *DependencyGraph) BindEdges(consumer CellID, newSources []CellID) {
	wanted := make(map[CellID]struct{}, len(newSources))
	deduped := make([]CellID, 0, len(newSources))
	for _, s := range newSources {
		if _, seen := wanted[s]; seen {
			continue
		}
		wanted[s] = struct{}{}
		deduped = append(deduped, s)
	}

	// drop stale edges
	for _, old := range dg.sourcesOf[consumer] {
		if _, keep := wanted[old]; !keep {
			dg.removeConsumer(old, consumer)
		}
	}

	// add fresh edges
	for _, s := range deduped {
		if !containsID(dg.consumersOf[s], consumer) {
			dg.consumersOf[s] = append(dg.consumersOf[s], consumer)
		}
	}

	if len(deduped) == 0 {
		delete(dg.sourcesOf, consumer)
	} else {
		dg.sourcesOf[consumer] = deduped
	}
}

// SeverOutgoing removes the cell from every source's consumer set per
// its recorded sources, then clears its own source set. the caller owns
// dropping any cross-grid subscriptions the cell held.
func (dg *DependencyGraph) SeverOutgoing(cell CellID) {
	for _, source := range dg.sourcesOf[cell] {
		dg.removeConsumer(source, cell)
	}
	delete(dg.sourcesOf, cell)
}

// EdgeCount returns the total number of recorded edges
func (dg *DependencyGraph) EdgeCount() int {
	total := 0
	for _, sources := range dg.sourcesOf {
		total += len(sources)
	}
	return total
}

func (dg *DependencyGraph) removeConsumer(source, consumer CellID) {
	consumers := dg.consumersOf[source]
	for i, c := range consumers {
		if c == consumer {
			consumers = append(consumers[:i], consumers[i+1:]...)
			break
		}
	}
	if len(consumers) == 0 {
		delete(dg.consumersOf, source)
	} else {
		dg.consumersOf[source] = consumers
	}
}

func containsID(ids []CellID, id CellID) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
