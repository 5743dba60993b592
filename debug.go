package gridcalc

import (
	"github.com/m1gwings/treedrawer/tree"
)

// ConsumerTree renders the transitive consumer tree of a cell as
// drawable text, for diagnosing propagation behavior. a cell already on
// the current path is marked as a cycle and not expanded further.
func ConsumerTree(g *Grid, root CellID) string {
	t := tree.NewTree(tree.NodeString(string(root)))
	appendConsumers(g, root, t, map[CellID]struct{}{root: {}})
	return t.String()
}

func appendConsumers(g *Grid, id CellID, node *tree.Tree, path map[CellID]struct{}) {
	for i, consumer := range g.graph.ConsumersOf(id) {
		if _, onPath := path[consumer]; onPath {
			node.AddChild(tree.NodeString(string(consumer) + " (cycle)"))
			continue
		}
		node.AddChild(tree.NodeString(string(consumer)))
		child, err := node.Child(i)
		if err != nil {
			continue
		}
		path[consumer] = struct{}{}
		appendConsumers(g, consumer, child, path)
		delete(path, consumer)
	}
}
