package coordinates

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/graph"
)

// CircleLayout places every node of g on the unit circle in ascending ID
// order. Nodes without edges get a position like any other node.
func CircleLayout(g graph.Graph) map[int64]Position {
	var ids []int64
	nodes := g.Nodes()
	for nodes.Next() {
		ids = append(ids, nodes.Node().ID())
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	positions := make(map[int64]Position, len(ids))
	if len(ids) == 1 {
		positions[ids[0]] = Position{}
		return positions
	}
	for i, id := range ids {
		theta := 2 * math.Pi * float64(i) / float64(len(ids))
		positions[id] = Position{X: math.Cos(theta), Y: math.Sin(theta)}
	}
	return positions
}
