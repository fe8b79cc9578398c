package coordinates

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/network"
	"gonum.org/v1/gonum/graph/simple"
)

// PageRankResult contains PageRank scores and their range
type PageRankResult struct {
	Scores   map[int64]float64 `json:"scores"` // node ID -> PageRank score
	MinScore float64           `json:"min_score"`
	MaxScore float64           `json:"max_score"`
}

// PageRankCalculator scores label nodes for sizing in the network view
type PageRankCalculator struct {
	dampingFactor float64
	tolerance     float64
}

// NewPageRankCalculator creates a new PageRank calculator
func NewPageRankCalculator() *PageRankCalculator {
	return &PageRankCalculator{
		dampingFactor: 0.85,
		tolerance:     1e-10,
	}
}

// WithDampingFactor sets the damping factor (default: 0.85)
func (pr *PageRankCalculator) WithDampingFactor(factor float64) *PageRankCalculator {
	pr.dampingFactor = factor
	return pr
}

// Calculate computes PageRank over an undirected graph by walking each edge
// in both directions. Isolated nodes keep a score.
func (pr *PageRankCalculator) Calculate(g graph.Graph) (*PageRankResult, error) {
	if g.Nodes().Len() == 0 {
		return nil, fmt.Errorf("graph has no nodes")
	}

	scores := network.PageRank(toDirected(g), pr.dampingFactor, pr.tolerance)
	if len(scores) == 0 {
		return nil, fmt.Errorf("PageRank computation returned no scores")
	}

	result := &PageRankResult{Scores: scores, MinScore: math.Inf(1), MaxScore: math.Inf(-1)}
	for _, s := range scores {
		result.MinScore = math.Min(result.MinScore, s)
		result.MaxScore = math.Max(result.MaxScore, s)
	}
	return result, nil
}

// Normalized maps a node score into [0,1]; equal scores map to 0.5
func (r *PageRankResult) Normalized(id int64) float64 {
	s, ok := r.Scores[id]
	if !ok {
		return 0
	}
	if r.MaxScore == r.MinScore {
		return 0.5
	}
	return (s - r.MinScore) / (r.MaxScore - r.MinScore)
}

func toDirected(g graph.Graph) *simple.DirectedGraph {
	directed := simple.NewDirectedGraph()

	nodes := g.Nodes()
	for nodes.Next() {
		directed.AddNode(nodes.Node())
	}

	nodes = g.Nodes()
	for nodes.Next() {
		u := nodes.Node()
		neighbors := g.From(u.ID())
		for neighbors.Next() {
			v := neighbors.Node()
			if u.ID() == v.ID() {
				continue
			}
			directed.SetEdge(simple.Edge{F: u, T: v})
		}
	}
	return directed
}
