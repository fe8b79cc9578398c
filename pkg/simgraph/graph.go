// Package simgraph builds the label similarity graph handed to network
// renderers. It performs no layout and no drawing.
package simgraph

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/mat"

	"github.com/gilchrisn/network-type-similarity/pkg/models"
)

// Options controls edge selection and weighting
type Options struct {
	Threshold   float64 `json:"threshold"`    // edges need similarity strictly above this
	WeightScale float64 `json:"weight_scale"` // multiplier applied to every kept edge
}

// DefaultOptions keeps every positive similarity and scales weights by 50
func DefaultOptions() Options {
	return Options{
		Threshold:   0.0,
		WeightScale: 50.0,
	}
}

// Node is a label in the similarity graph
type Node struct {
	ID          int64  `json:"id"` // index into the label order
	Label       string `json:"label"`
	Domain      string `json:"domain"`
	DomainIndex int    `json:"domain_index"` // color index into Graph.Domains
	Degree      int    `json:"degree"`
}

// Edge is an undirected weighted edge with From < To
type Edge struct {
	From       int64   `json:"from"`
	To         int64   `json:"to"`
	Similarity float64 `json:"similarity"` // adjacency value before scaling
	Weight     float64 `json:"weight"`     // Similarity * WeightScale
}

// Graph is the thresholded similarity graph
type Graph struct {
	g       *simple.WeightedUndirectedGraph
	nodes   []Node
	edges   []Edge
	domains []string
	opts    Options
}

// Build creates a graph from a symmetric adjacency matrix. Node i carries
// labels[i]; every label must have a domain.
func Build(adj mat.Symmetric, labels []string, domains models.DomainMap, opts Options) (*Graph, error) {
	n, _ := adj.Dims()
	if n != len(labels) {
		return nil, fmt.Errorf("adjacency is %dx%d but there are %d labels", n, n, len(labels))
	}
	if math.IsNaN(opts.Threshold) || math.IsInf(opts.Threshold, 0) {
		return nil, fmt.Errorf("threshold must be finite, got %v", opts.Threshold)
	}
	if !(opts.WeightScale > 0) || math.IsInf(opts.WeightScale, 0) {
		return nil, fmt.Errorf("weight scale must be positive and finite, got %v", opts.WeightScale)
	}
	if err := domains.Validate(labels); err != nil {
		return nil, err
	}

	domainList := domains.Domains()
	domainIdx := make(map[string]int, len(domainList))
	for i, d := range domainList {
		domainIdx[d] = i
	}

	g := simple.NewWeightedUndirectedGraph(0, 0)
	nodes := make([]Node, n)
	for i, l := range labels {
		g.AddNode(simple.Node(int64(i)))
		d, _ := domains.Domain(l)
		nodes[i] = Node{ID: int64(i), Label: l, Domain: d, DomainIndex: domainIdx[d]}
	}

	var edges []Edge
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			s := adj.At(i, j)
			if !(s > opts.Threshold) {
				continue
			}
			e := Edge{From: int64(i), To: int64(j), Similarity: s, Weight: s * opts.WeightScale}
			g.SetWeightedEdge(simple.WeightedEdge{F: simple.Node(e.From), T: simple.Node(e.To), W: e.Weight})
			nodes[i].Degree++
			nodes[j].Degree++
			edges = append(edges, e)
		}
	}

	return &Graph{g: g, nodes: nodes, edges: edges, domains: domainList, opts: opts}, nil
}

// Weighted exposes the underlying gonum graph
func (gr *Graph) Weighted() graph.WeightedUndirected {
	return gr.g
}

// Nodes returns every node in label order, including isolated ones
func (gr *Graph) Nodes() []Node {
	return append([]Node(nil), gr.nodes...)
}

// Edges returns the kept edges ordered by (From, To)
func (gr *Graph) Edges() []Edge {
	return append([]Edge(nil), gr.edges...)
}

// Domains returns the sorted domain list that DomainIndex refers to
func (gr *Graph) Domains() []string {
	return append([]string(nil), gr.domains...)
}

// Options returns the options the graph was built with
func (gr *Graph) Options() Options {
	return gr.opts
}

// Degree returns the number of kept edges at a node
func (gr *Graph) Degree(id int64) int {
	if id < 0 || int(id) >= len(gr.nodes) {
		return 0
	}
	return gr.nodes[id].Degree
}

// Isolated returns the nodes left without edges after thresholding
func (gr *Graph) Isolated() []Node {
	var out []Node
	for _, n := range gr.nodes {
		if n.Degree == 0 {
			out = append(out, n)
		}
	}
	return out
}

// WeightRange returns the smallest and largest edge weight. ok is false
// when the graph has no edges.
func (gr *Graph) WeightRange() (min, max float64, ok bool) {
	if len(gr.edges) == 0 {
		return 0, 0, false
	}
	min, max = gr.edges[0].Weight, gr.edges[0].Weight
	for _, e := range gr.edges[1:] {
		min = math.Min(min, e.Weight)
		max = math.Max(max, e.Weight)
	}
	return min, max, true
}

// StrongestEdges returns up to k edges with the largest weight. Equal
// weights keep (From, To) order.
func (gr *Graph) StrongestEdges(k int) []Edge {
	edges := gr.Edges()
	sort.SliceStable(edges, func(i, j int) bool {
		return edges[i].Weight > edges[j].Weight
	})
	if k < len(edges) {
		edges = edges[:k]
	}
	return edges
}
