// Package output turns an analysis result into the plain-data views handed
// to heatmap, bar chart and network renderers.
package output

import (
	"fmt"

	"github.com/gilchrisn/network-type-similarity/pkg/coordinates"
	"github.com/gilchrisn/network-type-similarity/pkg/pipeline"
	"github.com/gilchrisn/network-type-similarity/pkg/ranking"
	"github.com/gilchrisn/network-type-similarity/pkg/simgraph"
	"github.com/gilchrisn/network-type-similarity/pkg/similarity"
)

// HeatmapView is the averaged and normalized confusion data
type HeatmapView struct {
	Labels       []string    `json:"labels"`
	Domains      []string    `json:"domains"` // domain per label, same order
	Runs         int         `json:"runs"`
	MeanAccuracy float64     `json:"mean_accuracy"`
	Average      [][]float64 `json:"average"`
	Normalized   [][]float64 `json:"normalized"`
}

// MatrixView is a labeled symmetric matrix (similarity or distance)
type MatrixView struct {
	Labels []string    `json:"labels"`
	Values [][]float64 `json:"values"`
}

// GraphNode is a graph node with presentation hints
type GraphNode struct {
	simgraph.Node
	Position coordinates.Position `json:"position"`
	PageRank float64              `json:"pagerank"`
	Size     float64              `json:"size"` // PageRank normalized to [0,1]
}

// GraphView is the similarity graph ready for a network renderer
type GraphView struct {
	Nodes     []GraphNode      `json:"nodes"`
	Edges     []simgraph.Edge  `json:"edges"`
	Domains   []string         `json:"domains"` // index = node domain_index
	Options   simgraph.Options `json:"options"`
	MinWeight float64          `json:"min_weight"`
	MaxWeight float64          `json:"max_weight"`
}

// FeaturesView is the feature consensus for bar charts and axis selection
type FeaturesView struct {
	Features     []string                 `json:"features"`
	Runs         int                      `json:"runs"`
	Dominant     [][]ranking.FeatureCount `json:"dominant"`
	TopFeatures  []string                 `json:"top_features,omitempty"`
	SelectionErr string                   `json:"selection_error,omitempty"`
	MeanScores   map[string]float64       `json:"mean_scores"`
}

// EmbeddingView places labels in 2D from the distance view
type EmbeddingView struct {
	Labels      []string               `json:"labels"`
	Domains     []string               `json:"domains"`
	Coordinates []coordinates.Position `json:"coordinates"`
	Normalized  []coordinates.Position `json:"normalized"`
	Dimensions  int                    `json:"dimensions"`
}

// Heatmap builds the heatmap view
func Heatmap(result *pipeline.Result) HeatmapView {
	return HeatmapView{
		Labels:       result.Labels,
		Domains:      labelDomains(result),
		Runs:         result.Runs,
		MeanAccuracy: result.MeanAccuracy,
		Average:      similarity.Rows(result.Average),
		Normalized:   similarity.Rows(result.Normalized),
	}
}

// Distance builds the distance matrix view
func Distance(result *pipeline.Result) MatrixView {
	return MatrixView{Labels: result.Labels, Values: similarity.Rows(result.Distance)}
}

// Similarity builds the similarity matrix view
func Similarity(result *pipeline.Result) MatrixView {
	return MatrixView{Labels: result.Labels, Values: similarity.Rows(result.Similarity)}
}

// Graph builds the network view with a circle layout and PageRank sizes
func Graph(result *pipeline.Result) (GraphView, error) {
	g := result.Graph
	positions := coordinates.CircleLayout(g.Weighted())

	pr, err := coordinates.NewPageRankCalculator().Calculate(g.Weighted())
	if err != nil {
		return GraphView{}, fmt.Errorf("failed to compute PageRank: %w", err)
	}

	nodes := make([]GraphNode, 0, len(g.Nodes()))
	for _, n := range g.Nodes() {
		nodes = append(nodes, GraphNode{
			Node:     n,
			Position: positions[n.ID],
			PageRank: pr.Scores[n.ID],
			Size:     pr.Normalized(n.ID),
		})
	}

	edges := g.Edges()
	if edges == nil {
		edges = []simgraph.Edge{}
	}
	minW, maxW, _ := g.WeightRange()
	return GraphView{
		Nodes:     nodes,
		Edges:     edges,
		Domains:   g.Domains(),
		Options:   g.Options(),
		MinWeight: minW,
		MaxWeight: maxW,
	}, nil
}

// Features builds the feature consensus view
func Features(result *pipeline.Result) FeaturesView {
	view := FeaturesView{
		Features:    result.Consensus.Features,
		Runs:        result.Consensus.Runs,
		Dominant:    result.Dominant,
		TopFeatures: result.TopFeatures,
		MeanScores:  result.MeanScores,
	}
	if result.SelectionErr != nil {
		view.SelectionErr = result.SelectionErr.Error()
	}
	return view
}

// Embedding runs classical scaling on the distance view
func Embedding(result *pipeline.Result) (EmbeddingView, error) {
	mdsResult, err := coordinates.NewMDSCalculator().Calculate(result.Distance)
	if err != nil {
		return EmbeddingView{}, fmt.Errorf("failed to embed distances: %w", err)
	}

	normalized := make([]coordinates.Position, len(mdsResult.Coordinates))
	for i := range normalized {
		normalized[i] = mdsResult.GetNormalizedPosition(i)
	}
	return EmbeddingView{
		Labels:      result.Labels,
		Domains:     labelDomains(result),
		Coordinates: mdsResult.Coordinates,
		Normalized:  normalized,
		Dimensions:  mdsResult.Dimensions,
	}, nil
}

func labelDomains(result *pipeline.Result) []string {
	domains := make([]string, len(result.Labels))
	for i, l := range result.Labels {
		domains[i], _ = result.Domains.Domain(l)
	}
	return domains
}
