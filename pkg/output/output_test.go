package output

import (
	"bufio"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/gilchrisn/network-type-similarity/pkg/ensemble"
	"github.com/gilchrisn/network-type-similarity/pkg/models"
	"github.com/gilchrisn/network-type-similarity/pkg/pipeline"
)

func testResult(t *testing.T, opts pipeline.Options) *pipeline.Result {
	t.Helper()
	acc := &ensemble.Accumulation{
		Summed:         mat.NewDense(3, 3, []float64{8, 2, 0, 4, 6, 0, 0, 0, 10}),
		Labels:         []string{"protein", "metabolic", "road"},
		SummedAccuracy: 1.6,
		Rankings: []models.Ranking{
			{{Feature: "mod", Score: 0.6}, {Feature: "cc", Score: 0.4}},
			{{Feature: "cc", Score: 0.5}, {Feature: "mod", Score: 0.5}},
		},
		Runs: 2,
	}
	domains := models.DomainMap{"protein": "Biological", "metabolic": "Biological", "road": "Transportation"}

	result, err := pipeline.Derive(acc, domains, []string{"cc", "mod"}, opts)
	if err != nil {
		t.Fatalf("Derive failed: %v", err)
	}
	return result
}

func TestWriteAll(t *testing.T) {
	result := testResult(t, pipeline.DefaultOptions())
	dir := filepath.Join(t.TempDir(), "out")

	paths, err := NewFileWriter().WriteAll(result, dir, "run1")
	if err != nil {
		t.Fatalf("WriteAll failed: %v", err)
	}
	if len(paths) != 6 {
		t.Fatalf("wrote %d files, want 6", len(paths))
	}
	for _, p := range paths {
		if !strings.HasPrefix(filepath.Base(p), "run1.") {
			t.Errorf("unexpected file name %s", p)
		}
		if _, err := os.Stat(p); err != nil {
			t.Errorf("missing %s: %v", p, err)
		}
	}

	var heatmap HeatmapView
	readJSON(t, filepath.Join(dir, "run1.heatmap.json"), &heatmap)
	if heatmap.Runs != 2 || heatmap.Average[0][0] != 4 || heatmap.Normalized[0][0] != 0.8 {
		t.Errorf("unexpected heatmap: %+v", heatmap)
	}
	if heatmap.Domains[2] != "Transportation" {
		t.Errorf("domains = %v", heatmap.Domains)
	}

	var graph GraphView
	readJSON(t, filepath.Join(dir, "run1.graph.json"), &graph)
	if len(graph.Nodes) != 3 {
		t.Fatalf("got %d nodes, want 3", len(graph.Nodes))
	}
	// road has no similarity to anything and stays as an isolated node
	if graph.Nodes[2].Degree != 0 || len(graph.Edges) != 1 {
		t.Errorf("unexpected graph: nodes %+v edges %+v", graph.Nodes, graph.Edges)
	}
	// sizes are rescaled PageRank scores, equal up to solver tolerance
	if math.Abs(graph.Nodes[0].Size-graph.Nodes[1].Size) > 1e-3 {
		t.Errorf("connected pair should get equal sizes: %+v", graph.Nodes)
	}
	if graph.Nodes[2].Size > 1e-3 || graph.Nodes[0].Size < 0.999 {
		t.Errorf("isolated node should be smallest: %+v", graph.Nodes)
	}
}

func TestWriteEdges(t *testing.T) {
	result := testResult(t, pipeline.DefaultOptions())
	path := filepath.Join(t.TempDir(), "sim.edges")

	if err := NewFileWriter().WriteEdges(result, path); err != nil {
		t.Fatalf("WriteEdges failed: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	// S[protein][metabolic] = max(0.2, 0.4) = 0.4, weight 20
	if len(lines) != 1 || lines[0] != "protein metabolic 20.000000" {
		t.Errorf("edges file = %q", lines)
	}
}

func TestFeaturesView(t *testing.T) {
	result := testResult(t, pipeline.DefaultOptions())
	view := Features(result)

	if view.Runs != 2 || len(view.Dominant) != 2 {
		t.Fatalf("unexpected features view: %+v", view)
	}
	// rank 0 tied 1-1: name order puts cc first, rank 1 then picks mod
	if len(view.TopFeatures) != 2 || view.TopFeatures[0] != "cc" || view.TopFeatures[1] != "mod" {
		t.Errorf("top features = %v, want [cc mod]", view.TopFeatures)
	}
	if view.SelectionErr != "" {
		t.Errorf("unexpected selection error %q", view.SelectionErr)
	}

	opts := pipeline.DefaultOptions()
	opts.Select = 3
	degenerate := Features(testResult(t, opts))
	if degenerate.SelectionErr == "" || degenerate.TopFeatures != nil {
		t.Errorf("expected selection error, got %+v", degenerate)
	}
}

func TestEmbeddingView(t *testing.T) {
	result := testResult(t, pipeline.DefaultOptions())
	view, err := Embedding(result)
	if err != nil {
		t.Fatalf("Embedding failed: %v", err)
	}
	if len(view.Coordinates) != 3 || len(view.Normalized) != 3 {
		t.Fatalf("unexpected embedding: %+v", view)
	}
	for i, p := range view.Normalized {
		if p.X < 0 || p.X > 1 || p.Y < 0 || p.Y > 1 {
			t.Errorf("normalized position %d out of range: %+v", i, p)
		}
	}
}

func TestDistanceView(t *testing.T) {
	result := testResult(t, pipeline.DefaultOptions())
	view := Distance(result)
	if math.Abs(view.Values[0][1]-60) > 1e-9 || view.Values[0][0] != 0 || view.Values[0][2] != 100 {
		t.Errorf("distance row 0 = %v, want [0 60 100]", view.Values[0])
	}
}

func readJSON(t *testing.T, path string, v interface{}) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		t.Fatalf("failed to decode %s: %v", path, err)
	}
}
