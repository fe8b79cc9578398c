package simgraph

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/gilchrisn/network-type-similarity/pkg/models"
)

func twoNodeAdjacency() (*mat.SymDense, []string, models.DomainMap) {
	adj := mat.NewSymDense(2, []float64{0, 0.9, 0.9, 0})
	labels := []string{"road", "power"}
	domains := models.DomainMap{"road": "Transportation", "power": "Technological"}
	return adj, labels, domains
}

func TestBuildThreshold(t *testing.T) {
	adj, labels, domains := twoNodeAdjacency()

	t.Run("edge kept", func(t *testing.T) {
		g, err := Build(adj, labels, domains, Options{Threshold: 0.5, WeightScale: 50})
		if err != nil {
			t.Fatalf("Build failed: %v", err)
		}
		edges := g.Edges()
		if len(edges) != 1 {
			t.Fatalf("got %d edges, want 1", len(edges))
		}
		if edges[0].From != 0 || edges[0].To != 1 {
			t.Errorf("edge = %+v, want 0-1", edges[0])
		}
		if math.Abs(edges[0].Weight-45) > 1e-9 {
			t.Errorf("weight = %v, want 45", edges[0].Weight)
		}
		if !g.Weighted().HasEdgeBetween(0, 1) {
			t.Error("gonum graph is missing edge 0-1")
		}
		if w, ok := g.Weighted().Weight(0, 1); !ok || math.Abs(w-45) > 1e-9 {
			t.Errorf("gonum weight = %v, %v", w, ok)
		}
		if len(g.Isolated()) != 0 {
			t.Errorf("unexpected isolated nodes: %+v", g.Isolated())
		}
	})

	t.Run("edge dropped", func(t *testing.T) {
		g, err := Build(adj, labels, domains, Options{Threshold: 0.95, WeightScale: 50})
		if err != nil {
			t.Fatalf("Build failed: %v", err)
		}
		if len(g.Edges()) != 0 {
			t.Errorf("got %d edges, want 0", len(g.Edges()))
		}
		if g.Weighted().Nodes().Len() != 2 {
			t.Errorf("node count = %d, want 2", g.Weighted().Nodes().Len())
		}
		if iso := g.Isolated(); len(iso) != 2 {
			t.Errorf("isolated = %+v, want both nodes", iso)
		}
		if _, _, ok := g.WeightRange(); ok {
			t.Error("WeightRange reported edges on an edgeless graph")
		}
	})

	t.Run("threshold is strict", func(t *testing.T) {
		g, err := Build(adj, labels, domains, Options{Threshold: 0.9, WeightScale: 50})
		if err != nil {
			t.Fatalf("Build failed: %v", err)
		}
		if len(g.Edges()) != 0 {
			t.Error("edge equal to the threshold was kept")
		}
	})
}

func TestBuildZeroWeightExcluded(t *testing.T) {
	adj := mat.NewSymDense(3, []float64{
		0, 0.2, 0,
		0.2, 0, 0.6,
		0, 0.6, 0,
	})
	labels := []string{"a", "b", "c"}
	domains := models.DomainMap{"a": "X", "b": "X", "c": "Y"}

	g, err := Build(adj, labels, domains, DefaultOptions())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if len(g.Edges()) != 2 {
		t.Fatalf("got %d edges, want 2", len(g.Edges()))
	}
	if g.Weighted().HasEdgeBetween(0, 2) {
		t.Error("zero-weight edge a-c present")
	}
	if g.Degree(1) != 2 || g.Degree(0) != 1 {
		t.Errorf("degrees = %d,%d", g.Degree(0), g.Degree(1))
	}

	nodes := g.Nodes()
	if nodes[2].Domain != "Y" || nodes[2].DomainIndex != 1 {
		t.Errorf("node c = %+v", nodes[2])
	}

	min, max, ok := g.WeightRange()
	if !ok || math.Abs(min-10) > 1e-9 || math.Abs(max-30) > 1e-9 {
		t.Errorf("WeightRange = %v, %v, %v", min, max, ok)
	}

	strongest := g.StrongestEdges(1)
	if len(strongest) != 1 || strongest[0].From != 1 || strongest[0].To != 2 {
		t.Errorf("StrongestEdges(1) = %+v", strongest)
	}
}

func TestBuildScalePreservesOrder(t *testing.T) {
	adj := mat.NewSymDense(3, []float64{
		0, 0.3, 0.1,
		0.3, 0, 0.7,
		0.1, 0.7, 0,
	})
	labels := []string{"a", "b", "c"}
	domains := models.DomainMap{"a": "X", "b": "X", "c": "X"}

	for _, scale := range []float64{0.5, 1, 50, 1000} {
		g, err := Build(adj, labels, domains, Options{WeightScale: scale})
		if err != nil {
			t.Fatalf("Build failed: %v", err)
		}
		top := g.StrongestEdges(3)
		if top[0].Similarity != 0.7 || top[1].Similarity != 0.3 || top[2].Similarity != 0.1 {
			t.Errorf("scale %v changed edge order: %+v", scale, top)
		}
	}
}

func TestBuildErrors(t *testing.T) {
	adj, labels, domains := twoNodeAdjacency()

	if _, err := Build(adj, labels[:1], domains, DefaultOptions()); err == nil {
		t.Error("expected error for label count mismatch")
	}
	if _, err := Build(adj, labels, domains, Options{WeightScale: 0}); err == nil {
		t.Error("expected error for zero weight scale")
	}
	if _, err := Build(adj, labels, domains, Options{Threshold: math.NaN(), WeightScale: 1}); err == nil {
		t.Error("expected error for NaN threshold")
	}
	if _, err := Build(adj, labels, models.DomainMap{"road": "Transportation"}, DefaultOptions()); err == nil {
		t.Error("expected error for label without domain")
	}
}
