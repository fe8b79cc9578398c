package similarity

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const tol = 1e-12

func TestNormalizeRows(t *testing.T) {
	m := mat.NewDense(4, 3, []float64{
		5, 1, 0,
		0, 0, 0,
		1, 1, 4,
		0, 7, 0,
	})

	norm := NormalizeRows(m)

	r, c := norm.Dims()
	if r != 4 || c != 3 {
		t.Fatalf("dims = %dx%d, want 4x3", r, c)
	}

	for i := 0; i < r; i++ {
		row := mat.Row(nil, i, norm)
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				t.Errorf("cell (%d,%d) is not finite: %v", i, j, v)
			}
		}
		sum := floats.Sum(row)
		if i == 1 {
			if sum != 0 {
				t.Errorf("zero row %d normalized to sum %v, want 0", i, sum)
			}
			continue
		}
		if math.Abs(sum-1) > tol {
			t.Errorf("row %d sums to %v, want 1", i, sum)
		}
	}

	if got := norm.At(0, 0); math.Abs(got-5.0/6.0) > tol {
		t.Errorf("(0,0) = %v, want 5/6", got)
	}

	zero := ZeroRows(m)
	if len(zero) != 1 || zero[0] != 1 {
		t.Errorf("ZeroRows = %v, want [1]", zero)
	}
}

func TestNormalizeRowsAllZero(t *testing.T) {
	norm := NormalizeRows(mat.NewDense(2, 2, nil))
	if !mat.Equal(norm, mat.NewDense(2, 2, nil)) {
		t.Errorf("all-zero input normalized to %v", mat.Formatted(norm))
	}
}

func TestZeroRowsOverflow(t *testing.T) {
	m := mat.NewDense(2, 2, []float64{
		math.MaxFloat64, math.MaxFloat64,
		1, 3,
	})

	norm := NormalizeRows(m)
	if norm.At(0, 0) != 0 || norm.At(0, 1) != 0 {
		t.Fatalf("overflowing row normalized to %v", mat.Row(nil, 0, norm))
	}
	zero := ZeroRows(m)
	if len(zero) != 1 || zero[0] != 0 {
		t.Errorf("ZeroRows = %v, want [0]", zero)
	}
}

func TestSymmetrize(t *testing.T) {
	m := mat.NewDense(3, 3, []float64{
		0.5, 0.2, 0.3,
		0.6, 0.1, 0.3,
		0.0, 0.9, 0.1,
	})

	s, err := Symmetrize(m)
	if err != nil {
		t.Fatalf("Symmetrize failed: %v", err)
	}

	n, _ := s.Dims()
	for i := 0; i < n; i++ {
		if s.At(i, i) != 0 {
			t.Errorf("diagonal (%d,%d) = %v, want 0", i, i, s.At(i, i))
		}
		for j := 0; j < n; j++ {
			if s.At(i, j) != s.At(j, i) {
				t.Errorf("S[%d][%d]=%v != S[%d][%d]=%v", i, j, s.At(i, j), j, i, s.At(j, i))
			}
			if i != j {
				want := math.Max(m.At(i, j), m.At(j, i))
				if s.At(i, j) != want {
					t.Errorf("S[%d][%d] = %v, want %v", i, j, s.At(i, j), want)
				}
			}
		}
	}

	if _, err := Symmetrize(mat.NewDense(2, 3, nil)); err == nil {
		t.Error("expected error for non-square matrix")
	}
}

func TestSymmetrizeIdempotent(t *testing.T) {
	m := mat.NewDense(3, 3, []float64{
		0, 0.4, 0.1,
		0.4, 0, 0.7,
		0.1, 0.7, 0,
	})

	once, err := Symmetrize(m)
	if err != nil {
		t.Fatalf("Symmetrize failed: %v", err)
	}
	if !mat.Equal(once, m) {
		t.Errorf("symmetric input changed: %v", mat.Formatted(once))
	}

	twice, err := Symmetrize(once)
	if err != nil {
		t.Fatalf("Symmetrize failed: %v", err)
	}
	if !mat.Equal(once, twice) {
		t.Errorf("Symmetrize not idempotent")
	}
}

func TestDistanceAndAdjacency(t *testing.T) {
	s := mat.NewSymDense(3, []float64{
		0, 0.8, 0.25,
		0.8, 0, 0,
		0.25, 0, 0,
	})

	d := Distance(s, DefaultDistanceScale)
	a := Adjacency(s)

	for i := 0; i < 3; i++ {
		if d.At(i, i) != 0 {
			t.Errorf("D[%d][%d] = %v, want 0", i, i, d.At(i, i))
		}
		for j := 0; j < 3; j++ {
			if d.At(i, j) != d.At(j, i) {
				t.Errorf("D not symmetric at (%d,%d)", i, j)
			}
			if i == j {
				continue
			}
			want := (1 - s.At(i, j)) * 100
			if math.Abs(d.At(i, j)-want) > tol {
				t.Errorf("D[%d][%d] = %v, want %v", i, j, d.At(i, j), want)
			}
		}
	}

	if !mat.Equal(a, s) {
		t.Errorf("adjacency differs from similarity: %v", mat.Formatted(a))
	}
	// the views must not share storage with the source
	a.SetSym(0, 1, 0.1)
	if s.At(0, 1) != 0.8 {
		t.Error("Adjacency aliases its input")
	}
}

// Two ensemble runs over labels {A,B,C}:
// [[2,1,0],[0,3,0],[1,0,2]] + [[3,0,0],[1,2,0],[0,1,2]] = [[5,1,0],[1,5,0],[1,1,4]]
func TestThreeLabelScenario(t *testing.T) {
	summed := mat.NewDense(3, 3, []float64{5, 1, 0, 1, 5, 0, 1, 1, 4})

	avg := Average(summed, 2)
	if got := avg.At(2, 2); got != 2 {
		t.Errorf("average (2,2) = %v, want 2", got)
	}

	s, err := Symmetrize(NormalizeRows(avg))
	if err != nil {
		t.Fatalf("Symmetrize failed: %v", err)
	}
	for i := 0; i < 3; i++ {
		if s.At(i, i) != 0 {
			t.Errorf("diagonal %d = %v, want 0", i, s.At(i, i))
		}
	}
	if got := s.At(0, 1); math.Abs(got-1.0/6.0) > tol {
		t.Errorf("S[0][1] = %v, want 1/6", got)
	}
	if got := s.At(0, 2); math.Abs(got-1.0/6.0) > tol {
		t.Errorf("S[0][2] = %v, want 1/6", got)
	}
	if !IsSymmetric(s, 0) {
		t.Error("result is not symmetric with zero diagonal")
	}
}

func TestRows(t *testing.T) {
	m := mat.NewDense(2, 2, []float64{1, 2, 3, 4})
	rows := Rows(m)
	if len(rows) != 2 || rows[1][0] != 3 || rows[0][1] != 2 {
		t.Errorf("Rows = %v", rows)
	}
}
