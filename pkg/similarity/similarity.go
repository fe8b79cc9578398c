// Package similarity turns an accumulated confusion matrix into symmetric
// similarity, distance and adjacency matrices over the same label order.
package similarity

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// DefaultDistanceScale multiplies (1 - similarity) in the distance view
const DefaultDistanceScale = 100.0

// Average divides every cell of m by n
func Average(m mat.Matrix, n int) *mat.Dense {
	var avg mat.Dense
	avg.Scale(1/float64(n), m)
	return &avg
}

// NormalizeRows divides each row by its sum, giving P(predicted | true).
// Rows summing to zero become all-zero rows; a cell whose quotient is not
// finite is written as 0.
func NormalizeRows(m mat.Matrix) *mat.Dense {
	r, c := m.Dims()
	out := mat.NewDense(r, c, nil)
	row := make([]float64, c)

	for i := 0; i < r; i++ {
		mat.Row(row, i, m)
		sum := floats.Sum(row)
		for j, v := range row {
			q := v / sum
			if math.IsNaN(q) || math.IsInf(q, 0) {
				q = 0
			}
			out.Set(i, j, q)
		}
	}
	return out
}

// ZeroRows returns the indices of rows NormalizeRows writes as all zeros:
// rows whose sum is zero or overflows.
func ZeroRows(m mat.Matrix) []int {
	r, c := m.Dims()
	row := make([]float64, c)
	var zero []int
	for i := 0; i < r; i++ {
		mat.Row(row, i, m)
		sum := floats.Sum(row)
		if sum == 0 || math.IsInf(sum, 0) || math.IsNaN(sum) {
			zero = append(zero, i)
		}
	}
	return zero
}

// Symmetrize collapses a directed confusion relation into an undirected one:
// S[i][j] = S[j][i] = max(m[i][j], m[j][i]) and S[i][i] = 0.
func Symmetrize(m mat.Matrix) (*mat.SymDense, error) {
	r, c := m.Dims()
	if r != c {
		return nil, fmt.Errorf("cannot symmetrize %dx%d matrix: not square", r, c)
	}

	s := mat.NewSymDense(r, nil)
	for i := 0; i < r; i++ {
		for j := i + 1; j < r; j++ {
			s.SetSym(i, j, math.Max(m.At(i, j), m.At(j, i)))
		}
	}
	return s, nil
}

// Distance maps similarity to dissimilarity: (1 - s) * scale off the
// diagonal, 0 on it. The result comes from empirical confusion and need not
// satisfy the triangle inequality.
func Distance(s mat.Symmetric, scale float64) *mat.SymDense {
	n, _ := s.Dims()
	d := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d.SetSym(i, j, (1-s.At(i, j))*scale)
		}
	}
	return d
}

// Adjacency returns the similarity itself as edge weights
func Adjacency(s mat.Symmetric) *mat.SymDense {
	n, _ := s.Dims()
	a := mat.NewSymDense(n, nil)
	a.CopySym(s)
	return a
}

// IsSymmetric reports whether m is square, symmetric within tol, and has a
// zero diagonal
func IsSymmetric(m mat.Matrix, tol float64) bool {
	r, c := m.Dims()
	if r != c {
		return false
	}
	for i := 0; i < r; i++ {
		if m.At(i, i) != 0 {
			return false
		}
		for j := i + 1; j < r; j++ {
			if math.Abs(m.At(i, j)-m.At(j, i)) > tol {
				return false
			}
		}
	}
	return true
}

// Rows exports a matrix as nested slices for renderers and JSON
func Rows(m mat.Matrix) [][]float64 {
	r, c := m.Dims()
	out := make([][]float64, r)
	for i := 0; i < r; i++ {
		out[i] = make([]float64, c)
		mat.Row(out[i], i, m)
	}
	return out
}
