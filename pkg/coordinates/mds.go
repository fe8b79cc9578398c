package coordinates

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/mds"
)

// Position represents a 2D coordinate
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// MDSResult contains 2D coordinates for each row of a distance matrix
type MDSResult struct {
	Coordinates []Position `json:"coordinates"` // index -> 2D position, same order as the labels
	Dimensions  int        `json:"dimensions"`  // positive eigenvalues found by the scaling
	MinX, MaxX  float64    `json:"-"`
	MinY, MaxY  float64    `json:"-"`
}

// MDSCalculator places labels in 2D from the distance view
type MDSCalculator struct{}

// NewMDSCalculator creates a new MDS calculator
func NewMDSCalculator() *MDSCalculator {
	return &MDSCalculator{}
}

// Calculate runs classical (Torgerson) scaling on a distance matrix. The
// distance view is not guaranteed to be metric, so zero positive
// eigenvalues is not an error: every label is placed at the origin.
func (mdsc *MDSCalculator) Calculate(dist mat.Symmetric) (*MDSResult, error) {
	n, _ := dist.Dims()
	if n == 0 {
		return nil, fmt.Errorf("distance matrix is empty")
	}

	result := &MDSResult{Coordinates: make([]Position, n)}
	if n == 1 {
		return result, nil
	}

	var coords mat.Dense
	k, _ := mds.TorgersonScaling(&coords, nil, dist)
	result.Dimensions = k
	if k == 0 {
		return result, nil
	}

	_, cols := coords.Dims()
	for i := 0; i < n; i++ {
		var p Position
		p.X = coords.At(i, 0)
		if cols > 1 {
			p.Y = coords.At(i, 1)
		}
		result.Coordinates[i] = p
	}
	result.bounds()
	return result, nil
}

func (result *MDSResult) bounds() {
	for i, p := range result.Coordinates {
		if i == 0 {
			result.MinX, result.MaxX = p.X, p.X
			result.MinY, result.MaxY = p.Y, p.Y
			continue
		}
		result.MinX = math.Min(result.MinX, p.X)
		result.MaxX = math.Max(result.MaxX, p.X)
		result.MinY = math.Min(result.MinY, p.Y)
		result.MaxY = math.Max(result.MaxY, p.Y)
	}
}

// GetNormalizedPosition returns coordinates normalized to [0,1] range
func (result *MDSResult) GetNormalizedPosition(idx int) Position {
	if idx < 0 || idx >= len(result.Coordinates) {
		return Position{X: 0.5, Y: 0.5}
	}
	pos := result.Coordinates[idx]

	var x, y float64
	if result.MaxX != result.MinX {
		x = (pos.X - result.MinX) / (result.MaxX - result.MinX)
	} else {
		x = 0.5
	}
	if result.MaxY != result.MinY {
		y = (pos.Y - result.MinY) / (result.MaxY - result.MinY)
	} else {
		y = 0.5
	}
	return Position{X: x, Y: y}
}
