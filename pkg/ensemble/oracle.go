package ensemble

import (
	"context"

	"gonum.org/v1/gonum/mat"

	"github.com/gilchrisn/network-type-similarity/pkg/models"
)

// Request holds the inputs handed to the classifier on every run
type Request struct {
	X             [][]float64           // feature matrix, one row per instance
	Y             []string              // label per instance
	SubToMainType models.DomainMap      // label -> domain
	FeatureOrder  []string              // column names of X
	IsSubType     bool                  // classify sub-types instead of domains
	Sampling      models.SamplingMethod // class balancing strategy
}

// RunOutput is the result of a single classifier run
type RunOutput struct {
	Confusion   *mat.Dense     // labels x labels counts
	Labels      []string       // row/column order of Confusion
	Accuracy    float64        // in [0,1]
	Importances models.Ranking // most important first
}

// Oracle is the classifier. Calls with identical requests may return
// different results (internal resampling), but must report the same label
// order every time.
type Oracle interface {
	Classify(ctx context.Context, req Request) (*RunOutput, error)
}

// OracleFunc adapts a function to the Oracle interface
type OracleFunc func(ctx context.Context, req Request) (*RunOutput, error)

// Classify calls f
func (f OracleFunc) Classify(ctx context.Context, req Request) (*RunOutput, error) {
	return f(ctx, req)
}

// FromRecord converts a serialized run into a RunOutput
func FromRecord(rec models.RunRecord) (*RunOutput, error) {
	n := len(rec.Labels)
	if len(rec.Confusion) != n {
		return nil, malformed("confusion has %d rows for %d labels", len(rec.Confusion), n)
	}
	if n == 0 {
		return nil, malformed("run has no labels")
	}
	cm := mat.NewDense(n, n, nil)
	for i, row := range rec.Confusion {
		if len(row) != n {
			return nil, malformed("confusion row %d has %d columns for %d labels", i, len(row), n)
		}
		cm.SetRow(i, row)
	}
	return &RunOutput{
		Confusion:   cm,
		Labels:      append([]string(nil), rec.Labels...),
		Accuracy:    rec.Accuracy,
		Importances: append(models.Ranking(nil), rec.Importances...),
	}, nil
}
