// Package pipeline runs the full similarity analysis: the classifier
// ensemble, the matrix views, the feature consensus and the graph.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"

	"github.com/gilchrisn/network-type-similarity/pkg/ensemble"
	"github.com/gilchrisn/network-type-similarity/pkg/models"
	"github.com/gilchrisn/network-type-similarity/pkg/ranking"
	"github.com/gilchrisn/network-type-similarity/pkg/simgraph"
	"github.com/gilchrisn/network-type-similarity/pkg/similarity"
)

// Options configures an analysis
type Options struct {
	Ensemble      ensemble.Options
	DistanceScale float64
	Graph         simgraph.Options
	Select        int // number of distinct top features to pick
	Sampling      models.SamplingMethod
	IsSubType     bool
	Logger        zerolog.Logger
}

// DefaultOptions returns sensible default configuration
func DefaultOptions() Options {
	return Options{
		Ensemble:      ensemble.DefaultOptions(),
		DistanceScale: similarity.DefaultDistanceScale,
		Graph:         simgraph.DefaultOptions(),
		Select:        2,
		Sampling:      models.SamplingNone,
		IsSubType:     true,
		Logger:        zerolog.Nop(),
	}
}

// Request is the labeled feature table to analyze
type Request struct {
	X             [][]float64
	Y             []string
	SubToMainType models.DomainMap
	FeatureOrder  []string
}

// Result holds every view produced by one analysis
type Result struct {
	Labels       []string
	Domains      models.DomainMap // label -> domain, restricted to Labels
	Runs         int              // effective number of runs
	MeanAccuracy float64
	Failures     []ensemble.RunFailure

	Average    *mat.Dense    // summed confusion / N
	Normalized *mat.Dense    // row-normalized
	Similarity *mat.SymDense // max-symmetrized, zero diagonal
	Distance   *mat.SymDense
	Adjacency  *mat.SymDense
	Graph      *simgraph.Graph

	Consensus    *ranking.Consensus
	Dominant     [][]ranking.FeatureCount
	TopFeatures  []string // distinct features picked from the leading ranks
	SelectionErr error    // set when fewer distinct features than requested exist
	MeanScores   map[string]float64

	Duration time.Duration
}

// Analysis wires an oracle into the full pipeline
type Analysis struct {
	oracle ensemble.Oracle
	opts   Options
}

// NewAnalysis creates an analysis over the given oracle
func NewAnalysis(oracle ensemble.Oracle, opts Options) *Analysis {
	if opts.Select <= 0 {
		opts.Select = 2
	}
	if opts.Sampling == "" {
		opts.Sampling = models.SamplingNone
	}
	opts.Ensemble.Logger = opts.Logger
	return &Analysis{oracle: oracle, opts: opts}
}

// Run executes the ensemble and derives all views from its accumulation
func (a *Analysis) Run(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	logger := a.opts.Logger.With().Str("component", "pipeline").Logger()
	if err := checkScale(a.opts.DistanceScale); err != nil {
		return nil, err
	}

	runner := ensemble.NewRunner(a.oracle, a.opts.Ensemble)
	acc, err := runner.Run(ctx, ensemble.Request{
		X:             req.X,
		Y:             req.Y,
		SubToMainType: req.SubToMainType,
		FeatureOrder:  req.FeatureOrder,
		IsSubType:     a.opts.IsSubType,
		Sampling:      a.opts.Sampling,
	})
	if err != nil {
		return nil, fmt.Errorf("ensemble failed: %w", err)
	}

	result, err := Derive(acc, req.SubToMainType, req.FeatureOrder, a.opts)
	if err != nil {
		return nil, err
	}
	result.Duration = time.Since(start)

	if zero := similarity.ZeroRows(acc.Summed); len(zero) > 0 {
		names := make([]string, len(zero))
		for i, idx := range zero {
			names[i] = acc.Labels[idx]
		}
		logger.Warn().Strs("labels", names).Msg("Labels with a zero or overflowing row sum, normalized rows set to zero")
	}
	if result.SelectionErr != nil {
		logger.Warn().Err(result.SelectionErr).Msg("Could not select distinct top features")
	}

	logger.Info().
		Int("labels", len(result.Labels)).
		Int("edges", len(result.Graph.Edges())).
		Strs("top_features", result.TopFeatures).
		Float64("mean_accuracy", result.MeanAccuracy).
		Dur("duration", result.Duration).
		Msg("Analysis completed")

	return result, nil
}

func checkScale(scale float64) error {
	if !(scale > 0) || math.IsInf(scale, 0) {
		return fmt.Errorf("%w: distance scale must be positive, got %v", ensemble.ErrInvalidInput, scale)
	}
	return nil
}

// Derive computes every view from an accumulated ensemble. It does not call
// the oracle.
func Derive(acc *ensemble.Accumulation, subToMainType models.DomainMap, featureOrder []string, opts Options) (*Result, error) {
	if acc == nil || acc.Runs == 0 {
		return nil, ensemble.ErrInsufficientRuns
	}
	if opts.Select <= 0 {
		opts.Select = 2
	}
	if err := checkScale(opts.DistanceScale); err != nil {
		return nil, err
	}

	domains := resolveDomains(acc.Labels, subToMainType, opts.IsSubType)

	average := similarity.Average(acc.Summed, acc.Runs)
	normalized := similarity.NormalizeRows(acc.Summed)
	sim, err := similarity.Symmetrize(normalized)
	if err != nil {
		return nil, fmt.Errorf("failed to symmetrize: %w", err)
	}
	distance := similarity.Distance(sim, opts.DistanceScale)
	adjacency := similarity.Adjacency(sim)

	g, err := simgraph.Build(adjacency, acc.Labels, domains, opts.Graph)
	if err != nil {
		return nil, fmt.Errorf("failed to build graph: %w", err)
	}

	consensus, err := ranking.Tally(acc.Rankings, featureOrder)
	if err != nil {
		return nil, fmt.Errorf("failed to tally rankings: %w", err)
	}
	dominant := consensus.Dominant()
	top, selErr := ranking.SelectDistinct(dominant, opts.Select)
	if selErr != nil && !errors.Is(selErr, ranking.ErrDegenerateRanking) {
		return nil, selErr
	}

	return &Result{
		Labels:       append([]string(nil), acc.Labels...),
		Domains:      domains,
		Runs:         acc.Runs,
		MeanAccuracy: acc.MeanAccuracy(),
		Failures:     acc.Failures,
		Average:      average,
		Normalized:   normalized,
		Similarity:   sim,
		Distance:     distance,
		Adjacency:    adjacency,
		Graph:        g,
		Consensus:    consensus,
		Dominant:     dominant,
		TopFeatures:  top,
		SelectionErr: selErr,
		MeanScores:   ranking.MeanScores(acc.Rankings),
	}, nil
}

// resolveDomains restricts the domain map to the reported labels. At
// domain level every label is its own domain.
func resolveDomains(labels []string, subToMainType models.DomainMap, isSubType bool) models.DomainMap {
	out := make(models.DomainMap, len(labels))
	for _, l := range labels {
		if !isSubType {
			out[l] = l
			continue
		}
		if d, ok := subToMainType.Domain(l); ok {
			out[l] = d
		}
	}
	return out
}
