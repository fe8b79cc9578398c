package ensemble

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/gilchrisn/network-type-similarity/pkg/models"
)

// FailurePolicy decides what happens when the oracle returns an error
type FailurePolicy string

const (
	// PolicyAbort stops the ensemble at the first oracle error
	PolicyAbort FailurePolicy = "abort"
	// PolicySkip drops the failed run and continues with a smaller N
	PolicySkip FailurePolicy = "skip"
)

// ParsePolicy converts a config string into a FailurePolicy
func ParsePolicy(s string) (FailurePolicy, error) {
	switch FailurePolicy(s) {
	case PolicyAbort, PolicySkip:
		return FailurePolicy(s), nil
	case "":
		return PolicyAbort, nil
	}
	return "", fmt.Errorf("unknown failure policy %q", s)
}

// Options configures the ensemble runner
type Options struct {
	Runs     int           // number of oracle calls (N)
	Parallel bool          // run oracle calls concurrently
	Workers  int           // max concurrent calls when Parallel is set
	Policy   FailurePolicy // what to do with oracle errors
	Logger   zerolog.Logger
}

// DefaultOptions returns sensible default configuration
func DefaultOptions() Options {
	return Options{
		Runs:    10,
		Workers: runtime.NumCPU(),
		Policy:  PolicyAbort,
		Logger:  zerolog.Nop(),
	}
}

// RunFailure records an oracle error skipped under PolicySkip
type RunFailure struct {
	Run   int    `json:"run"`
	Error string `json:"error"`
}

// Accumulation is the folded state of all successful runs
type Accumulation struct {
	Summed         *mat.Dense       // elementwise sum of confusion matrices
	Labels         []string         // authoritative label order (first successful run)
	SummedAccuracy float64          // sum of per-run accuracies
	Rankings       []models.Ranking // one ranking per successful run, in run order
	Runs           int              // effective N
	Failures       []RunFailure     // runs skipped under PolicySkip
}

// MeanAccuracy is SummedAccuracy divided by the effective number of runs
func (a *Accumulation) MeanAccuracy() float64 {
	if a.Runs == 0 {
		return 0
	}
	return a.SummedAccuracy / float64(a.Runs)
}

// Runner calls the oracle N times and folds the outputs
type Runner struct {
	oracle Oracle
	opts   Options
}

// NewRunner creates a runner over the given oracle
func NewRunner(oracle Oracle, opts Options) *Runner {
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	if opts.Policy == "" {
		opts.Policy = PolicyAbort
	}
	return &Runner{oracle: oracle, opts: opts}
}

// Run executes the ensemble. X and Y are passed through untouched.
func (r *Runner) Run(ctx context.Context, req Request) (*Accumulation, error) {
	if r.oracle == nil {
		return nil, invalid("no oracle configured")
	}
	if err := validateRequest(req, r.opts.Runs); err != nil {
		return nil, err
	}

	logger := r.opts.Logger.With().Str("component", "ensemble").Logger()
	logger.Info().
		Int("runs", r.opts.Runs).
		Bool("parallel", r.opts.Parallel).
		Str("policy", string(r.opts.Policy)).
		Str("sampling", string(req.Sampling)).
		Msg("Starting ensemble")

	start := time.Now()
	acc := newAccumulator(req.FeatureOrder)

	var err error
	if r.opts.Parallel && r.opts.Runs > 1 {
		err = r.runParallel(ctx, req, acc, logger)
	} else {
		err = r.runSequential(ctx, req, acc, logger)
	}
	if err != nil {
		return nil, err
	}

	if acc.result.Runs == 0 {
		return nil, fmt.Errorf("%w: all %d runs failed", ErrInsufficientRuns, r.opts.Runs)
	}

	logger.Info().
		Int("effective_runs", acc.result.Runs).
		Int("failed_runs", len(acc.result.Failures)).
		Int("labels", len(acc.result.Labels)).
		Float64("mean_accuracy", acc.result.MeanAccuracy()).
		Dur("duration", time.Since(start)).
		Msg("Ensemble completed")

	return acc.result, nil
}

func (r *Runner) runSequential(ctx context.Context, req Request, acc *accumulator, logger zerolog.Logger) error {
	for i := 0; i < r.opts.Runs; i++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("run %d: %w", i, err)
		}
		out, err := r.oracle.Classify(ctx, req)
		if err != nil {
			if r.opts.Policy == PolicyAbort || ctx.Err() != nil {
				return fmt.Errorf("run %d: %w", i, err)
			}
			acc.skip(i, err, logger)
			continue
		}
		if err := acc.add(i, out); err != nil {
			return err
		}
		logger.Debug().Int("run", i).Float64("accuracy", out.Accuracy).Msg("Run folded")
	}
	return nil
}

// runParallel gives every run its own slot and folds in run order once all
// calls have returned, so the result matches the sequential fold.
func (r *Runner) runParallel(ctx context.Context, req Request, acc *accumulator, logger zerolog.Logger) error {
	n := r.opts.Runs
	outputs := make([]*RunOutput, n)
	failures := make([]error, n)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Workers)

	for i := 0; i < n; i++ {
		i := i // per-iteration copy (pre-Go 1.22 loop semantics)
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("run %d: %w", i, err)
			}
			out, err := r.oracle.Classify(gctx, req)
			if err != nil {
				// a cancelled ensemble fails under every policy
				if r.opts.Policy == PolicyAbort || ctx.Err() != nil {
					return fmt.Errorf("run %d: %w", i, err)
				}
				failures[i] = err
				return nil
			}
			if err := validateOutput(i, out, acc.features); err != nil {
				return err
			}
			outputs[i] = out
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	for i := 0; i < n; i++ {
		if failures[i] != nil {
			acc.skip(i, failures[i], logger)
			continue
		}
		if err := acc.add(i, outputs[i]); err != nil {
			return err
		}
	}
	return nil
}

type accumulator struct {
	result   *Accumulation
	features map[string]bool
}

func newAccumulator(featureOrder []string) *accumulator {
	features := make(map[string]bool, len(featureOrder))
	for _, f := range featureOrder {
		features[f] = true
	}
	return &accumulator{result: &Accumulation{}, features: features}
}

func (a *accumulator) add(run int, out *RunOutput) error {
	if err := validateOutput(run, out, a.features); err != nil {
		return err
	}

	res := a.result
	if res.Summed == nil {
		n := len(out.Labels)
		res.Summed = mat.NewDense(n, n, nil)
		res.Labels = append([]string(nil), out.Labels...)
	} else if !sameLabels(res.Labels, out.Labels) {
		return &LabelOrderError{Run: run, Want: res.Labels, Got: append([]string(nil), out.Labels...)}
	}

	res.Summed.Add(res.Summed, out.Confusion)
	res.SummedAccuracy += out.Accuracy
	res.Rankings = append(res.Rankings, append(models.Ranking(nil), out.Importances...))
	res.Runs++
	return nil
}

func (a *accumulator) skip(run int, err error, logger zerolog.Logger) {
	logger.Warn().Int("run", run).Err(err).Msg("Oracle failed, skipping run")
	a.result.Failures = append(a.result.Failures, RunFailure{Run: run, Error: err.Error()})
}

func validateRequest(req Request, runs int) error {
	if runs < 1 {
		return invalid("runs must be >= 1, got %d", runs)
	}
	if len(req.X) != len(req.Y) {
		return invalid("X has %d rows but Y has %d labels", len(req.X), len(req.Y))
	}
	if len(req.FeatureOrder) == 0 {
		return invalid("feature order is empty")
	}
	seen := make(map[string]bool, len(req.FeatureOrder))
	for _, f := range req.FeatureOrder {
		if seen[f] {
			return invalid("duplicate feature %q", f)
		}
		seen[f] = true
	}
	for i, row := range req.X {
		if len(row) != len(req.FeatureOrder) {
			return invalid("row %d has %d columns, expected %d", i, len(row), len(req.FeatureOrder))
		}
	}
	if req.Sampling != "" {
		if err := req.Sampling.Validate(); err != nil {
			return invalid("%v", err)
		}
	}
	return nil
}

func validateOutput(run int, out *RunOutput, features map[string]bool) error {
	if out == nil || out.Confusion == nil {
		return malformed("run %d returned no confusion matrix", run)
	}

	n := len(out.Labels)
	rows, cols := out.Confusion.Dims()
	if rows != cols || rows != n {
		return malformed("run %d: confusion matrix is %dx%d for %d labels", run, rows, cols, n)
	}

	seen := make(map[string]bool, n)
	for _, l := range out.Labels {
		if seen[l] {
			return malformed("run %d: duplicate label %q", run, l)
		}
		seen[l] = true
	}

	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			v := out.Confusion.At(i, j)
			if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
				return malformed("run %d: confusion cell (%d,%d) = %v", run, i, j, v)
			}
		}
	}

	if math.IsNaN(out.Accuracy) || out.Accuracy < 0 || out.Accuracy > 1 {
		return malformed("run %d: accuracy %v outside [0,1]", run, out.Accuracy)
	}

	if len(out.Importances) != len(features) {
		return malformed("run %d: ranking has %d features, expected %d", run, len(out.Importances), len(features))
	}
	ranked := make(map[string]bool, len(out.Importances))
	for pos, fs := range out.Importances {
		if !features[fs.Feature] {
			return malformed("run %d: unknown feature %q at rank %d", run, fs.Feature, pos)
		}
		if ranked[fs.Feature] {
			return malformed("run %d: feature %q ranked twice", run, fs.Feature)
		}
		ranked[fs.Feature] = true
	}

	return nil
}

func sameLabels(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
