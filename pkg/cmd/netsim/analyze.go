package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/gilchrisn/network-type-similarity/pkg/dataset"
	"github.com/gilchrisn/network-type-similarity/pkg/ensemble"
	"github.com/gilchrisn/network-type-similarity/pkg/models"
	"github.com/gilchrisn/network-type-similarity/pkg/oracle"
	"github.com/gilchrisn/network-type-similarity/pkg/output"
	"github.com/gilchrisn/network-type-similarity/pkg/pipeline"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run the ensemble and write heatmap, graph and feature files",
	Long: `Run the classifier ensemble and write the renderer hand-off files.

Runs come either from a JSON Lines file of recorded runs (--runs) or from a
classification service (--classifier-url), which needs a feature table
(--csv) and the feature columns to use (-f).`,
	Args: cobra.NoArgs,
	RunE: runAnalyze,
}

var analyzeFlags struct {
	runsFile      string
	classifierURL string
	csvFile       string
	features      []string
	domainsFile   string
	oneVsRest     string
	excludeTypes  []string
}

func init() {
	f := analyzeCmd.Flags()
	f.StringVar(&analyzeFlags.runsFile, "runs", "", "JSON Lines file of recorded classifier runs")
	f.StringVar(&analyzeFlags.classifierURL, "classifier-url", "", "URL of a classification service")
	f.StringVar(&analyzeFlags.csvFile, "csv", "", "feature table with NetworkType and SubType columns")
	f.StringSliceVarP(&analyzeFlags.features, "features", "f", nil, "feature columns, in order")
	f.StringVar(&analyzeFlags.domainsFile, "domains", "", "YAML map of sub-type to domain")
	f.StringVar(&analyzeFlags.oneVsRest, "one-vs-rest", "", "classify this label against all others")
	f.StringSliceVar(&analyzeFlags.excludeTypes, "exclude", nil, "network types to drop from the feature table")

	f.IntP("num-runs", "n", 10, "number of classifier runs")
	f.Bool("parallel", false, "run the classifier concurrently")
	f.String("policy", "abort", "failure policy: abort or skip")
	f.String("sampling", "None", "sampling method: None, RandomOver, RandomUnder or SMOTE")
	f.Bool("sub-type", true, "classify sub-types instead of domains")
	f.Float64("threshold", 0.0, "keep graph edges with similarity above this")
	f.Int("at-least", 6, "drop classes with fewer instances")
	f.String("out", "output", "output directory")
	f.String("prefix", "netsim", "output file prefix")
	f.String("log-level", "info", "log level")
}

// bindAnalyzeFlags maps flags onto config keys. Only flags set on the
// command line override the config file.
func bindAnalyzeFlags(cmd *cobra.Command, cfg *pipeline.Config) error {
	bindings := map[string]string{
		"num-runs":  "ensemble.runs",
		"parallel":  "ensemble.parallel",
		"policy":    "ensemble.failure_policy",
		"sampling":  "ensemble.sampling_method",
		"sub-type":  "ensemble.is_sub_type",
		"threshold": "graph.threshold",
		"at-least":  "dataset.at_least",
		"out":       "output.dir",
		"prefix":    "output.prefix",
		"log-level": "logging.level",
	}
	for flag, key := range bindings {
		if !cmd.Flags().Changed(flag) {
			continue
		}
		if err := cfg.Viper().BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return err
		}
	}
	return nil
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := bindAnalyzeFlags(cmd, cfg); err != nil {
		return err
	}
	logger := cfg.CreateLogger()

	orc, req, err := buildInput(cmd, cfg, logger)
	if err != nil {
		return err
	}

	opts, err := cfg.Options(logger)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := pipeline.NewAnalysis(orc, opts).Run(ctx, req)
	if err != nil {
		return err
	}

	event := logger.Info().
		Int("runs", result.Runs).
		Float64("mean_accuracy", result.MeanAccuracy).
		Int("labels", len(result.Labels)).
		Int("edges", len(result.Graph.Edges()))
	if result.SelectionErr == nil {
		event = event.Strs("top_features", result.TopFeatures)
	}
	event.Msg("Analysis finished")

	for _, e := range result.Graph.StrongestEdges(5) {
		logger.Debug().
			Str("from", result.Labels[e.From]).
			Str("to", result.Labels[e.To]).
			Float64("similarity", e.Similarity).
			Msg("Strong edge")
	}
	for _, f := range result.Failures {
		logger.Warn().Int("run", f.Run).Str("error", f.Error).Msg("Skipped run")
	}

	paths, err := output.NewFileWriter().WriteAll(result, cfg.OutputDir(), cfg.OutputPrefix())
	if err != nil {
		return err
	}
	for _, p := range paths {
		logger.Info().Str("path", p).Msg("Wrote output")
	}
	return nil
}

// buildInput picks the classifier and assembles the feature table
func buildInput(cmd *cobra.Command, cfg *pipeline.Config, logger zerolog.Logger) (ensemble.Oracle, pipeline.Request, error) {
	fl := analyzeFlags
	var req pipeline.Request

	switch {
	case fl.runsFile != "" && fl.classifierURL != "":
		return nil, req, fmt.Errorf("--runs and --classifier-url are mutually exclusive")
	case fl.runsFile == "" && fl.classifierURL == "":
		return nil, req, fmt.Errorf("one of --runs or --classifier-url is required")
	}

	if fl.csvFile != "" {
		ds, err := dataset.LoadCSV(fl.csvFile, dataset.Options{
			Features:     fl.features,
			IsSubType:    cfg.IsSubType(),
			AtLeast:      cfg.AtLeast(),
			ExcludeTypes: fl.excludeTypes,
		})
		if err != nil {
			return nil, req, err
		}
		labels, counts := ds.Classes()
		logger.Info().Int("instances", len(ds.Y)).Int("classes", len(labels)).Msg("Loaded feature table")
		for _, l := range labels {
			logger.Debug().Str("label", l).Int("count", counts[l]).Msg("Class size")
		}
		req = pipeline.Request{X: ds.X, Y: ds.Y, SubToMainType: ds.SubToMainType, FeatureOrder: ds.FeatureOrder}
	} else if fl.classifierURL != "" {
		return nil, req, fmt.Errorf("--classifier-url needs --csv")
	}

	if fl.oneVsRest != "" {
		req.Y = dataset.OneVsRest(req.Y, fl.oneVsRest)
		req.SubToMainType = models.DomainMap{fl.oneVsRest: fl.oneVsRest, "non-" + fl.oneVsRest: "non-" + fl.oneVsRest}
	}

	if fl.domainsFile != "" {
		dm, err := dataset.LoadDomainMap(fl.domainsFile)
		if err != nil {
			return nil, req, err
		}
		req.SubToMainType = dm
	}

	if fl.classifierURL != "" {
		return oracle.NewHTTPClassifier(fl.classifierURL, cfg.ClassifierTimeout()), req, nil
	}

	replay, err := oracle.LoadReplay(fl.runsFile)
	if err != nil {
		return nil, req, err
	}
	if !cmd.Flags().Changed("num-runs") && !cfg.Viper().InConfig("ensemble.runs") {
		cfg.Set("ensemble.runs", replay.Len())
	}
	if len(req.FeatureOrder) == 0 {
		req.FeatureOrder = fl.features
	}
	if len(req.FeatureOrder) == 0 {
		req.FeatureOrder = replay.First().Importances.Names()
	}
	if req.SubToMainType == nil {
		// no domains known: every label is its own domain
		cfg.Set("ensemble.is_sub_type", false)
	}
	logger.Info().Str("file", fl.runsFile).Int("records", replay.Len()).Msg("Loaded recorded runs")
	return replay, req, nil
}
