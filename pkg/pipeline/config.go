package pipeline

import (
	"os"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/gilchrisn/network-type-similarity/pkg/ensemble"
	"github.com/gilchrisn/network-type-similarity/pkg/models"
	"github.com/gilchrisn/network-type-similarity/pkg/simgraph"
	"github.com/gilchrisn/network-type-similarity/pkg/similarity"
)

// Config manages analysis configuration using Viper
type Config struct {
	v *viper.Viper
}

// NewConfig creates a new configuration with defaults
func NewConfig() *Config {
	v := viper.New()

	// Ensemble parameters
	v.SetDefault("ensemble.runs", 10)
	v.SetDefault("ensemble.parallel", false)
	v.SetDefault("ensemble.num_workers", runtime.NumCPU())
	v.SetDefault("ensemble.failure_policy", string(ensemble.PolicyAbort))
	v.SetDefault("ensemble.sampling_method", string(models.SamplingNone))
	v.SetDefault("ensemble.is_sub_type", true)

	// Views
	v.SetDefault("similarity.distance_scale", similarity.DefaultDistanceScale)
	v.SetDefault("graph.threshold", 0.0)
	v.SetDefault("graph.weight_scale", 50.0)
	v.SetDefault("features.select", 2)

	v.SetDefault("dataset.at_least", 6)

	v.SetDefault("logging.level", "info")

	v.SetDefault("output.dir", "output")
	v.SetDefault("output.prefix", "netsim")

	// Server parameters
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.max_jobs", 4)
	v.SetDefault("server.job_timeout", 10*time.Minute)
	v.SetDefault("server.job_ttl", time.Hour)
	v.SetDefault("server.cleanup_interval", 5*time.Minute)
	v.SetDefault("server.classifier_timeout", time.Minute)

	return &Config{v: v}
}

// LoadFromFile loads configuration from file
func (c *Config) LoadFromFile(path string) error {
	c.v.SetConfigFile(path)
	return c.v.ReadInConfig()
}

// Getters for ensemble parameters
func (c *Config) Runs() int              { return c.v.GetInt("ensemble.runs") }
func (c *Config) Parallel() bool         { return c.v.GetBool("ensemble.parallel") }
func (c *Config) NumWorkers() int        { return c.v.GetInt("ensemble.num_workers") }
func (c *Config) FailurePolicy() string  { return c.v.GetString("ensemble.failure_policy") }
func (c *Config) SamplingMethod() string { return c.v.GetString("ensemble.sampling_method") }
func (c *Config) IsSubType() bool        { return c.v.GetBool("ensemble.is_sub_type") }

func (c *Config) DistanceScale() float64  { return c.v.GetFloat64("similarity.distance_scale") }
func (c *Config) GraphThreshold() float64 { return c.v.GetFloat64("graph.threshold") }
func (c *Config) WeightScale() float64    { return c.v.GetFloat64("graph.weight_scale") }
func (c *Config) SelectFeatures() int     { return c.v.GetInt("features.select") }

func (c *Config) AtLeast() int { return c.v.GetInt("dataset.at_least") }

func (c *Config) LogLevel() string { return c.v.GetString("logging.level") }

func (c *Config) OutputDir() string    { return c.v.GetString("output.dir") }
func (c *Config) OutputPrefix() string { return c.v.GetString("output.prefix") }

func (c *Config) ServerAddress() string            { return c.v.GetString("server.address") }
func (c *Config) ReadTimeout() time.Duration       { return c.v.GetDuration("server.read_timeout") }
func (c *Config) WriteTimeout() time.Duration      { return c.v.GetDuration("server.write_timeout") }
func (c *Config) MaxJobs() int                     { return c.v.GetInt("server.max_jobs") }
func (c *Config) JobTimeout() time.Duration        { return c.v.GetDuration("server.job_timeout") }
func (c *Config) JobTTL() time.Duration            { return c.v.GetDuration("server.job_ttl") }
func (c *Config) CleanupInterval() time.Duration   { return c.v.GetDuration("server.cleanup_interval") }
func (c *Config) ClassifierTimeout() time.Duration { return c.v.GetDuration("server.classifier_timeout") }

// Set allows dynamic configuration changes
func (c *Config) Set(key string, value interface{}) {
	c.v.Set(key, value)
}

// Viper exposes the underlying store for flag binding
func (c *Config) Viper() *viper.Viper {
	return c.v
}

// EnsembleOptions builds runner options from the config
func (c *Config) EnsembleOptions(logger zerolog.Logger) (ensemble.Options, error) {
	policy, err := ensemble.ParsePolicy(c.FailurePolicy())
	if err != nil {
		return ensemble.Options{}, err
	}
	return ensemble.Options{
		Runs:     c.Runs(),
		Parallel: c.Parallel(),
		Workers:  c.NumWorkers(),
		Policy:   policy,
		Logger:   logger,
	}, nil
}

// GraphOptions builds graph builder options from the config
func (c *Config) GraphOptions() simgraph.Options {
	return simgraph.Options{
		Threshold:   c.GraphThreshold(),
		WeightScale: c.WeightScale(),
	}
}

// Options collects everything Analysis needs
func (c *Config) Options(logger zerolog.Logger) (Options, error) {
	ens, err := c.EnsembleOptions(logger)
	if err != nil {
		return Options{}, err
	}
	sampling := models.SamplingMethod(c.SamplingMethod())
	if err := sampling.Validate(); err != nil {
		return Options{}, err
	}
	if err := checkScale(c.DistanceScale()); err != nil {
		return Options{}, err
	}
	return Options{
		Ensemble:      ens,
		DistanceScale: c.DistanceScale(),
		Graph:         c.GraphOptions(),
		Select:        c.SelectFeatures(),
		Sampling:      sampling,
		IsSubType:     c.IsSubType(),
		Logger:        logger,
	}, nil
}

// CreateLogger creates a zerolog logger based on config
func (c *Config) CreateLogger() zerolog.Logger {
	level, err := zerolog.ParseLevel(c.LogLevel())
	if err != nil {
		level = zerolog.InfoLevel
	}

	return zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: "15:04:05",
	}).Level(level).With().Timestamp().Str("service", "netsim").Logger()
}
