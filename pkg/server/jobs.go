package server

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gilchrisn/network-type-similarity/pkg/ensemble"
	"github.com/gilchrisn/network-type-similarity/pkg/models"
	"github.com/gilchrisn/network-type-similarity/pkg/oracle"
	"github.com/gilchrisn/network-type-similarity/pkg/pipeline"
)

var (
	ErrJobNotFound    = errors.New("job not found")
	ErrResultNotReady = errors.New("result not ready")
)

// JobConfig configures background analysis processing
type JobConfig struct {
	MaxJobs           int
	JobTimeout        time.Duration
	JobTTL            time.Duration
	CleanupInterval   time.Duration
	ClassifierTimeout time.Duration
	Defaults          pipeline.Options
}

// DefaultJobConfig returns sensible default configuration
func DefaultJobConfig() JobConfig {
	return JobConfig{
		MaxJobs:           4,
		JobTimeout:        10 * time.Minute,
		JobTTL:            time.Hour,
		CleanupInterval:   5 * time.Minute,
		ClassifierTimeout: time.Minute,
		Defaults:          pipeline.DefaultOptions(),
	}
}

// JobService handles background analysis jobs
type JobService struct {
	jobs    map[string]*Job
	results map[string]*pipeline.Result
	cancels map[string]context.CancelFunc
	workers chan struct{}
	config  JobConfig
	mutex   sync.RWMutex
	wg      sync.WaitGroup
	done    chan struct{}
}

// NewJobService creates a new job service and starts its cleanup loop
func NewJobService(config JobConfig) *JobService {
	if config.MaxJobs <= 0 {
		config.MaxJobs = 1
	}
	service := &JobService{
		jobs:    make(map[string]*Job),
		results: make(map[string]*pipeline.Result),
		cancels: make(map[string]context.CancelFunc),
		workers: make(chan struct{}, config.MaxJobs),
		config:  config,
		done:    make(chan struct{}),
	}

	if config.CleanupInterval > 0 {
		go service.cleanupLoop()
	}

	return service
}

// Submit validates an analysis request and queues it
func (s *JobService) Submit(req *AnalysisRequest) (*Job, error) {
	jobID := uuid.New().String()

	analysis, pipelineReq, source, err := s.prepare(jobID, req)
	if err != nil {
		return nil, fmt.Errorf("invalid analysis request: %w", err)
	}

	now := time.Now()
	job := &Job{
		ID:         jobID,
		Name:       req.Name,
		Source:     source,
		Parameters: req.Parameters,
		Status:     JobStatusQueued,
		Progress:   JobProgress{Percentage: 0, Message: "Queued"},
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if s.config.JobTimeout > 0 {
		ctx, cancel = context.WithTimeout(context.Background(), s.config.JobTimeout)
	} else {
		ctx, cancel = context.WithCancel(context.Background())
	}

	s.mutex.Lock()
	s.jobs[jobID] = job
	s.cancels[jobID] = cancel
	snap := job.snapshot()
	s.mutex.Unlock()

	log.Info().
		Str("job_id", jobID).
		Str("source", string(source)).
		Int("features", len(req.FeatureOrder)).
		Msg("Job submitted")

	s.wg.Add(1)
	go s.processJob(ctx, jobID, analysis, pipelineReq)

	return snap, nil
}

// Get retrieves a job by ID
func (s *JobService) Get(jobID string) (*Job, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	job, exists := s.jobs[jobID]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	return job.snapshot(), nil
}

// GetResult retrieves the analysis result of a completed job
func (s *JobService) GetResult(jobID string) (*pipeline.Result, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	job, exists := s.jobs[jobID]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	result, exists := s.results[jobID]
	if !exists {
		return nil, fmt.Errorf("%w: job %s is %s", ErrResultNotReady, jobID, job.Status)
	}
	return result, nil
}

// List returns all jobs, newest first
func (s *JobService) List() []*Job {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	jobs := make([]*Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		jobs = append(jobs, job.snapshot())
	}
	sortJobs(jobs)
	return jobs
}

// Cancel stops a queued or running job
func (s *JobService) Cancel(jobID string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	job, exists := s.jobs[jobID]
	if !exists {
		return fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}

	if job.Status == JobStatusQueued || job.Status == JobStatusRunning {
		job.Status = JobStatusCancelled
		job.Progress.Message = "Cancelled"
		now := time.Now()
		job.CompletedAt = &now
		job.UpdatedAt = now
		if cancel, ok := s.cancels[jobID]; ok {
			cancel()
		}

		log.Info().
			Str("job_id", jobID).
			Msg("Job cancelled")
	}

	return nil
}

// Close stops the cleanup loop and waits for running jobs
func (s *JobService) Close() {
	select {
	case <-s.done:
	default:
		close(s.done)
	}
	s.wg.Wait()
}

// processJob runs an analysis in the background
func (s *JobService) processJob(ctx context.Context, jobID string, analysis *pipeline.Analysis, req pipeline.Request) {
	defer s.wg.Done()
	defer s.releaseCancel(jobID)

	// Acquire worker slot
	select {
	case s.workers <- struct{}{}:
	case <-ctx.Done():
		s.failJob(jobID, ctx.Err())
		return
	}
	defer func() { <-s.workers }()

	startTime := time.Now()
	if !s.start(jobID, startTime) {
		return
	}

	log.Info().
		Str("job_id", jobID).
		Msg("Job processing started")

	result, err := analysis.Run(ctx, req)
	if err != nil {
		s.failJob(jobID, fmt.Errorf("analysis failed: %w", err))
		return
	}

	s.completeJob(jobID, result, time.Since(startTime))
}

// start moves a queued job to running; false if it was cancelled meanwhile
func (s *JobService) start(jobID string, startTime time.Time) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	job, exists := s.jobs[jobID]
	if !exists || job.Status != JobStatusQueued {
		return false
	}
	job.Status = JobStatusRunning
	job.Progress = JobProgress{Percentage: 10, Message: "Running ensemble"}
	job.StartedAt = &startTime
	job.UpdatedAt = startTime
	return true
}

// completeJob marks a job as completed with results
func (s *JobService) completeJob(jobID string, result *pipeline.Result, elapsed time.Duration) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	job, exists := s.jobs[jobID]
	if !exists || job.Status != JobStatusRunning {
		return
	}

	job.Status = JobStatusCompleted
	job.Progress = JobProgress{Percentage: 100, Message: "Complete"}
	now := time.Now()
	job.CompletedAt = &now
	job.UpdatedAt = now

	isolated := make([]string, 0)
	for _, n := range result.Graph.Isolated() {
		isolated = append(isolated, n.Label)
	}
	job.Result = &JobResult{
		Labels:           result.Labels,
		Runs:             result.Runs,
		MeanAccuracy:     result.MeanAccuracy,
		TopFeatures:      result.TopFeatures,
		Edges:            len(result.Graph.Edges()),
		Isolated:         isolated,
		Failures:         result.Failures,
		ProcessingTimeMS: elapsed.Milliseconds(),
	}
	s.results[jobID] = result

	log.Info().
		Str("job_id", jobID).
		Int("labels", len(result.Labels)).
		Float64("mean_accuracy", result.MeanAccuracy).
		Int64("processing_time_ms", elapsed.Milliseconds()).
		Msg("Job completed successfully")
}

// failJob marks a job as failed unless it was already cancelled
func (s *JobService) failJob(jobID string, err error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	job, exists := s.jobs[jobID]
	if !exists || job.Status == JobStatusCancelled {
		return
	}

	job.Status = JobStatusFailed
	job.Error = err.Error()
	job.Progress.Message = "Failed"
	now := time.Now()
	job.CompletedAt = &now
	job.UpdatedAt = now

	log.Error().
		Str("job_id", jobID).
		Err(err).
		Msg("Job failed")
}

func (s *JobService) releaseCancel(jobID string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if cancel, ok := s.cancels[jobID]; ok {
		cancel()
		delete(s.cancels, jobID)
	}
}

// cleanupLoop periodically cleans up old jobs and results
func (s *JobService) cleanupLoop() {
	ticker := time.NewTicker(s.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.cleanup(time.Now())
		case <-s.done:
			return
		}
	}
}

// cleanup removes finished jobs not updated within the TTL
func (s *JobService) cleanup(now time.Time) int {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	cutoff := now.Add(-s.config.JobTTL)
	cleaned := 0

	for jobID, job := range s.jobs {
		if job.Status == JobStatusQueued || job.Status == JobStatusRunning {
			continue
		}
		if job.UpdatedAt.Before(cutoff) {
			delete(s.jobs, jobID)
			delete(s.results, jobID)
			cleaned++
		}
	}

	if cleaned > 0 {
		log.Info().
			Int("cleaned_jobs", cleaned).
			Msg("Job cleanup completed")
	}
	return cleaned
}

// prepare turns a request into a ready-to-run analysis
func (s *JobService) prepare(jobID string, req *AnalysisRequest) (*pipeline.Analysis, pipeline.Request, OracleSource, error) {
	var (
		orc    ensemble.Oracle
		source OracleSource
	)
	switch {
	case len(req.Runs) > 0 && req.ClassifierURL != "":
		return nil, pipeline.Request{}, "", fmt.Errorf("runs and classifierUrl are mutually exclusive")
	case len(req.Runs) > 0:
		replay, err := oracle.NewReplay(req.Runs)
		if err != nil {
			return nil, pipeline.Request{}, "", err
		}
		orc, source = replay, SourceRecorded
	case req.ClassifierURL != "":
		orc = oracle.NewHTTPClassifier(req.ClassifierURL, s.config.ClassifierTimeout)
		source = SourceClassifier
	default:
		return nil, pipeline.Request{}, "", fmt.Errorf("either runs or classifierUrl is required")
	}

	if len(req.FeatureOrder) == 0 {
		return nil, pipeline.Request{}, "", fmt.Errorf("featureOrder is required")
	}

	opts, err := applyParameters(s.config.Defaults, req.Parameters)
	if err != nil {
		return nil, pipeline.Request{}, "", err
	}
	if req.Parameters.Runs == nil && source == SourceRecorded {
		opts.Ensemble.Runs = len(req.Runs)
	}
	if opts.Ensemble.Runs < 1 {
		return nil, pipeline.Request{}, "", fmt.Errorf("runs must be >= 1, got %d", opts.Ensemble.Runs)
	}
	opts.Logger = log.With().Str("job_id", jobID).Logger()

	return pipeline.NewAnalysis(orc, opts), pipeline.Request{
		X:             req.X,
		Y:             req.Y,
		SubToMainType: req.SubToMainType,
		FeatureOrder:  req.FeatureOrder,
	}, source, nil
}

func applyParameters(opts pipeline.Options, p AnalysisParameters) (pipeline.Options, error) {
	if p.Runs != nil {
		opts.Ensemble.Runs = *p.Runs
	}
	if p.Parallel != nil {
		opts.Ensemble.Parallel = *p.Parallel
	}
	if p.FailurePolicy != nil {
		policy, err := ensemble.ParsePolicy(*p.FailurePolicy)
		if err != nil {
			return opts, err
		}
		opts.Ensemble.Policy = policy
	}
	if p.SamplingMethod != nil {
		sampling := models.SamplingMethod(*p.SamplingMethod)
		if err := sampling.Validate(); err != nil {
			return opts, err
		}
		opts.Sampling = sampling
	}
	if p.IsSubType != nil {
		opts.IsSubType = *p.IsSubType
	}
	if p.Threshold != nil {
		opts.Graph.Threshold = *p.Threshold
	}
	if p.WeightScale != nil {
		if *p.WeightScale <= 0 {
			return opts, fmt.Errorf("weightScale must be positive, got %v", *p.WeightScale)
		}
		opts.Graph.WeightScale = *p.WeightScale
	}
	if p.DistanceScale != nil {
		if *p.DistanceScale <= 0 {
			return opts, fmt.Errorf("distanceScale must be positive, got %v", *p.DistanceScale)
		}
		opts.DistanceScale = *p.DistanceScale
	}
	if p.Select != nil {
		if *p.Select < 1 {
			return opts, fmt.Errorf("select must be >= 1, got %d", *p.Select)
		}
		opts.Select = *p.Select
	}
	return opts, nil
}

func sortJobs(jobs []*Job) {
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].CreatedAt.After(jobs[j].CreatedAt)
	})
}

func (job *Job) snapshot() *Job {
	cp := *job
	return &cp
}
