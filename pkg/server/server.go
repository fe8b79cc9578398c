// Package server exposes the analysis pipeline over HTTP as background
// jobs with JSON views for renderers.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/gilchrisn/network-type-similarity/pkg/pipeline"
)

// Config holds HTTP and job settings
type Config struct {
	Address        string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	AllowedOrigins []string
	Jobs           JobConfig
}

// ConfigFrom reads server settings from the pipeline configuration
func ConfigFrom(cfg *pipeline.Config) (Config, error) {
	defaults, err := cfg.Options(log.Logger)
	if err != nil {
		return Config{}, err
	}
	return Config{
		Address:        cfg.ServerAddress(),
		ReadTimeout:    cfg.ReadTimeout(),
		WriteTimeout:   cfg.WriteTimeout(),
		AllowedOrigins: []string{"*"},
		Jobs: JobConfig{
			MaxJobs:           cfg.MaxJobs(),
			JobTimeout:        cfg.JobTimeout(),
			JobTTL:            cfg.JobTTL(),
			CleanupInterval:   cfg.CleanupInterval(),
			ClassifierTimeout: cfg.ClassifierTimeout(),
			Defaults:          defaults,
		},
	}, nil
}

// Server is the HTTP front of the job service
type Server struct {
	httpServer *http.Server
	jobs       *JobService
}

// New wires handlers, routes and middleware
func New(cfg Config) *Server {
	jobs := NewJobService(cfg.Jobs)

	router := mux.NewRouter()
	SetupRoutes(router, NewHandlers(jobs))
	router.Use(LoggingMiddleware)
	router.Use(RecoveryMiddleware)

	return &Server{
		httpServer: &http.Server{
			Addr:         cfg.Address,
			Handler:      CORS(cfg.AllowedOrigins).Handler(router),
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		jobs: jobs,
	}
}

// Handler returns the root handler
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Jobs returns the job service
func (s *Server) Jobs() *JobService {
	return s.jobs
}

// ListenAndServe blocks until the server stops. A graceful shutdown is not
// reported as an error.
func (s *Server) ListenAndServe() error {
	log.Info().
		Str("address", s.httpServer.Addr).
		Msg("HTTP server starting")

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the HTTP server and waits for running jobs to finish
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)

	done := make(chan struct{})
	go func() {
		s.jobs.Close()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		if err == nil {
			err = ctx.Err()
		}
	}
	return err
}
