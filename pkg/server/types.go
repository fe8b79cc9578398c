package server

import (
	"time"

	"github.com/gilchrisn/network-type-similarity/pkg/ensemble"
	"github.com/gilchrisn/network-type-similarity/pkg/models"
)

// Job represents an analysis job
type Job struct {
	ID          string             `json:"id"`
	Name        string             `json:"name,omitempty"`
	Source      OracleSource       `json:"source"`
	Parameters  AnalysisParameters `json:"parameters"`
	Status      JobStatus          `json:"status"`
	Progress    JobProgress        `json:"progress"`
	Result      *JobResult         `json:"result,omitempty"`
	Error       string             `json:"error,omitempty"`
	CreatedAt   time.Time          `json:"createdAt"`
	UpdatedAt   time.Time          `json:"updatedAt"`
	StartedAt   *time.Time         `json:"startedAt,omitempty"`
	CompletedAt *time.Time         `json:"completedAt,omitempty"`
}

type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// OracleSource says where classifier runs come from
type OracleSource string

const (
	SourceRecorded   OracleSource = "recorded"
	SourceClassifier OracleSource = "classifier"
)

type JobProgress struct {
	Percentage int    `json:"percentage"`
	Message    string `json:"message"`
}

// JobResult is the summary stored on a completed job
type JobResult struct {
	Labels           []string              `json:"labels"`
	Runs             int                   `json:"runs"`
	MeanAccuracy     float64               `json:"meanAccuracy"`
	TopFeatures      []string              `json:"topFeatures,omitempty"`
	Edges            int                   `json:"edges"`
	Isolated         []string              `json:"isolated,omitempty"`
	Failures         []ensemble.RunFailure `json:"failures,omitempty"`
	ProcessingTimeMS int64                 `json:"processingTimeMS"`
}

// AnalysisRequest is the body of POST /analyses. Exactly one of Runs and
// ClassifierURL must be set.
type AnalysisRequest struct {
	Name          string             `json:"name,omitempty"`
	Runs          []models.RunRecord `json:"runs,omitempty"`
	ClassifierURL string             `json:"classifierUrl,omitempty"`
	X             [][]float64        `json:"x,omitempty"`
	Y             []string           `json:"y,omitempty"`
	SubToMainType models.DomainMap   `json:"subToMainType"`
	FeatureOrder  []string           `json:"featureOrder"`
	Parameters    AnalysisParameters `json:"parameters"`
}

// AnalysisParameters override the server configuration for one job
type AnalysisParameters struct {
	Runs           *int     `json:"runs,omitempty"`
	Parallel       *bool    `json:"parallel,omitempty"`
	FailurePolicy  *string  `json:"failurePolicy,omitempty"`
	SamplingMethod *string  `json:"samplingMethod,omitempty"`
	IsSubType      *bool    `json:"isSubType,omitempty"`
	Threshold      *float64 `json:"threshold,omitempty"`
	WeightScale    *float64 `json:"weightScale,omitempty"`
	DistanceScale  *float64 `json:"distanceScale,omitempty"`
	Select         *int     `json:"select,omitempty"`
}

// APIResponse is the envelope of every response
type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

type AnalysisResponse struct {
	JobID string `json:"jobId"`
	Job   Job    `json:"job"`
}
