// Package store persists jobs and consolidated facts. SQLite is the default
// backend for single-machine runs; Postgres serves shared deployments.
package store

import (
	"context"

	"github.com/atlas-esg/esia-review/internal/model"
)

// JobFilter specifies criteria for listing jobs.
type JobFilter struct {
	Status       model.JobStatus `json:"status,omitempty"`
	DocumentPath string          `json:"document_path,omitempty"`
	Limit        int             `json:"limit,omitempty"`
	Offset       int             `json:"offset,omitempty"`
}

// FactFilter specifies criteria for listing stored facts.
type FactFilter struct {
	Category     string `json:"category,omitempty"`
	ConflictOnly bool   `json:"conflict_only,omitempty"`
	Limit        int    `json:"limit,omitempty"`
}

// Store defines the persistence interface for the analysis pipeline.
type Store interface {
	// Jobs
	CreateJob(ctx context.Context, doc model.DocumentRef) (*model.Job, error)
	UpdateJobStatus(ctx context.Context, jobID string, status model.JobStatus) error
	UpdateJobResult(ctx context.Context, jobID string, status model.JobStatus, result *model.JobResult) error
	GetJob(ctx context.Context, jobID string) (*model.Job, error)
	ListJobs(ctx context.Context, filter JobFilter) ([]model.Job, error)

	// Facts
	SaveFacts(ctx context.Context, jobID string, facts []model.ConsolidatedFact) error
	ListFacts(ctx context.Context, jobID string, filter FactFilter) ([]model.ConsolidatedFact, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
