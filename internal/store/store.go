// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists research jobs, their results, and document
// passages. Two implementations exist: an in-memory store for tests and
// ephemeral runs, and a SQLite store for durable history.
package store

import (
	"context"

	"github.com/pdiddy/research-assistant/pkg/types"
)

// JobStore is the job-history persistence contract shared by the
// pipeline and the HTTP API.
type JobStore interface {
	// CreateJob records a newly submitted job.
	CreateJob(ctx context.Context, job types.ResearchJob) error

	// UpdateJob overwrites a job's mutable fields (status, stage,
	// warnings, failure reason).
	UpdateJob(ctx context.Context, job types.ResearchJob) error

	// GetJob returns one job, or ErrJobNotFound.
	GetJob(ctx context.Context, id string) (types.ResearchJob, error)

	// ListJobs returns jobs newest first, at most limit entries.
	ListJobs(ctx context.Context, limit int) ([]types.ResearchJob, error)

	// DeleteJob removes a job and its result, or ErrJobNotFound.
	DeleteJob(ctx context.Context, id string) error

	// PutResult stores a finished job's result.
	PutResult(ctx context.Context, result types.ResearchResult) error

	// GetResult returns a finished job's result, or ErrJobNotFound.
	GetResult(ctx context.Context, jobID string) (types.ResearchResult, error)
}
