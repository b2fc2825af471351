// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// JobStatus is the lifecycle state of a research job.
type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
	JobCancelled JobStatus = "cancelled"
)

// Terminal reports whether the status is final.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed || s == JobCancelled
}

// ProgressStage names the pipeline stage a running job is executing.
type ProgressStage string

const (
	StageQueued      ProgressStage = "queued"
	StageRetrieval   ProgressStage = "retrieval"
	StageSummarizing ProgressStage = "summarizing"
	StageSynthesis   ProgressStage = "synthesis"
	StageDone        ProgressStage = "done"
)

// Warning records a recovered per-item failure (one source down, one
// paper's summary unobtainable) attached to a job rather than failing it.
type Warning struct {
	// Stage is the pipeline stage that produced the warning.
	Stage ProgressStage `json:"stage" yaml:"stage"`

	// Subject names the degraded item: a source name or a paper id.
	Subject string `json:"subject" yaml:"subject"`

	// Message explains the degradation.
	Message string `json:"message" yaml:"message"`
}

// ResearchJob tracks one research request through the pipeline. Only the
// stage currently executing mutates the record; it is retained in the
// history store until explicitly deleted.
type ResearchJob struct {
	// ID is an opaque unique token assigned at submission.
	ID string `json:"id" yaml:"id"`

	// Request holds the submitted query parameters.
	Request ResearchRequest `json:"request" yaml:"request"`

	// Status is the lifecycle state.
	Status JobStatus `json:"status" yaml:"status"`

	// Stage is the pipeline stage currently executing.
	Stage ProgressStage `json:"stage" yaml:"stage"`

	// Warnings accumulates recovered per-item failures.
	Warnings []Warning `json:"warnings,omitempty" yaml:"warnings,omitempty"`

	// FailureReason explains a terminal failed status.
	FailureReason string `json:"failure_reason,omitempty" yaml:"failure_reason,omitempty"`

	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// ResearchResult is the complete outcome of a finished job.
type ResearchResult struct {
	// JobID links the result back to its job record.
	JobID string `json:"job_id" yaml:"job_id"`

	// Query is the original research question.
	Query string `json:"query" yaml:"query"`

	// Papers are the ranked, deduplicated papers the aggregator returned.
	Papers []Paper `json:"papers" yaml:"papers"`

	// Summaries holds one entry per successfully summarized paper.
	Summaries []PaperSummary `json:"summaries" yaml:"summaries"`

	// Report is the cross-paper synthesis.
	Report SynthesisReport `json:"report" yaml:"report"`

	// FormattedReport is a rendered Markdown presentation of the result.
	FormattedReport string `json:"formatted_report,omitempty" yaml:"formatted_report,omitempty"`

	// Warnings carries the job's accumulated degradations.
	Warnings []Warning `json:"warnings,omitempty" yaml:"warnings,omitempty"`

	// ProcessingTime is the wall-clock duration of the pipeline run.
	ProcessingTime time.Duration `json:"processing_time" yaml:"processing_time"`

	// CreatedAt is when the result was persisted.
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}
