// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline runs research jobs through retrieval, summarization,
// and synthesis, tracking progress in the job store.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pdiddy/research-assistant/internal/aggregate"
	"github.com/pdiddy/research-assistant/internal/connector"
	"github.com/pdiddy/research-assistant/internal/report"
	"github.com/pdiddy/research-assistant/internal/store"
	"github.com/pdiddy/research-assistant/internal/summarize"
	"github.com/pdiddy/research-assistant/internal/synthesize"
	"github.com/pdiddy/research-assistant/pkg/types"
)

// Engine owns the job worker pool. Submissions return immediately; a
// bounded number of jobs execute concurrently while the rest wait in
// the queued status.
type Engine struct {
	connectors  []connector.Connector
	aggregator  *aggregate.Aggregator
	summarizer  *summarize.Summarizer
	synthesizer *synthesize.Synthesizer
	jobs        store.JobStore
	log         *zap.Logger

	slots   chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	cancels map[string]context.CancelFunc
	closed  bool
}

// New builds an Engine with a worker pool of the given size.
func New(
	connectors []connector.Connector,
	aggregator *aggregate.Aggregator,
	summarizer *summarize.Summarizer,
	synthesizer *synthesize.Synthesizer,
	jobs store.JobStore,
	workers int,
	log *zap.Logger,
) *Engine {
	if workers <= 0 {
		workers = 2
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		connectors:  connectors,
		aggregator:  aggregator,
		summarizer:  summarizer,
		synthesizer: synthesizer,
		jobs:        jobs,
		log:         log,
		slots:       make(chan struct{}, workers),
		cancels:     make(map[string]context.CancelFunc),
	}
}

// Submit validates the request, records a queued job, and schedules it.
// The job runs asynchronously; callers poll Status.
func (e *Engine) Submit(ctx context.Context, req types.ResearchRequest) (types.ResearchJob, error) {
	if err := req.Validate(); err != nil {
		return types.ResearchJob{}, fmt.Errorf("invalid request: %w", err)
	}

	now := time.Now()
	job := types.ResearchJob{
		ID:        uuid.NewString(),
		Request:   req,
		Status:    types.JobQueued,
		Stage:     types.StageQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := e.jobs.CreateJob(ctx, job); err != nil {
		return types.ResearchJob{}, fmt.Errorf("recording job: %w", err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		cancel()
		return types.ResearchJob{}, fmt.Errorf("engine is shutting down")
	}
	e.cancels[job.ID] = cancel
	e.wg.Add(1)
	e.mu.Unlock()

	go func() {
		defer e.wg.Done()
		defer e.release(job.ID)

		select {
		case e.slots <- struct{}{}:
			defer func() { <-e.slots }()
		case <-runCtx.Done():
			e.finish(job, types.JobCancelled, "cancelled while queued")
			return
		}
		e.run(runCtx, job)
	}()

	return job, nil
}

// Cancel requests termination of a queued or running job. The job moves
// to cancelled once the current stage observes the cancellation.
func (e *Engine) Cancel(ctx context.Context, jobID string) error {
	job, err := e.jobs.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Status.Terminal() {
		return fmt.Errorf("job %s already %s", jobID, job.Status)
	}

	e.mu.Lock()
	cancel, ok := e.cancels[jobID]
	e.mu.Unlock()
	if !ok {
		return fmt.Errorf("job %s: %w", jobID, types.ErrJobNotFound)
	}
	cancel()
	return nil
}

// Close stops accepting submissions and waits for in-flight jobs.
func (e *Engine) Close() {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()
	e.wg.Wait()
}

// run executes one job's stages, checking for cancellation between
// stages. Per-item degradations accumulate as warnings; only a
// whole-stage failure fails the job.
func (e *Engine) run(ctx context.Context, job types.ResearchJob) {
	started := time.Now()
	log := e.log.With(zap.String("job", job.ID))
	log.Info("job started", zap.String("query", job.Request.Query))

	job.Status = types.JobRunning
	job.Stage = types.StageRetrieval
	e.update(job)

	conns := connector.ForSources(e.connectors, job.Request.EffectiveSources())
	gathered, err := e.aggregator.Gather(ctx, conns, job.Request)
	if err != nil {
		e.fail(ctx, job, fmt.Errorf("retrieval: %w", err))
		return
	}
	job.Warnings = append(job.Warnings, gathered.Warnings...)
	log.Info("retrieval finished",
		zap.Int("papers", len(gathered.Papers)),
		zap.Int("warnings", len(gathered.Warnings)))

	if e.cancelled(ctx, job) {
		return
	}

	result := types.ResearchResult{
		JobID:  job.ID,
		Query:  job.Request.Query,
		Papers: gathered.Papers,
	}

	// No papers is a degraded but valid outcome: the warnings tell the
	// story and the job completes with an empty result.
	if len(gathered.Papers) > 0 {
		job.Stage = types.StageSummarizing
		e.update(job)

		summaries, warnings := e.summarizer.Batch(ctx, gathered.Papers)
		job.Warnings = append(job.Warnings, warnings...)
		result.Summaries = summaries
		log.Info("summarization finished",
			zap.Int("summaries", len(summaries)),
			zap.Int("failed", len(warnings)))

		if e.cancelled(ctx, job) {
			return
		}

		if len(summaries) == 0 {
			e.fail(ctx, job, fmt.Errorf("summarization: %w: no paper could be summarized", types.ErrInsufficientData))
			return
		}

		job.Stage = types.StageSynthesis
		e.update(job)

		rep, err := e.synthesizer.Synthesize(ctx, job.Request.Query, summaries)
		if err != nil {
			e.fail(ctx, job, err)
			return
		}
		result.Report = rep
	}

	if e.cancelled(ctx, job) {
		return
	}

	result.Warnings = job.Warnings
	result.ProcessingTime = time.Since(started)
	result.CreatedAt = time.Now()
	result.FormattedReport = report.Render(result)
	if err := e.jobs.PutResult(context.Background(), result); err != nil {
		e.fail(ctx, job, fmt.Errorf("persisting result: %w", err))
		return
	}

	job.Stage = types.StageDone
	e.finish(job, types.JobCompleted, "")
	log.Info("job completed", zap.Duration("elapsed", result.ProcessingTime))
}

// cancelled checks the context between stages and finalizes the job as
// cancelled when it has fired.
func (e *Engine) cancelled(ctx context.Context, job types.ResearchJob) bool {
	if ctx.Err() == nil {
		return false
	}
	e.finish(job, types.JobCancelled, "cancelled by request")
	e.log.Info("job cancelled", zap.String("job", job.ID), zap.String("stage", string(job.Stage)))
	return true
}

func (e *Engine) fail(ctx context.Context, job types.ResearchJob, cause error) {
	// Cancellation can surface as a stage error; report it as such.
	if ctx.Err() != nil || errors.Is(cause, context.Canceled) {
		e.finish(job, types.JobCancelled, "cancelled by request")
		return
	}
	e.log.Warn("job failed", zap.String("job", job.ID), zap.Error(cause))
	e.finish(job, types.JobFailed, cause.Error())
}

func (e *Engine) finish(job types.ResearchJob, status types.JobStatus, reason string) {
	job.Status = status
	job.FailureReason = reason
	if status == types.JobCompleted {
		job.FailureReason = ""
	}
	e.update(job)
}

func (e *Engine) update(job types.ResearchJob) {
	job.UpdatedAt = time.Now()
	// Job bookkeeping must outlive the job's own context.
	if err := e.jobs.UpdateJob(context.Background(), job); err != nil {
		e.log.Error("updating job", zap.String("job", job.ID), zap.Error(err))
	}
}

func (e *Engine) release(jobID string) {
	e.mu.Lock()
	if cancel, ok := e.cancels[jobID]; ok {
		cancel()
		delete(e.cancels, jobID)
	}
	e.mu.Unlock()
}
