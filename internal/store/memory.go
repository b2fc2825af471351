// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/pdiddy/research-assistant/pkg/types"
)

// MemoryStore is a process-local JobStore. It backs tests and runs
// configured without a database path.
type MemoryStore struct {
	mu      sync.RWMutex
	jobs    map[string]types.ResearchJob
	results map[string]types.ResearchResult
}

// NewMemoryStore builds an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		jobs:    make(map[string]types.ResearchJob),
		results: make(map[string]types.ResearchResult),
	}
}

// CreateJob records a new job.
func (m *MemoryStore) CreateJob(_ context.Context, job types.ResearchJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[job.ID] = job
	return nil
}

// UpdateJob overwrites an existing job.
func (m *MemoryStore) UpdateJob(_ context.Context, job types.ResearchJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[job.ID]; !ok {
		return fmt.Errorf("job %s: %w", job.ID, types.ErrJobNotFound)
	}
	m.jobs[job.ID] = job
	return nil
}

// GetJob returns one job by id.
func (m *MemoryStore) GetJob(_ context.Context, id string) (types.ResearchJob, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, ok := m.jobs[id]
	if !ok {
		return types.ResearchJob{}, fmt.Errorf("job %s: %w", id, types.ErrJobNotFound)
	}
	return job, nil
}

// ListJobs returns jobs newest first.
func (m *MemoryStore) ListJobs(_ context.Context, limit int) ([]types.ResearchJob, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	jobs := make([]types.ResearchJob, 0, len(m.jobs))
	for _, j := range m.jobs {
		jobs = append(jobs, j)
	}
	sort.SliceStable(jobs, func(i, j int) bool {
		if !jobs[i].CreatedAt.Equal(jobs[j].CreatedAt) {
			return jobs[i].CreatedAt.After(jobs[j].CreatedAt)
		}
		return jobs[i].ID > jobs[j].ID
	})
	if limit > 0 && len(jobs) > limit {
		jobs = jobs[:limit]
	}
	return jobs, nil
}

// DeleteJob removes a job and any result.
func (m *MemoryStore) DeleteJob(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[id]; !ok {
		return fmt.Errorf("job %s: %w", id, types.ErrJobNotFound)
	}
	delete(m.jobs, id)
	delete(m.results, id)
	return nil
}

// PutResult stores a finished job's result.
func (m *MemoryStore) PutResult(_ context.Context, result types.ResearchResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[result.JobID] = result
	return nil
}

// GetResult returns a finished job's result.
func (m *MemoryStore) GetResult(_ context.Context, jobID string) (types.ResearchResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result, ok := m.results[jobID]
	if !ok {
		return types.ResearchResult{}, fmt.Errorf("result for job %s: %w", jobID, types.ErrJobNotFound)
	}
	return result, nil
}
