// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/pdiddy/research-assistant/pkg/types"
)

func newSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(types.StoreConfig{Path: filepath.Join(t.TempDir(), "research.db")})
	if err != nil {
		t.Fatalf("NewSQLiteStore() error: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// stores runs a subtest against both JobStore implementations.
func stores(t *testing.T, fn func(t *testing.T, s JobStore)) {
	t.Run("memory", func(t *testing.T) { fn(t, NewMemoryStore()) })
	t.Run("sqlite", func(t *testing.T) { fn(t, newSQLite(t)) })
}

func job(id string, createdAt time.Time) types.ResearchJob {
	return types.ResearchJob{
		ID:        id,
		Request:   types.ResearchRequest{Query: "test query", MaxPapers: 10},
		Status:    types.JobQueued,
		Stage:     types.StageQueued,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

func TestJobLifecycle(t *testing.T) {
	stores(t, func(t *testing.T, s JobStore) {
		ctx := context.Background()
		created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

		if err := s.CreateJob(ctx, job("j1", created)); err != nil {
			t.Fatalf("CreateJob() error: %v", err)
		}

		got, err := s.GetJob(ctx, "j1")
		if err != nil {
			t.Fatalf("GetJob() error: %v", err)
		}
		if got.Request.Query != "test query" || got.Status != types.JobQueued {
			t.Errorf("GetJob() = %+v", got)
		}

		got.Status = types.JobRunning
		got.Stage = types.StageRetrieval
		got.Warnings = []types.Warning{{Stage: types.StageRetrieval, Subject: "pubmed", Message: "down"}}
		got.UpdatedAt = created.Add(time.Second)
		if err := s.UpdateJob(ctx, got); err != nil {
			t.Fatalf("UpdateJob() error: %v", err)
		}

		got, err = s.GetJob(ctx, "j1")
		if err != nil {
			t.Fatalf("GetJob() error: %v", err)
		}
		if got.Status != types.JobRunning || got.Stage != types.StageRetrieval {
			t.Errorf("after update: %+v", got)
		}
		if len(got.Warnings) != 1 || got.Warnings[0].Subject != "pubmed" {
			t.Errorf("warnings = %+v", got.Warnings)
		}

		if err := s.DeleteJob(ctx, "j1"); err != nil {
			t.Fatalf("DeleteJob() error: %v", err)
		}
		if _, err := s.GetJob(ctx, "j1"); !errors.Is(err, types.ErrJobNotFound) {
			t.Errorf("after delete: err = %v, want ErrJobNotFound", err)
		}
	})
}

func TestJobNotFound(t *testing.T) {
	stores(t, func(t *testing.T, s JobStore) {
		ctx := context.Background()
		if _, err := s.GetJob(ctx, "missing"); !errors.Is(err, types.ErrJobNotFound) {
			t.Errorf("GetJob: err = %v", err)
		}
		if err := s.UpdateJob(ctx, job("missing", time.Now())); !errors.Is(err, types.ErrJobNotFound) {
			t.Errorf("UpdateJob: err = %v", err)
		}
		if err := s.DeleteJob(ctx, "missing"); !errors.Is(err, types.ErrJobNotFound) {
			t.Errorf("DeleteJob: err = %v", err)
		}
	})
}

func TestListJobsNewestFirst(t *testing.T) {
	stores(t, func(t *testing.T, s JobStore) {
		ctx := context.Background()
		base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
		for i, id := range []string{"j1", "j2", "j3"} {
			if err := s.CreateJob(ctx, job(id, base.Add(time.Duration(i)*time.Hour))); err != nil {
				t.Fatalf("CreateJob(%s) error: %v", id, err)
			}
		}

		jobs, err := s.ListJobs(ctx, 2)
		if err != nil {
			t.Fatalf("ListJobs() error: %v", err)
		}
		if len(jobs) != 2 {
			t.Fatalf("len(jobs) = %d, want 2", len(jobs))
		}
		if jobs[0].ID != "j3" || jobs[1].ID != "j2" {
			t.Errorf("order = [%s, %s], want newest first", jobs[0].ID, jobs[1].ID)
		}
	})
}

func TestResultRoundTrip(t *testing.T) {
	stores(t, func(t *testing.T, s JobStore) {
		ctx := context.Background()
		if err := s.CreateJob(ctx, job("j1", time.Now())); err != nil {
			t.Fatalf("CreateJob() error: %v", err)
		}

		result := types.ResearchResult{
			JobID: "j1",
			Query: "test query",
			Papers: []types.Paper{
				{ID: "p1", Title: "A Paper", Source: types.SourceArxiv, CitationCount: -1},
			},
			Report:         types.SynthesisReport{Query: "test query", PaperIDs: []string{"p1"}},
			ProcessingTime: 3 * time.Second,
		}
		if err := s.PutResult(ctx, result); err != nil {
			t.Fatalf("PutResult() error: %v", err)
		}

		got, err := s.GetResult(ctx, "j1")
		if err != nil {
			t.Fatalf("GetResult() error: %v", err)
		}
		if len(got.Papers) != 1 || got.Papers[0].Title != "A Paper" {
			t.Errorf("papers = %+v", got.Papers)
		}
		if got.ProcessingTime != 3*time.Second {
			t.Errorf("ProcessingTime = %v", got.ProcessingTime)
		}

		if _, err := s.GetResult(ctx, "other"); !errors.Is(err, types.ErrJobNotFound) {
			t.Errorf("missing result: err = %v", err)
		}
	})
}

func TestDeleteJobRemovesResult(t *testing.T) {
	stores(t, func(t *testing.T, s JobStore) {
		ctx := context.Background()
		if err := s.CreateJob(ctx, job("j1", time.Now())); err != nil {
			t.Fatalf("CreateJob() error: %v", err)
		}
		if err := s.PutResult(ctx, types.ResearchResult{JobID: "j1"}); err != nil {
			t.Fatalf("PutResult() error: %v", err)
		}
		if err := s.DeleteJob(ctx, "j1"); err != nil {
			t.Fatalf("DeleteJob() error: %v", err)
		}
		if _, err := s.GetResult(ctx, "j1"); !errors.Is(err, types.ErrJobNotFound) {
			t.Errorf("result survived job deletion: err = %v", err)
		}
	})
}

func TestPassageArchiveRoundTrip(t *testing.T) {
	s := newSQLite(t)
	ctx := context.Background()

	doc := types.Document{
		ID:         "doc1",
		Filename:   "paper.pdf",
		State:      types.DocumentReady,
		Pages:      2,
		UploadedAt: time.Now(),
	}
	if err := s.PutDocument(ctx, doc); err != nil {
		t.Fatalf("PutDocument() error: %v", err)
	}

	passages := []types.DocumentPassage{
		{
			DocumentID: "doc1", PassageID: "p1-1", Page: 1,
			Region:    types.Region{X0: 72, Y0: 680, X1: 540, Y1: 710},
			Text:      "Sleep improves recall in adults.",
			Embedding: []float64{0.25, -1.5, 3},
		},
		{
			DocumentID: "doc1", PassageID: "p2-2", Page: 2,
			Region: types.Region{X0: 72, Y0: 100, X1: 540, Y1: 130},
			Text:   "Funding statement and acknowledgements.",
		},
	}
	if err := s.PutPassages(ctx, passages); err != nil {
		t.Fatalf("PutPassages() error: %v", err)
	}

	got, err := s.Passages(ctx, "doc1")
	if err != nil {
		t.Fatalf("Passages() error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len(passages) = %d, want 2", len(got))
	}
	if got[0].Region.Y1 != 710 {
		t.Errorf("region = %+v", got[0].Region)
	}
	if len(got[0].Embedding) != 3 || got[0].Embedding[1] != -1.5 {
		t.Errorf("embedding = %v, blob round trip broken", got[0].Embedding)
	}
	if got[1].Embedding != nil {
		t.Errorf("empty embedding came back as %v", got[1].Embedding)
	}

	docs, err := s.Documents(ctx)
	if err != nil {
		t.Fatalf("Documents() error: %v", err)
	}
	if len(docs) != 1 || docs[0].State != types.DocumentReady {
		t.Errorf("documents = %+v", docs)
	}
}

func TestSearchPassages(t *testing.T) {
	s := newSQLite(t)
	ctx := context.Background()

	if err := s.PutDocument(ctx, types.Document{ID: "doc1", State: types.DocumentReady, UploadedAt: time.Now()}); err != nil {
		t.Fatalf("PutDocument() error: %v", err)
	}
	if err := s.PutDocument(ctx, types.Document{ID: "doc2", State: types.DocumentReady, UploadedAt: time.Now()}); err != nil {
		t.Fatalf("PutDocument() error: %v", err)
	}
	if err := s.PutPassages(ctx, []types.DocumentPassage{
		{DocumentID: "doc1", PassageID: "p1-1", Page: 1, Text: "Sleep improves recall in adults."},
		{DocumentID: "doc1", PassageID: "p1-2", Page: 1, Text: "Methods are described in the appendix."},
		{DocumentID: "doc2", PassageID: "p1-1", Page: 1, Text: "Sleep deprivation harms attention."},
	}); err != nil {
		t.Fatalf("PutPassages() error: %v", err)
	}

	got, err := s.SearchPassages(ctx, "doc1", "sleep", 10)
	if err != nil {
		t.Fatalf("SearchPassages() error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("len(hits) = %d, want 1 (scoped to doc1)", len(got))
	}
	if got[0].PassageID != "p1-1" {
		t.Errorf("hit = %+v", got[0])
	}
}
