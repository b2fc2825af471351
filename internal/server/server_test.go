// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pdiddy/research-assistant/internal/aggregate"
	"github.com/pdiddy/research-assistant/internal/connector"
	"github.com/pdiddy/research-assistant/internal/docindex"
	"github.com/pdiddy/research-assistant/internal/llm"
	"github.com/pdiddy/research-assistant/internal/pipeline"
	"github.com/pdiddy/research-assistant/internal/store"
	"github.com/pdiddy/research-assistant/internal/summarize"
	"github.com/pdiddy/research-assistant/internal/synthesize"
	"github.com/pdiddy/research-assistant/pkg/types"
)

// stubConnector returns canned papers.
type stubConnector struct {
	source types.Source
	papers []types.Paper
}

func (s *stubConnector) Name() types.Source { return s.source }

func (s *stubConnector) Search(context.Context, connector.Query, int) ([]types.Paper, error) {
	return s.papers, nil
}

// stageModel answers summarization and synthesis prompts with canned
// valid JSON, and document questions with a grounded reply.
type stageModel struct{}

func (stageModel) Complete(_ context.Context, prompt string) (string, error) {
	switch {
	case strings.Contains(prompt, "summarization system"):
		return `{
			"objective": "Measure the effect of sleep on recall.",
			"methodology": "Controlled trial.",
			"key_findings": ["Recall improved.", "Effect persisted.", "No side effects."],
			"conclusions": "Sleep helps recall.",
			"limitations": ""
		}`, nil
	case strings.Contains(prompt, "question answering system"):
		return `{"answer": "Recall improved by 20%.", "citations": ["p1-1"]}`, nil
	default:
		return `{
			"themes": [{"theme": "Sleep and recall", "description": "Papers on recall."}],
			"executive_summary": "Sleep improves recall.",
			"methodology_analysis": "Trials."
		}`, nil
	}
}

type sameVectorEmbedder struct{}

func (sameVectorEmbedder) Embed(_ context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i := range texts {
		out[i] = []float64{1, 0}
	}
	return out, nil
}

type testEnv struct {
	srv    *httptest.Server
	jobs   *store.MemoryStore
	index  *docindex.Index
	engine *pipeline.Engine
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := types.PipelineConfig{}.Defaults()
	cfg.Aggregator.Deadline = 2 * time.Second
	cfg.DocumentIndex.RelevanceThreshold = 0.2

	abstract := strings.Repeat("Sleep improves recall in adults. ", 20)
	conns := []connector.Connector{
		&stubConnector{source: types.SourceArxiv, papers: []types.Paper{
			{ID: "p1", ExternalID: "1", Title: "Sleep Trial", Source: types.SourceArxiv, Abstract: abstract, CitationCount: -1},
		}},
	}

	jobs := store.NewMemoryStore()
	engine := pipeline.New(
		conns,
		aggregate.New(cfg.Aggregator),
		summarize.New(stageModel{}, cfg.Summarize),
		synthesize.New(stageModel{}, sameVectorEmbedder{}, cfg.Synthesize),
		jobs,
		cfg.Workers,
		nil,
	)
	t.Cleanup(engine.Close)

	index := docindex.New(stageModel{}, llm.HashEmbedder{}, nil, cfg.DocumentIndex, nil)
	s := New(engine, jobs, index, nil, cfg.Server, nil)
	srv := httptest.NewServer(s.Router())
	t.Cleanup(srv.Close)

	return &testEnv{srv: srv, jobs: jobs, index: index, engine: engine}
}

func (e *testEnv) postJSON(t *testing.T, path string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshaling body: %v", err)
	}
	resp, err := http.Post(e.srv.URL+path, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	return resp
}

func (e *testEnv) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(e.srv.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return v
}

func (e *testEnv) waitCompleted(t *testing.T, jobID string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job, err := e.jobs.GetJob(context.Background(), jobID)
		if err != nil {
			t.Fatalf("GetJob() error: %v", err)
		}
		if job.Status.Terminal() {
			if job.Status != types.JobCompleted {
				t.Fatalf("job ended %s: %s", job.Status, job.FailureReason)
			}
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("job did not complete")
}

func TestHealth(t *testing.T) {
	env := newEnv(t)
	resp := env.get(t, "/health")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestSubmitAndFetchResult(t *testing.T) {
	env := newEnv(t)

	resp := env.postJSON(t, "/research", types.ResearchRequest{
		Query: "how does sleep affect recall?", MaxPapers: 10, IncludePreprints: true,
	})
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("submit status = %d", resp.StatusCode)
	}
	job := decode[types.ResearchJob](t, resp)
	if job.ID == "" || job.Status != types.JobQueued {
		t.Fatalf("job = %+v", job)
	}

	env.waitCompleted(t, job.ID)

	resp = env.get(t, "/research/"+job.ID+"/status")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status endpoint = %d", resp.StatusCode)
	}
	got := decode[types.ResearchJob](t, resp)
	if got.Status != types.JobCompleted || got.Stage != types.StageDone {
		t.Errorf("job = %+v", got)
	}

	resp = env.get(t, "/research/"+job.ID+"/result")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("result endpoint = %d", resp.StatusCode)
	}
	result := decode[types.ResearchResult](t, resp)
	if len(result.Papers) != 1 || result.Report.ExecutiveSummary == "" {
		t.Errorf("result = %+v", result)
	}
}

func TestSubmitInvalidRequest(t *testing.T) {
	env := newEnv(t)
	resp := env.postJSON(t, "/research", types.ResearchRequest{Query: "ab", MaxPapers: 10})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", resp.StatusCode)
	}
	body := decode[map[string]string](t, resp)
	if body["error"] == "" {
		t.Error("error body missing")
	}
}

func TestResultBeforeCompletion(t *testing.T) {
	env := newEnv(t)
	job := types.ResearchJob{
		ID: "j-running", Status: types.JobRunning, Stage: types.StageRetrieval,
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	if err := env.jobs.CreateJob(context.Background(), job); err != nil {
		t.Fatalf("CreateJob() error: %v", err)
	}

	resp := env.get(t, "/research/j-running/result")
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("status = %d, want 409", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestStatusNotFound(t *testing.T) {
	env := newEnv(t)
	resp := env.get(t, "/research/missing/status")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestListJobs(t *testing.T) {
	env := newEnv(t)
	resp := env.postJSON(t, "/research", types.ResearchRequest{
		Query: "how does sleep affect recall?", MaxPapers: 10, IncludePreprints: true,
	})
	job := decode[types.ResearchJob](t, resp)
	env.waitCompleted(t, job.ID)

	listResp := env.get(t, "/research?limit=10")
	if listResp.StatusCode != http.StatusOK {
		t.Fatalf("list status = %d", listResp.StatusCode)
	}
	jobs := decode[[]types.ResearchJob](t, listResp)
	if len(jobs) != 1 || jobs[0].ID != job.ID {
		t.Errorf("jobs = %+v", jobs)
	}
}

func TestDeleteJob(t *testing.T) {
	env := newEnv(t)
	resp := env.postJSON(t, "/research", types.ResearchRequest{
		Query: "how does sleep affect recall?", MaxPapers: 10, IncludePreprints: true,
	})
	job := decode[types.ResearchJob](t, resp)
	env.waitCompleted(t, job.ID)

	req, _ := http.NewRequest(http.MethodDelete, env.srv.URL+"/research/"+job.ID, nil)
	delResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE: %v", err)
	}
	if delResp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status = %d", delResp.StatusCode)
	}
	delResp.Body.Close()

	statusResp := env.get(t, "/research/"+job.ID+"/status")
	if statusResp.StatusCode != http.StatusNotFound {
		t.Fatalf("after delete: %d, want 404", statusResp.StatusCode)
	}
	statusResp.Body.Close()
}

func TestUploadRejectsNonPDF(t *testing.T) {
	env := newEnv(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "notes.txt")
	if err != nil {
		t.Fatalf("creating form file: %v", err)
	}
	fw.Write([]byte("not a pdf"))
	mw.Close()

	resp, err := http.Post(env.srv.URL+"/documents", mw.FormDataContentType(), &buf)
	if err != nil {
		t.Fatalf("POST /documents: %v", err)
	}
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", resp.StatusCode)
	}
	doc := decode[types.Document](t, resp)
	if doc.State != types.DocumentFailed || doc.FailureReason == "" {
		t.Errorf("doc = %+v", doc)
	}
}

func TestAskDocument(t *testing.T) {
	env := newEnv(t)

	// Inject a ready document directly; upload paths are covered above
	// and in the docindex tests.
	vecs, _ := llm.HashEmbedder{}.Embed(context.Background(), []string{
		"The randomized trial found recall improved by 20% after sleep.",
	})
	env.index.Restore(types.Document{ID: "doc1", State: types.DocumentReady, Pages: 1}, []types.DocumentPassage{
		{DocumentID: "doc1", PassageID: "p1-1", Page: 1,
			Text:      "The randomized trial found recall improved by 20% after sleep.",
			Embedding: vecs[0]},
	})

	resp := env.postJSON(t, "/documents/doc1/ask", askRequest{Question: "what did the randomized trial find about recall?"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("ask status = %d", resp.StatusCode)
	}
	ans := decode[types.GroundedAnswer](t, resp)
	if ans.Answer == "" || len(ans.Citations) != 1 {
		t.Errorf("answer = %+v", ans)
	}

	// Embeddings never leave the API.
	if ans.Citations[0].Embedding != nil {
		t.Error("citation carries embedding vector")
	}
}

func TestAskDocumentErrors(t *testing.T) {
	env := newEnv(t)

	resp := env.postJSON(t, "/documents/missing/ask", askRequest{Question: "anything?"})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("missing doc: %d, want 404", resp.StatusCode)
	}
	resp.Body.Close()

	env.index.Restore(types.Document{ID: "pending", State: types.DocumentParsed}, nil)
	resp = env.postJSON(t, "/documents/pending/ask", askRequest{Question: "anything?"})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("unready doc: %d, want 409", resp.StatusCode)
	}
	resp.Body.Close()

	resp = env.postJSON(t, "/documents/pending/ask", askRequest{})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("empty question: %d, want 400", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestPassageSearchWithoutStore(t *testing.T) {
	env := newEnv(t)
	resp := env.get(t, "/documents/doc1/passages?q=sleep")
	if resp.StatusCode != http.StatusNotImplemented {
		t.Fatalf("status = %d, want 501", resp.StatusCode)
	}
	resp.Body.Close()
}
