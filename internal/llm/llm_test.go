// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pdiddy/research-assistant/internal/httputil"
	"github.com/pdiddy/research-assistant/pkg/types"
)

func TestClaudeModelComplete(t *testing.T) {
	var gotReq claudeRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "test-key" {
			t.Errorf("x-api-key = %q", r.Header.Get("x-api-key"))
		}
		if r.Header.Get("anthropic-version") == "" {
			t.Error("missing anthropic-version header")
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		w.Write([]byte(`{"content": [{"type": "text", "text": "the answer"}]}`))
	}))
	defer srv.Close()

	old := claudeAPIURL
	claudeAPIURL = srv.URL
	defer func() { claudeAPIURL = old }()

	m := NewClaudeModel(types.ModelConfig{Model: "claude-sonnet-4-5", APIKey: "test-key"}, nil)
	got, err := m.Complete(context.Background(), "what is the answer?")
	if err != nil {
		t.Fatalf("Complete() error: %v", err)
	}
	if got != "the answer" {
		t.Errorf("Complete() = %q", got)
	}
	if len(gotReq.Messages) != 1 || gotReq.Messages[0].Content != "what is the answer?" {
		t.Errorf("request messages = %+v", gotReq.Messages)
	}
	if gotReq.Model != "claude-sonnet-4-5" {
		t.Errorf("request model = %q", gotReq.Model)
	}
}

func TestClaudeModelRetriesRateLimit(t *testing.T) {
	oldDelay := httputil.RetryBaseDelay
	httputil.RetryBaseDelay = 0
	defer func() { httputil.RetryBaseDelay = oldDelay }()

	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			http.Error(w, "rate limited", http.StatusTooManyRequests)
			return
		}
		// The retried request must carry the body again.
		var req claudeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Messages) == 0 {
			t.Errorf("retried request body unreadable: %v", err)
		}
		w.Write([]byte(`{"content": [{"type": "text", "text": "ok"}]}`))
	}))
	defer srv.Close()

	old := claudeAPIURL
	claudeAPIURL = srv.URL
	defer func() { claudeAPIURL = old }()

	m := NewClaudeModel(types.ModelConfig{Model: "claude-sonnet-4-5"}, nil)
	got, err := m.Complete(context.Background(), "retry me")
	if err != nil {
		t.Fatalf("Complete() error: %v", err)
	}
	if got != "ok" || calls != 2 {
		t.Errorf("got %q after %d calls", got, calls)
	}
}

func TestClaudeModelNonTextContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"content": []}`))
	}))
	defer srv.Close()

	old := claudeAPIURL
	claudeAPIURL = srv.URL
	defer func() { claudeAPIURL = old }()

	m := NewClaudeModel(types.ModelConfig{}, nil)
	if _, err := m.Complete(context.Background(), "x"); err == nil {
		t.Fatal("Complete() succeeded on empty content, want error")
	}
}

func TestOpenAIEmbedderOrdersVectors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/embeddings" {
			t.Errorf("path = %q", r.URL.Path)
		}
		// Vectors come back out of order; Embed must restore input order.
		w.Write([]byte(`{"data": [
			{"index": 1, "embedding": [0, 1]},
			{"index": 0, "embedding": [1, 0]}
		]}`))
	}))
	defer srv.Close()

	e := NewOpenAIEmbedder(types.EmbeddingConfig{BaseURL: srv.URL + "/v1", Model: "emb"}, nil)
	vecs, err := e.Embed(context.Background(), []string{"first", "second"})
	if err != nil {
		t.Fatalf("Embed() error: %v", err)
	}
	if vecs[0][0] != 1 || vecs[1][1] != 1 {
		t.Errorf("vectors not restored to input order: %v", vecs)
	}
}

func TestOpenAIEmbedderCountMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data": [{"index": 0, "embedding": [1]}]}`))
	}))
	defer srv.Close()

	e := NewOpenAIEmbedder(types.EmbeddingConfig{BaseURL: srv.URL}, nil)
	if _, err := e.Embed(context.Background(), []string{"a", "b"}); err == nil {
		t.Fatal("Embed() succeeded with missing vector, want error")
	}
}

func TestHashEmbedderDeterministic(t *testing.T) {
	var h HashEmbedder
	a, err := h.Embed(context.Background(), []string{"sleep and memory", "sleep and memory"})
	if err != nil {
		t.Fatalf("Embed() error: %v", err)
	}
	if Cosine(a[0], a[1]) < 0.999 {
		t.Errorf("identical texts should embed identically, cosine = %v", Cosine(a[0], a[1]))
	}
}

func TestHashEmbedderSimilarityOrdering(t *testing.T) {
	var h HashEmbedder
	vecs, err := h.Embed(context.Background(), []string{
		"sleep improves memory consolidation",
		"memory consolidation during sleep",
		"quantum chromodynamics lattice computation",
	})
	if err != nil {
		t.Fatalf("Embed() error: %v", err)
	}
	near := Cosine(vecs[0], vecs[1])
	far := Cosine(vecs[0], vecs[2])
	if near <= far {
		t.Errorf("related texts (%v) not closer than unrelated (%v)", near, far)
	}
}

func TestCosine(t *testing.T) {
	if c := Cosine([]float64{1, 0}, []float64{1, 0}); c != 1 {
		t.Errorf("identical vectors = %v, want 1", c)
	}
	if c := Cosine([]float64{1, 0}, []float64{0, 1}); c != 0 {
		t.Errorf("orthogonal vectors = %v, want 0", c)
	}
	if c := Cosine([]float64{1}, []float64{1, 0}); c != 0 {
		t.Errorf("mismatched lengths = %v, want 0", c)
	}
	if c := Cosine([]float64{0, 0}, []float64{1, 0}); c != 0 {
		t.Errorf("zero vector = %v, want 0", c)
	}
}
