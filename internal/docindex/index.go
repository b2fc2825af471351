// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package docindex ingests uploaded PDFs into an addressable passage
// index and answers questions about a document with passage-grounded
// citations.
package docindex

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pdiddy/research-assistant/internal/llm"
	"github.com/pdiddy/research-assistant/pkg/types"
)

// Archive persists documents and passages beyond process lifetime. The
// SQLite store implements it; a nil Archive keeps the index memory-only.
type Archive interface {
	PutDocument(ctx context.Context, doc types.Document) error
	PutPassages(ctx context.Context, passages []types.DocumentPassage) error
}

// Index holds ingested documents and serves grounded question
// answering over their passages.
type Index struct {
	model    llm.Model
	embedder llm.Embedder
	archive  Archive
	cfg      types.DocumentIndexConfig
	log      *zap.Logger

	mu        sync.RWMutex
	documents map[string]*types.Document
	passages  map[string][]types.DocumentPassage
}

// New builds an Index. archive may be nil.
func New(model llm.Model, embedder llm.Embedder, archive Archive, cfg types.DocumentIndexConfig, log *zap.Logger) *Index {
	if log == nil {
		log = zap.NewNop()
	}
	return &Index{
		model:     model,
		embedder:  embedder,
		archive:   archive,
		cfg:       cfg,
		log:       log,
		documents: make(map[string]*types.Document),
		passages:  make(map[string][]types.DocumentPassage),
	}
}

// Ingest registers an uploaded PDF and runs it through parsing and
// embedding. The returned document is in the ready state on success and
// the failed state, with a reason, on error.
func (ix *Index) Ingest(ctx context.Context, filename string, data []byte) (types.Document, error) {
	doc := types.Document{
		ID:         uuid.NewString(),
		Filename:   filename,
		State:      types.DocumentUploaded,
		UploadedAt: time.Now(),
	}
	ix.put(ctx, doc)

	pages, passages, err := parsePDF(data, ix.cfg.MinPassageTokens)
	if err != nil {
		return ix.fail(ctx, doc, err), err
	}
	doc.State = types.DocumentParsed
	doc.Pages = pages
	ix.put(ctx, doc)

	texts := make([]string, len(passages))
	for i := range passages {
		passages[i].DocumentID = doc.ID
		texts[i] = passages[i].Text
	}
	vecs, err := ix.embedder.Embed(ctx, texts)
	if err != nil {
		err = fmt.Errorf("embedding passages: %w", err)
		return ix.fail(ctx, doc, err), err
	}
	for i := range passages {
		passages[i].Embedding = vecs[i]
	}
	doc.State = types.DocumentIndexed
	doc.PassageCount = len(passages)

	ix.mu.Lock()
	ix.passages[doc.ID] = passages
	ix.mu.Unlock()
	if ix.archive != nil {
		if err := ix.archive.PutPassages(ctx, passages); err != nil {
			ix.log.Warn("archiving passages", zap.String("document", doc.ID), zap.Error(err))
		}
	}

	doc.State = types.DocumentReady
	ix.put(ctx, doc)
	ix.log.Info("document ingested",
		zap.String("document", doc.ID),
		zap.Int("pages", pages),
		zap.Int("passages", len(passages)))
	return doc, nil
}

// Document returns the tracked state of one document.
func (ix *Index) Document(id string) (types.Document, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	doc, ok := ix.documents[id]
	if !ok {
		return types.Document{}, fmt.Errorf("document %s: %w", id, types.ErrDocumentNotFound)
	}
	return *doc, nil
}

// Restore loads a previously ingested document and its passages, used
// when rehydrating the index from the archive at startup.
func (ix *Index) Restore(doc types.Document, passages []types.DocumentPassage) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.documents[doc.ID] = &doc
	ix.passages[doc.ID] = passages
}

// scored pairs a passage with its similarity to the question.
type scored struct {
	passage    types.DocumentPassage
	similarity float64
}

// Ask answers a question about one ready document. The answer is
// grounded in the top-scoring passages; if none clear the relevance
// threshold the question is refused with ErrNoRelevantContext rather
// than answered from model memory.
func (ix *Index) Ask(ctx context.Context, documentID, question string) (types.GroundedAnswer, error) {
	doc, err := ix.Document(documentID)
	if err != nil {
		return types.GroundedAnswer{}, err
	}
	if doc.State != types.DocumentReady {
		return types.GroundedAnswer{}, fmt.Errorf("document %s in state %s: %w",
			documentID, doc.State, types.ErrDocumentNotReady)
	}

	qv, err := ix.embedder.Embed(ctx, []string{question})
	if err != nil {
		return types.GroundedAnswer{}, fmt.Errorf("embedding question: %w", err)
	}

	ix.mu.RLock()
	passages := ix.passages[documentID]
	ix.mu.RUnlock()

	var hits []scored
	for _, p := range passages {
		if sim := llm.Cosine(qv[0], p.Embedding); sim >= ix.cfg.RelevanceThreshold {
			hits = append(hits, scored{passage: p, similarity: sim})
		}
	}
	if len(hits) == 0 {
		return types.GroundedAnswer{}, fmt.Errorf("document %s: %w", documentID, types.ErrNoRelevantContext)
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].similarity > hits[j].similarity })
	if len(hits) > ix.cfg.TopK {
		hits = hits[:ix.cfg.TopK]
	}

	return ix.answer(ctx, question, hits)
}

func (ix *Index) put(ctx context.Context, doc types.Document) {
	ix.mu.Lock()
	ix.documents[doc.ID] = &doc
	ix.mu.Unlock()
	if ix.archive != nil {
		if err := ix.archive.PutDocument(ctx, doc); err != nil {
			ix.log.Warn("archiving document", zap.String("document", doc.ID), zap.Error(err))
		}
	}
}

func (ix *Index) fail(ctx context.Context, doc types.Document, cause error) types.Document {
	doc.State = types.DocumentFailed
	doc.FailureReason = cause.Error()
	ix.put(ctx, doc)
	return doc
}
