// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package summarize produces one structured summary per retrieved paper
// by prompting the language model with the paper's metadata and abstract.
package summarize

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/research-assistant/internal/llm"
	"github.com/pdiddy/research-assistant/pkg/types"
)

// Findings bounds for one summary.
const (
	minFindings = 3
	maxFindings = 6
)

// Summarizer extracts structured summaries from papers.
type Summarizer struct {
	model llm.Model
	cfg   types.SummarizeConfig
	now   func() time.Time
}

// New builds a Summarizer.
func New(model llm.Model, cfg types.SummarizeConfig) *Summarizer {
	return &Summarizer{model: model, cfg: cfg, now: time.Now}
}

// Batch summarizes every paper with bounded parallelism. A paper whose
// summarization fails contributes a warning instead of failing the
// batch; the returned summaries keep the input paper order.
func (s *Summarizer) Batch(ctx context.Context, papers []types.Paper) ([]types.PaperSummary, []types.Warning) {
	summaries := make([]types.PaperSummary, len(papers))
	ok := make([]bool, len(papers))

	var mu sync.Mutex
	var warnings []types.Warning

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Parallelism)
	for i, p := range papers {
		g.Go(func() error {
			sum, err := s.Summarize(ctx, p)
			if err != nil {
				mu.Lock()
				warnings = append(warnings, types.Warning{
					Stage:   types.StageSummarizing,
					Subject: p.ID,
					Message: err.Error(),
				})
				mu.Unlock()
				return nil
			}
			summaries[i] = sum
			ok[i] = true
			return nil
		})
	}
	g.Wait()

	out := summaries[:0]
	for i, sum := range summaries {
		if ok[i] {
			out = append(out, sum)
		}
	}
	return out, warnings
}

// Summarize extracts one paper's summary. An unparseable or incomplete
// model response gets one stricter retry before the paper is given up
// as ErrExtractionFailed.
func (s *Summarizer) Summarize(ctx context.Context, p types.Paper) (types.PaperSummary, error) {
	if strings.TrimSpace(p.Abstract) == "" {
		return types.PaperSummary{}, fmt.Errorf("paper %s: %w: no abstract to summarize", p.ID, types.ErrExtractionFailed)
	}

	reply, err := s.model.Complete(ctx, summaryPrompt(p, false))
	if err != nil {
		return types.PaperSummary{}, fmt.Errorf("paper %s: %w: %w", p.ID, types.ErrExtractionFailed, err)
	}

	sum, parseErr := parseSummary(reply)
	if parseErr != nil {
		reply, err = s.model.Complete(ctx, summaryPrompt(p, true))
		if err != nil {
			return types.PaperSummary{}, fmt.Errorf("paper %s: %w: %w", p.ID, types.ErrExtractionFailed, err)
		}
		if sum, parseErr = parseSummary(reply); parseErr != nil {
			return types.PaperSummary{}, fmt.Errorf("paper %s: %w: %w", p.ID, types.ErrExtractionFailed, parseErr)
		}
	}

	sum.PaperID = p.ID
	sum.Title = p.Title
	for _, a := range p.Authors {
		sum.Authors = append(sum.Authors, a.Name)
	}
	sum.ConfidenceScore = confidence(sum, p)
	sum.GeneratedAt = s.now()
	return sum, nil
}

// parseSummary decodes and validates the model's JSON reply.
func parseSummary(reply string) (types.PaperSummary, error) {
	var sum types.PaperSummary
	if err := json.Unmarshal([]byte(extractJSON(reply)), &sum); err != nil {
		return types.PaperSummary{}, fmt.Errorf("parsing summary JSON: %w", err)
	}
	if !sum.Complete() {
		return types.PaperSummary{}, fmt.Errorf("summary missing required fields")
	}
	if len(sum.KeyFindings) < minFindings || len(sum.KeyFindings) > maxFindings {
		return types.PaperSummary{}, fmt.Errorf("summary has %d key findings, want %d to %d",
			len(sum.KeyFindings), minFindings, maxFindings)
	}
	return sum, nil
}

// confidence estimates extraction certainty from the material the model
// had to work with: a short abstract or absent limitations lowers it.
func confidence(sum types.PaperSummary, p types.Paper) float64 {
	c := 0.9
	if len(strings.Fields(p.Abstract)) < 80 {
		c -= 0.2
	}
	if sum.Limitations == "" {
		c -= 0.1
	}
	if len(sum.KeyFindings) == minFindings {
		c -= 0.05
	}
	return c
}

// extractJSON trims any prose the model wrapped around the JSON object.
func extractJSON(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return s
	}
	return s[start : end+1]
}
