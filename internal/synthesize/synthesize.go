// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package synthesize produces the cross-paper analysis: themes,
// consensus, conflicts, and research gaps over a job's summaries,
// narrated by a grounded model pass.
package synthesize

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/pdiddy/research-assistant/internal/llm"
	"github.com/pdiddy/research-assistant/pkg/types"
)

// Synthesizer builds one SynthesisReport per job.
type Synthesizer struct {
	model    llm.Model
	embedder llm.Embedder
	cfg      types.SynthesizeConfig
	now      func() time.Time
}

// New builds a Synthesizer.
func New(model llm.Model, embedder llm.Embedder, cfg types.SynthesizeConfig) *Synthesizer {
	return &Synthesizer{model: model, embedder: embedder, cfg: cfg, now: time.Now}
}

// Synthesize analyzes the summaries as a corpus. Structure (clusters,
// consensus, conflicts, gaps) comes from deterministic analysis of the
// summaries; the model contributes only the narrative fields, grounded
// in the summaries it is shown. Every paper id in the result refers to
// a summarized paper.
func (s *Synthesizer) Synthesize(ctx context.Context, query string, summaries []types.PaperSummary) (types.SynthesisReport, error) {
	if len(summaries) == 0 {
		return types.SynthesisReport{}, fmt.Errorf("synthesis: %w: no summaries to analyze", types.ErrInsufficientData)
	}

	clusters, err := s.clusterSummaries(ctx, summaries)
	if err != nil {
		return types.SynthesisReport{}, fmt.Errorf("synthesis: %w", err)
	}

	report := types.SynthesisReport{
		Query:              query,
		ConsensusFindings:  consensusFindings(summaries),
		ConflictingResults: conflictingResults(summaries),
		GeneratedAt:        s.now(),
	}
	for _, sum := range summaries {
		report.PaperIDs = append(report.PaperIDs, sum.PaperID)
	}

	for _, c := range clusters {
		report.Themes = append(report.Themes, types.SynthesisTheme{
			SupportingPaperIDs: c.paperIDs(),
			EvidenceStrength:   types.StrengthFromSupport(len(c.summaries)),
		})
	}

	if err := s.narrate(ctx, &report, summaries); err != nil {
		return types.SynthesisReport{}, fmt.Errorf("synthesis: %w", err)
	}

	report.Gaps = deriveGaps(summaries, report.Themes)
	report.SynthesisConfidence = synthesisConfidence(summaries, report)
	return report, nil
}

// narration is the model's contribution to the report: per-theme labels
// plus the prose fields.
type narration struct {
	Themes []struct {
		Theme       string `json:"theme"`
		Description string `json:"description"`
	} `json:"themes"`
	ExecutiveSummary    string `json:"executive_summary"`
	MethodologyAnalysis string `json:"methodology_analysis"`
}

// narrate fills the report's narrative fields from a grounded model
// pass. A malformed reply gets one stricter retry.
func (s *Synthesizer) narrate(ctx context.Context, report *types.SynthesisReport, summaries []types.PaperSummary) error {
	reply, err := s.model.Complete(ctx, synthesisPrompt(report, summaries, false))
	if err != nil {
		return err
	}

	n, parseErr := parseNarration(reply, len(report.Themes))
	if parseErr != nil {
		if reply, err = s.model.Complete(ctx, synthesisPrompt(report, summaries, true)); err != nil {
			return err
		}
		if n, parseErr = parseNarration(reply, len(report.Themes)); parseErr != nil {
			return parseErr
		}
	}

	for i := range report.Themes {
		report.Themes[i].Theme = n.Themes[i].Theme
		report.Themes[i].Description = n.Themes[i].Description
	}
	report.ExecutiveSummary = n.ExecutiveSummary
	report.MethodologyAnalysis = n.MethodologyAnalysis
	return nil
}

func parseNarration(reply string, themes int) (narration, error) {
	var n narration
	if err := json.Unmarshal([]byte(extractJSON(reply)), &n); err != nil {
		return narration{}, fmt.Errorf("parsing narration JSON: %w", err)
	}
	if len(n.Themes) != themes {
		return narration{}, fmt.Errorf("narration names %d themes, want %d", len(n.Themes), themes)
	}
	if n.ExecutiveSummary == "" {
		return narration{}, fmt.Errorf("narration missing executive summary")
	}
	for i, t := range n.Themes {
		if t.Theme == "" {
			return narration{}, fmt.Errorf("narration theme %d has no label", i)
		}
	}
	return n, nil
}

// synthesisConfidence blends the mean summary confidence with coverage:
// how much of the corpus the themes actually cite.
func synthesisConfidence(summaries []types.PaperSummary, report types.SynthesisReport) float64 {
	var sum float64
	for _, s := range summaries {
		sum += s.ConfidenceScore
	}
	mean := sum / float64(len(summaries))

	cited := make(map[string]bool)
	for _, t := range report.Themes {
		for _, id := range t.SupportingPaperIDs {
			cited[id] = true
		}
	}
	coverage := float64(len(cited)) / float64(len(summaries))

	return 0.7*mean + 0.3*coverage
}

func extractJSON(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return s
	}
	return s[start : end+1]
}
