// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// EvidenceStrength qualifies how well-supported a synthesis theme is.
type EvidenceStrength string

const (
	EvidenceStrong   EvidenceStrength = "strong"
	EvidenceModerate EvidenceStrength = "moderate"
	EvidenceWeak     EvidenceStrength = "weak"
)

// StrengthFromSupport maps a supporting-paper count to an evidence
// strength label: three or more papers is strong, two is moderate,
// one is weak.
func StrengthFromSupport(papers int) EvidenceStrength {
	switch {
	case papers >= 3:
		return EvidenceStrong
	case papers == 2:
		return EvidenceModerate
	default:
		return EvidenceWeak
	}
}

// SynthesisTheme groups papers that address a common topic.
type SynthesisTheme struct {
	// Theme is a short label for the topic.
	Theme string `json:"theme" yaml:"theme"`

	// Description explains what the theme covers across the corpus.
	Description string `json:"description" yaml:"description"`

	// SupportingPaperIDs lists the papers backing this theme. Always
	// at least one entry.
	SupportingPaperIDs []string `json:"supporting_paper_ids" yaml:"supporting_paper_ids"`

	// EvidenceStrength follows the supporting-paper-count rule.
	EvidenceStrength EvidenceStrength `json:"evidence_strength" yaml:"evidence_strength"`
}

// ImpactLevel qualifies the potential impact of addressing a research gap.
type ImpactLevel string

const (
	ImpactHigh   ImpactLevel = "high"
	ImpactMedium ImpactLevel = "medium"
	ImpactLow    ImpactLevel = "low"
)

// ResearchGap is an open question derived from recurring, unresolved
// limitations across the summarized papers.
type ResearchGap struct {
	// Description states the gap.
	Description string `json:"description" yaml:"description"`

	// RelatedThemes names the themes the gap touches.
	RelatedThemes []string `json:"related_themes" yaml:"related_themes"`

	// LimitingPaperIDs cites the papers whose limitations revealed the gap.
	LimitingPaperIDs []string `json:"limiting_paper_ids" yaml:"limiting_paper_ids"`

	// PotentialImpact estimates the value of closing the gap.
	PotentialImpact ImpactLevel `json:"potential_impact" yaml:"potential_impact"`

	// SuggestedDirections proposes follow-up research directions.
	SuggestedDirections []string `json:"suggested_directions" yaml:"suggested_directions"`
}

// SynthesisReport is the cross-paper analysis produced once per job.
// Immutable after creation. Every paper id referenced by any theme or
// gap is a member of PaperIDs.
type SynthesisReport struct {
	// Query is the research question the report addresses.
	Query string `json:"query" yaml:"query"`

	// PaperIDs lists every paper that contributed a summary.
	PaperIDs []string `json:"paper_ids" yaml:"paper_ids"`

	// ExecutiveSummary is a grounded prose overview of the findings.
	ExecutiveSummary string `json:"executive_summary" yaml:"executive_summary"`

	// Themes are the clustered topics found across papers.
	Themes []SynthesisTheme `json:"themes" yaml:"themes"`

	// ConsensusFindings lists statements at least two papers agree on.
	ConsensusFindings []string `json:"consensus_findings" yaml:"consensus_findings"`

	// ConflictingResults lists contradictions between papers.
	ConflictingResults []string `json:"conflicting_results" yaml:"conflicting_results"`

	// Gaps are prioritized open research questions.
	Gaps []ResearchGap `json:"gaps" yaml:"gaps"`

	// MethodologyAnalysis discusses the methods used across the corpus.
	MethodologyAnalysis string `json:"methodology_analysis" yaml:"methodology_analysis"`

	// SynthesisConfidence is a value in [0,1] for the report as a whole.
	SynthesisConfidence float64 `json:"synthesis_confidence" yaml:"synthesis_confidence"`

	// GeneratedAt is when the report was produced.
	GeneratedAt time.Time `json:"generated_at" yaml:"generated_at"`
}

// CitedPaperIDs returns every paper id referenced by the report's themes
// and gaps, without duplicates.
func (r SynthesisReport) CitedPaperIDs() []string {
	seen := make(map[string]bool)
	var ids []string
	add := func(id string) {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	for _, t := range r.Themes {
		for _, id := range t.SupportingPaperIDs {
			add(id)
		}
	}
	for _, g := range r.Gaps {
		for _, id := range g.LimitingPaperIDs {
			add(id)
		}
	}
	return ids
}
