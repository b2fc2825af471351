// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// PaperSummary is the structured extraction produced for a single paper.
// One summary exists per paper within a job.
type PaperSummary struct {
	// PaperID identifies the summarized Paper.
	PaperID string `json:"paper_id" yaml:"paper_id"`

	// Title and Authors are carried from the paper for standalone display.
	Title   string   `json:"title" yaml:"title"`
	Authors []string `json:"authors" yaml:"authors"`

	// Objective is the main research objective or question.
	Objective string `json:"objective" yaml:"objective"`

	// Methodology describes the research approach used.
	Methodology string `json:"methodology" yaml:"methodology"`

	// KeyFindings lists the main findings, between three and six entries.
	KeyFindings []string `json:"key_findings" yaml:"key_findings"`

	// Conclusions summarizes the authors' conclusions.
	Conclusions string `json:"conclusions" yaml:"conclusions"`

	// Limitations records limitations stated by the authors, when any.
	Limitations string `json:"limitations,omitempty" yaml:"limitations,omitempty"`

	// ConfidenceScore is a value in [0,1] indicating extraction certainty.
	ConfidenceScore float64 `json:"confidence_score" yaml:"confidence_score"`

	// GeneratedAt is when the summary was produced.
	GeneratedAt time.Time `json:"generated_at" yaml:"generated_at"`
}

// Complete reports whether every required field of the summary is populated.
func (s PaperSummary) Complete() bool {
	return s.Objective != "" && s.Methodology != "" &&
		len(s.KeyFindings) > 0 && s.Conclusions != ""
}
