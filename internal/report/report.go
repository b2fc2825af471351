// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package report renders a finished research result as a Markdown
// document for human consumption.
package report

import (
	"fmt"
	"strings"

	"github.com/pdiddy/research-assistant/pkg/types"
)

// Render produces the Markdown presentation of a research result:
// executive summary, themes with evidence strength, consensus and
// conflicts, gaps, and the ranked bibliography.
func Render(result types.ResearchResult) string {
	var b strings.Builder
	rep := result.Report

	fmt.Fprintf(&b, "# Research Report: %s\n\n", result.Query)
	fmt.Fprintf(&b, "*%d papers analyzed", len(result.Papers))
	if !rep.GeneratedAt.IsZero() {
		fmt.Fprintf(&b, " | generated %s", rep.GeneratedAt.Format("2006-01-02"))
	}
	fmt.Fprintf(&b, " | synthesis confidence %.2f*\n\n", rep.SynthesisConfidence)

	if rep.ExecutiveSummary != "" {
		b.WriteString("## Executive Summary\n\n")
		b.WriteString(rep.ExecutiveSummary)
		b.WriteString("\n\n")
	}

	if len(rep.Themes) > 0 {
		b.WriteString("## Themes\n\n")
		for _, t := range rep.Themes {
			fmt.Fprintf(&b, "### %s\n\n", t.Theme)
			fmt.Fprintf(&b, "%s\n\n", t.Description)
			fmt.Fprintf(&b, "Evidence: **%s** (%d paper%s: %s)\n\n",
				t.EvidenceStrength, len(t.SupportingPaperIDs),
				plural(len(t.SupportingPaperIDs)), strings.Join(t.SupportingPaperIDs, ", "))
		}
	}

	if len(rep.ConsensusFindings) > 0 {
		b.WriteString("## Consensus Findings\n\n")
		for _, f := range rep.ConsensusFindings {
			fmt.Fprintf(&b, "- %s\n", f)
		}
		b.WriteString("\n")
	}

	if len(rep.ConflictingResults) > 0 {
		b.WriteString("## Conflicting Results\n\n")
		for _, c := range rep.ConflictingResults {
			fmt.Fprintf(&b, "- %s\n", c)
		}
		b.WriteString("\n")
	}

	if len(rep.Gaps) > 0 {
		b.WriteString("## Research Gaps\n\n")
		for _, g := range rep.Gaps {
			fmt.Fprintf(&b, "- %s *(impact: %s)*\n", g.Description, g.PotentialImpact)
			for _, d := range g.SuggestedDirections {
				fmt.Fprintf(&b, "  - %s\n", d)
			}
		}
		b.WriteString("\n")
	}

	if rep.MethodologyAnalysis != "" {
		b.WriteString("## Methodology Analysis\n\n")
		b.WriteString(rep.MethodologyAnalysis)
		b.WriteString("\n\n")
	}

	if len(result.Papers) > 0 {
		b.WriteString("## Papers\n\n")
		for i, p := range result.Papers {
			fmt.Fprintf(&b, "%d. **%s**", i+1, p.Title)
			if names := authorNames(p); names != "" {
				fmt.Fprintf(&b, " — %s", names)
			}
			if !p.PublishedDate.IsZero() {
				fmt.Fprintf(&b, " (%d)", p.PublishedDate.Year())
			}
			fmt.Fprintf(&b, "\n   %s", p.Source)
			if p.DOI != "" {
				fmt.Fprintf(&b, " | doi:%s", p.DOI)
			}
			if p.CitationCount >= 0 {
				fmt.Fprintf(&b, " | %d citations", p.CitationCount)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if len(result.Warnings) > 0 {
		b.WriteString("## Warnings\n\n")
		for _, w := range result.Warnings {
			fmt.Fprintf(&b, "- [%s] %s: %s\n", w.Stage, w.Subject, w.Message)
		}
		b.WriteString("\n")
	}

	return b.String()
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

func authorNames(p types.Paper) string {
	names := make([]string, 0, len(p.Authors))
	for _, a := range p.Authors {
		names = append(names, a.Name)
	}
	if len(names) > 3 {
		return strings.Join(names[:3], ", ") + " et al."
	}
	return strings.Join(names, ", ")
}
