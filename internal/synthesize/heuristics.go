// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package synthesize

import (
	"sort"
	"strings"

	"github.com/pdiddy/research-assistant/pkg/types"
)

// polarityPairs are direction words whose co-occurrence across papers on
// a shared subject signals a contradiction.
var polarityPairs = [][2]string{
	{"increase", "decrease"},
	{"improve", "worsen"},
	{"improved", "worsened"},
	{"positive", "negative"},
	{"effective", "ineffective"},
	{"significant", "no significant"},
	{"higher", "lower"},
	{"faster", "slower"},
	{"supports", "contradicts"},
}

// consensusOverlap is the minimum shared-term fraction for two findings
// from different papers to count as agreeing.
const consensusOverlap = 0.5

// consensusFindings returns findings that at least two papers state in
// near-identical terms. The earliest phrasing is kept.
func consensusFindings(summaries []types.PaperSummary) []string {
	type finding struct {
		text   string
		terms  map[string]bool
		papers map[string]bool
	}
	var agreed []finding

	for _, s := range summaries {
		for _, f := range s.KeyFindings {
			ft := contentTerms(f)
			matched := false
			for i := range agreed {
				if overlap(ft, agreed[i].terms) >= consensusOverlap && !conflicting(f, agreed[i].text) {
					agreed[i].papers[s.PaperID] = true
					matched = true
					break
				}
			}
			if !matched {
				agreed = append(agreed, finding{
					text:   f,
					terms:  ft,
					papers: map[string]bool{s.PaperID: true},
				})
			}
		}
	}

	var out []string
	for _, f := range agreed {
		if len(f.papers) >= 2 {
			out = append(out, f.text)
		}
	}
	return out
}

// conflictingResults pairs findings from different papers that share a
// subject but point in opposite directions.
func conflictingResults(summaries []types.PaperSummary) []string {
	type finding struct {
		text    string
		terms   map[string]bool
		paperID string
	}
	var all []finding
	for _, s := range summaries {
		for _, f := range s.KeyFindings {
			all = append(all, finding{text: f, terms: contentTerms(f), paperID: s.PaperID})
		}
	}

	var out []string
	seen := make(map[string]bool)
	for i := 0; i < len(all); i++ {
		for j := i + 1; j < len(all); j++ {
			if all[i].paperID == all[j].paperID {
				continue
			}
			if overlap(all[i].terms, all[j].terms) < 0.3 {
				continue
			}
			if !conflicting(all[i].text, all[j].text) {
				continue
			}
			key := all[i].paperID + "|" + all[j].paperID
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, "\""+all[i].text+"\" ("+all[i].paperID+") vs \""+all[j].text+"\" ("+all[j].paperID+")")
		}
	}
	return out
}

// conflicting reports whether two statements carry opposite polarity
// words.
func conflicting(a, b string) bool {
	la, lb := strings.ToLower(a), strings.ToLower(b)
	for _, pair := range polarityPairs {
		if strings.Contains(la, pair[0]) && strings.Contains(lb, pair[1]) {
			return true
		}
		if strings.Contains(la, pair[1]) && strings.Contains(lb, pair[0]) {
			return true
		}
	}
	return false
}

// deriveGaps turns limitations that recur across papers into research
// gaps. Impact scales with how many papers share the limitation.
func deriveGaps(summaries []types.PaperSummary, themes []types.SynthesisTheme) []types.ResearchGap {
	type limGroup struct {
		text   string
		terms  map[string]bool
		papers []string
	}
	var groups []limGroup

	for _, s := range summaries {
		lim := strings.TrimSpace(s.Limitations)
		if lim == "" {
			continue
		}
		lt := contentTerms(lim)
		matched := false
		for i := range groups {
			if overlap(lt, groups[i].terms) >= 0.4 {
				groups[i].papers = append(groups[i].papers, s.PaperID)
				matched = true
				break
			}
		}
		if !matched {
			groups = append(groups, limGroup{text: lim, terms: lt, papers: []string{s.PaperID}})
		}
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return len(groups[i].papers) > len(groups[j].papers)
	})

	var gaps []types.ResearchGap
	for _, g := range groups {
		gap := types.ResearchGap{
			Description:      "Recurring limitation across the literature: " + g.text,
			LimitingPaperIDs: g.papers,
			PotentialImpact:  impactFromSupport(len(g.papers)),
			SuggestedDirections: []string{
				"Design follow-up studies that directly address: " + g.text,
			},
		}
		for _, t := range themes {
			if touches(g.papers, t.SupportingPaperIDs) {
				gap.RelatedThemes = append(gap.RelatedThemes, t.Theme)
			}
		}
		gaps = append(gaps, gap)
	}
	return gaps
}

func impactFromSupport(papers int) types.ImpactLevel {
	switch {
	case papers >= 3:
		return types.ImpactHigh
	case papers == 2:
		return types.ImpactMedium
	default:
		return types.ImpactLow
	}
}

func touches(a, b []string) bool {
	set := make(map[string]bool, len(a))
	for _, x := range a {
		set[x] = true
	}
	for _, y := range b {
		if set[y] {
			return true
		}
	}
	return false
}

// stopwords excluded from term overlap so function words do not inflate
// similarity.
var stopwords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "that": true,
	"this": true, "from": true, "was": true, "were": true, "are": true,
	"has": true, "have": true, "had": true, "not": true, "but": true,
	"its": true, "their": true, "our": true, "into": true, "than": true,
}

// contentTerms returns the meaningful lowercase words of a statement.
func contentTerms(s string) map[string]bool {
	out := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(s)) {
		w = strings.Trim(w, ".,;:!?\"'()%")
		if len(w) < 3 || stopwords[w] {
			continue
		}
		out[w] = true
	}
	return out
}

// overlap is the fraction of the smaller term set found in the other.
func overlap(a, b map[string]bool) float64 {
	small, large := a, b
	if len(b) < len(a) {
		small, large = b, a
	}
	if len(small) == 0 {
		return 0
	}
	hits := 0
	for t := range small {
		if large[t] {
			hits++
		}
	}
	return float64(hits) / float64(len(small))
}
