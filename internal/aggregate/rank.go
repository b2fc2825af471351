// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package aggregate

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/pdiddy/research-assistant/pkg/types"
)

// citationSaturation is the citation count at which the citation
// component reaches 1.0.
const citationSaturation = 1000

// rank orders papers by a weighted composite of citation impact,
// recency, and lexical overlap with the query. Ties break on source
// priority, then title, so the ordering is deterministic.
func (a *Aggregator) rank(papers []types.Paper, query string) {
	queryTerms := terms(query)
	now := time.Now()

	scores := make(map[string]float64, len(papers))
	for _, p := range papers {
		scores[p.ID] = a.cfg.CitationWeight*citationScore(p.CitationCount) +
			a.cfg.RecencyWeight*a.recencyScore(p.PublishedDate, now) +
			a.cfg.LexicalWeight*lexicalScore(queryTerms, p)
	}

	sort.SliceStable(papers, func(i, j int) bool {
		si, sj := scores[papers[i].ID], scores[papers[j].ID]
		if si != sj {
			return si > sj
		}
		ri, rj := a.sourceRank(papers[i].Source), a.sourceRank(papers[j].Source)
		if ri != rj {
			return ri < rj
		}
		return papers[i].Title < papers[j].Title
	})
}

// citationScore maps a citation count onto [0, 1] with logarithmic
// damping. Unknown counts (-1) score a neutral midpoint rather than
// zero, so sources without citation data are not structurally buried.
func citationScore(count int) float64 {
	if count < 0 {
		return 0.5
	}
	s := math.Log1p(float64(count)) / math.Log1p(citationSaturation)
	return math.Min(s, 1)
}

// recencyScore decays exponentially with age, halving every
// RecencyHalfLife. Unknown dates score zero.
func (a *Aggregator) recencyScore(published, now time.Time) float64 {
	if published.IsZero() {
		return 0
	}
	age := now.Sub(published)
	if age < 0 {
		age = 0
	}
	return math.Exp2(-float64(age) / float64(a.cfg.RecencyHalfLife))
}

// lexicalScore is the fraction of query terms found in the paper's
// title, abstract, or keywords.
func lexicalScore(queryTerms []string, p types.Paper) float64 {
	if len(queryTerms) == 0 {
		return 0
	}
	text := strings.ToLower(p.Title + " " + p.Abstract + " " + strings.Join(p.Keywords, " "))
	hits := 0
	for _, t := range queryTerms {
		if strings.Contains(text, t) {
			hits++
		}
	}
	return float64(hits) / float64(len(queryTerms))
}

// terms tokenizes a query into lowercase words, dropping short stop-like
// tokens that would match almost anything.
func terms(query string) []string {
	var out []string
	for _, f := range strings.Fields(strings.ToLower(query)) {
		f = strings.Trim(f, ".,;:!?\"'()")
		if len(f) >= 3 {
			out = append(out, f)
		}
	}
	return out
}
