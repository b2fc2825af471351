// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package aggregate fans a research query out to the source connectors
// and merges their results into one deduplicated, ranked paper list.
package aggregate

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/pdiddy/research-assistant/internal/connector"
	"github.com/pdiddy/research-assistant/pkg/types"
)

// Aggregator coordinates concurrent retrieval across connectors.
type Aggregator struct {
	cfg types.AggregatorConfig
}

// New builds an Aggregator.
func New(cfg types.AggregatorConfig) *Aggregator {
	return &Aggregator{cfg: cfg}
}

// Result is the outcome of one aggregate search. Warnings record
// per-source failures; a source failing never fails the whole search.
type Result struct {
	Papers   []types.Paper
	Warnings []types.Warning
}

// Gather queries every connector concurrently under a shared deadline,
// merges duplicates, ranks the survivors against the query, and
// truncates to the requested cap. All sources failing yields an empty
// paper list with one warning per source, not an error.
func (a *Aggregator) Gather(ctx context.Context, conns []connector.Connector, req types.ResearchRequest) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.Deadline)
	defer cancel()

	q := connector.Query{
		Text:      req.Query,
		DateRange: req.DateRange,
		Language:  req.Language,
	}

	type sourceResult struct {
		source types.Source
		papers []types.Paper
		err    error
	}

	results := make(chan sourceResult, len(conns))
	var wg sync.WaitGroup
	for _, c := range conns {
		wg.Add(1)
		go func(c connector.Connector) {
			defer wg.Done()
			papers, err := c.Search(ctx, q, req.MaxPapers)
			results <- sourceResult{source: c.Name(), papers: papers, err: err}
		}(c)
	}
	wg.Wait()
	close(results)

	var res Result
	var papers []types.Paper
	for r := range results {
		if r.err != nil {
			res.Warnings = append(res.Warnings, types.Warning{
				Stage:   types.StageRetrieval,
				Subject: string(r.source),
				Message: fmt.Sprintf("source unavailable: %v", r.err),
			})
			continue
		}
		papers = append(papers, r.papers...)
	}
	sort.SliceStable(res.Warnings, func(i, j int) bool {
		return res.Warnings[i].Subject < res.Warnings[j].Subject
	})

	papers = a.merge(papers)

	if !req.IncludePreprints {
		kept := papers[:0]
		for _, p := range papers {
			// A DOI on a preprint-server record means a published
			// version exists, so the paper is not preprint-only.
			if !p.Source.IsPreprint() || p.DOI != "" {
				kept = append(kept, p)
			}
		}
		papers = kept
	}

	a.rank(papers, req.Query)
	if len(papers) > req.MaxPapers {
		papers = papers[:req.MaxPapers]
	}
	res.Papers = papers
	return res, nil
}

// merge collapses duplicate papers across sources. DOI is authoritative;
// papers without one fall back to normalized-title matching. The survivor
// comes from the higher-priority source, enriched with any metadata only
// the duplicate carried.
func (a *Aggregator) merge(papers []types.Paper) []types.Paper {
	byDOI := make(map[string]int)
	byTitle := make(map[string]int)
	var out []types.Paper

	for _, p := range papers {
		idx := -1
		if p.DOI != "" {
			if i, ok := byDOI[p.DOI]; ok {
				idx = i
			}
		}
		if idx < 0 {
			if i, ok := byTitle[connector.NormalizeTitle(p.Title)]; ok {
				idx = i
			}
		}

		if idx < 0 {
			out = append(out, p)
			idx = len(out) - 1
		} else {
			out[idx] = a.mergePair(out[idx], p)
		}

		if out[idx].DOI != "" {
			byDOI[out[idx].DOI] = idx
		}
		byTitle[connector.NormalizeTitle(out[idx].Title)] = idx
	}
	return out
}

// mergePair combines two records of the same paper. The higher-priority
// source provides the base record; a published version always outranks a
// preprint of the same work.
func (a *Aggregator) mergePair(x, y types.Paper) types.Paper {
	base, other := x, y
	if a.precedes(y, x) {
		base, other = y, x
	}

	if base.Abstract == "" {
		base.Abstract = other.Abstract
	}
	if base.DOI == "" {
		base.DOI = other.DOI
	}
	if base.PDFURL == "" {
		base.PDFURL = other.PDFURL
	}
	if len(base.Authors) == 0 {
		base.Authors = other.Authors
	}
	if other.CitationCount > base.CitationCount {
		base.CitationCount = other.CitationCount
	}
	if base.PublishedDate.IsZero() {
		base.PublishedDate = other.PublishedDate
	}

	seen := make(map[string]bool, len(base.Keywords))
	for _, kw := range base.Keywords {
		seen[kw] = true
	}
	for _, kw := range other.Keywords {
		if !seen[kw] {
			base.Keywords = append(base.Keywords, kw)
			seen[kw] = true
		}
	}
	return base
}

// precedes reports whether p should provide the base record over q.
func (a *Aggregator) precedes(p, q types.Paper) bool {
	if p.Source.IsPreprint() != q.Source.IsPreprint() {
		return !p.Source.IsPreprint()
	}
	return a.sourceRank(p.Source) < a.sourceRank(q.Source)
}

func (a *Aggregator) sourceRank(s types.Source) int {
	for i, src := range a.cfg.SourcePriority {
		if src == s {
			return i
		}
	}
	return len(a.cfg.SourcePriority)
}
