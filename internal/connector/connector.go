// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package connector adapts external academic source APIs (arXiv, PubMed,
// Crossref, DOAJ) to the common Paper shape. Each connector enforces a
// per-source rate limit and a bounded timeout; a connector failure
// surfaces as ErrSourceUnavailable and never aborts the aggregate search.
package connector

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"unicode"

	"golang.org/x/time/rate"

	"github.com/pdiddy/research-assistant/pkg/types"
)

// Query holds the search parameters passed to every connector.
type Query struct {
	// Text is the free-text research question.
	Text string

	// DateRange optionally restricts publication dates. Connectors whose
	// APIs support server-side date filters apply it there; the rest
	// filter client-side.
	DateRange types.DateRange

	// Language is an ISO 639-1 filter. Connectors without language
	// metadata ignore it.
	Language string
}

// Connector searches a single academic source. Implementations map the
// source's native schema into []types.Paper.
type Connector interface {
	Name() types.Source
	Search(ctx context.Context, q Query, maxResults int) ([]types.Paper, error)
}

// All constructs every supported connector with shared configuration.
func All(cfg types.ConnectorConfig) []Connector {
	client := &http.Client{Timeout: cfg.Timeout}
	return []Connector{
		NewArxiv(client, cfg),
		NewCrossref(client, cfg),
		NewPubMed(client, cfg),
		NewDOAJ(client, cfg),
	}
}

// ForSources filters connectors down to the requested sources,
// preserving construction order.
func ForSources(all []Connector, sources []types.Source) []Connector {
	want := make(map[types.Source]bool, len(sources))
	for _, s := range sources {
		want[s] = true
	}
	var out []Connector
	for _, c := range all {
		if want[c.Name()] {
			out = append(out, c)
		}
	}
	return out
}

// unavailable wraps a connector failure in the SourceUnavailable taxonomy.
func unavailable(src types.Source, err error) error {
	return fmt.Errorf("%s: %w: %w", src, types.ErrSourceUnavailable, err)
}

// newLimiter builds the per-source rate limiter from config.
func newLimiter(cfg types.ConnectorConfig) *rate.Limiter {
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 1
	}
	return rate.NewLimiter(rate.Limit(rps), 1)
}

// dedupeByExternalID drops repeated entries from a single source's
// result page, which some APIs emit across pagination boundaries.
func dedupeByExternalID(papers []types.Paper) []types.Paper {
	seen := make(map[string]bool, len(papers))
	out := papers[:0]
	for _, p := range papers {
		if seen[p.ExternalID] {
			continue
		}
		seen[p.ExternalID] = true
		out = append(out, p)
	}
	return out
}

// collapseSpace trims and collapses internal whitespace runs, which feed
// formats (Atom, JATS) introduce freely.
func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// stripMarkup removes XML/HTML tags from a string. Crossref abstracts
// arrive as JATS fragments.
func stripMarkup(s string) string {
	var b strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return collapseSpace(b.String())
}

// normalizeDOI lowercases a DOI and strips resolver prefixes so DOI
// equality holds across sources.
func normalizeDOI(doi string) string {
	doi = strings.TrimSpace(strings.ToLower(doi))
	for _, prefix := range []string{"https://doi.org/", "http://doi.org/", "doi:"} {
		doi = strings.TrimPrefix(doi, prefix)
	}
	return doi
}

// NormalizeTitle returns a lowercased, punctuation-stripped form of the
// title used for cross-source deduplication.
func NormalizeTitle(title string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
