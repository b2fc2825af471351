// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"strings"
	"time"
)

// Request bounds enforced at the submission boundary.
const (
	MinQueryLength = 3
	MaxQueryLength = 500
	MinPapers      = 1
	MaxPapers      = 50
)

// DateRange bounds paper publication dates. Zero values leave the
// corresponding side open.
type DateRange struct {
	From time.Time `json:"from,omitempty" yaml:"from,omitempty"`
	To   time.Time `json:"to,omitempty" yaml:"to,omitempty"`
}

// IsZero reports whether neither side of the range is set.
func (d DateRange) IsZero() bool {
	return d.From.IsZero() && d.To.IsZero()
}

// Contains reports whether t falls within the range. A zero t is always
// accepted so papers with unknown dates are not silently dropped.
func (d DateRange) Contains(t time.Time) bool {
	if t.IsZero() {
		return true
	}
	if !d.From.IsZero() && t.Before(d.From) {
		return false
	}
	if !d.To.IsZero() && t.After(d.To) {
		return false
	}
	return true
}

// ResearchRequest holds the validated parameters of a research submission.
type ResearchRequest struct {
	// Query is the natural-language research question.
	Query string `json:"query" yaml:"query"`

	// MaxPapers bounds the aggregated result set, between 1 and 50.
	MaxPapers int `json:"max_papers" yaml:"max_papers"`

	// Sources selects which connectors to query. Empty means all.
	Sources []Source `json:"sources,omitempty" yaml:"sources,omitempty"`

	// IncludePreprints controls whether preprint-only papers are kept.
	IncludePreprints bool `json:"include_preprints" yaml:"include_preprints"`

	// DateRange optionally restricts publication dates.
	DateRange DateRange `json:"date_range,omitempty" yaml:"date_range,omitempty"`

	// Language is an ISO 639-1 language filter (default "en").
	Language string `json:"language,omitempty" yaml:"language,omitempty"`
}

// Validate rejects malformed requests at the boundary so no loosely
// shaped input reaches the pipeline. It returns the first violation found.
func (r ResearchRequest) Validate() error {
	q := strings.TrimSpace(r.Query)
	if len(q) < MinQueryLength {
		return fmt.Errorf("query must be at least %d characters", MinQueryLength)
	}
	if len(q) > MaxQueryLength {
		return fmt.Errorf("query must be at most %d characters", MaxQueryLength)
	}
	if r.MaxPapers < MinPapers || r.MaxPapers > MaxPapers {
		return fmt.Errorf("max_papers must be between %d and %d, got %d", MinPapers, MaxPapers, r.MaxPapers)
	}
	for _, s := range r.Sources {
		if !s.IsKnown() {
			return fmt.Errorf("unknown source %q", s)
		}
	}
	if !r.DateRange.From.IsZero() && !r.DateRange.To.IsZero() && r.DateRange.To.Before(r.DateRange.From) {
		return fmt.Errorf("date range end precedes start")
	}
	return nil
}

// EffectiveSources returns the requested sources, or all known sources
// when none were specified.
func (r ResearchRequest) EffectiveSources() []Source {
	if len(r.Sources) == 0 {
		return append([]Source(nil), KnownSources...)
	}
	return r.Sources
}
