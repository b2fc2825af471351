// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package connector

import (
	"errors"
	"testing"
	"time"

	"github.com/pdiddy/research-assistant/pkg/types"
)

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		t.Fatalf("bad test date %q: %v", s, err)
	}
	return d
}

func assertSourceUnavailable(t *testing.T, err error) {
	t.Helper()
	if !errors.Is(err, types.ErrSourceUnavailable) {
		t.Errorf("error = %v, want ErrSourceUnavailable", err)
	}
}

func testCfg() types.ConnectorConfig {
	return types.ConnectorConfig{
		HTTPConfig: types.HTTPConfig{
			Timeout:   10 * time.Second,
			UserAgent: "test/0.1",
		},
		MaxResults:        20,
		RequestsPerSecond: 1000, // no throttling in tests
	}
}

// --- NormalizeTitle ---

func TestNormalizeTitle(t *testing.T) {
	tests := []struct {
		name  string
		title string
		want  string
	}{
		{"already normal", "attention is all you need", "attention is all you need"},
		{"mixed case", "Attention Is All You Need", "attention is all you need"},
		{"punctuation", "Attention, Is: All You Need!", "attention is all you need"},
		{"extra whitespace", "  Attention   Is\tAll You Need ", "attention is all you need"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeTitle(tt.title); got != tt.want {
				t.Errorf("NormalizeTitle(%q) = %q, want %q", tt.title, got, tt.want)
			}
		})
	}
}

// --- normalizeDOI ---

func TestNormalizeDOI(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"10.1234/ABC", "10.1234/abc"},
		{"https://doi.org/10.1234/abc", "10.1234/abc"},
		{"doi:10.1234/abc", "10.1234/abc"},
		{" 10.1234/abc ", "10.1234/abc"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := normalizeDOI(tt.in); got != tt.want {
			t.Errorf("normalizeDOI(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// --- stripMarkup ---

func TestStripMarkup(t *testing.T) {
	in := "<jats:p>We study <jats:italic>attention</jats:italic> mechanisms.</jats:p>"
	want := "We study attention mechanisms."
	if got := stripMarkup(in); got != want {
		t.Errorf("stripMarkup() = %q, want %q", got, want)
	}
}

// --- dedupeByExternalID ---

func TestDedupeByExternalID(t *testing.T) {
	papers := []types.Paper{
		{ExternalID: "a", Title: "A"},
		{ExternalID: "b", Title: "B"},
		{ExternalID: "a", Title: "A again"},
	}
	got := dedupeByExternalID(papers)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Title != "A" || got[1].Title != "B" {
		t.Errorf("unexpected order after dedup: %v", got)
	}
}

// --- ForSources ---

func TestForSources(t *testing.T) {
	all := All(testCfg())
	got := ForSources(all, []types.Source{types.SourcePubMed, types.SourceArxiv})
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	// Construction order preserved: arxiv comes before pubmed.
	if got[0].Name() != types.SourceArxiv || got[1].Name() != types.SourcePubMed {
		t.Errorf("order = [%s, %s], want [arxiv, pubmed]", got[0].Name(), got[1].Name())
	}
}
