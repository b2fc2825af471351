// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the research-assistant
// pipeline: papers, summaries, synthesis reports, research jobs, and
// document passages.
package types

import (
	"crypto/sha256"
	"fmt"
	"time"
)

// Source identifies the academic database a paper was retrieved from.
type Source string

const (
	SourceArxiv    Source = "arxiv"
	SourcePubMed   Source = "pubmed"
	SourceDOAJ     Source = "doaj"
	SourceCrossref Source = "crossref"
)

// KnownSources lists every source the connectors support, in default
// priority order (used for rank tie-breaking).
var KnownSources = []Source{SourceArxiv, SourceCrossref, SourcePubMed, SourceDOAJ}

// IsKnown reports whether s names a supported source.
func (s Source) IsKnown() bool {
	for _, k := range KnownSources {
		if s == k {
			return true
		}
	}
	return false
}

// IsPreprint reports whether the source hosts preprints rather than
// peer-reviewed publications.
func (s Source) IsPreprint() bool {
	return s == SourceArxiv
}

// Author is a single paper author in source order.
type Author struct {
	// Name is the author's full name as returned by the source.
	Name string `json:"name" yaml:"name"`

	// Affiliation is the institutional affiliation, when the source provides one.
	Affiliation string `json:"affiliation,omitempty" yaml:"affiliation,omitempty"`
}

// Paper holds normalized metadata for a paper retrieved from an academic
// source. A Paper is immutable once retrieved; its identity is the
// (source, external id) pair encoded in ID.
type Paper struct {
	// ID is a stable hash of the source and the source-native identifier.
	ID string `json:"id" yaml:"id"`

	// ExternalID is the source-native identifier (arXiv ID, PMID, DOI).
	ExternalID string `json:"external_id" yaml:"external_id"`

	// Title is the paper title.
	Title string `json:"title" yaml:"title"`

	// Authors lists the paper authors in source order.
	Authors []Author `json:"authors" yaml:"authors"`

	// Abstract is the paper abstract.
	Abstract string `json:"abstract" yaml:"abstract"`

	// Source identifies which connector found this paper.
	Source Source `json:"source" yaml:"source"`

	// PublishedDate is the publication or preprint date.
	PublishedDate time.Time `json:"published_date" yaml:"published_date"`

	// DOI is the Digital Object Identifier, when known.
	DOI string `json:"doi,omitempty" yaml:"doi,omitempty"`

	// URL is the paper's landing page.
	URL string `json:"url" yaml:"url"`

	// PDFURL is a direct link to the full-text PDF, when available.
	PDFURL string `json:"pdf_url,omitempty" yaml:"pdf_url,omitempty"`

	// CitationCount is the number of citing works reported by the source.
	// Negative when the source does not report citation counts.
	CitationCount int `json:"citation_count" yaml:"citation_count"`

	// Keywords are subject terms or categories from the source.
	Keywords []string `json:"keywords,omitempty" yaml:"keywords,omitempty"`
}

// PaperID derives the stable paper identifier from a source and its
// native identifier. The ID is the first 16 hex characters of
// SHA-256(source ":" externalID), consistent across re-retrievals.
func PaperID(source Source, externalID string) string {
	h := sha256.New()
	h.Write([]byte(source))
	h.Write([]byte(":"))
	h.Write([]byte(externalID))
	return fmt.Sprintf("%x", h.Sum(nil))[:16]
}
