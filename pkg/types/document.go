// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// DocumentState tracks an uploaded document through ingestion.
// Transitions are strictly ordered: uploaded, parsed, indexed, ready.
// A parse or embedding error moves the document to failed from any state.
type DocumentState string

const (
	DocumentUploaded DocumentState = "uploaded"
	DocumentParsed   DocumentState = "parsed"
	DocumentIndexed  DocumentState = "indexed"
	DocumentReady    DocumentState = "ready"
	DocumentFailed   DocumentState = "failed"
)

// Document is an uploaded PDF tracked by the document index.
type Document struct {
	// ID is an opaque unique token assigned at upload.
	ID string `json:"id" yaml:"id"`

	// Filename is the original upload name.
	Filename string `json:"filename" yaml:"filename"`

	// State is the ingestion state.
	State DocumentState `json:"state" yaml:"state"`

	// Pages is the page count, known after parsing.
	Pages int `json:"pages" yaml:"pages"`

	// PassageCount is the number of indexed passages.
	PassageCount int `json:"passage_count" yaml:"passage_count"`

	// FailureReason explains a failed state.
	FailureReason string `json:"failure_reason,omitempty" yaml:"failure_reason,omitempty"`

	UploadedAt time.Time `json:"uploaded_at" yaml:"uploaded_at"`
}

// Region is an axis-aligned bounding box on a PDF page, in PDF points
// with the origin at the lower-left corner.
type Region struct {
	X0 float64 `json:"x0" yaml:"x0"`
	Y0 float64 `json:"y0" yaml:"y0"`
	X1 float64 `json:"x1" yaml:"x1"`
	Y1 float64 `json:"y1" yaml:"y1"`
}

// DocumentPassage is an addressable span of parsed document text, the
// retrieval unit for citation-linked question answering. Created at
// ingestion time and immutable afterwards.
type DocumentPassage struct {
	// DocumentID identifies the owning document.
	DocumentID string `json:"document_id" yaml:"document_id"`

	// PassageID is unique within the document and stable across reloads.
	PassageID string `json:"passage_id" yaml:"passage_id"`

	// Page is the 1-based page number the passage starts on.
	Page int `json:"page" yaml:"page"`

	// Region is the bounding box covering the passage text.
	Region Region `json:"region" yaml:"region"`

	// Text is the passage content.
	Text string `json:"text" yaml:"text"`

	// Embedding is the fixed-dimension vector for similarity search.
	// Omitted from API responses.
	Embedding []float64 `json:"-" yaml:"-"`
}

// GroundedAnswer is the response to a document question: an answer
// constrained to the retrieved passages, plus the passages it cites.
type GroundedAnswer struct {
	// Answer is the model's grounded response.
	Answer string `json:"answer" yaml:"answer"`

	// Citations are the passages backing the answer, each belonging to
	// the questioned document.
	Citations []DocumentPassage `json:"citations" yaml:"citations"`
}
