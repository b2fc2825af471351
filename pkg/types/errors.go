// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "errors"

// Pipeline error taxonomy. Per-item failures (one source, one paper, one
// document) are recovered locally and surfaced as Warnings; whole-job
// failures terminate the job with an explanatory reason.
var (
	// ErrSourceUnavailable marks a single connector failure. The
	// aggregate search degrades to zero results from that source.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrExtractionFailed marks one paper whose summary could not be
	// parsed into the required structure. The paper is omitted from
	// synthesis input.
	ErrExtractionFailed = errors.New("extraction failed")

	// ErrInsufficientData marks a job with zero usable summaries.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrDocumentNotReady rejects questions against a document that has
	// not completed ingestion.
	ErrDocumentNotReady = errors.New("document not ready")

	// ErrNoRelevantContext rejects a question whose best passage matches
	// all fall below the relevance threshold, instead of letting the
	// model answer without grounding.
	ErrNoRelevantContext = errors.New("no relevant context")

	// ErrParseFailed marks a malformed PDF. The document enters the
	// failed state.
	ErrParseFailed = errors.New("parse failed")

	// ErrJobNotFound and ErrDocumentNotFound are lookup misses.
	ErrJobNotFound      = errors.New("job not found")
	ErrDocumentNotFound = errors.New("document not found")
)
