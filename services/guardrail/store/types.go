// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package store provides the two evidence backends for claim verification.
//
// The relational side is an embedded BadgerDB keyed by statute section code,
// holding curated cross-reference mappings (old code → successor code). The
// semantic side is a Weaviate class of law corpus chunks queried by vector
// similarity. Verification fuses results from both; the scorers live in the
// verify package, this package only answers lookups.
package store

import "context"

// CrossReference is one curated mapping between an old statute section and
// its successor section in the replacement code.
type CrossReference struct {
	// SourceCode is the section identifier in the old code, e.g. "420".
	SourceCode string `json:"source_code"`

	// TargetCode is the corresponding section in the new code, e.g. "316".
	TargetCode string `json:"target_code"`

	// Notes carries curator commentary on scope changes between the two.
	Notes string `json:"notes,omitempty"`
}

// EvidenceHit is one corpus chunk returned by a semantic search, ordered by
// ascending vector distance.
type EvidenceHit struct {
	// Text is the chunk content.
	Text string

	// Metadata carries the chunk's source fields (source, page, section).
	Metadata map[string]any

	// Distance is the vector distance reported by the search backend.
	// Smaller is more similar.
	Distance float64
}

// CrossRefStore answers exact statute section lookups.
type CrossRefStore interface {
	// GetByCode returns the mapping for a section code, or ErrNotFound when
	// the code has no curated mapping.
	GetByCode(ctx context.Context, sourceCode string) (*CrossReference, error)

	// Put inserts or replaces a mapping.
	Put(ctx context.Context, ref CrossReference) error

	// Close releases the underlying database.
	Close() error
}

// CorpusSearcher answers semantic similarity queries over the law corpus.
type CorpusSearcher interface {
	// Query returns up to k chunks nearest to the query text, ascending by
	// distance.
	Query(ctx context.Context, text string, k int) ([]EvidenceHit, error)
}
