// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package verify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/AleutianAI/LexGuard/services/guardrail/store"
)

// Semantic scorer thresholds on similarity s = clamp(1 - distance, 0, 1).
const (
	semSupportThreshold    = 0.75
	semContradictThreshold = 0.45

	// semTopK is how many corpus chunks one claim is scored against.
	semTopK = 3

	// semEvidenceMaxLen caps the evidence text carried per claim.
	semEvidenceMaxLen = 500
)

// SemanticScorer verifies claims by vector similarity over the law corpus.
type SemanticScorer struct {
	corpus store.CorpusSearcher
	logger *slog.Logger
}

// NewSemanticScorer creates a scorer over the given corpus.
func NewSemanticScorer(corpus store.CorpusSearcher, logger *slog.Logger) (*SemanticScorer, error) {
	if corpus == nil {
		return nil, fmt.Errorf("corpus searcher must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SemanticScorer{corpus: corpus, logger: logger}, nil
}

// Score verifies one claim against the corpus.
//
// Description:
//
//	Queries the top-3 nearest chunks and converts the best hit's distance
//	to a similarity s = clamp(1-d, 0, 1). s ≥ 0.75 is SUPPORTED, s ≤ 0.45
//	is CONTRADICTED, anything between is UNCERTAIN; the confidence is s
//	itself. An empty result set or a search error degrades to
//	UNCERTAIN/0.0 and is never propagated.
func (s *SemanticScorer) Score(ctx context.Context, claim string) Record {
	rec := Record{
		Claim:  claim,
		Status: StatusUncertain,
		Source: SourceVector,
	}

	hits, err := s.corpus.Query(ctx, claim, semTopK)
	if err != nil {
		s.logger.Warn("corpus search failed", slog.String("error", err.Error()))
		rec.Evidence = "corpus unavailable"
		return rec
	}
	if len(hits) == 0 {
		rec.Evidence = "no corpus evidence found"
		return rec
	}

	best := hits[0]
	for _, h := range hits[1:] {
		if h.Distance < best.Distance {
			best = h
		}
	}

	sim := clamp(1-best.Distance, 0, 1)
	rec.Confidence = sim
	rec.Evidence = truncateEvidence(best.Text, semEvidenceMaxLen)

	switch {
	case sim >= semSupportThreshold:
		rec.Status = StatusSupported
	case sim <= semContradictThreshold:
		rec.Status = StatusContradicted
	}
	return rec
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func truncateEvidence(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
