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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/LexGuard/services/guardrail/store"
)

func seededStore(t *testing.T) *store.MemCrossRefStore {
	t.Helper()
	s := store.NewMemCrossRefStore()
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, store.CrossReference{SourceCode: "420", TargetCode: "316", Notes: "Cheating."}))
	require.NoError(t, s.Put(ctx, store.CrossReference{SourceCode: "302", TargetCode: "103"}))
	return s
}

func newRelational(t *testing.T, refs store.CrossRefStore) *RelationalScorer {
	t.Helper()
	r, err := NewRelationalScorer(refs, nil)
	require.NoError(t, err)
	return r
}

func newSemantic(t *testing.T, corpus store.CorpusSearcher) *SemanticScorer {
	t.Helper()
	s, err := NewSemanticScorer(corpus, nil)
	require.NoError(t, err)
	return s
}

// ----------------------------------------------------------------------------
// Section extraction
// ----------------------------------------------------------------------------

func TestExtractSectionCode(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"ipc prefix", "IPC Section 420 covers cheating", "420"},
		{"bns prefix", "BNS Section 316 applies", "316"},
		{"bare section", "Section 376A was amended", "376A"},
		{"lowercase", "ipc section 420 is about cheating", "420"},
		{"letter suffix lowercase", "section 376a", "376A"},
		{"first of several", "Section 420 maps to Section 316", "420"},
		{"no section", "murder is a crime", ""},
		{"number without keyword", "offense 420 is listed", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractSectionCode(tt.text))
		})
	}
}

// ----------------------------------------------------------------------------
// Relational scorer
// ----------------------------------------------------------------------------

func TestRelationalScorer_NoSectionCode(t *testing.T) {
	r := newRelational(t, seededStore(t))

	rec := r.Score(context.Background(), "the law punishes dishonesty")
	assert.Equal(t, StatusUncertain, rec.Status)
	assert.Zero(t, rec.Confidence)
	assert.Equal(t, SourceRelational, rec.Source)
}

func TestRelationalScorer_UnmappedSection(t *testing.T) {
	r := newRelational(t, seededStore(t))

	rec := r.Score(context.Background(), "IPC Section 999 covers space law")
	assert.Equal(t, StatusUncertain, rec.Status)
	assert.InDelta(t, 0.4, rec.Confidence, 1e-9)
}

func TestRelationalScorer_TargetPresent(t *testing.T) {
	r := newRelational(t, seededStore(t))

	rec := r.Score(context.Background(), "IPC Section 420 corresponds to BNS Section 316")
	assert.Equal(t, StatusSupported, rec.Status)
	assert.InDelta(t, 0.9, rec.Confidence, 1e-9)
	assert.Contains(t, rec.Evidence, "IPC 420 → BNS 316.")
	assert.Contains(t, rec.Evidence, "Cheating.")
}

func TestRelationalScorer_TargetAbsent(t *testing.T) {
	r := newRelational(t, seededStore(t))

	rec := r.Score(context.Background(), "IPC Section 420 corresponds to BNS Section 999")
	assert.Equal(t, StatusContradicted, rec.Status)
	assert.InDelta(t, 0.7, rec.Confidence, 1e-9)
}

type failingStore struct{}

func (failingStore) GetByCode(context.Context, string) (*store.CrossReference, error) {
	return nil, errors.New("disk on fire")
}
func (failingStore) Put(context.Context, store.CrossReference) error { return nil }
func (failingStore) Close() error                                    { return nil }

func TestRelationalScorer_StoreErrorDegrades(t *testing.T) {
	r := newRelational(t, failingStore{})

	rec := r.Score(context.Background(), "IPC Section 420 applies")
	assert.Equal(t, StatusUncertain, rec.Status)
	assert.Zero(t, rec.Confidence)
}

// ----------------------------------------------------------------------------
// Semantic scorer
// ----------------------------------------------------------------------------

func TestSemanticScorer_Supported(t *testing.T) {
	s := newSemantic(t, &store.MemCorpus{Hits: []store.EvidenceHit{
		{Text: "Section 316 punishes cheating.", Distance: 0.1},
	}})

	rec := s.Score(context.Background(), "cheating is punished")
	assert.Equal(t, StatusSupported, rec.Status)
	assert.InDelta(t, 0.9, rec.Confidence, 1e-9)
	assert.Equal(t, SourceVector, rec.Source)
	assert.Equal(t, "Section 316 punishes cheating.", rec.Evidence)
}

func TestSemanticScorer_Contradicted(t *testing.T) {
	s := newSemantic(t, &store.MemCorpus{Hits: []store.EvidenceHit{
		{Text: "unrelated text", Distance: 0.7},
	}})

	rec := s.Score(context.Background(), "a claim")
	assert.Equal(t, StatusContradicted, rec.Status)
	assert.InDelta(t, 0.3, rec.Confidence, 1e-9)
}

func TestSemanticScorer_Uncertain(t *testing.T) {
	s := newSemantic(t, &store.MemCorpus{Hits: []store.EvidenceHit{
		{Text: "middling match", Distance: 0.4},
	}})

	rec := s.Score(context.Background(), "a claim")
	assert.Equal(t, StatusUncertain, rec.Status)
	assert.InDelta(t, 0.6, rec.Confidence, 1e-9)
}

func TestSemanticScorer_PicksNearestHit(t *testing.T) {
	s := newSemantic(t, &store.MemCorpus{Hits: []store.EvidenceHit{
		{Text: "far", Distance: 0.5},
		{Text: "near", Distance: 0.05},
		{Text: "mid", Distance: 0.3},
	}})

	rec := s.Score(context.Background(), "a claim")
	assert.Equal(t, "near", rec.Evidence)
	assert.InDelta(t, 0.95, rec.Confidence, 1e-9)
}

func TestSemanticScorer_DistanceClamped(t *testing.T) {
	s := newSemantic(t, &store.MemCorpus{Hits: []store.EvidenceHit{
		{Text: "weird backend", Distance: 1.8},
	}})

	rec := s.Score(context.Background(), "a claim")
	assert.Equal(t, StatusContradicted, rec.Status)
	assert.Zero(t, rec.Confidence)
}

func TestSemanticScorer_EvidenceTruncated(t *testing.T) {
	long := make([]byte, 900)
	for i := range long {
		long[i] = 'x'
	}
	s := newSemantic(t, &store.MemCorpus{Hits: []store.EvidenceHit{
		{Text: string(long), Distance: 0.1},
	}})

	rec := s.Score(context.Background(), "a claim")
	assert.Len(t, rec.Evidence, 500)
}

func TestSemanticScorer_EmptyAndErrorDegrade(t *testing.T) {
	empty := newSemantic(t, &store.MemCorpus{})
	rec := empty.Score(context.Background(), "a claim")
	assert.Equal(t, StatusUncertain, rec.Status)
	assert.Zero(t, rec.Confidence)

	failing := newSemantic(t, &store.MemCorpus{Err: errors.New("weaviate down")})
	rec = failing.Score(context.Background(), "a claim")
	assert.Equal(t, StatusUncertain, rec.Status)
	assert.Zero(t, rec.Confidence)
}

// ----------------------------------------------------------------------------
// Fusion
// ----------------------------------------------------------------------------

func TestFuse_RelationalAuthoritative(t *testing.T) {
	rel := Record{Claim: "c", Status: StatusSupported, Confidence: 0.9, Source: SourceRelational, Evidence: "rel"}
	sem := Record{Claim: "c", Status: StatusUncertain, Confidence: 0.6, Source: SourceVector, Evidence: "sem"}

	fused := fuse(rel, sem, DefaultConflictOverrideThreshold)
	assert.Equal(t, StatusSupported, fused.Status)
	assert.InDelta(t, 0.9, fused.Confidence, 1e-9)
	assert.Equal(t, SourceMixed, fused.Source)
	assert.Equal(t, "rel | sem", fused.Evidence)
}

func TestFuse_SemanticVetoDemotesSupported(t *testing.T) {
	rel := Record{Status: StatusSupported, Confidence: 0.9, Evidence: "rel"}
	sem := Record{Status: StatusContradicted, Confidence: 0.8, Evidence: "sem"}

	fused := fuse(rel, sem, DefaultConflictOverrideThreshold)
	assert.Equal(t, StatusUncertain, fused.Status)
	assert.InDelta(t, 0.85, fused.Confidence, 1e-9)
	assert.Equal(t, SourceMixed, fused.Source)
}

func TestFuse_VetoRequiresHighSemanticConfidence(t *testing.T) {
	rel := Record{Status: StatusSupported, Confidence: 0.9}
	sem := Record{Status: StatusContradicted, Confidence: 0.5}

	fused := fuse(rel, sem, DefaultConflictOverrideThreshold)
	assert.Equal(t, StatusSupported, fused.Status)
	assert.InDelta(t, 0.9, fused.Confidence, 1e-9)
}

func TestFuse_VetoThresholdOverridable(t *testing.T) {
	rel := Record{Status: StatusSupported, Confidence: 0.9}
	sem := Record{Status: StatusContradicted, Confidence: 0.5}

	fused := fuse(rel, sem, 0.4)
	assert.Equal(t, StatusUncertain, fused.Status)
	assert.InDelta(t, 0.7, fused.Confidence, 1e-9)
}

func TestFuse_RelationalUncertainPassesSemanticThrough(t *testing.T) {
	rel := Record{Status: StatusUncertain, Confidence: 0.4, Evidence: "rel"}
	sem := Record{Claim: "c", Status: StatusContradicted, Confidence: 0.3, Source: SourceVector, Evidence: "sem"}

	fused := fuse(rel, sem, DefaultConflictOverrideThreshold)
	assert.Equal(t, StatusContradicted, fused.Status)
	assert.Equal(t, SourceVector, fused.Source)
	assert.Equal(t, "sem", fused.Evidence)
	assert.InDelta(t, 0.3, fused.Confidence, 1e-9)
}

func TestFuse_ContradictedTakesMaxConfidence(t *testing.T) {
	rel := Record{Status: StatusContradicted, Confidence: 0.7}
	sem := Record{Status: StatusSupported, Confidence: 0.85}

	fused := fuse(rel, sem, DefaultConflictOverrideThreshold)
	assert.Equal(t, StatusContradicted, fused.Status)
	assert.InDelta(t, 0.85, fused.Confidence, 1e-9)
}

func TestFuse_ConfidenceRounded(t *testing.T) {
	rel := Record{Status: StatusUncertain}
	sem := Record{Status: StatusUncertain, Confidence: 0.6666666}

	fused := fuse(rel, sem, DefaultConflictOverrideThreshold)
	assert.Equal(t, 0.667, fused.Confidence)
}

// ----------------------------------------------------------------------------
// End-to-end verifier scenarios
// ----------------------------------------------------------------------------

func newVerifier(t *testing.T, refs store.CrossRefStore, corpus store.CorpusSearcher, opts ...VerifierOption) *Verifier {
	t.Helper()
	v, err := NewVerifier(newRelational(t, refs), newSemantic(t, corpus), opts...)
	require.NoError(t, err)
	return v
}

func TestVerifier_BothAgreeSupported(t *testing.T) {
	corpus := &store.MemCorpus{Hits: []store.EvidenceHit{
		{Text: "IPC Section 420 is now BNS Section 316.", Distance: 0.1},
	}}
	v := newVerifier(t, seededStore(t), corpus)

	rec := v.VerifyClaim(context.Background(), "IPC Section 420 corresponds to BNS Section 316")
	assert.Equal(t, StatusSupported, rec.Status)
	assert.Equal(t, SourceMixed, rec.Source)
	assert.InDelta(t, 0.9, rec.Confidence, 1e-9)
}

func TestVerifier_WrongMappingContradicted(t *testing.T) {
	corpus := &store.MemCorpus{Hits: []store.EvidenceHit{
		{Text: "unrelated statute text", Distance: 0.6},
	}}
	v := newVerifier(t, seededStore(t), corpus)

	rec := v.VerifyClaim(context.Background(), "IPC Section 420 corresponds to BNS Section 999")
	assert.Equal(t, StatusContradicted, rec.Status)
}

func TestVerifier_NoSectionFallsBackToVector(t *testing.T) {
	corpus := &store.MemCorpus{Hits: []store.EvidenceHit{
		{Text: "cheating is punishable", Distance: 0.15},
	}}
	v := newVerifier(t, seededStore(t), corpus)

	rec := v.VerifyClaim(context.Background(), "cheating carries a prison term")
	assert.Equal(t, StatusSupported, rec.Status)
	assert.Equal(t, SourceVector, rec.Source)
}

func TestVerifier_VerifyAllIndexAligned(t *testing.T) {
	v := newVerifier(t, seededStore(t), &store.MemCorpus{})

	claims := []string{
		"IPC Section 420 corresponds to BNS Section 316",
		"no sections here",
	}
	records := v.VerifyAll(context.Background(), claims)
	require.Len(t, records, 2)
	assert.Equal(t, claims[0], records[0].Claim)
	assert.Equal(t, claims[1], records[1].Claim)
}

// ----------------------------------------------------------------------------
// Aggregation
// ----------------------------------------------------------------------------

func TestSummarize_NoClaims(t *testing.T) {
	agg := Summarize(nil)
	assert.Equal(t, OverallNoClaims, agg.Overall)
	assert.Zero(t, agg.AvgConfidence)
	assert.Zero(t, agg.Total)
}

func TestSummarize_AnyContradictedVetoes(t *testing.T) {
	agg := Summarize([]Record{
		{Status: StatusSupported, Confidence: 0.9},
		{Status: StatusSupported, Confidence: 0.9},
		{Status: StatusSupported, Confidence: 0.9},
		{Status: StatusContradicted, Confidence: 0.9},
	})
	assert.Equal(t, OverallUnreliable, agg.Overall)
	assert.Equal(t, 3, agg.Supported)
	assert.Equal(t, 1, agg.Contradicted)
}

func TestSummarize_Reliable(t *testing.T) {
	agg := Summarize([]Record{
		{Status: StatusSupported, Confidence: 0.9},
		{Status: StatusSupported, Confidence: 0.85},
		{Status: StatusSupported, Confidence: 0.9},
		{Status: StatusUncertain, Confidence: 0.5},
	})
	assert.Equal(t, OverallReliable, agg.Overall)
	assert.InDelta(t, 0.788, agg.AvgConfidence, 1e-9)
}

func TestSummarize_LowSupportRatioUncertain(t *testing.T) {
	agg := Summarize([]Record{
		{Status: StatusSupported, Confidence: 0.9},
		{Status: StatusUncertain, Confidence: 0.9},
	})
	assert.Equal(t, OverallUncertain, agg.Overall)
}

func TestSummarize_LowAverageUncertain(t *testing.T) {
	agg := Summarize([]Record{
		{Status: StatusSupported, Confidence: 0.6},
		{Status: StatusSupported, Confidence: 0.6},
	})
	assert.Equal(t, OverallUncertain, agg.Overall)
}

func TestDirectAggregate(t *testing.T) {
	agg := DirectAggregate()
	assert.Equal(t, OverallDirectAnswer, agg.Overall)
	assert.Equal(t, 1.0, agg.AvgConfidence)
	assert.Zero(t, agg.Total)
	assert.Zero(t, agg.Supported)
}
