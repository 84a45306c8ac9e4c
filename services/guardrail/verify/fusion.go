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
	"math"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("lexguard.verify")

// DefaultConflictOverrideThreshold is the semantic confidence above which a
// contradicting semantic verdict demotes a relational SUPPORTED to UNCERTAIN.
const DefaultConflictOverrideThreshold = 0.7

// Aggregation thresholds for the overall verdict.
const (
	aggSupportRatio  = 0.7
	aggAvgConfidence = 0.75
)

// Verifier fuses relational and semantic verdicts per claim.
type Verifier struct {
	relational *RelationalScorer
	semantic   *SemanticScorer
	// conflictThreshold gates the semantic veto of a relational SUPPORTED.
	conflictThreshold float64
	logger            *slog.Logger
}

// VerifierOption configures a Verifier.
type VerifierOption func(*Verifier)

// WithConflictOverrideThreshold overrides the semantic-veto threshold.
func WithConflictOverrideThreshold(t float64) VerifierOption {
	return func(v *Verifier) {
		if t > 0 && t <= 1 {
			v.conflictThreshold = t
		}
	}
}

// WithVerifierLogger sets the logger. Defaults to slog.Default().
func WithVerifierLogger(logger *slog.Logger) VerifierOption {
	return func(v *Verifier) {
		if logger != nil {
			v.logger = logger
		}
	}
}

// NewVerifier creates a fused verifier over both scorers.
func NewVerifier(relational *RelationalScorer, semantic *SemanticScorer, opts ...VerifierOption) (*Verifier, error) {
	if relational == nil || semantic == nil {
		return nil, fmt.Errorf("both scorers are required")
	}
	v := &Verifier{
		relational:        relational,
		semantic:          semantic,
		conflictThreshold: DefaultConflictOverrideThreshold,
		logger:            slog.Default(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

// VerifyClaim scores one claim through both backends and fuses the verdicts.
//
// Description:
//
//	The relational verdict is authoritative when it commits either way.
//	One exception: relational SUPPORTED against a semantic CONTRADICTED
//	whose confidence exceeds the conflict-override threshold becomes
//	UNCERTAIN with the two confidences averaged. Otherwise the fused
//	confidence is the max of the two and the source is MIXED with both
//	evidence strings carried. A relational UNCERTAIN passes the semantic
//	verdict through unchanged, source VECTOR.
func (v *Verifier) VerifyClaim(ctx context.Context, claim string) Record {
	ctx, span := tracer.Start(ctx, "Verifier.VerifyClaim")
	defer span.End()

	rel := v.relational.Score(ctx, claim)
	sem := v.semantic.Score(ctx, claim)

	fused := fuse(rel, sem, v.conflictThreshold)
	span.SetAttributes(
		attribute.String("verify.status", string(fused.Status)),
		attribute.String("verify.source", string(fused.Source)),
		attribute.Float64("verify.confidence", fused.Confidence),
	)

	v.logger.Debug("claim verified",
		slog.String("status", string(fused.Status)),
		slog.String("source", string(fused.Source)),
		slog.Float64("confidence", fused.Confidence),
	)
	return fused
}

// VerifyAll scores every claim in order. The returned slice is index-aligned
// with the input.
func (v *Verifier) VerifyAll(ctx context.Context, claims []string) []Record {
	records := make([]Record, 0, len(claims))
	for _, claim := range claims {
		records = append(records, v.VerifyClaim(ctx, claim))
	}
	return records
}

// fuse combines one relational and one semantic verdict.
func fuse(rel, sem Record, conflictThreshold float64) Record {
	if rel.Status == StatusUncertain {
		sem.Confidence = round3(sem.Confidence)
		return sem
	}

	fused := Record{
		Claim:    rel.Claim,
		Source:   SourceMixed,
		Evidence: joinEvidence(rel.Evidence, sem.Evidence),
	}

	if rel.Status == StatusSupported && sem.Status == StatusContradicted && sem.Confidence > conflictThreshold {
		fused.Status = StatusUncertain
		fused.Confidence = round3((rel.Confidence + sem.Confidence) / 2)
		return fused
	}

	fused.Status = rel.Status
	fused.Confidence = round3(math.Max(rel.Confidence, sem.Confidence))
	return fused
}

func joinEvidence(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	default:
		return a + " | " + b
	}
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

// Summarize aggregates per-claim verdicts into an overall reliability call.
//
// Description:
//
//	No claims is NO_CLAIMS with average 0.0. Any CONTRADICTED claim makes
//	the whole answer UNRELIABLE regardless of the other counts. An answer
//	is RELIABLE when at least 70% of claims are SUPPORTED and the average
//	confidence is at least 0.75; everything else is UNCERTAIN.
func Summarize(records []Record) Aggregate {
	agg := Aggregate{Total: len(records)}
	if agg.Total == 0 {
		agg.Overall = OverallNoClaims
		return agg
	}

	var sum float64
	for _, r := range records {
		sum += r.Confidence
		switch r.Status {
		case StatusSupported:
			agg.Supported++
		case StatusContradicted:
			agg.Contradicted++
		default:
			agg.Uncertain++
		}
	}
	agg.AvgConfidence = round3(sum / float64(agg.Total))

	switch {
	case agg.Contradicted > 0:
		agg.Overall = OverallUnreliable
	case float64(agg.Supported)/float64(agg.Total) >= aggSupportRatio && agg.AvgConfidence >= aggAvgConfidence:
		agg.Overall = OverallReliable
	default:
		agg.Overall = OverallUncertain
	}
	return agg
}

// DirectAggregate is the fixed aggregate for answers that skipped
// verification entirely.
func DirectAggregate() Aggregate {
	return Aggregate{
		Overall:       OverallDirectAnswer,
		AvgConfidence: 1.0,
	}
}
