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
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/AleutianAI/LexGuard/services/guardrail/store"
)

// sectionPattern matches statute section references like "IPC Section 420",
// "BNS Section 316" or a bare "Section 376A". The first capture group is the
// section code.
var sectionPattern = regexp.MustCompile(`(?i)(?:IPC|BNS)?\s*Section\s*(\d+[A-Z]?)`)

// Relational scorer confidences. The lookup is exact, so a committed verdict
// carries high confidence; an unmapped section still tells us the claim is
// about a real-looking code, hence the non-zero uncertain confidence.
const (
	relSupportedConfidence    = 0.9
	relContradictedConfidence = 0.7
	relUnmappedConfidence     = 0.4
)

// RelationalScorer verifies claims against the curated cross-reference store.
type RelationalScorer struct {
	store  store.CrossRefStore
	logger *slog.Logger
}

// NewRelationalScorer creates a scorer over the given store.
func NewRelationalScorer(refs store.CrossRefStore, logger *slog.Logger) (*RelationalScorer, error) {
	if refs == nil {
		return nil, fmt.Errorf("cross-reference store must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RelationalScorer{store: refs, logger: logger}, nil
}

// ExtractSectionCode returns the first statute section code in the text, or
// "" when the text references no section.
func ExtractSectionCode(text string) string {
	m := sectionPattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.ToUpper(m[1])
}

// Score verifies one claim against the cross-reference mapping.
//
// Description:
//
//	Extracts the first section code from the claim and looks it up. A claim
//	with no section code is UNCERTAIN/0.0. A code with no curated mapping
//	is UNCERTAIN/0.4. When the mapping's target code appears literally in
//	the claim the verdict is SUPPORTED/0.9, otherwise CONTRADICTED/0.7.
//	Store errors degrade to UNCERTAIN/0.0 and are never propagated.
func (r *RelationalScorer) Score(ctx context.Context, claim string) Record {
	rec := Record{
		Claim:  claim,
		Status: StatusUncertain,
		Source: SourceRelational,
	}

	code := ExtractSectionCode(claim)
	if code == "" {
		rec.Evidence = "no statute section referenced"
		return rec
	}

	ref, err := r.store.GetByCode(ctx, code)
	if errors.Is(err, store.ErrNotFound) {
		rec.Confidence = relUnmappedConfidence
		rec.Evidence = fmt.Sprintf("Section %s has no curated cross-reference", code)
		return rec
	}
	if err != nil {
		r.logger.Warn("cross-reference lookup failed",
			slog.String("section", code),
			slog.String("error", err.Error()),
		)
		rec.Evidence = "cross-reference store unavailable"
		return rec
	}

	evidence := fmt.Sprintf("IPC %s → BNS %s.", ref.SourceCode, ref.TargetCode)
	if ref.Notes != "" {
		evidence += " " + ref.Notes
	}
	rec.Evidence = evidence

	if strings.Contains(strings.ToUpper(claim), ref.TargetCode) {
		rec.Status = StatusSupported
		rec.Confidence = relSupportedConfidence
	} else {
		rec.Status = StatusContradicted
		rec.Confidence = relContradictedConfidence
	}
	return rec
}
