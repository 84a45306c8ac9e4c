// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package verify scores factual claims against two evidence backends and
// fuses the results.
//
// Each claim gets a relational verdict (exact statute cross-reference lookup)
// and a semantic verdict (vector similarity over the law corpus). The
// relational verdict is authoritative when it commits either way; the
// semantic verdict fills in when the relational side cannot decide, and can
// demote a relational SUPPORTED to UNCERTAIN when it contradicts with high
// confidence. Per-claim verdicts aggregate into an overall reliability call
// for the whole answer.
package verify

// Status is the verdict for a single claim.
type Status string

const (
	StatusSupported    Status = "SUPPORTED"
	StatusContradicted Status = "CONTRADICTED"
	StatusUncertain    Status = "UNCERTAIN"
)

// Source identifies which evidence backend produced a verdict.
type Source string

const (
	SourceRelational Source = "RELATIONAL"
	SourceVector     Source = "VECTOR"
	SourceMixed      Source = "MIXED"
)

// Overall is the aggregate reliability verdict for a full answer.
type Overall string

const (
	OverallReliable     Overall = "RELIABLE"
	OverallUnreliable   Overall = "UNRELIABLE"
	OverallUncertain    Overall = "UNCERTAIN"
	OverallNoClaims     Overall = "NO_CLAIMS"
	OverallDirectAnswer Overall = "DIRECT_ANSWER"
)

// Record is one claim's fused verification verdict.
type Record struct {
	// Claim is the claim text that was scored.
	Claim string `json:"claim"`

	// Status is the fused verdict.
	Status Status `json:"status"`

	// Confidence is the fused confidence, rounded to 3 decimals.
	Confidence float64 `json:"confidence"`

	// Source identifies which backend(s) decided the verdict.
	Source Source `json:"source"`

	// Evidence is human-readable supporting text.
	Evidence string `json:"evidence,omitempty"`
}

// Aggregate summarizes all per-claim verdicts for one answer.
type Aggregate struct {
	// Overall is the reliability verdict for the whole answer.
	Overall Overall `json:"overall"`

	// AvgConfidence is the mean per-claim confidence, rounded to 3 decimals.
	AvgConfidence float64 `json:"avg_confidence"`

	// Supported, Contradicted, Uncertain, Total count per-claim verdicts.
	Supported    int `json:"supported"`
	Contradicted int `json:"contradicted"`
	Uncertain    int `json:"uncertain"`
	Total        int `json:"total"`
}
