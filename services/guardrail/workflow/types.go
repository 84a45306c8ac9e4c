// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package workflow assembles the verification pipeline and exposes its one
// entry point, RunVerification.
//
// The pipeline is a staged graph: PLAN decides whether the question needs
// verification, ANSWER drafts the response, and on the verify branch EXTRACT
// pulls out factual claims, FUSE scores them against both evidence backends,
// and ESCALATE decides whether a human needs to look. RECORD always runs
// last and appends the run to the evaluation log.
package workflow

import (
	"github.com/AleutianAI/LexGuard/services/guardrail/graph"
	"github.com/AleutianAI/LexGuard/services/guardrail/verify"
)

// Stage names in the verification graph.
const (
	StagePlan     = "PLAN"
	StageAnswer   = "ANSWER"
	StageExtract  = "EXTRACT"
	StageFuse     = "FUSE"
	StageEscalate = "ESCALATE"
	StageRecord   = "RECORD"
)

// Routes emitted by the planner.
const (
	RouteVerify = "verify"
	RouteDirect = "direct"
)

// State keys threaded through the graph.
const (
	keyQuestion      = "question"
	keyProvider      = "provider"
	keyModel         = "model"
	keyRoute         = "route"
	keyPlan          = "plan"
	keyAnswer        = "answer"
	keyClaims        = "claims"
	keyVerifications = "verifications"
	keyFinalResult   = "final_result"
	keyNeedsHuman    = "needs_human"
	keyHumanFeedback = "human_feedback"
	keyEvaluation    = "evaluation"
)

// Human feedback markers written by the escalation gate.
const (
	FeedbackQueued   = "queued_for_review"
	FeedbackApproved = "auto-approved"
)

// RunState is the final, typed view of one pipeline run.
type RunState struct {
	RunID         string           `json:"run_id"`
	Question      string           `json:"question"`
	Provider      string           `json:"provider"`
	Model         string           `json:"model"`
	Route         string           `json:"route"`
	Plan          string           `json:"plan"`
	Answer        string           `json:"answer"`
	Claims        []string         `json:"claims"`
	Verifications []verify.Record  `json:"verifications"`
	FinalResult   verify.Aggregate `json:"final_result"`
	NeedsHuman    bool             `json:"needs_human"`
	HumanFeedback string           `json:"human_feedback"`
	Evaluation    map[string]any   `json:"evaluation,omitempty"`

	// StageErrors carries per-stage degradation messages, keyed by stage.
	StageErrors map[string]string `json:"stage_errors,omitempty"`
}

// runStateFrom converts the engine's final state into the typed view.
func runStateFrom(res *graph.Result) *RunState {
	st := res.Final
	rs := &RunState{
		RunID:         res.RunID,
		Question:      st.GetString(keyQuestion),
		Provider:      st.GetString(keyProvider),
		Model:         st.GetString(keyModel),
		Route:         st.GetString(keyRoute),
		Plan:          st.GetString(keyPlan),
		Answer:        st.GetString(keyAnswer),
		HumanFeedback: st.GetString(keyHumanFeedback),
		NeedsHuman:    st.GetBool(keyNeedsHuman),
		StageErrors:   res.StageErrors,
	}

	if claims, ok := st[keyClaims].([]string); ok {
		rs.Claims = claims
	}
	if records, ok := st[keyVerifications].([]verify.Record); ok {
		rs.Verifications = records
	}
	if agg, ok := st[keyFinalResult].(verify.Aggregate); ok {
		rs.FinalResult = agg
	}
	if eval, ok := st[keyEvaluation].(map[string]any); ok {
		rs.Evaluation = eval
	}
	return rs
}
