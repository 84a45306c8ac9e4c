// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package workflow

import (
	"encoding/json"
	"fmt"
	"strings"
)

// plannerPrompt asks the model to classify the question and sketch a plan.
// The response must be a JSON object {"plan": ..., "route": ...}.
const plannerPrompt = `You are the routing planner for a legal question-answering system
covering the transition from the Indian Penal Code (IPC) to the
Bharatiya Nyaya Sanhita (BNS).

Classify the question and reply with ONLY a JSON object:
{"plan": "<one-sentence answering plan>", "route": "<verify|direct>"}

Use "verify" when the answer will state legal facts, cite statute
sections, or map IPC sections to BNS sections. Use "direct" only for
greetings, meta-questions about this system, or questions with no
legal factual content.

Question: %s`

// answerPrompt drafts the actual response.
const answerPrompt = `You are a careful legal assistant for Indian criminal law during
the IPC to BNS transition. Answer the question concisely and
precisely. Cite statute sections only when you are certain they are
correct; never invent section numbers. If you are unsure of a
mapping, say so.

Plan: %s

Question: %s`

// extractionPrompt pulls individual factual claims out of an answer.
const extractionPrompt = `List every distinct factual claim made in the text below, one claim
per line, with no numbering and no commentary. Each claim must be a
complete standalone sentence.

Text:
%s`

// plannerOutput is the JSON shape the planner must produce.
type plannerOutput struct {
	Plan  string `json:"plan"`
	Route string `json:"route"`
}

// parsePlannerOutput decodes the planner's JSON reply.
//
// Description:
//
//	Models often wrap JSON in markdown fences; those are stripped before
//	decoding. Any malformed reply, or a route other than verify/direct,
//	fails parsing so the caller can fall back to the verify route.
func parsePlannerOutput(raw string) (plannerOutput, error) {
	var out plannerOutput
	cleaned := stripCodeFence(strings.TrimSpace(raw))
	if err := json.Unmarshal([]byte(cleaned), &out); err != nil {
		return out, fmt.Errorf("malformed planner output: %w", err)
	}

	out.Route = strings.ToLower(strings.TrimSpace(out.Route))
	if out.Route != RouteVerify && out.Route != RouteDirect {
		return out, fmt.Errorf("malformed planner output: unknown route %q", out.Route)
	}
	return out, nil
}

// stripCodeFence removes a surrounding markdown code fence, if any.
func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	// Drop an optional language tag on the fence line.
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		s = s[idx+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// enumerationCutset holds the characters stripped from the front of
// extracted claim lines: list numbering, punctuation and bullet glyphs.
const enumerationCutset = "0123456789.)-*• \t"

// parseClaims splits extraction output into cleaned claim lines.
//
// Lines of 5 characters or fewer after cleaning are dropped; they are
// enumeration debris, not claims.
func parseClaims(raw string) []string {
	claims := []string{}
	for _, line := range strings.Split(raw, "\n") {
		cleaned := strings.TrimSpace(strings.TrimLeft(line, enumerationCutset))
		if len(cleaned) <= 5 {
			continue
		}
		claims = append(claims, cleaned)
	}
	return claims
}
