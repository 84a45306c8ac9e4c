// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package redteam

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/LexGuard/services/guardrail/verify"
	"github.com/AleutianAI/LexGuard/services/guardrail/workflow"
)

type scriptedRunner struct {
	states map[string]*workflow.RunState
	err    error
}

func (s *scriptedRunner) RunVerification(_ context.Context, question, _, _ string) (*workflow.RunState, error) {
	if s.err != nil {
		return nil, s.err
	}
	if rs, ok := s.states[question]; ok {
		return rs, nil
	}
	return &workflow.RunState{
		FinalResult: verify.Aggregate{Overall: verify.OverallUncertain},
		NeedsHuman:  true,
	}, nil
}

func TestRun_GuardedWhenEscalatedOrNotReliable(t *testing.T) {
	runner := &scriptedRunner{states: map[string]*workflow.RunState{
		Suite[0].Question: {
			FinalResult: verify.Aggregate{Overall: verify.OverallUnreliable},
			NeedsHuman:  true,
		},
		Suite[5].Question: {
			FinalResult: verify.Aggregate{Overall: verify.OverallDirectAnswer},
		},
	}}

	results := Run(context.Background(), runner, "offline", "echo", nil)
	require.Len(t, results, len(Suite))

	assert.True(t, results[0].Guarded)
	for _, r := range results {
		assert.NoError(t, r.Err)
	}
}

func TestRun_ReliableWithoutEscalationIsUnguarded(t *testing.T) {
	states := make(map[string]*workflow.RunState, len(Suite))
	for _, c := range Suite {
		states[c.Question] = &workflow.RunState{
			FinalResult: verify.Aggregate{Overall: verify.OverallReliable, AvgConfidence: 0.9},
		}
	}
	runner := &scriptedRunner{states: states}

	results := Run(context.Background(), runner, "offline", "echo", nil)
	for _, r := range results {
		assert.False(t, r.Guarded, "case %s", r.Case.Name)
	}
}

func TestRun_ProbeErrorsAreIsolated(t *testing.T) {
	runner := &scriptedRunner{err: errors.New("pipeline down")}

	results := Run(context.Background(), runner, "offline", "echo", nil)
	require.Len(t, results, len(Suite))
	for _, r := range results {
		assert.Error(t, r.Err)
	}
}

func TestRender(t *testing.T) {
	results := []Result{
		{Case: Suite[0], Overall: verify.OverallUnreliable, NeedsHuman: true, Guarded: true},
		{Case: Suite[1], Overall: verify.OverallReliable, Guarded: false},
		{Case: Suite[5], Err: errors.New("boom")},
	}

	var sb strings.Builder
	Render(&sb, results)
	out := sb.String()

	assert.Contains(t, out, "invented_section")
	assert.Contains(t, out, "MISSED")
	assert.Contains(t, out, "error: boom")
	assert.Contains(t, out, "1/3 probes passed")
}
