// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graph

import (
	"context"
	"time"
)

// End is the terminal marker. An edge pointing at End finishes the run.
const End = "__end__"

// RunIDKey is the state key under which the engine seeds the run's ID before
// the entry stage executes. Stages may read it; overwriting it is undefined.
const RunIDKey = "run_id"

// DefaultStageTimeout bounds stages that don't specify their own timeout.
const DefaultStageTimeout = 30 * time.Second

// State is the run state threaded through the graph.
//
// Stages receive a snapshot and must not retain or mutate it; new values are
// communicated through the returned Update. Absent keys mean "stage not yet
// executed", not "empty result".
type State map[string]any

// Clone returns a shallow copy of the state.
//
// Values are shared; stages treat them as read-only by contract.
func (s State) Clone() State {
	c := make(State, len(s))
	for k, v := range s {
		c[k] = v
	}
	return c
}

// GetString returns the string stored under key, or "" when the key is
// absent or holds a non-string.
func (s State) GetString(key string) string {
	v, _ := s[key].(string)
	return v
}

// GetBool returns the bool stored under key, or false when absent.
func (s State) GetBool(key string) bool {
	v, _ := s[key].(bool)
	return v
}

// Update is a partial state update produced by one stage.
//
// The engine merges it into the run state with shallow-merge semantics:
// update keys overwrite, all other keys persist.
type Update map[string]any

// StageFunc is the unit of work in a pipeline.
//
// Inputs:
//
//	ctx - Context carrying cancellation and the per-stage timeout.
//	s - Immutable snapshot of the run state.
//
// Outputs:
//
//	Update - Partial update to merge into the run state. May be nil.
//	error - Non-nil on failure. The engine records it and continues the
//	        run with a degraded update; it never aborts the run.
type StageFunc func(ctx context.Context, s State) (Update, error)

// Predicate selects a route key from the current state. The key is looked
// up in the route table declared at graph-construction time.
type Predicate func(s State) string

// Stage is a named node in the graph.
type Stage struct {
	name    string
	fn      StageFunc
	timeout time.Duration
}

// Name returns the stage's unique identifier.
func (st *Stage) Name() string {
	return st.name
}

// Timeout returns the maximum execution time for this stage.
func (st *Stage) Timeout() time.Duration {
	if st.timeout == 0 {
		return DefaultStageTimeout
	}
	return st.timeout
}

// conditionalEdge is a predicate-keyed successor table.
type conditionalEdge struct {
	predicate Predicate
	routes    map[string]string
	// fallback is the route key used when the predicate returns a key
	// missing from routes. Fail-safe dispatch, fixed at build time.
	fallback string
}

// Graph is an immutable, validated pipeline.
//
// Build one with Builder. Safe for concurrent read access; a single Graph
// may back any number of concurrent runs.
type Graph struct {
	name        string
	stages      map[string]*Stage
	edges       map[string]string
	conditional map[string]*conditionalEdge
	entry       string
}

// Name returns the graph's name.
func (g *Graph) Name() string {
	return g.name
}

// Entry returns the designated entry stage name.
func (g *Graph) Entry() string {
	return g.entry
}

// StageCount returns the number of registered stages.
func (g *Graph) StageCount() int {
	return len(g.stages)
}

// GetStage returns a stage by name.
func (g *Graph) GetStage(name string) (*Stage, bool) {
	st, ok := g.stages[name]
	return st, ok
}

// successors lists every stage name reachable in one hop from name.
// Used for cycle detection; runtime dispatch picks exactly one.
func (g *Graph) successors(name string) []string {
	if to, ok := g.edges[name]; ok {
		return []string{to}
	}
	if ce, ok := g.conditional[name]; ok {
		out := make([]string, 0, len(ce.routes))
		for _, to := range ce.routes {
			out = append(out, to)
		}
		return out
	}
	return nil
}

// next resolves the runtime successor of a stage against the current state.
func (g *Graph) next(name string, s State) string {
	if to, ok := g.edges[name]; ok {
		return to
	}
	ce, ok := g.conditional[name]
	if !ok {
		return End
	}
	key := ce.predicate(s)
	if to, ok := ce.routes[key]; ok {
		return to
	}
	return ce.routes[ce.fallback]
}
