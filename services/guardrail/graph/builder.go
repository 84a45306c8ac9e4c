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
	"fmt"
	"time"
)

// Builder constructs a Graph with validation.
//
// Description:
//
//	Builder provides a fluent API for constructing pipelines. Build validates
//	that every edge resolves to a registered stage (or End), that every stage
//	has exactly one outgoing edge, and that no cycles are present.
//
// Thread Safety:
//
//	Builder is NOT safe for concurrent use. Build the graph in a single
//	goroutine, then share the resulting Graph freely.
type Builder struct {
	name        string
	stages      map[string]*Stage
	edges       map[string]string
	conditional map[string]*conditionalEdge
	entry       string
	errors      []error
}

// NewBuilder creates a new graph builder.
//
// Inputs:
//
//	name - The name for the graph (used in logging/metrics).
func NewBuilder(name string) *Builder {
	return &Builder{
		name:        name,
		stages:      make(map[string]*Stage),
		edges:       make(map[string]string),
		conditional: make(map[string]*conditionalEdge),
	}
}

// AddStage registers a named stage.
//
// Inputs:
//
//	name - Unique stage name (e.g., "PLAN", "EXTRACT").
//	fn - The stage function. Must not be nil.
//
// Outputs:
//
//	*Builder - The builder for chaining.
func (b *Builder) AddStage(name string, fn StageFunc) *Builder {
	if fn == nil {
		b.errors = append(b.errors, NewStageError(name, ErrNilStage))
		return b
	}
	if name == "" || name == End {
		b.errors = append(b.errors, fmt.Errorf("%w: reserved stage name %q", ErrInvalidInput, name))
		return b
	}
	if _, exists := b.stages[name]; exists {
		b.errors = append(b.errors, NewStageError(name, ErrDuplicateStage))
		return b
	}
	b.stages[name] = &Stage{name: name, fn: fn}
	return b
}

// WithStageTimeout overrides the timeout for a previously added stage.
func (b *Builder) WithStageTimeout(name string, d time.Duration) *Builder {
	st, ok := b.stages[name]
	if !ok {
		b.errors = append(b.errors, NewStageError(name, ErrStageNotFound))
		return b
	}
	st.timeout = d
	return b
}

// AddEdge declares an unconditional successor.
func (b *Builder) AddEdge(from, to string) *Builder {
	if b.hasOutgoing(from) {
		b.errors = append(b.errors, NewStageError(from, ErrDuplicateEdge))
		return b
	}
	b.edges[from] = to
	return b
}

// AddConditionalEdge declares a predicate-keyed successor table.
//
// Description:
//
//	The predicate is evaluated against the state after `from` completes, and
//	its result selects a target from routes. A predicate result missing from
//	routes falls back to routes[fallback] — the fail-safe branch, fixed at
//	construction time rather than inferred at runtime.
//
// Inputs:
//
//	from - Source stage name.
//	predicate - Route selector over the merged state.
//	routes - Route key → target stage name (or End).
//	fallback - Route key used for unknown predicate results. Must be a
//	           key of routes.
func (b *Builder) AddConditionalEdge(from string, predicate Predicate, routes map[string]string, fallback string) *Builder {
	if predicate == nil {
		b.errors = append(b.errors, fmt.Errorf("%w: nil predicate on %q", ErrInvalidInput, from))
		return b
	}
	if len(routes) == 0 {
		b.errors = append(b.errors, fmt.Errorf("%w: empty route table on %q", ErrInvalidInput, from))
		return b
	}
	if _, ok := routes[fallback]; !ok {
		b.errors = append(b.errors, fmt.Errorf("%w: fallback route %q not in route table on %q", ErrInvalidInput, fallback, from))
		return b
	}
	if b.hasOutgoing(from) {
		b.errors = append(b.errors, NewStageError(from, ErrDuplicateEdge))
		return b
	}
	b.conditional[from] = &conditionalEdge{
		predicate: predicate,
		routes:    routes,
		fallback:  fallback,
	}
	return b
}

// SetEntry designates the entry stage.
func (b *Builder) SetEntry(name string) *Builder {
	b.entry = name
	return b
}

// Build validates and constructs the Graph.
//
// Outputs:
//
//	*Graph - The constructed graph.
//	error - Non-nil if validation fails. Setup errors are fatal here, not
//	        on the per-question cost path.
func (b *Builder) Build() (*Graph, error) {
	if len(b.errors) > 0 {
		return nil, b.errors[0]
	}
	if len(b.stages) == 0 {
		return nil, ErrInvalidInput
	}
	if b.entry == "" {
		return nil, ErrNoEntry
	}
	if _, ok := b.stages[b.entry]; !ok {
		return nil, NewStageError(b.entry, ErrStageNotFound)
	}

	g := &Graph{
		name:        b.name,
		stages:      b.stages,
		edges:       b.edges,
		conditional: b.conditional,
		entry:       b.entry,
	}

	// Every edge endpoint must resolve.
	for from, to := range b.edges {
		if err := g.checkEndpoint(from, to); err != nil {
			return nil, err
		}
	}
	for from, ce := range b.conditional {
		for _, to := range ce.routes {
			if err := g.checkEndpoint(from, to); err != nil {
				return nil, err
			}
		}
	}

	// Every stage must have a way out.
	for name := range b.stages {
		if !b.hasOutgoing(name) {
			return nil, NewStageError(name, ErrDanglingStage)
		}
	}

	if err := g.detectCycles(); err != nil {
		return nil, err
	}

	return g, nil
}

func (b *Builder) hasOutgoing(name string) bool {
	if _, ok := b.edges[name]; ok {
		return true
	}
	_, ok := b.conditional[name]
	return ok
}

func (g *Graph) checkEndpoint(from, to string) error {
	if _, ok := g.stages[from]; !ok {
		return NewStageError(from, ErrStageNotFound)
	}
	if to == End {
		return nil
	}
	if _, ok := g.stages[to]; !ok {
		return NewStageError(to, ErrStageNotFound)
	}
	return nil
}

// detectCycles walks every possible edge (all conditional routes included)
// with DFS from the entry stage.
func (g *Graph) detectCycles() error {
	visited := make(map[string]bool)
	recStack := make(map[string]bool)
	path := make([]string, 0, len(g.stages))

	var dfs func(node string) error
	dfs = func(node string) error {
		if node == End {
			return nil
		}
		visited[node] = true
		recStack[node] = true
		path = append(path, node)

		for _, succ := range g.successors(node) {
			if succ == End {
				continue
			}
			if !visited[succ] {
				if err := dfs(succ); err != nil {
					return err
				}
			} else if recStack[succ] {
				cycleStart := 0
				for i, n := range path {
					if n == succ {
						cycleStart = i
						break
					}
				}
				return NewCycleError(append(path[cycleStart:], succ))
			}
		}

		path = path[:len(path)-1]
		recStack[node] = false
		return nil
	}

	for name := range g.stages {
		if !visited[name] {
			if err := dfs(name); err != nil {
				return err
			}
		}
	}
	return nil
}
