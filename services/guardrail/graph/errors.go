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
	"errors"
	"fmt"
)

// Sentinel errors for the graph package.
var (
	// ErrNilContext is returned when a nil context is passed.
	ErrNilContext = errors.New("context must not be nil")

	// ErrNilStage is returned when a nil stage function is registered.
	ErrNilStage = errors.New("stage function must not be nil")

	// ErrDuplicateStage is returned when adding a stage with an existing name.
	ErrDuplicateStage = errors.New("stage with this name already exists")

	// ErrStageNotFound is returned when an edge references an unknown stage.
	ErrStageNotFound = errors.New("stage not found")

	// ErrDuplicateEdge is returned when a stage gets a second outgoing edge.
	ErrDuplicateEdge = errors.New("stage already has an outgoing edge")

	// ErrNoEntry is returned when Build is called without SetEntry.
	ErrNoEntry = errors.New("no entry stage designated")

	// ErrDanglingStage is returned when a stage has no path to End.
	ErrDanglingStage = errors.New("stage has no outgoing edge")

	// ErrCycleDetected is returned when the graph contains a cycle.
	ErrCycleDetected = errors.New("cycle detected in graph")

	// ErrStepBudget is returned when a run visits more stages than exist
	// in the graph. This cannot happen on a well-formed graph and guards
	// against predicate route tables that loop.
	ErrStepBudget = errors.New("stage step budget exceeded")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")
)

// StageError wraps an error with the stage that caused it.
type StageError struct {
	StageName string
	Err       error
}

// Error returns the error message.
func (e *StageError) Error() string {
	return fmt.Sprintf("stage %q: %v", e.StageName, e.Err)
}

// Unwrap returns the underlying error.
func (e *StageError) Unwrap() error {
	return e.Err
}

// NewStageError creates a StageError.
func NewStageError(stageName string, err error) *StageError {
	return &StageError{StageName: stageName, Err: err}
}

// CycleError provides details about a detected cycle.
type CycleError struct {
	Path []string
}

// Error returns the cycle description.
func (e *CycleError) Error() string {
	return fmt.Sprintf("cycle detected: %v", e.Path)
}

// NewCycleError creates a CycleError.
func NewCycleError(path []string) *CycleError {
	return &CycleError{Path: path}
}
