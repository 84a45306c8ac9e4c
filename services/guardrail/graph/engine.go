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
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var (
	tracer = otel.Tracer("lexguard.graph")
	meter  = otel.Meter("lexguard.graph")
)

// Result represents the outcome of one run through the graph.
type Result struct {
	// RunID is the unique identifier assigned to this run.
	RunID string `json:"run_id"`

	// Final is the merged state at the terminal marker.
	Final State `json:"final"`

	// Visited lists stage names in execution order.
	Visited []string `json:"visited"`

	// StageErrors maps stage name → error message for stages that failed
	// and were degraded. An entry here never aborts the run.
	StageErrors map[string]string `json:"stage_errors,omitempty"`

	// Duration is the total run time.
	Duration time.Duration `json:"duration"`

	// StageDurations tracks execution time per stage.
	StageDurations map[string]time.Duration `json:"stage_durations,omitempty"`
}

// Engine runs a Graph sequentially with observability.
//
// Description:
//
//	Engine owns the execution of one graph: it walks stages from the entry
//	to the End marker, merging each stage's partial update into the run
//	state. Stage failures are degraded into structured stage errors; the
//	run always reaches End.
//
// Thread Safety:
//
//	Engine is safe for concurrent use. Multiple runs may execute
//	concurrently on the same Engine; each run owns its own state.
type Engine struct {
	graph  *Graph
	logger *slog.Logger

	metricsOnce   sync.Once
	stageLatency  metric.Float64Histogram
	stageFailures metric.Int64Counter
	runLatency    metric.Float64Histogram
}

// NewEngine creates an engine for the given graph.
//
// Inputs:
//
//	g - The graph to execute. Must not be nil.
//	logger - Logger for execution logs. If nil, uses slog.Default().
//
// Outputs:
//
//	*Engine - The configured engine.
//	error - Non-nil if g is nil.
func NewEngine(g *Graph, logger *slog.Logger) (*Engine, error) {
	if g == nil {
		return nil, ErrInvalidInput
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{graph: g, logger: logger}, nil
}

// initMetrics lazily initializes metrics. Metric creation failures are
// logged and execution continues with observability degraded.
func (e *Engine) initMetrics() {
	e.metricsOnce.Do(func() {
		var initErrors []string

		var err error
		e.stageLatency, err = meter.Float64Histogram("graph_stage_duration_seconds",
			metric.WithDescription("Time spent executing each pipeline stage"),
			metric.WithUnit("s"),
		)
		if err != nil {
			initErrors = append(initErrors, "stage_latency: "+err.Error())
		}

		e.stageFailures, err = meter.Int64Counter("graph_stage_failure_total",
			metric.WithDescription("Number of degraded stage executions"),
		)
		if err != nil {
			initErrors = append(initErrors, "stage_failures: "+err.Error())
		}

		e.runLatency, err = meter.Float64Histogram("graph_run_duration_seconds",
			metric.WithDescription("Total pipeline run time"),
			metric.WithUnit("s"),
		)
		if err != nil {
			initErrors = append(initErrors, "run_latency: "+err.Error())
		}

		if len(initErrors) > 0 {
			e.logger.Error("failed to initialize some graph metrics (observability degraded)",
				slog.Int("failed_count", len(initErrors)),
				slog.Any("errors", initErrors),
			)
		}
	})
}

// Run executes the graph from the entry stage to the End marker.
//
// Description:
//
//	Walks the graph strictly sequentially: no stage executes before its
//	predecessor completes. Each stage receives a snapshot of the state and
//	its returned update is shallow-merged back. A stage error is recorded
//	in the result, an "<stage>_error" key is merged into the state, and
//	execution continues with the stage's successor.
//
// Inputs:
//
//	ctx - Context for cancellation. Must not be nil. Cancellation is
//	      observed between stages; an in-flight stage finishes first.
//	initial - Initial run state (e.g., the incoming question).
//
// Outputs:
//
//	*Result - Run result including the final merged state.
//	error - Non-nil only for engine-level faults (nil context, exceeded
//	        step budget); stage failures never surface here.
func (e *Engine) Run(ctx context.Context, initial State) (*Result, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}

	e.initMetrics()

	ctx, span := tracer.Start(ctx, "graph.Run",
		trace.WithAttributes(
			attribute.String("graph.name", e.graph.Name()),
			attribute.Int("graph.stage_count", e.graph.StageCount()),
		),
	)
	defer span.End()

	start := time.Now()
	runID := uuid.NewString()[:12] // 48 bits of entropy

	e.logger.Info("run started",
		slog.String("graph", e.graph.Name()),
		slog.String("run_id", runID),
		slog.Int("stages", e.graph.StageCount()),
	)

	state := initial.Clone()
	if state == nil {
		state = make(State)
	}
	state[RunIDKey] = runID

	result := &Result{
		RunID:          runID,
		Visited:        make([]string, 0, e.graph.StageCount()),
		StageErrors:    make(map[string]string),
		StageDurations: make(map[string]time.Duration),
	}

	current := e.graph.Entry()
	// One visit per stage on a well-formed graph; the budget guards
	// against route tables that loop back.
	budget := e.graph.StageCount() + 1

	for current != End {
		if len(result.Visited) >= budget {
			err := fmt.Errorf("%w: visited %d stages in graph %q", ErrStepBudget, len(result.Visited), e.graph.Name())
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return result, err
		}

		select {
		case <-ctx.Done():
			// In-flight work has already finished; record the abandonment
			// and hand back what we have. No mid-run rollback.
			span.RecordError(ctx.Err())
			span.SetStatus(codes.Error, "context canceled")
			result.Duration = time.Since(start)
			result.Final = state
			return result, ctx.Err()
		default:
		}

		stage, ok := e.graph.GetStage(current)
		if !ok {
			// Unreachable after Build validation.
			err := NewStageError(current, ErrStageNotFound)
			span.RecordError(err)
			return result, err
		}

		update, dur, stageErr := e.executeStage(ctx, stage, state, runID)
		result.Visited = append(result.Visited, current)
		result.StageDurations[current] = dur

		if stageErr != nil {
			result.StageErrors[current] = stageErr.Error()
			state[degradedKey(current)] = stageErr.Error()
		}
		for k, v := range update {
			state[k] = v
		}

		current = e.graph.next(current, state)
	}

	result.Duration = time.Since(start)
	result.Final = state

	if e.runLatency != nil {
		e.runLatency.Record(ctx, result.Duration.Seconds(),
			metric.WithAttributes(attribute.String("graph", e.graph.Name())),
		)
	}

	span.SetStatus(codes.Ok, "")
	e.logger.Info("run completed",
		slog.String("run_id", runID),
		slog.Duration("duration", result.Duration),
		slog.Int("stages_executed", len(result.Visited)),
		slog.Int("stages_degraded", len(result.StageErrors)),
	)

	return result, nil
}

// executeStage runs a single stage with span, timeout, and logging.
func (e *Engine) executeStage(ctx context.Context, stage *Stage, state State, runID string) (Update, time.Duration, error) {
	ctx, span := tracer.Start(ctx, stage.Name(),
		trace.WithAttributes(
			attribute.String("graph.stage", stage.Name()),
			attribute.String("graph.run_id", runID),
		),
	)
	defer span.End()

	e.logger.Debug("stage starting",
		slog.String("stage", stage.Name()),
		slog.String("run_id", runID),
	)

	stageCtx, cancel := context.WithTimeout(ctx, stage.Timeout())
	defer cancel()

	start := time.Now()
	update, err := stage.fn(stageCtx, state.Clone())
	duration := time.Since(start)

	if e.stageLatency != nil {
		e.stageLatency.Record(ctx, duration.Seconds(),
			metric.WithAttributes(attribute.String("stage", stage.Name())),
		)
	}

	if err != nil {
		if stageCtx.Err() == context.DeadlineExceeded {
			err = fmt.Errorf("stage %s timed out after %s: %w", stage.Name(), stage.Timeout(), err)
		}
		if e.stageFailures != nil {
			e.stageFailures.Add(ctx, 1,
				metric.WithAttributes(attribute.String("stage", stage.Name())),
			)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		e.logger.Error("stage degraded",
			slog.String("stage", stage.Name()),
			slog.String("run_id", runID),
			slog.Duration("duration", duration),
			slog.String("error", err.Error()),
		)
		return update, duration, NewStageError(stage.Name(), err)
	}

	span.SetStatus(codes.Ok, "")
	e.logger.Info("stage completed",
		slog.String("stage", stage.Name()),
		slog.String("run_id", runID),
		slog.Duration("duration", duration),
	)
	return update, duration, nil
}

// degradedKey is the state key that carries a stage's degradation message.
func degradedKey(stageName string) string {
	return stageName + "_error"
}
