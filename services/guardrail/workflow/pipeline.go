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
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/AleutianAI/LexGuard/services/guardrail/graph"
	"github.com/AleutianAI/LexGuard/services/guardrail/llm"
	"github.com/AleutianAI/LexGuard/services/guardrail/queue"
	"github.com/AleutianAI/LexGuard/services/guardrail/verify"
)

// DefaultEscalationThreshold is the average confidence below which a run is
// escalated to a human even when the overall verdict is RELIABLE.
const DefaultEscalationThreshold = 0.7

// Config tunes a Pipeline.
type Config struct {
	// FallbackModels is the ordered model list tried when the requested
	// model fails.
	FallbackModels []string

	// EscalationThreshold is the minimum average confidence that avoids
	// human review. Zero means DefaultEscalationThreshold.
	EscalationThreshold float64

	// AttemptTimeout bounds one model attempt. Zero keeps the llm default.
	AttemptTimeout time.Duration

	// RateLimit gates model attempts in requests per second; zero disables.
	RateLimit float64
	RateBurst int

	// Temperature applies to every model call when non-nil.
	Temperature *float32
}

// Pipeline wires the verification graph to its collaborators.
//
// Thread Safety: Safe for concurrent use; every run builds its own graph
// instance around a run-scoped model chain.
type Pipeline struct {
	cfg                 Config
	verifier            *verify.Verifier
	review              *queue.ReviewQueue
	evalLog             *queue.EvalLog
	escalationThreshold float64
	genParams           llm.GenerationParams
	logger              *slog.Logger
}

// NewPipeline creates the verification pipeline.
func NewPipeline(verifier *verify.Verifier, review *queue.ReviewQueue, evalLog *queue.EvalLog, cfg Config, logger *slog.Logger) (*Pipeline, error) {
	if verifier == nil {
		return nil, fmt.Errorf("verifier must not be nil")
	}
	if review == nil {
		return nil, fmt.Errorf("review queue must not be nil")
	}
	if evalLog == nil {
		return nil, fmt.Errorf("eval log must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	threshold := cfg.EscalationThreshold
	if threshold == 0 {
		threshold = DefaultEscalationThreshold
	}

	return &Pipeline{
		cfg:                 cfg,
		verifier:            verifier,
		review:              review,
		evalLog:             evalLog,
		escalationThreshold: threshold,
		genParams:           llm.GenerationParams{Temperature: cfg.Temperature},
		logger:              logger,
	}, nil
}

// buildGraph assembles the verification graph around one model chain.
func (p *Pipeline) buildGraph(chain llm.Client) (*graph.Graph, error) {
	return graph.NewBuilder("verification").
		AddStage(StagePlan, p.planStage(chain)).
		AddStage(StageAnswer, p.answerStage(chain)).
		AddStage(StageExtract, p.extractStage(chain)).
		AddStage(StageFuse, p.fuseStage()).
		AddStage(StageEscalate, p.escalateStage()).
		AddStage(StageRecord, p.recordStage()).
		SetEntry(StagePlan).
		AddEdge(StagePlan, StageAnswer).
		AddConditionalEdge(StageAnswer, routePredicate, map[string]string{
			RouteVerify: StageExtract,
			RouteDirect: StageRecord,
		}, RouteVerify).
		AddEdge(StageExtract, StageFuse).
		AddEdge(StageFuse, StageEscalate).
		AddEdge(StageEscalate, StageRecord).
		AddEdge(StageRecord, graph.End).
		Build()
}

// chainFor constructs the run's fallback chain for one provider and model.
func (p *Pipeline) chainFor(provider, model string) (llm.Client, error) {
	factory, err := llm.FactoryFor(provider)
	if err != nil {
		return nil, err
	}

	opts := []llm.ChainOption{llm.WithChainLogger(p.logger)}
	if p.cfg.AttemptTimeout > 0 {
		opts = append(opts, llm.WithAttemptTimeout(p.cfg.AttemptTimeout))
	}
	if p.cfg.RateLimit > 0 {
		opts = append(opts, llm.WithRateLimit(p.cfg.RateLimit, p.cfg.RateBurst))
	}
	return llm.NewFallbackChain(factory, model, p.cfg.FallbackModels, opts...), nil
}

// RunVerification answers a question and verifies the answer.
//
// Description:
//
//	The sole external operation of the core. Runs the full staged graph:
//	routing, answering, claim extraction, evidence fusion, escalation and
//	audit recording. Stage failures degrade inside the run; the returned
//	error is non-nil only for setup faults or caller cancellation.
//
// Inputs:
//
//	ctx - Context for cancellation. In-flight stage calls finish; there is
//	      no mid-run rollback.
//	question - The user's question. Must not be empty.
//	provider - Model provider name understood by llm.FactoryFor.
//	model - Primary model name for this run.
//
// Outputs:
//
//	*RunState - The completed run, including per-stage degradations.
//	error - Non-nil on invalid input, unknown provider, graph faults, or
//	        cancellation.
func (p *Pipeline) RunVerification(ctx context.Context, question, provider, model string) (*RunState, error) {
	if question == "" {
		return nil, fmt.Errorf("question must not be empty")
	}

	chain, err := p.chainFor(provider, model)
	if err != nil {
		return nil, err
	}

	g, err := p.buildGraph(chain)
	if err != nil {
		return nil, fmt.Errorf("build verification graph: %w", err)
	}

	engine, err := graph.NewEngine(g, p.logger)
	if err != nil {
		return nil, err
	}

	res, err := engine.Run(ctx, graph.State{
		keyQuestion: question,
		keyProvider: provider,
		keyModel:    model,
	})
	if err != nil {
		return nil, err
	}
	return runStateFrom(res), nil
}
