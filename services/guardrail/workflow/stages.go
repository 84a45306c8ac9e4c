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

	"github.com/AleutianAI/LexGuard/services/guardrail/graph"
	"github.com/AleutianAI/LexGuard/services/guardrail/llm"
	"github.com/AleutianAI/LexGuard/services/guardrail/queue"
	"github.com/AleutianAI/LexGuard/services/guardrail/verify"
)

// answerUnavailable is the placeholder emitted when every model failed.
const answerUnavailable = "Unable to generate an answer: no model is currently available. Please retry later."

// planStage classifies the question and picks the route.
//
// Any model failure or malformed reply routes to verify: when the planner
// cannot be trusted, the answer gets the full verification treatment.
func (p *Pipeline) planStage(chain llm.Client) graph.StageFunc {
	return func(ctx context.Context, st graph.State) (graph.Update, error) {
		question := st.GetString(keyQuestion)

		raw, err := chain.Generate(ctx, fmt.Sprintf(plannerPrompt, question), p.genParams)
		if err != nil {
			p.logger.Warn("planner model failed, defaulting to verify route",
				slog.String("error", err.Error()))
			return graph.Update{keyPlan: "", keyRoute: RouteVerify}, nil
		}

		out, err := parsePlannerOutput(raw)
		if err != nil {
			p.logger.Warn("planner output rejected, defaulting to verify route",
				slog.String("error", err.Error()))
			return graph.Update{keyPlan: "", keyRoute: RouteVerify}, nil
		}

		return graph.Update{keyPlan: out.Plan, keyRoute: out.Route}, nil
	}
}

// answerStage drafts the response via the fallback chain.
func (p *Pipeline) answerStage(chain llm.Client) graph.StageFunc {
	return func(ctx context.Context, st graph.State) (graph.Update, error) {
		question := st.GetString(keyQuestion)
		plan := st.GetString(keyPlan)

		answer, err := chain.Generate(ctx, fmt.Sprintf(answerPrompt, plan, question), p.genParams)
		if err != nil {
			if llm.IsExhausted(err) {
				p.logger.Error("all models exhausted for answer",
					slog.String("error", err.Error()))
				return graph.Update{keyAnswer: answerUnavailable}, nil
			}
			return nil, err
		}
		return graph.Update{keyAnswer: answer}, nil
	}
}

// routePredicate reads the planner's route. Unknown or missing values take
// the verify branch.
func routePredicate(st graph.State) string {
	if st.GetString(keyRoute) == RouteDirect {
		return RouteDirect
	}
	return RouteVerify
}

// extractStage pulls factual claims out of the drafted answer.
//
// A direct-routed run yields no claims and makes no model call. Extraction
// failure degrades to no claims; verification then reports NO_CLAIMS rather
// than killing the run.
func (p *Pipeline) extractStage(chain llm.Client) graph.StageFunc {
	return func(ctx context.Context, st graph.State) (graph.Update, error) {
		if st.GetString(keyRoute) == RouteDirect {
			return graph.Update{keyClaims: []string{}}, nil
		}

		answer := st.GetString(keyAnswer)
		raw, err := chain.Generate(ctx, fmt.Sprintf(extractionPrompt, answer), p.genParams)
		if err != nil {
			p.logger.Warn("claim extraction failed, treating answer as claimless",
				slog.String("error", err.Error()))
			return graph.Update{keyClaims: []string{}}, nil
		}
		return graph.Update{keyClaims: parseClaims(raw)}, nil
	}
}

// fuseStage verifies every claim and aggregates the verdicts.
func (p *Pipeline) fuseStage() graph.StageFunc {
	return func(ctx context.Context, st graph.State) (graph.Update, error) {
		claims, _ := st[keyClaims].([]string)

		records := p.verifier.VerifyAll(ctx, claims)
		agg := verify.Summarize(records)

		p.logger.Info("claims verified",
			slog.Int("claims", agg.Total),
			slog.String("overall", string(agg.Overall)),
			slog.Float64("avg_confidence", agg.AvgConfidence),
		)
		return graph.Update{
			keyVerifications: records,
			keyFinalResult:   agg,
		}, nil
	}
}

// escalateStage decides whether a human must review the run.
//
// This stage is the sole writer of the review queue.
func (p *Pipeline) escalateStage() graph.StageFunc {
	return func(ctx context.Context, st graph.State) (graph.Update, error) {
		runID := st.GetString(graph.RunIDKey)
		agg, _ := st[keyFinalResult].(verify.Aggregate)

		needsHuman := agg.Overall == verify.OverallUnreliable ||
			agg.Overall == verify.OverallUncertain ||
			agg.AvgConfidence < p.escalationThreshold

		if !needsHuman {
			return graph.Update{
				keyNeedsHuman:    false,
				keyHumanFeedback: FeedbackApproved,
			}, nil
		}

		item := queue.ReviewItem{
			RunID:    runID,
			Question: st.GetString(keyQuestion),
			Answer:   st.GetString(keyAnswer),
			Overall:  string(agg.Overall),
			AvgConf:  agg.AvgConfidence,
			Snapshot: st.Clone(),
		}
		if err := p.review.Enqueue(ctx, item); err != nil {
			return nil, fmt.Errorf("enqueue for review: %w", err)
		}

		p.logger.Info("run queued for human review",
			slog.String("run_id", runID),
			slog.String("overall", string(agg.Overall)),
		)
		return graph.Update{
			keyNeedsHuman:    true,
			keyHumanFeedback: FeedbackQueued,
		}, nil
	}
}

// recordStage appends the run to the evaluation log. It always succeeds.
func (p *Pipeline) recordStage() graph.StageFunc {
	return func(ctx context.Context, st graph.State) (graph.Update, error) {
		runID := st.GetString(graph.RunIDKey)
		update := graph.Update{}

		agg, ok := st[keyFinalResult].(verify.Aggregate)
		if !ok {
			// Direct route skipped verification entirely.
			agg = verify.DirectAggregate()
			update[keyFinalResult] = agg
			update[keyNeedsHuman] = false
			update[keyHumanFeedback] = FeedbackApproved
		}

		claims, _ := st[keyClaims].([]string)
		needsHuman := st.GetBool(keyNeedsHuman)
		feedback := st.GetString(keyHumanFeedback)
		if _, direct := update[keyHumanFeedback]; direct {
			needsHuman = false
			feedback = FeedbackApproved
		}

		entry := queue.EvalEntry{
			RunID:      runID,
			Question:   st.GetString(keyQuestion),
			Provider:   st.GetString(keyProvider),
			Model:      st.GetString(keyModel),
			Route:      st.GetString(keyRoute),
			Overall:    string(agg.Overall),
			AvgConf:    agg.AvgConfidence,
			NeedsHuman: needsHuman,
			Feedback:   feedback,
			ClaimCount: len(claims),
		}
		p.evalLog.Record(ctx, entry)

		update[keyEvaluation] = map[string]any{
			"overall":        string(agg.Overall),
			"avg_confidence": agg.AvgConfidence,
			"claim_count":    len(claims),
			"needs_human":    needsHuman,
		}
		return update, nil
	}
}
