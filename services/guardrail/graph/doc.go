// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package graph provides the staged execution engine for guardrail pipelines.
//
// A pipeline is a directed graph of named stages. Each stage is a pure
// function from an immutable snapshot of the run state to a partial update;
// the engine performs the merge (update keys overwrite, all other keys
// persist). Edges may be unconditional or conditional: a conditional edge
// evaluates a predicate over the merged state and selects the successor from
// a route table fixed at construction time.
//
// Execution along a single run is strictly sequential. A stage failure is
// converted into a structured stage error plus a recoverable partial update;
// only graph misconfiguration (unknown stage, cycle, missing entry) is fatal,
// and it is fatal at Build time, not per run.
//
// # Example
//
//	g, err := graph.NewBuilder("verification").
//	    AddStage("PLAN", planFn).
//	    AddStage("ANSWER", answerFn).
//	    AddStage("RECORD", recordFn).
//	    AddEdge("PLAN", "ANSWER").
//	    AddConditionalEdge("ANSWER", routePredicate, map[string]string{
//	        "verify": "EXTRACT",
//	        "direct": "RECORD",
//	    }, "verify").
//	    AddEdge("RECORD", graph.End).
//	    SetEntry("PLAN").
//	    Build()
//
//	engine, err := graph.NewEngine(g, logger)
//	result, err := engine.Run(ctx, graph.State{"question": q})
package graph
