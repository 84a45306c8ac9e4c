// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"

	"github.com/AleutianAI/LexGuard/cmd/lexguard/config"
	"github.com/AleutianAI/LexGuard/services/guardrail/queue"
	"github.com/AleutianAI/LexGuard/services/guardrail/store"
	"github.com/AleutianAI/LexGuard/services/guardrail/verify"
	"github.com/AleutianAI/LexGuard/services/guardrail/workflow"
)

// app is the wired verification stack for one settings snapshot.
type app struct {
	pipeline *workflow.Pipeline
	refs     *store.BadgerCrossRefStore
	corpus   *store.WeaviateCorpus
}

// buildApp wires stores, scorers, queues and the pipeline from settings.
//
// The Weaviate client does not dial at construction, so building the stack
// succeeds even when the corpus is down; semantic scoring then degrades to
// UNCERTAIN per query.
func buildApp(s config.Settings, logger *slog.Logger) (*app, error) {
	refs, err := store.OpenBadgerCrossRefStore(store.DefaultBadgerConfig(s.Stores.BadgerPath))
	if err != nil {
		return nil, fmt.Errorf("open cross-reference store: %w", err)
	}

	client, err := newWeaviateClient(s.Stores.WeaviateURL)
	if err != nil {
		refs.Close()
		return nil, err
	}
	corpus, err := store.NewWeaviateCorpus(client, logger)
	if err != nil {
		refs.Close()
		return nil, err
	}

	relational, err := verify.NewRelationalScorer(refs, logger)
	if err != nil {
		refs.Close()
		return nil, err
	}
	semantic, err := verify.NewSemanticScorer(corpus, logger)
	if err != nil {
		refs.Close()
		return nil, err
	}
	verifier, err := verify.NewVerifier(relational, semantic,
		verify.WithConflictOverrideThreshold(s.Verify.ConflictOverrideThreshold),
		verify.WithVerifierLogger(logger),
	)
	if err != nil {
		refs.Close()
		return nil, err
	}

	review, err := queue.NewReviewQueue(s.Queues.ReviewPath)
	if err != nil {
		refs.Close()
		return nil, err
	}
	evalLog, err := queue.NewEvalLog(s.Queues.EvalPath, logger)
	if err != nil {
		refs.Close()
		return nil, err
	}

	pipeline, err := workflow.NewPipeline(verifier, review, evalLog, workflow.Config{
		FallbackModels:      s.Models.Fallbacks,
		EscalationThreshold: s.Verify.EscalationThreshold,
		AttemptTimeout:      s.Models.AttemptTimeout(),
		RateLimit:           s.Models.RateLimit,
		RateBurst:           s.Models.RateBurst,
		Temperature:         s.Models.Temperature,
	}, logger)
	if err != nil {
		refs.Close()
		return nil, err
	}

	return &app{pipeline: pipeline, refs: refs, corpus: corpus}, nil
}

// Close releases the stack's store handles.
func (a *app) Close() error {
	return a.refs.Close()
}

// newWeaviateClient builds a client from a URL like http://localhost:8080.
func newWeaviateClient(url string) (*weaviate.Client, error) {
	cfg := weaviate.Config{Host: url, Scheme: "http"}
	if rest, ok := strings.CutPrefix(url, "https://"); ok {
		cfg.Scheme = "https"
		cfg.Host = rest
	} else if rest, ok := strings.CutPrefix(url, "http://"); ok {
		cfg.Host = rest
	}

	client, err := weaviate.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("create weaviate client: %w", err)
	}
	return client, nil
}

// reloadableRunner swaps the wired stack when the settings file changes.
//
// Thread Safety: Safe for concurrent use; swap and run race only on the
// atomic pointer.
type reloadableRunner struct {
	current atomic.Pointer[app]
}

func newReloadableRunner(a *app) *reloadableRunner {
	r := &reloadableRunner{}
	r.current.Store(a)
	return r
}

// Swap installs a freshly wired stack and returns the previous one so the
// caller can close it after in-flight runs drain.
func (r *reloadableRunner) Swap(a *app) *app {
	return r.current.Swap(a)
}

func (r *reloadableRunner) RunVerification(ctx context.Context, question, provider, model string) (*workflow.RunState, error) {
	return r.current.Load().pipeline.RunVerification(ctx, question, provider, model)
}
