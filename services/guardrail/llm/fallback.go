// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package llm

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"
)

var chainTracer = otel.Tracer("lexguard.llm.fallback")

// DefaultAttemptTimeout bounds one generate attempt against one model.
const DefaultAttemptTimeout = 30 * time.Second

// FallbackChain walks a ranked list of models on failure.
//
// Description:
//
//	The primary model is attempted first, with at most one internal retry.
//	On failure each configured fallback is attempted once, in list order,
//	skipping any fallback equal to the primary. The first success wins.
//	Attempts are strictly sequential — never raced in parallel — to bound
//	cost and avoid duplicate side effects from simultaneous model calls.
//
// Thread Safety:
//
//	FallbackChain is safe for concurrent use. No response state is cached
//	across invocations.
type FallbackChain struct {
	factory        Factory
	primary        string
	fallbacks      []string
	attemptTimeout time.Duration
	limiter        *rate.Limiter
	logger         *slog.Logger
}

// ChainOption configures a FallbackChain.
type ChainOption func(*FallbackChain)

// WithAttemptTimeout overrides the per-attempt timeout.
func WithAttemptTimeout(d time.Duration) ChainOption {
	return func(c *FallbackChain) {
		if d > 0 {
			c.attemptTimeout = d
		}
	}
}

// WithRateLimit gates attempts at r requests per second with the given
// burst. Zero or negative r disables limiting.
func WithRateLimit(r float64, burst int) ChainOption {
	return func(c *FallbackChain) {
		if r > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(r), burst)
		}
	}
}

// WithChainLogger sets the logger. Defaults to slog.Default().
func WithChainLogger(logger *slog.Logger) ChainOption {
	return func(c *FallbackChain) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewFallbackChain creates a chain over one provider's model list.
//
// Inputs:
//
//	factory - Constructs a Client per model name. Must not be nil.
//	primary - The model attempted first.
//	fallbacks - Ordered fallback model names. Entries equal to primary
//	            are skipped at attempt time.
func NewFallbackChain(factory Factory, primary string, fallbacks []string, opts ...ChainOption) *FallbackChain {
	c := &FallbackChain{
		factory:        factory,
		primary:        primary,
		fallbacks:      fallbacks,
		attemptTimeout: DefaultAttemptTimeout,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Generate implements the Client interface over the whole chain.
//
// Outputs:
//
//	string - The first successful completion.
//	error - *ExhaustedError carrying the last attempt's error when every
//	        model failed; ctx.Err() when the caller canceled.
func (c *FallbackChain) Generate(ctx context.Context, prompt string, params GenerationParams) (string, error) {
	ctx, span := chainTracer.Start(ctx, "FallbackChain.Generate")
	defer span.End()
	span.SetAttributes(
		attribute.String("llm.primary", c.primary),
		attribute.Int("llm.fallback_count", len(c.fallbacks)),
	)

	// Primary gets one internal retry; fail fast after that and let the
	// ranked list take over.
	schedule := []string{c.primary, c.primary}
	for _, m := range c.fallbacks {
		if m == c.primary {
			continue
		}
		schedule = append(schedule, m)
	}

	var lastErr error
	tried := make([]string, 0, len(schedule))

	for i, model := range schedule {
		if err := ctx.Err(); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "canceled")
			return "", err
		}
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return "", err
			}
		}

		text, err := c.attempt(ctx, model, prompt, params)
		if err == nil {
			if i > 0 {
				c.logger.Warn("model call succeeded after fallback",
					slog.String("model", model),
					slog.Int("attempt", i+1),
				)
			}
			span.SetStatus(codes.Ok, "")
			span.SetAttributes(attribute.String("llm.served_by", model))
			return text, nil
		}

		lastErr = err
		tried = append(tried, model)
		c.logger.Warn("model attempt failed",
			slog.String("model", model),
			slog.Int("attempt", i+1),
			slog.String("error", err.Error()),
		)
	}

	exhausted := &ExhaustedError{
		Attempts: len(tried),
		Models:   tried,
		LastErr:  lastErr,
	}
	span.RecordError(exhausted)
	span.SetStatus(codes.Error, "all models exhausted")
	return "", exhausted
}

// attempt runs one bounded generate call against one model.
func (c *FallbackChain) attempt(ctx context.Context, model, prompt string, params GenerationParams) (string, error) {
	client, err := c.factory(model)
	if err != nil {
		return "", err
	}

	attemptCtx, cancel := context.WithTimeout(ctx, c.attemptTimeout)
	defer cancel()

	return client.Generate(attemptCtx, prompt, params)
}
