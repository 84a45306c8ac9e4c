// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package llm provides chat-model backends and the resilient fallback chain
// used by the guardrail pipeline.
//
// Every backend implements the Client interface. FallbackChain wraps a ranked
// list of model names and walks it on failure; both the planning call and the
// answering call go through the same chain, so resilience policy lives in
// exactly one place.
package llm

import "context"

// GenerationParams carries optional sampling parameters.
//
// Nil fields mean "use the backend's default".
type GenerationParams struct {
	Temperature *float32 `json:"temperature"`
	TopP        *float32 `json:"top_p"`
	MaxTokens   *int     `json:"max_tokens"`
	Stop        []string `json:"stop"`
}

// Client defines the standard interface for any chat-model backend.
//
// Implementations must be safe for concurrent use and must not cache state
// across invocations beyond the underlying transport connection.
type Client interface {
	// Generate produces a completion for the prompt.
	//
	// Inputs:
	//   ctx - Context for cancellation and the per-attempt timeout.
	//   prompt - The full prompt text.
	//   params - Optional sampling parameters.
	//
	// Outputs:
	//   string - The completion text.
	//   error - Wraps ErrModelUnavailable on transient backend failures
	//           (quota, timeout, transport).
	Generate(ctx context.Context, prompt string, params GenerationParams) (string, error)
}

// Factory constructs a Client for a concrete model name.
//
// The fallback chain uses a Factory so the same provider can be
// instantiated once per model in the ranked list.
type Factory func(model string) (Client, error)
