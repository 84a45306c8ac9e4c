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
	"fmt"
	"log/slog"
	"os"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
)

// GoogleClient invokes Gemini models through langchaingo.
//
// Gemini free-tier quotas exhaust quickly (429 RESOURCE_EXHAUSTED); this
// client fails fast so the fallback chain can move to the next model.
type GoogleClient struct {
	model *googleai.GoogleAI
	name  string
}

// NewGoogleClient creates a client for the given Gemini model.
//
// The API key is read from GOOGLE_API_KEY or GEMINI_API_KEY.
func NewGoogleClient(model string) (*GoogleClient, error) {
	apiKey := os.Getenv("GOOGLE_API_KEY")
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("%w: set GOOGLE_API_KEY or GEMINI_API_KEY", ErrMissingAPIKey)
	}
	if model == "" {
		return nil, fmt.Errorf("gemini model name must not be empty")
	}

	client, err := googleai.New(context.Background(),
		googleai.WithAPIKey(apiKey),
		googleai.WithDefaultModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("initializing gemini client: %w", err)
	}

	slog.Info("initializing Google client", "model", model)
	return &GoogleClient{model: client, name: model}, nil
}

// Generate implements the Client interface.
func (g *GoogleClient) Generate(ctx context.Context, prompt string, params GenerationParams) (string, error) {
	slog.Debug("generating via Gemini", "model", g.name)

	opts := []llms.CallOption{llms.WithModel(g.name)}
	if params.Temperature != nil {
		opts = append(opts, llms.WithTemperature(float64(*params.Temperature)))
	}
	if params.TopP != nil {
		opts = append(opts, llms.WithTopP(float64(*params.TopP)))
	}
	if params.MaxTokens != nil {
		opts = append(opts, llms.WithMaxTokens(*params.MaxTokens))
	}
	if len(params.Stop) > 0 {
		opts = append(opts, llms.WithStopWords(params.Stop))
	}

	out, err := llms.GenerateFromSinglePrompt(ctx, g.model, prompt, opts...)
	if err != nil {
		return "", fmt.Errorf("%w: gemini %s: %v", ErrModelUnavailable, g.name, err)
	}
	if out == "" {
		return "", fmt.Errorf("%w: gemini %s", ErrEmptyResponse, g.name)
	}
	return out, nil
}
