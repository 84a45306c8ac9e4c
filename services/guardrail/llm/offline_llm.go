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

import "context"

// OfflineClient is a deterministic echo backend.
//
// It never touches the network, which makes it the provider of choice for
// tests and for running the pipeline on machines without credentials. The
// same prompt always yields the same output.
type OfflineClient struct {
	model string
}

// NewOfflineClient creates the offline echo backend.
func NewOfflineClient(model string) *OfflineClient {
	if model == "" {
		model = "echo"
	}
	return &OfflineClient{model: model}
}

// Generate implements the Client interface. It echoes a truncated prompt.
func (o *OfflineClient) Generate(_ context.Context, prompt string, _ GenerationParams) (string, error) {
	return "OFFLINE ECHO (" + o.model + "): " + truncate(prompt, 200), nil
}
