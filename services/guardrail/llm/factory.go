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

import "fmt"

// Provider names accepted by FactoryFor.
const (
	ProviderOpenAI  = "openai"
	ProviderOllama  = "ollama"
	ProviderGoogle  = "google"
	ProviderOffline = "offline"
)

// FactoryFor returns a Factory bound to one provider.
//
// Description:
//
//	The returned Factory constructs a fresh Client per model name, which is
//	what the fallback chain needs to walk a ranked model list within one
//	provider. The offline provider is deterministic and credential-free.
//
// Inputs:
//
//	provider - One of "openai", "ollama", "google", "offline".
//
// Outputs:
//
//	Factory - The model-name → Client constructor.
//	error - ErrUnknownProvider for anything else.
func FactoryFor(provider string) (Factory, error) {
	switch provider {
	case ProviderOpenAI:
		return func(model string) (Client, error) {
			return NewOpenAIClient(model)
		}, nil
	case ProviderOllama:
		return func(model string) (Client, error) {
			return NewOllamaClient(model)
		}, nil
	case ProviderGoogle:
		return func(model string) (Client, error) {
			return NewGoogleClient(model)
		}, nil
	case ProviderOffline:
		return func(model string) (Client, error) {
			return NewOfflineClient(model), nil
		}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, provider)
	}
}
