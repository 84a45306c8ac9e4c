// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// lexguard is the hallucination-guardrail CLI for IPC-to-BNS legal Q&A.
//
// It answers questions through a staged verification pipeline, cross-checks
// every factual claim against a statute mapping store and a vector corpus,
// and escalates unreliable answers to a human review queue.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

func main() {
	// Provider credentials (OPENAI_API_KEY, GOOGLE_API_KEY, OLLAMA_BASE_URL)
	// may live in a local .env during development.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
