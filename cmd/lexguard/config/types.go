// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads and validates the lexguard settings file.
//
// The settings live in a single YAML file, by default
// ~/.lexguard/lexguard.yaml. On first run the file is created with
// working defaults so `lexguard ask` works out of the box against the
// offline provider.
package config

import (
	"time"
)

// Settings is the full settings file.
type Settings struct {
	// Logging controls structured log output.
	Logging LoggingSettings `yaml:"logging"`

	// Models selects the default provider, primary model and the ranked
	// fallback list tried when the primary fails.
	Models ModelSettings `yaml:"models"`

	// Verify tunes the evidence-fusion thresholds.
	Verify VerifySettings `yaml:"verify"`

	// Stores points at the cross-reference store and the vector corpus.
	Stores StoreSettings `yaml:"stores"`

	// Queues points at the review queue and evaluation log files.
	Queues QueueSettings `yaml:"queues"`

	// Server configures the HTTP service.
	Server ServerSettings `yaml:"server"`
}

type LoggingSettings struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level" validate:"oneof=debug info warn warning error"`

	// Dir enables file logging when set. Supports ~ expansion.
	Dir string `yaml:"dir"`
}

type ModelSettings struct {
	// Provider can be "ollama", "openai", "gemini" or "offline".
	Provider string `yaml:"provider" validate:"required"`

	// Model is the primary model name.
	Model string `yaml:"model" validate:"required"`

	// Fallbacks are tried in order after the primary fails.
	Fallbacks []string `yaml:"fallbacks"`

	// AttemptTimeoutSeconds bounds one model attempt. Zero keeps the
	// built-in default.
	AttemptTimeoutSeconds int `yaml:"attempt_timeout_seconds" validate:"gte=0"`

	// RateLimit gates model attempts in requests per second; zero disables.
	RateLimit float64 `yaml:"rate_limit" validate:"gte=0"`
	RateBurst int     `yaml:"rate_burst" validate:"gte=0"`

	// Temperature applies to every model call when non-nil.
	Temperature *float32 `yaml:"temperature,omitempty" validate:"omitempty,gte=0,lte=2"`
}

type VerifySettings struct {
	// ConflictOverrideThreshold is the semantic confidence above which a
	// contradicting vector verdict demotes a relational SUPPORTED.
	ConflictOverrideThreshold float64 `yaml:"conflict_override_threshold" validate:"gt=0,lte=1"`

	// EscalationThreshold is the minimum average confidence that avoids
	// human review.
	EscalationThreshold float64 `yaml:"escalation_threshold" validate:"gt=0,lte=1"`
}

type StoreSettings struct {
	// BadgerPath is the on-disk cross-reference store. Supports ~ expansion.
	BadgerPath string `yaml:"badger_path" validate:"required"`

	// WeaviateURL is the vector corpus endpoint, e.g. http://localhost:8080.
	WeaviateURL string `yaml:"weaviate_url" validate:"required,url"`
}

type QueueSettings struct {
	// ReviewPath is the JSONL human-review queue. Supports ~ expansion.
	ReviewPath string `yaml:"review_path" validate:"required"`

	// EvalPath is the JSONL evaluation log. Supports ~ expansion.
	EvalPath string `yaml:"eval_path" validate:"required"`
}

type ServerSettings struct {
	// Addr is the listen address for `lexguard serve`.
	Addr string `yaml:"addr" validate:"required"`

	// ShutdownGraceSeconds bounds graceful shutdown.
	ShutdownGraceSeconds int `yaml:"shutdown_grace_seconds" validate:"gte=0"`
}

// AttemptTimeout returns the model attempt timeout as a duration.
func (m ModelSettings) AttemptTimeout() time.Duration {
	return time.Duration(m.AttemptTimeoutSeconds) * time.Second
}

// ShutdownGrace returns the shutdown grace period as a duration.
func (s ServerSettings) ShutdownGrace() time.Duration {
	if s.ShutdownGraceSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(s.ShutdownGraceSeconds) * time.Second
}

// Default returns the settings written on first run.
func Default() Settings {
	return Settings{
		Logging: LoggingSettings{
			Level: "info",
			Dir:   "~/.lexguard/logs",
		},
		Models: ModelSettings{
			Provider:              "offline",
			Model:                 "echo",
			Fallbacks:             []string{},
			AttemptTimeoutSeconds: 30,
		},
		Verify: VerifySettings{
			ConflictOverrideThreshold: 0.7,
			EscalationThreshold:       0.7,
		},
		Stores: StoreSettings{
			BadgerPath:  "~/.lexguard/xrefs",
			WeaviateURL: "http://localhost:8080",
		},
		Queues: QueueSettings{
			ReviewPath: "~/.lexguard/review_queue.jsonl",
			EvalPath:   "~/.lexguard/eval_log.jsonl",
		},
		Server: ServerSettings{
			Addr:                 ":8089",
			ShutdownGraceSeconds: 10,
		},
	}
}
