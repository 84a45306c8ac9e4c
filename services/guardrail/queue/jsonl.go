// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package queue provides the two append-only JSONL sinks of the pipeline:
// the human review queue and the evaluation log.
//
// Both sinks share the same format: one JSON object per line, appended to a
// file that downstream tooling (review UIs, offline eval scripts) tails or
// batch-reads. The review queue propagates write errors to its caller; the
// evaluation log never does, because audit recording must not fail a run.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// jsonlFileMode keeps queued snapshots readable by the owner only; queued
// questions can carry user data.
const jsonlFileMode = 0600

// JSONLAppender serializes appends of JSON objects to a single file.
//
// Thread Safety: Safe for concurrent use. Appends are serialized by a mutex
// so interleaved writers can never tear a line.
type JSONLAppender struct {
	mu   sync.Mutex
	path string
}

// NewJSONLAppender creates an appender for the given path.
//
// The parent directory is created on first use, not here, so constructing an
// appender for a not-yet-provisioned data dir is cheap and error-free.
func NewJSONLAppender(path string) (*JSONLAppender, error) {
	if path == "" {
		return nil, fmt.Errorf("appender path must not be empty")
	}
	return &JSONLAppender{path: path}, nil
}

// Path returns the file this appender writes to.
func (a *JSONLAppender) Path() string {
	return a.path
}

// Append writes one value as a single JSON line.
//
// Outputs:
//
//	error - Non-nil if the value cannot be encoded or the write fails.
func (a *JSONLAppender) Append(ctx context.Context, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	line, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode jsonl entry: %w", err)
	}
	line = append(line, '\n')

	a.mu.Lock()
	defer a.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(a.path), 0750); err != nil {
		return fmt.Errorf("create queue directory: %w", err)
	}

	f, err := os.OpenFile(a.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, jsonlFileMode)
	if err != nil {
		return fmt.Errorf("open %s: %w", a.path, err)
	}
	defer f.Close()

	if _, err := f.Write(line); err != nil {
		return fmt.Errorf("append to %s: %w", a.path, err)
	}
	return nil
}

// ReviewItem is one run snapshot queued for human review.
type ReviewItem struct {
	RunID    string    `json:"run_id"`
	QueuedAt time.Time `json:"queued_at"`
	Question string    `json:"question"`
	Answer   string    `json:"answer"`
	Overall  string    `json:"overall"`
	AvgConf  float64   `json:"avg_confidence"`
	Snapshot any       `json:"snapshot"`
}

// ReviewQueue is the append-only queue of runs awaiting human validation.
//
// The escalation stage is the sole writer; nothing else in the pipeline may
// append to this file.
type ReviewQueue struct {
	appender *JSONLAppender
}

// NewReviewQueue creates the review queue at the given path.
func NewReviewQueue(path string) (*ReviewQueue, error) {
	a, err := NewJSONLAppender(path)
	if err != nil {
		return nil, err
	}
	return &ReviewQueue{appender: a}, nil
}

// Enqueue appends one run snapshot for review.
func (q *ReviewQueue) Enqueue(ctx context.Context, item ReviewItem) error {
	if item.QueuedAt.IsZero() {
		item.QueuedAt = time.Now().UTC()
	}
	return q.appender.Append(ctx, item)
}

// EvalEntry is one completed run's evaluation record.
type EvalEntry struct {
	RunID      string    `json:"run_id"`
	RecordedAt time.Time `json:"recorded_at"`
	Question   string    `json:"question"`
	Provider   string    `json:"provider"`
	Model      string    `json:"model"`
	Route      string    `json:"route"`
	Overall    string    `json:"overall"`
	AvgConf    float64   `json:"avg_confidence"`
	NeedsHuman bool      `json:"needs_human"`
	Feedback   string    `json:"human_feedback,omitempty"`
	ClaimCount int       `json:"claim_count"`
}

// EvalLog records every completed run for offline evaluation.
//
// Write failures are logged and swallowed: audit recording never fails the
// run it records.
type EvalLog struct {
	appender *JSONLAppender
	logger   *slog.Logger
}

// NewEvalLog creates the evaluation log at the given path.
func NewEvalLog(path string, logger *slog.Logger) (*EvalLog, error) {
	a, err := NewJSONLAppender(path)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &EvalLog{appender: a, logger: logger}, nil
}

// Record appends one evaluation entry, logging any failure.
func (l *EvalLog) Record(ctx context.Context, entry EvalEntry) {
	if entry.RecordedAt.IsZero() {
		entry.RecordedAt = time.Now().UTC()
	}
	if err := l.appender.Append(ctx, entry); err != nil {
		l.logger.Warn("eval log write failed",
			slog.String("run_id", entry.RunID),
			slog.String("error", err.Error()),
		)
	}
}
