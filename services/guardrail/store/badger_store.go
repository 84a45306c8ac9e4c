// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"

	"github.com/dgraph-io/badger/v4"
)

// xrefPrefix namespaces cross-reference keys inside the database.
const xrefPrefix = "xref:"

// BadgerConfig holds configuration for the embedded cross-reference store.
type BadgerConfig struct {
	// Path is the directory for BadgerDB files.
	// Required for persistent databases. Ignored when InMemory is true.
	Path string

	// InMemory enables in-memory mode (no disk persistence).
	// Useful for testing.
	InMemory bool

	// SyncWrites enables synchronous writes for durability.
	SyncWrites bool

	// Logger is the logger for BadgerDB operations.
	// If nil, BadgerDB's internal logging is disabled.
	Logger *slog.Logger
}

// DefaultBadgerConfig returns sensible defaults for production use.
func DefaultBadgerConfig(path string) BadgerConfig {
	return BadgerConfig{
		Path:       path,
		SyncWrites: true,
	}
}

// InMemoryBadgerConfig returns configuration optimized for testing.
func InMemoryBadgerConfig() BadgerConfig {
	return BadgerConfig{
		InMemory:   true,
		SyncWrites: false,
	}
}

// badgerLogger adapts slog.Logger to BadgerDB's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// BadgerCrossRefStore is a CrossRefStore backed by an embedded BadgerDB.
//
// Description:
//
//	Mappings are stored as JSON values under "xref:<SOURCE>" keys, with
//	section codes normalized to upper case so "420a" and "420A" resolve
//	to the same entry. Lookups are single-key reads.
//
// Thread Safety: Safe for concurrent use. Close is idempotent.
type BadgerCrossRefStore struct {
	db     *badger.DB
	closed atomic.Bool
}

// OpenBadgerCrossRefStore opens the cross-reference store.
//
// Inputs:
//
//	cfg - Database configuration. Path is required unless InMemory is true.
//
// Outputs:
//
//	*BadgerCrossRefStore - The opened store. Caller must call Close().
//	error - Non-nil if path is invalid or the database cannot be opened.
func OpenBadgerCrossRefStore(cfg BadgerConfig) (*BadgerCrossRefStore, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent database")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}

	opts = opts.WithSyncWrites(cfg.SyncWrites)
	opts = opts.WithNumVersionsToKeep(1)

	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}

	return &BadgerCrossRefStore{db: db}, nil
}

// normalizeCode canonicalizes a section code for use as a key.
func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// GetByCode implements the CrossRefStore interface.
func (s *BadgerCrossRefStore) GetByCode(ctx context.Context, sourceCode string) (*CrossReference, error) {
	if s.closed.Load() {
		return nil, ErrStoreClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	code := normalizeCode(sourceCode)
	if code == "" {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, sourceCode)
	}

	var ref CrossReference
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(xrefPrefix + code))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &ref)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: section %s", ErrNotFound, code)
	}
	if err != nil {
		return nil, fmt.Errorf("lookup section %s: %w", code, err)
	}
	return &ref, nil
}

// Put implements the CrossRefStore interface.
func (s *BadgerCrossRefStore) Put(ctx context.Context, ref CrossReference) error {
	if s.closed.Load() {
		return ErrStoreClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	ref.SourceCode = normalizeCode(ref.SourceCode)
	ref.TargetCode = normalizeCode(ref.TargetCode)
	if ref.SourceCode == "" || ref.TargetCode == "" {
		return ErrInvalidMapping
	}

	val, err := json.Marshal(ref)
	if err != nil {
		return fmt.Errorf("encode mapping %s: %w", ref.SourceCode, err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(xrefPrefix+ref.SourceCode), val)
	})
	if err != nil {
		return fmt.Errorf("store mapping %s: %w", ref.SourceCode, err)
	}
	return nil
}

// PutBatch writes many mappings in one write batch.
//
// Description:
//
//	Used by corpus ingestion, where a mapping file can carry hundreds of
//	rows. Invalid rows fail the whole batch before any write happens.
//
// Outputs:
//
//	error - Non-nil if any mapping is invalid or the batch fails to flush.
func (s *BadgerCrossRefStore) PutBatch(ctx context.Context, refs []CrossReference) error {
	if s.closed.Load() {
		return ErrStoreClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	type row struct {
		key []byte
		val []byte
	}
	rows := make([]row, 0, len(refs))
	for i, ref := range refs {
		ref.SourceCode = normalizeCode(ref.SourceCode)
		ref.TargetCode = normalizeCode(ref.TargetCode)
		if ref.SourceCode == "" || ref.TargetCode == "" {
			return fmt.Errorf("row %d: %w", i, ErrInvalidMapping)
		}
		val, err := json.Marshal(ref)
		if err != nil {
			return fmt.Errorf("row %d: encode mapping %s: %w", i, ref.SourceCode, err)
		}
		rows = append(rows, row{key: []byte(xrefPrefix + ref.SourceCode), val: val})
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for _, r := range rows {
		if err := wb.Set(r.key, r.val); err != nil {
			return fmt.Errorf("batch set: %w", err)
		}
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("flush mapping batch: %w", err)
	}
	return nil
}

// Count returns the number of stored mappings.
func (s *BadgerCrossRefStore) Count(ctx context.Context) (int, error) {
	if s.closed.Load() {
		return 0, ErrStoreClosed
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	count := 0
	err := s.db.View(func(txn *badger.Txn) error {
		itOpts := badger.DefaultIteratorOptions
		itOpts.PrefetchValues = false
		itOpts.Prefix = []byte(xrefPrefix)
		it := txn.NewIterator(itOpts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("count mappings: %w", err)
	}
	return count, nil
}

// Close implements the CrossRefStore interface. Safe to call multiple times.
func (s *BadgerCrossRefStore) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.db.Close()
}
