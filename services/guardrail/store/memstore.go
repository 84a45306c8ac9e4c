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
	"fmt"
	"sync"
)

// MemCrossRefStore is an in-memory CrossRefStore for tests and offline runs.
//
// Thread Safety: Safe for concurrent use.
type MemCrossRefStore struct {
	mu   sync.RWMutex
	refs map[string]CrossReference
}

// NewMemCrossRefStore creates an empty in-memory store.
func NewMemCrossRefStore() *MemCrossRefStore {
	return &MemCrossRefStore{refs: make(map[string]CrossReference)}
}

// GetByCode implements the CrossRefStore interface.
func (s *MemCrossRefStore) GetByCode(ctx context.Context, sourceCode string) (*CrossReference, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	ref, ok := s.refs[normalizeCode(sourceCode)]
	if !ok {
		return nil, fmt.Errorf("%w: section %s", ErrNotFound, normalizeCode(sourceCode))
	}
	out := ref
	return &out, nil
}

// Put implements the CrossRefStore interface.
func (s *MemCrossRefStore) Put(ctx context.Context, ref CrossReference) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	ref.SourceCode = normalizeCode(ref.SourceCode)
	ref.TargetCode = normalizeCode(ref.TargetCode)
	if ref.SourceCode == "" || ref.TargetCode == "" {
		return ErrInvalidMapping
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.refs[ref.SourceCode] = ref
	return nil
}

// Close implements the CrossRefStore interface. It is a no-op.
func (s *MemCrossRefStore) Close() error {
	return nil
}

// MemCorpus is an in-memory CorpusSearcher returning scripted hits.
//
// Hits and Err are returned as-is from every Query call, which makes
// semantic-scorer behavior easy to script in tests.
type MemCorpus struct {
	Hits []EvidenceHit
	Err  error
}

// Query implements the CorpusSearcher interface.
func (c *MemCorpus) Query(ctx context.Context, text string, k int) ([]EvidenceHit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.Err != nil {
		return nil, c.Err
	}
	if text == "" {
		return nil, ErrEmptyQuery
	}
	if k > 0 && len(c.Hits) > k {
		return c.Hits[:k], nil
	}
	return c.Hits, nil
}
