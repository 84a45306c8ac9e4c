// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ingest loads the curated verification data into the two evidence
// backends: a CSV of IPC→BNS section mappings into the cross-reference store
// and a JSON file of law corpus chunks into the vector store.
//
// PDF extraction and chunking happen upstream; this package only consumes
// their output files.
package ingest

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/LexGuard/services/guardrail/store"
)

// ErrEmptyFile is returned when an input file has no usable rows.
var ErrEmptyFile = errors.New("input file contains no rows")

// mappingHeader is the expected CSV header for the cross-reference file.
var mappingHeader = []string{"ipc_section", "bns_section", "notes"}

// LoadMappingCSV parses an IPC→BNS mapping file.
//
// Description:
//
//	The file must carry a header row "ipc_section,bns_section,notes". The
//	notes column may be empty. Rows with a missing section code fail the
//	whole load; a partial mapping table silently skews every relational
//	verdict downstream.
func LoadMappingCSV(r io.Reader) ([]store.CrossReference, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, ErrEmptyFile
	}
	if err != nil {
		return nil, fmt.Errorf("read mapping header: %w", err)
	}
	if err := checkMappingHeader(header); err != nil {
		return nil, err
	}

	var refs []store.CrossReference
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("read mapping line %d: %w", line, err)
		}
		if len(record) < 2 {
			return nil, fmt.Errorf("mapping line %d: want at least 2 columns, got %d", line, len(record))
		}

		ref := store.CrossReference{
			SourceCode: strings.TrimSpace(record[0]),
			TargetCode: strings.TrimSpace(record[1]),
		}
		if len(record) > 2 {
			ref.Notes = strings.TrimSpace(record[2])
		}
		if ref.SourceCode == "" || ref.TargetCode == "" {
			return nil, fmt.Errorf("mapping line %d: %w", line, store.ErrInvalidMapping)
		}
		refs = append(refs, ref)
	}

	if len(refs) == 0 {
		return nil, ErrEmptyFile
	}
	return refs, nil
}

func checkMappingHeader(header []string) error {
	if len(header) < 2 {
		return fmt.Errorf("mapping header: want columns %v, got %v", mappingHeader, header)
	}
	for i := 0; i < 2; i++ {
		if strings.TrimSpace(strings.ToLower(header[i])) != mappingHeader[i] {
			return fmt.Errorf("mapping header: want columns %v, got %v", mappingHeader, header)
		}
	}
	return nil
}

// LoadChunksJSON parses a law corpus chunk file.
//
// The file is a JSON array of {text, source, page, section} objects, the
// output format of the upstream PDF processor.
func LoadChunksJSON(r io.Reader) ([]store.LawChunk, error) {
	var chunks []store.LawChunk
	if err := json.NewDecoder(r).Decode(&chunks); err != nil {
		return nil, fmt.Errorf("decode chunks: %w", err)
	}

	kept := chunks[:0]
	for _, c := range chunks {
		if strings.TrimSpace(c.Text) == "" {
			continue
		}
		kept = append(kept, c)
	}
	if len(kept) == 0 {
		return nil, ErrEmptyFile
	}
	return kept, nil
}

// Stats summarizes one ingestion run.
type Stats struct {
	MappingsLoaded int
	ChunksIndexed  int
}

// Ingester loads both evidence backends.
type Ingester struct {
	refs   *store.BadgerCrossRefStore
	corpus *store.WeaviateCorpus
	logger *slog.Logger
}

// NewIngester creates an ingester over both backends. Either backend may be
// nil, in which case its input is skipped.
func NewIngester(refs *store.BadgerCrossRefStore, corpus *store.WeaviateCorpus, logger *slog.Logger) *Ingester {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingester{refs: refs, corpus: corpus, logger: logger}
}

// Run loads the given files into their backends concurrently.
//
// Inputs:
//
//	mappingPath - CSV of IPC→BNS mappings. Empty skips the mapping load.
//	chunksPath - JSON array of corpus chunks. Empty skips the chunk load.
//
// Outputs:
//
//	Stats - Counts of loaded rows, valid even on partial failure.
//	error - First failure from either load.
func (i *Ingester) Run(ctx context.Context, mappingPath, chunksPath string) (Stats, error) {
	var stats Stats
	g, ctx := errgroup.WithContext(ctx)

	if mappingPath != "" && i.refs != nil {
		g.Go(func() error {
			n, err := i.loadMappings(ctx, mappingPath)
			stats.MappingsLoaded = n
			return err
		})
	}
	if chunksPath != "" && i.corpus != nil {
		g.Go(func() error {
			n, err := i.loadChunks(ctx, chunksPath)
			stats.ChunksIndexed = n
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return stats, err
	}

	i.logger.Info("ingestion complete",
		slog.Int("mappings", stats.MappingsLoaded),
		slog.Int("chunks", stats.ChunksIndexed),
	)
	return stats, nil
}

func (i *Ingester) loadMappings(ctx context.Context, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open mapping file: %w", err)
	}
	defer f.Close()

	refs, err := LoadMappingCSV(f)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := i.refs.PutBatch(ctx, refs); err != nil {
		return 0, fmt.Errorf("store mappings: %w", err)
	}
	return len(refs), nil
}

func (i *Ingester) loadChunks(ctx context.Context, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open chunks file: %w", err)
	}
	defer f.Close()

	chunks, err := LoadChunksJSON(f)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", path, err)
	}

	if err := i.corpus.EnsureSchema(ctx); err != nil {
		return 0, err
	}
	return i.corpus.AddChunks(ctx, chunks)
}
