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
	"log/slog"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var corpusTracer = otel.Tracer("lexguard.store.corpus")

// LawChunkClassName is the Weaviate class holding law corpus chunks.
const LawChunkClassName = "LawChunk"

// chunkBatchSize is the number of chunks imported per batch.
const chunkBatchSize = 100

// LawChunk is one ingested slice of the law corpus.
type LawChunk struct {
	Text    string `json:"text"`
	Source  string `json:"source"`
	Page    int    `json:"page"`
	Section string `json:"section"`
}

// GetLawChunkSchema returns the Weaviate schema for the LawChunk class.
func GetLawChunkSchema() *models.Class {
	indexFilterable := new(bool)
	*indexFilterable = true

	return &models.Class{
		Class:       LawChunkClassName,
		Description: "Chunked statute and commentary text for semantic verification",
		Vectorizer:  "text2vec-transformers",
		Properties: []*models.Property{
			{
				Name:         "text",
				DataType:     []string{"text"},
				Description:  "Chunk content",
				Tokenization: "word",
			},
			{
				Name:            "source",
				DataType:        []string{"text"},
				Description:     "Originating document name",
				IndexFilterable: indexFilterable,
				Tokenization:    "field",
			},
			{
				Name:        "page",
				DataType:    []string{"int"},
				Description: "Page number in the originating document",
			},
			{
				Name:            "section",
				DataType:        []string{"text"},
				Description:     "Statute section the chunk belongs to, if known",
				IndexFilterable: indexFilterable,
				Tokenization:    "field",
			},
		},
	}
}

// WeaviateCorpus is a CorpusSearcher backed by a Weaviate class.
//
// Thread Safety: Safe for concurrent use; the underlying client is.
type WeaviateCorpus struct {
	client *weaviate.Client
	logger *slog.Logger
}

// NewWeaviateCorpus wraps a Weaviate client as a corpus searcher.
func NewWeaviateCorpus(client *weaviate.Client, logger *slog.Logger) (*WeaviateCorpus, error) {
	if client == nil {
		return nil, fmt.Errorf("weaviate client must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &WeaviateCorpus{client: client, logger: logger}, nil
}

// EnsureSchema creates the LawChunk class if it doesn't exist.
//
// Description:
//
//	Checks if the LawChunk class exists in Weaviate and creates it if not.
//	This operation is idempotent.
func (c *WeaviateCorpus) EnsureSchema(ctx context.Context) error {
	_, err := c.client.Schema().ClassGetter().WithClassName(LawChunkClassName).Do(ctx)
	if err == nil {
		c.logger.Info("LawChunk schema already exists")
		return nil
	}

	c.logger.Info("creating LawChunk schema")
	if err := c.client.Schema().ClassCreator().WithClass(GetLawChunkSchema()).Do(ctx); err != nil {
		return fmt.Errorf("creating LawChunk schema: %w", err)
	}
	return nil
}

// AddChunks batch imports corpus chunks.
//
// Outputs:
//
//	int - Number of chunks successfully indexed.
//	error - Non-nil if a batch fails; the count reflects prior batches.
func (c *WeaviateCorpus) AddChunks(ctx context.Context, chunks []LawChunk) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}

	indexed := 0
	for i := 0; i < len(chunks); i += chunkBatchSize {
		if err := ctx.Err(); err != nil {
			return indexed, err
		}

		end := i + chunkBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[i:end]

		objects := make([]*models.Object, len(batch))
		for j, chunk := range batch {
			objects[j] = &models.Object{
				Class: LawChunkClassName,
				Properties: map[string]interface{}{
					"text":    chunk.Text,
					"source":  chunk.Source,
					"page":    chunk.Page,
					"section": chunk.Section,
				},
			}
		}

		result, err := c.client.Batch().ObjectsBatcher().WithObjects(objects...).Do(ctx)
		if err != nil {
			return indexed, fmt.Errorf("batch import failed: %w", err)
		}
		for _, obj := range result {
			if obj.Result != nil && obj.Result.Errors == nil {
				indexed++
			}
		}

		c.logger.Info("indexed corpus batch", "count", len(batch), "total_indexed", indexed)
	}

	return indexed, nil
}

// Query implements the CorpusSearcher interface via nearText.
func (c *WeaviateCorpus) Query(ctx context.Context, text string, k int) ([]EvidenceHit, error) {
	ctx, span := corpusTracer.Start(ctx, "WeaviateCorpus.Query")
	defer span.End()

	if text == "" {
		return nil, ErrEmptyQuery
	}
	if k <= 0 {
		k = 3
	}
	span.SetAttributes(attribute.Int("search.limit", k))

	nearText := c.client.GraphQL().NearTextArgBuilder().
		WithConcepts([]string{text})

	fields := []graphql.Field{
		{Name: "text"},
		{Name: "source"},
		{Name: "page"},
		{Name: "section"},
		{Name: "_additional { distance }"},
	}

	result, err := c.client.GraphQL().Get().
		WithClassName(LawChunkClassName).
		WithFields(fields...).
		WithNearText(nearText).
		WithLimit(k).
		Do(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "search failed")
		return nil, fmt.Errorf("semantic search: %w", err)
	}
	if len(result.Errors) > 0 {
		err := fmt.Errorf("search error: %s", result.Errors[0].Message)
		span.RecordError(err)
		span.SetStatus(codes.Error, "search failed")
		return nil, err
	}

	hits := parseSearchResponse(result)
	span.SetAttributes(attribute.Int("search.hits", len(hits)))
	return hits, nil
}

// parseSearchResponse extracts evidence hits from a GraphQL response.
func parseSearchResponse(result *models.GraphQLResponse) []EvidenceHit {
	data, ok := result.Data["Get"].(map[string]interface{})
	if !ok {
		return []EvidenceHit{}
	}

	objects, ok := data[LawChunkClassName].([]interface{})
	if !ok {
		return []EvidenceHit{}
	}

	hits := make([]EvidenceHit, 0, len(objects))
	for _, obj := range objects {
		m, ok := obj.(map[string]interface{})
		if !ok {
			continue // skip malformed objects
		}

		hit := EvidenceHit{
			Text: getString(m, "text"),
			Metadata: map[string]any{
				"source":  getString(m, "source"),
				"page":    getFloat64(m, "page"),
				"section": getString(m, "section"),
			},
		}

		if additional, ok := m["_additional"].(map[string]interface{}); ok {
			hit.Distance = getFloat64(additional, "distance")
		}

		hits = append(hits, hit)
	}
	return hits
}

func getString(m map[string]interface{}, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func getFloat64(m map[string]interface{}, key string) float64 {
	if v, ok := m[key].(float64); ok {
		return v
	}
	return 0
}
