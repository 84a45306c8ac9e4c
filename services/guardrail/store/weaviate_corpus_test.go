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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weaviate/weaviate/entities/models"
)

func TestGetLawChunkSchema(t *testing.T) {
	schema := GetLawChunkSchema()

	assert.Equal(t, LawChunkClassName, schema.Class)
	require.Len(t, schema.Properties, 4)

	names := make([]string, 0, len(schema.Properties))
	for _, p := range schema.Properties {
		names = append(names, p.Name)
	}
	assert.ElementsMatch(t, []string{"text", "source", "page", "section"}, names)
}

func TestParseSearchResponse(t *testing.T) {
	resp := &models.GraphQLResponse{
		Data: map[string]models.JSONObject{
			"Get": map[string]interface{}{
				LawChunkClassName: []interface{}{
					map[string]interface{}{
						"text":    "Section 316 punishes cheating.",
						"source":  "bns.pdf",
						"page":    float64(42),
						"section": "316",
						"_additional": map[string]interface{}{
							"distance": 0.12,
						},
					},
					map[string]interface{}{
						"text":    "General definitions.",
						"source":  "bns.pdf",
						"page":    float64(3),
						"section": "",
						"_additional": map[string]interface{}{
							"distance": 0.58,
						},
					},
				},
			},
		},
	}

	hits := parseSearchResponse(resp)
	require.Len(t, hits, 2)

	assert.Equal(t, "Section 316 punishes cheating.", hits[0].Text)
	assert.InDelta(t, 0.12, hits[0].Distance, 1e-9)
	assert.Equal(t, "bns.pdf", hits[0].Metadata["source"])
	assert.Equal(t, float64(42), hits[0].Metadata["page"])
	assert.Equal(t, "316", hits[0].Metadata["section"])

	assert.InDelta(t, 0.58, hits[1].Distance, 1e-9)
}

func TestParseSearchResponse_Malformed(t *testing.T) {
	// Missing Get wrapper.
	hits := parseSearchResponse(&models.GraphQLResponse{Data: map[string]models.JSONObject{}})
	assert.Empty(t, hits)

	// Wrong class name.
	hits = parseSearchResponse(&models.GraphQLResponse{
		Data: map[string]models.JSONObject{
			"Get": map[string]interface{}{"Other": []interface{}{}},
		},
	})
	assert.Empty(t, hits)

	// Malformed object entries are skipped, valid ones survive.
	hits = parseSearchResponse(&models.GraphQLResponse{
		Data: map[string]models.JSONObject{
			"Get": map[string]interface{}{
				LawChunkClassName: []interface{}{
					"not a map",
					map[string]interface{}{"text": "kept"},
				},
			},
		},
	})
	require.Len(t, hits, 1)
	assert.Equal(t, "kept", hits[0].Text)
	assert.Zero(t, hits[0].Distance)
}

func TestNewWeaviateCorpus_NilClient(t *testing.T) {
	_, err := NewWeaviateCorpus(nil, nil)
	assert.Error(t, err)
}
