// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ingest

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/LexGuard/services/guardrail/store"
)

func TestLoadMappingCSV(t *testing.T) {
	csv := "ipc_section,bns_section,notes\n" +
		"420,316,Cheating moved with wider scope\n" +
		"302,103,\n" +
		"376,64,Rape\n"

	refs, err := LoadMappingCSV(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, refs, 3)
	assert.Equal(t, "420", refs[0].SourceCode)
	assert.Equal(t, "316", refs[0].TargetCode)
	assert.Equal(t, "Cheating moved with wider scope", refs[0].Notes)
	assert.Empty(t, refs[1].Notes)
}

func TestLoadMappingCSV_NotesOptionalColumn(t *testing.T) {
	csv := "ipc_section,bns_section\n420,316\n"

	refs, err := LoadMappingCSV(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Empty(t, refs[0].Notes)
}

func TestLoadMappingCSV_BadHeader(t *testing.T) {
	_, err := LoadMappingCSV(strings.NewReader("from,to\n420,316\n"))
	assert.Error(t, err)
}

func TestLoadMappingCSV_MissingCode(t *testing.T) {
	csv := "ipc_section,bns_section,notes\n420,,oops\n"
	_, err := LoadMappingCSV(strings.NewReader(csv))
	assert.ErrorIs(t, err, store.ErrInvalidMapping)
}

func TestLoadMappingCSV_Empty(t *testing.T) {
	_, err := LoadMappingCSV(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrEmptyFile)

	_, err = LoadMappingCSV(strings.NewReader("ipc_section,bns_section,notes\n"))
	assert.ErrorIs(t, err, ErrEmptyFile)
}

func TestLoadChunksJSON(t *testing.T) {
	raw := `[
		{"text": "Section 316 punishes cheating.", "source": "bns.pdf", "page": 42, "section": "316"},
		{"text": "   ", "source": "bns.pdf", "page": 43, "section": ""},
		{"text": "Definitions.", "source": "bns.pdf", "page": 3, "section": ""}
	]`

	chunks, err := LoadChunksJSON(strings.NewReader(raw))
	require.NoError(t, err)
	require.Len(t, chunks, 2, "blank chunks dropped")
	assert.Equal(t, "Section 316 punishes cheating.", chunks[0].Text)
	assert.Equal(t, 42, chunks[0].Page)
}

func TestLoadChunksJSON_Invalid(t *testing.T) {
	_, err := LoadChunksJSON(strings.NewReader("{not json"))
	assert.Error(t, err)

	_, err = LoadChunksJSON(strings.NewReader("[]"))
	assert.ErrorIs(t, err, ErrEmptyFile)
}

func TestIngester_MappingsOnly(t *testing.T) {
	refs, err := store.OpenBadgerCrossRefStore(store.InMemoryBadgerConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = refs.Close() })

	path := filepath.Join(t.TempDir(), "map.csv")
	require.NoError(t, os.WriteFile(path,
		[]byte("ipc_section,bns_section,notes\n420,316,Cheating\n302,103,\n"), 0600))

	ing := NewIngester(refs, nil, nil)
	stats, err := ing.Run(context.Background(), path, "")
	require.NoError(t, err)
	assert.Equal(t, 2, stats.MappingsLoaded)
	assert.Zero(t, stats.ChunksIndexed)

	got, err := refs.GetByCode(context.Background(), "420")
	require.NoError(t, err)
	assert.Equal(t, "316", got.TargetCode)
}

func TestIngester_MissingFile(t *testing.T) {
	refs, err := store.OpenBadgerCrossRefStore(store.InMemoryBadgerConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = refs.Close() })

	ing := NewIngester(refs, nil, nil)
	_, err = ing.Run(context.Background(), filepath.Join(t.TempDir(), "nope.csv"), "")
	assert.Error(t, err)
}
