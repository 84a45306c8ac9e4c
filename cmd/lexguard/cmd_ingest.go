// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/LexGuard/services/guardrail/ingest"
	"github.com/AleutianAI/LexGuard/services/guardrail/store"
)

func runIngest(cmd *cobra.Command, args []string) error {
	if mappingPath == "" && chunksPath == "" {
		return errors.New("nothing to ingest: pass --mapping and/or --chunks")
	}

	refs, err := store.OpenBadgerCrossRefStore(store.DefaultBadgerConfig(settings.Stores.BadgerPath))
	if err != nil {
		return fmt.Errorf("open cross-reference store: %w", err)
	}
	defer refs.Close()

	var corpus *store.WeaviateCorpus
	if chunksPath != "" {
		client, err := newWeaviateClient(settings.Stores.WeaviateURL)
		if err != nil {
			return err
		}
		if corpus, err = store.NewWeaviateCorpus(client, appLogger.Logger); err != nil {
			return err
		}
	}

	ing := ingest.NewIngester(refs, corpus, appLogger.Logger)
	stats, err := ing.Run(cmd.Context(), mappingPath, chunksPath)
	if err != nil {
		return err
	}

	fmt.Printf("Loaded %d section mappings, indexed %d corpus chunks.\n",
		stats.MappingsLoaded, stats.ChunksIndexed)
	return nil
}
