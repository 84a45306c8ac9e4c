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
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/LexGuard/services/guardrail/redteam"
)

func runRedteam(cmd *cobra.Command, args []string) error {
	a, err := buildApp(settings, appLogger.Logger)
	if err != nil {
		return err
	}
	defer a.Close()

	provider, model := providerModel()
	results := redteam.Run(cmd.Context(), a.pipeline, provider, model, appLogger.Logger)
	redteam.Render(os.Stdout, results)

	missed := 0
	for _, r := range results {
		if r.Err != nil || (r.Case.WantGuarded && !r.Guarded) {
			missed++
		}
	}
	if missed > 0 {
		return fmt.Errorf("%d probes failed", missed)
	}
	return nil
}
