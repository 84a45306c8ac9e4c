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
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/LexGuard/services/guardrail/workflow"
)

func runAsk(cmd *cobra.Command, args []string) error {
	question := strings.Join(args, " ")

	a, err := buildApp(settings, appLogger.Logger)
	if err != nil {
		return err
	}
	defer a.Close()

	provider, model := providerModel()
	rs, err := a.pipeline.RunVerification(cmd.Context(), question, provider, model)
	if err != nil {
		return err
	}

	printVerdict(os.Stdout, rs)
	return nil
}

// printVerdict renders one completed run for a terminal.
func printVerdict(w io.Writer, rs *workflow.RunState) {
	fmt.Fprintf(w, "Answer:\n%s\n\n", rs.Answer)

	if len(rs.Verifications) > 0 {
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "CLAIM\tSTATUS\tCONFIDENCE\tSOURCE")
		for _, r := range rs.Verifications {
			fmt.Fprintf(tw, "%s\t%s\t%.3f\t%s\n", truncate(r.Claim, 60), r.Status, r.Confidence, r.Source)
		}
		tw.Flush()
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Verdict: %s (avg confidence %.3f)\n", rs.FinalResult.Overall, rs.FinalResult.AvgConfidence)
	if rs.NeedsHuman {
		fmt.Fprintf(w, "This run was %s; a human will double-check it.\n", rs.HumanFeedback)
	}
	for stage, msg := range rs.StageErrors {
		fmt.Fprintf(w, "Warning: stage %s degraded: %s\n", stage, msg)
	}
	fmt.Fprintf(w, "Run ID: %s\n", rs.RunID)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
