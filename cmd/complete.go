// Copyright 2025 Canonical Ltd
// SPDX-License-Identifier: AGPL-3.0

package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/canonical/roster-sync/pkg/prepare"
)

var completeCmd = &cobra.Command{
	Use:   "complete",
	Short: "Fill blank Usuario/Contraseña cells of a roster",
	Long: `Fill the username and password of every roster row whose username is
blank and save the result to a new file. Existing values are kept. Duplicate
emails and their name discrepancies are reported.`,
	Run: func(cmd *cobra.Command, args []string) {
		code, err := runComplete(cmd)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Complete failed: %v\n", err)
			os.Exit(1)
		}
		os.Exit(code)
	},
}

func init() {
	addCompleteFlags(completeCmd)
	_ = completeCmd.MarkFlagRequired("input")

	rootCmd.AddCommand(completeCmd)
}

func addCompleteFlags(cmd *cobra.Command) {
	cmd.Flags().String("input", "", "Roster workbook or CSV file")
	cmd.Flags().String("sheet", "", "Worksheet name (default: active sheet)")
	cmd.Flags().String("output", "", "Output file (default: <input stem>_rellenado.<ext>)")
	addLogDirFlag(cmd)
}

func runComplete(cmd *cobra.Command) (int, error) {
	input, _ := cmd.Flags().GetString("input")
	sheetName, _ := cmd.Flags().GetString("sheet")
	output, _ := cmd.Flags().GetString("output")

	if input == "" {
		return 1, fmt.Errorf("--input is required")
	}
	if _, err := os.Stat(input); err != nil {
		return 1, fmt.Errorf("input not found: %v", err)
	}

	specs, err := loadSpecs()
	if err != nil {
		return 1, err
	}
	rt, err := newRuntime(cmd, specs, "log_complete_excel", input)
	if err != nil {
		return 1, err
	}
	defer rt.Close()

	svc := prepare.NewService(rt.reporter, rt.tracer, rt.monitor, rt.logger)
	if _, err := svc.Complete(context.Background(), prepare.CompleteOptions{
		Input:  input,
		Sheet:  sheetName,
		Output: output,
	}); err != nil {
		return 1, err
	}

	return rt.reporter.ExitCode(), nil
}
