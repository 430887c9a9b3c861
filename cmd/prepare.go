// Copyright 2025 Canonical Ltd
// SPDX-License-Identifier: AGPL-3.0

package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/canonical/roster-sync/pkg/prepare"
)

var prepareCmd = &cobra.Command{
	Use:   "prepare",
	Short: "Extract the roster rows missing from already processed rosters",
	Long: `Write the rows of a roster whose email appears in none of the compare
rosters, deduplicated by email and with Usuario/Contraseña filled, in the
column order expected by sync.

Example:
  roster-sync prepare --input excel/registro4.xlsx --compare excel/registro2_rellenado.xlsx,excel/registro3_faltantes_rellenado.xlsx`,
	Run: func(cmd *cobra.Command, args []string) {
		code, err := runPrepare(cmd)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Prepare failed: %v\n", err)
			os.Exit(1)
		}
		os.Exit(code)
	},
}

func init() {
	addPrepareFlags(prepareCmd)
	_ = prepareCmd.MarkFlagRequired("input")

	rootCmd.AddCommand(prepareCmd)
}

func addPrepareFlags(cmd *cobra.Command) {
	cmd.Flags().String("input", "", "Roster workbook to extract from")
	cmd.Flags().String("sheet", "", "Worksheet name (default: active sheet)")
	cmd.Flags().StringSlice("compare", nil, "Rosters already processed, their emails are excluded")
	cmd.Flags().String("output", "", "Output workbook (default: <input stem>_faltantes_rellenado.xlsx)")
	addLogDirFlag(cmd)
}

func runPrepare(cmd *cobra.Command) (int, error) {
	input, _ := cmd.Flags().GetString("input")
	sheetName, _ := cmd.Flags().GetString("sheet")
	compare, _ := cmd.Flags().GetStringSlice("compare")
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
	rt, err := newRuntime(cmd, specs, "log_prepare_excel", input)
	if err != nil {
		return 1, err
	}
	defer rt.Close()

	rt.reporter.Line("Preparing missing records by email")

	svc := prepare.NewService(rt.reporter, rt.tracer, rt.monitor, rt.logger)
	if _, err := svc.Prepare(context.Background(), prepare.PrepareOptions{
		Input:   input,
		Sheet:   sheetName,
		Compare: compare,
		Output:  output,
	}); err != nil {
		return 1, err
	}

	rt.reporter.Line("Preparation log: %s", filepath.Base(rt.journal.Path()))
	return rt.reporter.ExitCode(), nil
}
