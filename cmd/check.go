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

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check that every roster email appears in a Moodle user export",
	Long: `Compare the emails of every .xlsx roster in a directory with a CSV user
export downloaded from Moodle, and list the emails the export lacks.

Exits 2 when any email is missing.`,
	Run: func(cmd *cobra.Command, args []string) {
		code, err := runCheck(cmd)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Check failed: %v\n", err)
			os.Exit(1)
		}
		os.Exit(code)
	},
}

func init() {
	addCheckFlags(checkCmd)
	_ = checkCmd.MarkFlagRequired("csv")

	rootCmd.AddCommand(checkCmd)
}

func addCheckFlags(cmd *cobra.Command) {
	cmd.Flags().String("excel-dir", "excel", "Directory holding the .xlsx rosters")
	cmd.Flags().String("csv", "", "CSV user export with an email column")
	cmd.Flags().Int("max-sample", 20, "Missing emails shown per roster")
	addLogDirFlag(cmd)
}

func runCheck(cmd *cobra.Command) (int, error) {
	excelDir, _ := cmd.Flags().GetString("excel-dir")
	csvPath, _ := cmd.Flags().GetString("csv")
	maxSample, _ := cmd.Flags().GetInt("max-sample")

	if csvPath == "" {
		return 1, fmt.Errorf("--csv is required")
	}
	if _, err := os.Stat(csvPath); err != nil {
		return 1, fmt.Errorf("user export not found: %v", err)
	}

	specs, err := loadSpecs()
	if err != nil {
		return 1, err
	}
	rt, err := newRuntime(cmd, specs, "final_check_excel_vs_csv", "")
	if err != nil {
		return 1, err
	}
	defer rt.Close()

	svc := prepare.NewService(rt.reporter, rt.tracer, rt.monitor, rt.logger)
	if _, err := svc.Check(context.Background(), prepare.CheckOptions{
		ExcelDir:  excelDir,
		CSV:       csvPath,
		MaxSample: maxSample,
	}); err != nil {
		return 1, err
	}

	rt.reporter.Line("Log written to: %s", rt.journal.Path())
	return rt.reporter.ExitCode(), nil
}
