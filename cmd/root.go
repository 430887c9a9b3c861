// Copyright 2025 Canonical Ltd
// SPDX-License-Identifier: AGPL-3.0

package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "roster-sync",
	Short: "Reconcile course rosters with Moodle user accounts",
	Long: `Reconcile spreadsheet rosters with the users of a Moodle site.

Every command mirrors its console output to a timestamped log file under the
log directory (LOG_DIR, ./logs by default). Commands exit 0 when nothing needs
attention, 2 when errors or discrepancies were reported and 1 on fatal errors.`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
