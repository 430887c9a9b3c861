// Copyright 2025 Canonical Ltd
// SPDX-License-Identifier: AGPL-3.0

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/canonical/roster-sync/internal/config"
	"github.com/canonical/roster-sync/internal/moodle"
	"github.com/canonical/roster-sync/internal/types"
	"github.com/canonical/roster-sync/pkg/directory"
	"github.com/canonical/roster-sync/pkg/reconcile"
	"github.com/canonical/roster-sync/pkg/roster"
	"github.com/canonical/roster-sync/pkg/sheet"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Create or update Moodle accounts from a roster",
	Long: `Create or update one Moodle account per roster row, keyed by email.

Absent accounts are created with the roster credentials, filled from the email
and first name when blank. Existing accounts get their names updated. Every
write is confirmed by searching the user list again.

Currently supported drivers:
  - browser: drives the Moodle administration pages (default)
  - webservice: uses the Moodle REST web services with a token
  - memory: dry run against an empty in-memory directory

Example:
  roster-sync sync --input excel/registro.xlsx --base-url https://campus.example.com`,
	Run: func(cmd *cobra.Command, args []string) {
		code, err := runSync(cmd)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Sync failed: %v\n", err)
			os.Exit(1)
		}
		os.Exit(code)
	},
}

func init() {
	addSyncFlags(syncCmd)
	_ = syncCmd.MarkFlagRequired("input")

	rootCmd.AddCommand(syncCmd)
}

func addSyncFlags(cmd *cobra.Command) {
	cmd.Flags().String("input", "", "Roster workbook or CSV file")
	cmd.Flags().String("sheet", "", "Worksheet name (default: active sheet)")
	cmd.Flags().Int("start-row", 2, "First spreadsheet row to process")
	cmd.Flags().Int("end-row", 0, "Last spreadsheet row to process (0: last row)")
	cmd.Flags().String("driver", "", "Directory driver: browser, webservice or memory")
	cmd.Flags().String("base-url", "", "Moodle site URL")
	cmd.Flags().String("admin-user", "", "Moodle administrator username")
	cmd.Flags().String("admin-password", "", "Moodle administrator password")
	cmd.Flags().String("token", "", "Moodle web services token")
	addLogDirFlag(cmd)
}

// sessionFromFlags merges flags over the environment.
func sessionFromFlags(cmd *cobra.Command, specs *config.EnvSpec) config.SessionSpec {
	pick := func(flag, env string) string {
		if v, _ := cmd.Flags().GetString(flag); v != "" {
			return v
		}
		return env
	}

	return config.SessionSpec{
		Driver:        pick("driver", specs.MoodleDriver),
		BaseURL:       pick("base-url", specs.MoodleBaseURL),
		AdminUser:     pick("admin-user", specs.MoodleAdminUser),
		AdminPassword: pick("admin-password", specs.MoodleAdminPassword),
		Token:         pick("token", specs.MoodleToken),
	}
}

func runSync(cmd *cobra.Command) (int, error) {
	input, _ := cmd.Flags().GetString("input")
	sheetName, _ := cmd.Flags().GetString("sheet")
	startRow, _ := cmd.Flags().GetInt("start-row")
	endRow, _ := cmd.Flags().GetInt("end-row")

	if input == "" {
		return 1, fmt.Errorf("--input is required")
	}

	specs, err := loadSpecs()
	if err != nil {
		return 1, err
	}
	session := sessionFromFlags(cmd, specs)

	driver, err := types.ParseDriver(session.Driver)
	if err != nil {
		return 1, fmt.Errorf("unsupported driver %q (supported: browser, webservice, memory)", session.Driver)
	}
	session.Driver = string(driver)

	if err := session.Validate(); err != nil {
		return 1, err
	}

	if _, err := os.Stat(input); err != nil {
		return 1, fmt.Errorf("input not found: %v", err)
	}

	table, err := sheet.Open(input, sheetName)
	if err != nil {
		return 1, err
	}
	defer table.Close()

	all, err := sheet.ReadRoster(table)
	if err != nil {
		return 1, err
	}

	rt, err := newRuntime(cmd, specs, "log_moodle_sync", input)
	if err != nil {
		return 1, err
	}
	defer rt.Close()

	rep := rt.reporter
	rep.Banner("SYNC USERS TO MOODLE")
	rep.Line("Excel: %s", filepath.Base(input))
	rep.Line("Log: %s", filepath.Base(rt.journal.Path()))
	rep.Line("Driver: %s", driver)

	records := sheet.Window(all, startRow, endRow)
	last := endRow
	if last == 0 {
		last = table.RowNumber(table.Len() - 1)
	}
	rep.Line("Range: row %d to row %d (%d records)", startRow, last, len(records))

	for i := range records {
		records[i].FirstName = roster.NormalizeName(records[i].FirstName)
		records[i].LastName = roster.NormalizeName(records[i].LastName)
	}

	resolution := roster.ResolveDuplicates(records)
	rep.Duplicates(resolution)

	rep.Line("")
	rep.Line("Processing %d records...", len(resolution.Kept))
	for _, r := range resolution.Kept {
		rep.Line("  - Row %d: %s", r.Row, r.FullName())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := moodle.NewClient(
		ctx,
		driver,
		moodle.BrowserConfig{
			BaseURL:       session.BaseURL,
			AdminUser:     session.AdminUser,
			AdminPassword: session.AdminPassword,
			Bin:           specs.BrowserBin,
			Headless:      specs.BrowserHeadless,
			Timeout:       specs.UITimeout,
		},
		moodle.WebServiceConfig{
			BaseURL: session.BaseURL,
			Token:   session.Token,
			Timeout: specs.HTTPTimeout,
		},
		rt.logger,
	)
	if err != nil {
		rep.Finding("General error: %v", err)
		return 1, err
	}
	defer client.Close()

	svc := directory.NewService(client, rt.tracer, rt.monitor, rt.logger)
	reconcile.NewDriver(svc, rep, rt.tracer, rt.monitor, rt.logger).Run(ctx, resolution.Kept)

	rep.Close()
	return rep.ExitCode(), nil
}
