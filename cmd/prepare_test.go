// Copyright 2025 Canonical Ltd
// SPDX-License-Identifier: AGPL-3.0

package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/canonical/roster-sync/internal/types"
	"github.com/canonical/roster-sync/pkg/report"
	"github.com/canonical/roster-sync/pkg/sheet"
)

func writeRosterAt(t *testing.T, path string, records []types.Record) {
	t.Helper()

	if err := sheet.WriteRoster(path, records); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

func TestPrepareCmdRequiresInput(t *testing.T) {
	clearMoodleEnv(t)
	cmd := &cobra.Command{}
	addPrepareFlags(cmd)

	if _, err := runPrepare(cmd); err == nil {
		t.Fatal("expected error when input is empty")
	}
}

func TestPrepareCmdWritesMissing(t *testing.T) {
	clearMoodleEnv(t)
	dir := t.TempDir()

	input := filepath.Join(dir, "registro4.xlsx")
	writeRosterAt(t, input, []types.Record{
		{Row: 2, LastName: "Ruiz", FirstName: "Marta", Email: "marta.ruiz@example.com"},
		{Row: 3, LastName: "Soto", FirstName: "Pablo", Email: "psoto@example.com"},
	})
	known := filepath.Join(dir, "registro3.xlsx")
	writeRosterAt(t, known, []types.Record{
		{Row: 2, LastName: "Ruiz", FirstName: "Marta", Email: "MARTA.RUIZ@example.com"},
	})
	output := filepath.Join(dir, "out.xlsx")

	cmd := &cobra.Command{}
	addPrepareFlags(cmd)
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.Flags().Set("log-dir", filepath.Join(dir, "logs"))
	cmd.Flags().Set("input", input)
	cmd.Flags().Set("compare", known)
	cmd.Flags().Set("output", output)

	code, err := runPrepare(cmd)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if code != report.ExitOK {
		t.Fatalf("expected exit code %d, got %d\n%s", report.ExitOK, code, out.String())
	}

	table, err := sheet.Open(output, "")
	if err != nil {
		t.Fatalf("failed to open output: %v", err)
	}
	defer table.Close()

	records, err := sheet.ReadRoster(table)
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}
	if len(records) != 1 || records[0].Email != "psoto@example.com" {
		t.Fatalf("expected only psoto@example.com in output, got %+v", records)
	}
	if records[0].Username == "" || records[0].Password == "" {
		t.Fatalf("expected filled credentials, got %+v", records[0])
	}
}

func TestCompleteCmdFillsCredentials(t *testing.T) {
	clearMoodleEnv(t)
	dir := t.TempDir()

	input := filepath.Join(dir, "registro2.xlsx")
	writeRosterAt(t, input, []types.Record{
		{Row: 2, LastName: "Ruiz", FirstName: "Marta", Email: "marta.ruiz@example.com"},
	})

	cmd := &cobra.Command{}
	addCompleteFlags(cmd)
	cmd.SetOut(new(bytes.Buffer))
	cmd.Flags().Set("log-dir", filepath.Join(dir, "logs"))
	cmd.Flags().Set("input", input)

	code, err := runComplete(cmd)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if code != report.ExitOK {
		t.Fatalf("expected exit code %d, got %d", report.ExitOK, code)
	}
	if _, err := os.Stat(filepath.Join(dir, "registro2_rellenado.xlsx")); err != nil {
		t.Fatalf("expected default output file: %v", err)
	}
}

func TestCheckCmd(t *testing.T) {
	clearMoodleEnv(t)
	dir := t.TempDir()

	excelDir := filepath.Join(dir, "excel")
	if err := os.Mkdir(excelDir, 0o755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}
	writeRosterAt(t, filepath.Join(excelDir, "registro.xlsx"), []types.Record{
		{Row: 2, LastName: "Ruiz", FirstName: "Marta", Email: "marta.ruiz@example.com"},
		{Row: 3, LastName: "Soto", FirstName: "Pablo", Email: "psoto@example.com"},
	})

	export := filepath.Join(dir, "users.csv")
	if err := os.WriteFile(export, []byte("username,email\nmarta.ruiz,Marta.Ruiz@example.com\n"), 0o644); err != nil {
		t.Fatalf("failed to write export: %v", err)
	}

	tests := []struct {
		name     string
		csv      string
		wantCode int
		wantErr  bool
	}{
		{name: "missing email", csv: export, wantCode: report.ExitFindings},
		{name: "missing export", csv: filepath.Join(dir, "none.csv"), wantCode: 1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := &cobra.Command{}
			addCheckFlags(cmd)
			out := new(bytes.Buffer)
			cmd.SetOut(out)
			cmd.Flags().Set("log-dir", filepath.Join(dir, "logs"))
			cmd.Flags().Set("excel-dir", excelDir)
			cmd.Flags().Set("csv", tt.csv)

			code, err := runCheck(cmd)
			if (err != nil) != tt.wantErr {
				t.Fatalf("unexpected error state: %v", err)
			}
			if code != tt.wantCode {
				t.Fatalf("expected exit code %d, got %d\n%s", tt.wantCode, code, out.String())
			}
			if !tt.wantErr && !strings.Contains(out.String(), "psoto@example.com") {
				t.Fatalf("expected psoto@example.com to be listed:\n%s", out.String())
			}
		})
	}
}

func TestCheckCmdRejectsMalformedEnvironment(t *testing.T) {
	clearMoodleEnv(t)
	t.Setenv("BROWSER_HEADLESS", "maybe")
	dir := t.TempDir()

	export := filepath.Join(dir, "users.csv")
	if err := os.WriteFile(export, []byte("email\na@x.com\n"), 0o644); err != nil {
		t.Fatalf("failed to write export: %v", err)
	}

	cmd := &cobra.Command{}
	addCheckFlags(cmd)
	cmd.SetOut(new(bytes.Buffer))
	cmd.Flags().Set("log-dir", filepath.Join(dir, "logs"))
	cmd.Flags().Set("excel-dir", dir)
	cmd.Flags().Set("csv", export)

	if code, err := runCheck(cmd); err == nil || code != 1 {
		t.Fatalf("expected a fatal environment error, got code %d err %v", code, err)
	}
}
