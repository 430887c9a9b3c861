// Copyright 2025 Canonical Ltd
// SPDX-License-Identifier: AGPL-3.0

package sheet

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/unicode"
)

func writeWorkbook(t *testing.T, name, sheet string, rows [][]interface{}) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		t.Fatalf("failed to name sheet: %v", err)
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		r := row
		if err := f.SetSheetRow(sheet, cell, &r); err != nil {
			t.Fatalf("failed to write row: %v", err)
		}
	}

	path := filepath.Join(t.TempDir(), name)
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("failed to save workbook: %v", err)
	}
	return path
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestOpenWorkbook(t *testing.T) {
	path := writeWorkbook(t, "roster.xlsx", "Hoja1", [][]interface{}{
		{"Apellidos", "Nombre", "Correo"},
		{"Gil", "Ana", " ana@x.com "},
		{"Paz", "Bea"},
	})

	table, err := Open(path, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer table.Close()

	if table.Sheet() != "Hoja1" {
		t.Fatalf("expected active sheet Hoja1, got %s", table.Sheet())
	}
	if table.Len() != 2 {
		t.Fatalf("expected 2 data rows, got %d", table.Len())
	}
	if got := table.Cell(0, 2); got != "ana@x.com" {
		t.Fatalf("expected trimmed email, got %q", got)
	}
	if got := table.Cell(1, 2); got != "" {
		t.Fatalf("expected blank for a missing cell, got %q", got)
	}
	if table.RowNumber(1) != 3 {
		t.Fatalf("expected spreadsheet row 3, got %d", table.RowNumber(1))
	}
}

func TestOpenErrors(t *testing.T) {
	path := writeWorkbook(t, "roster.xlsx", "Hoja1", [][]interface{}{{"Correo"}})

	if _, err := Open(path, "Missing"); !errors.Is(err, ErrNoSheet) {
		t.Fatalf("expected ErrNoSheet, got %v", err)
	}
	if _, err := Open("roster.ods", ""); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
	if _, err := Open(filepath.Join(t.TempDir(), "absent.xlsx"), ""); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

func TestColumnMatching(t *testing.T) {
	tests := []struct {
		name          string
		header        []string
		expectedEmail int
	}{
		{name: "accented spelling", header: []string{"Nombre", "Dirección de correo"}, expectedEmail: 1},
		{name: "case and spacing", header: []string{"  E-MAIL  "}, expectedEmail: 0},
		{name: "exact beats substring", header: []string{"Correo electrónico", "email"}, expectedEmail: 1},
		{name: "substring fallback", header: []string{"Nombre", "Correo electrónico"}, expectedEmail: 1},
		{name: "none", header: []string{"Nombre", "Teléfono"}, expectedEmail: -1},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			table := newTable("x.csv", "", [][]string{test.header})
			if got := table.EmailColumn(); got != test.expectedEmail {
				t.Fatalf("expected column %d, got %d", test.expectedEmail, got)
			}
		})
	}

	table := newTable("x.csv", "", [][]string{{"PAÍS/REGIÓN", "Numero  de telefono"}})
	if table.Column(countryAliases...) != 0 || table.Column(phoneAliases...) != 1 {
		t.Fatal("headers must match ignoring case, accents and spacing")
	}
}

func TestOpenCSVEncodings(t *testing.T) {
	utf16, err := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder().Bytes([]byte("email,firstname\npeña@x.com,Iñigo\n"))
	if err != nil {
		t.Fatalf("failed to encode: %v", err)
	}

	tests := []struct {
		name string
		data []byte
	}{
		{name: "utf-8 with bom", data: append([]byte("\xef\xbb\xbf"), []byte("email,firstname\npeña@x.com,Iñigo\n")...)},
		{name: "latin-1", data: []byte("email,firstname\npe\xf1a@x.com,I\xf1igo\n")},
		{name: "utf-16 with bom", data: utf16},
		{name: "semicolons", data: []byte("email;firstname\npeña@x.com;Iñigo\n")},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			table, err := Open(writeFile(t, "export.csv", test.data), "")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if table.Column("email") != 0 {
				t.Fatalf("expected email header first, got %q", table.Header())
			}
			if got := table.Cell(0, 0); got != "peña@x.com" {
				t.Fatalf("expected peña@x.com, got %q", got)
			}
			if got := table.Cell(0, 1); got != "Iñigo" {
				t.Fatalf("expected Iñigo, got %q", got)
			}
		})
	}
}

func TestSetAndSaveWorkbook(t *testing.T) {
	path := writeWorkbook(t, "roster.xlsx", "Hoja1", [][]interface{}{
		{"Apellidos", "Nombre", "Correo"},
		{"Gil", "Ana", "ana@x.com"},
	})

	table, err := Open(path, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer table.Close()

	col, err := table.EnsureColumn(ColUsername)
	if err != nil || col != 3 {
		t.Fatalf("expected new column 3, got %d (%v)", col, err)
	}
	if again, _ := table.EnsureColumn("usuario"); again != col {
		t.Fatalf("expected existing column to be reused, got %d", again)
	}
	if err := table.Set(0, col, "ana"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := table.Set(5, col, "x"); err == nil {
		t.Fatal("expected an error for a row out of range")
	}

	out := filepath.Join(t.TempDir(), "out.xlsx")
	if err := table.Save(out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	saved, err := Open(out, "Hoja1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer saved.Close()

	if saved.HeaderName(3) != ColUsername || saved.Cell(0, 3) != "ana" {
		t.Fatalf("unexpected saved content: %q / %q", saved.Header(), saved.Cell(0, 3))
	}
}

func TestSetAndSaveCSV(t *testing.T) {
	table, err := Open(writeFile(t, "roster.csv", []byte("Correo,Nombre\nana@x.com,Ana\n")), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	col, _ := table.EnsureColumn(ColPassword)
	if err := table.Set(0, col, "Ana+A1+-"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := filepath.Join(t.TempDir(), "out.csv")
	if err := table.Save(out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, _ := os.ReadFile(out)
	if string(data) != "Correo,Nombre,Contraseña\nana@x.com,Ana,Ana+A1+-\n" {
		t.Fatalf("unexpected csv %q", data)
	}
}
