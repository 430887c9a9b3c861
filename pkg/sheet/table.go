// Copyright 2025 Canonical Ltd
// SPDX-License-Identifier: AGPL-3.0

package sheet

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/canonical/roster-sync/pkg/roster"
)

const (
	headerRow    = 1
	firstDataRow = 2
)

var (
	emailHeaders    = []string{"correo", "email", "e-mail", "direccion de correo"}
	emailSubstrings = []string{"correo", "email"}
)

// Table is the header and data rows of one worksheet or CSV file. Rows are
// ragged, missing trailing cells read as blank.
type Table struct {
	path   string
	sheet  string
	header []string
	rows   [][]string

	// file is nil for CSV tables.
	file *excelize.File
}

// Open reads path as a workbook (.xlsx, .xlsm) or a CSV file. sheet selects a
// worksheet by name, the active one is used when it is empty.
func Open(path, sheet string) (*Table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return openWorkbook(path, sheet)
	case ".csv":
		return openCSV(path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Base(path))
	}
}

func openWorkbook(path, sheet string) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}

	if sheet == "" {
		sheet = f.GetSheetName(f.GetActiveSheetIndex())
	} else if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		f.Close()
		return nil, fmt.Errorf("%w: %q in %s", ErrNoSheet, sheet, filepath.Base(path))
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	t := newTable(path, sheet, rows)
	t.file = f
	return t, nil
}

func newTable(path, sheet string, rows [][]string) *Table {
	t := &Table{path: path, sheet: sheet}
	if len(rows) > 0 {
		t.header = rows[0]
		t.rows = rows[1:]
	}
	return t
}

func (t *Table) Path() string {
	return t.path
}

func (t *Table) Name() string {
	return filepath.Base(t.path)
}

func (t *Table) Sheet() string {
	return t.sheet
}

func (t *Table) Header() []string {
	return t.header
}

// Len is the number of data rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// RowNumber maps a data row index to its 1-based spreadsheet row.
func (t *Table) RowNumber(i int) int {
	return i + firstDataRow
}

// Cell returns the trimmed value at data row i and column col.
func (t *Table) Cell(i, col int) string {
	if col < 0 || i < 0 || i >= len(t.rows) || col >= len(t.rows[i]) {
		return ""
	}
	return strings.TrimSpace(t.rows[i][col])
}

// Blank reports whether every cell of data row i is empty.
func (t *Table) Blank(i int) bool {
	for col := range t.rows[i] {
		if t.Cell(i, col) != "" {
			return false
		}
	}
	return true
}

// Column returns the index of the first header matching any alias, ignoring
// case, accents and spacing, or -1.
func (t *Table) Column(aliases ...string) int {
	for _, a := range aliases {
		key := roster.HeaderKey(a)
		for i, h := range t.header {
			if roster.HeaderKey(h) == key {
				return i
			}
		}
	}
	return -1
}

// EmailColumn picks the email column: an exact accepted spelling first, then
// any header mentioning an email. It returns -1 when none qualifies.
func (t *Table) EmailColumn() int {
	if i := t.Column(emailHeaders...); i >= 0 {
		return i
	}

	for i, h := range t.header {
		key := roster.HeaderKey(h)
		for _, s := range emailSubstrings {
			if strings.Contains(key, s) {
				return i
			}
		}
	}
	return -1
}

// HeaderName returns the header text of column col.
func (t *Table) HeaderName(col int) string {
	if col < 0 || col >= len(t.header) {
		return ""
	}
	return t.header[col]
}

// EnsureColumn returns the column matching name, appending a new header when
// there is none.
func (t *Table) EnsureColumn(name string) (int, error) {
	if i := t.Column(name); i >= 0 {
		return i, nil
	}

	col := len(t.header)
	t.header = append(t.header, name)

	if t.file != nil {
		if err := t.setCell(headerRow, col, name); err != nil {
			return -1, err
		}
	}
	return col, nil
}

// Set writes value at data row i and column col.
func (t *Table) Set(i, col int, value string) error {
	if i < 0 || i >= len(t.rows) || col < 0 {
		return fmt.Errorf("cell out of range: row %d, column %d", t.RowNumber(i), col+1)
	}

	for len(t.rows[i]) <= col {
		t.rows[i] = append(t.rows[i], "")
	}
	t.rows[i][col] = value

	if t.file != nil {
		return t.setCell(t.RowNumber(i), col, value)
	}
	return nil
}

func (t *Table) setCell(row, col int, value string) error {
	cell, err := excelize.CoordinatesToCellName(col+1, row)
	if err != nil {
		return err
	}
	return t.file.SetCellValue(t.sheet, cell, value)
}

// Save writes the table to path, keeping the source format. Workbooks keep
// every other sheet and all formatting.
func (t *Table) Save(path string) error {
	if t.file == nil {
		return writeCSV(path, t.header, t.rows)
	}

	if err := t.file.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}

func (t *Table) Close() error {
	if t.file == nil {
		return nil
	}
	return t.file.Close()
}
