// Copyright 2025 Canonical Ltd
// SPDX-License-Identifier: AGPL-3.0

package sheet

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/canonical/roster-sync/internal/types"
	"github.com/canonical/roster-sync/pkg/roster"
)

// Column headers of the roster layout written by WriteRoster.
const (
	ColLastName  = "Apellidos"
	ColFirstName = "Nombre"
	ColEmail     = "Correo"
	ColPhone     = "Número de teléfono"
	ColCountry   = "País/región"
	ColUsername  = "Usuario"
	ColPassword  = "Contraseña"

	RosterSheet = "Usuarios"
)

// RosterColumns is the fixed column order of generated rosters.
var RosterColumns = []string{
	ColLastName,
	ColFirstName,
	ColEmail,
	ColPhone,
	ColCountry,
	ColUsername,
	ColPassword,
}

var (
	lastNameAliases  = []string{ColLastName, "Apellido", "Last name", "Surname"}
	firstNameAliases = []string{ColFirstName, "Nombres", "First name"}
	phoneAliases     = []string{ColPhone, "Teléfono", "Phone"}
	countryAliases   = []string{ColCountry, "País", "Country"}
	usernameAliases  = []string{ColUsername, "Username"}
	passwordAliases  = []string{ColPassword, "Password"}
)

// RosterColumnsIndex locates the roster columns of a table. Optional columns
// are -1 when absent.
type RosterColumnsIndex struct {
	LastName, FirstName, Email int
	Phone, Country             int
	Username, Password         int
}

// Locate finds the roster columns of t. A missing last name, first name or
// email column is an ErrMissingColumn.
func Locate(t *Table) (RosterColumnsIndex, error) {
	idx := RosterColumnsIndex{
		LastName:  t.Column(lastNameAliases...),
		FirstName: t.Column(firstNameAliases...),
		Email:     t.EmailColumn(),
		Phone:     t.Column(phoneAliases...),
		Country:   t.Column(countryAliases...),
		Username:  t.Column(usernameAliases...),
		Password:  t.Column(passwordAliases...),
	}

	required := []struct {
		name string
		col  int
	}{
		{ColLastName, idx.LastName},
		{ColFirstName, idx.FirstName},
		{ColEmail, idx.Email},
	}
	for _, r := range required {
		if r.col < 0 {
			return idx, fmt.Errorf("%w: %q in %s, headers: %q", ErrMissingColumn, r.name, t.Name(), t.Header())
		}
	}
	return idx, nil
}

// ReadRoster converts every non-blank data row of t into a record.
func ReadRoster(t *Table) ([]types.Record, error) {
	idx, err := Locate(t)
	if err != nil {
		return nil, err
	}

	records := make([]types.Record, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		if t.Blank(i) {
			continue
		}
		records = append(records, types.Record{
			Row:       t.RowNumber(i),
			LastName:  t.Cell(i, idx.LastName),
			FirstName: t.Cell(i, idx.FirstName),
			Email:     t.Cell(i, idx.Email),
			Phone:     t.Cell(i, idx.Phone),
			Country:   t.Cell(i, idx.Country),
			Username:  t.Cell(i, idx.Username),
			Password:  t.Cell(i, idx.Password),
		})
	}
	return records, nil
}

// ReadEmails returns the normalized emails of t and the header of the column
// they were read from.
func ReadEmails(t *Table) (roster.EmailSet, string, error) {
	col := t.EmailColumn()
	if col < 0 {
		return nil, "", fmt.Errorf("%w in %s, headers: %q", ErrNoEmailColumn, t.Name(), t.Header())
	}

	emails := roster.NewEmailSet()
	for i := 0; i < t.Len(); i++ {
		emails.Add(t.Cell(i, col))
	}
	return emails, t.HeaderName(col), nil
}

// Window keeps the records whose spreadsheet row lies in [start, end]. An end
// of 0 means the last row.
func Window(records []types.Record, start, end int) []types.Record {
	out := make([]types.Record, 0, len(records))
	for _, r := range records {
		if r.Row < start || (end > 0 && r.Row > end) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// WriteRoster writes records to a new workbook at path, one sheet named
// RosterSheet with RosterColumns as header.
func WriteRoster(path string, records []types.Record) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), RosterSheet); err != nil {
		return err
	}

	header := make([]interface{}, 0, len(RosterColumns))
	for _, c := range RosterColumns {
		header = append(header, c)
	}
	if err := f.SetSheetRow(RosterSheet, "A1", &header); err != nil {
		return err
	}

	for i, r := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+firstDataRow)
		if err != nil {
			return err
		}
		row := []interface{}{r.LastName, r.FirstName, r.Email, r.Phone, r.Country, r.Username, r.Password}
		if err := f.SetSheetRow(RosterSheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", r.Row, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}
