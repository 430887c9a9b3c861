// Copyright 2025 Canonical Ltd
// SPDX-License-Identifier: AGPL-3.0

package prepare

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/canonical/roster-sync/internal/logging"
	"github.com/canonical/roster-sync/internal/monitoring"
	"github.com/canonical/roster-sync/internal/tracing"
	"github.com/canonical/roster-sync/internal/types"
	"github.com/canonical/roster-sync/pkg/roster"
	"github.com/canonical/roster-sync/pkg/sheet"
)

const (
	missingSuffix   = "_faltantes_rellenado"
	completedSuffix = "_rellenado"
)

type PrepareOptions struct {
	Input   string
	Sheet   string
	Compare []string
	// Output defaults to DefaultPrepareOutput(Input).
	Output string
}

type PrepareResult struct {
	Output        string
	Read          int
	Known         int
	Missing       int
	InvalidEmails int
	EmptyNames    int
}

type CompleteOptions struct {
	Input string
	Sheet string
	// Output defaults to DefaultCompleteOutput(Input).
	Output string
}

type CompleteResult struct {
	Output  string
	Updated int
}

type CheckOptions struct {
	ExcelDir  string
	CSV       string
	MaxSample int
}

// CheckResult maps every readable workbook to the emails the export lacks.
type CheckResult struct {
	Reference int
	Files     []string
	Missing   map[string][]string
}

// Service runs the offline roster workflows that feed or audit a sync.
type Service struct {
	reporter ReporterInterface

	tracer  tracing.TracingInterface
	monitor monitoring.MonitorInterface
	logger  logging.LoggerInterface
}

// Prepare writes the subject records absent from every reference roster,
// deduplicated and with credentials filled, in the fixed roster layout.
func (s *Service) Prepare(ctx context.Context, opts PrepareOptions) (*PrepareResult, error) {
	_, span := s.tracer.Start(ctx, "prepare.Service.Prepare",
		trace.WithAttributes(attribute.Int("compare", len(opts.Compare))),
	)
	defer span.End()

	res := &PrepareResult{Output: opts.Output}
	if res.Output == "" {
		res.Output = DefaultPrepareOutput(opts.Input)
	}

	s.reporter.Line("Input: %s", filepath.Base(opts.Input))
	s.reporter.Line("Output: %s", filepath.Base(res.Output))

	records, err := s.readRoster(opts.Input, opts.Sheet)
	if err != nil {
		return nil, err
	}
	res.Read = len(records)
	s.reporter.Line("Input records: %d", res.Read)

	refs := make([]roster.EmailSet, 0, len(opts.Compare))
	for _, path := range opts.Compare {
		emails, err := s.readReference(path)
		if err != nil {
			s.reporter.Warn("%v (skipped)", err)
			continue
		}
		s.reporter.Line("Compare: %s -> %d emails", filepath.Base(path), emails.Len())
		refs = append(refs, emails)
	}
	res.Known = roster.Union(refs...).Len()
	s.reporter.Line("Known emails (union): %d", res.Known)

	resolution := roster.ResolveDuplicates(records)
	s.reporter.Duplicates(resolution)

	missing := roster.Missing(resolution.Kept, refs...)
	res.Missing = len(missing)
	s.reporter.Line("Missing records (by email): %d", res.Missing)

	for i := range missing {
		for _, err := range roster.FillCredentials(&missing[i]) {
			switch {
			case errors.Is(err, roster.ErrInvalidEmail):
				res.InvalidEmails++
			case errors.Is(err, roster.ErrEmptyName):
				res.EmptyNames++
			}
		}
	}

	if res.InvalidEmails > 0 {
		s.reporter.Warn("Invalid emails in missing records: %d (username left blank)", res.InvalidEmails)
	}
	if res.EmptyNames > 0 {
		s.reporter.Warn("Empty first names in missing records: %d (password left blank)", res.EmptyNames)
	}

	if err := sheet.WriteRoster(res.Output, missing); err != nil {
		return nil, err
	}

	s.reporter.Line("OK generated: %s (%d rows)", filepath.Base(res.Output), res.Missing)
	return res, nil
}

// Complete fills blank usernames, and the matching passwords, in place and
// saves the workbook to a new file.
func (s *Service) Complete(ctx context.Context, opts CompleteOptions) (*CompleteResult, error) {
	_, span := s.tracer.Start(ctx, "prepare.Service.Complete")
	defer span.End()

	res := &CompleteResult{Output: opts.Output}
	if res.Output == "" {
		res.Output = DefaultCompleteOutput(opts.Input)
	}

	t, err := sheet.Open(opts.Input, opts.Sheet)
	if err != nil {
		return nil, err
	}
	defer t.Close()

	records, err := sheet.ReadRoster(t)
	if err != nil {
		return nil, err
	}
	resolution := roster.ResolveDuplicates(records)
	s.reporter.Duplicates(resolution)

	userCol, err := t.EnsureColumn(sheet.ColUsername)
	if err != nil {
		return nil, err
	}
	passCol, err := t.EnsureColumn(sheet.ColPassword)
	if err != nil {
		return nil, err
	}

	for _, r := range records {
		if strings.TrimSpace(r.Username) != "" || strings.TrimSpace(r.Email) == "" {
			continue
		}

		for _, err := range roster.FillCredentials(&r) {
			s.reporter.Warn("Row %d: %v", r.Row, err)
		}
		if r.Username == "" {
			continue
		}

		i := r.Row - t.RowNumber(0)
		if err := t.Set(i, userCol, r.Username); err != nil {
			return nil, err
		}
		if r.Password != "" {
			if err := t.Set(i, passCol, r.Password); err != nil {
				return nil, err
			}
		}
		res.Updated++
	}

	if err := t.Save(res.Output); err != nil {
		return nil, err
	}

	msg := fmt.Sprintf("OK. Rows updated: %d. Saved to: %s", res.Updated, res.Output)
	if len(resolution.Groups) > 0 {
		msg += " [duplicate emails were filled in every row, only the first is synced]"
	}
	s.reporter.Line("%s", msg)

	return res, nil
}

// Check compares the emails of every workbook in a directory with a user
// export. Missing emails are findings.
func (s *Service) Check(ctx context.Context, opts CheckOptions) (*CheckResult, error) {
	_, span := s.tracer.Start(ctx, "prepare.Service.Check")
	defer span.End()

	export, err := sheet.Open(opts.CSV, "")
	if err != nil {
		return nil, err
	}
	defer export.Close()

	reference, _, err := sheet.ReadEmails(export)
	if err != nil {
		return nil, err
	}

	files, err := workbooks(opts.ExcelDir)
	if err != nil {
		return nil, err
	}

	res := &CheckResult{
		Reference: reference.Len(),
		Files:     files,
		Missing:   make(map[string][]string),
	}

	s.reporter.Line("CSV (user export): %s -> %d emails", opts.CSV, res.Reference)
	s.reporter.Line("Excel dir: %s -> %d .xlsx files", opts.ExcelDir, len(files))
	s.reporter.Line("")

	anyMissing := false
	for _, path := range files {
		name := filepath.Base(path)

		emails, col, err := s.readWorkbookEmails(path)
		if errors.Is(err, sheet.ErrNoEmailColumn) {
			s.reporter.Line("- %s: could not detect an email column", name)
			continue
		}
		if err != nil {
			s.reporter.Line("- %s: ERROR reading (%v)", name, err)
			continue
		}

		missing := roster.MissingEmails(emails, reference)
		res.Missing[name] = missing
		s.monitor.SetMissingEmails(name, len(missing))
		s.reporter.Line("- %s: %d emails (col='%s') -> missing in CSV: %d", name, emails.Len(), col, len(missing))

		if len(missing) > 0 {
			anyMissing = true
			s.reporter.Missing(missing, opts.MaxSample)
		}
	}

	s.reporter.Line("")
	if anyMissing {
		s.reporter.Line("ATTENTION: some Excel emails are not in the CSV")
	} else {
		s.reporter.Line("OK: every Excel email is in the CSV")
	}

	return res, nil
}

func (s *Service) readRoster(path, sheetName string) ([]types.Record, error) {
	t, err := sheet.Open(path, sheetName)
	if err != nil {
		return nil, err
	}
	defer t.Close()

	return sheet.ReadRoster(t)
}

// readReference loads the emails of a reference roster. Absent or unreadable
// files are errors the caller skips.
func (s *Service) readReference(path string) (roster.EmailSet, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("compare file %s does not exist", filepath.Base(path))
	}

	emails, _, err := s.readWorkbookEmails(path)
	if err != nil {
		s.logger.Debugf("failed to read %s: %v", path, err)
		return nil, fmt.Errorf("compare file %s could not be read: %w", filepath.Base(path), err)
	}
	return emails, nil
}

func (s *Service) readWorkbookEmails(path string) (roster.EmailSet, string, error) {
	t, err := sheet.Open(path, "")
	if err != nil {
		return nil, "", err
	}
	defer t.Close()

	return sheet.ReadEmails(t)
}

// workbooks lists the .xlsx files of dir in lexical order. A missing dir
// holds no workbooks.
func workbooks(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	files := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, "~$") || !strings.EqualFold(filepath.Ext(name), ".xlsx") {
			continue
		}
		files = append(files, filepath.Join(dir, name))
	}
	return files, nil
}

// DefaultPrepareOutput is "<input stem>_faltantes_rellenado.xlsx" next to input.
func DefaultPrepareOutput(input string) string {
	return sibling(input, missingSuffix, ".xlsx")
}

// DefaultCompleteOutput is "<input stem>_rellenado<ext>" next to input.
func DefaultCompleteOutput(input string) string {
	return sibling(input, completedSuffix, filepath.Ext(input))
}

func sibling(input, suffix, ext string) string {
	base := filepath.Base(input)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(filepath.Dir(input), stem+suffix+ext)
}

func NewService(
	reporter ReporterInterface,
	tracer tracing.TracingInterface,
	monitor monitoring.MonitorInterface,
	logger logging.LoggerInterface,
) *Service {
	s := new(Service)

	s.reporter = reporter

	s.tracer = tracer
	s.monitor = monitor
	s.logger = logger

	return s
}
