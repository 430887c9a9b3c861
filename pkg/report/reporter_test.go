// Copyright 2025 Canonical Ltd
// SPDX-License-Identifier: AGPL-3.0

package report

import (
	"fmt"
	"strings"
	"testing"

	"github.com/canonical/roster-sync/internal/monitoring"
	"github.com/canonical/roster-sync/internal/types"
	"github.com/canonical/roster-sync/pkg/roster"
)

type memoryJournal struct {
	lines []string
}

func (j *memoryJournal) Println(s string) {
	j.lines = append(j.lines, s)
}

func (j *memoryJournal) Printf(format string, args ...interface{}) {
	j.lines = append(j.lines, fmt.Sprintf(format, args...))
}

func (j *memoryJournal) contains(s string) bool {
	for _, l := range j.lines {
		if strings.Contains(l, s) {
			return true
		}
	}
	return false
}

func TestReporterSummary(t *testing.T) {
	j := new(memoryJournal)
	r := NewReporter(j, monitoring.NewNoopMonitor("roster-sync"))

	r.Outcome(Entry{Row: 2, Outcome: types.OutcomeCreated})
	r.Outcome(Entry{Row: 3, Outcome: types.OutcomeEdited, Warning: "edit could not be confirmed"})
	r.Outcome(Entry{Row: 4, Outcome: types.OutcomeEdited})
	r.Outcome(Entry{Row: 5, Outcome: types.OutcomeError, Messages: []string{"Moodle error: invalid email"}})

	s := r.Close()

	if s.Created != 1 || s.Edited != 2 || s.Errors != 1 || s.Total() != 4 {
		t.Fatalf("unexpected summary %+v", s)
	}
	if !j.contains("Summary: created=1, edited=2, errors=1, total=4") {
		t.Fatalf("summary line missing: %q", j.lines)
	}
	if !j.contains("⚠ edit could not be confirmed") || !j.contains("✗ Moodle error: invalid email") {
		t.Fatalf("warning or error lines missing: %q", j.lines)
	}
	if r.ExitCode() != ExitFindings {
		t.Fatalf("expected exit %d, got %d", ExitFindings, r.ExitCode())
	}
	if len(r.Entries()) != 4 {
		t.Fatalf("expected 4 entries, got %d", len(r.Entries()))
	}
}

func TestReporterCleanRunExitsZero(t *testing.T) {
	r := NewReporter(new(memoryJournal), monitoring.NewNoopMonitor("roster-sync"))
	r.Outcome(Entry{Row: 2, Outcome: types.OutcomeCreated})
	r.Outcome(Entry{Row: 3, Outcome: types.OutcomeEdited, Warning: "not confirmed"})
	r.Close()

	if r.ExitCode() != ExitOK {
		t.Fatalf("expected exit 0, got %d", r.ExitCode())
	}
}

func TestReporterNotProcessedIsAFinding(t *testing.T) {
	j := new(memoryJournal)
	r := NewReporter(j, monitoring.NewNoopMonitor("roster-sync"))
	r.NotProcessed(types.Record{Row: 9, Email: "late@x.com"})
	s := r.Close()

	if s.NotProcessed != 1 || s.Total() != 0 {
		t.Fatalf("unexpected summary %+v", s)
	}
	if r.ExitCode() != ExitFindings {
		t.Fatalf("expected exit %d, got %d", ExitFindings, r.ExitCode())
	}
	if !j.contains("Stopped early: 1 records not processed") {
		t.Fatalf("missing stop line: %q", j.lines)
	}
}

func TestReporterDuplicates(t *testing.T) {
	res := roster.ResolveDuplicates([]types.Record{
		{Row: 2, Email: "a@x.com", FirstName: "Ana", LastName: "Gil"},
		{Row: 3, Email: "a@x.com", FirstName: "ANA", LastName: "GIL"},
		{Row: 4, Email: "f@x.com", FirstName: "Ana", LastName: "Ruiz"},
		{Row: 5, Email: "F@x.com", FirstName: "Juan", LastName: "Ruiz"},
		{Row: 6, Email: " "},
	})

	j := new(memoryJournal)
	r := NewReporter(j, monitoring.NewNoopMonitor("roster-sync"))
	r.Duplicates(res)

	for _, want := range []string{
		"Row 6 has no email, skipped",
		"Duplicate emails found: 2",
		"a@x.com in rows [2, 3]",
		"f@x.com in rows [4, 5]",
		"Row 5: Juan Ruiz",
		"REVIEW",
	} {
		if !j.contains(want) {
			t.Fatalf("expected %q in %q", want, j.lines)
		}
	}
	if j.contains("Row 3: ANA GIL") {
		t.Fatal("groups without discrepancy must not be listed for review")
	}
	if r.ExitCode() != ExitFindings {
		t.Fatal("a discrepancy must make the run exit non-zero")
	}
}

func TestReporterMissingSample(t *testing.T) {
	j := new(memoryJournal)
	r := NewReporter(j, monitoring.NewNoopMonitor("roster-sync"))

	r.Missing([]string{"a@x.com", "b@x.com", "c@x.com"}, 2)

	if !j.contains("  - b@x.com") || j.contains("  - c@x.com") || !j.contains("... +1 more") {
		t.Fatalf("unexpected sample %q", j.lines)
	}
	if r.ExitCode() != ExitFindings {
		t.Fatal("missing emails must make the run exit non-zero")
	}
}
