// Copyright 2025 Canonical Ltd
// SPDX-License-Identifier: AGPL-3.0

package report

import (
	"fmt"
	"strings"

	"github.com/canonical/roster-sync/internal/monitoring"
	"github.com/canonical/roster-sync/internal/types"
	"github.com/canonical/roster-sync/pkg/roster"
)

const (
	// ExitOK means nothing needs the operator's attention.
	ExitOK = 0
	// ExitFindings means the run completed with errors or discrepancies.
	ExitFindings = 2

	rule = "================================================================================"
)

// Entry is the terminal classification of one record.
type Entry struct {
	Row      int
	Email    string
	Name     string
	Outcome  types.Outcome
	Messages []string
	// Warning is set for outcomes accepted on a weaker guarantee.
	Warning string
}

type Summary struct {
	Created      int
	Edited       int
	Errors       int
	NotProcessed int
}

// Total counts the records that reached an outcome.
func (s Summary) Total() int {
	return s.Created + s.Edited + s.Errors
}

func (s Summary) String() string {
	return fmt.Sprintf("Summary: created=%d, edited=%d, errors=%d, total=%d", s.Created, s.Edited, s.Errors, s.Total())
}

// Reporter turns run events into journal lines and keeps the tallies that
// decide the exit code.
type Reporter struct {
	journal JournalInterface
	monitor monitoring.MonitorInterface

	entries  []Entry
	summary  Summary
	findings int
}

func (r *Reporter) Banner(title string) {
	r.journal.Println(rule)
	r.journal.Println(title)
	r.journal.Println(rule)
}

func (r *Reporter) Line(format string, args ...interface{}) {
	r.journal.Printf(format, args...)
}

// Warn writes an advisory line. It does not count as a finding.
func (r *Reporter) Warn(format string, args ...interface{}) {
	r.journal.Println("⚠ " + fmt.Sprintf(format, args...))
}

// Finding writes a line that makes the run exit non-zero.
func (r *Reporter) Finding(format string, args ...interface{}) {
	r.findings++
	r.journal.Println("✗ " + fmt.Sprintf(format, args...))
}

func (r *Reporter) Processing(rec types.Record) {
	r.journal.Println("")
	r.journal.Printf("[Row %d] Processing: %s (%s)", rec.Row, rec.FullName(), strings.TrimSpace(rec.Email))
}

func (r *Reporter) Step(format string, args ...interface{}) {
	r.journal.Println("  " + fmt.Sprintf(format, args...))
}

// Outcome records the classification of one record.
func (r *Reporter) Outcome(e Entry) {
	r.entries = append(r.entries, e)
	r.monitor.IncOutcome(string(e.Outcome))

	for _, m := range e.Messages {
		r.journal.Println("  ✗ " + m)
	}
	if e.Warning != "" {
		r.journal.Println("  ⚠ " + e.Warning)
	}

	switch e.Outcome {
	case types.OutcomeCreated:
		r.summary.Created++
		r.journal.Println("  ✓✓ User created")
	case types.OutcomeEdited:
		r.summary.Edited++
		r.journal.Println("  ✓✓ User edited")
	default:
		r.summary.Errors++
		r.journal.Println("  ✗✗ Error")
	}
}

// NotProcessed records a record the run stopped before.
func (r *Reporter) NotProcessed(rec types.Record) {
	r.summary.NotProcessed++
	r.journal.Printf("  - Row %d not processed: %s", rec.Row, strings.TrimSpace(rec.Email))
}

// Duplicates itemizes every dropped duplicate row and the groups whose names
// differ. Discrepancies are findings, plain duplicates are warnings.
func (r *Reporter) Duplicates(res roster.Resolution) {
	for _, b := range res.Blank {
		r.Warn("Row %d has no email, skipped", b.Row)
	}

	if len(res.Groups) == 0 {
		return
	}

	r.Warn("Duplicate emails found: %d (only the first occurrence is kept)", len(res.Groups))
	for _, g := range res.Groups {
		r.journal.Printf("  - %s in rows %s", g.Email, joinInts(g.Rows))
	}

	disc := res.Discrepancies()
	if len(disc) == 0 {
		return
	}

	r.journal.Println("")
	r.Warn("Name discrepancies in duplicates:")
	for _, g := range disc {
		r.findings++
		r.journal.Printf("  ⚠ %s:", g.Email)
		for i, row := range g.Rows {
			r.journal.Printf("      Row %d: %s", row, g.Names[i])
		}
		r.journal.Println("      → REVIEW: same person or two different people?")
	}
}

// Missing lists emails absent from a reference, showing at most maxSample.
func (r *Reporter) Missing(missing []string, maxSample int) {
	if len(missing) == 0 {
		return
	}

	r.findings++
	shown := missing
	if maxSample >= 0 && len(missing) > maxSample {
		shown = missing[:maxSample]
	}
	for _, e := range shown {
		r.journal.Printf("  - %s", e)
	}
	if rest := len(missing) - len(shown); rest > 0 {
		r.journal.Printf("  ... +%d more", rest)
	}
}

// Close writes the closing summary block of a sync run.
func (r *Reporter) Close() Summary {
	r.journal.Println("")
	r.journal.Println(rule)
	r.journal.Println("✓ Run completed")
	if r.summary.NotProcessed > 0 {
		r.journal.Printf("Stopped early: %d records not processed", r.summary.NotProcessed)
	}
	r.journal.Println(r.summary.String())
	r.journal.Println(rule)

	return r.summary
}

func (r *Reporter) Summary() Summary {
	return r.summary
}

func (r *Reporter) Entries() []Entry {
	return r.entries
}

// ExitCode is ExitOK only when no record failed, no run was cut short and no
// finding was reported.
func (r *Reporter) ExitCode() int {
	if r.summary.Errors > 0 || r.summary.NotProcessed > 0 || r.findings > 0 {
		return ExitFindings
	}
	return ExitOK
}

func joinInts(v []int) string {
	s := make([]string, 0, len(v))
	for _, i := range v {
		s = append(s, fmt.Sprintf("%d", i))
	}
	return "[" + strings.Join(s, ", ") + "]"
}

func NewReporter(journal JournalInterface, monitor monitoring.MonitorInterface) *Reporter {
	r := new(Reporter)

	r.journal = journal
	r.monitor = monitor

	return r
}
