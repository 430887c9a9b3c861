// Copyright 2025 Canonical Ltd
// SPDX-License-Identifier: AGPL-3.0

package reconcile

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/canonical/roster-sync/internal/logging"
	"github.com/canonical/roster-sync/internal/monitoring"
	"github.com/canonical/roster-sync/internal/tracing"
	"github.com/canonical/roster-sync/internal/types"
	"github.com/canonical/roster-sync/pkg/directory"
	"github.com/canonical/roster-sync/pkg/report"
	"github.com/canonical/roster-sync/pkg/roster"
)

const (
	maxRemoteMessages = 3
	remoteMessageLen  = 160
	failureLen        = 120
)

// Driver reconciles roster records against the remote directory one at a
// time. A Driver is good for a single run.
type Driver struct {
	directory directory.ServiceInterface
	reporter  ReporterInterface

	// started is set once the first lookup of the run has been issued.
	started bool

	tracer  tracing.TracingInterface
	monitor monitoring.MonitorInterface
	logger  logging.LoggerInterface
}

// Run processes records in order and returns one entry per processed record.
// Cancelling ctx stops the run before the next record; the record in flight
// always completes. Credentials derived during the run are written back into
// records.
func (d *Driver) Run(ctx context.Context, records []types.Record) []report.Entry {
	ctx, span := d.tracer.Start(ctx, "reconcile.Driver.Run",
		trace.WithAttributes(attribute.Int("records", len(records))),
	)
	defer span.End()

	entries := make([]report.Entry, 0, len(records))

	for i := range records {
		if err := ctx.Err(); err != nil {
			d.logger.Warnf("run stopped before row %d: %v", records[i].Row, err)
			for _, r := range records[i:] {
				d.reporter.NotProcessed(r)
			}
			break
		}

		e := d.Process(context.WithoutCancel(ctx), &records[i])
		entries = append(entries, e)
	}

	return entries
}

// Process takes one record through lookup, write and verification and
// reports its outcome.
func (d *Driver) Process(ctx context.Context, rec *types.Record) report.Entry {
	ctx, span := d.tracer.Start(ctx, "reconcile.Driver.Process",
		trace.WithAttributes(attribute.Int("row", rec.Row)),
	)
	defer span.End()

	d.reporter.Processing(*rec)

	start := time.Now()
	e := d.process(ctx, rec)
	d.monitor.ObserveRecord(string(e.Outcome), time.Since(start))
	e.Row = rec.Row
	e.Email = strings.TrimSpace(rec.Email)
	e.Name = rec.FullName()

	span.SetAttributes(attribute.String("outcome", string(e.Outcome)))
	d.reporter.Outcome(e)

	return e
}

func (d *Driver) process(ctx context.Context, rec *types.Record) report.Entry {
	email, _ := roster.NormalizeEmail(rec.Email)

	opts := directory.LookupOptions{FirstInRun: !d.started}
	d.started = true

	lookup, err := d.directory.FindByEmail(ctx, email, opts)
	if err != nil {
		return failed("Error: " + truncate(err.Error(), failureLen))
	}

	switch lookup.Status {
	case directory.NotFound:
		d.reporter.Step("→ User does not exist. Creating...")
		return d.create(ctx, rec, email)
	case directory.Found:
		d.reporter.Step("→ User already exists. Editing...")
		return d.edit(ctx, rec, lookup.Ref, email)
	default:
		detail := lookup.Detail
		if detail == "" {
			detail = "search result could not be read"
		}
		return failed("Error: lookup indeterminate: " + truncate(detail, failureLen))
	}
}

func (d *Driver) create(ctx context.Context, rec *types.Record, email string) report.Entry {
	for _, err := range roster.FillCredentials(rec) {
		d.reporter.Step("⚠ %v", err)
	}

	fields := directory.Fields{
		Username:  strings.TrimSpace(rec.Username),
		Email:     email,
		FirstName: strings.TrimSpace(rec.FirstName),
		LastName:  strings.TrimSpace(rec.LastName),
		Password:  strings.TrimSpace(rec.Password),
	}
	d.reporter.Step("Username: %s", fields.Username)

	if _, err := d.directory.CreateUser(ctx, fields); err != nil {
		return failed(d.messages(err)...)
	}

	ok, err := d.directory.ConfirmPresence(ctx, email)
	if err != nil {
		return failed("Error: " + truncate(err.Error(), failureLen))
	}
	if !ok {
		return failed("Verification failed: email not listed after creation")
	}

	d.reporter.Step("✓ Verification: email appears in the list")
	return report.Entry{Outcome: types.OutcomeCreated}
}

func (d *Driver) edit(ctx context.Context, rec *types.Record, ref directory.UserRef, email string) report.Entry {
	fields := directory.Fields{
		FirstName: strings.TrimSpace(rec.FirstName),
		LastName:  strings.TrimSpace(rec.LastName),
	}

	if err := d.directory.EditUser(ctx, ref, fields); err != nil {
		return failed(d.messages(err)...)
	}

	ok, err := d.directory.ConfirmPresence(ctx, email)
	if err != nil {
		d.logger.Debugf("edit confirmation for %s failed: %v", email, err)
		ok = false
	}
	if !ok {
		return report.Entry{
			Outcome: types.OutcomeEdited,
			Warning: "Edited without confirmation in the user list",
		}
	}

	d.reporter.Step("✓ Verification: email appears in the list")
	return report.Entry{Outcome: types.OutcomeEdited}
}

// messages turns a write failure into report lines. Remote rejections keep
// the first few messages shown by the directory.
func (d *Driver) messages(err error) []string {
	var derr *directory.DirectoryError
	if errors.As(err, &derr) && derr.Code == directory.ErrCodeRejected && len(derr.Messages) > 0 {
		msgs := derr.Messages
		if len(msgs) > maxRemoteMessages {
			msgs = msgs[:maxRemoteMessages]
		}

		out := make([]string, 0, len(msgs))
		for _, m := range msgs {
			out = append(out, "Moodle error: "+truncate(m, remoteMessageLen))
		}
		return out
	}

	if errors.Is(err, directory.ErrRejected) {
		return []string{"Moodle rejected the form without a visible message"}
	}
	return []string{"Error: " + truncate(err.Error(), failureLen)}
}

func failed(msgs ...string) report.Entry {
	return report.Entry{Outcome: types.OutcomeError, Messages: msgs}
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func NewDriver(
	dir directory.ServiceInterface,
	reporter ReporterInterface,
	tracer tracing.TracingInterface,
	monitor monitoring.MonitorInterface,
	logger logging.LoggerInterface,
) *Driver {
	d := new(Driver)

	d.directory = dir
	d.reporter = reporter

	d.tracer = tracer
	d.monitor = monitor
	d.logger = logger

	return d
}
