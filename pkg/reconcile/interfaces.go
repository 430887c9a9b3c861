// Copyright 2025 Canonical Ltd
// SPDX-License-Identifier: AGPL-3.0

package reconcile

import (
	"github.com/canonical/roster-sync/internal/types"
	"github.com/canonical/roster-sync/pkg/report"
)

// ReporterInterface receives the per-record events of a run.
type ReporterInterface interface {
	Processing(types.Record)
	Step(string, ...interface{})
	Outcome(report.Entry)
	NotProcessed(types.Record)
}
