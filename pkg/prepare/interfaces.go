// Copyright 2025 Canonical Ltd
// SPDX-License-Identifier: AGPL-3.0

package prepare

import (
	"github.com/canonical/roster-sync/pkg/roster"
)

// ReporterInterface is the part of the run report the batch workflows write to.
type ReporterInterface interface {
	Line(string, ...interface{})
	Warn(string, ...interface{})
	Duplicates(roster.Resolution)
	Missing([]string, int)
}
