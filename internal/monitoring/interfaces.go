// Copyright 2025 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package monitoring

import "time"

type MonitorInterface interface {
	GetService() string
	IncOutcome(outcome string)
	ObserveRemoteCall(operation, status string, elapsed time.Duration)
	ObserveRecord(outcome string, elapsed time.Duration)
	SetMissingEmails(file string, count int)
	Flush() error
}
