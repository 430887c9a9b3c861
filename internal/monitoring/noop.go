// Copyright 2025 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package monitoring

import "time"

var _ MonitorInterface = (*NoopMonitor)(nil)

type NoopMonitor struct {
	service string
}

func (m *NoopMonitor) GetService() string {
	return m.service
}

func (m *NoopMonitor) IncOutcome(string) {}

func (m *NoopMonitor) ObserveRemoteCall(string, string, time.Duration) {}

func (m *NoopMonitor) ObserveRecord(string, time.Duration) {}

func (m *NoopMonitor) SetMissingEmails(string, int) {}

func (m *NoopMonitor) Flush() error {
	return nil
}

func NewNoopMonitor(service string) *NoopMonitor {
	return &NoopMonitor{service: service}
}
