// Copyright 2025 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/canonical/roster-sync/internal/logging"
	"github.com/canonical/roster-sync/internal/monitoring"
)

var _ monitoring.MonitorInterface = (*Monitor)(nil)

// Monitor keeps run metrics in a private registry. A batch run has no scrape
// endpoint, so Flush writes them to a node-exporter textfile instead.
type Monitor struct {
	service  string
	textfile string

	registry     *prometheus.Registry
	outcomes     *prometheus.CounterVec
	remoteCalls  *prometheus.HistogramVec
	records      *prometheus.HistogramVec
	missing      *prometheus.GaugeVec
	lastRunStart prometheus.Gauge

	logger logging.LoggerInterface
}

func (m *Monitor) GetService() string {
	return m.service
}

func (m *Monitor) IncOutcome(outcome string) {
	m.outcomes.WithLabelValues(outcome).Inc()
}

func (m *Monitor) ObserveRemoteCall(operation, status string, elapsed time.Duration) {
	m.remoteCalls.WithLabelValues(operation, status).Observe(elapsed.Seconds())
}

// ObserveRecord records how long one record took from lookup to outcome.
func (m *Monitor) ObserveRecord(outcome string, elapsed time.Duration) {
	m.records.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

func (m *Monitor) SetMissingEmails(file string, count int) {
	m.missing.WithLabelValues(file).Set(float64(count))
}

// Flush writes the registry to the configured textfile, if any.
func (m *Monitor) Flush() error {
	if m.textfile == "" {
		return nil
	}

	if err := prometheus.WriteToTextfile(m.textfile, m.registry); err != nil {
		m.logger.Errorf("failed to write metrics textfile %s: %v", m.textfile, err)
		return err
	}
	return nil
}

// Gatherer exposes the underlying registry, mainly for tests.
func (m *Monitor) Gatherer() prometheus.Gatherer {
	return m.registry
}

func NewMonitor(service, textfile string, logger logging.LoggerInterface) *Monitor {
	m := new(Monitor)

	m.service = service
	m.textfile = textfile
	m.logger = logger

	m.registry = prometheus.NewRegistry()

	m.outcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "roster_sync_outcomes_total",
			Help:        "Reconciliation outcomes per record.",
			ConstLabels: prometheus.Labels{"service": service},
		},
		[]string{"outcome"},
	)
	m.remoteCalls = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:        "roster_sync_remote_call_duration_seconds",
			Help:        "Duration of calls to the remote user directory.",
			ConstLabels: prometheus.Labels{"service": service},
			Buckets:     []float64{0.1, 0.5, 1, 2, 5, 10, 20, 40},
		},
		[]string{"operation", "status"},
	)
	m.records = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:        "roster_sync_record_duration_seconds",
			Help:        "Time spent reconciling one roster record.",
			ConstLabels: prometheus.Labels{"service": service},
			Buckets:     []float64{0.5, 1, 2, 5, 10, 20, 40, 80},
		},
		[]string{"outcome"},
	)
	m.missing = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name:        "roster_sync_missing_emails",
			Help:        "Roster emails absent from the last user export checked.",
			ConstLabels: prometheus.Labels{"service": service},
		},
		[]string{"file"},
	)
	m.lastRunStart = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name:        "roster_sync_last_run_start_timestamp_seconds",
			Help:        "Unix time the last run started.",
			ConstLabels: prometheus.Labels{"service": service},
		},
	)

	m.registry.MustRegister(m.outcomes, m.remoteCalls, m.records, m.missing, m.lastRunStart)
	m.lastRunStart.SetToCurrentTime()

	return m
}
