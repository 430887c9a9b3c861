// Copyright 2025 Canonical Ltd
// SPDX-License-Identifier: AGPL-3.0

package cmd

import (
	"context"
	"fmt"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/cobra"

	"github.com/canonical/roster-sync/internal/config"
	"github.com/canonical/roster-sync/internal/logging"
	"github.com/canonical/roster-sync/internal/monitoring/prometheus"
	"github.com/canonical/roster-sync/internal/tracing"
	"github.com/canonical/roster-sync/pkg/report"
)

const serviceName = "roster-sync"

// runtime bundles the ambient services every command needs.
type runtime struct {
	logger   *logging.Logger
	tracer   *tracing.Tracer
	monitor  *prometheus.Monitor
	journal  *report.Journal
	reporter *report.Reporter
}

// loadSpecs reads the environment. envconfig stops at the first malformed
// variable and leaves the rest unset, so any error is fatal.
func loadSpecs() (*config.EnvSpec, error) {
	specs := new(config.EnvSpec)
	if err := envconfig.Process("", specs); err != nil {
		return nil, fmt.Errorf("issues with environment sourcing: %v", err)
	}
	if err := specs.Validate(); err != nil {
		return nil, err
	}
	return specs, nil
}

func addLogDirFlag(cmd *cobra.Command) {
	cmd.Flags().String("log-dir", "", "Directory for run logs (default LOG_DIR or ./logs)")
}

// newRuntime opens the run log "<prefix>__<input stem>__<timestamp>.txt".
func newRuntime(cmd *cobra.Command, specs *config.EnvSpec, prefix, input string) (*runtime, error) {
	logDir, _ := cmd.Flags().GetString("log-dir")
	if logDir == "" {
		logDir = specs.LogDir
	}

	rt := new(runtime)
	rt.logger = logging.NewLogger(specs.LogLevel)
	rt.monitor = prometheus.NewMonitor(serviceName, specs.MetricsTextfile, rt.logger)
	rt.tracer = tracing.NewTracer(tracing.NewConfig(specs.TracingEnabled, specs.OtelGRPCEndpoint, specs.OtelHTTPEndpoint, rt.logger))

	journal, err := report.NewJournal(cmd.OutOrStdout(), logDir, prefix, input)
	if err != nil {
		return nil, fmt.Errorf("failed to open run log: %v", err)
	}
	rt.journal = journal
	rt.reporter = report.NewReporter(journal, rt.monitor)

	return rt, nil
}

func (rt *runtime) Close() {
	if err := rt.monitor.Flush(); err != nil {
		rt.reporter.Warn("could not write metrics: %v", err)
	}
	if err := rt.journal.Close(); err != nil {
		rt.logger.Errorf("failed to close run log: %v", err)
	}
	if err := rt.tracer.Shutdown(context.Background()); err != nil {
		rt.logger.Errorf("failed to flush traces: %v", err)
	}
	_ = rt.logger.Sync()
}
