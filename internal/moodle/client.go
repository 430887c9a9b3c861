// Copyright 2025 Canonical Ltd
// SPDX-License-Identifier: AGPL-3.0

package moodle

import (
	"context"
	"fmt"

	"github.com/canonical/roster-sync/internal/logging"
	"github.com/canonical/roster-sync/internal/types"
	"github.com/canonical/roster-sync/pkg/directory"
)

// NewClient opens a directory session with the selected driver. The memory
// driver starts empty and makes every run a dry run.
func NewClient(
	ctx context.Context,
	driver types.Driver,
	browser BrowserConfig,
	webService WebServiceConfig,
	logger logging.LoggerInterface,
) (directory.ClientInterface, error) {
	switch driver {
	case types.DriverBrowser:
		return NewBrowser(ctx, browser, logger)
	case types.DriverWebService:
		return NewWebService(webService, logger), nil
	case types.DriverMemory:
		logger.Info("using the in-memory directory, nothing is written to Moodle")
		return directory.NewMemory(), nil
	default:
		return nil, fmt.Errorf("%w: %q", types.ErrInvalidDriver, driver)
	}
}
