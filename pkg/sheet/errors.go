// Copyright 2025 Canonical Ltd
// SPDX-License-Identifier: AGPL-3.0

package sheet

import "errors"

var (
	ErrMissingColumn     = errors.New("required column not found")
	ErrNoEmailColumn     = errors.New("no email column found")
	ErrUnsupportedFormat = errors.New("unsupported spreadsheet format")
	ErrNoSheet           = errors.New("sheet not found")
)
