// Copyright 2025 Canonical Ltd
// SPDX-License-Identifier: AGPL-3.0

package roster

import "errors"

var (
	// ErrInvalidEmail means no username can be derived from the email.
	ErrInvalidEmail = errors.New("invalid email")
	// ErrEmptyName means no password can be derived from the first name.
	ErrEmptyName = errors.New("empty name")
)
