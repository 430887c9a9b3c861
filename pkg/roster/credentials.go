// Copyright 2025 Canonical Ltd
// SPDX-License-Identifier: AGPL-3.0

package roster

import (
	"fmt"
	"strings"

	"github.com/canonical/roster-sync/internal/types"
)

const passwordSuffix = "+A1+-"

// DeriveUsername returns the local part of the normalized email. The email must
// hold exactly one @ with something before it.
func DeriveUsername(email string) (string, error) {
	e, ok := NormalizeEmail(email)
	if !ok {
		return "", fmt.Errorf("%w: blank", ErrInvalidEmail)
	}
	if strings.Count(e, "@") != 1 {
		return "", fmt.Errorf("%w: %q", ErrInvalidEmail, email)
	}

	local, _, _ := strings.Cut(e, "@")
	if local == "" {
		return "", fmt.Errorf("%w: %q has no local part", ErrInvalidEmail, email)
	}
	return local, nil
}

// DerivePassword builds the initial password from the first token of the
// normalized first name.
func DerivePassword(firstName string) (string, error) {
	tokens := strings.Fields(NormalizeName(firstName))
	if len(tokens) == 0 {
		return "", ErrEmptyName
	}
	return tokens[0] + passwordSuffix, nil
}

// ValidEmail reports whether a username can be derived from the email.
func ValidEmail(email string) bool {
	_, err := DeriveUsername(email)
	return err == nil
}

// FillCredentials sets Username and Password on r when they are blank. Values
// already present are never overwritten. Derivation failures are returned and
// leave the field blank.
func FillCredentials(r *types.Record) []error {
	var errs []error

	r.InvalidEmail = !ValidEmail(r.Email)

	if strings.TrimSpace(r.Username) == "" {
		u, err := DeriveUsername(r.Email)
		if err != nil {
			errs = append(errs, err)
		}
		r.Username = u
	}

	if strings.TrimSpace(r.Password) == "" {
		p, err := DerivePassword(r.FirstName)
		if err != nil {
			errs = append(errs, err)
		}
		r.Password = p
	}

	return errs
}
