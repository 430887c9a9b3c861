// Copyright 2025 Canonical Ltd
// SPDX-License-Identifier: AGPL-3.0

package types

import (
	"errors"
	"strings"
)

type Outcome string

const (
	OutcomeCreated Outcome = "created"
	OutcomeEdited  Outcome = "edited"
	OutcomeError   Outcome = "error"
)

type Driver string

const (
	DriverBrowser    Driver = "browser"
	DriverWebService Driver = "webservice"
	DriverMemory     Driver = "memory"
)

var (
	ErrInvalidDriver = errors.New("invalid driver")
)

// Record is one participant row of a roster.
type Record struct {
	// Row is the 1-based spreadsheet row the record was read from.
	Row int `json:"row"`

	LastName  string `json:"last_name"`
	FirstName string `json:"first_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Country   string `json:"country"`
	Username  string `json:"username"`
	Password  string `json:"password"`

	// InvalidEmail is set when the email cannot yield a username.
	InvalidEmail bool `json:"invalid_email"`
}

// FullName is the display name used in reports.
func (r *Record) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(r.FirstName) + " " + strings.TrimSpace(r.LastName))
}

// ParseDriver converts a string to a Driver, defaulting to the browser driver.
func ParseDriver(s string) (Driver, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "browser", "":
		return DriverBrowser, nil
	case "webservice":
		return DriverWebService, nil
	case "memory":
		return DriverMemory, nil
	default:
		return "", ErrInvalidDriver
	}
}
