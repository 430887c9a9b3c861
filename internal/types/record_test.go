// Copyright 2025 Canonical Ltd
// SPDX-License-Identifier: AGPL-3.0

package types

import (
	"errors"
	"testing"
)

func TestParseDriver(t *testing.T) {
	tests := []struct {
		in          string
		expected    Driver
		expectedErr error
	}{
		{"", DriverBrowser, nil},
		{"Browser", DriverBrowser, nil},
		{"webservice", DriverWebService, nil},
		{" memory ", DriverMemory, nil},
		{"selenium", "", ErrInvalidDriver},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			d, err := ParseDriver(tt.in)
			if !errors.Is(err, tt.expectedErr) {
				t.Fatalf("expected error %v, got %v", tt.expectedErr, err)
			}
			if d != tt.expected {
				t.Fatalf("expected %q, got %q", tt.expected, d)
			}
		})
	}
}

func TestRecordFullName(t *testing.T) {
	r := Record{FirstName: " Ana ", LastName: "Pérez "}
	if got := r.FullName(); got != "Ana Pérez" {
		t.Fatalf("unexpected full name %q", got)
	}

	r = Record{LastName: "Pérez"}
	if got := r.FullName(); got != "Pérez" {
		t.Fatalf("unexpected full name %q", got)
	}
}
