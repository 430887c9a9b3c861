// Copyright 2025 Canonical Ltd
// SPDX-License-Identifier: AGPL-3.0

package report

type JournalInterface interface {
	Println(string)
	Printf(string, ...interface{})
}
