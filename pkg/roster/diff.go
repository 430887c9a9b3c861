// Copyright 2025 Canonical Ltd
// SPDX-License-Identifier: AGPL-3.0

package roster

import (
	"sort"

	"github.com/canonical/roster-sync/internal/types"
)

// EmailSet is a set of normalized emails.
type EmailSet map[string]struct{}

func NewEmailSet(emails ...string) EmailSet {
	s := make(EmailSet, len(emails))
	for _, e := range emails {
		s.Add(e)
	}
	return s
}

// Add normalizes e and adds it, blank values are ignored.
func (s EmailSet) Add(e string) {
	if n, ok := NormalizeEmail(e); ok {
		s[n] = struct{}{}
	}
}

func (s EmailSet) Has(e string) bool {
	n, ok := NormalizeEmail(e)
	if !ok {
		return false
	}
	_, found := s[n]
	return found
}

func (s EmailSet) Len() int {
	return len(s)
}

// Sorted returns the members in lexical order.
func (s EmailSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for e := range s {
		out = append(out, e)
	}
	sort.Strings(out)
	return out
}

// Union returns a new set holding the members of every set.
func Union(sets ...EmailSet) EmailSet {
	out := make(EmailSet)
	for _, s := range sets {
		for e := range s {
			out[e] = struct{}{}
		}
	}
	return out
}

// EmailsOf collects the normalized emails of records.
func EmailsOf(records []types.Record) EmailSet {
	s := make(EmailSet, len(records))
	for _, r := range records {
		s.Add(r.Email)
	}
	return s
}

// Missing returns the subject records whose email is in none of the reference
// sets, in subject order. Records without an email are never reported.
func Missing(subject []types.Record, refs ...EmailSet) []types.Record {
	known := Union(refs...)

	out := make([]types.Record, 0)
	for _, r := range subject {
		e, ok := NormalizeEmail(r.Email)
		if !ok {
			continue
		}
		if _, found := known[e]; found {
			continue
		}
		out = append(out, r)
	}
	return out
}

// MissingEmails is the plain set difference subject \ union(refs), sorted.
func MissingEmails(subject EmailSet, refs ...EmailSet) []string {
	known := Union(refs...)

	out := make([]string, 0)
	for _, e := range subject.Sorted() {
		if _, found := known[e]; !found {
			out = append(out, e)
		}
	}
	return out
}
