// Copyright 2025 Canonical Ltd
// SPDX-License-Identifier: AGPL-3.0

package roster

import (
	"github.com/canonical/roster-sync/internal/types"
)

// DuplicateGroup lists the rows sharing one normalized email, first row first.
type DuplicateGroup struct {
	Email string
	Rows  []int
	Names []string

	// HasNameDiscrepancy is advisory, it never changes which row is kept.
	HasNameDiscrepancy bool
}

// Resolution is the outcome of ResolveDuplicates.
type Resolution struct {
	// Kept holds the first occurrence of every email, in roster order.
	Kept []types.Record
	// Groups holds one entry per email seen more than once, in order of first occurrence.
	Groups []DuplicateGroup
	// Blank holds records without an email, which cannot be keyed.
	Blank []types.Record
}

// Dropped counts the rows discarded as later duplicates.
func (r *Resolution) Dropped() int {
	n := 0
	for _, g := range r.Groups {
		n += len(g.Rows) - 1
	}
	return n
}

// Discrepancies returns the groups flagged for manual review.
func (r *Resolution) Discrepancies() []DuplicateGroup {
	var out []DuplicateGroup
	for _, g := range r.Groups {
		if g.HasNameDiscrepancy {
			out = append(out, g)
		}
	}
	return out
}

// ResolveDuplicates collapses records sharing a normalized email in a single
// pass, keeping the first occurrence.
func ResolveDuplicates(records []types.Record) Resolution {
	res := Resolution{Kept: make([]types.Record, 0, len(records))}

	first := make(map[string]int)
	groupIdx := make(map[string]int)
	nameKeys := make(map[string]string)

	for _, r := range records {
		email, ok := NormalizeEmail(r.Email)
		if !ok {
			res.Blank = append(res.Blank, r)
			continue
		}

		key := NameKey(r.FirstName, r.LastName)

		keptAt, seen := first[email]
		if !seen {
			first[email] = len(res.Kept)
			nameKeys[email] = key
			res.Kept = append(res.Kept, r)
			continue
		}

		gi, grouped := groupIdx[email]
		if !grouped {
			kept := res.Kept[keptAt]
			gi = len(res.Groups)
			groupIdx[email] = gi
			res.Groups = append(res.Groups, DuplicateGroup{
				Email: email,
				Rows:  []int{kept.Row},
				Names: []string{kept.FullName()},
			})
		}

		g := &res.Groups[gi]
		g.Rows = append(g.Rows, r.Row)
		g.Names = append(g.Names, r.FullName())
		if key != nameKeys[email] {
			g.HasNameDiscrepancy = true
		}
	}

	return res
}
