// Copyright 2025 Canonical Ltd
// SPDX-License-Identifier: AGPL-3.0

package roster

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NormalizeEmail returns the identity key of an email: trimmed and lower-cased.
// The boolean is false for blank input. Diacritics are kept as they are.
func NormalizeEmail(raw string) (string, bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return "", false
	}
	return s, true
}

// NormalizeName trims a person name and converts it to title case only when
// every letter in it is upper-case, so mixed-case names are left untouched.
func NormalizeName(raw string) string {
	s := strings.TrimSpace(raw)
	if !isUpperOnly(s) {
		return s
	}
	// casers carry state, one per call
	return cases.Title(language.Und).String(s)
}

func isUpperOnly(s string) bool {
	letters := 0
	for _, r := range s {
		if !unicode.IsLetter(r) {
			continue
		}
		if !unicode.IsUpper(r) {
			return false
		}
		letters++
	}
	return letters > 0
}

// HeaderKey is the loose key used to match spreadsheet header names: accents
// removed, whitespace (newlines included) collapsed and case folded.
func HeaderKey(raw string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	s, _, err := transform.String(t, raw)
	if err != nil {
		s = raw
	}
	return strings.Join(strings.Fields(cases.Fold().String(s)), " ")
}

// NameKey is the comparison key of a full name, used only to flag duplicate
// rows that may belong to different people.
func NameKey(firstName, lastName string) string {
	return HeaderKey(firstName + " " + lastName)
}
