// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package names generates and normalizes author-name renderings. It is the
// identity-resolution core: a canonical personal name fans out into a
// prioritized set of variant strings, and every comparison elsewhere in the
// pipeline goes through the folding helpers here.
package names

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// separator punctuation folded to a space: middle dot, period, hyphen,
// underscore, comma, semicolon, slash.
const separators = "·._-,;/"

// markStripper decomposes runes and drops combining marks, so accented and
// plain renderings of the same name compare equal ("José" vs "Jose").
var markStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Fold trims, lowercases, replaces separator punctuation with spaces, and
// collapses internal whitespace. It keeps word boundaries, so it suits
// human-readable containment checks such as affiliation matching.
// Fold is total and idempotent.
func Fold(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if strings.ContainsRune(separators, r) {
			b.WriteRune(' ')
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// CompactToken applies Fold, strips combining marks, and keeps only ASCII
// lowercase letters and digits. Two strings with equal compact tokens are
// treated as identical for matching and dedup purposes regardless of
// spacing, punctuation, case, or diacritics. Total and idempotent;
// non-Latin scripts compact to the empty string.
func CompactToken(s string) string {
	folded := Fold(s)
	if stripped, _, err := transform.String(markStripper, folded); err == nil {
		folded = stripped
	}
	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
