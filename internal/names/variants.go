// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package names

import (
	"strings"

	"github.com/mozillazg/go-pinyin"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/Liang-Chaoyue/PaperFinder/pkg/types"
)

// MaxPriority is the highest variant priority tier generated. Tier 3 is
// reserved for future low-confidence forms.
const MaxPriority = 3

// Romanize converts a Han-script name to space-separated, title-cased
// pinyin ("张三" -> "Zhang San"). Runes outside the supported script
// contribute nothing; an all-Latin input therefore returns "".
func Romanize(name string) string {
	if name == "" {
		return ""
	}
	caser := cases.Title(language.Und)
	var parts []string
	for _, syllables := range pinyin.Pinyin(name, pinyin.NewArgs()) {
		if len(syllables) == 0 || syllables[0] == "" {
			continue
		}
		parts = append(parts, caser.String(syllables[0]))
	}
	return strings.Join(parts, " ")
}

// SplitName splits a romanized name into (given, family) components. A
// comma splits family from given directly ("Zhang, Xi"); otherwise the
// final whitespace-delimited token is the family name and everything
// before it the given name. Best-effort: multi-token family names
// mis-split, which the matcher's swapped permutations absorb. A single
// token comes back as the given name with an empty family.
func SplitName(name string) (given, family string) {
	caser := cases.Title(language.Und)
	if idx := strings.IndexRune(name, ','); idx >= 0 {
		family = caser.String(Fold(name[:idx]))
		given = caser.String(Fold(name[idx+1:]))
		return given, family
	}
	parts := strings.Fields(Fold(name))
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return caser.String(parts[0]), ""
	default:
		return caser.String(strings.Join(parts[:len(parts)-1], " ")), caser.String(parts[len(parts)-1])
	}
}

// Generate produces the prioritized variant set for one identity. The
// result is ordered by ascending priority, first-seen order within each
// tier, deduplicated case-insensitively per tier. Deterministic, never
// fails; an empty canonical name yields an empty priority-0 tier.
//
// Tier 0 holds the canonical name verbatim plus the three romanized
// orderings; tier 1 the initialed abbreviations; tier 2 the symbolic
// separator rewrites of the two full orderings.
func Generate(name, override string) []types.NameVariant {
	var buckets [MaxPriority + 1][]string

	name = strings.TrimSpace(name)
	if name != "" {
		buckets[0] = append(buckets[0], name)
	}

	rom := strings.TrimSpace(override)
	if rom == "" {
		rom = Romanize(name)
	}
	if rom == "" {
		// Already romanized (Latin-script input): the name is its own
		// romanization.
		rom = name
	}
	rom = strings.Join(strings.Fields(rom), " ")

	if rom != "" {
		given, family := SplitName(rom)
		givenFirst := strings.TrimSpace(given + " " + family)
		familyFirst := strings.TrimSpace(family + " " + given)
		comma := strings.TrimSpace(strings.Trim(family+", "+given, ", "))
		buckets[0] = append(buckets[0], givenFirst, familyFirst, comma)

		if given != "" && family != "" {
			gl, fl := initial(given), initial(family)
			gi, fi := gl+".", fl+"."
			buckets[1] = append(buckets[1],
				gi+" "+family,
				fi+" "+given,
				family+" "+gi,
				family+", "+gi,
				gl+fl,
				gl+" "+family,
				fl+" "+given,
			)

			for _, sep := range []string{"-", "", "."} {
				buckets[2] = append(buckets[2],
					strings.ReplaceAll(givenFirst, " ", sep),
					strings.ReplaceAll(familyFirst, " ", sep),
				)
			}
		}
	}

	var out []types.NameVariant
	for pri, bucket := range buckets {
		for _, text := range dedupeFold(bucket) {
			out = append(out, types.NameVariant{Priority: pri, Text: text})
		}
	}
	return out
}

// initial returns the first letter of a name component's first token
// ("Xi Cheng" -> "X").
func initial(component string) string {
	for _, r := range component {
		return string(r)
	}
	return ""
}

// Select returns the texts of variants at or below maxPriority, capped at
// max entries. Generation order already ascends by priority, so the cap
// discards the lowest-confidence forms first.
func Select(variants []types.NameVariant, maxPriority, max int) []string {
	var out []string
	for _, v := range variants {
		if v.Priority > maxPriority {
			continue
		}
		out = append(out, v.Text)
		if max > 0 && len(out) >= max {
			break
		}
	}
	return out
}

// MatchTokens flattens the variant set into compact tokens for the
// matcher, augmenting each splittable variant with its swapped orderings
// ("given family", "family given", "family, given") to guard against
// providers that reverse name order. Empty tokens are dropped; the result
// is deduplicated preserving first-seen order.
func MatchTokens(variants []types.NameVariant) []string {
	var texts []string
	for _, v := range variants {
		texts = append(texts, v.Text)
	}
	for _, v := range variants {
		given, family := SplitName(v.Text)
		if given == "" || family == "" {
			continue
		}
		texts = append(texts, given+" "+family, family+" "+given, family+", "+given)
	}

	seen := make(map[string]struct{}, len(texts))
	var tokens []string
	for _, t := range texts {
		tok := CompactToken(t)
		if tok == "" {
			continue
		}
		if _, ok := seen[tok]; ok {
			continue
		}
		seen[tok] = struct{}{}
		tokens = append(tokens, tok)
	}
	return tokens
}

// dedupeFold removes case-insensitive duplicates and blanks, preserving
// first-seen order.
func dedupeFold(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	var out []string
	for _, s := range items {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		key := strings.ToLower(s)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	return out
}
