// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package match decides whether a candidate record belongs to a query
// identity. Both predicates are strictly boolean; no relevance score is
// computed anywhere.
package match

import (
	"strings"

	"github.com/Liang-Chaoyue/PaperFinder/internal/names"
	"github.com/Liang-Chaoyue/PaperFinder/pkg/types"
)

// AnyVariantMatch reports whether any author string compacts into the
// variant token set. Each author is checked verbatim and in its swapped
// (given/family) orderings, covering providers that reverse name order.
// Empty authors or an empty token set fail closed.
func AnyVariantMatch(authors []string, variantTokens []string) bool {
	if len(authors) == 0 || len(variantTokens) == 0 {
		return false
	}
	set := make(map[string]struct{}, len(variantTokens))
	for _, t := range variantTokens {
		set[t] = struct{}{}
	}

	for _, author := range authors {
		if author == "" {
			continue
		}
		if _, ok := set[names.CompactToken(author)]; ok {
			return true
		}
		given, family := names.SplitName(author)
		if given == "" && family == "" {
			continue
		}
		for _, form := range []string{
			given + " " + family,
			family + " " + given,
			family + ", " + given,
		} {
			if _, ok := set[names.CompactToken(form)]; ok {
				return true
			}
		}
	}
	return false
}

// AffiliationHit reports whether any affiliation string contains the
// keyword after folding. The containment is literal substring, not
// synonym-aware: keyword "MIT" does not hit "Massachusetts Institute of
// Technology". An empty keyword always passes.
func AffiliationHit(affiliations []string, keyword string) bool {
	if keyword == "" {
		return true
	}
	key := names.Fold(keyword)
	for _, a := range affiliations {
		if strings.Contains(names.Fold(a), key) {
			return true
		}
	}
	return false
}

// Keep is the combined keep/reject decision for one candidate record:
// the author predicate AND the affiliation predicate. lenientAffiliation
// is the per-adapter policy for records carrying no affiliation strings
// while a keyword is set — true when the adapter already expressed the
// constraint upstream in its query.
func Keep(rec types.CanonicalRecord, variantTokens []string, affiliationKeyword string, lenientAffiliation bool) bool {
	if !AnyVariantMatch(rec.Authors, variantTokens) {
		return false
	}
	if affiliationKeyword == "" {
		return true
	}
	if len(rec.Affiliations) == 0 {
		return lenientAffiliation
	}
	return AffiliationHit(rec.Affiliations, affiliationKeyword)
}
