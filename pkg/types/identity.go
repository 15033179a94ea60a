// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// PersonalIdentity is the immutable input to one search job: a canonical
// personal name plus optional refinements. It is never persisted outside
// the job's hint payload.
type PersonalIdentity struct {
	// Name is the canonical display name, e.g. native-script "张三".
	Name string `json:"name" yaml:"name"`

	// Pinyin overrides the derived romanization when non-empty.
	Pinyin string `json:"pinyin,omitempty" yaml:"pinyin,omitempty"`

	// Affiliation is an optional institution keyword.
	Affiliation string `json:"affiliation,omitempty" yaml:"affiliation,omitempty"`

	// DateRange optionally bounds publication dates.
	DateRange DateRange `json:"date_range,omitempty" yaml:"date_range,omitempty"`
}

// NameVariant is one candidate rendering of an identity's name.
// Priority 0 is the highest-confidence tier; 3 is reserved for
// low-confidence forms.
type NameVariant struct {
	Priority int    `json:"priority" yaml:"priority"`
	Text     string `json:"text" yaml:"text"`
}
