// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the paperfinder pipeline:
// canonical publication records, stored papers with curation state, search
// jobs, query identities, and stage configuration.
package types

import "time"

// CurationState is the reviewer-assigned label on a stored paper. It is
// set through the review surface, never by the search pipeline, and
// survives rediscovery of the paper by later jobs.
type CurationState string

const (
	StatePending   CurationState = "pending"
	StateConfirmed CurationState = "confirmed"
	StateRejected  CurationState = "rejected"
)

// ValidState reports whether s is one of the allowed curation states.
func ValidState(s CurationState) bool {
	switch s {
	case StatePending, StateConfirmed, StateRejected:
		return true
	}
	return false
}

// CanonicalRecord is the provider-agnostic representation of one
// publication. Every provider adapter emits this shape; it lives only
// between the adapter call and the upsert.
type CanonicalRecord struct {
	// Title is the publication title as returned by the provider.
	Title string `json:"title" yaml:"title"`

	// Authors lists author display names in source order.
	Authors []string `json:"authors" yaml:"authors"`

	// Year is the publication year, 0 when unknown.
	Year int `json:"year" yaml:"year"`

	// Month is the publication month (1-12), 0 when unknown.
	Month int `json:"month,omitempty" yaml:"month,omitempty"`

	// Venue is the journal, conference, or repository name.
	Venue string `json:"venue" yaml:"venue"`

	// DOI is the bare DOI without a resolver prefix, empty when the
	// provider did not supply one.
	DOI string `json:"doi,omitempty" yaml:"doi,omitempty"`

	// URL is the landing page for the publication.
	URL string `json:"url" yaml:"url"`

	// PDFURL points at a full-text PDF when the provider exposes one.
	PDFURL string `json:"pdf_url,omitempty" yaml:"pdf_url,omitempty"`

	// Provider identifies the originating adapter (openalex, crossref,
	// arxiv, scholar).
	Provider string `json:"provider" yaml:"provider"`

	// ExternalIDs maps provider-specific identifier names to values
	// (e.g. "arxiv" -> "2301.07041").
	ExternalIDs map[string]string `json:"ext_ids,omitempty" yaml:"ext_ids,omitempty"`

	// Affiliations lists institution strings attached to the record's
	// authors. May be empty for providers that do not expose them.
	Affiliations []string `json:"affiliations,omitempty" yaml:"affiliations,omitempty"`
}

// StoredPaper is a canonical record persisted in the store, plus curation
// and ownership metadata.
type StoredPaper struct {
	CanonicalRecord `yaml:",inline"`

	// ID is the store-assigned row identifier.
	ID int64 `json:"id" yaml:"id"`

	// State is the reviewer curation label.
	State CurationState `json:"state" yaml:"state"`

	// LastJobID points at the most recent job that discovered this
	// paper. Overwritten, not accumulated.
	LastJobID string `json:"last_job" yaml:"last_job"`

	// CreatedAt is when the paper was first inserted.
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}
