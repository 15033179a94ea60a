// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package provider implements the bibliographic provider adapters. Each
// adapter turns one (name variant, hints) query into canonical records
// behind a common contract; the registry maps provider tags to adapter
// instances and is built once at process start.
package provider

import (
	"context"
	"net/http"
	"sort"

	"github.com/Liang-Chaoyue/PaperFinder/pkg/types"
)

// Adapter searches a single bibliographic provider.
type Adapter interface {
	// Name returns the provider tag recorded on every emitted record.
	Name() string

	// Search queries the provider for one name variant under the job's
	// hints. An empty result set is not an error; a returned error is a
	// transport or protocol fault, which the orchestrator degrades to an
	// empty result for that unit.
	Search(ctx context.Context, variant string, hints types.Hints) ([]types.CanonicalRecord, error)

	// LenientAffiliation reports whether records carrying no affiliation
	// strings should pass the affiliation filter when a keyword is set.
	// True for adapters that already expressed the keyword constraint in
	// their upstream query (arXiv, Crossref, Scholar); false for
	// OpenAlex, which lists institutions per authorship and whose silence
	// is therefore meaningful.
	LenientAffiliation() bool
}

// Registry maps provider tags to adapter instances. It replaces ambient
// singletons: construct one with NewRegistry and pass it where needed.
type Registry map[string]Adapter

// NewRegistry builds the full adapter set from cfg with a shared HTTP
// client. The scholar adapter is registered even without a SerpAPI key;
// it then returns empty results rather than failing submissions that
// select it.
func NewRegistry(cfg types.SearchConfig) Registry {
	client := &http.Client{Timeout: cfg.Timeout}
	adapters := []Adapter{
		&OpenAlexAdapter{Client: client, Email: cfg.OpenAlexEmail, UserAgent: cfg.UserAgent, MaxResults: cfg.MaxResults},
		&CrossrefAdapter{Client: client, Mailto: cfg.CrossrefMailto, UserAgent: cfg.UserAgent, MaxResults: cfg.MaxResults},
		&ArxivAdapter{Client: client, UserAgent: cfg.UserAgent, MaxResults: cfg.MaxResults},
		&ScholarAdapter{Client: client, APIKey: cfg.SerpAPIKey, MaxResults: cfg.MaxResults},
	}

	reg := make(Registry, len(adapters))
	for _, a := range adapters {
		reg[a.Name()] = a
	}
	return reg
}

// Names returns the registered provider tags in sorted order.
func (r Registry) Names() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
