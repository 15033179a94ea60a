// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/Liang-Chaoyue/PaperFinder/internal/httputil"
	"github.com/Liang-Chaoyue/PaperFinder/pkg/types"
)

// serpAPIBase is the SerpAPI search endpoint used for the Google Scholar
// engine. Declared as a var so tests can substitute an httptest server.
var serpAPIBase = "https://serpapi.com/search"

// yearPattern extracts a publication year from the free-form publication
// summary SerpAPI returns.
var yearPattern = regexp.MustCompile(`(19|20)\d{2}`)

// ScholarAdapter queries Google Scholar through SerpAPI. Without an API
// key the adapter is disabled and returns empty results, so a deployment
// without a key still accepts submissions that select it.
type ScholarAdapter struct {
	Client     *http.Client
	APIKey     string
	MaxResults int
}

// Name returns the provider tag.
func (a *ScholarAdapter) Name() string { return "scholar" }

// LenientAffiliation is true: Scholar results never carry affiliation
// strings, and the keyword is already folded into the search query.
func (a *ScholarAdapter) LenientAffiliation() bool { return true }

// Search queries the SerpAPI google_scholar engine. The date range
// degrades to year bounds (as_ylo/as_yhi), which is the finest
// granularity Scholar supports.
func (a *ScholarAdapter) Search(ctx context.Context, variant string, hints types.Hints) ([]types.CanonicalRecord, error) {
	if a.APIKey == "" {
		return nil, nil
	}

	q := variant
	if kw := strings.TrimSpace(hints.AffiliationKeyword); kw != "" {
		q = fmt.Sprintf("%s %q", variant, kw)
	}

	maxResults := hints.MaxResults
	if maxResults <= 0 {
		maxResults = a.MaxResults
	}
	if maxResults <= 0 {
		maxResults = 20
	}

	params := url.Values{
		"engine":  {"google_scholar"},
		"q":       {q},
		"num":     {fmt.Sprintf("%d", maxResults)},
		"api_key": {a.APIKey},
	}
	if len(hints.DateRange.Start) >= 4 {
		params.Set("as_ylo", hints.DateRange.Start[:4])
	}
	if len(hints.DateRange.End) >= 4 {
		params.Set("as_yhi", hints.DateRange.End[:4])
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, serpAPIBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := httputil.DoWithRetry(ctx, a.Client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("SerpAPI request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("SerpAPI returned HTTP %d", resp.StatusCode)
	}

	var sr serpResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("parsing SerpAPI response: %w", err)
	}

	var records []types.CanonicalRecord
	for _, res := range sr.OrganicResults {
		rec := types.CanonicalRecord{
			Title:    strings.TrimSpace(res.Title),
			Venue:    res.PublicationInfo.Summary,
			URL:      strings.TrimSpace(res.Link),
			Provider: a.Name(),
		}
		if res.ResultID != "" {
			rec.ExternalIDs = map[string]string{"scholar": res.ResultID}
		}
		for _, author := range res.PublicationInfo.Authors {
			if author.Name != "" {
				rec.Authors = append(rec.Authors, author.Name)
			}
		}
		// Best-effort year from the summary text, e.g.
		// "J Smith - Nature, 2021 - nature.com".
		if m := yearPattern.FindString(res.PublicationInfo.Summary); m != "" {
			rec.Year, _ = strconv.Atoi(m)
		}

		records = append(records, rec)
	}
	return records, nil
}

// SerpAPI JSON structures.
type serpResponse struct {
	OrganicResults []serpResult `json:"organic_results"`
}

type serpResult struct {
	ResultID        string       `json:"result_id"`
	Title           string       `json:"title"`
	Link            string       `json:"link"`
	PublicationInfo serpPubInfo  `json:"publication_info"`
}

type serpPubInfo struct {
	Summary string       `json:"summary"`
	Authors []serpAuthor `json:"authors"`
}

type serpAuthor struct {
	Name string `json:"name"`
}
