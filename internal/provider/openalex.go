// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/Liang-Chaoyue/PaperFinder/pkg/types"
)

// openAlexAPIBase is the OpenAlex Works search endpoint. Declared as a
// var so tests can substitute an httptest server.
var openAlexAPIBase = "https://api.openalex.org/works"

// OpenAlexAdapter queries the OpenAlex Works API.
type OpenAlexAdapter struct {
	Client *http.Client
	// Email is sent as the mailto parameter for polite pool access.
	Email      string
	UserAgent  string
	MaxResults int
}

// Name returns the provider tag.
func (a *OpenAlexAdapter) Name() string { return "openalex" }

// LenientAffiliation is false: OpenAlex exposes institutions per
// authorship, so a record without any is treated as not matching the
// affiliation keyword.
func (a *OpenAlexAdapter) LenientAffiliation() bool { return false }

// Search queries OpenAlex for the given name variant. The affiliation
// keyword joins the full-text search string for recall; the strict
// filtering happens in the matcher.
func (a *OpenAlexAdapter) Search(ctx context.Context, variant string, hints types.Hints) ([]types.CanonicalRecord, error) {
	search := variant
	if kw := strings.TrimSpace(hints.AffiliationKeyword); kw != "" {
		search = variant + " " + kw
	}

	maxResults := hints.MaxResults
	if maxResults <= 0 {
		maxResults = a.MaxResults
	}
	if maxResults <= 0 {
		maxResults = 25
	}

	params := url.Values{
		"search":   {search},
		"per_page": {fmt.Sprintf("%d", maxResults)},
	}
	if hints.DateRange.Start != "" {
		params.Set("from_publication_date", hints.DateRange.Start)
	}
	if hints.DateRange.End != "" {
		params.Set("to_publication_date", hints.DateRange.End)
	}
	if a.Email != "" {
		params.Set("mailto", a.Email)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, openAlexAPIBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", a.UserAgent)

	resp, err := a.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("OpenAlex API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("OpenAlex API returned HTTP %d", resp.StatusCode)
	}

	var oar openAlexResponse
	if err := json.NewDecoder(resp.Body).Decode(&oar); err != nil {
		return nil, fmt.Errorf("parsing OpenAlex response: %w", err)
	}

	var records []types.CanonicalRecord
	for _, work := range oar.Results {
		rec := types.CanonicalRecord{
			Title:    work.Title,
			Year:     work.PublicationYear,
			Venue:    work.HostVenue.DisplayName,
			URL:      work.PrimaryLocation.LandingPageURL,
			PDFURL:   work.PrimaryLocation.PDFURL,
			Provider: a.Name(),
		}
		if rec.URL == "" {
			rec.URL = work.PrimaryLocation.Source.URL
		}
		if work.ID != "" {
			rec.ExternalIDs = map[string]string{"openalex": work.ID}
		}
		if work.DOI != "" {
			rec.DOI = strings.TrimPrefix(strings.TrimPrefix(work.DOI, "https://doi.org/"), "http://doi.org/")
		}
		// publication_date is YYYY-MM-DD; a malformed value just leaves
		// the month unset.
		if len(work.PublicationDate) >= 7 {
			fmt.Sscanf(work.PublicationDate[5:7], "%d", &rec.Month)
		}

		for _, authorship := range work.Authorships {
			if name := authorship.Author.DisplayName; name != "" {
				rec.Authors = append(rec.Authors, name)
			}
			for _, inst := range authorship.Institutions {
				if inst.DisplayName != "" {
					rec.Affiliations = append(rec.Affiliations, inst.DisplayName)
				}
			}
		}

		records = append(records, rec)
	}
	return records, nil
}

// OpenAlex API JSON structures.
type openAlexResponse struct {
	Results []openAlexWork `json:"results"`
}

type openAlexWork struct {
	ID              string               `json:"id"`
	Title           string               `json:"title"`
	DOI             string               `json:"doi"`
	PublicationDate string               `json:"publication_date"`
	PublicationYear int                  `json:"publication_year"`
	Authorships     []openAlexAuthorship `json:"authorships"`
	HostVenue       openAlexVenue        `json:"host_venue"`
	PrimaryLocation openAlexLocation     `json:"primary_location"`
}

type openAlexAuthorship struct {
	Author       openAlexAuthor  `json:"author"`
	Institutions []openAlexVenue `json:"institutions"`
}

type openAlexAuthor struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type openAlexVenue struct {
	DisplayName string `json:"display_name"`
}

type openAlexLocation struct {
	LandingPageURL string         `json:"landing_page_url"`
	PDFURL         string         `json:"pdf_url"`
	Source         openAlexSource `json:"source"`
}

type openAlexSource struct {
	DisplayName string `json:"display_name"`
	URL         string `json:"url"`
}
