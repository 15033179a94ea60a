// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/Liang-Chaoyue/PaperFinder/internal/httputil"
	"github.com/Liang-Chaoyue/PaperFinder/internal/names"
	"github.com/Liang-Chaoyue/PaperFinder/pkg/types"
)

// crossrefAPIBase is the Crossref Works search endpoint. Declared as a
// var so tests can substitute an httptest server.
var crossrefAPIBase = "https://api.crossref.org/works"

// CrossrefAdapter queries the Crossref REST API.
type CrossrefAdapter struct {
	Client *http.Client
	// Mailto is the contact address Crossref asks polite clients to send.
	Mailto     string
	UserAgent  string
	MaxResults int
}

// Name returns the provider tag.
func (a *CrossrefAdapter) Name() string { return "crossref" }

// LenientAffiliation is true: the affiliation keyword is already sent as
// query.affiliation, and Crossref omits affiliations from many records,
// so their absence says nothing.
func (a *CrossrefAdapter) LenientAffiliation() bool { return true }

// Search queries Crossref with query.author set to the name variant.
// Because query.author is a loose match, the adapter filters results
// against hints.NameVariants locally before returning.
func (a *CrossrefAdapter) Search(ctx context.Context, variant string, hints types.Hints) ([]types.CanonicalRecord, error) {
	maxResults := hints.MaxResults
	if maxResults <= 0 {
		maxResults = a.MaxResults
	}
	if maxResults <= 0 {
		maxResults = 20
	}

	params := url.Values{
		"query.author": {variant},
		"rows":         {fmt.Sprintf("%d", maxResults)},
	}
	if a.Mailto != "" {
		params.Set("mailto", a.Mailto)
	}
	if kw := strings.TrimSpace(hints.AffiliationKeyword); kw != "" {
		params.Set("query.affiliation", kw)
	}

	var filters []string
	if hints.DateRange.Start != "" {
		filters = append(filters, "from-pub-date:"+hints.DateRange.Start)
	}
	if hints.DateRange.End != "" {
		filters = append(filters, "until-pub-date:"+hints.DateRange.End)
	}
	if len(filters) > 0 {
		params.Set("filter", strings.Join(filters, ","))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, crossrefAPIBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	userAgent := a.UserAgent
	if a.Mailto != "" {
		userAgent = fmt.Sprintf("%s (mailto:%s)", a.UserAgent, a.Mailto)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := httputil.DoWithRetry(ctx, a.Client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("Crossref API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Crossref API returned HTTP %d", resp.StatusCode)
	}

	var cr crossrefResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return nil, fmt.Errorf("parsing Crossref response: %w", err)
	}

	var records []types.CanonicalRecord
	for _, work := range cr.Message.Items {
		rec := types.CanonicalRecord{
			Title:    strings.Join(work.Title, " "),
			DOI:      strings.ToLower(work.DOI),
			URL:      work.URL,
			Provider: a.Name(),
		}
		if len(work.ContainerTitle) > 0 {
			rec.Venue = work.ContainerTitle[0]
		}
		if work.DOI != "" {
			rec.ExternalIDs = map[string]string{"crossref": work.DOI}
		}
		rec.Year, rec.Month = crossrefDate(work)

		for _, author := range work.Author {
			name := strings.TrimSpace(strings.TrimSpace(author.Given) + " " + strings.TrimSpace(author.Family))
			if name != "" {
				rec.Authors = append(rec.Authors, name)
			}
			for _, aff := range author.Affiliation {
				if aff.Name != "" {
					rec.Affiliations = append(rec.Affiliations, aff.Name)
				}
			}
		}

		if len(hints.NameVariants) > 0 && !variantHit(rec.Authors, hints.NameVariants) {
			continue
		}

		records = append(records, rec)
	}
	return records, nil
}

// variantHit reports whether any author, compacted, overlaps a variant
// token by substring in either direction. Crossref's query.author recall
// is loose enough that this local backstop is required.
func variantHit(authors []string, variantTokens []string) bool {
	for _, author := range authors {
		key := names.CompactToken(author)
		if key == "" {
			continue
		}
		for _, tok := range variantTokens {
			if strings.Contains(key, tok) || strings.Contains(tok, key) {
				return true
			}
		}
	}
	return false
}

// crossrefDate pulls (year, month) from published-print, falling back to
// issued. Missing parts come back as 0.
func crossrefDate(work crossrefWork) (year, month int) {
	parts := work.PublishedPrint.DateParts
	if len(parts) == 0 || len(parts[0]) == 0 {
		parts = work.Issued.DateParts
	}
	if len(parts) == 0 || len(parts[0]) == 0 {
		return 0, 0
	}
	year = parts[0][0]
	if len(parts[0]) > 1 {
		month = parts[0][1]
	}
	return year, month
}

// Crossref API JSON structures.
type crossrefResponse struct {
	Message crossrefMessage `json:"message"`
}

type crossrefMessage struct {
	Items []crossrefWork `json:"items"`
}

type crossrefWork struct {
	Title          []string          `json:"title"`
	DOI            string            `json:"DOI"`
	URL            string            `json:"URL"`
	ContainerTitle []string          `json:"container-title"`
	Author         []crossrefAuthor  `json:"author"`
	PublishedPrint crossrefDateField `json:"published-print"`
	Issued         crossrefDateField `json:"issued"`
}

type crossrefAuthor struct {
	Given       string               `json:"given"`
	Family      string               `json:"family"`
	Affiliation []crossrefAffiliation `json:"affiliation"`
}

type crossrefAffiliation struct {
	Name string `json:"name"`
}

type crossrefDateField struct {
	DateParts [][]int `json:"date-parts"`
}
