// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Liang-Chaoyue/PaperFinder/pkg/types"
)

// arxivAPIBase is the arXiv query endpoint. Declared as a var so tests
// can substitute an httptest server.
var arxivAPIBase = "https://export.arxiv.org/api/query"

// ArxivAdapter queries the arXiv Atom API.
type ArxivAdapter struct {
	Client     *http.Client
	UserAgent  string
	MaxResults int
}

// Name returns the provider tag.
func (a *ArxivAdapter) Name() string { return "arxiv" }

// LenientAffiliation is true: arXiv has no affiliation query field, so
// the keyword is folded into the full-text constraint and records
// lacking the optional arxiv:affiliation element are not penalized.
func (a *ArxivAdapter) LenientAffiliation() bool { return true }

// Search queries arXiv with an au: author constraint, adding an all:
// full-text constraint for the affiliation keyword. The date range is
// applied locally since the query language has no range operator for
// submission dates.
func (a *ArxivAdapter) Search(ctx context.Context, variant string, hints types.Hints) ([]types.CanonicalRecord, error) {
	q := fmt.Sprintf("au:%q", variant)
	if kw := strings.TrimSpace(hints.AffiliationKeyword); kw != "" {
		q += fmt.Sprintf(" AND all:%q", kw)
	}

	maxResults := hints.MaxResults
	if maxResults <= 0 {
		maxResults = a.MaxResults
	}
	if maxResults <= 0 {
		maxResults = 20
	}

	params := url.Values{
		"search_query": {q},
		"start":        {"0"},
		"max_results":  {fmt.Sprintf("%d", maxResults)},
		"sortBy":       {"submittedDate"},
		"sortOrder":    {"descending"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, arxivAPIBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", a.UserAgent)

	resp, err := a.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("arXiv API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arXiv API returned HTTP %d", resp.StatusCode)
	}

	var feed arxivFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("parsing arXiv response: %w", err)
	}

	start, _ := parseISODate(hints.DateRange.Start)
	end, _ := parseISODate(hints.DateRange.End)

	var records []types.CanonicalRecord
	for _, entry := range feed.Entries {
		pub, ok := parseISODate(entry.Published)
		if !ok {
			pub, ok = parseISODate(entry.Updated)
		}
		if !start.IsZero() && ok && pub.Before(start) {
			continue
		}
		if !end.IsZero() && ok && pub.After(end) {
			continue
		}

		rec := types.CanonicalRecord{
			Title:    strings.TrimSpace(entry.Title),
			Venue:    "arXiv",
			URL:      strings.TrimSpace(entry.ID),
			Provider: a.Name(),
		}
		if ok {
			rec.Year = pub.Year()
			rec.Month = int(pub.Month())
		}

		for _, link := range entry.Links {
			if link.Title == "pdf" || link.Type == "application/pdf" {
				rec.PDFURL = link.Href
			}
		}

		for _, author := range entry.Authors {
			if name := strings.TrimSpace(author.Name); name != "" {
				rec.Authors = append(rec.Authors, name)
			}
			if aff := strings.TrimSpace(author.Affiliation); aff != "" {
				rec.Affiliations = append(rec.Affiliations, aff)
			}
		}

		if id := arxivIDFromURL(rec.URL); id != "" {
			rec.ExternalIDs = map[string]string{"arxiv": id}
		}

		records = append(records, rec)
	}
	return records, nil
}

// parseISODate reads the leading YYYY-MM-DD of an ISO timestamp. A
// malformed or empty value degrades to a zero time, never an error.
func parseISODate(s string) (time.Time, bool) {
	if len(s) < 10 {
		return time.Time{}, false
	}
	t, err := time.Parse("2006-01-02", s[:10])
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// arxivIDFromURL pulls the arXiv ID out of an abs URL
// ("http://arxiv.org/abs/2301.07041v1" -> "2301.07041v1").
func arxivIDFromURL(u string) string {
	if u == "" {
		return ""
	}
	return u[strings.LastIndex(u, "/")+1:]
}

// arXiv Atom feed XML structures.
type arxivFeed struct {
	Entries []arxivEntry `xml:"entry"`
}

type arxivEntry struct {
	ID        string        `xml:"id"`
	Title     string        `xml:"title"`
	Published string        `xml:"published"`
	Updated   string        `xml:"updated"`
	Links     []arxivLink   `xml:"link"`
	Authors   []arxivAuthor `xml:"author"`
}

type arxivLink struct {
	Href  string `xml:"href,attr"`
	Type  string `xml:"type,attr"`
	Title string `xml:"title,attr"`
}

type arxivAuthor struct {
	Name        string `xml:"name"`
	Affiliation string `xml:"affiliation"`
}
