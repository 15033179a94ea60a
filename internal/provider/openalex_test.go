// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Liang-Chaoyue/PaperFinder/pkg/types"
)

const sampleOpenAlexJSON = `{
  "meta": {"count": 2, "per_page": 20, "page": 1},
  "results": [
    {
      "id": "https://openalex.org/W2741809807",
      "title": "Graph Attention Networks",
      "doi": "https://doi.org/10.5555/3295222.3295349",
      "publication_date": "2017-06-12",
      "publication_year": 2017,
      "host_venue": {"display_name": "ICLR"},
      "primary_location": {
        "landing_page_url": "https://example.org/paper",
        "pdf_url": "https://example.org/paper.pdf"
      },
      "authorships": [
        {
          "author": {"id": "A1", "display_name": "Xi Zhang"},
          "institutions": [{"display_name": "Tsinghua University"}]
        },
        {
          "author": {"id": "A2", "display_name": "Wei Wang"},
          "institutions": [{"display_name": "Peking University"}]
        }
      ]
    },
    {
      "id": "https://openalex.org/W3210812345",
      "title": "No DOI Paper",
      "doi": "",
      "publication_date": "",
      "publication_year": 2018,
      "authorships": []
    }
  ]
}`

func openAlexTestServer(statusCode int, body string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		fmt.Fprint(w, body)
	}))
}

func withOpenAlexBase(t *testing.T, url string) {
	t.Helper()
	old := openAlexAPIBase
	openAlexAPIBase = url
	t.Cleanup(func() { openAlexAPIBase = old })
}

func TestOpenAlexSearch(t *testing.T) {
	ts := openAlexTestServer(http.StatusOK, sampleOpenAlexJSON)
	defer ts.Close()
	withOpenAlexBase(t, ts.URL)

	a := &OpenAlexAdapter{Client: ts.Client(), Email: "test@example.com"}
	records, err := a.Search(context.Background(), "Xi Zhang", types.Hints{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("len(records) = %d, want 2", len(records))
	}

	r0 := records[0]
	if r0.DOI != "10.5555/3295222.3295349" {
		t.Errorf("DOI = %q, want resolver prefix stripped", r0.DOI)
	}
	if r0.Title != "Graph Attention Networks" {
		t.Errorf("Title = %q", r0.Title)
	}
	if r0.Provider != "openalex" {
		t.Errorf("Provider = %q, want openalex", r0.Provider)
	}
	if r0.Year != 2017 || r0.Month != 6 {
		t.Errorf("Year/Month = %d/%d, want 2017/6", r0.Year, r0.Month)
	}
	if r0.Venue != "ICLR" {
		t.Errorf("Venue = %q, want ICLR", r0.Venue)
	}
	if r0.PDFURL != "https://example.org/paper.pdf" {
		t.Errorf("PDFURL = %q", r0.PDFURL)
	}
	if len(r0.Authors) != 2 || r0.Authors[0] != "Xi Zhang" {
		t.Errorf("Authors = %v", r0.Authors)
	}
	if len(r0.Affiliations) != 2 || r0.Affiliations[0] != "Tsinghua University" {
		t.Errorf("Affiliations = %v", r0.Affiliations)
	}
	if r0.ExternalIDs["openalex"] != "https://openalex.org/W2741809807" {
		t.Errorf("ExternalIDs = %v", r0.ExternalIDs)
	}

	// No publication_date: month stays unset.
	r1 := records[1]
	if r1.DOI != "" || r1.Year != 2018 || r1.Month != 0 {
		t.Errorf("r1 = %+v, want empty DOI, 2018, month 0", r1)
	}
}

func TestOpenAlexQueryParams(t *testing.T) {
	var got map[string]string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = map[string]string{
			"search":                r.URL.Query().Get("search"),
			"per_page":              r.URL.Query().Get("per_page"),
			"from_publication_date": r.URL.Query().Get("from_publication_date"),
			"to_publication_date":   r.URL.Query().Get("to_publication_date"),
			"mailto":                r.URL.Query().Get("mailto"),
		}
		fmt.Fprint(w, `{"results":[]}`)
	}))
	defer ts.Close()
	withOpenAlexBase(t, ts.URL)

	a := &OpenAlexAdapter{Client: ts.Client(), Email: "lab@example.com", MaxResults: 10}
	hints := types.Hints{
		AffiliationKeyword: "tsinghua",
		DateRange:          types.DateRange{Start: "2015-01-01", End: "2020-12-31"},
	}
	if _, err := a.Search(context.Background(), "Zhang San", hints); err != nil {
		t.Fatalf("Search: %v", err)
	}

	// The affiliation keyword joins the search string for recall.
	if got["search"] != "Zhang San tsinghua" {
		t.Errorf("search = %q, want variant plus keyword", got["search"])
	}
	if got["per_page"] != "10" {
		t.Errorf("per_page = %q, want 10", got["per_page"])
	}
	if got["from_publication_date"] != "2015-01-01" || got["to_publication_date"] != "2020-12-31" {
		t.Errorf("date bounds = %q..%q", got["from_publication_date"], got["to_publication_date"])
	}
	if got["mailto"] != "lab@example.com" {
		t.Errorf("mailto = %q", got["mailto"])
	}
}

func TestOpenAlexHTTPError(t *testing.T) {
	ts := openAlexTestServer(http.StatusInternalServerError, "")
	defer ts.Close()
	withOpenAlexBase(t, ts.URL)

	a := &OpenAlexAdapter{Client: ts.Client()}
	_, err := a.Search(context.Background(), "Zhang San", types.Hints{})
	if err == nil || !strings.Contains(err.Error(), "HTTP 500") {
		t.Errorf("err = %v, want HTTP 500", err)
	}
}

func TestOpenAlexMalformedJSON(t *testing.T) {
	ts := openAlexTestServer(http.StatusOK, `{not json`)
	defer ts.Close()
	withOpenAlexBase(t, ts.URL)

	a := &OpenAlexAdapter{Client: ts.Client()}
	_, err := a.Search(context.Background(), "Zhang San", types.Hints{})
	if err == nil || !strings.Contains(err.Error(), "parsing") {
		t.Errorf("err = %v, want parsing error", err)
	}
}

func TestOpenAlexPolicy(t *testing.T) {
	a := &OpenAlexAdapter{}
	if a.Name() != "openalex" {
		t.Errorf("Name() = %q", a.Name())
	}
	if a.LenientAffiliation() {
		t.Error("OpenAlex must be strict about missing affiliations")
	}
}
