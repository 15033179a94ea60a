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

const sampleArxivAtom = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <entry>
    <id>http://arxiv.org/abs/2301.07041v1</id>
    <title>Scaling Laws for Widgets</title>
    <published>2023-01-17T12:00:00Z</published>
    <updated>2023-01-18T12:00:00Z</updated>
    <link href="http://arxiv.org/abs/2301.07041v1" rel="alternate" type="text/html"/>
    <link href="http://arxiv.org/pdf/2301.07041v1" rel="related" type="application/pdf" title="pdf"/>
    <author>
      <name>Xi Zhang</name>
      <affiliation>Tsinghua University</affiliation>
    </author>
    <author>
      <name>Wei Wang</name>
    </author>
  </entry>
  <entry>
    <id>http://arxiv.org/abs/1901.00001v2</id>
    <title>Older Widget Paper</title>
    <published>2019-01-02T00:00:00Z</published>
    <updated>2019-02-01T00:00:00Z</updated>
    <author><name>Xi Zhang</name></author>
  </entry>
</feed>`

func withArxivBase(t *testing.T, url string) {
	t.Helper()
	old := arxivAPIBase
	arxivAPIBase = url
	t.Cleanup(func() { arxivAPIBase = old })
}

func arxivTestServer(body string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/atom+xml")
		fmt.Fprint(w, body)
	}))
}

func TestArxivSearch(t *testing.T) {
	ts := arxivTestServer(sampleArxivAtom)
	defer ts.Close()
	withArxivBase(t, ts.URL)

	a := &ArxivAdapter{Client: ts.Client()}
	records, err := a.Search(context.Background(), "Xi Zhang", types.Hints{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("len(records) = %d, want 2", len(records))
	}

	r0 := records[0]
	if r0.Title != "Scaling Laws for Widgets" {
		t.Errorf("Title = %q", r0.Title)
	}
	if r0.Venue != "arXiv" {
		t.Errorf("Venue = %q, want arXiv", r0.Venue)
	}
	if r0.Year != 2023 || r0.Month != 1 {
		t.Errorf("Year/Month = %d/%d, want 2023/1", r0.Year, r0.Month)
	}
	if r0.URL != "http://arxiv.org/abs/2301.07041v1" {
		t.Errorf("URL = %q", r0.URL)
	}
	if r0.PDFURL != "http://arxiv.org/pdf/2301.07041v1" {
		t.Errorf("PDFURL = %q", r0.PDFURL)
	}
	if len(r0.Authors) != 2 || r0.Authors[0] != "Xi Zhang" {
		t.Errorf("Authors = %v", r0.Authors)
	}
	if len(r0.Affiliations) != 1 || r0.Affiliations[0] != "Tsinghua University" {
		t.Errorf("Affiliations = %v", r0.Affiliations)
	}
	if r0.ExternalIDs["arxiv"] != "2301.07041v1" {
		t.Errorf("ExternalIDs = %v", r0.ExternalIDs)
	}
	if r0.DOI != "" {
		t.Errorf("DOI = %q, arXiv entries carry none", r0.DOI)
	}
}

// The date range is applied locally because the arXiv query language has
// no submission-date range operator.
func TestArxivLocalDateFilter(t *testing.T) {
	ts := arxivTestServer(sampleArxivAtom)
	defer ts.Close()
	withArxivBase(t, ts.URL)

	a := &ArxivAdapter{Client: ts.Client()}

	hints := types.Hints{DateRange: types.DateRange{Start: "2020-01-01"}}
	records, err := a.Search(context.Background(), "Xi Zhang", hints)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(records) != 1 || records[0].Title != "Scaling Laws for Widgets" {
		t.Errorf("records = %+v, want only the 2023 entry", records)
	}

	hints = types.Hints{DateRange: types.DateRange{End: "2020-01-01"}}
	records, err = a.Search(context.Background(), "Xi Zhang", hints)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(records) != 1 || records[0].Title != "Older Widget Paper" {
		t.Errorf("records = %+v, want only the 2019 entry", records)
	}
}

func TestArxivQuery(t *testing.T) {
	var gotQuery string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("search_query")
		fmt.Fprint(w, `<feed xmlns="http://www.w3.org/2005/Atom"></feed>`)
	}))
	defer ts.Close()
	withArxivBase(t, ts.URL)

	a := &ArxivAdapter{Client: ts.Client()}
	hints := types.Hints{AffiliationKeyword: "tsinghua"}
	if _, err := a.Search(context.Background(), "Zhang San", hints); err != nil {
		t.Fatalf("Search: %v", err)
	}

	if !strings.Contains(gotQuery, `au:"Zhang San"`) {
		t.Errorf("search_query = %q, want quoted au: constraint", gotQuery)
	}
	if !strings.Contains(gotQuery, `all:"tsinghua"`) {
		t.Errorf("search_query = %q, want all: keyword constraint", gotQuery)
	}
}

func TestArxivHTTPError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer ts.Close()
	withArxivBase(t, ts.URL)

	a := &ArxivAdapter{Client: ts.Client()}
	_, err := a.Search(context.Background(), "Zhang San", types.Hints{})
	if err == nil || !strings.Contains(err.Error(), "HTTP 503") {
		t.Errorf("err = %v, want HTTP 503", err)
	}
}

func TestParseISODate(t *testing.T) {
	tests := []struct {
		in     string
		wantOK bool
	}{
		{"2023-01-17T12:00:00Z", true},
		{"2023-01-17", true},
		{"", false},
		{"garbage", false},
		{"2023-13-99T00:00:00Z", false},
	}
	for _, tt := range tests {
		if _, ok := parseISODate(tt.in); ok != tt.wantOK {
			t.Errorf("parseISODate(%q) ok = %v, want %v", tt.in, ok, tt.wantOK)
		}
	}
}

func TestArxivIDFromURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"http://arxiv.org/abs/2301.07041v1", "2301.07041v1"},
		{"", ""},
		{"no-slashes", "no-slashes"},
	}
	for _, tt := range tests {
		if got := arxivIDFromURL(tt.in); got != tt.want {
			t.Errorf("arxivIDFromURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
