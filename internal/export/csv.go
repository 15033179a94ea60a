// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package export serializes stored papers for downstream consumption.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/Liang-Chaoyue/PaperFinder/pkg/types"
)

// Header is the fixed CSV column set. Every column is always populated
// with a defined value; unknown year and month render as empty strings.
var Header = []string{"Title", "Authors", "Venue", "Year", "Month", "Provider", "DOI", "URL"}

// WriteCSV writes the papers as CSV with Header to w.
func WriteCSV(w io.Writer, papers []types.StoredPaper) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("writing CSV header: %w", err)
	}
	for _, p := range papers {
		row := []string{
			p.Title,
			strings.Join(p.Authors, ", "),
			p.Venue,
			numOrEmpty(p.Year),
			numOrEmpty(p.Month),
			p.Provider,
			p.DOI,
			p.URL,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing CSV row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func numOrEmpty(n int) string {
	if n == 0 {
		return ""
	}
	return strconv.Itoa(n)
}
