// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package batch parses bulk name rosters: free text, CSV, XLSX, and YAML.
// Each roster row becomes one independent search job downstream.
package batch

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"go.yaml.in/yaml/v3"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"
)

// Entry is one roster row. Name is required; everything else optional.
type Entry struct {
	Name        string `yaml:"name"`
	Pinyin      string `yaml:"pinyin,omitempty"`
	Affiliation string `yaml:"affiliation,omitempty"`
	StartDate   string `yaml:"start_date,omitempty"`
	EndDate     string `yaml:"end_date,omitempty"`
}

// Defaults fills roster fields a row left blank.
type Defaults struct {
	Affiliation string
	StartDate   string
	EndDate     string
}

// ParseText reads "name[, pinyin[, affiliation]]" lines. Blank lines and
// rows without a name are dropped.
func ParseText(s string) []Entry {
	var entries []Entry
	for _, raw := range strings.Split(s, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, ",", 3)
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		e := Entry{Name: parts[0]}
		if len(parts) > 1 {
			e.Pinyin = parts[1]
		}
		if len(parts) > 2 {
			e.Affiliation = parts[2]
		}
		if e.Name != "" {
			entries = append(entries, e)
		}
	}
	return entries
}

// csv column headers recognized, lowercased.
const (
	colName        = "name"
	colPinyin      = "pinyin"
	colAffiliation = "affiliation"
	colStartDate   = "start_date"
	colEndDate     = "end_date"
)

// ParseCSV reads a roster CSV with a header row. The byte stream is
// decoded as UTF-8 (with or without BOM), falling back to GBK — rosters
// exported from Chinese-locale spreadsheets commonly arrive in GBK.
func ParseCSV(r io.Reader) ([]Entry, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading CSV: %w", err)
	}
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})
	if !utf8.Valid(data) {
		decoded, _, err := transform.Bytes(simplifiedchinese.GBK.NewDecoder(), data)
		if err != nil {
			return nil, fmt.Errorf("decoding CSV: not UTF-8 and not GBK: %w", err)
		}
		data = decoded
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing CSV: %w", err)
	}
	return fromRows(rows), nil
}

// ParseXLSX reads the first sheet of an Excel workbook with a header row.
func ParseXLSX(r io.Reader) ([]Entry, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("reading sheet %s: %w", sheets[0], err)
	}
	return fromRows(rows), nil
}

// ParseYAML reads a YAML roster: a sequence of entries.
func ParseYAML(data []byte) ([]Entry, error) {
	var entries []Entry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing YAML roster: %w", err)
	}
	var out []Entry
	for _, e := range entries {
		e.Name = strings.TrimSpace(e.Name)
		if e.Name != "" {
			out = append(out, e)
		}
	}
	return out, nil
}

// ParseFile dispatches on the file extension: .xlsx/.xlsm, .yaml/.yml,
// anything else is treated as CSV.
func ParseFile(name string, r io.Reader) ([]Entry, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		return ParseXLSX(r)
	case ".yaml", ".yml":
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("reading YAML roster: %w", err)
		}
		return ParseYAML(data)
	default:
		return ParseCSV(r)
	}
}

// ApplyDefaults fills blank fields from d and returns the entries.
func ApplyDefaults(entries []Entry, d Defaults) []Entry {
	for i := range entries {
		if entries[i].Affiliation == "" {
			entries[i].Affiliation = d.Affiliation
		}
		if entries[i].StartDate == "" {
			entries[i].StartDate = d.StartDate
		}
		if entries[i].EndDate == "" {
			entries[i].EndDate = d.EndDate
		}
	}
	return entries
}

// Dedupe drops duplicate (name, pinyin, affiliation) rows, first-seen
// wins.
func Dedupe(entries []Entry) []Entry {
	type key struct{ name, pinyin, affiliation string }
	seen := make(map[key]struct{}, len(entries))
	var out []Entry
	for _, e := range entries {
		k := key{e.Name, e.Pinyin, e.Affiliation}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, e)
	}
	return out
}

// fromRows maps header-indexed rows onto entries. Unknown columns are
// ignored; rows without a name are dropped.
func fromRows(rows [][]string) []Entry {
	if len(rows) == 0 {
		return nil
	}

	idx := make(map[string]int, len(rows[0]))
	for i, h := range rows[0] {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	get := func(row []string, col string) string {
		i, ok := idx[col]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var entries []Entry
	for _, row := range rows[1:] {
		e := Entry{
			Name:        get(row, colName),
			Pinyin:      get(row, colPinyin),
			Affiliation: get(row, colAffiliation),
			StartDate:   get(row, colStartDate),
			EndDate:     get(row, colEndDate),
		}
		if e.Name != "" {
			entries = append(entries, e)
		}
	}
	return entries
}
