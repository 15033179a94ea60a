// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/Liang-Chaoyue/PaperFinder/internal/names"
	"github.com/Liang-Chaoyue/PaperFinder/pkg/types"
)

// NormalizeDOI strips resolver URL prefixes and lowercases a DOI. Empty
// input stays empty.
func NormalizeDOI(doi string) string {
	d := strings.TrimSpace(doi)
	d = strings.TrimPrefix(d, "https://doi.org/")
	d = strings.TrimPrefix(d, "http://doi.org/")
	return strings.ToLower(d)
}

// DedupKey identifies "the same publication" across sources: the
// normalized DOI when present, otherwise (title token, year, provider).
func DedupKey(rec types.CanonicalRecord) string {
	if doi := NormalizeDOI(rec.DOI); doi != "" {
		return "doi:" + doi
	}
	return fmt.Sprintf("tyv:%s|%d|%s", names.CompactToken(rec.Title), rec.Year, rec.Provider)
}

// DedupeBatch drops in-batch duplicates under DedupKey, first-seen wins.
func DedupeBatch(records []types.CanonicalRecord) []types.CanonicalRecord {
	seen := make(map[string]struct{}, len(records))
	var out []types.CanonicalRecord
	for _, rec := range records {
		key := DedupKey(rec)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, rec)
	}
	return out
}

// UpsertSummary counts the outcome of one batch upsert. The counts are
// diagnostic; nothing downstream depends on them.
type UpsertSummary struct {
	Created int
	Updated int
}

// Total returns creates plus updates.
func (u UpsertSummary) Total() int { return u.Created + u.Updated }

// UpsertBatch dedupes the batch and merges each surviving record into the
// store under jobID. Each record is its own atomic unit: a failure on one
// record leaves earlier records applied, which is acceptable because a
// whole-job retry re-runs to the same keys idempotently.
func (s *Store) UpsertBatch(ctx context.Context, jobID string, records []types.CanonicalRecord) (UpsertSummary, error) {
	var summary UpsertSummary
	for _, rec := range DedupeBatch(records) {
		created, err := s.upsertOne(ctx, jobID, rec)
		if err != nil {
			return summary, fmt.Errorf("upserting %q: %w", rec.Title, err)
		}
		if created {
			summary.Created++
		} else {
			summary.Updated++
		}
	}
	return summary, nil
}

// upsertOne merges one record inside a single transaction. Lookup order:
// normalized DOI; then the (title token, year, provider) fallback key;
// then (title token, year) against any provider, so a DOI-less copy of an
// already-stored paper merges instead of duplicating. Updates overwrite
// descriptive fields and last_job but never curation state.
func (s *Store) upsertOne(ctx context.Context, jobID string, rec types.CanonicalRecord) (created bool, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	doi := NormalizeDOI(rec.DOI)
	titleToken := names.CompactToken(rec.Title)

	var id int64
	switch {
	case doi != "":
		err = tx.QueryRowContext(ctx, `SELECT id FROM papers WHERE doi = ?`, doi).Scan(&id)
	default:
		err = tx.QueryRowContext(ctx,
			`SELECT id FROM papers WHERE doi IS NULL AND title_token = ? AND year = ? AND provider = ?`,
			titleToken, rec.Year, rec.Provider).Scan(&id)
		if err == sql.ErrNoRows && titleToken != "" {
			// Cross-provider title merge: prefer a DOI-bearing row.
			err = tx.QueryRowContext(ctx,
				`SELECT id FROM papers WHERE title_token = ? AND year = ? ORDER BY (doi IS NULL) ASC LIMIT 1`,
				titleToken, rec.Year).Scan(&id)
		}
	}

	switch {
	case err == nil:
		if err := updatePaper(ctx, tx, id, jobID, rec, titleToken); err != nil {
			return false, err
		}
	case err == sql.ErrNoRows:
		if err := insertPaper(ctx, tx, jobID, rec, doi, titleToken); err != nil {
			// A concurrent job may have inserted the same key between
			// our lookup and insert; fall back to read-modify-write
			// once before propagating.
			if !isConstraintErr(err) {
				return false, err
			}
			if id, lookupErr := lookupExisting(ctx, tx, doi, titleToken, rec); lookupErr == nil {
				if err := updatePaper(ctx, tx, id, jobID, rec, titleToken); err != nil {
					return false, err
				}
				return false, tx.Commit()
			}
			return false, err
		}
		created = true
	default:
		return false, fmt.Errorf("looking up paper: %w", err)
	}

	return created, tx.Commit()
}

func updatePaper(ctx context.Context, tx *sql.Tx, id int64, jobID string, rec types.CanonicalRecord, titleToken string) error {
	authors, _ := json.Marshal(rec.Authors)
	affiliations, _ := json.Marshal(rec.Affiliations)
	extIDs, _ := json.Marshal(rec.ExternalIDs)
	_, err := tx.ExecContext(ctx,
		`UPDATE papers SET title = ?, title_token = ?, year = ?, month = ?, venue = ?,
			url = ?, pdf_url = ?, provider = ?, authors = ?, affiliations = ?, ext_ids = ?, last_job = ?
		 WHERE id = ?`,
		rec.Title, titleToken, rec.Year, rec.Month, rec.Venue,
		rec.URL, rec.PDFURL, rec.Provider, string(authors), string(affiliations), string(extIDs), jobID,
		id)
	if err != nil {
		return fmt.Errorf("updating paper %d: %w", id, err)
	}
	return nil
}

func insertPaper(ctx context.Context, tx *sql.Tx, jobID string, rec types.CanonicalRecord, doi, titleToken string) error {
	authors, _ := json.Marshal(rec.Authors)
	affiliations, _ := json.Marshal(rec.Affiliations)
	extIDs, _ := json.Marshal(rec.ExternalIDs)
	var doiVal any
	if doi != "" {
		doiVal = doi
	}
	_, err := tx.ExecContext(ctx,
		`INSERT INTO papers (title, title_token, year, month, venue, doi, url, pdf_url,
			provider, authors, affiliations, ext_ids, state, last_job, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Title, titleToken, rec.Year, rec.Month, rec.Venue, doiVal, rec.URL, rec.PDFURL,
		rec.Provider, string(authors), string(affiliations), string(extIDs),
		string(types.StatePending), jobID, time.Now().UTC().Format(time.RFC3339))
	return err
}

func lookupExisting(ctx context.Context, tx *sql.Tx, doi, titleToken string, rec types.CanonicalRecord) (int64, error) {
	var id int64
	if doi != "" {
		err := tx.QueryRowContext(ctx, `SELECT id FROM papers WHERE doi = ?`, doi).Scan(&id)
		return id, err
	}
	err := tx.QueryRowContext(ctx,
		`SELECT id FROM papers WHERE doi IS NULL AND title_token = ? AND year = ? AND provider = ?`,
		titleToken, rec.Year, rec.Provider).Scan(&id)
	return id, err
}

func isConstraintErr(err error) bool {
	var serr sqlite3.Error
	return errors.As(err, &serr) && serr.Code == sqlite3.ErrConstraint
}
