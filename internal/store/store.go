// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists search jobs and deduplicated papers in SQLite.
// It is the only resource shared across concurrently running jobs; every
// mutation of a stored paper goes through the per-record upsert unit.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/Liang-Chaoyue/PaperFinder/pkg/types"
)

// Store manages the paperfinder SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at cfg.Path and bootstraps the
// schema.
func Open(cfg types.StoreConfig) (*Store, error) {
	if dir := filepath.Dir(cfg.Path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", cfg.Path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS jobs (
			job_id TEXT PRIMARY KEY,
			hints TEXT NOT NULL DEFAULT '{}',
			status TEXT NOT NULL DEFAULT 'running',
			progress REAL NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS papers (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			title TEXT NOT NULL DEFAULT '',
			title_token TEXT NOT NULL DEFAULT '',
			year INTEGER NOT NULL DEFAULT 0,
			month INTEGER NOT NULL DEFAULT 0,
			venue TEXT NOT NULL DEFAULT '',
			doi TEXT UNIQUE,
			url TEXT NOT NULL DEFAULT '',
			pdf_url TEXT NOT NULL DEFAULT '',
			provider TEXT NOT NULL DEFAULT '',
			authors TEXT NOT NULL DEFAULT '[]',
			affiliations TEXT NOT NULL DEFAULT '[]',
			ext_ids TEXT NOT NULL DEFAULT '{}',
			state TEXT NOT NULL DEFAULT 'pending',
			last_job TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_papers_fallback_key
			ON papers(title_token, year, provider) WHERE doi IS NULL`,
		`CREATE INDEX IF NOT EXISTS idx_papers_last_job ON papers(last_job)`,
		`CREATE INDEX IF NOT EXISTS idx_papers_state ON papers(state)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// CreateJob inserts a new job record with status running and zero
// progress.
func (s *Store) CreateJob(ctx context.Context, jobID string, hints types.Hints) error {
	payload, err := json.Marshal(hints)
	if err != nil {
		return fmt.Errorf("encoding hints: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO jobs (job_id, hints, status, progress, created_at) VALUES (?, ?, ?, 0, ?)`,
		jobID, string(payload), string(types.JobRunning), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting job %s: %w", jobID, err)
	}
	return nil
}

// GetJob loads one job record with its paper counts attached.
func (s *Store) GetJob(ctx context.Context, jobID string) (types.SearchJob, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT j.job_id, j.hints, j.status, j.progress, j.created_at,
			COUNT(p.id),
			COALESCE(SUM(CASE WHEN p.state = 'confirmed' THEN 1 ELSE 0 END), 0)
		 FROM jobs j
		 LEFT JOIN papers p ON p.last_job = j.job_id
		 WHERE j.job_id = ?
		 GROUP BY j.job_id`, jobID)
	return scanJobWithCounts(row)
}

// ListJobs returns the most recent jobs, newest first, with per-job paper
// totals and confirmed counts attached.
func (s *Store) ListJobs(ctx context.Context, limit int) ([]types.SearchJob, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT j.job_id, j.hints, j.status, j.progress, j.created_at,
			COUNT(p.id),
			COALESCE(SUM(CASE WHEN p.state = 'confirmed' THEN 1 ELSE 0 END), 0)
		 FROM jobs j
		 LEFT JOIN papers p ON p.last_job = j.job_id
		 GROUP BY j.job_id
		 ORDER BY j.created_at DESC, j.job_id DESC
		 LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing jobs: %w", err)
	}
	defer rows.Close()

	var jobs []types.SearchJob
	for rows.Next() {
		job, err := scanJobWithCounts(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// UpdateProgress writes the completed fraction for a job. Progress is
// only ever written by the job's own loop, so no read is needed.
func (s *Store) UpdateProgress(ctx context.Context, jobID string, progress float64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET progress = ? WHERE job_id = ?`, progress, jobID)
	if err != nil {
		return fmt.Errorf("updating progress for job %s: %w", jobID, err)
	}
	return nil
}

// SetStatus writes a job's terminal status.
func (s *Store) SetStatus(ctx context.Context, jobID string, status types.JobStatus) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET status = ? WHERE job_id = ?`, string(status), jobID)
	if err != nil {
		return fmt.Errorf("updating status for job %s: %w", jobID, err)
	}
	return nil
}

// PaperFilter narrows ListPapers. Zero values mean no constraint.
type PaperFilter struct {
	JobID    string
	State    types.CurationState
	Provider string
	TitleQ   string
	YearFrom int
	YearTo   int
	Limit    int
}

// ListPapers returns stored papers matching the filter, newest
// publications first.
func (s *Store) ListPapers(ctx context.Context, f PaperFilter) ([]types.StoredPaper, error) {
	query := `SELECT id, title, year, month, venue, doi, url, pdf_url, provider,
		authors, affiliations, ext_ids, state, last_job, created_at FROM papers WHERE 1=1`
	var args []any
	if f.JobID != "" {
		query += ` AND last_job = ?`
		args = append(args, f.JobID)
	}
	if f.State != "" {
		query += ` AND state = ?`
		args = append(args, string(f.State))
	}
	if f.Provider != "" {
		query += ` AND provider = ?`
		args = append(args, f.Provider)
	}
	if f.TitleQ != "" {
		query += ` AND title LIKE ?`
		args = append(args, "%"+f.TitleQ+"%")
	}
	if f.YearFrom > 0 {
		query += ` AND year >= ?`
		args = append(args, f.YearFrom)
	}
	if f.YearTo > 0 {
		query += ` AND year <= ?`
		args = append(args, f.YearTo)
	}
	query += ` ORDER BY year DESC, month DESC, title ASC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing papers: %w", err)
	}
	defer rows.Close()

	var papers []types.StoredPaper
	for rows.Next() {
		p, err := scanPaper(rows)
		if err != nil {
			return nil, err
		}
		papers = append(papers, p)
	}
	return papers, rows.Err()
}

// GetPaper loads one stored paper by id.
func (s *Store) GetPaper(ctx context.Context, id int64) (types.StoredPaper, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, title, year, month, venue, doi, url, pdf_url, provider,
			authors, affiliations, ext_ids, state, last_job, created_at FROM papers WHERE id = ?`, id)
	return scanPaper(row)
}

// SetState writes the reviewer curation label on a paper. This is the
// only code path that mutates state; the search pipeline never does.
func (s *Store) SetState(ctx context.Context, id int64, state types.CurationState) error {
	if !types.ValidState(state) {
		return fmt.Errorf("invalid curation state %q", state)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE papers SET state = ? WHERE id = ?`, string(state), id)
	if err != nil {
		return fmt.Errorf("updating state for paper %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("paper %d not found", id)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJobWithCounts(row rowScanner) (types.SearchJob, error) {
	var (
		job      types.SearchJob
		hintsRaw string
		created  string
	)
	err := row.Scan(&job.JobID, &hintsRaw, &job.Status, &job.Progress, &created,
		&job.PaperTotal, &job.PaperConfirmed)
	if err != nil {
		if err == sql.ErrNoRows {
			return job, fmt.Errorf("job not found: %w", err)
		}
		return job, fmt.Errorf("scanning job: %w", err)
	}
	json.Unmarshal([]byte(hintsRaw), &job.Hints)
	job.CreatedAt, _ = time.Parse(time.RFC3339, created)
	return job, nil
}

func scanPaper(row rowScanner) (types.StoredPaper, error) {
	var (
		p            types.StoredPaper
		doi          sql.NullString
		authors      string
		affiliations string
		extIDs       string
		created      string
	)
	err := row.Scan(&p.ID, &p.Title, &p.Year, &p.Month, &p.Venue, &doi, &p.URL, &p.PDFURL,
		&p.Provider, &authors, &affiliations, &extIDs, &p.State, &p.LastJobID, &created)
	if err != nil {
		if err == sql.ErrNoRows {
			return p, fmt.Errorf("paper not found: %w", err)
		}
		return p, fmt.Errorf("scanning paper: %w", err)
	}
	p.DOI = doi.String
	json.Unmarshal([]byte(authors), &p.Authors)
	json.Unmarshal([]byte(affiliations), &p.Affiliations)
	json.Unmarshal([]byte(extIDs), &p.ExternalIDs)
	p.CreatedAt, _ = time.Parse(time.RFC3339, created)
	return p, nil
}
