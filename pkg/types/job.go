// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// JobStatus is the lifecycle state of a search job.
type JobStatus string

const (
	JobRunning JobStatus = "running"
	JobDone    JobStatus = "done"
	JobFailed  JobStatus = "failed"
)

// DateRange bounds a search by publication date. Both ends are optional
// ISO dates (YYYY-MM-DD).
type DateRange struct {
	Start string `json:"start,omitempty" yaml:"start,omitempty"`
	End   string `json:"end,omitempty" yaml:"end,omitempty"`
}

// Hints is the frozen query payload carried by a search job and handed to
// every provider adapter. It is serialized into the job record at
// submission time and never mutated afterwards.
type Hints struct {
	// Providers names the adapters selected for this job.
	Providers []string `json:"providers" yaml:"providers"`

	// QueryName is the canonical personal name being searched.
	QueryName string `json:"query_name" yaml:"query_name"`

	// Pinyin is the optional transliteration override.
	Pinyin string `json:"pinyin,omitempty" yaml:"pinyin,omitempty"`

	// AffiliationKeyword constrains matches to records whose affiliation
	// strings contain it. Empty means no constraint.
	AffiliationKeyword string `json:"aff_kw,omitempty" yaml:"aff_kw,omitempty"`

	// DateRange bounds publication dates.
	DateRange DateRange `json:"date_range" yaml:"date_range"`

	// NameVariants holds the compact tokens of every generated variant,
	// for adapters that can filter authors server-side or locally before
	// returning (e.g. Crossref).
	NameVariants []string `json:"name_variants,omitempty" yaml:"name_variants,omitempty"`

	// MaxResults caps the per-request result count, 0 for the adapter
	// default.
	MaxResults int `json:"max_results,omitempty" yaml:"max_results,omitempty"`
}

// SearchJob tracks one cross-product search over (variant × provider)
// units. Status and progress are written only by the job's own
// orchestration loop.
type SearchJob struct {
	// JobID is a 16-hex-character identifier.
	JobID string `json:"job_id" yaml:"job_id"`

	// Hints is the frozen query payload.
	Hints Hints `json:"hints" yaml:"hints"`

	// Status is running, done, or failed.
	Status JobStatus `json:"status" yaml:"status"`

	// Progress is the completed fraction of search units, in [0, 1],
	// monotonically non-decreasing.
	Progress float64 `json:"progress" yaml:"progress"`

	// CreatedAt is the submission time.
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`

	// PaperTotal and PaperConfirmed are per-job result counts filled in
	// by listing queries; they are not stored on the job row.
	PaperTotal     int `json:"paper_total,omitempty" yaml:"paper_total,omitempty"`
	PaperConfirmed int `json:"paper_confirmed,omitempty" yaml:"paper_confirmed,omitempty"`
}
