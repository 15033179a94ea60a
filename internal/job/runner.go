// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package job drives the (variant × provider) cross-product search for
// one submission: generate variants once, walk every pair sequentially,
// filter, upsert, and account progress on the job record.
package job

import (
	"context"
	"fmt"
	"io"
	"math"

	"golang.org/x/time/rate"

	"github.com/Liang-Chaoyue/PaperFinder/internal/match"
	"github.com/Liang-Chaoyue/PaperFinder/internal/names"
	"github.com/Liang-Chaoyue/PaperFinder/internal/provider"
	"github.com/Liang-Chaoyue/PaperFinder/internal/store"
	"github.com/Liang-Chaoyue/PaperFinder/pkg/types"
)

// selectPriority is the highest variant tier searched; tier 3 forms are
// generated but never queried.
const selectPriority = 2

// Runner executes search jobs against a store and an adapter registry.
// One Runner is shared by the inline path and the queue workers; each
// call to Run is an independent sequential loop.
type Runner struct {
	Store    *store.Store
	Registry provider.Registry
	Cfg      types.SearchConfig

	// Diag receives human-readable per-unit diagnostics. Defaults to
	// io.Discard.
	Diag io.Writer
}

// NewRunner returns a Runner writing diagnostics to diag.
func NewRunner(st *store.Store, reg provider.Registry, cfg types.SearchConfig, diag io.Writer) *Runner {
	if diag == nil {
		diag = io.Discard
	}
	return &Runner{Store: st, Registry: reg, Cfg: cfg, Diag: diag}
}

// Run executes one job to completion: strictly sequential over variants
// (outer) and providers (inner). A fault from a single adapter call
// degrades to an empty result for that unit; progress is written after
// every unit so pollers observe monotonic movement; the terminal status
// is done. Zero units terminates as done trivially.
//
// An error return means a job-level fault (a failed store write, or a
// cancelled context): the loop stops and the caller decides whether to
// retry or mark the job failed.
func (r *Runner) Run(ctx context.Context, jobID string, identity types.PersonalIdentity, hints types.Hints) error {
	variants := names.Generate(identity.Name, identity.Pinyin)
	selected := names.Select(variants, selectPriority, r.Cfg.MaxVariants)
	hints.NameVariants = names.MatchTokens(variants)

	adapters := r.selectAdapters(hints.Providers)
	total := len(selected) * len(adapters)
	fmt.Fprintf(r.Diag, "job %s: %d variants × %d providers = %d units\n",
		jobID, len(selected), len(adapters), total)

	// Fixed-rate throttle between units, deliberately not adaptive.
	limiter := rate.NewLimiter(rate.Every(r.Cfg.UnitPause), 1)

	done := 0
	for _, variant := range selected {
		for _, adapter := range adapters {
			records, err := adapter.Search(ctx, variant, hints)
			if err != nil {
				// Per-unit fault isolation: degrade to empty, never
				// abort the job.
				fmt.Fprintf(r.Diag, "job %s: %s(%q) failed: %v\n", jobID, adapter.Name(), variant, err)
				records = nil
			}

			kept := records[:0]
			for _, rec := range records {
				if match.Keep(rec, hints.NameVariants, hints.AffiliationKeyword, adapter.LenientAffiliation()) {
					kept = append(kept, rec)
				}
			}

			summary, err := r.Store.UpsertBatch(ctx, jobID, kept)
			if err != nil {
				return fmt.Errorf("job %s: %w", jobID, err)
			}
			if summary.Total() > 0 {
				fmt.Fprintf(r.Diag, "job %s: %s(%q): %d created, %d updated\n",
					jobID, adapter.Name(), variant, summary.Created, summary.Updated)
			}

			done++
			if err := r.Store.UpdateProgress(ctx, jobID, roundProgress(done, total)); err != nil {
				return fmt.Errorf("job %s: %w", jobID, err)
			}

			if err := limiter.Wait(ctx); err != nil {
				return fmt.Errorf("job %s: %w", jobID, err)
			}
		}
	}

	if err := r.Store.SetStatus(ctx, jobID, types.JobDone); err != nil {
		return fmt.Errorf("job %s: %w", jobID, err)
	}
	fmt.Fprintf(r.Diag, "job %s: done\n", jobID)
	return nil
}

// selectAdapters resolves the hint's provider tags against the registry,
// keeping submission order and dropping unknown tags.
func (r *Runner) selectAdapters(tags []string) []provider.Adapter {
	var out []provider.Adapter
	for _, tag := range tags {
		if a, ok := r.Registry[tag]; ok {
			out = append(out, a)
		}
	}
	return out
}

// roundProgress returns done/total rounded to three decimals, 0 when
// total is 0.
func roundProgress(done, total int) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(done)/float64(total)*1000) / 1000
}
