// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Liang-Chaoyue/PaperFinder/internal/batch"
	"github.com/Liang-Chaoyue/PaperFinder/internal/job"
	"github.com/Liang-Chaoyue/PaperFinder/internal/provider"
	"github.com/Liang-Chaoyue/PaperFinder/internal/queue"
	"github.com/Liang-Chaoyue/PaperFinder/internal/server"
	"github.com/Liang-Chaoyue/PaperFinder/internal/store"
	"github.com/Liang-Chaoyue/PaperFinder/pkg/types"
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Submit publication searches for one researcher or a roster",
	Long: `Search submits one job per researcher identity. A single identity comes
from --name (plus optional --pinyin, --affiliation, --from, --to); a roster
comes from --batch-file (CSV, XLSX, or YAML). Jobs run inline with --sync,
or through the worker pool otherwise; either way the command waits for all
jobs to finish and prints their ids and terminal status.`,
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().String("name", "", "researcher name (CJK or Latin)")
	searchCmd.Flags().String("pinyin", "", "romanization override for a CJK name")
	searchCmd.Flags().String("affiliation", "", "affiliation keyword candidates must match")
	searchCmd.Flags().String("from", "", "publication date range start (YYYY-MM-DD)")
	searchCmd.Flags().String("to", "", "publication date range end (YYYY-MM-DD)")
	searchCmd.Flags().StringSlice("providers", nil, "providers to query (default: config)")
	searchCmd.Flags().String("batch-file", "", "roster file with one identity per row (CSV, XLSX, or YAML)")
	searchCmd.Flags().Bool("sync", false, "run jobs inline instead of through the worker pool")

	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	name, _ := cmd.Flags().GetString("name")
	batchFile, _ := cmd.Flags().GetString("batch-file")
	if name == "" && batchFile == "" {
		return fmt.Errorf("provide --name or --batch-file")
	}

	entries, err := searchEntries(cmd, name, batchFile)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return fmt.Errorf("no identities in %s", batchFile)
	}

	cfg := appConfig(cmd)
	providers, _ := cmd.Flags().GetStringSlice("providers")
	if len(providers) == 0 {
		providers = cfg.Search.Providers
	}
	sync, _ := cmd.Flags().GetBool("sync")

	st, err := store.Open(cfg.Store)
	if err != nil {
		return err
	}
	defer st.Close()

	runner := job.NewRunner(st, provider.NewRegistry(cfg.Search), cfg.Search, os.Stderr)

	ctx := context.Background()
	type submitted struct {
		jobID string
		name  string
	}
	var jobs []submitted

	var q *queue.Queue
	if !sync {
		q = queue.New(cfg.Queue,
			func(ctx context.Context, p queue.Params) error {
				return runner.Run(ctx, p.JobID, p.Identity, p.Hints)
			},
			func(ctx context.Context, jobID string, cause error) {
				fmt.Fprintf(os.Stderr, "job %s: %v\n", jobID, cause)
				st.SetStatus(ctx, jobID, types.JobFailed)
			},
			os.Stderr)
		q.Start()
	}

	for _, e := range entries {
		identity := types.PersonalIdentity{
			Name:        e.Name,
			Pinyin:      e.Pinyin,
			Affiliation: e.Affiliation,
			DateRange:   types.DateRange{Start: e.StartDate, End: e.EndDate},
		}
		hints := types.Hints{
			Providers:          providers,
			QueryName:          identity.Name,
			Pinyin:             identity.Pinyin,
			AffiliationKeyword: identity.Affiliation,
			DateRange:          identity.DateRange,
			MaxResults:         cfg.Search.MaxResults,
		}

		jobID := server.NewJobID()
		if err := st.CreateJob(ctx, jobID, hints); err != nil {
			return err
		}
		jobs = append(jobs, submitted{jobID: jobID, name: identity.Name})

		if sync {
			if err := runner.Run(ctx, jobID, identity, hints); err != nil {
				fmt.Fprintf(os.Stderr, "job %s: %v\n", jobID, err)
				st.SetStatus(ctx, jobID, types.JobFailed)
			}
		} else {
			q.Submit(queue.Params{JobID: jobID, Identity: identity, Hints: hints})
		}
	}

	if q != nil {
		q.Stop()
	}

	failed := 0
	for _, s := range jobs {
		j, err := st.GetJob(ctx, s.jobID)
		if err != nil {
			return err
		}
		if j.Status == types.JobFailed {
			failed++
		}
		fmt.Printf("%s  %-8s  %4d papers  %s\n", j.JobID, j.Status, j.PaperTotal, s.name)
	}
	if failed > 0 {
		return fmt.Errorf("%d job(s) failed", failed)
	}
	return nil
}

// searchEntries resolves the roster: a single flag-built identity, a
// batch file, or both.
func searchEntries(cmd *cobra.Command, name, batchFile string) ([]batch.Entry, error) {
	var entries []batch.Entry

	if name != "" {
		pinyin, _ := cmd.Flags().GetString("pinyin")
		affiliation, _ := cmd.Flags().GetString("affiliation")
		from, _ := cmd.Flags().GetString("from")
		to, _ := cmd.Flags().GetString("to")
		entries = append(entries, batch.Entry{
			Name:        name,
			Pinyin:      pinyin,
			Affiliation: affiliation,
			StartDate:   from,
			EndDate:     to,
		})
	}

	if batchFile != "" {
		f, err := os.Open(batchFile)
		if err != nil {
			return nil, fmt.Errorf("opening roster %s: %w", batchFile, err)
		}
		defer f.Close()
		parsed, err := batch.ParseFile(batchFile, f)
		if err != nil {
			return nil, err
		}
		affiliation, _ := cmd.Flags().GetString("affiliation")
		from, _ := cmd.Flags().GetString("from")
		to, _ := cmd.Flags().GetString("to")
		parsed = batch.ApplyDefaults(parsed, batch.Defaults{
			Affiliation: affiliation,
			StartDate:   from,
			EndDate:     to,
		})
		entries = append(entries, parsed...)
	}

	return batch.Dedupe(entries), nil
}
