// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Liang-Chaoyue/PaperFinder/internal/export"
	"github.com/Liang-Chaoyue/PaperFinder/internal/store"
	"github.com/Liang-Chaoyue/PaperFinder/pkg/types"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export stored papers as CSV",
	Long: `Export writes papers from the catalog as CSV, to --out or stdout.
Filter with --job to a single job's papers and --state to a curation label
(usually confirmed).`,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().String("job", "", "restrict to one job's papers")
	exportCmd.Flags().String("state", "", "restrict to a curation state: pending, confirmed, rejected")
	exportCmd.Flags().String("out", "", "output file (default: stdout)")

	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg := appConfig(cmd)
	st, err := store.Open(cfg.Store)
	if err != nil {
		return err
	}
	defer st.Close()

	jobID, _ := cmd.Flags().GetString("job")
	state, _ := cmd.Flags().GetString("state")
	papers, err := st.ListPapers(context.Background(), store.PaperFilter{
		JobID: jobID,
		State: types.CurationState(state),
	})
	if err != nil {
		return err
	}

	out := os.Stdout
	outPath, _ := cmd.Flags().GetString("out")
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("creating %s: %w", outPath, err)
		}
		defer f.Close()
		out = f
	}

	if err := export.WriteCSV(out, papers); err != nil {
		return err
	}
	if outPath != "" {
		fmt.Fprintf(os.Stderr, "Exported %d paper(s) to %s\n", len(papers), outPath)
	}
	return nil
}
