// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"math"

	"github.com/spf13/cobra"

	"github.com/Liang-Chaoyue/PaperFinder/internal/store"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List search jobs and their progress",
	RunE:  runJobsList,
}

var jobsStatusCmd = &cobra.Command{
	Use:   "status <job-id>",
	Short: "Show one job's status, progress, and paper counts",
	Args:  cobra.ExactArgs(1),
	RunE:  runJobsStatus,
}

func init() {
	jobsCmd.Flags().Int("limit", 50, "maximum number of jobs to list")

	jobsCmd.AddCommand(jobsStatusCmd)
	rootCmd.AddCommand(jobsCmd)
}

func runJobsList(cmd *cobra.Command, args []string) error {
	cfg := appConfig(cmd)
	st, err := store.Open(cfg.Store)
	if err != nil {
		return err
	}
	defer st.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	jobs, err := st.ListJobs(context.Background(), limit)
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		fmt.Println("No jobs.")
		return nil
	}

	fmt.Printf("%-16s  %-8s  %4s  %6s  %6s  %s\n",
		"Job", "Status", "%", "Papers", "Conf", "Name")
	for _, j := range jobs {
		fmt.Printf("%-16s  %-8s  %4d  %6d  %6d  %s\n",
			j.JobID, j.Status, int(math.Round(j.Progress*100)),
			j.PaperTotal, j.PaperConfirmed, j.Hints.QueryName)
	}
	return nil
}

func runJobsStatus(cmd *cobra.Command, args []string) error {
	cfg := appConfig(cmd)
	st, err := store.Open(cfg.Store)
	if err != nil {
		return err
	}
	defer st.Close()

	j, err := st.GetJob(context.Background(), args[0])
	if err != nil {
		return err
	}

	fmt.Printf("Job:       %s\n", j.JobID)
	fmt.Printf("Name:      %s\n", j.Hints.QueryName)
	if j.Hints.AffiliationKeyword != "" {
		fmt.Printf("Affil:     %s\n", j.Hints.AffiliationKeyword)
	}
	fmt.Printf("Providers: %v\n", j.Hints.Providers)
	fmt.Printf("Status:    %s\n", j.Status)
	fmt.Printf("Progress:  %d%%\n", int(math.Round(j.Progress*100)))
	fmt.Printf("Papers:    %d (%d confirmed)\n", j.PaperTotal, j.PaperConfirmed)
	fmt.Printf("Submitted: %s\n", j.CreatedAt.Format("2006-01-02 15:04:05"))
	return nil
}
