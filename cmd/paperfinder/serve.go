// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Liang-Chaoyue/PaperFinder/internal/job"
	"github.com/Liang-Chaoyue/PaperFinder/internal/provider"
	"github.com/Liang-Chaoyue/PaperFinder/internal/queue"
	"github.com/Liang-Chaoyue/PaperFinder/internal/server"
	"github.com/Liang-Chaoyue/PaperFinder/internal/store"
	"github.com/Liang-Chaoyue/PaperFinder/pkg/types"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	Long: `Serve runs the HTTP API: job submission (single and batch roster upload),
progress polling, paper curation, and CSV export. Jobs execute on the
in-process worker pool. SIGINT or SIGTERM drains in-flight requests and
running jobs before exiting.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default :8080)")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := appConfig(cmd)
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.Server.Addr = addr
	}

	st, err := store.Open(cfg.Store)
	if err != nil {
		return err
	}
	defer st.Close()

	runner := job.NewRunner(st, provider.NewRegistry(cfg.Search), cfg.Search, os.Stderr)
	q := queue.New(cfg.Queue,
		func(ctx context.Context, p queue.Params) error {
			return runner.Run(ctx, p.JobID, p.Identity, p.Hints)
		},
		func(ctx context.Context, jobID string, cause error) {
			fmt.Fprintf(os.Stderr, "job %s: %v\n", jobID, cause)
			st.SetStatus(ctx, jobID, types.JobFailed)
		},
		os.Stderr)
	q.Start()

	srv := server.New(st, runner, q, cfg)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()
	fmt.Fprintf(os.Stderr, "Listening on %s\n", cfg.Server.Addr)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		q.Stop()
		return err
	case sig := <-sigCh:
		fmt.Fprintf(os.Stderr, "Received %v, shutting down\n", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Shutdown: %v\n", err)
	}
	q.Stop()
	return nil
}
