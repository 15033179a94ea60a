// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package queue runs search jobs deferred: submissions go to an
// in-process worker pool and execute asynchronously with bounded retries.
// Workers parallelize across jobs only; each job's own loop stays
// sequential.
package queue

import (
	"context"
	"fmt"
	"io"
	"math"
	"sync"
	"time"

	"github.com/Liang-Chaoyue/PaperFinder/pkg/types"
)

// Params carries one deferred job submission.
type Params struct {
	JobID    string
	Identity types.PersonalIdentity
	Hints    types.Hints
}

// JobFunc executes one job to completion. Both the queue and the inline
// path share the same entrypoint.
type JobFunc func(ctx context.Context, p Params) error

// FailFunc marks a job failed after the retry budget is spent.
type FailFunc func(ctx context.Context, jobID string, cause error)

// Queue is a fixed-size worker pool with whole-job retry. Retrying a job
// re-runs units that already completed, which is safe because the upsert
// is idempotent under the dedup key.
type Queue struct {
	run         JobFunc
	fail        FailFunc
	cfg         types.QueueConfig
	diag        io.Writer
	tasks       chan Params
	wg          sync.WaitGroup
	cancel      context.CancelFunc
	startOnce   sync.Once
	stopOnce    sync.Once
}

// New builds a queue over run. fail may be nil; diag defaults to
// io.Discard.
func New(cfg types.QueueConfig, run JobFunc, fail FailFunc, diag io.Writer) *Queue {
	if diag == nil {
		diag = io.Discard
	}
	if fail == nil {
		fail = func(context.Context, string, error) {}
	}
	return &Queue{
		run:   run,
		fail:  fail,
		cfg:   cfg,
		diag:  diag,
		tasks: make(chan Params, 64),
	}
}

// Start launches the worker pool. Safe to call once.
func (q *Queue) Start() {
	q.startOnce.Do(func() {
		ctx, cancel := context.WithCancel(context.Background())
		q.cancel = cancel
		for i := 0; i < q.cfg.Workers; i++ {
			q.wg.Add(1)
			go q.worker(ctx)
		}
	})
}

// Stop closes the intake and waits for in-flight jobs to finish.
func (q *Queue) Stop() {
	q.stopOnce.Do(func() {
		close(q.tasks)
		q.wg.Wait()
		if q.cancel != nil {
			q.cancel()
		}
	})
}

// Submit enqueues one job for deferred execution. Blocks only when the
// intake buffer is full.
func (q *Queue) Submit(p Params) {
	q.tasks <- p
}

func (q *Queue) worker(ctx context.Context) {
	defer q.wg.Done()
	for p := range q.tasks {
		q.execute(ctx, p)
	}
}

// execute runs one job with bounded attempts and exponential backoff
// between them. After the last failed attempt the job is handed to the
// fail callback.
func (q *Queue) execute(ctx context.Context, p Params) {
	var lastErr error
	for attempt := 0; attempt < q.cfg.MaxAttempts; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * q.cfg.RetryBaseDelay
			fmt.Fprintf(q.diag, "job %s: retry %d/%d in %v\n", p.JobID, attempt, q.cfg.MaxAttempts-1, backoff)
			select {
			case <-ctx.Done():
				q.fail(context.Background(), p.JobID, ctx.Err())
				return
			case <-time.After(backoff):
			}
		}

		lastErr = q.run(ctx, p)
		if lastErr == nil {
			return
		}
		fmt.Fprintf(q.diag, "job %s: attempt %d failed: %v\n", p.JobID, attempt+1, lastErr)
	}

	// Fresh context: the worker's context may already be cancelled and
	// the terminal write must still land.
	q.fail(context.Background(), p.JobID, lastErr)
}
