// Package batchcheck runs independent propagator checks concurrently
// (spec §5: "callers may run independent checks on independent graphs in
// parallel threads, but no shared mutable state exists in the propagator
// core"). Each Job owns its own Graph exclusively; this package only
// fans the calls out and collects results, mirroring one Check call per
// goroutine with no synchronization inside the propagators themselves.
//
// Grounded on the teacher's internal/parallel.WorkerPool in shape only
// (bounded concurrent fan-out over independent units of work); the
// pool's own machinery (dynamic resizing, backpressure, work-stealing)
// answers a harder problem than this one — a fixed, known-size batch of
// run-to-completion jobs — for which golang.org/x/sync/errgroup's
// bounded Group is the idiomatic replacement the rest of the example
// pack (aws-karpenter-provider-aws) reaches for instead.
package batchcheck

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Job is one independent check to run: a name for reporting and the
// closure that performs it against its own exclusively-owned Graph.
type Job[T any] struct {
	Name string
	Run  func(ctx context.Context) (T, error)
}

// Outcome pairs a Job's name with its result or error.
type Outcome[T any] struct {
	Name   string
	Result T
	Err    error
}

// RunAll runs every job, at most concurrency at a time (0 means
// unbounded), and returns one Outcome per job in the same order jobs
// were given. A job's own error is carried on its Outcome, not returned
// from RunAll: one job failing never cancels or skips the others.
func RunAll[T any](ctx context.Context, jobs []Job[T], concurrency int) []Outcome[T] {
	outcomes := make([]Outcome[T], len(jobs))
	var g errgroup.Group
	if concurrency > 0 {
		g.SetLimit(concurrency)
	}
	for i, job := range jobs {
		i, job := i, job
		g.Go(func() error {
			res, err := job.Run(ctx)
			outcomes[i] = Outcome[T]{Name: job.Name, Result: res, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}
