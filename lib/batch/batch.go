// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package batch runs independent patch jobs in parallel and reports
// one result per job.
//
// Jobs never share mutable state, so the only coordination is a bound
// on how many run at once. A failed job does not stop the others.
// Cancelling the context stops jobs that have not started; jobs that
// already committed stay committed, since there is no cross-file
// rollback.
package batch

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sc2knet/sc2kpatch/lib/clock"
	"github.com/sc2knet/sc2kpatch/lib/patchgate"
)

// Status is the outcome of one job.
type Status string

const (
	StatusPatched        Status = "patched"
	StatusAlreadyPatched Status = "already_patched"
	StatusFailed         Status = "failed"
	StatusSkipped        Status = "skipped"
)

// Result is the outcome of one job. Err is set for failed and skipped
// jobs.
type Result struct {
	Name     string        `json:"name"`
	Path     string        `json:"path"`
	Status   Status        `json:"status"`
	Digest   string        `json:"digest,omitempty"`
	Phase    string        `json:"phase,omitempty"`
	Error    string        `json:"error,omitempty"`
	Hint     string        `json:"hint,omitempty"`
	Duration time.Duration `json:"duration"`
	Err      error         `json:"-"`
}

// Report holds results in job order.
type Report struct {
	Results []Result `json:"results"`
}

// OK reports whether every job patched or was already patched.
func (r Report) OK() bool {
	for _, result := range r.Results {
		if result.Status == StatusFailed || result.Status == StatusSkipped {
			return false
		}
	}
	return true
}

// Count returns the number of results with status.
func (r Report) Count(status Status) int {
	count := 0
	for _, result := range r.Results {
		if result.Status == status {
			count++
		}
	}
	return count
}

// Err joins the errors of all failed and skipped jobs.
func (r Report) Err() error {
	var errs []error
	for _, result := range r.Results {
		if result.Err != nil {
			errs = append(errs, result.Err)
		}
	}
	return errors.Join(errs...)
}

// Runner executes jobs with bounded parallelism.
type Runner struct {
	// Workers bounds concurrent jobs. Zero or less means GOMAXPROCS.
	Workers int

	// Logger receives one line per job. Nil discards.
	Logger *slog.Logger

	// Clock times each job. Nil means the real clock.
	Clock clock.Clock

	// run executes one job. Tests replace it.
	run func(context.Context, patchgate.Job) (*patchgate.Result, error)
}

func (r *Runner) workers() int {
	if r.Workers > 0 {
		return r.Workers
	}
	return runtime.GOMAXPROCS(0)
}

func (r *Runner) timeSource() clock.Clock {
	if r.Clock != nil {
		return r.Clock
	}
	return clock.Real()
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.New(slog.DiscardHandler)
}

// Run executes every job and returns their results in job order,
// regardless of completion order.
func (r *Runner) Run(ctx context.Context, jobs []patchgate.Job) Report {
	run := r.run
	if run == nil {
		run = patchgate.Run
	}
	logger := r.logger()
	timer := r.timeSource()
	results := make([]Result, len(jobs))

	// A plain group: one job's failure must not cancel its siblings.
	var group errgroup.Group
	group.SetLimit(r.workers())
	for i, job := range jobs {
		group.Go(func() error {
			results[i] = execute(ctx, run, job, logger, timer)
			return nil
		})
	}
	group.Wait()
	return Report{Results: results}
}

func execute(ctx context.Context, run func(context.Context, patchgate.Job) (*patchgate.Result, error), job patchgate.Job, logger *slog.Logger, timer clock.Clock) Result {
	result := Result{Name: job.Name, Path: job.Target()}
	if err := ctx.Err(); err != nil {
		result.Status = StatusSkipped
		result.Err = err
		result.Error = err.Error()
		logger.Warn("job skipped", "file", job.Name, "error", err)
		return result
	}

	start := timer.Now()
	outcome, err := run(ctx, job)
	result.Duration = clock.Since(timer, start)

	switch {
	case err == nil:
		result.Digest = outcome.Digest.String()
		if outcome.Status == patchgate.StatusAlreadyPatched {
			result.Status = StatusAlreadyPatched
		} else {
			result.Status = StatusPatched
		}
		logger.Info("job finished",
			"file", job.Name,
			"status", result.Status,
			"digest", result.Digest,
			"duration", result.Duration,
		)

	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		result.Status = StatusSkipped
		result.Err = err
		result.Error = err.Error()
		logger.Warn("job cancelled", "file", job.Name, "error", err)

	default:
		result.Status = StatusFailed
		result.Err = err
		result.Error = err.Error()
		attributes := []any{"file", job.Name, "error", err, "duration", result.Duration}
		var validation *patchgate.ValidationError
		if errors.As(err, &validation) {
			result.Phase = string(validation.Phase)
			result.Hint = validation.Hint()
			attributes = append(attributes,
				"phase", validation.Phase,
				"expected", validation.Expected.String(),
				"actual", validation.Actual.String(),
			)
		}
		logger.Error("job failed", attributes...)
	}
	return result
}
