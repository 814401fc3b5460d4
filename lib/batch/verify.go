// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package batch

import (
	"context"
	"errors"
	"io/fs"

	"golang.org/x/sync/errgroup"

	"github.com/sc2knet/sc2kpatch/lib/digest"
	"github.com/sc2knet/sc2kpatch/lib/patchgate"
)

// VerifyStatus classifies a file against its digest pair.
type VerifyStatus string

const (
	// VerifyOK means the file carries the target digest.
	VerifyOK VerifyStatus = "ok"

	// VerifyUnpatched means the file carries the source digest.
	VerifyUnpatched VerifyStatus = "unpatched"

	// VerifyUnknown means the file matches neither digest or could not
	// be read.
	VerifyUnknown VerifyStatus = "unknown"

	// VerifyMissing means the file does not exist.
	VerifyMissing VerifyStatus = "missing"
)

// VerifyResult is the classification of one file.
type VerifyResult struct {
	Name   string       `json:"name"`
	Path   string       `json:"path"`
	Status VerifyStatus `json:"status"`
	Digest string       `json:"digest,omitempty"`
	Error  string       `json:"error,omitempty"`
}

// Verify classifies the file each job would write, in job order.
// Nothing is modified. Unstarted checks are dropped when ctx is
// cancelled and ctx.Err() is returned.
func (r *Runner) Verify(ctx context.Context, jobs []patchgate.Job) ([]VerifyResult, error) {
	logger := r.logger()
	results := make([]VerifyResult, len(jobs))

	group, groupContext := errgroup.WithContext(ctx)
	group.SetLimit(r.workers())
	for i, job := range jobs {
		group.Go(func() error {
			if err := groupContext.Err(); err != nil {
				return err
			}
			results[i] = classify(job)
			logger.Debug("verified", "file", job.Name, "status", results[i].Status, "digest", results[i].Digest)
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func classify(job patchgate.Job) VerifyResult {
	result := VerifyResult{Name: job.Name, Path: job.Target()}
	actual, err := digest.HashFile(job.Digests.Algorithm(), result.Path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		result.Status = VerifyMissing
		return result
	case err != nil:
		result.Status = VerifyUnknown
		result.Error = err.Error()
		return result
	}

	result.Digest = actual.String()
	switch actual {
	case job.Digests.Target:
		result.Status = VerifyOK
	case job.Digests.Source:
		result.Status = VerifyUnpatched
	default:
		result.Status = VerifyUnknown
	}
	return result
}
