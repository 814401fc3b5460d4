// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package batch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sc2knet/sc2kpatch/lib/bsdiff"
	"github.com/sc2knet/sc2kpatch/lib/clock"
	"github.com/sc2knet/sc2kpatch/lib/digest"
	"github.com/sc2knet/sc2kpatch/lib/patchgate"
	"github.com/sc2knet/sc2kpatch/lib/streamcodec"
)

func namedJobs(names ...string) []patchgate.Job {
	jobs := make([]patchgate.Job, len(names))
	for i, name := range names {
		jobs[i] = patchgate.Job{Name: name, Source: "/game/" + name}
	}
	return jobs
}

func TestRunKeepsJobOrderAndWorkerLimit(t *testing.T) {
	var active, peak atomic.Int32
	runner := &Runner{
		Workers: 2,
		run: func(_ context.Context, job patchgate.Job) (*patchgate.Result, error) {
			current := active.Add(1)
			defer active.Add(-1)
			for {
				previous := peak.Load()
				if current <= previous || peak.CompareAndSwap(previous, current) {
					break
				}
			}
			// Earlier jobs take longer so completion order is reversed.
			delay := map[string]time.Duration{"A": 30, "B": 20, "C": 10, "D": 1}[job.Name]
			time.Sleep(delay * time.Millisecond)
			return &patchgate.Result{Status: patchgate.StatusPatched}, nil
		},
	}

	report := runner.Run(context.Background(), namedJobs("A", "B", "C", "D"))
	for i, want := range []string{"A", "B", "C", "D"} {
		if report.Results[i].Name != want {
			t.Errorf("result %d is %s, want %s", i, report.Results[i].Name, want)
		}
		if report.Results[i].Status != StatusPatched {
			t.Errorf("result %d status = %s", i, report.Results[i].Status)
		}
	}
	if peak.Load() > 2 {
		t.Errorf("%d jobs ran at once, limit is 2", peak.Load())
	}
	if !report.OK() {
		t.Error("report should be OK")
	}
}

func TestRunFailureDoesNotStopOthers(t *testing.T) {
	runner := &Runner{
		Workers: 1,
		run: func(_ context.Context, job patchgate.Job) (*patchgate.Result, error) {
			if job.Name == "2KCLIENT.EXE" {
				return nil, &bsdiff.CorruptPatchError{Stream: bsdiff.StreamDiff, Reason: "stream exhausted"}
			}
			return &patchgate.Result{Status: patchgate.StatusAlreadyPatched}, nil
		},
	}

	report := runner.Run(context.Background(), namedJobs("WINSCURK.EXE", "2KCLIENT.EXE", "2KSERVER.EXE"))
	want := []Status{StatusAlreadyPatched, StatusFailed, StatusAlreadyPatched}
	for i, status := range want {
		if report.Results[i].Status != status {
			t.Errorf("result %d status = %s, want %s", i, report.Results[i].Status, status)
		}
	}
	if report.OK() {
		t.Error("report with a failure should not be OK")
	}
	if !errors.Is(report.Err(), bsdiff.ErrCorrupt) {
		t.Errorf("Err() = %v, want ErrCorrupt", report.Err())
	}
	if report.Count(StatusAlreadyPatched) != 2 {
		t.Errorf("Count(already_patched) = %d, want 2", report.Count(StatusAlreadyPatched))
	}
}

func TestRunReportsDuration(t *testing.T) {
	fake := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	runner := &Runner{
		Workers: 1,
		Clock:   fake,
		run: func(_ context.Context, job patchgate.Job) (*patchgate.Result, error) {
			fake.Advance(map[string]time.Duration{"2KCLIENT.EXE": 2 * time.Second, "2KSERVER.EXE": 5 * time.Second}[job.Name])
			return &patchgate.Result{Status: patchgate.StatusPatched}, nil
		},
	}

	report := runner.Run(context.Background(), namedJobs("2KCLIENT.EXE", "2KSERVER.EXE"))
	if report.Results[0].Duration != 2*time.Second || report.Results[1].Duration != 5*time.Second {
		t.Errorf("durations = %v, %v, want 2s, 5s", report.Results[0].Duration, report.Results[1].Duration)
	}
}

func TestRunCancelSkipsUnstartedJobs(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var started atomic.Int32
	runner := &Runner{
		Workers: 1,
		run: func(_ context.Context, job patchgate.Job) (*patchgate.Result, error) {
			started.Add(1)
			cancel()
			return &patchgate.Result{Status: patchgate.StatusPatched}, nil
		},
	}

	report := runner.Run(ctx, namedJobs("USARES.DLL", "USAHORES.DLL", "MAXHELP.EXE"))
	if started.Load() != 1 {
		t.Errorf("%d jobs started, want 1", started.Load())
	}
	if report.Results[0].Status != StatusPatched {
		t.Errorf("first job status = %s, want committed result kept", report.Results[0].Status)
	}
	for _, result := range report.Results[1:] {
		if result.Status != StatusSkipped {
			t.Errorf("%s status = %s, want %s", result.Name, result.Status, StatusSkipped)
		}
		if !errors.Is(result.Err, context.Canceled) {
			t.Errorf("%s Err = %v, want context.Canceled", result.Name, result.Err)
		}
	}
}

func TestRunLogsValidationDetail(t *testing.T) {
	var buffer bytes.Buffer
	expected := digest.Sum(digest.MD5, []byte("expected"))
	actual := digest.Sum(digest.MD5, []byte("actual"))
	runner := &Runner{
		Logger: slog.New(slog.NewJSONHandler(&buffer, nil)),
		run: func(context.Context, patchgate.Job) (*patchgate.Result, error) {
			return nil, &patchgate.ValidationError{Phase: patchgate.PhaseSource, Expected: expected, Actual: actual}
		},
	}

	report := runner.Run(context.Background(), namedJobs("WINSCURK.EXE"))
	result := report.Results[0]
	if result.Phase != "source" {
		t.Errorf("Phase = %q, want source", result.Phase)
	}
	if result.Hint != "wrong or already-modified input file" {
		t.Errorf("Hint = %q", result.Hint)
	}
	for _, want := range []string{`"msg":"job failed"`, `"phase":"source"`, expected.String(), actual.String()} {
		if !strings.Contains(buffer.String(), want) {
			t.Errorf("log output missing %s:\n%s", want, buffer.String())
		}
	}
}

// writeGame creates files in a temporary game directory and returns
// jobs that append a three-byte trailer to each one.
func writeGame(t *testing.T, names ...string) (string, []patchgate.Job) {
	t.Helper()
	directory := t.TempDir()
	var jobs []patchgate.Job
	for i, name := range names {
		old := []byte(fmt.Sprintf("original contents of %s", name))
		if err := os.WriteFile(filepath.Join(directory, name), old, 0644); err != nil {
			t.Fatal(err)
		}

		control, err := bsdiff.AppendTriple(nil, bsdiff.Triple{Add: int64(len(old)), Insert: 3})
		if err != nil {
			t.Fatal(err)
		}
		trailer := []byte{'v', '1', byte('0' + i)}
		container := &bsdiff.Container{
			Control: control,
			Diff:    make([]byte, len(old)),
			Extra:   trailer,
			NewSize: int64(len(old) + 3),
		}
		raw, err := bsdiff.Marshal(container, streamcodec.Codec{Tag: streamcodec.Raw})
		if err != nil {
			t.Fatal(err)
		}
		jobs = append(jobs, patchgate.Job{
			Name:   name,
			Source: filepath.Join(directory, name),
			Patch:  patchgate.ContainerPatch{Raw: raw, Decompressor: streamcodec.Codec{Tag: streamcodec.Raw}},
			Digests: patchgate.DigestPair{
				Source: digest.Sum(digest.MD5, old),
				Target: digest.Sum(digest.MD5, slices.Concat(old, trailer)),
			},
		})
	}
	return directory, jobs
}

func TestRunAndVerifyEndToEnd(t *testing.T) {
	directory, jobs := writeGame(t, "WINSCURK.EXE", "2KCLIENT.EXE", "2KSERVER.EXE", "USARES.DLL")

	// 2KCLIENT.EXE is some other release.
	if err := os.WriteFile(filepath.Join(directory, "2KCLIENT.EXE"), []byte("another release"), 0644); err != nil {
		t.Fatal(err)
	}

	runner := &Runner{Workers: 3}
	report := runner.Run(context.Background(), jobs[:3])
	want := []Status{StatusPatched, StatusFailed, StatusPatched}
	for i, status := range want {
		if report.Results[i].Status != status {
			t.Errorf("%s status = %s, want %s (%v)", report.Results[i].Name, report.Results[i].Status, status, report.Results[i].Err)
		}
	}
	if !errors.Is(report.Results[1].Err, patchgate.ErrValidation) {
		t.Errorf("2KCLIENT.EXE Err = %v, want ErrValidation", report.Results[1].Err)
	}

	if err := os.Remove(filepath.Join(directory, "2KSERVER.EXE")); err != nil {
		t.Fatal(err)
	}

	results, err := runner.Verify(context.Background(), jobs)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	wantVerify := []VerifyStatus{VerifyOK, VerifyUnknown, VerifyMissing, VerifyUnpatched}
	for i, status := range wantVerify {
		if results[i].Status != status {
			t.Errorf("%s verify status = %s, want %s", results[i].Name, results[i].Status, status)
		}
	}
	if results[0].Digest != jobs[0].Digests.Target.String() {
		t.Errorf("ok digest = %s, want %s", results[0].Digest, jobs[0].Digests.Target)
	}
}

func TestVerifyCancelled(t *testing.T) {
	_, jobs := writeGame(t, "MAXHELP.EXE")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := (&Runner{}).Verify(ctx, jobs); !errors.Is(err, context.Canceled) {
		t.Fatalf("Verify error = %v, want context.Canceled", err)
	}
}
