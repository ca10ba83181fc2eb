// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package runbatch

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/matt-FFFFFF/loop/internal/progress"
	"go.uber.org/goleak"
)

// verifyNoLeaks ignores the os/signal dispatcher, which stays alive once any
// test in the package has run a real process.
func verifyNoLeaks(t *testing.T) {
	t.Helper()

	goleak.VerifyNone(t, goleak.IgnoreAnyFunction("os/signal.loop"))
}

type fakeCmd struct {
	dir   string
	delay time.Duration
	fail  bool
	runs  atomic.Int32
}

// Run implements the Runnable interface for fakeCmd.
func (f *fakeCmd) Run(ctx context.Context) Results {
	f.runs.Add(1)

	res := &Result{
		Directory: f.dir,
		Status:    ResultStatusSuccess,
	}

	select {
	case <-time.After(f.delay):
	case <-ctx.Done():
		res.ExitCode = -1
		res.Status = ResultStatusError
		res.Error = ErrCancelled

		return Results{res}
	}

	if f.fail {
		res.ExitCode = 1
		res.Status = ResultStatusError
		res.Error = ErrCommandFailed
	}

	return Results{res}
}

// GetLabel implements the Runnable interface for fakeCmd.
func (f *fakeCmd) GetLabel() string {
	return f.dir
}

func (f *fakeCmd) ran() bool {
	return f.runs.Load() > 0
}

// recorder collects progress events.
type recorder struct {
	mu     sync.Mutex
	events []progress.Event
}

func (r *recorder) Report(e progress.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, e)
}

func (r *recorder) ofType(t progress.EventType) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var dirs []string

	for _, e := range r.events {
		if e.Type == t {
			dirs = append(dirs, e.Directory)
		}
	}

	return dirs
}
