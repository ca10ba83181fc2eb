// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package runbatch

import (
	"context"
	"io"
	"maps"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/matt-FFFFFF/loop/internal/ctxlog"
	"github.com/matt-FFFFFF/loop/internal/progress"
)

// DirEnvVar is set to the target directory in the environment of every command.
const DirEnvVar = "LOOP_DIR"

// Options controls how Execute runs the command.
type Options struct {
	Parallel         bool              // Run all targets concurrently
	Verbose          bool              // Print the directory before running
	Silent           bool              // Do not print exit status and output
	Out              io.Writer         // Destination for printed output, defaults to os.Stdout
	Reporter         progress.Reporter // Receives per target state transitions, may be nil
	Timeout          time.Duration     // Per target timeout, zero means none
	MaxParallel      int               // Bound on concurrent targets in parallel mode, zero means none
	FailFastParallel bool              // Cancel outstanding parallel targets after the first failure
	Env              map[string]string // Extra environment variables for every target
}

// Execute runs command in every target directory.
//
// Sequentially, targets run in order and the first failure stops the run.
// In parallel every target runs to completion unless FailFastParallel is set.
// The returned results hold one entry per attempted target. The error is an
// *ExecutionError when any target failed or was not attempted.
func Execute(ctx context.Context, targets []string, command string, opts *Options) (Results, error) {
	if opts == nil {
		opts = &Options{}
	}

	if command == "" {
		return nil, ErrEmptyCommand
	}

	runID := uuid.NewString()
	ctx = ctxlog.With(ctx, "runID", runID)

	out := opts.Out
	if out == nil {
		out = os.Stdout
	}

	reporter := opts.Reporter
	if reporter == nil {
		reporter = progress.NullReporter{}
	}

	sink := &syncWriter{w: out}

	ctxlog.Debug(ctx, "execute",
		"targets", len(targets),
		"parallel", opts.Parallel,
		"timeout", opts.Timeout,
		"maxParallel", opts.MaxParallel)

	cmds := make([]Runnable, 0, len(targets))

	for _, dir := range targets {
		env := maps.Clone(opts.Env)
		if env == nil {
			env = make(map[string]string, 1)
		}

		env[DirEnvVar] = dir

		osCmd, err := NewShellCommand(ctx, dir, command, env, opts.Timeout)
		if err != nil {
			return nil, err
		}

		if opts.Reporter != nil {
			osCmd.OnOutputLine = func(line string) {
				reporter.Report(progress.NewEvent(dir, progress.EventOutput, line))
			}
		}

		reporter.Report(progress.NewEvent(dir, progress.EventPending, ""))

		cmds = append(cmds, &target{
			Runnable: osCmd,
			dir:      dir,
			verbose:  opts.Verbose,
			silent:   opts.Silent,
			sink:     sink,
			reporter: reporter,
		})
	}

	var batch Runnable

	if opts.Parallel {
		batch = &ParallelBatch{
			Label:       runID,
			Commands:    cmds,
			MaxParallel: opts.MaxParallel,
			FailFast:    opts.FailFastParallel,
			Reporter:    reporter,
		}
	} else {
		batch = &SerialBatch{
			Label:    runID,
			Commands: cmds,
			Reporter: reporter,
		}
	}

	results := batch.Run(ctx)

	if err := outcome(targets, results); err != nil {
		ctxlog.Debug(ctx, "execution failed", "failed", len(err.Failed), "notAttempted", len(err.NotAttempted))
		return results, err
	}

	return results, nil
}

// outcome returns nil when every target ran and succeeded.
func outcome(targets []string, results Results) *ExecutionError {
	attempted := make(map[string]struct{}, len(results))
	for _, r := range results {
		attempted[r.Directory] = struct{}{}
	}

	var notAttempted []string

	for _, dir := range targets {
		if _, ok := attempted[dir]; !ok {
			notAttempted = append(notAttempted, dir)
		}
	}

	failed := results.Failed()
	if len(failed) == 0 && len(notAttempted) == 0 {
		return nil
	}

	return newExecutionError(failed, notAttempted)
}

// target decorates the command for one directory with printing and progress reporting.
type target struct {
	Runnable
	dir      string
	verbose  bool
	silent   bool
	sink     io.Writer
	reporter progress.Reporter
}

// Run implements the Runnable interface for target.
func (t *target) Run(ctx context.Context) Results {
	if t.verbose {
		_ = writeExecuting(t.sink, t.dir)
	}

	t.reporter.Report(progress.NewEvent(t.dir, progress.EventStarted, ""))

	results := t.Runnable.Run(ctx)

	for _, r := range results {
		if !t.silent {
			if err := WriteTargetResult(t.sink, r); err != nil {
				ctxlog.Warn(ctx, "failed to write result", "directory", r.Directory, "error", err)
			}
		}

		e := progress.NewEvent(r.Directory, progress.EventCompleted, "")
		e.ExitCode = r.ExitCode

		if !r.Succeeded() {
			e.Type = progress.EventFailed
			e.Error = r.Error
		}

		t.reporter.Report(e)
	}

	return results
}

// syncWriter serialises writes from concurrent targets.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.w.Write(p) //nolint:wrapcheck
}
