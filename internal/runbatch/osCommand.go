// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package runbatch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/matt-FFFFFF/loop/internal/ctxlog"
	"github.com/matt-FFFFFF/loop/internal/signalbroker"
	"github.com/matt-FFFFFF/loop/internal/teereader"
)

const (
	maxBufferSize  = 8 * 1024 * 1024  // 8MB
	tickerInterval = 10 * time.Second // Interval for the still running debug log
)

var _ Runnable = (*OSCommand)(nil)

var (
	// ErrBufferOverflow is returned when the output exceeds the max size.
	ErrBufferOverflow = fmt.Errorf("output exceeds max size of %d bytes", maxBufferSize)
	// ErrCouldNotStartProcess is returned when the process could not be started.
	ErrCouldNotStartProcess = errors.New("could not start process")
	// ErrFailedToReadBuffer is returned when the buffer from the operating system pipe could not be read.
	ErrFailedToReadBuffer = errors.New("failed to read buffer")
	// ErrTimeoutExceeded is returned when the command exceeds its deadline.
	ErrTimeoutExceeded = errors.New("timeout exceeded")
	// ErrCancelled is returned when the run was cancelled while the command was running.
	ErrCancelled = errors.New("cancelled")
	// ErrFailedToCreatePipe is returned when the operating system pipe could not be created.
	ErrFailedToCreatePipe = errors.New("failed to create pipe")
	// ErrSignalReceived is returned when a operating system signal is forwarded to the child process.
	ErrSignalReceived = errors.New("signal received")
	// ErrDuplicateSignalReceived is returned when a duplicate signal is received, forcing process termination.
	ErrDuplicateSignalReceived = errors.New("duplicate signal received, process forcefully terminated")
)

// OSCommand runs one executable in one directory.
type OSCommand struct {
	Label   string            // Label of the command, the target directory for loop targets
	Path    string            // The executable to run (full path)
	Args    []string          // Arguments, not including the executable name itself
	Cwd     string            // Working directory of the process
	Env     map[string]string // Added to the environment of the current process
	Timeout time.Duration     // Kill the process after this long, zero means no limit
	// OnOutputLine, when set, receives the newest line of output while the
	// process runs. It is called from the reading goroutines.
	OnOutputLine func(line string)
	sigCh        chan os.Signal // Channel to receive signals, allows mocking in test
}

// GetLabel implements the Runnable interface for OSCommand.
func (c *OSCommand) GetLabel() string {
	if c.Label == "" {
		return c.Cwd
	}

	return c.Label
}

// Run implements the Runnable interface for OSCommand.
// It always returns exactly one result.
func (c *OSCommand) Run(ctx context.Context) Results {
	logger := ctxlog.Logger(ctx).
		With("runnableType", "OSCommand").
		With("label", c.GetLabel())

	logger.Debug("command info", "path", c.Path, "cwd", c.Cwd, "args", c.Args)

	if c.Timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	sigCh := c.sigCh
	if sigCh == nil {
		sigCh = signalbroker.New(ctx)
		defer signalbroker.Stop(sigCh)
	}

	res := &Result{
		Directory: c.GetLabel(),
	}

	failed := func(err error) Results {
		res.Error = err
		res.ExitCode = -1
		res.Status = ResultStatusError

		return Results{res}
	}

	env := os.Environ()
	for _, k := range slices.Sorted(maps.Keys(c.Env)) {
		logger.Debug("adding environment variable", "key", k, "value", c.Env[k])
		env = append(env, k+"="+c.Env[k])
	}

	stdin, err := os.Open(os.DevNull)
	if err != nil {
		return failed(errors.Join(ErrCouldNotStartProcess, err))
	}
	defer stdin.Close() //nolint:errcheck

	rOut, wOut, err := os.Pipe()
	if err != nil {
		return failed(errors.Join(ErrFailedToCreatePipe, err))
	}
	defer rOut.Close() //nolint:errcheck

	rErr, wErr, err := os.Pipe()
	if err != nil {
		_ = wOut.Close()
		return failed(errors.Join(ErrFailedToCreatePipe, err))
	}
	defer rErr.Close() //nolint:errcheck

	args := slices.Concat([]string{filepath.Base(c.Path)}, c.Args)

	logger.Debug("starting process")

	startTime := time.Now()
	ps, err := os.StartProcess(c.Path, args, &os.ProcAttr{
		Dir:   c.Cwd,
		Env:   env,
		Files: []*os.File{stdin, wOut, wErr},
		Sys:   sysProcAttr(),
	})

	// The child holds its own copies of the write ends. Closing ours lets the
	// readers see EOF once the child exits.
	_ = wOut.Close()
	_ = wErr.Close()

	if err != nil {
		return failed(errors.Join(ErrCouldNotStartProcess, err))
	}

	logger.Debug("process started", "pid", ps.Pid)

	var (
		readers        sync.WaitGroup
		stdout, stderr []byte
		outErr, errErr error
	)

	var outR, errR io.Reader = rOut, rErr
	if c.OnOutputLine != nil {
		outR = teereader.New(rOut, c.OnOutputLine)
		errR = teereader.New(rErr, c.OnOutputLine)
	}

	readers.Add(2)

	go func() {
		defer readers.Done()

		stdout, outErr = readAllUpToMax(ctx, outR, maxBufferSize)
	}()

	go func() {
		defer readers.Done()

		stderr, errErr = readAllUpToMax(ctx, errR, maxBufferSize)
	}()

	// The watchdog forwards signals to the process group and kills it when the
	// context is done. killReasons is only read after the watchdog has exited.
	done := make(chan struct{})

	var (
		watchdog    sync.WaitGroup
		killReasons []error
	)

	watchdog.Add(1)

	go func() {
		defer watchdog.Done()

		signalCount := make(map[os.Signal]struct{})

		ticker := time.NewTicker(tickerInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				logger.Debug("process still running", "elapsed", time.Since(startTime).Round(time.Second))

			case s := <-sigCh:
				// is this the second signal received of this type?
				if _, ok := signalCount[s]; ok {
					logger.Info("received duplicate signal, killing process", "signal", s.String())
					killPs(ctx, ps)

					killReasons = append(killReasons, ErrDuplicateSignalReceived)

					return
				}

				signalCount[s] = struct{}{}

				logger.Info("received signal, forwarding to process", "signal", s.String())

				if err := signalPs(ps, s); err != nil {
					logger.Info("failed to send signal", "signal", s.String(), "error", err)
				}

				if !slices.Contains(killReasons, ErrSignalReceived) {
					killReasons = append(killReasons, ErrSignalReceived)
				}

			case <-ctx.Done():
				logger.Info("context done, killing process", "reason", context.Cause(ctx))
				killPs(ctx, ps)

				if errors.Is(ctx.Err(), context.DeadlineExceeded) {
					killReasons = append(killReasons, ErrTimeoutExceeded)
				} else {
					killReasons = append(killReasons, ErrCancelled)
				}

				return

			case <-done:
				return
			}
		}
	}()

	logger.Debug("waiting for process to finish")

	state, psErr := ps.Wait()

	// Background children of the shell can hold the pipes open after it
	// exits, so the watchdog stays armed until both readers reach EOF.
	readers.Wait()
	res.Duration = time.Since(startTime)

	close(done)
	watchdog.Wait()

	res.StdOut = stdout
	res.StdErr = stderr
	res.ExitCode = -1

	if state != nil {
		res.ExitCode = state.ExitCode()
	}

	errs := slices.Concat([]error{psErr}, killReasons, []error{outErr, errErr})
	res.Error = errors.Join(errs...)

	logger.Debug("process finished",
		"exitCode", res.ExitCode,
		"duration", res.Duration,
		"stdoutBytes", len(stdout),
		"stderrBytes", len(stderr))

	switch {
	case res.ExitCode == 0 && res.Error == nil:
		res.Status = ResultStatusSuccess
	default:
		if res.ExitCode == 0 {
			res.ExitCode = -1 // If exit code is 0 but there is an error, set exit code to -1
		}

		res.Status = ResultStatusError
		res.Error = errors.Join(fmt.Errorf("%w with exit code %d", ErrCommandFailed, res.ExitCode), res.Error)
	}

	return Results{res}
}

// readAllUpToMax reads r to EOF, keeping at most maxBufferSize bytes.
// The remainder is discarded so that the writer never blocks on a full pipe.
func readAllUpToMax(ctx context.Context, r io.Reader, maxBufferSize int64) ([]byte, error) {
	var buf bytes.Buffer

	n, err := io.CopyN(&buf, r, maxBufferSize+1)
	if err != nil && !errors.Is(err, io.EOF) {
		return buf.Bytes(), errors.Join(ErrFailedToReadBuffer, err)
	}

	if n > maxBufferSize {
		discarded, _ := io.Copy(io.Discard, r)

		ctxlog.Logger(ctx).Debug(
			"buffer overflow in readAllUpToMax",
			"bytesRead", n+discarded,
			"maxBytes", maxBufferSize,
		)

		return buf.Bytes()[:maxBufferSize], ErrBufferOverflow
	}

	return buf.Bytes(), nil
}

// killPs kills the process and everything it started.
func killPs(ctx context.Context, ps *os.Process) {
	if err := killProcessTree(ps); err != nil {
		if errors.Is(err, os.ErrProcessDone) {
			ctxlog.Logger(ctx).Debug("process already done", "pid", ps.Pid)
			return
		}

		ctxlog.Logger(ctx).Error("process kill error", "pid", ps.Pid, "error", err)

		return
	}

	ctxlog.Logger(ctx).Info("process killed", "pid", ps.Pid)
}
