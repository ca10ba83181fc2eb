// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package runbatch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/matt-FFFFFF/loop/internal/ctxlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func skipOnWindows(t *testing.T) {
	t.Helper()

	if runtime.GOOS == goosWindows {
		t.Skip("skipping POSIX shell test on windows")
	}
}

func testContext(t *testing.T) context.Context {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)

	ctxlog.LevelVar.Set(slog.LevelDebug)
	t.Cleanup(func() { ctxlog.LevelVar.Set(slog.LevelWarn) })

	return ctxlog.New(ctx, ctxlog.DefaultLogger)
}

func TestCommandRun_Success(t *testing.T) {
	skipOnWindows(t)

	cmd := &OSCommand{
		Path:  "/bin/sh",
		Args:  []string{"-c", "echo hello; echo oops >&2"},
		Label: "echo test",
	}

	results := cmd.Run(testContext(t))
	require.Len(t, results, 1, "expected 1 result")

	res := results[0]
	assert.Equal(t, 0, res.ExitCode, "expected exit code 0")
	require.NoError(t, res.Error, "unexpected error")
	assert.True(t, res.Succeeded())
	assert.Equal(t, "echo test", res.Directory)
	assert.Equal(t, "hello\n", string(res.StdOut))
	assert.Equal(t, "oops\n", string(res.StdErr))
	assert.Positive(t, res.Duration)
}

func TestCommandRun_Failure(t *testing.T) {
	skipOnWindows(t)

	cmd := &OSCommand{
		Path:  "/bin/sh",
		Args:  []string{"-c", "echo partial; exit 3"},
		Label: "fail test",
	}

	results := cmd.Run(testContext(t))
	require.Len(t, results, 1, "expected 1 result")

	res := results[0]
	assert.Equal(t, 3, res.ExitCode, "expected 3 exit code")
	assert.Equal(t, ResultStatusError, res.Status)
	require.ErrorIs(t, res.Error, ErrCommandFailed)
	assert.Equal(t, "partial\n", string(res.StdOut), "output is captured on failure")
}

func TestCommandRun_NotFound(t *testing.T) {
	cmd := &OSCommand{
		Path:  "/not/a/real/command",
		Label: "notfound test",
	}

	results := cmd.Run(testContext(t))
	require.Len(t, results, 1, "expected 1 result")

	res := results[0]

	var notFoundErr *os.PathError

	require.ErrorAs(t, res.Error, &notFoundErr, "expected PathError")
	require.ErrorIs(t, res.Error, ErrCouldNotStartProcess, "expected error to be ErrCouldNotStartProcess")
	assert.Equal(t, -1, res.ExitCode)
	assert.Equal(t, ResultStatusError, res.Status)
}

func TestCommandRun_MissingDirectory(t *testing.T) {
	skipOnWindows(t)

	cmd := &OSCommand{
		Path: "/bin/sh",
		Args: []string{"-c", "true"},
		Cwd:  "/definitely/not/a/directory",
	}

	res := cmd.Run(testContext(t))[0]

	require.ErrorIs(t, res.Error, ErrCouldNotStartProcess)
	assert.Equal(t, "/definitely/not/a/directory", res.Directory, "label defaults to the working directory")
}

func TestCommandRun_EnvAndCwd(t *testing.T) {
	skipOnWindows(t)

	tempDir := t.TempDir()
	cmd := &OSCommand{
		Path:  "/bin/sh",
		Args:  []string{"-c", "echo $FOO; pwd -P"},
		Env:   map[string]string{"FOO": "BAR"},
		Cwd:   tempDir,
		Label: "env and cwd test",
	}

	res := cmd.Run(testContext(t))[0]
	require.NoError(t, res.Error)

	want, err := filepath.EvalSymlinks(tempDir)
	require.NoError(t, err)

	out := string(res.StdOut)
	assert.Contains(t, out, "BAR", "expected stdout to contain 'BAR'")
	assert.Contains(t, out, want, "expected stdout to contain tempDir")
}

func TestCommandRun_StdinIsEmpty(t *testing.T) {
	skipOnWindows(t)

	cmd := &OSCommand{
		Path: "/bin/sh",
		Args: []string{"-c", "cat; echo done"},
	}

	res := cmd.Run(testContext(t))[0]
	require.NoError(t, res.Error)
	assert.Equal(t, "done\n", string(res.StdOut))
}

func TestCommandRun_ContextDeadline(t *testing.T) {
	skipOnWindows(t)

	cmd := &OSCommand{
		Path:  "/bin/sh",
		Args:  []string{"-c", "sleep 10; echo never"},
		Label: "sleep test",
	}

	ctx, cancel := context.WithTimeout(testContext(t), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	res := cmd.Run(ctx)[0]

	assert.Less(t, time.Since(start), 5*time.Second, "the whole process group is killed")
	assert.Equal(t, -1, res.ExitCode, "expected -1 exit code for killed process")
	require.ErrorIs(t, res.Error, ErrTimeoutExceeded)
	require.ErrorIs(t, res.Error, ErrCommandFailed)
	assert.NotContains(t, string(res.StdOut), "never")
}

func TestCommandRun_Timeout(t *testing.T) {
	skipOnWindows(t)

	cmd := &OSCommand{
		Path:    "/bin/sh",
		Args:    []string{"-c", "sleep 10"},
		Timeout: 100 * time.Millisecond,
	}

	res := cmd.Run(testContext(t))[0]

	require.ErrorIs(t, res.Error, ErrTimeoutExceeded)
	assert.Less(t, res.Duration, 5*time.Second)
}

func TestCommandRun_TimeoutKillsBackgroundChild(t *testing.T) {
	skipOnWindows(t)

	cmd := &OSCommand{
		Path:    "/bin/sh",
		Args:    []string{"-c", "sleep 8 & echo hi"},
		Timeout: 500 * time.Millisecond,
	}

	res := cmd.Run(testContext(t))[0]

	require.ErrorIs(t, res.Error, ErrTimeoutExceeded)
	assert.Equal(t, ResultStatusError, res.Status)
	assert.Equal(t, "hi\n", string(res.StdOut))
	assert.Less(t, res.Duration, 5*time.Second)
}

func TestCommandRun_BackgroundChildWithinTimeoutSucceeds(t *testing.T) {
	skipOnWindows(t)

	cmd := &OSCommand{
		Path:    "/bin/sh",
		Args:    []string{"-c", "sleep 0.2 & echo hi"},
		Timeout: 5 * time.Second,
	}

	res := cmd.Run(testContext(t))[0]

	require.NoError(t, res.Error)
	assert.Equal(t, ResultStatusSuccess, res.Status)
	assert.GreaterOrEqual(t, res.Duration, 200*time.Millisecond)
}

func TestCommandRun_Cancelled(t *testing.T) {
	skipOnWindows(t)

	cmd := &OSCommand{
		Path: "/bin/sh",
		Args: []string{"-c", "sleep 10"},
	}

	ctx, cancel := context.WithCancel(testContext(t))

	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	res := cmd.Run(ctx)[0]

	require.ErrorIs(t, res.Error, ErrCancelled)
	assert.NotErrorIs(t, res.Error, ErrTimeoutExceeded)
}

func TestCommandRun_SigInt(t *testing.T) {
	skipOnWindows(t)

	cmd := &OSCommand{
		Path:  "/bin/sh",
		Args:  []string{"-c", "sleep 10"},
		Label: "sleep test",
		sigCh: make(chan os.Signal, 1),
	}

	ctx := testContext(t)

	go func() {
		time.Sleep(500 * time.Millisecond)
		cmd.sigCh <- os.Interrupt
	}()

	res := cmd.Run(ctx)[0]

	assert.Equal(t, -1, res.ExitCode, "expected -1 exit code for interrupted process")
	require.NoError(t, ctx.Err(), "expected context to be unclosed")
	require.ErrorIs(t, res.Error, ErrSignalReceived, "expected error to be ErrSignalReceived")
}

func TestCommandRun_OutputCapped(t *testing.T) {
	skipOnWindows(t)

	cmd := &OSCommand{
		Path: "/bin/sh",
		Args: []string{"-c", "head -c 9000000 /dev/zero; echo tail >&2"},
	}

	res := cmd.Run(testContext(t))[0]

	require.ErrorIs(t, res.Error, ErrBufferOverflow)
	assert.Len(t, res.StdOut, maxBufferSize)
	assert.Equal(t, "tail\n", string(res.StdErr), "stderr is read while stdout is full")
	assert.Equal(t, ResultStatusError, res.Status)
}

func TestReadAllUpToMax(t *testing.T) {
	ctx := context.Background()

	b, err := readAllUpToMax(ctx, strings.NewReader("abcdef"), 10)
	require.NoError(t, err)
	assert.Equal(t, "abcdef", string(b))

	b, err = readAllUpToMax(ctx, strings.NewReader("abcdef"), 6)
	require.NoError(t, err)
	assert.Equal(t, "abcdef", string(b))

	b, err = readAllUpToMax(ctx, strings.NewReader("abcdefgh"), 4)
	require.ErrorIs(t, err, ErrBufferOverflow)
	assert.Equal(t, "abcd", string(b))
}

func TestCommandRun_OutputLineCallback(t *testing.T) {
	skipOnWindows(t)

	var (
		mu    sync.Mutex
		lines []string
	)

	cmd := &OSCommand{
		Path: "/bin/sh",
		Args: []string{"-c", "echo first; echo second >&2; echo third"},
		OnOutputLine: func(line string) {
			mu.Lock()
			defer mu.Unlock()

			lines = append(lines, line)
		},
	}

	res := cmd.Run(testContext(t))[0]
	require.NoError(t, res.Error)
	assert.Equal(t, "first\nthird\n", string(res.StdOut))

	mu.Lock()
	defer mu.Unlock()

	assert.Contains(t, lines, "second")
	assert.Contains(t, lines, "third")
}
