// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package run implements the loop run command.
package run

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/matt-FFFFFF/loop/cmd/loop/cmdflags"
	"github.com/matt-FFFFFF/loop/internal/color"
	"github.com/matt-FFFFFF/loop/internal/ctxlog"
	"github.com/matt-FFFFFF/loop/internal/progress"
	"github.com/matt-FFFFFF/loop/internal/runbatch"
	"github.com/matt-FFFFFF/loop/internal/tui"
	"github.com/urfave/cli/v3"
)

const (
	tuiFlag     = "tui"
	jsonFlag    = "json"
	noColorFlag = "no-color"
	envFlag     = "env"

	eventBufferSize = 64
)

// ErrInvalidEnv is returned when an --env value is not KEY=VALUE.
var ErrInvalidEnv = errors.New("environment variable must be KEY=VALUE")

// NewCommand builds the run command. Each call returns independent flag state.
func NewCommand() *cli.Command {
	flags := append(cmdflags.SelectionFlags(), cmdflags.ExecutionFlags()...)
	flags = append(flags,
		&cli.BoolFlag{
			Name:        tuiFlag,
			Aliases:     []string{"t", "interactive"},
			Usage:       "Show live progress in an interactive terminal UI",
			Value:       false,
			DefaultText: "false",
			OnlyOnce:    true,
		},
		&cli.BoolFlag{
			Name:        jsonFlag,
			Usage:       "Print the results as JSON instead of text",
			Value:       false,
			DefaultText: "false",
			OnlyOnce:    true,
		},
		&cli.BoolFlag{
			Name:        noColorFlag,
			Usage:       "Disable coloured output",
			Value:       false,
			DefaultText: "false",
			OnlyOnce:    true,
		},
		&cli.StringSliceFlag{
			Name:  envFlag,
			Usage: "Extra KEY=VALUE environment variable for every command. Repeat for more",
		},
	)

	return &cli.Command{
		Name:      "run",
		Usage:     "Run a shell command in every directory",
		ArgsUsage: "-- <command> [args...]",
		Description: `Run a shell command in each directory found below the configured roots.

Directories are found by expanding the roots recursively. Any directory whose path
contains one of the ignore patterns is skipped together with everything below it.

By default the directories are run one after another and the first failure stops the run.
With --parallel every directory runs at once and all failures are collected.

The command is joined with spaces and handed to the system shell, so quote it or
put it after -- to keep loop from reading its flags.`,
		Flags:  flags,
		Action: actionFunc,
	}
}

func actionFunc(ctx context.Context, cmd *cli.Command) error {
	ctx = ctxlog.With(ctx, "command", cmd.Name)
	ctxlog.Debug(ctx, "running run command")

	out := cmdflags.Writer(cmd)

	command := strings.TrimSpace(strings.Join(cmd.Args().Slice(), " "))
	if command == "" {
		return cli.ShowSubcommandHelp(cmd) //nolint:wrapcheck
	}

	if cmd.Bool(noColorFlag) {
		prev := color.SetEnabled(false)
		defer color.SetEnabled(prev)
	}

	env, err := parseEnv(cmd.StringSlice(envFlag))
	if err != nil {
		return err
	}

	cfg, err := cmdflags.Config(ctx, cmd)
	if err != nil {
		return err //nolint:wrapcheck
	}

	targets, err := cmdflags.Targets(ctx, cfg)
	if err != nil {
		return err //nolint:wrapcheck
	}

	ctxlog.Info(ctx, "resolved directories", "count", len(targets))

	asJSON := cmd.Bool(jsonFlag)

	opts := &runbatch.Options{
		Parallel:         cfg.Parallel,
		Verbose:          cfg.Verbose && !asJSON,
		Silent:           cfg.Silent || asJSON,
		Out:              out,
		Timeout:          cfg.Timeout,
		MaxParallel:      cfg.MaxParallel,
		FailFastParallel: cfg.FailFast,
		Env:              env,
	}

	var (
		res     runbatch.Results
		execErr error
	)

	switch cmd.Bool(tuiFlag) {
	case true:
		ctxlog.Info(ctx, "starting interactive TUI mode")

		// Output and logs are held back until the UI has released the terminal.
		buf := new(lockedBuffer)
		tuiCtx, cancel := context.WithCancel(ctxlog.NewForTUI(ctx, buf))

		opts.Out = buf
		runner := tui.NewRunner(command, cancel)

		res, execErr = runner.Run(tuiCtx, func(ctx context.Context, reporter progress.Reporter) (runbatch.Results, error) {
			opts.Reporter = reporter
			return runbatch.Execute(ctx, targets, command, opts)
		})

		cancel()
		buf.WriteTo(out) //nolint:errcheck
	default:
		reporter := progress.NewChannelReporter(ctx, eventBufferSize)
		reporter.Listen(&eventLogger{ctx: ctx})
		opts.Reporter = reporter

		res, execErr = runbatch.Execute(ctx, targets, command, opts)

		reporter.Close()
	}

	var notAttempted int

	var ee *runbatch.ExecutionError
	if errors.As(execErr, &ee) {
		notAttempted = len(ee.NotAttempted)
	} else if execErr != nil {
		return execErr
	}

	if err := writeResults(out, res, notAttempted, asJSON, cfg.Silent); err != nil {
		return err
	}

	return execErr
}

func writeResults(w io.Writer, res runbatch.Results, notAttempted int, asJSON, silent bool) error {
	if asJSON {
		res.SortByDirectory()
		return res.WriteJSON(w) //nolint:wrapcheck
	}

	if silent {
		return nil
	}

	return res.WriteSummary(w, notAttempted) //nolint:wrapcheck
}

func parseEnv(vals []string) (map[string]string, error) {
	if len(vals) == 0 {
		return nil, nil
	}

	env := make(map[string]string, len(vals))

	for _, v := range vals {
		k, val, ok := strings.Cut(v, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidEnv, v)
		}

		env[k] = val
	}

	return env, nil
}

// eventLogger writes progress events to the debug log.
type eventLogger struct {
	ctx context.Context
}

func (l *eventLogger) OnEvent(e progress.Event) {
	if e.Type == progress.EventOutput {
		return
	}

	args := []any{"directory", e.Directory, "event", e.Type.String()}
	if e.Type.Terminal() {
		args = append(args, "exitCode", e.ExitCode)
	}

	if e.Error != nil {
		args = append(args, "error", e.Error)
	}

	ctxlog.Debug(l.ctx, "progress", args...)
}

// lockedBuffer is shared by the result sink and the logger while the TUI runs.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.Write(p) //nolint:wrapcheck
}

func (b *lockedBuffer) WriteTo(w io.Writer) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.WriteTo(w) //nolint:wrapcheck
}
