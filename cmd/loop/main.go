// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package main contains the loop command-line interface (CLI).
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/matt-FFFFFF/loop"
	"github.com/matt-FFFFFF/loop/cmd/loop/config"
	"github.com/matt-FFFFFF/loop/cmd/loop/list"
	"github.com/matt-FFFFFF/loop/cmd/loop/run"
	"github.com/matt-FFFFFF/loop/internal/ctxlog"
	"github.com/matt-FFFFFF/loop/internal/signalbroker"
	"github.com/urfave/cli/v3"
)

// newRootCmd builds the root command for the CLI.
func newRootCmd() *cli.Command {
	return &cli.Command{
		Commands: []*cli.Command{
			config.NewCommand(),
			list.NewCommand(),
			run.NewCommand(),
		},
		Writer:    os.Stdout,
		ErrWriter: os.Stderr,
		Name:      "loop",
		Description: `Loop runs one shell command in many directories.

Directories come from a .looprc file or the --include flag and are expanded
recursively, skipping anything whose path contains an ignore pattern.
Commands run one directory at a time and stop at the first failure, or in
parallel with every failure reported at the end.`,
		Usage:     "loop run -- git status",
		Copyright: "Copyright (c) matt-FFFFFF 2025. All rights reserved.",
		Authors: []any{
			"Matt White (matt-FFFFFF)",
		},
		Version:               fmt.Sprintf("%s (commit: %s)", loop.Version, loop.Commit),
		EnableShellCompletion: true,
	}
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	ctx = ctxlog.New(ctx, ctxlog.DefaultLogger)
	defer cancel()

	sigCh := signalbroker.New(ctx)

	go signalbroker.Watch(ctx, sigCh, cancel)

	err := newRootCmd().Run(ctx, os.Args)

	if ctx.Err() != nil {
		ctxlog.Error(ctx, "command terminated due to cancellation", "error", ctx.Err())
		os.Exit(1) //nolint:gocritic
	}

	if err != nil {
		ctxlog.Error(ctx, "command execution failed", "error", err)
		os.Exit(1) //nolint:gocritic
	}

	ctxlog.Info(ctx, "command completed successfully")
}
