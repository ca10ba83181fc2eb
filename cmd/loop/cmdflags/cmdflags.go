// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package cmdflags holds the flags shared by the loop subcommands and turns
// them into a validated configuration.
package cmdflags

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/matt-FFFFFF/loop/internal/config"
	"github.com/matt-FFFFFF/loop/internal/ctxlog"
	"github.com/matt-FFFFFF/loop/internal/resolver"
	"github.com/urfave/cli/v3"
)

const (
	ConfigFlag      = "config"
	IncludeFlag     = "include"
	ExcludeFlag     = "exclude"
	VerboseFlag     = "verbose"
	SilentFlag      = "silent"
	ParallelFlag    = "parallel"
	TimeoutFlag     = "timeout"
	MaxParallelFlag = "max-parallel"
	FailFastFlag    = "fail-fast"
)

// SelectionFlags choose the configuration file and the directories.
// A new slice is returned on every call because flags hold parse state.
func SelectionFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:      ConfigFlag,
			Aliases:   []string{"c"},
			Usage:     "Configuration file, local path or go-getter URL. Defaults to " + config.DefaultFileName + " when it exists",
			TakesFile: true,
			OnlyOnce:  true,
		},
		&cli.StringSliceFlag{
			Name:    IncludeFlag,
			Aliases: []string{"i"},
			Usage:   "Directory to expand, replaces the directories from the configuration file. Repeat for more",
		},
		&cli.StringSliceFlag{
			Name:    ExcludeFlag,
			Aliases: []string{"e"},
			Usage: "Ignore every directory whose path contains this text, added to the configured ignore list. " +
				"Matching is by substring, not glob: .git also ignores .github",
		},
	}
}

// ExecutionFlags control how the command is run.
func ExecutionFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:    VerboseFlag,
			Aliases: []string{"v"},
			Usage:   "Print each directory before running the command in it",
		},
		&cli.BoolFlag{
			Name:    SilentFlag,
			Aliases: []string{"s"},
			Usage:   "Do not print exit status and output of each directory",
		},
		&cli.BoolFlag{
			Name:    ParallelFlag,
			Aliases: []string{"p"},
			Usage:   "Run in every directory at once. A failure does not stop the other directories",
		},
		&cli.DurationFlag{
			Name:  TimeoutFlag,
			Usage: "Kill the command in a directory after this long, e.g. 30s. Zero means no limit",
		},
		&cli.IntFlag{
			Name:  MaxParallelFlag,
			Usage: "Maximum number of directories to run at once with --parallel. Zero means no limit",
		},
		&cli.BoolFlag{
			Name:  FailFastFlag,
			Usage: "With --parallel, cancel the remaining directories after the first failure",
		},
	}
}

// Config loads the configuration file named by the flags and applies the
// flag overrides.
func Config(ctx context.Context, cmd *cli.Command) (config.Config, error) {
	cfg, err := config.Load(ctx, cmd.String(ConfigFlag))
	if err != nil {
		return config.Config{}, err //nolint:wrapcheck
	}

	cfg = cfg.Merge(config.Overrides{
		Include:     cmd.StringSlice(IncludeFlag),
		Exclude:     cmd.StringSlice(ExcludeFlag),
		Verbose:     cmd.Bool(VerboseFlag),
		Silent:      cmd.Bool(SilentFlag),
		Parallel:    cmd.Bool(ParallelFlag),
		FailFast:    cmd.Bool(FailFastFlag),
		Timeout:     cmd.Duration(TimeoutFlag),
		MaxParallel: cmd.Int(MaxParallelFlag),
	})

	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("flags: %w", err)
	}

	ctxlog.Debug(ctx, "effective configuration",
		"directories", cfg.Directories,
		"ignore", cfg.Ignore,
		"parallel", cfg.Parallel,
		"verbose", cfg.Verbose,
		"silent", cfg.Silent)

	return cfg, nil
}

// Targets expands the configured roots into the directories to run in.
func Targets(ctx context.Context, cfg config.Config) ([]string, error) {
	return resolver.Expand(ctx, cfg.Roots(), cfg.Ignore) //nolint:wrapcheck
}

// Writer returns the output writer of cmd, falling back to the root command
// and then to stdout.
func Writer(cmd *cli.Command) io.Writer {
	if cmd.Writer != nil {
		return cmd.Writer
	}

	if root := cmd.Root(); root != nil && root.Writer != nil {
		return root.Writer
	}

	return os.Stdout
}
