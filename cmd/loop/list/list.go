// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package list implements the loop list command.
package list

import (
	"context"
	"fmt"

	"github.com/matt-FFFFFF/loop/cmd/loop/cmdflags"
	"github.com/matt-FFFFFF/loop/internal/ctxlog"
	"github.com/urfave/cli/v3"
)

// NewCommand builds the list command.
func NewCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "Print the directories a run would visit",
		Description: `Expand the configured roots and print each directory on its own line,
in the order the run command would visit them. Nothing is executed.`,
		Flags:  cmdflags.SelectionFlags(),
		Action: actionFunc,
	}
}

func actionFunc(ctx context.Context, cmd *cli.Command) error {
	ctx = ctxlog.With(ctx, "command", cmd.Name)

	cfg, err := cmdflags.Config(ctx, cmd)
	if err != nil {
		return err //nolint:wrapcheck
	}

	targets, err := cmdflags.Targets(ctx, cfg)
	if err != nil {
		return err //nolint:wrapcheck
	}

	out := cmdflags.Writer(cmd)

	for _, dir := range targets {
		if _, err := fmt.Fprintln(out, dir); err != nil {
			return fmt.Errorf("writing directory list: %w", err)
		}
	}

	return nil
}
