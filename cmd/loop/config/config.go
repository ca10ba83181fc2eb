// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package config implements the loop config command.
package config

import (
	"context"
	"fmt"

	"github.com/matt-FFFFFF/loop/cmd/loop/cmdflags"
	"github.com/urfave/cli/v3"
)

// NewCommand builds the config command.
func NewCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Print the effective configuration as YAML",
		Description: `Load the configuration file, apply the command line flags and print the result.
The output can be saved as a .looprc file.`,
		Flags:  append(cmdflags.SelectionFlags(), cmdflags.ExecutionFlags()...),
		Action: actionFunc,
	}
}

func actionFunc(ctx context.Context, cmd *cli.Command) error {
	cfg, err := cmdflags.Config(ctx, cmd)
	if err != nil {
		return err //nolint:wrapcheck
	}

	b, err := cfg.MarshalYAML()
	if err != nil {
		return err //nolint:wrapcheck
	}

	if _, err := cmdflags.Writer(cmd).Write(b); err != nil {
		return fmt.Errorf("writing configuration: %w", err)
	}

	return nil
}
