// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package runbatch

import (
	"context"
	"slices"

	"github.com/matt-FFFFFF/loop/internal/ctxlog"
	"github.com/matt-FFFFFF/loop/internal/progress"
)

var _ Runnable = (*SerialBatch)(nil)

// SerialBatch runs its commands one after another in order.
// The first failure stops the batch; the remaining commands are never run and
// are reported as skipped.
type SerialBatch struct {
	Label    string            // Label of the batch
	Commands []Runnable        // The commands or nested batches to run
	Reporter progress.Reporter // Receives an EventSkipped for every command not run, may be nil
}

// GetLabel implements the Runnable interface for SerialBatch.
func (b *SerialBatch) GetLabel() string {
	return b.Label
}

// Run implements the Runnable interface for SerialBatch.
// The results hold one entry per command that was run.
func (b *SerialBatch) Run(ctx context.Context) Results {
	logger := ctxlog.Logger(ctx).
		With("label", b.Label).
		With("runnableType", "SerialBatch")

	results := make(Results, 0, len(b.Commands))

	for i, cmd := range slices.All(b.Commands) {
		if err := ctx.Err(); err != nil {
			logger.Info("context done, skipping remaining commands", "remaining", len(b.Commands)-i)
			skipAll(b.Reporter, b.Commands[i:], "run cancelled")

			break
		}

		childResults := cmd.Run(ctx)
		results = slices.Concat(results, childResults)

		if !childResults.Succeeded() {
			logger.Debug("command failed, skipping remaining commands",
				"failed", cmd.GetLabel(),
				"remaining", len(b.Commands)-i-1)
			skipAll(b.Reporter, b.Commands[i+1:], "previous directory failed")

			break
		}
	}

	return results
}

func skipAll(reporter progress.Reporter, cmds []Runnable, reason string) {
	if reporter == nil {
		return
	}

	for _, cmd := range cmds {
		reporter.Report(progress.NewEvent(cmd.GetLabel(), progress.EventSkipped, reason))
	}
}
