// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package runbatch

import (
	"context"
	"slices"

	"github.com/matt-FFFFFF/loop/internal/ctxlog"
	"github.com/matt-FFFFFF/loop/internal/progress"
	"golang.org/x/sync/errgroup"
)

var _ Runnable = (*ParallelBatch)(nil)

// ParallelBatch runs its commands concurrently.
// By default a failure does not affect the other commands, and every command
// runs to completion.
type ParallelBatch struct {
	Label       string            // Label of the batch
	Commands    []Runnable        // The commands or nested batches to run
	MaxParallel int               // Maximum number of concurrent commands, zero means no limit
	FailFast    bool              // Cancel the outstanding commands after the first failure
	Reporter    progress.Reporter // Receives an EventSkipped for every command not started, may be nil
}

// GetLabel implements the Runnable interface for ParallelBatch.
func (b *ParallelBatch) GetLabel() string {
	return b.Label
}

// Run implements the Runnable interface for ParallelBatch.
// Results are in completion order.
func (b *ParallelBatch) Run(ctx context.Context) Results {
	logger := ctxlog.Logger(ctx).
		With("label", b.Label).
		With("runnableType", "ParallelBatch")

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	resChan := make(chan Results, len(b.Commands))

	g := new(errgroup.Group)
	if b.MaxParallel > 0 {
		g.SetLimit(b.MaxParallel)
	}

	logger.Debug("starting commands", "count", len(b.Commands), "maxParallel", b.MaxParallel, "failFast", b.FailFast)

	for _, cmd := range b.Commands {
		g.Go(func() error {
			if runCtx.Err() != nil {
				skipAll(b.Reporter, []Runnable{cmd}, "run cancelled")
				return nil
			}

			res := cmd.Run(runCtx)
			if b.FailFast && !res.Succeeded() {
				logger.Debug("command failed, cancelling outstanding commands", "failed", cmd.GetLabel())
				cancel()
			}

			resChan <- res

			return nil
		})
	}

	_ = g.Wait()
	close(resChan)

	children := make(Results, 0, len(b.Commands))
	for r := range resChan {
		children = slices.Concat(children, r)
	}

	return children
}
