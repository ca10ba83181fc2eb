// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package tui

import (
	"bytes"
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/matt-FFFFFF/loop/internal/progress"
	"github.com/matt-FFFFFF/loop/internal/runbatch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func headlessRunner(t *testing.T, cancel context.CancelFunc) (*Runner, *bytes.Buffer) {
	t.Helper()

	var out bytes.Buffer

	return NewRunner("echo hi", cancel,
		tea.WithInput(nil),
		tea.WithOutput(&out),
		tea.WithoutSignalHandler(),
	), &out
}

func TestRunner_Run(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r, _ := headlessRunner(t, cancel)

	want := runbatch.Results{{Directory: "a", Status: runbatch.ResultStatusSuccess}}

	results, err := r.Run(ctx, func(_ context.Context, reporter progress.Reporter) (runbatch.Results, error) {
		reporter.Report(progress.NewEvent("a", progress.EventPending, ""))
		reporter.Report(progress.NewEvent("a", progress.EventStarted, ""))
		reporter.Report(progress.NewEvent("a", progress.EventCompleted, ""))

		return want, nil
	})

	require.NoError(t, err)
	assert.Equal(t, want, results)

	nodes := r.model.Nodes()
	require.Len(t, nodes, 1)
	assert.Equal(t, StatusSuccess, nodes[0].Status)
	assert.True(t, r.model.completed)
}

func TestRunner_RunError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r, _ := headlessRunner(t, cancel)
	runErr := errors.New("run failed")

	_, err := r.Run(ctx, func(context.Context, progress.Reporter) (runbatch.Results, error) {
		return nil, runErr
	})

	require.ErrorIs(t, err, runErr)
	assert.NotErrorIs(t, err, ErrTUI)
}
