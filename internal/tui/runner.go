// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package tui

import (
	"context"
	"errors"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/matt-FFFFFF/loop/internal/progress"
	"github.com/matt-FFFFFF/loop/internal/runbatch"
)

// ErrTUI is returned when the terminal UI fails.
var ErrTUI = errors.New("terminal UI error")

// RunFunc executes a run, reporting progress to reporter.
type RunFunc func(ctx context.Context, reporter progress.Reporter) (runbatch.Results, error)

// Runner manages the TUI program and feeds it progress events.
type Runner struct {
	model   *Model
	program *tea.Program
	mutex   sync.Mutex
}

// NewRunner creates a runner titled with the command. Quitting the TUI before
// the run completes calls cancel. opts are passed to bubbletea.
func NewRunner(title string, cancel context.CancelFunc, opts ...tea.ProgramOption) *Runner {
	model := NewModel(title, cancel)

	return &Runner{
		model:   model,
		program: tea.NewProgram(model, opts...),
	}
}

// Reporter returns a progress reporter that forwards events to the TUI.
// Events sent after the TUI has exited are dropped.
func (r *Runner) Reporter() progress.Reporter {
	return progress.ReporterFunc(func(e progress.Event) {
		r.program.Send(ProgressEventMsg{Event: e})
	})
}

// Run starts the TUI, calls fn and waits for the TUI to exit.
// The error of fn is returned joined with any TUI failure.
func (r *Runner) Run(ctx context.Context, fn RunFunc) (runbatch.Results, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	tuiDone := make(chan error, 1)

	go func() {
		_, err := r.program.Run()
		tuiDone <- err
	}()

	results, runErr := fn(ctx, r.Reporter())

	r.program.Send(RunCompletedMsg{Err: runErr})

	if err := <-tuiDone; err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return results, errors.Join(runErr, ErrTUI, err)
	}

	return results, runErr
}
