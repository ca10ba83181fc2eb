// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/lipgloss"
	"github.com/matt-FFFFFF/loop/internal/progress"
)

// TargetStatus is the display state of a directory.
type TargetStatus int

const (
	StatusPending TargetStatus = iota
	StatusRunning
	StatusSuccess
	StatusFailed
	StatusSkipped
)

// String returns a string representation of the target status.
func (s TargetStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusRunning:
		return "running"
	case StatusSuccess:
		return "success"
	case StatusFailed:
		return "failed"
	case StatusSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// TargetNode is one directory in the list.
type TargetNode struct {
	Directory string
	Status    TargetStatus
	StartTime time.Time
	EndTime   time.Time
	ExitCode  int
	ErrorMsg  string
	LastLine  string // newest output line while running
}

// Elapsed is the running time so far, or the total once finished.
func (n *TargetNode) Elapsed(now time.Time) time.Duration {
	switch {
	case n.StartTime.IsZero():
		return 0
	case n.EndTime.IsZero():
		return now.Sub(n.StartTime)
	default:
		return n.EndTime.Sub(n.StartTime)
	}
}

// Model is the bubbletea model of a run.
// It is only touched from the bubbletea event loop.
type Model struct {
	title     string
	nodes     []*TargetNode
	index     map[string]*TargetNode
	spinner   spinner.Model
	cancel    context.CancelFunc
	width     int
	completed bool
	quitting  bool
	runErr    error
	styles    *Styles
}

// Styles contains all the styling for the TUI.
type Styles struct {
	Title   lipgloss.Style
	Pending lipgloss.Style
	Running lipgloss.Style
	Success lipgloss.Style
	Failed  lipgloss.Style
	Skipped lipgloss.Style
	Detail  lipgloss.Style
	Error   lipgloss.Style
	Help    lipgloss.Style
}

// NewStyles creates the default styling for the TUI.
func NewStyles() *Styles {
	return &Styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12")).
			MarginBottom(1),
		Pending: lipgloss.NewStyle().
			Foreground(lipgloss.Color("8")),
		Running: lipgloss.NewStyle().
			Foreground(lipgloss.Color("11")).
			Bold(true),
		Success: lipgloss.NewStyle().
			Foreground(lipgloss.Color("10")),
		Failed: lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")),
		Skipped: lipgloss.NewStyle().
			Foreground(lipgloss.Color("3")),
		Detail: lipgloss.NewStyle().
			Foreground(lipgloss.Color("7")).
			Italic(true),
		Error: lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Italic(true),
		Help: lipgloss.NewStyle().
			Foreground(lipgloss.Color("8")).
			MarginTop(1),
	}
}

// NewModel creates a model titled with the command being run.
// cancel is called when the user quits before the run completes.
func NewModel(title string, cancel context.CancelFunc) *Model {
	styles := NewStyles()

	return &Model{
		title: title,
		index: make(map[string]*TargetNode),
		spinner: spinner.New(
			spinner.WithSpinner(spinner.Dot),
			spinner.WithStyle(styles.Running),
		),
		cancel: cancel,
		styles: styles,
	}
}

// node returns the node for dir, appending a new one on first sight.
func (m *Model) node(dir string) *TargetNode {
	if n, ok := m.index[dir]; ok {
		return n
	}

	n := &TargetNode{Directory: dir}
	m.index[dir] = n
	m.nodes = append(m.nodes, n)

	return n
}

// applyEvent moves the directory of e to the matching state.
func (m *Model) applyEvent(e progress.Event) {
	n := m.node(e.Directory)

	switch e.Type {
	case progress.EventPending:
		n.Status = StatusPending
	case progress.EventStarted:
		n.Status = StatusRunning
		n.StartTime = e.Timestamp
	case progress.EventCompleted:
		n.Status = StatusSuccess
		n.EndTime = e.Timestamp
		n.ExitCode = e.ExitCode
	case progress.EventFailed:
		n.Status = StatusFailed
		n.EndTime = e.Timestamp
		n.ExitCode = e.ExitCode

		if e.Error != nil {
			n.ErrorMsg = e.Error.Error()
		}
	case progress.EventSkipped:
		n.Status = StatusSkipped
		n.ErrorMsg = e.Message
	case progress.EventOutput:
		if n.Status == StatusRunning {
			n.LastLine = e.Message
		}
	}
}

// Counts returns the number of directories in each state.
func (m *Model) Counts() map[TargetStatus]int {
	counts := make(map[TargetStatus]int, len(m.nodes))
	for _, n := range m.nodes {
		counts[n.Status]++
	}

	return counts
}

// Nodes returns the directories in the order they were first reported.
func (m *Model) Nodes() []*TargetNode {
	return m.nodes
}
