// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/matt-FFFFFF/loop/internal/progress"
	"github.com/matt-FFFFFF/loop/internal/teereader"
)

const (
	durationRounding = 100 * time.Millisecond // Round durations to 100ms
	minDetailWidth   = 10
)

// ProgressEventMsg wraps a progress event for the tea framework.
type ProgressEventMsg struct {
	Event progress.Event
}

// RunCompletedMsg indicates that every directory has finished.
type RunCompletedMsg struct {
	Err error
}

// Init implements bubbletea.Model.Init.
func (m *Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update implements bubbletea.Model.Update.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd

		m.spinner, cmd = m.spinner.Update(msg)

		return m, cmd

	case ProgressEventMsg:
		m.applyEvent(msg.Event)
		return m, nil

	case RunCompletedMsg:
		m.completed = true
		m.runErr = msg.Err

		return m, tea.Quit
	}

	return m, nil
}

// handleKeyPress processes keyboard input.
func (m *Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true

		if !m.completed && m.cancel != nil {
			m.cancel()
		}

		return m, tea.Quit
	}

	return m, nil
}

// View implements bubbletea.Model.View.
func (m *Model) View() string {
	var view strings.Builder

	view.WriteString(m.styles.Title.Render("loop: " + m.title))
	view.WriteString("\n")

	now := time.Now()
	for _, n := range m.nodes {
		m.renderNode(&view, n, now)
	}

	view.WriteString("\n")
	view.WriteString(m.renderStatus())
	view.WriteString("\n")

	if !m.completed && !m.quitting {
		view.WriteString(m.styles.Help.Render("'q' or ctrl+c to cancel"))
		view.WriteString("\n")
	}

	return view.String()
}

func (m *Model) renderNode(b *strings.Builder, n *TargetNode, now time.Time) {
	var icon, name string

	switch n.Status {
	case StatusRunning:
		icon = m.spinner.View()
		name = m.styles.Running.Render(n.Directory)
	case StatusSuccess:
		icon = m.styles.Success.Render("✓")
		name = m.styles.Success.Render(n.Directory)
	case StatusFailed:
		icon = m.styles.Failed.Render("✗")
		name = m.styles.Failed.Render(n.Directory)
	case StatusSkipped:
		icon = m.styles.Skipped.Render("~")
		name = m.styles.Skipped.Render(n.Directory)
	default:
		icon = m.styles.Pending.Render("·")
		name = m.styles.Pending.Render(n.Directory)
	}

	line := icon + " " + name

	if elapsed := n.Elapsed(now); elapsed > 0 {
		line += m.styles.Detail.Render(fmt.Sprintf(" (%v)", elapsed.Round(durationRounding)))
	}

	switch n.Status {
	case StatusRunning:
		if n.LastLine != "" {
			line += " " + m.styles.Detail.Render(m.truncate(n.LastLine, line))
		}
	case StatusFailed:
		line += " " + m.styles.Error.Render(m.truncate(
			fmt.Sprintf("exit code %d: %s", n.ExitCode, firstLine(n.ErrorMsg)), line))
	case StatusSkipped:
		if n.ErrorMsg != "" {
			line += " " + m.styles.Detail.Render(m.truncate(n.ErrorMsg, line))
		}
	}

	b.WriteString(line)
	b.WriteString("\n")
}

// truncate shortens s to the width left after prefix.
func (m *Model) truncate(s, prefix string) string {
	if m.width == 0 {
		return s
	}

	avail := max(m.width-lipgloss.Width(prefix)-1, minDetailWidth)

	return teereader.Truncate(s, avail)
}

func (m *Model) renderStatus() string {
	counts := m.Counts()
	done := counts[StatusSuccess] + counts[StatusFailed] + counts[StatusSkipped]

	status := fmt.Sprintf("%d/%d done, %d running, %d failed",
		done, len(m.nodes), counts[StatusRunning], counts[StatusFailed])

	if counts[StatusSkipped] > 0 {
		status += fmt.Sprintf(", %d skipped", counts[StatusSkipped])
	}

	switch {
	case m.completed && m.runErr == nil:
		return m.styles.Success.Render(status)
	case m.completed, counts[StatusFailed] > 0:
		return m.styles.Failed.Render(status)
	default:
		return status
	}
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
