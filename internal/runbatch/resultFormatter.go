// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package runbatch

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/TylerBrock/colorjson"
	"github.com/matt-FFFFFF/loop/internal/color"
)

const (
	jsonIndent   = 2
	outputIndent = "     "
)

// WriteTargetResult writes the status line, exit code, standard output and
// standard error of one result as a single write.
func WriteTargetResult(w io.Writer, r *Result) error {
	var buf bytes.Buffer

	writeResult(&buf, r)

	_, err := w.Write(buf.Bytes())

	return err //nolint:wrapcheck
}

func writeExecuting(w io.Writer, dir string) error {
	_, err := fmt.Fprintf(w, "Executing in directory: %s\n", dir)
	return err //nolint:wrapcheck
}

func writeResult(w *bytes.Buffer, r *Result) {
	var statusStr, labelColor string

	switch r.Status {
	case ResultStatusSuccess:
		statusStr = color.Colorize("✓", color.FgGreen)
		labelColor = color.Colorize(r.Directory, color.Bold, color.FgGreen)
	case ResultStatusError:
		statusStr = color.Colorize("✗", color.FgRed)
		labelColor = color.Colorize(r.Directory, color.Bold, color.FgRed)
	default:
		statusStr = color.Colorize("?", color.FgWhite)
		labelColor = r.Directory
	}

	fmt.Fprintf(w, "%s %s (exit code: %d)\n", statusStr, labelColor, r.ExitCode) //nolint:errcheck

	if r.Error != nil {
		fmt.Fprintf(w, "  %s %s\n", color.Colorize("➜ Error:", color.FgRed), errString(r.Error)) //nolint:errcheck
	}

	if len(r.StdOut) > 0 {
		w.WriteString("  ➜ Output:\n")
		w.WriteString(formatOutput(r.StdOut, outputIndent))
	}

	if len(r.StdErr) > 0 {
		fmt.Fprintf(w, "  %s\n", color.Colorize("➜ Error Output:", color.FgHiRed)) //nolint:errcheck
		w.WriteString(formatOutput(r.StdErr, outputIndent))
	}
}

// formatOutput formats multi-line output with proper indentation.
func formatOutput(output []byte, indent string) string {
	sb := strings.Builder{}
	lines := strings.Split(strings.TrimRight(string(output), "\n"), "\n")
	sb.Grow(len(output) + len(lines)*len(indent)) // Preallocate enough space

	for _, line := range lines {
		if line == "" {
			sb.WriteString("\n") // Preserve empty lines
			continue
		}

		sb.WriteString(indent)
		sb.WriteString(line)
		sb.WriteString("\n")
	}

	return sb.String()
}

// WriteSummary writes a one line count of succeeded and failed targets,
// followed by the directories that failed. notAttempted is the number of
// targets that never ran.
func (r Results) WriteSummary(w io.Writer, notAttempted int) error {
	failed := r.Failed()
	succeeded := len(r) - len(failed)

	var buf bytes.Buffer

	fmt.Fprintf(&buf, "%s succeeded, %s failed", //nolint:errcheck
		color.Colorize(fmt.Sprint(succeeded), color.FgGreen),
		color.Colorize(fmt.Sprint(len(failed)), color.FgRed))

	if notAttempted > 0 {
		fmt.Fprintf(&buf, ", %s not attempted", color.Colorize(fmt.Sprint(notAttempted), color.FgYellow)) //nolint:errcheck
	}

	buf.WriteString("\n")

	for _, f := range failed {
		fmt.Fprintf(&buf, "Command failed in directory: %s\n", f.Directory) //nolint:errcheck
	}

	_, err := w.Write(buf.Bytes())

	return err //nolint:wrapcheck
}

type jsonResult struct {
	Directory  string `json:"directory"`
	Status     string `json:"status"`
	ExitCode   int    `json:"exit_code"`
	Stdout     string `json:"stdout"`
	Stderr     string `json:"stderr"`
	Error      string `json:"error,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

// WriteJSON writes the results as a JSON array. Output is colourised with
// colorjson when colour is enabled.
func (r Results) WriteJSON(w io.Writer) error {
	items := make([]any, 0, len(r))

	for _, res := range r {
		jr := jsonResult{
			Directory:  res.Directory,
			Status:     res.Status.String(),
			ExitCode:   res.ExitCode,
			Stdout:     string(res.StdOut),
			Stderr:     string(res.StdErr),
			DurationMS: res.Duration.Milliseconds(),
		}

		if res.Error != nil {
			jr.Error = res.Error.Error()
		}

		// colorjson renders generic values, so go through a map.
		b, err := json.Marshal(jr)
		if err != nil {
			return err //nolint:wrapcheck
		}

		var m map[string]any
		if err := json.Unmarshal(b, &m); err != nil {
			return err //nolint:wrapcheck
		}

		items = append(items, m)
	}

	f := colorjson.NewFormatter()
	f.Indent = jsonIndent
	f.DisabledColor = !color.Enabled()

	out, err := f.Marshal(items)
	if err != nil {
		return err //nolint:wrapcheck
	}

	out = append(out, '\n')

	_, err = w.Write(out)

	return err //nolint:wrapcheck
}
