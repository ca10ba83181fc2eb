// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package runbatch

import (
	"slices"
	"strings"
	"time"
)

// ResultStatus is the terminal state of a target.
type ResultStatus int

const (
	// ResultStatusUnknown is the zero value, the target has not finished.
	ResultStatusUnknown ResultStatus = iota
	// ResultStatusSuccess means the command exited zero.
	ResultStatusSuccess
	// ResultStatusError means the command could not be started or exited non-zero.
	ResultStatusError
)

// String implements fmt.Stringer.
func (s ResultStatus) String() string {
	switch s {
	case ResultStatusSuccess:
		return "success"
	case ResultStatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Result is the outcome of running the command in one directory.
type Result struct {
	Directory string        // Directory the command ran in
	ExitCode  int           // Exit code, -1 when the process did not exit normally
	StdOut    []byte        // Captured standard output
	StdErr    []byte        // Captured standard error
	Error     error         // Error, if any
	Status    ResultStatus  // Terminal status
	Duration  time.Duration // Wall time from start to exit
}

// Succeeded reports whether the target finished successfully.
func (r *Result) Succeeded() bool {
	return r != nil && r.Status == ResultStatusSuccess
}

// Results is a slice of Result pointers.
type Results []*Result

// Succeeded reports whether every result succeeded.
// An empty slice has succeeded.
func (r Results) Succeeded() bool {
	for v := range slices.Values(r) {
		if !v.Succeeded() {
			return false
		}
	}

	return true
}

// Failed returns the results that did not succeed, in order.
func (r Results) Failed() Results {
	var failed Results

	for v := range slices.Values(r) {
		if !v.Succeeded() {
			failed = append(failed, v)
		}
	}

	return failed
}

// Directories returns the directory of each result, in order.
func (r Results) Directories() []string {
	dirs := make([]string, 0, len(r))
	for v := range slices.Values(r) {
		dirs = append(dirs, v.Directory)
	}

	return dirs
}

// SortByDirectory sorts the results in place by directory.
// Parallel runs return results in completion order.
func (r Results) SortByDirectory() {
	slices.SortStableFunc(r, func(a, b *Result) int {
		return strings.Compare(a.Directory, b.Directory)
	})
}
