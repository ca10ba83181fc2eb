// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package runbatch

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/hashicorp/go-multierror"
)

var (
	// ErrCommandFailed is wrapped by the error of every target that exited non-zero
	// or was stopped before it could exit.
	ErrCommandFailed = errors.New("command failed")
	// ErrNotAttempted is reported for targets a sequential run never reached.
	ErrNotAttempted = errors.New("not attempted")
)

// ExecutionError aggregates the failed targets of a run.
// It is returned by Execute when at least one target failed or was not attempted.
type ExecutionError struct {
	Failed       Results  // Targets that ran and failed
	NotAttempted []string // Targets that were never started
	merr         *multierror.Error
}

func newExecutionError(failed Results, notAttempted []string) *ExecutionError {
	var merr *multierror.Error

	for _, r := range failed {
		merr = multierror.Append(merr, &targetError{
			directory: r.Directory,
			exitCode:  r.ExitCode,
			err:       r.Error,
		})
	}

	for _, dir := range notAttempted {
		merr = multierror.Append(merr, &targetError{
			directory: dir,
			exitCode:  -1,
			err:       ErrNotAttempted,
		})
	}

	if merr != nil {
		merr.ErrorFormat = formatExecutionErrors
	}

	return &ExecutionError{
		Failed:       failed,
		NotAttempted: notAttempted,
		merr:         merr,
	}
}

// Error implements the error interface.
func (e *ExecutionError) Error() string {
	if e.merr == nil {
		return "execution failed"
	}

	return e.merr.Error()
}

// Unwrap returns the per target errors.
func (e *ExecutionError) Unwrap() []error {
	if e.merr == nil {
		return nil
	}

	return e.merr.WrappedErrors()
}

type targetError struct {
	directory string
	exitCode  int
	err       error
}

func (e *targetError) Error() string {
	if errors.Is(e.err, ErrNotAttempted) {
		return e.directory + ": " + ErrNotAttempted.Error()
	}

	return "Command failed in directory: " + e.directory + " (exit code: " + strconv.Itoa(e.exitCode) + "): " + errString(e.err)
}

func (e *targetError) Unwrap() error {
	return e.err
}

func errString(err error) string {
	if err == nil {
		return "<nil>"
	}

	return strings.ReplaceAll(err.Error(), "\n", "; ")
}

func formatExecutionErrors(errs []error) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "execution failed in %d director", len(errs)) //nolint:errcheck
	if len(errs) == 1 {
		sb.WriteString("y:\n")
	} else {
		sb.WriteString("ies:\n")
	}

	for _, err := range errs {
		sb.WriteString("  * ")
		sb.WriteString(err.Error())
		sb.WriteString("\n")
	}

	return sb.String()
}
