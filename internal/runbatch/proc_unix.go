// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

//go:build !windows

package runbatch

import (
	"errors"
	"os"
	"syscall"
)

// sysProcAttr starts the child in its own process group so that a kill also
// reaches the processes the shell started.
func sysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setpgid: true}
}

func killProcessTree(ps *os.Process) error {
	if err := syscall.Kill(-ps.Pid, syscall.SIGKILL); err != nil {
		if errors.Is(err, syscall.ESRCH) {
			return os.ErrProcessDone
		}

		return ps.Kill() //nolint:wrapcheck
	}

	return nil
}

func signalPs(ps *os.Process, sig os.Signal) error {
	s, ok := sig.(syscall.Signal)
	if !ok {
		return ps.Signal(sig) //nolint:wrapcheck
	}

	if err := syscall.Kill(-ps.Pid, s); err != nil {
		return ps.Signal(sig) //nolint:wrapcheck
	}

	return nil
}
