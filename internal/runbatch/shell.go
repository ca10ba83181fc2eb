// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package runbatch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"time"

	"github.com/matt-FFFFFF/loop/internal/ctxlog"
)

const (
	goosWindows          = "windows"    // GOOS value for Windows
	commandSwitchWindows = "/C"         // Command switch for Windows cmd.exe
	commandSwitchUnix    = "-c"         // Command switch for Unix-like shells
	winSystem32          = "System32"   // Directory where cmd.exe is located on Windows
	cmdExe               = "cmd.exe"    // Command interpreter executable on Windows
	sh                   = "sh"         // POSIX shell looked up in PATH
	binSh                = "/bin/sh"    // Fallback when sh is not in PATH
	winSystemRootEnv     = "SystemRoot" // Environment variable for Windows system root directory
)

// ErrEmptyCommand is returned when the command string is empty.
var ErrEmptyCommand = errors.New("command must not be empty")

// NewShellCommand returns an OSCommand that runs command through the system
// shell in dir: `sh -c command`, or `cmd.exe /C command` on Windows.
func NewShellCommand(ctx context.Context, dir, command string, env map[string]string, timeout time.Duration) (*OSCommand, error) {
	if command == "" {
		return nil, ErrEmptyCommand
	}

	var args []string

	switch runtime.GOOS {
	case goosWindows:
		args = []string{commandSwitchWindows, command}
	default:
		args = []string{commandSwitchUnix, command}
	}

	return &OSCommand{
		Label:   dir,
		Path:    defaultShell(ctx),
		Args:    args,
		Cwd:     dir,
		Env:     env,
		Timeout: timeout,
	}, nil
}

func defaultShell(ctx context.Context) string {
	if runtime.GOOS == goosWindows {
		systemRoot := os.Getenv(winSystemRootEnv)
		if systemRoot == "" {
			systemRoot = `C:\Windows`
		}

		return fmt.Sprintf(`%s\%s\%s`, systemRoot, winSystem32, cmdExe)
	}

	path, err := exec.LookPath(sh)
	if err != nil {
		ctxlog.Debug(ctx, "sh not found in PATH, using fallback", "shell", binSh, "error", err)
		return binSh
	}

	return path
}
