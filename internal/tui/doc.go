// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package tui renders a live view of a loop run: one line per directory with
// its state, elapsed time and, for failures, the error. It is driven by
// progress events and quits on its own once the run completes.
package tui
