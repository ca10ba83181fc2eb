// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package progress reports the lifecycle of each target directory while a
// command fans out: pending, started, then completed, failed or skipped.
// The terminal UI is the main consumer.
package progress
