// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package ctxlog carries a *slog.Logger in a context.Context.
//
// The default logger writes a compact, coloured line per record to stderr, with
// attributes rendered as indented JSON. Its level is read once at start-up from
// the LOOP_LOG_LEVEL environment variable (DEBUG, INFO, WARN or ERROR) and
// defaults to WARN.
package ctxlog
