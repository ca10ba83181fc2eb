// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package resolver expands root directories into the ordered list of
// directories a command is run in.
//
// Ignore patterns are plain substrings matched against the whole path, so
// `.git` also hides `.github` and everything beneath it.
package resolver
