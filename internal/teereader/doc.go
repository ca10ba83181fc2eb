// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package teereader watches the output of a running command as it is read and
// reports the most recent line, so progress displays can show what a directory
// is doing without waiting for the command to exit.
package teereader
