// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package runbatch runs one shell command in each of a list of directories,
// either one after another or in parallel, and collects the exit status and
// output of every invocation.
//
// Sequential runs stop at the first failure and never attempt the remaining
// directories. Parallel runs let every directory finish and decide the overall
// outcome afterwards.
package runbatch
