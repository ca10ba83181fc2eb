// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package config

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

const (
	// DefaultFileName is looked up in the working directory when no file is given.
	DefaultFileName = ".looprc"
	// DefaultIgnore hides version control metadata directories.
	DefaultIgnore = ".git"
	// CurrentDirectory is the root expanded when no directories are configured.
	CurrentDirectory = "."
)

var (
	// ErrEmptyIgnorePattern is returned when an ignore pattern is empty.
	// An empty substring matches every path.
	ErrEmptyIgnorePattern = errors.New("empty ignore pattern would match every directory")
	// ErrNegativeValue is returned for a negative timeout or parallelism bound.
	ErrNegativeValue = errors.New("value must not be negative")
)

// ConfigError is a fatal configuration problem, reported before any directory
// is resolved or command executed.
type ConfigError struct {
	Path string
	Err  error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Config is the resolved configuration for one invocation.
// Callers build it once and hand it to the resolver and executor read-only.
type Config struct {
	Directories []string      `yaml:"directories"`
	Ignore      []string      `yaml:"ignore"`
	Verbose     bool          `yaml:"verbose"`
	Silent      bool          `yaml:"silent"`
	Parallel    bool          `yaml:"parallel"`
	Timeout     time.Duration `yaml:"timeout,omitempty"`
	MaxParallel int           `yaml:"max_parallel,omitempty"`
	FailFast    bool          `yaml:"fail_fast,omitempty"`
}

// Default returns a configuration populated with the documented defaults:
// no explicit directories, `.git` ignored, every switch off.
func Default() Config {
	return Config{
		Directories: []string{},
		Ignore:      []string{DefaultIgnore},
	}
}

// Roots returns the directories to expand, falling back to the current directory.
func (c Config) Roots() []string {
	if len(c.Directories) == 0 {
		return []string{CurrentDirectory}
	}

	return slices.Clone(c.Directories)
}

// Validate checks invariants that decoding alone cannot enforce.
func (c Config) Validate() error {
	for i, p := range c.Ignore {
		if p == "" {
			return fmt.Errorf("ignore[%d]: %w", i, ErrEmptyIgnorePattern)
		}
	}

	if c.Timeout < 0 {
		return fmt.Errorf("timeout: %w", ErrNegativeValue)
	}

	if c.MaxParallel < 0 {
		return fmt.Errorf("max_parallel: %w", ErrNegativeValue)
	}

	return nil
}

// Overrides are command line values layered on top of a loaded file.
// Nil slices and zero values leave the file value untouched.
type Overrides struct {
	Include     []string // replaces Directories
	Exclude     []string // appended to Ignore
	Verbose     bool
	Silent      bool
	Parallel    bool
	FailFast    bool
	Timeout     time.Duration
	MaxParallel int
}

// Merge returns a new Config with o applied. c is not modified.
func (c Config) Merge(o Overrides) Config {
	out := c
	out.Directories = slices.Clone(c.Directories)
	out.Ignore = slices.Clone(c.Ignore)

	if len(o.Include) > 0 {
		out.Directories = slices.Clone(o.Include)
	}

	out.Ignore = append(out.Ignore, o.Exclude...)
	out.Verbose = c.Verbose || o.Verbose
	out.Silent = c.Silent || o.Silent
	out.Parallel = c.Parallel || o.Parallel
	out.FailFast = c.FailFast || o.FailFast

	if o.Timeout > 0 {
		out.Timeout = o.Timeout
	}

	if o.MaxParallel > 0 {
		out.MaxParallel = o.MaxParallel
	}

	return out
}
