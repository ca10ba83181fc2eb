// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-getter/v2"
	"github.com/matt-FFFFFF/loop/internal/ctxlog"
	"github.com/spf13/afero"
)

// FS is the filesystem local configuration files are read from.
var FS = afero.NewOsFs()

// ErrGetConfigFile is returned when a remote configuration cannot be fetched.
var ErrGetConfigFile = errors.New("failed to get config file")

const (
	goGetterForcedSeparator = "::"
	goGetterSchemeSeparator = "://"
	goGetterPathSeparator   = "//"
	goGetterRefSeparator    = "?"
	minimumGetterParts      = 3 // scheme, host and path
)

// Load reads and parses the configuration at path.
//
// An empty path means DefaultFileName; when that file does not exist the
// defaults are returned. An explicitly named file that cannot be read is a
// *ConfigError.
func Load(ctx context.Context, path string) (Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultFileName
	}

	logger := ctxlog.Logger(ctx).With("configPath", path)

	data, err := read(ctx, path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			logger.Debug("no configuration file, using defaults")
			return Default(), nil
		}

		return Config{}, &ConfigError{Path: path, Err: err}
	}

	cfg, err := Parse(path, data)
	if err != nil {
		return Config{}, err
	}

	logger.Debug("configuration loaded",
		"directories", cfg.Directories,
		"ignore", cfg.Ignore,
		"parallel", cfg.Parallel)

	return cfg, nil
}

func read(ctx context.Context, path string) ([]byte, error) {
	if IsGetterURL(path) {
		return getURL(ctx, path)
	}

	return afero.ReadFile(FS, path) //nolint:wrapcheck
}

// IsGetterURL reports whether path must be fetched with go-getter rather
// than read from the local filesystem.
func IsGetterURL(path string) bool {
	return strings.Contains(path, goGetterForcedSeparator) || strings.Contains(path, goGetterSchemeSeparator)
}

// getURL fetches url into a temporary directory and returns the file content.
// Sources with a `//` sub-path are fetched as a directory, everything else as
// a single file.
func getURL(ctx context.Context, url string) ([]byte, error) {
	tmpDir, err := os.MkdirTemp("", "loop-getter-*")
	if err != nil {
		return nil, errors.Join(ErrGetConfigFile, err)
	}

	defer os.RemoveAll(tmpDir) //nolint:errcheck

	wd, err := os.Getwd()
	if err != nil {
		return nil, errors.Join(ErrGetConfigFile, err)
	}

	client := getter.Client{
		DisableSymlinks: true,
	}

	req := &getter.Request{
		Src:     url,
		Dst:     filepath.Join(tmpDir, "config"),
		Pwd:     wd,
		GetMode: getter.ModeFile,
	}

	fileName := ""

	if src, name := splitFileNameFromGetterURL(url); src != "" && name != "" {
		req.Src = src
		req.Dst = filepath.Join(tmpDir, "dir")
		req.GetMode = getter.ModeDir
		fileName = name
	}

	ctxlog.Debug(ctx, "fetching configuration", "src", req.Src, "mode", req.GetMode)

	res, err := client.Get(ctx, req)
	if err != nil {
		return nil, errors.Join(ErrGetConfigFile, err)
	}

	target := res.Dst
	if fileName != "" {
		target = filepath.Join(res.Dst, fileName)
	}

	b, err := os.ReadFile(target)
	if err != nil {
		return nil, errors.Join(ErrGetConfigFile, fmt.Errorf("reading fetched file: %w", err))
	}

	return b, nil
}

// splitFileNameFromGetterURL splits a `source//dir/file?ref=x` URL into the
// directory source (keeping any query) and the file name.
// Both results are empty when the URL has no sub-path.
func splitFileNameFromGetterURL(url string) (string, string) {
	var ref string

	parts := strings.Split(url, goGetterPathSeparator)
	if len(parts) < minimumGetterParts {
		return "", ""
	}

	last := parts[len(parts)-1]
	if before, after, ok := strings.Cut(last, goGetterRefSeparator); ok {
		last, ref = before, after
	}

	if last == "" || strings.HasSuffix(last, "/") {
		return "", ""
	}

	fileName := filepath.Base(last)
	dir := filepath.Dir(last)

	if dir == "." {
		parts = parts[:len(parts)-1]
	} else {
		parts[len(parts)-1] = dir
	}

	newURL := strings.Join(parts, goGetterPathSeparator)
	if ref != "" {
		newURL += goGetterRefSeparator + ref
	}

	return newURL, fileName
}
