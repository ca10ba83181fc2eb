// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package resolver

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/matt-FFFFFF/loop/internal/ctxlog"
	"github.com/spf13/afero"
)

var (
	// FS is the filesystem directories are resolved against.
	FS = afero.NewOsFs()

	// RealPath returns the canonical form of a directory, with every symbolic
	// link evaluated. Two paths with the same canonical form are the same
	// physical directory.
	RealPath = canonicalPath
)

var (
	// ErrTraversal is wrapped by every IOError.
	ErrTraversal = errors.New("directory traversal failed")
	// ErrNotDirectory is returned when a root is not a directory.
	ErrNotDirectory = errors.New("not a directory")
)

// IOError is a root or directory that could not be read.
// Resolution stops at the first IOError and returns no partial result.
type IOError struct {
	Path string
	Err  error
}

// Error implements the error interface.
func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", ErrTraversal, e.Path, e.Err)
}

// Unwrap returns ErrTraversal and the underlying error.
func (e *IOError) Unwrap() []error {
	return []error{ErrTraversal, e.Err}
}

// Expand resolves roots into a deduplicated list of directories.
//
// Each root that does not match an ignore pattern is included under the name
// it was given, followed by every directory beneath it in lexical order.
// Symbolic links are followed; a physical directory is only entered once, so
// link cycles terminate. A link to a root that has yet to be expanded is left
// for that root. An ignored directory contributes neither itself nor its
// descendants.
func Expand(ctx context.Context, roots []string, ignore []string) ([]string, error) {
	w := &walker{
		ignore:  ignore,
		visited: make(map[string]struct{}),
		pending: make(map[string]int),
		seen:    make(map[string]struct{}),
		out:     make([]string, 0, len(roots)),
	}

	resolved := make([]rootDir, 0, len(roots))

	for _, root := range roots {
		if err := ctx.Err(); err != nil {
			return nil, err //nolint:wrapcheck
		}

		if w.ignored(root) {
			ctxlog.Debug(ctx, "root ignored", "root", root)
			continue
		}

		info, err := FS.Stat(root)
		if err != nil {
			return nil, &IOError{Path: root, Err: err}
		}

		if !info.IsDir() {
			return nil, &IOError{Path: root, Err: ErrNotDirectory}
		}

		canonical, err := RealPath(root)
		if err != nil {
			return nil, &IOError{Path: root, Err: err}
		}

		w.pending[canonical]++
		resolved = append(resolved, rootDir{path: root, canonical: canonical})
	}

	for _, root := range resolved {
		w.pending[root.canonical]--
		w.emit(root.path)

		if _, ok := w.visited[root.canonical]; ok {
			ctxlog.Debug(ctx, "root already expanded", "root", root.path, "canonical", root.canonical)
			continue
		}

		if err := w.walk(ctx, root.path, root.canonical); err != nil {
			return nil, err
		}
	}

	ctxlog.Debug(ctx, "directories resolved", "roots", roots, "count", len(w.out))

	return w.out, nil
}

type rootDir struct {
	path      string
	canonical string
}

type walker struct {
	ignore  []string
	visited map[string]struct{} // canonical paths already entered
	pending map[string]int      // canonical paths of roots not yet expanded
	seen    map[string]struct{} // emitted paths
	out     []string
}

// ignored reports whether path contains any ignore pattern.
func (w *walker) ignored(path string) bool {
	for _, p := range w.ignore {
		if strings.Contains(path, p) {
			return true
		}
	}

	return false
}

// walk enters dir, which has already been emitted, and expands its children.
func (w *walker) walk(ctx context.Context, dir, canonical string) error {
	w.visited[canonical] = struct{}{}

	entries, err := afero.ReadDir(FS, dir)
	if err != nil {
		return &IOError{Path: dir, Err: err}
	}

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err //nolint:wrapcheck
		}

		path := filepath.Join(dir, entry.Name())

		isDir, isLink, err := isDirectory(entry, path)
		if err != nil {
			return err
		}

		if !isDir {
			continue
		}

		if w.ignored(path) {
			ctxlog.Debug(ctx, "directory ignored", "path", path)
			continue
		}

		childCanonical, err := RealPath(path)
		if err != nil {
			return &IOError{Path: path, Err: err}
		}

		if _, ok := w.visited[childCanonical]; ok {
			ctxlog.Debug(ctx, "directory already visited", "path", path, "canonical", childCanonical)
			continue
		}

		if isLink && w.pending[childCanonical] > 0 {
			ctxlog.Debug(ctx, "link to a later root", "path", path, "canonical", childCanonical)
			continue
		}

		w.emit(path)

		if err := w.walk(ctx, path, childCanonical); err != nil {
			return err
		}
	}

	return nil
}

func (w *walker) emit(dir string) {
	if _, ok := w.seen[dir]; ok {
		return
	}

	w.seen[dir] = struct{}{}
	w.out = append(w.out, dir)
}

// isDirectory reports whether entry is a directory, following symbolic links,
// and whether it is a link. Dangling links are not directories.
func isDirectory(entry fs.FileInfo, path string) (bool, bool, error) {
	if entry.Mode()&fs.ModeSymlink == 0 {
		return entry.IsDir(), false, nil
	}

	target, err := FS.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, true, nil
		}

		return false, true, &IOError{Path: path, Err: err}
	}

	return target.IsDir(), true, nil
}

func canonicalPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err //nolint:wrapcheck
	}

	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", err //nolint:wrapcheck
	}

	return resolved, nil
}
