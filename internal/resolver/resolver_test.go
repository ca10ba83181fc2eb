// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package resolver

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/prashantv/gostub"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// makeTree creates the directories under root and returns root.
func makeTree(t *testing.T, dirs ...string) string {
	t.Helper()

	root := t.TempDir()
	for _, d := range dirs {
		require.NoError(t, os.MkdirAll(filepath.Join(root, d), 0o755))
	}

	return root
}

func skipWithoutSymlinks(t *testing.T) {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("symbolic links need elevated privileges on windows")
	}
}

func joinAll(root string, rel ...string) []string {
	out := make([]string, 0, len(rel))
	for _, r := range rel {
		if r == "" {
			out = append(out, root)
			continue
		}

		out = append(out, filepath.Join(root, r))
	}

	return out
}

func TestExpand_LexicalOrderAndIgnore(t *testing.T) {
	root := makeTree(t,
		"b/c",
		"a/.github/workflows",
		"a/src",
		".git/objects",
		"node_modules/pkg",
	)
	require.NoError(t, os.WriteFile(filepath.Join(root, "a", "file.txt"), []byte("x"), 0o644))

	got, err := Expand(context.Background(), []string{root}, []string{".git", "node_modules"})
	require.NoError(t, err)

	assert.Equal(t, joinAll(root, "", "a", "a/src", "b", "b/c"), got)
}

func TestExpand_IgnoredDirectoryHidesDescendants(t *testing.T) {
	root := makeTree(t, "vendor/one/two", "keep")

	got, err := Expand(context.Background(), []string{root}, []string{"vendor"})
	require.NoError(t, err)

	for _, p := range got {
		assert.NotContains(t, p, "vendor")
	}

	assert.Equal(t, joinAll(root, "", "keep"), got)
}

func TestExpand_IgnoredRoot(t *testing.T) {
	stubs := gostub.Stub(&FS, afero.NewMemMapFs())
	defer stubs.Reset()

	got, err := Expand(context.Background(), []string{"/src/.git/hooks", "/missing/vendor"}, []string{".git", "vendor"})
	require.NoError(t, err, "ignored roots are never read")
	assert.Empty(t, got)
}

func TestExpand_NoIgnorePatterns(t *testing.T) {
	root := makeTree(t, ".git/refs")

	got, err := Expand(context.Background(), []string{root}, nil)
	require.NoError(t, err)
	assert.Equal(t, joinAll(root, "", ".git", ".git/refs"), got)
}

func TestExpand_Idempotent(t *testing.T) {
	root := makeTree(t, "x/y", "z")

	first, err := Expand(context.Background(), []string{root}, []string{".git"})
	require.NoError(t, err)

	second, err := Expand(context.Background(), []string{root}, []string{".git"})
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestExpand_OverlappingRootsHaveNoDuplicates(t *testing.T) {
	root := makeTree(t, "a/b", "c")

	got, err := Expand(context.Background(), []string{root, filepath.Join(root, "a"), root}, nil)
	require.NoError(t, err)

	assert.Equal(t, joinAll(root, "", "a", "a/b", "c"), got)
}

func TestExpand_SymlinkCycleTerminates(t *testing.T) {
	skipWithoutSymlinks(t)

	root := makeTree(t, "a/b")
	require.NoError(t, os.Symlink(root, filepath.Join(root, "a", "b", "back")))

	got, err := Expand(context.Background(), []string{root}, nil)
	require.NoError(t, err)

	assert.Equal(t, joinAll(root, "", "a", "a/b"), got)
}

func TestExpand_FollowsSymlinkOutsideRoot(t *testing.T) {
	skipWithoutSymlinks(t)

	root := makeTree(t, "local")
	external := makeTree(t, "inner")
	require.NoError(t, os.Symlink(external, filepath.Join(root, "linked")))

	got, err := Expand(context.Background(), []string{root}, nil)
	require.NoError(t, err)

	assert.Equal(t, joinAll(root, "", "linked", "linked/inner", "local"), got)
}

func TestExpand_LinkToLaterRootKeepsThatRoot(t *testing.T) {
	skipWithoutSymlinks(t)

	root := makeTree(t, "a/b", "c")
	require.NoError(t, os.Symlink("..", filepath.Join(root, "a", "b", "up")))
	require.NoError(t, os.Symlink(filepath.Join(root, "c"), filepath.Join(root, "a", "lc")))

	a := filepath.Join(root, "a")
	ab := filepath.Join(root, "a", "b")

	got, err := Expand(context.Background(), []string{ab, a, ab}, []string{".git"})
	require.NoError(t, err)

	assert.Equal(t, joinAll(root, "a/b", "a", "a/lc"), got)
}

func TestExpand_AliasedRootsAreBothListed(t *testing.T) {
	skipWithoutSymlinks(t)

	root := makeTree(t, "a/x")
	link := filepath.Join(root, "link")
	require.NoError(t, os.Symlink(filepath.Join(root, "a"), link))

	got, err := Expand(context.Background(), []string{filepath.Join(root, "a"), link}, nil)
	require.NoError(t, err)

	assert.Equal(t, joinAll(root, "a", "a/x", "link"), got, "the alias is listed but not expanded again")
}

func TestExpand_SymlinkToFileAndDanglingLinkSkipped(t *testing.T) {
	skipWithoutSymlinks(t)

	root := makeTree(t, "d")
	file := filepath.Join(root, "file.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	require.NoError(t, os.Symlink(file, filepath.Join(root, "filelink")))
	require.NoError(t, os.Symlink(filepath.Join(root, "nowhere"), filepath.Join(root, "dangling")))

	got, err := Expand(context.Background(), []string{root}, nil)
	require.NoError(t, err)

	assert.Equal(t, joinAll(root, "", "d"), got)
}

func TestExpand_RootErrors(t *testing.T) {
	root := makeTree(t)
	file := filepath.Join(root, "plain.txt")
	require.NoError(t, os.WriteFile(file, nil, 0o644))

	tests := []struct {
		name    string
		root    string
		wantErr error
	}{
		{name: "missing", root: filepath.Join(root, "absent"), wantErr: fs.ErrNotExist},
		{name: "file", root: file, wantErr: ErrNotDirectory},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Expand(context.Background(), []string{tt.root}, nil)
			require.Error(t, err)
			assert.Nil(t, got)

			var ioErr *IOError
			require.ErrorAs(t, err, &ioErr)
			assert.Equal(t, tt.root, ioErr.Path)
			assert.ErrorIs(t, err, ErrTraversal)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Contains(t, err.Error(), tt.root)
		})
	}
}

// unreadableFs fails to open one directory.
type unreadableFs struct {
	afero.Fs
	path string
}

var errPermission = errors.New("permission denied")

func (u unreadableFs) Open(name string) (afero.File, error) {
	if name == u.path {
		return nil, &fs.PathError{Op: "open", Path: name, Err: errPermission}
	}

	return u.Fs.Open(name) //nolint:wrapcheck
}

func stubMemFS(t *testing.T, fsys afero.Fs) {
	t.Helper()

	stubs := gostub.Stub(&FS, fsys).Stub(&RealPath, func(p string) (string, error) {
		return filepath.Clean(p), nil
	})
	t.Cleanup(stubs.Reset)
}

func TestExpand_UnreadableDirectoryAborts(t *testing.T) {
	mem := afero.NewMemMapFs()
	require.NoError(t, mem.MkdirAll("/work/ok", 0o755))
	require.NoError(t, mem.MkdirAll("/work/secret/deeper", 0o755))

	stubMemFS(t, unreadableFs{Fs: mem, path: "/work/secret"})

	got, err := Expand(context.Background(), []string{"/work"}, nil)
	require.Error(t, err)
	assert.Nil(t, got, "no partial result")

	var ioErr *IOError
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, "/work/secret", ioErr.Path)
	assert.ErrorIs(t, err, errPermission)
}

func TestExpand_MemFS(t *testing.T) {
	mem := afero.NewMemMapFs()
	for _, d := range []string{"/repos/api/.git", "/repos/api/cmd", "/repos/web/.github", "/other/tool"} {
		require.NoError(t, mem.MkdirAll(d, 0o755))
	}

	stubMemFS(t, mem)

	got, err := Expand(context.Background(), []string{"/repos", "/other"}, []string{".git"})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"/repos",
		"/repos/api",
		"/repos/api/cmd",
		"/repos/web",
		"/other",
		"/other/tool",
	}, got)
}

func TestExpand_CancelledContext(t *testing.T) {
	root := makeTree(t, "a")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Expand(ctx, []string{root}, nil)
	require.ErrorIs(t, err, context.Canceled)
}

func TestExpand_NoRoots(t *testing.T) {
	got, err := Expand(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}
