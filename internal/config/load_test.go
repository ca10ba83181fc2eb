// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package config

import (
	"context"
	"io/fs"
	"testing"

	"github.com/prashantv/gostub"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stubFS(t *testing.T, files map[string]string) {
	t.Helper()

	memFS := afero.NewMemMapFs()
	for name, content := range files {
		require.NoError(t, afero.WriteFile(memFS, name, []byte(content), 0o644))
	}

	stubs := gostub.Stub(&FS, memFS)
	t.Cleanup(stubs.Reset)
}

func TestLoad_DefaultFileMissing(t *testing.T) {
	stubFS(t, nil)

	cfg, err := Load(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_DefaultFilePresent(t *testing.T) {
	stubFS(t, map[string]string{
		DefaultFileName: `{"directories":["a","b"],"parallel":true}`,
	})

	cfg, err := Load(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, cfg.Directories)
	assert.True(t, cfg.Parallel)
	assert.Equal(t, []string{".git"}, cfg.Ignore)
}

func TestLoad_ExplicitFileMissing(t *testing.T) {
	stubFS(t, nil)

	_, err := Load(context.Background(), "/etc/loop/custom.yaml")
	require.Error(t, err)

	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "/etc/loop/custom.yaml", cfgErr.Path)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestLoad_ExplicitHCLFile(t *testing.T) {
	stubFS(t, map[string]string{
		"/work/loop.hcl": `silent = true`,
	})

	cfg, err := Load(context.Background(), "/work/loop.hcl")
	require.NoError(t, err)
	assert.True(t, cfg.Silent)
}

func TestIsGetterURL(t *testing.T) {
	assert.True(t, IsGetterURL("git::https://github.com/org/repo//.looprc"))
	assert.True(t, IsGetterURL("https://example.com/looprc.yaml"))
	assert.False(t, IsGetterURL(".looprc"))
	assert.False(t, IsGetterURL("/home/me/projects/.looprc"))
}

func TestSplitFileNameFromGetterURL(t *testing.T) {
	tests := []struct {
		url      string
		wantURL  string
		wantFile string
	}{
		{
			url:      "git::https://github.com/org/repo//.looprc",
			wantURL:  "git::https://github.com/org/repo",
			wantFile: ".looprc",
		},
		{
			url:      "git::https://github.com/org/repo//configs/loop.yaml?ref=v1.2.0",
			wantURL:  "git::https://github.com/org/repo//configs?ref=v1.2.0",
			wantFile: "loop.yaml",
		},
		{
			url: "https://example.com/looprc.yaml",
		},
		{
			url: "git::https://github.com/org/repo//configs/",
		},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			gotURL, gotFile := splitFileNameFromGetterURL(tt.url)
			assert.Equal(t, tt.wantURL, gotURL)
			assert.Equal(t, tt.wantFile, gotFile)
		})
	}
}
