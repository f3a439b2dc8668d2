//
// Forge Build is pleased to support the open source community by making procexec available.
//
// Copyright (C) 2026 Forge Build.  All rights reserved.
//
// procexec is licensed under the Apache License Version 2.0.
//
//

package procexec_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/forgebuild/procexec/procexec"
)

func TestNewCacheName(t *testing.T) {
	for _, ok := range []string{"geo", "pex_root", "CACHE2", "_"} {
		_, err := procexec.NewCacheName(ok)
		require.NoError(t, err, ok)
	}
	for _, bad := range []string{"", "geo cache", "geo/cache", "geo-cache", "../geo", "géo"} {
		_, err := procexec.NewCacheName(bad)
		require.Error(t, err, bad)
		var invalid *procexec.InvalidCacheNameError
		require.True(t, errors.As(err, &invalid))
		require.Contains(t, err.Error(), bad)
	}
}

func TestNewCacheDest(t *testing.T) {
	dest, err := procexec.NewCacheDest(".cache/geo")
	require.NoError(t, err)
	require.Equal(t, procexec.CacheDest(".cache/geo"), dest)

	for _, bad := range []string{"", "/abs/cache", "../outside", "a/../../b"} {
		_, err := procexec.NewCacheDest(bad)
		require.Error(t, err, bad)
		var invalid *procexec.InvalidCacheDestinationError
		require.True(t, errors.As(err, &invalid))
	}
}

func TestNamedCachesResolveIsStable(t *testing.T) {
	root := t.TempDir()
	caches := procexec.NewNamedCaches(root)

	first, err := caches.Resolve("geo")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(root, "geo"), first)
	require.DirExists(t, first)

	// Contents written between resolutions persist: append-only
	// semantics across executions.
	require.NoError(t, os.WriteFile(filepath.Join(first, "seed"), []byte("v1"), 0o644))

	second, err := caches.Resolve("geo")
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.FileExists(t, filepath.Join(second, "seed"))
}

func TestNamedCachesResolveRejectsBadName(t *testing.T) {
	caches := procexec.NewNamedCaches(t.TempDir())
	_, err := caches.Resolve("not a name")
	require.Error(t, err)
}
