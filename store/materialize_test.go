//
// Forge Build is pleased to support the open source community by making procexec available.
//
// Copyright (C) 2026 Forge Build.  All rights reserved.
//
// procexec is licensed under the Apache License Version 2.0.
//
//

package store_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/forgebuild/procexec/digest"
	"github.com/forgebuild/procexec/store"
	"github.com/forgebuild/procexec/store/inmemory"
)

func TestMaterialize(t *testing.T) {
	ctx := context.Background()
	st := inmemory.New()

	rolandDigest, err := st.SaveBytes(ctx, []byte("roland"))
	require.NoError(t, err)
	scriptDigest, err := st.SaveBytes(ctx, []byte("#!/bin/sh\n"))
	require.NoError(t, err)

	catsDigest, err := st.SaveDirectory(ctx, &store.Directory{
		Files: []store.FileNode{{Name: "roland", Digest: rolandDigest}},
	})
	require.NoError(t, err)
	rootDigest, err := st.SaveDirectory(ctx, &store.Directory{
		Files: []store.FileNode{
			{Name: "run", Digest: scriptDigest, IsExecutable: true},
		},
		Directories: []store.DirectoryNode{{Name: "cats", Digest: catsDigest}},
	})
	require.NoError(t, err)

	root := t.TempDir()
	require.NoError(t, store.Materialize(ctx, st, root, rootDigest))

	b, err := os.ReadFile(filepath.Join(root, "cats", "roland"))
	require.NoError(t, err)
	require.Equal(t, []byte("roland"), b)

	info, err := os.Stat(filepath.Join(root, "run"))
	require.NoError(t, err)
	require.NotZero(t, info.Mode()&0o111, "executable bit must be restored")

	info, err = os.Stat(filepath.Join(root, "cats"))
	require.NoError(t, err)
	require.True(t, info.IsDir())
}

func TestMaterializeEmptyTree(t *testing.T) {
	ctx := context.Background()
	st := inmemory.New()

	_, err := st.SaveDirectory(ctx, &store.Directory{})
	require.NoError(t, err)

	root := t.TempDir()
	require.NoError(t, store.Materialize(ctx, st, root, store.EmptyDigest))

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestMaterializeMissingDigest(t *testing.T) {
	ctx := context.Background()
	st := inmemory.New()

	err := store.Materialize(ctx, st, t.TempDir(), digest.FromBytes([]byte("nope")))
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestMaterializeRejectsTraversingEntryNames(t *testing.T) {
	ctx := context.Background()
	st := inmemory.New()

	blob, err := st.SaveBytes(ctx, []byte("pwned"))
	require.NoError(t, err)
	empty, err := st.SaveDirectory(ctx, &store.Directory{})
	require.NoError(t, err)

	tests := []struct {
		name string
		dir  *store.Directory
	}{
		{
			name: "file escapes upward",
			dir: &store.Directory{
				Files: []store.FileNode{{Name: "../escaped", Digest: blob}},
			},
		},
		{
			name: "file name with separator",
			dir: &store.Directory{
				Files: []store.FileNode{{Name: "a/b", Digest: blob}},
			},
		},
		{
			name: "directory escapes upward",
			dir: &store.Directory{
				Directories: []store.DirectoryNode{{Name: "..", Digest: empty}},
			},
		},
		{
			name: "dot directory",
			dir: &store.Directory{
				Directories: []store.DirectoryNode{{Name: ".", Digest: empty}},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := st.SaveDirectory(ctx, tt.dir)
			require.NoError(t, err)

			parent := t.TempDir()
			root := filepath.Join(parent, "sandbox")
			require.NoError(t, os.Mkdir(root, 0o755))

			err = store.Materialize(ctx, st, root, d)
			var corrupt *store.CorruptTreeError
			require.True(t, errors.As(err, &corrupt))

			// Nothing may have been written outside the root.
			entries, readErr := os.ReadDir(parent)
			require.NoError(t, readErr)
			require.Len(t, entries, 1)
			require.Equal(t, "sandbox", entries[0].Name())
		})
	}
}

func TestMaterializeMissingFileBlob(t *testing.T) {
	ctx := context.Background()
	st := inmemory.New()

	// A directory referencing a blob that was never stored.
	d, err := st.SaveDirectory(ctx, &store.Directory{
		Files: []store.FileNode{{Name: "ghost", Digest: digest.FromBytes([]byte("ghost"))}},
	})
	require.NoError(t, err)

	err = store.Materialize(ctx, st, t.TempDir(), d)
	require.ErrorIs(t, err, store.ErrNotFound)
	require.Contains(t, err.Error(), "ghost")
}
