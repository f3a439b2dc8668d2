//
// Forge Build is pleased to support the open source community by making procexec available.
//
// Copyright (C) 2026 Forge Build.  All rights reserved.
//
// procexec is licensed under the Apache License Version 2.0.
//
//

//go:build unix

package local

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/forgebuild/procexec/digest"
	"github.com/forgebuild/procexec/store"
	"github.com/forgebuild/procexec/store/inmemory"
)

func TestChildEnv(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want []string
	}{
		{
			name: "empty env gets the search path baseline",
			env:  nil,
			want: []string{"PATH=" + defaultSearchPath},
		},
		{
			name: "declared vars are sorted after the baseline",
			env:  map[string]string{"ZED": "z", "ALPHA": "a"},
			want: []string{"PATH=" + defaultSearchPath, "ALPHA=a", "ZED=z"},
		},
		{
			name: "a declared PATH suppresses the baseline",
			env:  map[string]string{"PATH": "/opt/bin"},
			want: []string{"PATH=/opt/bin"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, childEnv(tt.env))
		})
	}
}

func TestTreeBuilderEmpty(t *testing.T) {
	st := inmemory.New()
	d, err := newTreeBuilder().persist(context.Background(), st)
	require.NoError(t, err)
	require.Equal(t, store.EmptyDigest, d)
}

func TestTreeBuilderOverlapIsIdempotent(t *testing.T) {
	ctx := context.Background()
	st := inmemory.New()
	blob, err := st.SaveBytes(ctx, []byte("roland"))
	require.NoError(t, err)

	build := func(twice bool) digest.Digest {
		b := newTreeBuilder()
		b.addDir("cats")
		b.addFile("cats/roland", blob, false)
		if twice {
			// Overlapping declarations register the same entries again.
			b.addFile("cats/roland", blob, false)
			b.addDir("cats")
		}
		d, err := b.persist(ctx, st)
		require.NoError(t, err)
		return d
	}
	require.Equal(t, build(false), build(true))
}

func TestTreeBuilderDirectoryWinsOverFileName(t *testing.T) {
	ctx := context.Background()
	st := inmemory.New()
	blob, err := st.SaveBytes(ctx, []byte("x"))
	require.NoError(t, err)

	b := newTreeBuilder()
	b.addFile("cats", blob, false)
	b.addDir("cats")
	d, err := b.persist(ctx, st)
	require.NoError(t, err)

	dir, err := st.LoadDirectory(ctx, d)
	require.NoError(t, err)
	require.Empty(t, dir.Files)
	require.Len(t, dir.Directories, 1)
	require.Equal(t, "cats", dir.Directories[0].Name)
}
