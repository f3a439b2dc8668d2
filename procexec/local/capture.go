//
// Forge Build is pleased to support the open source community by making procexec available.
//
// Copyright (C) 2026 Forge Build.  All rights reserved.
//
// procexec is licensed under the Apache License Version 2.0.
//
//

package local

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	ds "github.com/bmatcuk/doublestar/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/forgebuild/procexec/digest"
	"github.com/forgebuild/procexec/procexec"
	"github.com/forgebuild/procexec/store"
	atrace "github.com/forgebuild/procexec/telemetry/trace"
)

// captureOutputs scans the sandbox for the request's declared outputs
// and persists them as one merged tree. Declared paths that do not
// exist are silently omitted; an execution that produced nothing yields
// store.EmptyDigest.
func (r *CommandRunner) captureOutputs(ctx context.Context, root string, req procexec.Process) (digest.Digest, error) {
	ctx, span := atrace.Tracer.Start(ctx, procexec.SpanOutputsCapture)
	span.SetAttributes(attribute.String(procexec.AttrSandboxPath, root))
	defer span.End()

	b := newTreeBuilder()
	rootFS := os.DirFS(root)

	for _, p := range req.OutputFiles {
		if p == "" {
			continue
		}
		// Literal paths glob-match themselves, so missing files fall
		// out as an empty match rather than an error.
		matches, err := ds.Glob(rootFS, p.String())
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			return digest.Digest{}, fmt.Errorf("local: bad output file pattern %q: %w", p, err)
		}
		for _, m := range matches {
			if err := r.captureFile(ctx, b, root, m); err != nil {
				span.SetStatus(codes.Error, err.Error())
				return digest.Digest{}, err
			}
		}
	}

	for _, p := range req.OutputDirectories {
		if p == "" {
			continue
		}
		if err := r.captureDirectory(ctx, b, root, p.String()); err != nil {
			span.SetStatus(codes.Error, err.Error())
			return digest.Digest{}, err
		}
	}

	d, err := b.persist(ctx, r.store)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return digest.Digest{}, err
	}
	return d, nil
}

// captureFile saves one regular file under the sandbox into the store
// and registers it in the builder. Non-regular matches are skipped.
func (r *CommandRunner) captureFile(ctx context.Context, b *treeBuilder, root, rel string) error {
	full := filepath.Join(root, filepath.FromSlash(rel))
	info, err := os.Stat(full)
	if err != nil || !info.Mode().IsRegular() {
		return nil
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return &procexec.SandboxSetupError{Path: full, Err: err}
	}
	d, err := r.store.SaveBytes(ctx, data)
	if err != nil {
		return &procexec.StorePersistError{What: fmt.Sprintf("output file %q", rel), Err: err}
	}
	b.addFile(rel, d, info.Mode()&0o111 != 0)
	return nil
}

// captureDirectory recursively registers the current contents of one
// declared output directory, including empty subdirectories.
func (r *CommandRunner) captureDirectory(ctx context.Context, b *treeBuilder, root, rel string) error {
	full := filepath.Join(root, filepath.FromSlash(rel))
	info, err := os.Stat(full)
	if err != nil || !info.IsDir() {
		return nil
	}
	b.addDir(rel)
	return filepath.WalkDir(full, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		sub, err := filepath.Rel(full, p)
		if err != nil {
			return err
		}
		if sub == "." {
			return nil
		}
		entry := path.Join(rel, filepath.ToSlash(sub))
		if d.IsDir() {
			b.addDir(entry)
			return nil
		}
		return r.captureFile(ctx, b, root, entry)
	})
}

// treeBuilder accumulates captured files and directories by relative
// path and persists them as a merged store tree. Re-adding the same
// path is idempotent, which makes overlapping declared outputs (a file
// nested inside a captured directory) merge without duplication.
type treeBuilder struct {
	root *treeNode
}

type treeNode struct {
	files map[string]store.FileNode
	dirs  map[string]*treeNode
}

func newTreeBuilder() *treeBuilder {
	return &treeBuilder{root: newTreeNode()}
}

func newTreeNode() *treeNode {
	return &treeNode{
		files: make(map[string]store.FileNode),
		dirs:  make(map[string]*treeNode),
	}
}

func (b *treeBuilder) addFile(rel string, d digest.Digest, executable bool) {
	parts := strings.Split(path.Clean(rel), "/")
	node := b.root.ensure(parts[:len(parts)-1])
	name := parts[len(parts)-1]
	node.files[name] = store.FileNode{Name: name, Digest: d, IsExecutable: executable}
}

func (b *treeBuilder) addDir(rel string) {
	b.root.ensure(strings.Split(path.Clean(rel), "/"))
}

func (n *treeNode) ensure(parts []string) *treeNode {
	node := n
	for _, part := range parts {
		child, ok := node.dirs[part]
		if !ok {
			child = newTreeNode()
			node.dirs[part] = child
		}
		node = child
	}
	return node
}

// persist saves the accumulated tree bottom-up and returns the root
// digest. An empty builder yields store.EmptyDigest.
func (b *treeBuilder) persist(ctx context.Context, s store.Store) (digest.Digest, error) {
	return b.root.persist(ctx, s)
}

func (n *treeNode) persist(ctx context.Context, s store.Store) (digest.Digest, error) {
	dir := &store.Directory{}

	fileNames := make([]string, 0, len(n.files))
	for name := range n.files {
		// A path captured both as file and directory cannot occur on
		// disk; the directory entry wins if a builder ever holds both.
		if _, isDir := n.dirs[name]; isDir {
			continue
		}
		fileNames = append(fileNames, name)
	}
	sort.Strings(fileNames)
	for _, name := range fileNames {
		dir.Files = append(dir.Files, n.files[name])
	}

	dirNames := make([]string, 0, len(n.dirs))
	for name := range n.dirs {
		dirNames = append(dirNames, name)
	}
	sort.Strings(dirNames)
	for _, name := range dirNames {
		child, err := n.dirs[name].persist(ctx, s)
		if err != nil {
			return digest.Digest{}, err
		}
		dir.Directories = append(dir.Directories, store.DirectoryNode{Name: name, Digest: child})
	}

	d, err := s.SaveDirectory(ctx, dir)
	if err != nil {
		return digest.Digest{}, &procexec.StorePersistError{What: "output tree", Err: err}
	}
	return d, nil
}
