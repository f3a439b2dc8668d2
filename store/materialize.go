//
// Forge Build is pleased to support the open source community by making procexec available.
//
// Copyright (C) 2026 Forge Build.  All rights reserved.
//
// procexec is licensed under the Apache License Version 2.0.
//
//

package store

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/forgebuild/procexec/digest"
)

const (
	regularFileMode    fs.FileMode = 0o644
	executableFileMode fs.FileMode = 0o755
	dirMode            fs.FileMode = 0o755
)

// validEntryName reports whether name is a single clean path component.
// Anything else (separators, "."/"..", empty) would let a stored tree
// write outside its materialization root.
func validEntryName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, `/\`)
}

// Materialize recursively writes the tree addressed by d under root,
// which must already exist. Relative paths and the executable bit of
// each file are preserved. Trees whose entry names are not single path
// components are rejected as corrupt.
func Materialize(ctx context.Context, s Store, root string, d digest.Digest) error {
	dir, err := s.LoadDirectory(ctx, d)
	if err != nil {
		return err
	}
	for _, f := range dir.Files {
		if !validEntryName(f.Name) {
			return &CorruptTreeError{Digest: d, Err: fmt.Errorf("invalid file entry name %q", f.Name)}
		}
		b, err := s.LoadBytes(ctx, f.Digest)
		if err != nil {
			return fmt.Errorf("file %q: %w", f.Name, err)
		}
		mode := regularFileMode
		if f.IsExecutable {
			mode = executableFileMode
		}
		if err := os.WriteFile(filepath.Join(root, f.Name), b, mode); err != nil {
			return err
		}
	}
	for _, sub := range dir.Directories {
		if !validEntryName(sub.Name) {
			return &CorruptTreeError{Digest: d, Err: fmt.Errorf("invalid directory entry name %q", sub.Name)}
		}
		path := filepath.Join(root, sub.Name)
		if err := os.MkdirAll(path, dirMode); err != nil {
			return err
		}
		if err := Materialize(ctx, s, path, sub.Digest); err != nil {
			return err
		}
	}
	return nil
}
