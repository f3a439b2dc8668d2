//
// Forge Build is pleased to support the open source community by making procexec available.
//
// Copyright (C) 2026 Forge Build.  All rights reserved.
//
// procexec is licensed under the Apache License Version 2.0.
//
//

// Package store defines the content-addressed store contract consumed
// by the execution engine, together with the directory-tree model and
// its canonical encoding.
//
// The engine only depends on the Store interface; the inmemory
// subpackage provides an implementation suitable for tests and
// in-process embedding.
package store

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/fxamacker/cbor/v2"

	"github.com/forgebuild/procexec/digest"
)

// ErrNotFound reports that a digest is not present in the store.
var ErrNotFound = errors.New("store: digest not found")

// CorruptTreeError reports that bytes addressed as a directory could
// not be decoded into one.
type CorruptTreeError struct {
	Digest digest.Digest
	Err    error
}

func (e *CorruptTreeError) Error() string {
	return fmt.Sprintf("store: corrupt directory %s: %v", e.Digest, e.Err)
}

func (e *CorruptTreeError) Unwrap() error { return e.Err }

// Store is the client contract of a content-addressed blob and tree
// store. Implementations must be safe for concurrent use.
type Store interface {
	// LoadBytes returns the content addressed by d, or ErrNotFound.
	LoadBytes(ctx context.Context, d digest.Digest) ([]byte, error)
	// SaveBytes stores content and returns its digest.
	SaveBytes(ctx context.Context, b []byte) (digest.Digest, error)
	// LoadDirectory returns the directory addressed by d, or
	// ErrNotFound / CorruptTreeError.
	LoadDirectory(ctx context.Context, d digest.Digest) (*Directory, error)
	// SaveDirectory stores a directory node and returns its digest.
	// Children referenced by the node must already be present.
	SaveDirectory(ctx context.Context, dir *Directory) (digest.Digest, error)
}

// FileNode is a named file entry within a Directory.
type FileNode struct {
	Name         string        `cbor:"1,keyasint"`
	Digest       digest.Digest `cbor:"2,keyasint"`
	IsExecutable bool          `cbor:"3,keyasint,omitempty"`
}

// DirectoryNode is a named subdirectory entry within a Directory.
type DirectoryNode struct {
	Name   string        `cbor:"1,keyasint"`
	Digest digest.Digest `cbor:"2,keyasint"`
}

// Directory is one level of a stored tree. Entry names are single path
// components; subdirectories are referenced by digest.
type Directory struct {
	Files       []FileNode      `cbor:"1,keyasint,omitempty"`
	Directories []DirectoryNode `cbor:"2,keyasint,omitempty"`
}

// EmptyDigest is the canonical digest of an empty directory tree. It is
// the output digest of every execution that captures nothing.
var EmptyDigest = func() digest.Digest {
	b, err := (&Directory{}).Marshal()
	if err != nil {
		panic(err)
	}
	return digest.FromBytes(b)
}()

var encMode = func() cbor.EncMode {
	m, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	return m
}()

// Marshal produces the canonical encoding of the directory: entries
// sorted by name, CBOR core deterministic mode. The digest of a
// directory is the digest of this encoding.
func (d *Directory) Marshal() ([]byte, error) {
	c := Directory{
		Files:       append([]FileNode(nil), d.Files...),
		Directories: append([]DirectoryNode(nil), d.Directories...),
	}
	sort.Slice(c.Files, func(i, j int) bool { return c.Files[i].Name < c.Files[j].Name })
	sort.Slice(c.Directories, func(i, j int) bool { return c.Directories[i].Name < c.Directories[j].Name })
	return encMode.Marshal(&c)
}

// UnmarshalDirectory decodes a canonical directory encoding.
func UnmarshalDirectory(b []byte) (*Directory, error) {
	var d Directory
	if err := cbor.Unmarshal(b, &d); err != nil {
		return nil, err
	}
	return &d, nil
}
