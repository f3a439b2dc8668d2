//
// Forge Build is pleased to support the open source community by making procexec available.
//
// Copyright (C) 2026 Forge Build.  All rights reserved.
//
// procexec is licensed under the Apache License Version 2.0.
//
//

// Package inmemory provides an in-memory implementation of the store
// contract. It is suitable for tests and single-process embedding.
package inmemory

import (
	"context"
	"sync"

	"github.com/forgebuild/procexec/digest"
	"github.com/forgebuild/procexec/store"
)

// Store keeps every blob in a map keyed by digest.
type Store struct {
	mu    sync.RWMutex
	blobs map[digest.Digest][]byte
}

var _ store.Store = (*Store)(nil)

// New creates an empty in-memory store.
func New() *Store {
	return &Store{blobs: make(map[digest.Digest][]byte)}
}

// LoadBytes returns the content addressed by d.
func (s *Store) LoadBytes(ctx context.Context, d digest.Digest) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.blobs[d]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

// SaveBytes stores content and returns its digest.
func (s *Store) SaveBytes(ctx context.Context, b []byte) (digest.Digest, error) {
	d := digest.FromBytes(b)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.blobs[d]; !ok {
		stored := make([]byte, len(b))
		copy(stored, b)
		s.blobs[d] = stored
	}
	return d, nil
}

// LoadDirectory returns the directory addressed by d.
func (s *Store) LoadDirectory(ctx context.Context, d digest.Digest) (*store.Directory, error) {
	b, err := s.LoadBytes(ctx, d)
	if err != nil {
		return nil, err
	}
	dir, err := store.UnmarshalDirectory(b)
	if err != nil {
		return nil, &store.CorruptTreeError{Digest: d, Err: err}
	}
	return dir, nil
}

// SaveDirectory stores a directory node in canonical encoding.
func (s *Store) SaveDirectory(ctx context.Context, dir *store.Directory) (digest.Digest, error) {
	b, err := dir.Marshal()
	if err != nil {
		return digest.Digest{}, err
	}
	return s.SaveBytes(ctx, b)
}
