//
// Forge Build is pleased to support the open source community by making procexec available.
//
// Copyright (C) 2026 Forge Build.  All rights reserved.
//
// procexec is licensed under the Apache License Version 2.0.
//
//

package procexec

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
)

// cacheNamePattern is the identifier grammar for cache names. Keeping
// it this tight makes the name safe to use directly as a directory
// component under the caches root.
var cacheNamePattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// CacheName is the validated logical name of an append-only cache.
type CacheName string

// NewCacheName validates a cache name against the identifier grammar.
func NewCacheName(name string) (CacheName, error) {
	if !cacheNamePattern.MatchString(name) {
		return "", &InvalidCacheNameError{Name: name}
	}
	return CacheName(name), nil
}

// CacheDest is the validated sandbox-relative mount point of a cache.
type CacheDest string

// NewCacheDest validates a cache destination path.
func NewCacheDest(dest string) (CacheDest, error) {
	rp, err := NewRelativePath(dest)
	if err != nil || rp == "" {
		return "", &InvalidCacheDestinationError{Destination: dest}
	}
	return CacheDest(rp), nil
}

// NamedCaches maps logical cache names to stable host directories under
// a single root. Cache directories are created on first use and never
// deleted by the engine; successive executions naming the same cache
// observe previously written contents.
type NamedCaches struct {
	root string
}

// NewNamedCaches creates a mapper rooted at the given host directory.
func NewNamedCaches(root string) *NamedCaches {
	return &NamedCaches{root: root}
}

// Resolve returns the stable host directory for name, creating it if
// absent. The mapping is deterministic: the same name always resolves
// to the same directory.
func (n *NamedCaches) Resolve(name CacheName) (string, error) {
	if _, err := NewCacheName(string(name)); err != nil {
		return "", err
	}
	dir := filepath.Join(n.root, string(name))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("procexec: creating cache %q: %w", name, err)
	}
	return dir, nil
}
