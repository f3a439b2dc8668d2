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
	"path"
	"strings"
)

// RelativePath is a normalized, sandbox-confined relative path. Build
// one with NewRelativePath; the zero value is valid and means the
// sandbox root.
type RelativePath string

// NewRelativePath validates that p stays inside the sandbox root: it
// must be relative and may not traverse upward after normalization.
func NewRelativePath(p string) (RelativePath, error) {
	if p == "" {
		return "", nil
	}
	if strings.HasPrefix(p, "/") {
		return "", fmt.Errorf("procexec: path %q must be relative", p)
	}
	clean := path.Clean(p)
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("procexec: path %q escapes the sandbox root", p)
	}
	if clean == "." {
		return "", nil
	}
	return RelativePath(clean), nil
}

// MustRelativePath is NewRelativePath that panics on invalid input.
// Intended for literals.
func MustRelativePath(p string) RelativePath {
	rp, err := NewRelativePath(p)
	if err != nil {
		panic(err)
	}
	return rp
}

// RelativePaths validates a list of paths, preserving order and
// dropping duplicates.
func RelativePaths(paths ...string) ([]RelativePath, error) {
	out := make([]RelativePath, 0, len(paths))
	seen := make(map[RelativePath]bool, len(paths))
	for _, p := range paths {
		rp, err := NewRelativePath(p)
		if err != nil {
			return nil, err
		}
		if seen[rp] {
			continue
		}
		seen[rp] = true
		out = append(out, rp)
	}
	return out, nil
}

func (p RelativePath) String() string { return string(p) }
