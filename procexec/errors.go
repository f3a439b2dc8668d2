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

	"github.com/forgebuild/procexec/digest"
)

// MaterializationError reports that the input tree could not be
// materialized from the store. Fatal to the execution; never retried
// here.
type MaterializationError struct {
	Digest digest.Digest
	Err    error
}

func (e *MaterializationError) Error() string {
	return fmt.Sprintf("procexec: materializing input tree %s: %v", e.Digest, e.Err)
}

func (e *MaterializationError) Unwrap() error { return e.Err }

// SandboxSetupError reports a filesystem or symlink failure while
// preparing the sandbox.
type SandboxSetupError struct {
	Path string
	Err  error
}

func (e *SandboxSetupError) Error() string {
	return fmt.Sprintf("procexec: preparing sandbox path %q: %v", e.Path, e.Err)
}

func (e *SandboxSetupError) Unwrap() error { return e.Err }

// InvalidCacheNameError reports a cache name outside the identifier
// grammar.
type InvalidCacheNameError struct {
	Name string
}

func (e *InvalidCacheNameError) Error() string {
	return fmt.Sprintf("procexec: invalid cache name %q: must match [A-Za-z0-9_]+", e.Name)
}

// InvalidCacheDestinationError reports a cache mount point that is not
// a sandbox-confined relative path.
type InvalidCacheDestinationError struct {
	Destination string
}

func (e *InvalidCacheDestinationError) Error() string {
	return fmt.Sprintf("procexec: invalid cache destination %q: must be a relative path inside the sandbox", e.Destination)
}

// ExecutableNotFoundError reports that argv[0] did not resolve to an
// executable. Distinct from a nonzero exit code: the process never
// started.
type ExecutableNotFoundError struct {
	Name string
	Err  error
}

func (e *ExecutableNotFoundError) Error() string {
	return fmt.Sprintf("procexec: failed to execute %q: %v", e.Name, e.Err)
}

func (e *ExecutableNotFoundError) Unwrap() error { return e.Err }

// StorePersistError reports a failure saving captured output or stream
// bytes back into the store.
type StorePersistError struct {
	What string
	Err  error
}

func (e *StorePersistError) Error() string {
	return fmt.Sprintf("procexec: persisting %s: %v", e.What, e.Err)
}

func (e *StorePersistError) Unwrap() error { return e.Err }
