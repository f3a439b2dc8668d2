//
// Forge Build is pleased to support the open source community by making procexec available.
//
// Copyright (C) 2026 Forge Build.  All rights reserved.
//
// procexec is licensed under the Apache License Version 2.0.
//
//

// Package procexec defines the request and result model of the process
// execution engine, plus the validation rules shared by its runners.
package procexec

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/forgebuild/procexec/digest"
)

// Well-known span names and attribute keys to avoid magic strings.
const (
	// Span names for the execution lifecycle.
	SpanProcessRun     = "process.run"
	SpanSandboxCreate  = "sandbox.create"
	SpanProcessLaunch  = "process.launch"
	SpanOutputsCapture = "outputs.capture"
	SpanSandboxDispose = "sandbox.dispose"

	// Common attribute keys used in tracing spans.
	AttrDescription = "description"
	AttrSandboxPath = "sandbox_path"
	AttrExitCode    = "exit_code"
	AttrTimedOut    = "timed_out"
	AttrCleanup     = "cleanup"
	AttrPlatform    = "platform"
)

// JDKMountPoint is the fixed sandbox-relative path at which an
// auxiliary JDK home is exposed when Process.JDKHome is set.
const JDKMountPoint = ".jdk"

// Process declares one command to execute. Paths are always relative to
// the sandbox root.
type Process struct {
	// Argv is the command line; Argv[0] is resolved against the host's
	// executable search semantics. Must be non-empty.
	Argv []string

	// Env is the complete environment of the child, aside from the
	// minimal baseline the runner injects for executable resolution.
	Env map[string]string

	// WorkingDirectory optionally relocates the child below the sandbox
	// root. Empty means the sandbox root itself.
	WorkingDirectory RelativePath

	// InputDigest addresses the input tree materialized into the
	// sandbox before launch. The zero digest and the empty-tree digest
	// both mean "no inputs".
	InputDigest digest.Digest

	// OutputFiles are file paths captured after termination. Literal
	// paths match themselves; doublestar glob patterns are accepted.
	// Missing paths are omitted from the output tree.
	OutputFiles []RelativePath

	// OutputDirectories are directories captured recursively after
	// termination. Missing directories are omitted.
	OutputDirectories []RelativePath

	// Timeout bounds wall-clock execution. Zero means unbounded. On
	// expiry the whole process group is killed and the result carries a
	// signal-derived exit code.
	Timeout time.Duration

	// Description names the process in diagnostics and timeout
	// messages. Never part of the executed command.
	Description string

	// JDKHome, when non-empty, is a host directory symlinked at
	// JDKMountPoint inside the sandbox.
	JDKHome string

	// AppendOnlyCaches mounts named persistent caches at sandbox
	// relative destinations.
	AppendOnlyCaches map[CacheName]CacheDest
}

// NewProcess builds a Process for the given command line.
func NewProcess(argv ...string) Process {
	return Process{Argv: argv}
}

// Validate checks the structural invariants of the request. Paths are
// checked here even though the RelativePath constructor also validates:
// the type itself does not prevent a raw conversion from smuggling in a
// traversing path, and no such path may reach the sandbox.
func (p *Process) Validate() error {
	if len(p.Argv) == 0 {
		return fmt.Errorf("procexec: process %q has empty argv", p.Description)
	}
	if _, err := NewRelativePath(p.WorkingDirectory.String()); err != nil {
		return fmt.Errorf("working directory: %w", err)
	}
	for _, out := range p.OutputFiles {
		if _, err := NewRelativePath(out.String()); err != nil {
			return fmt.Errorf("output file: %w", err)
		}
	}
	for _, out := range p.OutputDirectories {
		if _, err := NewRelativePath(out.String()); err != nil {
			return fmt.Errorf("output directory: %w", err)
		}
	}
	return nil
}

// ProcessResult reports one completed execution attempt.
//
// ExitCode and OutputDigest are always populated, including on timeout:
// the code is the negated terminating signal number and the output
// digest reflects whatever declared outputs existed at kill time.
type ProcessResult struct {
	// ExitCode is the process exit status; -N encodes death by signal N.
	ExitCode int
	// StdoutDigest addresses the captured stdout bytes in the store.
	StdoutDigest digest.Digest
	// StderrDigest addresses the captured stderr bytes in the store.
	StderrDigest digest.Digest
	// OutputDigest addresses the merged output tree; store.EmptyDigest
	// when nothing was declared or produced.
	OutputDigest digest.Digest
	// Platform identifies the machine that ran the process.
	Platform Platform
}

// Platform identifies an execution platform as "<os>_<arch>".
type Platform string

// CurrentPlatform reports the platform of this process.
func CurrentPlatform() Platform {
	return Platform(runtime.GOOS + "_" + runtime.GOARCH)
}

// CommandRunner executes one process per call. Implementations must be
// safe for concurrent use; each call owns its sandbox exclusively.
type CommandRunner interface {
	// Run executes the request to completion. Cancelling ctx
	// terminates the process group and disposes the sandbox.
	Run(ctx context.Context, req Process) (ProcessResult, error)
}
