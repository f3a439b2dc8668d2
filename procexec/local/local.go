//
// Forge Build is pleased to support the open source community by making procexec available.
//
// Copyright (C) 2026 Forge Build.  All rights reserved.
//
// procexec is licensed under the Apache License Version 2.0.
//
//

// Package local runs processes as native subprocesses on the host.
//
// Each execution materializes its input tree from the store into a
// fresh sandbox directory, launches the command as the leader of a new
// process group, supervises it against the request timeout, captures
// declared outputs back into the store, and finally deletes or
// preserves the sandbox.
package local

import (
	"context"
	"fmt"

	"github.com/panjf2000/ants/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/forgebuild/procexec/procexec"
	"github.com/forgebuild/procexec/store"
	atrace "github.com/forgebuild/procexec/telemetry/trace"
)

const defaultWorkerPoolSize = 64

// CommandRunner is the local implementation of procexec.CommandRunner.
// It is safe for concurrent use; executions share nothing but the
// store and the named cache directories.
type CommandRunner struct {
	store       store.Store
	workRoot    string
	namedCaches *procexec.NamedCaches
	cleanup     bool
	platform    procexec.Platform
	poolSize    int
	pool        *ants.Pool
}

var _ procexec.CommandRunner = (*CommandRunner)(nil)

// Option customizes the runner.
type Option func(*CommandRunner)

// WithCleanup controls sandbox disposition: true (the default) deletes
// every sandbox unconditionally, false preserves every sandbox under
// the work root together with a __run.sh reproduction script.
func WithCleanup(cleanup bool) Option {
	return func(r *CommandRunner) { r.cleanup = cleanup }
}

// WithPlatform overrides the platform identifier reported in results.
func WithPlatform(p procexec.Platform) Option {
	return func(r *CommandRunner) { r.platform = p }
}

// WithWorkerPoolSize bounds the number of concurrently supervised
// child processes.
func WithWorkerPoolSize(n int) Option {
	return func(r *CommandRunner) { r.poolSize = n }
}

// New creates a runner that builds sandboxes under workRoot and
// resolves append-only caches through caches.
func New(st store.Store, workRoot string, caches *procexec.NamedCaches, opts ...Option) (*CommandRunner, error) {
	r := &CommandRunner{
		store:       st,
		workRoot:    workRoot,
		namedCaches: caches,
		cleanup:     true,
		platform:    procexec.CurrentPlatform(),
		poolSize:    defaultWorkerPoolSize,
	}
	for _, o := range opts {
		o(r)
	}
	pool, err := ants.NewPool(r.poolSize)
	if err != nil {
		return nil, fmt.Errorf("local: creating worker pool: %w", err)
	}
	r.pool = pool
	return r, nil
}

// Close releases the worker pool. Executions in flight are allowed to
// finish.
func (r *CommandRunner) Close() {
	r.pool.Release()
}

// Run executes one request to completion.
//
// The sandbox is disposed on every exit path. Timeout is not an error:
// the result carries exit code -15, synthesized stdout naming the
// timeout and the request description, and whatever declared outputs
// existed at kill time.
func (r *CommandRunner) Run(ctx context.Context, req procexec.Process) (procexec.ProcessResult, error) {
	ctx, span := atrace.Tracer.Start(ctx, procexec.SpanProcessRun)
	span.SetAttributes(attribute.String(procexec.AttrDescription, req.Description))
	defer span.End()

	if err := req.Validate(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return procexec.ProcessResult{}, err
	}

	sb, err := r.createSandbox(ctx, req)
	if sb != nil {
		defer r.disposeSandbox(ctx, sb, req)
	}
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return procexec.ProcessResult{}, err
	}

	out, err := r.launch(ctx, sb, req)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return procexec.ProcessResult{}, err
	}

	stdout := out.stdout
	if out.timedOut {
		stdout = []byte(fmt.Sprintf(
			"Exceeded timeout of %s for local process execution of: %s",
			req.Timeout, req.Description,
		))
	}

	stdoutDigest, err := r.store.SaveBytes(ctx, stdout)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return procexec.ProcessResult{}, &procexec.StorePersistError{What: "stdout", Err: err}
	}
	stderrDigest, err := r.store.SaveBytes(ctx, out.stderr)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return procexec.ProcessResult{}, &procexec.StorePersistError{What: "stderr", Err: err}
	}

	outputDigest, err := r.captureOutputs(ctx, sb.root, req)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return procexec.ProcessResult{}, err
	}

	span.SetAttributes(
		attribute.Int(procexec.AttrExitCode, out.exitCode),
		attribute.Bool(procexec.AttrTimedOut, out.timedOut),
	)
	return procexec.ProcessResult{
		ExitCode:     out.exitCode,
		StdoutDigest: stdoutDigest,
		StderrDigest: stderrDigest,
		OutputDigest: outputDigest,
		Platform:     r.platform,
	}, nil
}
