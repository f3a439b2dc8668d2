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
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/kballard/go-shellquote"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/forgebuild/procexec/log"
	"github.com/forgebuild/procexec/procexec"
	"github.com/forgebuild/procexec/store"
	atrace "github.com/forgebuild/procexec/telemetry/trace"
)

// RunScriptName is the reproduction script written into preserved
// sandboxes.
const RunScriptName = "__run.sh"

// sandbox is the ephemeral directory tree owned by one execution.
type sandbox struct {
	// root is the sandbox directory.
	root string
	// workdir is the absolute effective working directory of the
	// child: root composed with the request's relative subdirectory.
	workdir string
}

// createSandbox builds a fresh sandbox for the request: materializes
// the input tree, pre-creates parent directories for declared outputs,
// and wires the JDK and named-cache symlinks.
//
// On error the partially built sandbox (when one exists) is still
// returned so disposition can preserve it for inspection.
func (r *CommandRunner) createSandbox(ctx context.Context, req procexec.Process) (*sandbox, error) {
	ctx, span := atrace.Tracer.Start(ctx, procexec.SpanSandboxCreate)
	defer span.End()

	root := filepath.Join(r.workRoot, "process-execution-"+uuid.NewString())
	if err := os.MkdirAll(root, 0o755); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, &procexec.SandboxSetupError{Path: root, Err: err}
	}
	span.SetAttributes(attribute.String(procexec.AttrSandboxPath, root))
	sb := &sandbox{
		root:    root,
		workdir: filepath.Join(root, req.WorkingDirectory.String()),
	}

	if !req.InputDigest.IsZero() && req.InputDigest != store.EmptyDigest {
		if err := store.Materialize(ctx, r.store, root, req.InputDigest); err != nil {
			span.SetStatus(codes.Error, err.Error())
			return sb, &procexec.MaterializationError{Digest: req.InputDigest, Err: err}
		}
	}

	// Pre-create the parent chain of every declared output so the
	// process can write nested outputs without mkdir -p of its own.
	// The declared paths themselves are not created: a process must be
	// able to mkdir a declared output directory itself. Glob patterns
	// have no single parent and are skipped.
	for _, p := range append(append([]procexec.RelativePath{}, req.OutputFiles...), req.OutputDirectories...) {
		if p == "" || strings.ContainsAny(p.String(), "*?[{") {
			continue
		}
		parent := filepath.Dir(filepath.Join(root, filepath.FromSlash(p.String())))
		if err := os.MkdirAll(parent, 0o755); err != nil {
			span.SetStatus(codes.Error, err.Error())
			return sb, &procexec.SandboxSetupError{Path: parent, Err: err}
		}
	}

	if err := os.MkdirAll(sb.workdir, 0o755); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return sb, &procexec.SandboxSetupError{Path: sb.workdir, Err: err}
	}

	if req.JDKHome != "" {
		link := filepath.Join(root, procexec.JDKMountPoint)
		if err := os.Symlink(req.JDKHome, link); err != nil {
			span.SetStatus(codes.Error, err.Error())
			return sb, &procexec.SandboxSetupError{Path: link, Err: err}
		}
	}

	for name, dest := range req.AppendOnlyCaches {
		if _, err := procexec.NewCacheDest(string(dest)); err != nil {
			span.SetStatus(codes.Error, err.Error())
			return sb, err
		}
		host, err := r.namedCaches.Resolve(name)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			return sb, err
		}
		link := filepath.Join(root, filepath.FromSlash(string(dest)))
		if err := os.MkdirAll(filepath.Dir(link), 0o755); err != nil {
			span.SetStatus(codes.Error, err.Error())
			return sb, &procexec.SandboxSetupError{Path: link, Err: err}
		}
		if err := os.Symlink(host, link); err != nil {
			span.SetStatus(codes.Error, err.Error())
			return sb, &procexec.SandboxSetupError{Path: link, Err: err}
		}
	}

	return sb, nil
}

// disposeSandbox applies the disposition policy. It runs on every exit
// path of Run, whether or not the process started.
func (r *CommandRunner) disposeSandbox(ctx context.Context, sb *sandbox, req procexec.Process) {
	_, span := atrace.Tracer.Start(ctx, procexec.SpanSandboxDispose)
	span.SetAttributes(
		attribute.String(procexec.AttrSandboxPath, sb.root),
		attribute.Bool(procexec.AttrCleanup, r.cleanup),
	)
	defer span.End()

	if r.cleanup {
		if err := os.RemoveAll(sb.root); err != nil {
			span.SetStatus(codes.Error, err.Error())
			log.Warnf("failed to remove sandbox %s: %v", sb.root, err)
		}
		return
	}

	if err := writeRunScript(sb, req); err != nil {
		span.SetStatus(codes.Error, err.Error())
		log.Warnf("failed to write %s in %s: %v", RunScriptName, sb.root, err)
		return
	}
	log.Infof("preserved sandbox for %q at %s", req.Description, sb.root)
}

// writeRunScript emits an executable script that re-runs the process
// from the preserved sandbox: exported environment, cd into the
// effective working directory, then the shell-escaped command line.
func writeRunScript(sb *sandbox, req procexec.Process) error {
	var b strings.Builder
	b.WriteString("#!/usr/bin/env bash\n")
	b.WriteString("# This script re-executes the process that ran in this sandbox.\n")

	keys := make([]string, 0, len(req.Env))
	for k := range req.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteString("export " + k + "=" + shellquote.Join(req.Env[k]) + "\n")
	}

	b.WriteString("cd " + shellquote.Join(sb.workdir) + "\n")
	b.WriteString(shellquote.Join(req.Argv...) + "\n")

	return os.WriteFile(filepath.Join(sb.root, RunScriptName), []byte(b.String()), 0o755)
}
