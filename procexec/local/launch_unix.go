//
// Forge Build is pleased to support the open source community by making procexec available.
//
// Copyright (C) 2026 Forge Build.  All rights reserved.
//
// procexec is licensed under the Apache License Version 2.0.
//
//

//go:build unix

package local

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"sort"
	"sync"
	"syscall"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sys/unix"

	"github.com/forgebuild/procexec/procexec"
	atrace "github.com/forgebuild/procexec/telemetry/trace"
)

// defaultSearchPath is injected as PATH when the request declares none,
// so that argv[0] and shebang interpreters resolve. Nothing else leaks
// from the engine's own environment.
const defaultSearchPath = "/usr/sbin:/usr/bin:/sbin:/bin"

// timeoutExitCode is the exit code synthesized for a timed-out process.
const timeoutExitCode = -int(unix.SIGTERM)

// launchOutcome is the raw result of one supervised child process.
type launchOutcome struct {
	exitCode int
	timedOut bool
	stdout   []byte
	stderr   []byte
}

// launch spawns the request's command as the leader of a new process
// group, races completion against the request timeout, and returns the
// drained streams. On timeout or context cancellation the whole group
// is killed exactly once, and the child is always reaped before
// returning.
func (r *CommandRunner) launch(ctx context.Context, sb *sandbox, req procexec.Process) (launchOutcome, error) {
	ctx, span := atrace.Tracer.Start(ctx, procexec.SpanProcessLaunch)
	span.SetAttributes(attribute.String(procexec.AttrDescription, req.Description))
	defer span.End()

	cmd := exec.Command(req.Argv[0], req.Argv[1:]...)
	cmd.Dir = sb.workdir
	cmd.Env = childEnv(req.Env)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return launchOutcome{}, &procexec.ExecutableNotFoundError{Name: req.Argv[0], Err: err}
	}

	// Setpgid made the child its own group leader, so its pid doubles
	// as the pgid for group-wide signalling.
	pgid := cmd.Process.Pid
	var killGroup sync.Once
	kill := func() {
		killGroup.Do(func() { _ = unix.Kill(-pgid, unix.SIGKILL) })
	}

	// Wait blocks until the child is reaped; run it on the pool so a
	// slow child never stalls unrelated executions.
	waitCh := make(chan error, 1)
	wait := func() { waitCh <- cmd.Wait() }
	if err := r.pool.Submit(wait); err != nil {
		// Pool released mid-flight; supervision still has to reap.
		go wait()
	}

	var timerC <-chan time.Time
	if req.Timeout > 0 {
		timer := time.NewTimer(req.Timeout)
		defer timer.Stop()
		timerC = timer.C
	}

	var timedOut bool
	var waitErr error
	select {
	case waitErr = <-waitCh:
	case <-timerC:
		timedOut = true
		kill()
		waitErr = <-waitCh
	case <-ctx.Done():
		kill()
		<-waitCh
		span.SetStatus(codes.Error, ctx.Err().Error())
		return launchOutcome{}, ctx.Err()
	}

	exitCode, err := exitCodeOf(waitErr)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return launchOutcome{}, err
	}
	if timedOut {
		exitCode = timeoutExitCode
	}

	span.SetAttributes(
		attribute.Int(procexec.AttrExitCode, exitCode),
		attribute.Bool(procexec.AttrTimedOut, timedOut),
	)
	return launchOutcome{
		exitCode: exitCode,
		timedOut: timedOut,
		stdout:   stdout.Bytes(),
		stderr:   stderr.Bytes(),
	}, nil
}

// exitCodeOf maps the wait error to the result exit code: 0 on clean
// exit, the status code on nonzero exit, -N when terminated by signal
// N.
func exitCodeOf(waitErr error) (int, error) {
	if waitErr == nil {
		return 0, nil
	}
	var ee *exec.ExitError
	if !errors.As(waitErr, &ee) {
		return 0, waitErr
	}
	if ws, ok := ee.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return -int(ws.Signal()), nil
	}
	return ee.ExitCode(), nil
}

// childEnv renders the declared environment, plus the PATH baseline
// when the caller did not declare one, in deterministic order.
func childEnv(env map[string]string) []string {
	out := make([]string, 0, len(env)+1)
	if _, ok := env["PATH"]; !ok {
		out = append(out, "PATH="+defaultSearchPath)
	}
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	// Deterministic order keeps identical requests bit-identical.
	sort.Strings(keys)
	for _, k := range keys {
		out = append(out, k+"="+env[k])
	}
	return out
}
