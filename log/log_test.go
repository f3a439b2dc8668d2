//
// Forge Build is pleased to support the open source community by making procexec available.
//
// Copyright (C) 2026 Forge Build.  All rights reserved.
//
// procexec is licensed under the Apache License Version 2.0.
//
//

package log

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

// TestSetLevel verifies that SetLevel correctly updates the underlying
// zap atomic level according to the provided level string.
func TestSetLevel(t *testing.T) {
	cases := []struct {
		in       string
		expected zapcore.Level
	}{
		{LevelDebug, zapcore.DebugLevel},
		{LevelInfo, zapcore.InfoLevel},
		{LevelWarn, zapcore.WarnLevel},
		{LevelError, zapcore.ErrorLevel},
		{LevelFatal, zapcore.FatalLevel},
		{"unknown", zapcore.InfoLevel}, // default branch
	}

	for _, c := range cases {
		SetLevel(c.in)
		if got := zapLevel.Level(); got != c.expected {
			t.Fatalf("SetLevel(%q) = %v; want %v", c.in, got, c.expected)
		}
	}
}

type stubLogger struct {
	messages []string
}

func (s *stubLogger) record(args ...any) {
	for _, a := range args {
		if msg, ok := a.(string); ok {
			s.messages = append(s.messages, msg)
		}
	}
}

func (s *stubLogger) Debug(args ...any)                 { s.record(args...) }
func (s *stubLogger) Debugf(format string, args ...any) { s.record(format) }
func (s *stubLogger) Info(args ...any)                  { s.record(args...) }
func (s *stubLogger) Infof(format string, args ...any)  { s.record(format) }
func (s *stubLogger) Warn(args ...any)                  { s.record(args...) }
func (s *stubLogger) Warnf(format string, args ...any)  { s.record(format) }
func (s *stubLogger) Error(args ...any)                 { s.record(args...) }
func (s *stubLogger) Errorf(format string, args ...any) { s.record(format) }
func (s *stubLogger) Fatal(args ...any)                 { s.record(args...) }
func (s *stubLogger) Fatalf(format string, args ...any) { s.record(format) }

// TestDefaultReplaceable ensures package helpers delegate to whatever
// logger is installed as Default.
func TestDefaultReplaceable(t *testing.T) {
	stub := &stubLogger{}
	oldDefault := Default
	Default = stub
	t.Cleanup(func() { Default = oldDefault })

	Warnf("first %s", "message")
	Info("second message")

	if len(stub.messages) != 2 {
		t.Fatalf("expected 2 recorded messages, got %d", len(stub.messages))
	}
}
