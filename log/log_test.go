//
// Tencent is pleased to support the open source community by making trpc-realtime-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-realtime-go is licensed under the Apache License Version 2.0.
//
//

package log

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func TestSetLevel(t *testing.T) {
	tests := []struct {
		level string
		want  zapcore.Level
	}{
		{LevelDebug, zapcore.DebugLevel},
		{LevelInfo, zapcore.InfoLevel},
		{LevelWarn, zapcore.WarnLevel},
		{LevelError, zapcore.ErrorLevel},
		{LevelFatal, zapcore.FatalLevel},
		{"bogus", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		SetLevel(tt.level)
		assert.Equal(t, tt.want, zapLevel.Level(), "level %q", tt.level)
	}
	// Restore default for other tests.
	SetLevel(LevelInfo)
}

type capturingLogger struct {
	messages []string
}

func (c *capturingLogger) record(args ...any) {
	for _, a := range args {
		if s, ok := a.(string); ok {
			c.messages = append(c.messages, s)
		}
	}
}

func (c *capturingLogger) Debug(args ...any)                 { c.record(args...) }
func (c *capturingLogger) Debugf(format string, args ...any) { c.record(format) }
func (c *capturingLogger) Info(args ...any)                  { c.record(args...) }
func (c *capturingLogger) Infof(format string, args ...any)  { c.record(format) }
func (c *capturingLogger) Warn(args ...any)                  { c.record(args...) }
func (c *capturingLogger) Warnf(format string, args ...any)  { c.record(format) }
func (c *capturingLogger) Error(args ...any)                 { c.record(args...) }
func (c *capturingLogger) Errorf(format string, args ...any) { c.record(format) }
func (c *capturingLogger) Fatal(args ...any)                 { c.record(args...) }
func (c *capturingLogger) Fatalf(format string, args ...any) { c.record(format) }

func TestPackageHelpersUseDefault(t *testing.T) {
	orig := Default
	defer func() { Default = orig }()

	capture := &capturingLogger{}
	Default = capture

	Debug("d")
	Debugf("df")
	Info("i")
	Infof("if")
	Warn("w")
	Warnf("wf")
	Error("e")
	Errorf("ef")

	assert.Equal(t, []string{"d", "df", "i", "if", "w", "wf", "e", "ef"}, capture.messages)
}
