package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureOutput redirects logger output to a buffer for the duration of a test.
func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	buf := new(bytes.Buffer)

	mu.Lock()
	prevOut, prevColor := output, useColor
	output, useColor = buf, false
	mu.Unlock()
	prevLevel := Level(currentLevel.Load())
	prevFormat, _ := currentFormat.Load().(string)
	reconfigure()

	t.Cleanup(func() {
		mu.Lock()
		output, useColor = prevOut, prevColor
		mu.Unlock()
		currentLevel.Store(int32(prevLevel))
		currentFormat.Store(prevFormat)
		reconfigure()
	})
	return buf
}

func TestLevelFiltering(t *testing.T) {
	tests := []struct {
		level    string
		expected []string
		filtered []string
	}{
		{"DEBUG", []string{"debug message", "info message", "warn message", "error message"}, nil},
		{"INFO", []string{"info message", "warn message", "error message"}, []string{"debug message"}},
		{"WARN", []string{"warn message", "error message"}, []string{"debug message", "info message"}},
		{"ERROR", []string{"error message"}, []string{"debug message", "info message", "warn message"}},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			buf := captureOutput(t)
			SetLevel(tt.level)

			Debug("debug message")
			Info("info message")
			Warn("warn message")
			Error("error message")

			out := buf.String()
			for _, s := range tt.expected {
				assert.Contains(t, out, s)
			}
			for _, s := range tt.filtered {
				assert.NotContains(t, out, s)
			}
		})
	}
}

func TestSetLevel(t *testing.T) {
	t.Run("CaseInsensitive", func(t *testing.T) {
		captureOutput(t)
		SetLevel("warn")
		assert.Equal(t, LevelWarn, Level(currentLevel.Load()))
	})

	t.Run("InvalidIgnored", func(t *testing.T) {
		captureOutput(t)
		SetLevel("ERROR")
		SetLevel("verbose")
		assert.Equal(t, LevelError, Level(currentLevel.Load()))
	})
}

func TestLevelString(t *testing.T) {
	assert.Equal(t, "DEBUG", LevelDebug.String())
	assert.Equal(t, "INFO", LevelInfo.String())
	assert.Equal(t, "WARN", LevelWarn.String())
	assert.Equal(t, "ERROR", LevelError.String())
	assert.Equal(t, "UNKNOWN", Level(99).String())
}

func TestTextFormat(t *testing.T) {
	t.Run("StructuredFields", func(t *testing.T) {
		buf := captureOutput(t)
		SetLevel("INFO")

		Info("login attempt", KeyUsername, "root", KeyResult, "failure")

		out := buf.String()
		assert.Contains(t, out, "[INFO] login attempt")
		assert.Contains(t, out, "username=root")
		assert.Contains(t, out, "result=failure")
	})

	t.Run("AttackerInputIsQuoted", func(t *testing.T) {
		buf := captureOutput(t)
		SetLevel("INFO")

		Info("command", KeyCommand, "cat x\r\nforged line")

		out := buf.String()
		assert.Equal(t, 1, strings.Count(out, "\n"))
		assert.Contains(t, out, `command="cat x\r\nforged line"`)
	})

	t.Run("GroupsQualifyKeys", func(t *testing.T) {
		buf := captureOutput(t)
		SetLevel("INFO")

		With("component", "telnet").WithGroup("conn").Info("accepted", "id", 7)

		out := buf.String()
		assert.Contains(t, out, "component=telnet")
		assert.Contains(t, out, "conn.id=7")
	})
}

func TestJSONFormat(t *testing.T) {
	buf := captureOutput(t)
	SetLevel("INFO")
	SetFormat("json")

	Info("session closed", KeySessionID, "abc", KeyDurationMs, 12.5)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "session closed", entry["msg"])
	assert.Equal(t, "abc", entry[KeySessionID])
	assert.Equal(t, "INFO", entry["level"])
	assert.Contains(t, entry, "time")
}

func TestSetFormatIgnoresInvalid(t *testing.T) {
	captureOutput(t)
	SetFormat("json")
	SetFormat("xml")
	assert.Equal(t, "json", currentFormat.Load())
}

func TestContextLogging(t *testing.T) {
	t.Run("InjectsSessionFields", func(t *testing.T) {
		buf := captureOutput(t)
		SetLevel("DEBUG")

		lc := NewLogContext("sess-1", "10.0.0.7").WithPhase("shell").WithCommand("ls")
		ctx := WithContext(context.Background(), lc)
		DebugCtx(ctx, "dispatch", KeyPath, "/home")

		out := buf.String()
		assert.Contains(t, out, "session_id=sess-1")
		assert.Contains(t, out, "client_ip=10.0.0.7")
		assert.Contains(t, out, "phase=shell")
		assert.Contains(t, out, "command=ls")
		assert.Contains(t, out, "path=/home")
		assert.Less(t, strings.Index(out, "session_id"), strings.Index(out, "path="))
	})

	t.Run("WithoutLogContext", func(t *testing.T) {
		buf := captureOutput(t)
		SetLevel("INFO")

		InfoCtx(context.Background(), "plain")
		//nolint:staticcheck // nil context is tolerated
		WarnCtx(nil, "nil ctx")

		assert.Contains(t, buf.String(), "plain")
		assert.Contains(t, buf.String(), "nil ctx")
	})
}

func TestLogContext(t *testing.T) {
	lc := NewLogContext("s", "192.0.2.1")
	assert.False(t, lc.StartTime.IsZero())

	traced := lc.WithTrace("t", "sp")
	assert.Equal(t, "t", traced.TraceID)
	assert.Empty(t, lc.TraceID, "original must not be mutated")

	var nilCtx *LogContext
	assert.Nil(t, nilCtx.Clone())
	assert.Nil(t, nilCtx.WithPhase("x"))
	assert.Zero(t, nilCtx.DurationMs())
}

func TestErrField(t *testing.T) {
	assert.True(t, Err(nil).Equal(Err(nil)))
	assert.Equal(t, "boom", Err(errors.New("boom")).Value.String())
}

func TestConcurrentLogging(t *testing.T) {
	buf := captureOutput(t)
	SetLevel("INFO")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				Info("concurrent", "worker", n, "iter", j)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1000, strings.Count(buf.String(), "\n"))
}

func TestInit(t *testing.T) {
	t.Run("FileOutput", func(t *testing.T) {
		captureOutput(t)
		path := filepath.Join(t.TempDir(), "picopot.log")

		require.NoError(t, Init(Config{Level: "INFO", Format: "text", Output: path}))
		Info("to file")

		t.Cleanup(func() {
			mu.Lock()
			if logFile != nil {
				_ = logFile.Close()
				logFile = nil
			}
			mu.Unlock()
		})
		assert.FileExists(t, path)
	})

	t.Run("BadPath", func(t *testing.T) {
		captureOutput(t)
		err := Init(Config{Output: filepath.Join(t.TempDir(), "missing", "x.log")})
		assert.Error(t, err)
	})

	t.Run("EmptyConfigKeepsSettings", func(t *testing.T) {
		captureOutput(t)
		SetLevel("ERROR")
		require.NoError(t, Init(Config{}))
		assert.Equal(t, LevelError, Level(currentLevel.Load()))
	})
}
