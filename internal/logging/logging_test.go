package logging

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observe(t *testing.T) *observer.ObservedLogs {
	core, logs := observer.New(zapcore.DebugLevel)
	prev := L()
	SetLogger(zap.New(core))
	t.Cleanup(func() { SetLogger(prev) })
	return logs
}

func TestPrintfArguments(t *testing.T) {
	logs := observe(t)

	Info("Ignoring push to %s", "develop")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "Ignoring push to develop", logs.All()[0].Message)
	assert.Empty(t, logs.All()[0].Context)
}

func TestFieldArguments(t *testing.T) {
	logs := observe(t)

	Warn("Outbound call failed", zap.Int("status", 404), zap.String("caller", "_getFile"))

	entry := logs.All()[0]
	assert.Equal(t, "Outbound call failed", entry.Message)
	assert.Equal(t, zapcore.WarnLevel, entry.Level)
	assert.Equal(t, int64(404), entry.ContextMap()["status"])
	assert.Equal(t, "_getFile", entry.ContextMap()["caller"])
}

func TestMixedArguments(t *testing.T) {
	logs := observe(t)

	Error("request %d failed", 3, zap.String("host", "gitlab.com"))

	entry := logs.All()[0]
	assert.Equal(t, "request 3 failed", entry.Message)
	assert.Equal(t, "gitlab.com", entry.ContextMap()["host"])
}

func TestMessageWithoutArgsIsNotFormatted(t *testing.T) {
	logs := observe(t)

	Debug("100% done")

	assert.Equal(t, "100% done", logs.All()[0].Message)
}

func TestInitWithFile(t *testing.T) {
	prev := L()
	t.Cleanup(func() { SetLogger(prev) })

	file := filepath.Join(t.TempDir(), "logs", "scm.log")
	err := Init(Config{Level: "debug", Format: "console", File: file})

	require.NoError(t, err)
	Info("written to file")
	Sync()
	assert.FileExists(t, file)
}
