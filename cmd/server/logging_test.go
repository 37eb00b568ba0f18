package main

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseLogLevel(t *testing.T) {
	require.Equal(t, slog.LevelDebug, parseLogLevel("debug"))
	require.Equal(t, slog.LevelWarn, parseLogLevel("warn"))
	require.Equal(t, slog.LevelError, parseLogLevel("error"))
	require.Equal(t, slog.LevelInfo, parseLogLevel("verbose"))
}

func TestNewLogger_Stderr(t *testing.T) {
	var buf bytes.Buffer
	logger, closeFn, err := newLogger("warn", "", &buf)
	require.NoError(t, err)
	defer closeFn()

	logger.Info("hidden")
	logger.Warn("shown", "key", "PROD-1")
	require.NotContains(t, buf.String(), "hidden")
	require.Contains(t, buf.String(), "key=PROD-1")
}

func TestLogFileWriter_KeepsTail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "oncall.log")
	writer, file, err := newLogFileWriter(path)
	require.NoError(t, err)
	defer file.Close()

	chunk := []byte(strings.Repeat("a", 1024*1024-1) + "\n")
	for i := 0; i < 7; i++ {
		_, err := writer.Write(chunk)
		require.NoError(t, err)
	}
	_, err = writer.Write([]byte("last line\n"))
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.LessOrEqual(t, info.Size(), int64(maxLogSizeBytes))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(string(data), "last line\n"))
}
