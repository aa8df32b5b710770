// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/jeranaias/scholar-tui/internal/config"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, zapcore.WarnLevel, ParseLevel("WARN"))
	assert.Equal(t, zapcore.ErrorLevel, ParseLevel(" error "))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("chatty"))
}

func TestNew_WritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "scholar.log")
	logger, closeFn, err := New(config.LogConfig{
		Level:     "info",
		File:      path,
		MaxSizeMB: 1,
	}, Options{})
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("stream opened", zap.String("chat_id", "c1"))
	require.NoError(t, closeFn())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "stream opened", rec["msg"])
	assert.Equal(t, "c1", rec["chat_id"])
	assert.Contains(t, rec, "timestamp")
}

func TestNew_LevelOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scholar.log")
	logger, closeFn, err := New(config.LogConfig{Level: "error", File: path}, Options{Level: "debug"})
	require.NoError(t, err)

	logger.Debug("visible")
	require.NoError(t, closeFn())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "visible")
}

func TestNew_EmptyPath(t *testing.T) {
	_, _, err := New(config.LogConfig{}, Options{})
	assert.Error(t, err)
}
