// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jeranaias/scholar-tui/internal/api"
	"github.com/jeranaias/scholar-tui/internal/config"
	"github.com/jeranaias/scholar-tui/internal/registry"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	require.NoError(t, cfg.SetDefaults())
	return cfg
}

func TestNew_WiresComponents(t *testing.T) {
	cfg := testConfig(t)

	a, err := New(cfg, Options{})
	require.NoError(t, err)
	defer a.Close()

	assert.NotNil(t, a.Client)
	assert.NotNil(t, a.Registry)
	assert.NotNil(t, a.Meta)
	assert.Equal(t, "http://127.0.0.1:8000/api/", a.Client.BaseURL())

	_, err = a.Registry.AddOrTouch("c1")
	require.NoError(t, err)
	_, err = os.Stat(cfg.Registry.Path)
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Dir(cfg.Log.File))
	assert.NoError(t, err)
}

func TestNew_NilConfig(t *testing.T) {
	_, err := New(nil, Options{})
	assert.Error(t, err)
}

func TestResetChat(t *testing.T) {
	a, err := New(testConfig(t), Options{Logger: zap.NewNop(), Store: registry.NewMemoryStore()})
	require.NoError(t, err)
	defer a.Close()

	a.Chat.Selection.Toggle("A")
	a.Chat.Filter = api.Filter{Author: "Ann"}
	a.ResetChat()

	assert.False(t, a.Chat.Selection.ShowClear())
	assert.True(t, a.Chat.Filter.IsZero())
}

func TestWatchRegistry_MemoryStoreUnsupported(t *testing.T) {
	a, err := New(testConfig(t), Options{Logger: zap.NewNop(), Store: registry.NewMemoryStore()})
	require.NoError(t, err)
	defer a.Close()

	_, err = a.WatchRegistry(context.Background())
	assert.ErrorIs(t, err, ErrNoWatch)
}

func TestClose_Twice(t *testing.T) {
	a, err := New(testConfig(t), Options{})
	require.NoError(t, err)
	require.NoError(t, a.Close())
	require.NoError(t, a.Close())
}
