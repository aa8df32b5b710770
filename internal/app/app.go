// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package app holds the application context shared by every front end:
// configuration, logger, service client, chat registry, metadata cache and
// the per-chat prompt scope. It is built once in main and passed down.
package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/jeranaias/scholar-tui/internal/api"
	"github.com/jeranaias/scholar-tui/internal/config"
	"github.com/jeranaias/scholar-tui/internal/logging"
	"github.com/jeranaias/scholar-tui/internal/registry"
	"github.com/jeranaias/scholar-tui/internal/transcript"
)

// ErrNoWatch is returned by WatchRegistry when the backend cannot be watched.
var ErrNoWatch = errors.New("registry backend does not support change notification")

// =============================================================================
// CHAT CONTEXT
// =============================================================================

// ChatContext is the scope applied to the next prompt: the documents the
// user selected and the active filter.
type ChatContext struct {
	Selection transcript.Selection
	Filter    api.Filter
}

// Reset clears selection and filter.
func (c *ChatContext) Reset() {
	c.Selection.Clear()
	c.Filter = api.Filter{}
}

// =============================================================================
// APP
// =============================================================================

// Options adjusts App construction.
type Options struct {
	// Logger replaces the file logger. Close does not sync it.
	Logger *zap.Logger
	// Store replaces the configured registry backend.
	Store registry.Store
	// LogStderr mirrors log output to stderr.
	LogStderr bool
	// LogLevel overrides the configured level.
	LogLevel string
}

// App is the application context.
type App struct {
	Config   *config.Config
	Logger   *zap.Logger
	Client   *api.Client
	Registry *registry.Registry
	Meta     *api.MetaCache
	Chat     *ChatContext

	store    registry.Store
	closeLog func() error
}

// New builds the application context from cfg.
func New(cfg *config.Config, opts Options) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}

	a := &App{Config: cfg, Chat: &ChatContext{}}

	if opts.Logger != nil {
		a.Logger = opts.Logger
	} else {
		logger, closeFn, err := logging.New(cfg.Log, logging.Options{Stderr: opts.LogStderr, Level: opts.LogLevel})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize logging: %w", err)
		}
		a.Logger = logger
		a.closeLog = closeFn
	}

	client, err := api.NewClient(cfg.API.BaseURL,
		api.WithTimeout(cfg.Timeout()),
		api.WithRateLimit(cfg.API.RequestsPerSecond, cfg.API.Burst),
		api.WithLogger(a.Logger.Named("api")),
	)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Client = client
	a.Meta = api.NewMetaCache(client, cfg.MetaCacheTTL())

	store := opts.Store
	if store == nil {
		store, err = registry.OpenStore(cfg.Registry)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to open chat registry: %w", err)
		}
	}
	a.store = store
	a.Registry = registry.New(store, a.Logger.Named("registry"))

	a.Logger.Info("scholar started",
		zap.String("api", client.BaseURL()),
		zap.String("registry", cfg.Registry.Backend),
	)
	return a, nil
}

// ResetChat clears the per-chat prompt scope. Call it when the active chat
// changes.
func (a *App) ResetChat() {
	a.Chat.Reset()
}

// WatchRegistry reports chat list changes made by other processes. Only the
// file backend supports it.
func (a *App) WatchRegistry(ctx context.Context) (<-chan struct{}, error) {
	fs, ok := a.store.(*registry.FileStore)
	if !ok {
		return nil, ErrNoWatch
	}
	return fs.Watch(ctx)
}

// Close releases the registry store and flushes the log.
func (a *App) Close() error {
	var errs []error
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			errs = append(errs, err)
		}
		a.store = nil
	}
	if a.closeLog != nil {
		if err := a.closeLog(); err != nil {
			errs = append(errs, err)
		}
		a.closeLog = nil
	}
	return errors.Join(errs...)
}
