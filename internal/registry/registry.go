// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package registry

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// MaxChats is the maximum number of chat ids kept in the list.
const MaxChats = 50

// Persisted keys.
const (
	KeyActive = "chat.activeId"
	KeyList   = "chat.list"
)

// Registry is the only reader and writer of persisted chat state.
type Registry struct {
	store  Store
	logger *zap.Logger
	mu     sync.Mutex
}

// New creates a Registry over store. A nil logger disables logging.
func New(store Store, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{store: store, logger: logger}
}

// Active returns the active chat id, if one is set.
func (r *Registry) Active() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active()
}

// SetActive marks id active. An empty id is ignored.
func (r *Registry) SetActive(id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.setActive(id)
}

// List returns the chat ids, oldest first.
func (r *Registry) List() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.list()
}

// AddOrTouch moves id to the end of the list (appending it if new), evicts
// the oldest entries beyond MaxChats, persists, and marks id active.
func (r *Registry) AddOrTouch(id string) ([]string, error) {
	id = strings.TrimSpace(id)
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := r.list()
	if id == "" {
		return ids, nil
	}

	ids = without(ids, id)
	ids = append(ids, id)
	if len(ids) > MaxChats {
		ids = ids[len(ids)-MaxChats:]
	}

	if err := r.saveList(ids); err != nil {
		return ids, err
	}
	if err := r.setActive(id); err != nil {
		return ids, err
	}
	return ids, nil
}

// Remove drops id from the list. If id was active, the first remaining
// entry becomes active, or nothing when the list is empty.
func (r *Registry) Remove(id string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := without(r.list(), id)
	if err := r.saveList(ids); err != nil {
		return ids, err
	}

	active, ok := r.active()
	if ok && active == id {
		if len(ids) > 0 {
			return ids, r.setActive(ids[0])
		}
		if err := r.store.Delete(KeyActive); err != nil {
			return ids, fmt.Errorf("failed to clear active chat: %w", err)
		}
	}
	return ids, nil
}

// =============================================================================
// INTERNAL HELPERS (caller holds mu)
// =============================================================================

func (r *Registry) active() (string, bool) {
	v, ok, err := r.store.Get(KeyActive)
	if err != nil {
		r.logger.Debug("registry: read active chat failed", zap.Error(err))
		return "", false
	}
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

func (r *Registry) setActive(id string) error {
	if err := r.store.Set(KeyActive, id); err != nil {
		return fmt.Errorf("failed to persist active chat: %w", err)
	}
	return nil
}

// list reads the persisted list. Unreadable or malformed data yields an
// empty list. Duplicates and blanks left by other writers are dropped.
func (r *Registry) list() []string {
	raw, ok, err := r.store.Get(KeyList)
	if err != nil {
		r.logger.Debug("registry: read chat list failed", zap.Error(err))
		return []string{}
	}
	if !ok || raw == "" {
		return []string{}
	}

	var stored []string
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		r.logger.Debug("registry: malformed chat list ignored", zap.Error(err))
		return []string{}
	}

	seen := make(map[string]bool, len(stored))
	ids := make([]string, 0, len(stored))
	for _, id := range stored {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	if len(ids) > MaxChats {
		ids = ids[len(ids)-MaxChats:]
	}
	return ids
}

func (r *Registry) saveList(ids []string) error {
	raw, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("failed to encode chat list: %w", err)
	}
	if err := r.store.Set(KeyList, string(raw)); err != nil {
		return fmt.Errorf("failed to persist chat list: %w", err)
	}
	return nil
}

func without(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
