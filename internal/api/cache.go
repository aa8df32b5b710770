// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
)

const (
	cacheKeyCategories  = "categories"
	cacheKeySearchPaths = "search_paths"
)

// MetadataSource is the subset of Client the metadata cache reads through.
type MetadataSource interface {
	Categories(ctx context.Context) ([]Category, error)
	SearchPaths(ctx context.Context) ([]SearchPath, error)
}

// MetaCache caches categories and search paths for a fixed TTL. The document
// screen and the chat filter form share one instance.
type MetaCache struct {
	src   MetadataSource
	cache *cache.Cache
	ttl   time.Duration
}

// NewMetaCache creates a cache over src. ttl <= 0 disables caching.
func NewMetaCache(src MetadataSource, ttl time.Duration) *MetaCache {
	cleanup := 10 * time.Minute
	if ttl > 0 && ttl < cleanup {
		cleanup = ttl
	}
	return &MetaCache{
		src:   src,
		cache: cache.New(ttl, cleanup),
		ttl:   ttl,
	}
}

// Categories returns cached categories, fetching them on a miss.
func (m *MetaCache) Categories(ctx context.Context) ([]Category, error) {
	if v, ok := m.cache.Get(cacheKeyCategories); ok {
		return v.([]Category), nil
	}
	cats, err := m.src.Categories(ctx)
	if err != nil {
		return nil, err
	}
	m.store(cacheKeyCategories, cats)
	return cats, nil
}

// SearchPaths returns cached search paths, fetching them on a miss.
func (m *MetaCache) SearchPaths(ctx context.Context) ([]SearchPath, error) {
	if v, ok := m.cache.Get(cacheKeySearchPaths); ok {
		return v.([]SearchPath), nil
	}
	paths, err := m.src.SearchPaths(ctx)
	if err != nil {
		return nil, err
	}
	m.store(cacheKeySearchPaths, paths)
	return paths, nil
}

// Invalidate drops all cached metadata, e.g. after an upload adds a folder.
func (m *MetaCache) Invalidate() {
	m.cache.Flush()
}

func (m *MetaCache) store(key string, v any) {
	if m.ttl <= 0 {
		return
	}
	m.cache.SetDefault(key, v)
}
