// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSource struct {
	categoryCalls int
	pathCalls     int
	fail          bool
}

func (s *countingSource) Categories(ctx context.Context) ([]Category, error) {
	s.categoryCalls++
	if s.fail {
		return nil, errors.New("down")
	}
	return []Category{{ID: "topic"}}, nil
}

func (s *countingSource) SearchPaths(ctx context.Context) ([]SearchPath, error) {
	s.pathCalls++
	return []SearchPath{{Folder: "/a"}}, nil
}

func TestMetaCache_HitAndMiss(t *testing.T) {
	src := &countingSource{}
	mc := NewMetaCache(src, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		cats, err := mc.Categories(ctx)
		require.NoError(t, err)
		assert.Len(t, cats, 1)
		_, err = mc.SearchPaths(ctx)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, src.categoryCalls)
	assert.Equal(t, 1, src.pathCalls)

	mc.Invalidate()
	_, err := mc.Categories(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, src.categoryCalls)
}

func TestMetaCache_ErrorsAreNotCached(t *testing.T) {
	src := &countingSource{fail: true}
	mc := NewMetaCache(src, time.Minute)

	_, err := mc.Categories(context.Background())
	require.Error(t, err)

	src.fail = false
	_, err = mc.Categories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, src.categoryCalls)
}

func TestMetaCache_ZeroTTLDisablesCaching(t *testing.T) {
	src := &countingSource{}
	mc := NewMetaCache(src, 0)

	_, _ = mc.Categories(context.Background())
	_, _ = mc.Categories(context.Background())
	assert.Equal(t, 2, src.categoryCalls)
}
