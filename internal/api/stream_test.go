// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSSEReader_Framing(t *testing.T) {
	input := ": keepalive\n" +
		"data: {\"a\":1}\n\n" +
		"event: error\r\n" +
		"data:{'message': 'x'}\r\n\r\n" +
		"data: line1\n" +
		"data: line2\n\n" +
		"event: end\n\n" +
		"id: 7\n" +
		"data: tail"

	r := NewSSEReader(strings.NewReader(input))

	name, data, err := r.ReadEvent()
	require.NoError(t, err)
	assert.Equal(t, "", name)
	assert.Equal(t, `{"a":1}`, string(data))

	name, data, err = r.ReadEvent()
	require.NoError(t, err)
	assert.Equal(t, "error", name)
	assert.Equal(t, `{'message': 'x'}`, string(data))

	_, data, err = r.ReadEvent()
	require.NoError(t, err)
	assert.Equal(t, "line1\nline2", string(data))

	name, data, err = r.ReadEvent()
	require.NoError(t, err)
	assert.Equal(t, "end", name)
	assert.Empty(t, data)

	_, data, err = r.ReadEvent()
	require.NoError(t, err)
	assert.Equal(t, "tail", string(data))

	_, _, err = r.ReadEvent()
	assert.ErrorIs(t, err, io.EOF)
}

func TestSSEReader_LineTooLong(t *testing.T) {
	input := "data: " + strings.Repeat("x", MaxEventSize+10) + "\n\n"
	r := NewSSEReader(strings.NewReader(input))
	_, _, err := r.ReadEvent()
	assert.Error(t, err)
}

func newTestStream(body string) *Stream {
	rc := io.NopCloser(strings.NewReader(body))
	return &Stream{
		chatID: "c1",
		body:   rc,
		reader: NewSSEReader(rc),
		cancel: func() {},
		logger: nopLogger(),
	}
}

func TestStream_NextStopsAfterTerminal(t *testing.T) {
	s := newTestStream("data: {\"type\":\"AIMessageChunk\",\"content\":\"hi\"}\n\nevent: end\ndata:{}\n\ndata: {\"type\":\"AIMessageChunk\",\"content\":\"late\"}\n\n")

	ev, err := s.Next()
	require.NoError(t, err)
	assert.Equal(t, TokenChunk{Text: "hi"}, ev)

	ev, err = s.Next()
	require.NoError(t, err)
	assert.Equal(t, StreamEnd{}, ev)

	_, err = s.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestStream_DisconnectIsTransportError(t *testing.T) {
	s := newTestStream("data: {\"type\":\"tool\",\"content\":\"x\"}\n\n")

	_, err := s.Next()
	require.NoError(t, err)

	ev, err := s.Next()
	require.NoError(t, err)
	se, ok := ev.(StreamError)
	require.True(t, ok)
	assert.True(t, se.Transport)
}

func TestStream_CloseIsIdempotent(t *testing.T) {
	s := newTestStream("data: {}\n\n")
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, err := s.Next()
	assert.ErrorIs(t, err, ErrStreamClosed)
}
