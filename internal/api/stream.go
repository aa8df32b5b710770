// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	"go.uber.org/zap"
)

// MaxEventSize is the maximum allowed size of a single SSE line (1MB).
const MaxEventSize = 1024 * 1024

// =============================================================================
// SSE READER
// =============================================================================

// SSEReader parses Server-Sent Events from a stream.
type SSEReader struct {
	reader *bufio.Reader
}

// NewSSEReader creates a new SSE reader from an io.Reader.
func NewSSEReader(r io.Reader) *SSEReader {
	return &SSEReader{
		reader: bufio.NewReaderSize(r, 64*1024),
	}
}

// ReadEvent reads the next SSE event from the stream.
// Returns the event name (empty for the default message event), the joined
// data lines, and any error. Returns io.EOF when the stream ends.
func (s *SSEReader) ReadEvent() (string, []byte, error) {
	var eventType string
	var dataLines [][]byte
	seen := false

	flush := func() (string, []byte, error) {
		return eventType, bytes.Join(dataLines, []byte("\n")), nil
	}

	for {
		line, err := s.readLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				// A final event without its blank line still counts.
				if seen {
					return flush()
				}
				return "", nil, io.EOF
			}
			return "", nil, err
		}

		// Empty line signals end of event
		if len(line) == 0 {
			if seen {
				return flush()
			}
			continue
		}

		switch {
		case bytes.HasPrefix(line, []byte(":")):
			// comment
		case bytes.HasPrefix(line, []byte("event:")):
			eventType = string(bytes.TrimSpace(line[6:]))
			seen = true
		case bytes.HasPrefix(line, []byte("data:")):
			data := line[5:]
			if len(data) > 0 && data[0] == ' ' {
				data = data[1:]
			}
			dataLines = append(dataLines, append([]byte(nil), data...))
			seen = true
		}
		// Ignore other fields (id:, retry:)
	}
}

// readLine reads one line without its terminator, enforcing MaxEventSize.
func (s *SSEReader) readLine() ([]byte, error) {
	var buf []byte
	for {
		chunk, isPrefix, err := s.reader.ReadLine()
		if err != nil {
			if len(buf) > 0 && errors.Is(err, io.EOF) {
				return buf, nil
			}
			return nil, err
		}
		buf = append(buf, chunk...)
		if len(buf) > MaxEventSize {
			return nil, fmt.Errorf("SSE line exceeds %d bytes", MaxEventSize)
		}
		if !isPrefix {
			return bytes.TrimRight(buf, "\r"), nil
		}
	}
}

// =============================================================================
// STREAM HANDLE
// =============================================================================

// Stream is an open event stream for one chat. It must be closed by its
// owner; Close is safe to call more than once.
type Stream struct {
	chatID string
	body   io.ReadCloser
	reader *SSEReader
	cancel context.CancelFunc
	logger *zap.Logger

	mu     sync.Mutex
	closed bool
	done   bool
}

// ChatID returns the chat this stream belongs to.
func (s *Stream) ChatID() string {
	return s.chatID
}

// Next blocks until the next event arrives. After a terminal event
// (StreamEnd or StreamError) or a transport failure, Next keeps returning
// io.EOF. After Close it returns ErrStreamClosed.
func (s *Stream) Next() (StreamEvent, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrStreamClosed
	}
	if s.done {
		s.mu.Unlock()
		return nil, io.EOF
	}
	s.mu.Unlock()

	name, data, err := s.reader.ReadEvent()
	if err != nil {
		s.mu.Lock()
		closed := s.closed
		s.done = true
		s.mu.Unlock()
		if closed {
			return nil, ErrStreamClosed
		}
		msg := "stream disconnected"
		if !errors.Is(err, io.EOF) {
			msg = fmt.Sprintf("stream read failed: %v", err)
		}
		s.logger.Debug("stream transport failure", zap.String("chat_id", s.chatID), zap.Error(err))
		return StreamError{Message: msg, Transport: true}, nil
	}

	ev := DecodeEvent(name, data)
	switch ev.(type) {
	case StreamEnd, StreamError:
		s.mu.Lock()
		s.done = true
		s.mu.Unlock()
	}
	return ev, nil
}

// Close cancels the request and releases the connection. A blocked Next
// returns ErrStreamClosed.
func (s *Stream) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	return s.body.Close()
}

// =============================================================================
// OPEN
// =============================================================================

// OpenStream opens GET chat/{id}/stream. The stream lives until Close or
// until ctx is done.
func (c *Client) OpenStream(ctx context.Context, chatID string) (*Stream, error) {
	if chatID == "" {
		return nil, ErrEmptyID
	}
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	streamCtx, cancel := context.WithCancel(ctx)
	req, err := http.NewRequestWithContext(streamCtx, http.MethodGet, c.endpoint("chat", chatID, "stream"), nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	reqID := c.tagRequest(req)

	resp, err := c.streamClient.Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("stream request failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		resp.Body.Close()
		cancel()
		return nil, newError(resp.StatusCode, body)
	}

	c.logger.Debug("stream opened",
		zap.String("chat_id", chatID),
		zap.String("request_id", reqID),
	)

	return &Stream{
		chatID: chatID,
		body:   resp.Body,
		reader: NewSSEReader(resp.Body),
		cancel: cancel,
		logger: c.logger,
	}, nil
}
