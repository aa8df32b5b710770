// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func nopLogger() *zap.Logger { return zap.NewNop() }

func TestErrorReason(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"error field", `{"error":"File type not allowed"}`, "File type not allowed"},
		{"message field", `{"message":"nope"}`, "nope"},
		{"error before message", `{"message":"b","error":"a"}`, "a"},
		{"nested error", `{"error":{"message":"deep"}}`, "deep"},
		{"json string", `"chat id not found"`, "chat id not found"},
		{"plain text", `Internal Server Error`, ""},
		{"empty", ``, ""},
		{"object without reason", `{"detail":"x"}`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errorReason([]byte(tt.body)))
		})
	}
}

func TestUserMessage(t *testing.T) {
	withReason := fmt.Errorf("upload: %w", newError(400, []byte(`{"error":"No selected file"}`)))
	assert.Equal(t, "No selected file", UserMessage(withReason, "Upload failed."))

	noReason := newError(500, []byte("oops"))
	assert.Equal(t, "Upload failed.", UserMessage(noReason, "Upload failed."))

	assert.Equal(t, "Upload failed.", UserMessage(errors.New("dial tcp: refused"), "Upload failed."))
	assert.Equal(t, "", UserMessage(nil, "x"))
}

func TestError_Message(t *testing.T) {
	assert.Equal(t, "HTTP 400: bad", (&Error{Status: 400, Reason: "bad"}).Error())
	assert.Equal(t, "HTTP 404 Not Found", (&Error{Status: 404}).Error())
	assert.True(t, IsStatus(fmt.Errorf("x: %w", &Error{Status: 404}), 404))
}
