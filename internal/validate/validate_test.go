// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package validate

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Email string `validate:"required,email" label:"Email address"`
	Date  string `validate:"omitempty,datetime=2006-01-02" label:"Created from"`
	Name  string `validate:"max=5"`
}

func TestStruct_Valid(t *testing.T) {
	assert.NoError(t, Struct(sample{Email: "a@b.co", Date: "2024-02-29", Name: "Ann"}))
	assert.NoError(t, Struct(sample{Email: "a@b.co"}))
}

func TestStruct_CollectsMessages(t *testing.T) {
	err := Struct(sample{Email: "nope", Date: "31/01/2024", Name: "Alexander"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalid))

	msg := Message(err)
	assert.Contains(t, msg, "Email address must be a valid email address")
	assert.Contains(t, msg, "Created from must be a date like 2024-01-31")
	assert.Contains(t, msg, "Name must be at most 5 characters")
}

func TestStruct_Required(t *testing.T) {
	err := Struct(sample{})
	require.Error(t, err)
	assert.Equal(t, "Email address is required", Message(err))
}
