//
// Tencent is pleased to support the open source community by making trpc-realtime-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-realtime-go is licensed under the Apache License Version 2.0.
//
//

package identifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValid(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want bool
	}{
		{"hyphenated uuid", "0198a2bc-1111-4abc-9def-0123456789ab", true},
		{"plain 32 hex", "0198a2bc11114abc9def0123456789ab", true},
		{"uppercase hex", "0198A2BC-1111-4ABC-9DEF-0123456789AB", true},
		{"empty", "", false},
		{"too short", "abc123", false},
		{"non-hex", "0198a2bc-1111-4abc-9def-0123456789zz", false},
		{"wrong grouping", "0198a2bc1111-4abc-9def-0123456789ab", false},
		{"33 hex chars", "0198a2bc11114abc9def0123456789abc", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Valid(tt.in))
		})
	}
}

func TestResolve(t *testing.T) {
	valid := "0198a2bc-1111-4abc-9def-0123456789ab"
	stored := "0198a2bc11114abc9def0123456789ab"

	assert.Equal(t, valid, Resolve(valid, stored))
	assert.Equal(t, stored, Resolve("not-an-id", stored))

	// Both invalid: a fresh canonical identifier is generated.
	generated := Resolve("not-an-id", "also-bad")
	assert.True(t, Valid(generated))
	assert.NotEqual(t, "not-an-id", generated)
}

func TestGenerateIsCanonical(t *testing.T) {
	assert.True(t, Valid(Generate()))
}
