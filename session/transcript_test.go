//
// Tencent is pleased to support the open source community by making trpc-realtime-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-realtime-go is licensed under the Apache License Version 2.0.
//
//

package session

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/trpc-realtime-go/event"
)

func TestTranscriptDeltaThenFinal(t *testing.T) {
	tr := NewTranscript()

	require.True(t, tr.Upsert("item-1", event.RoleAssistant, "Hel", true))
	require.True(t, tr.Upsert("item-1", event.RoleAssistant, "lo", true))
	text, ok := tr.Text("item-1")
	require.True(t, ok)
	assert.Equal(t, "Hello", text)

	// A non-delta announcement replaces accumulated text.
	require.True(t, tr.Upsert("item-1", event.RoleAssistant, "Hello there", false))
	tr.MarkStatus("item-1", event.StatusDone)

	// Finished items are immutable.
	assert.False(t, tr.Upsert("item-1", event.RoleAssistant, "mutated", false))
	assert.False(t, tr.Upsert("item-1", event.RoleAssistant, "x", true))
	text, _ = tr.Text("item-1")
	assert.Equal(t, "Hello there", text)
}

func TestTranscriptDuplicateCompletion(t *testing.T) {
	tr := NewTranscript()
	tr.Upsert("item-1", event.RoleUser, "hi", false)
	tr.MarkStatus("item-1", event.StatusDone)
	tr.MarkStatus("item-1", event.StatusDone)
	tr.MarkStatus("item-1", event.StatusError)

	items := tr.Items()
	require.Len(t, items, 1)
	assert.Equal(t, event.StatusDone, items[0].Status)
}

func TestTranscriptOrderAndMessages(t *testing.T) {
	tr := NewTranscript()
	tr.Upsert("a", event.RoleUser, "first", false)
	tr.Upsert("b", event.RoleAssistant, "second", false)
	tr.SetAgent("b", "realestate")
	tr.Upsert("c", event.RoleAssistant, "", false)

	msgs := tr.Messages()
	require.Len(t, msgs, 2) // empty item skipped
	assert.Equal(t, "first", msgs[0].Text)
	assert.Equal(t, event.RoleUser, msgs[0].Role)
	assert.Equal(t, "second", msgs[1].Text)
	assert.Equal(t, "realestate", msgs[1].AgentName)
	assert.Equal(t, 3, tr.Len())
}

func TestTranscriptIgnoresEmptyAndLongIDs(t *testing.T) {
	tr := NewTranscript()
	assert.False(t, tr.Upsert("", event.RoleUser, "x", false))

	long := strings.Repeat("x", 200)
	require.True(t, tr.Upsert(long, event.RoleUser, "truncated key", false))
	text, ok := tr.Text(long)
	require.True(t, ok)
	assert.Equal(t, "truncated key", text)
	assert.Equal(t, 1, tr.Len())
}
