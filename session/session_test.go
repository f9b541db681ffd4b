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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSession(t *testing.T) *Session {
	t.Helper()
	s, err := New(Metadata{
		KeySessionID: "11111111-1111-1111-1111-111111111111",
		KeyChatbotID: "22222222-2222-2222-2222-222222222222",
		KeyOrgID:     "33333333-3333-3333-3333-333333333333",
	})
	require.NoError(t, err)
	return s
}

func TestNewRejectsConflictingIdentity(t *testing.T) {
	_, err := New(Metadata{
		KeySessionID: "11111111-1111-1111-1111-111111111111",
		KeyOrgID:     "11111111-1111-1111-1111-111111111111",
	})
	require.ErrorIs(t, err, ErrIdentityConflict)
}

func TestSingleActiveResponse(t *testing.T) {
	s := newTestSession(t)

	assert.False(t, s.HasActiveResponse())
	require.True(t, s.BeginResponse("resp-1"))
	assert.True(t, s.HasActiveResponse())
	assert.Equal(t, "resp-1", s.ActiveResponseID())

	// Duplicate start for the same response is idempotent.
	assert.True(t, s.BeginResponse("resp-1"))
	// A different response cannot start while one is live.
	assert.False(t, s.BeginResponse("resp-2"))

	require.True(t, s.EndResponse())
	assert.False(t, s.HasActiveResponse())
	// Spurious completion with nothing in flight is reported.
	assert.False(t, s.EndResponse())

	assert.True(t, s.BeginResponse("resp-2"))
}

func TestTransferGate(t *testing.T) {
	s := newTestSession(t)

	require.True(t, s.BeginTransfer("scheduling"))
	pending, target := s.Transferring()
	assert.True(t, pending)
	assert.Equal(t, "scheduling", target)

	// One transfer at a time.
	assert.False(t, s.BeginTransfer("authentication"))

	s.EndTransfer()
	pending, target = s.Transferring()
	assert.False(t, pending)
	assert.Empty(t, target)
	assert.True(t, s.BeginTransfer("authentication"))
}

func TestMetadataSnapshotIsolation(t *testing.T) {
	s := newTestSession(t)
	snap := s.Metadata()
	snap[KeyCustomerName] = "mutated"
	assert.Empty(t, s.Metadata().String(KeyCustomerName))

	s.Set(KeyCustomerName, "Dana")
	assert.Equal(t, "Dana", s.Metadata().String(KeyCustomerName))
}

func TestReplaceMetadataRevalidates(t *testing.T) {
	s := newTestSession(t)
	bad := s.Metadata()
	bad[KeyChatbotID] = bad.SessionID()
	require.ErrorIs(t, s.ReplaceMetadata(bad), ErrIdentityConflict)
	// Original metadata untouched after the failed swap.
	assert.Equal(t, "22222222-2222-2222-2222-222222222222", s.Metadata().ChatbotID())

	good := s.Metadata()
	good[KeyIsVerified] = true
	require.NoError(t, s.ReplaceMetadata(good))
	assert.True(t, s.Metadata().Verified())
}

func TestReset(t *testing.T) {
	s := newTestSession(t)
	s.SetActiveAgent("realestate")
	s.BeginResponse("resp-1")
	s.BeginTransfer("scheduling")
	s.Transcript().Upsert("item-1", "user", "hi", false)

	s.Reset()

	assert.False(t, s.HasActiveResponse())
	pending, _ := s.Transferring()
	assert.False(t, pending)
	assert.Equal(t, 0, s.Transcript().Len())
	// Identity and agent survive a reset.
	assert.Equal(t, "11111111-1111-1111-1111-111111111111", s.ID())
	assert.Equal(t, "realestate", s.ActiveAgent())
}
