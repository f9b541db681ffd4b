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
	"sync"
	"time"
)

// Session is the orchestration state for one live connection. All methods
// are safe for concurrent use; the flow goroutine and channel reader both
// touch it.
type Session struct {
	mu sync.RWMutex

	metadata   Metadata
	transcript *Transcript

	activeAgent       string
	hasActiveResponse bool
	activeResponseID  string
	transferring      bool
	transferTarget    string

	createdAt time.Time
	updatedAt time.Time
}

// New creates a session with validated metadata and an empty transcript.
func New(metadata Metadata) (*Session, error) {
	if err := ValidateIdentity(metadata); err != nil {
		return nil, err
	}
	now := time.Now()
	return &Session{
		metadata:   metadata.Clone(),
		transcript: NewTranscript(),
		createdAt:  now,
		updatedAt:  now,
	}, nil
}

// ID returns the session identifier.
func (s *Session) ID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.metadata.SessionID()
}

// Transcript returns the session's transcript, which carries its own lock.
func (s *Session) Transcript() *Transcript { return s.transcript }

// Metadata returns a snapshot of the session metadata. Mutating the
// returned map does not affect the session.
func (s *Session) Metadata() Metadata {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.metadata.Clone()
}

// ReplaceMetadata swaps in merged metadata, revalidating identity first.
func (s *Session) ReplaceMetadata(m Metadata) error {
	if err := ValidateIdentity(m); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metadata = m.Clone()
	s.updatedAt = time.Now()
	return nil
}

// Set writes a single metadata field.
func (s *Session) Set(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metadata[key] = value
	s.updatedAt = time.Now()
}

// ActiveAgent returns the agent currently owning the conversation.
func (s *Session) ActiveAgent() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeAgent
}

// SetActiveAgent hands the conversation to the named agent.
func (s *Session) SetActiveAgent(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeAgent = name
	s.updatedAt = time.Now()
}

// BeginResponse records that a model response started. Repeat starts for
// the same response id are idempotent; a start for a different id while
// one is in flight is refused so at most one response is ever live.
func (s *Session) BeginResponse(responseID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hasActiveResponse {
		return s.activeResponseID == responseID
	}
	s.hasActiveResponse = true
	s.activeResponseID = responseID
	s.updatedAt = time.Now()
	return true
}

// EndResponse clears the in-flight flag. Returns false when no response
// was active, letting callers swallow spurious completion notices.
func (s *Session) EndResponse() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasActiveResponse {
		return false
	}
	s.hasActiveResponse = false
	s.activeResponseID = ""
	s.updatedAt = time.Now()
	return true
}

// HasActiveResponse reports whether a model response is in flight.
func (s *Session) HasActiveResponse() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hasActiveResponse
}

// ActiveResponseID returns the id of the in-flight response, if any.
func (s *Session) ActiveResponseID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeResponseID
}

// BeginTransfer marks the session as mid-transfer toward target. A second
// transfer attempt while one is pending is refused.
func (s *Session) BeginTransfer(target string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.transferring {
		return false
	}
	s.transferring = true
	s.transferTarget = target
	s.updatedAt = time.Now()
	return true
}

// EndTransfer clears the transfer-in-progress state.
func (s *Session) EndTransfer() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transferring = false
	s.transferTarget = ""
	s.updatedAt = time.Now()
}

// Transferring reports whether a transfer is pending and toward whom.
func (s *Session) Transferring() (bool, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.transferring, s.transferTarget
}

// CreatedAt returns the session creation time.
func (s *Session) CreatedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.createdAt
}

// UpdatedAt returns the last mutation time.
func (s *Session) UpdatedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updatedAt
}

// Reset clears conversational state while keeping identity, for reuse of
// a stored session across reconnects.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transcript = NewTranscript()
	s.hasActiveResponse = false
	s.activeResponseID = ""
	s.transferring = false
	s.transferTarget = ""
	s.updatedAt = time.Now()
}
