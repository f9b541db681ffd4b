//
// Tencent is pleased to support the open source community by making trpc-realtime-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-realtime-go is licensed under the Apache License Version 2.0.
//
//

// Package event defines the bidirectional channel protocol between the
// orchestration core and the realtime model service.
package event

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"trpc.group/trpc-go/trpc-realtime-go/tool"
)

// Type discriminates events on the session channel.
type Type string

// Inbound event types (model service -> core).
const (
	// TypeSessionReady signals that the channel is established and the session
	// can be bootstrapped.
	TypeSessionReady Type = "session.ready"
	// TypeResponseStarted signals that the model began producing a response.
	TypeResponseStarted Type = "response.started"
	// TypeResponseCompleted carries the finished response, including any
	// function calls the model issued.
	TypeResponseCompleted Type = "response.completed"
	// TypeResponseCanceled acknowledges a cancellation.
	TypeResponseCanceled Type = "response.canceled"
	// TypeItemCreated announces a new transcript item (message or tool result).
	TypeItemCreated Type = "item.created"
	// TypeItemDelta carries a streaming text delta for an in-progress item.
	TypeItemDelta Type = "item.delta"
	// TypeTranscriptionCompleted carries the final transcription of user audio.
	TypeTranscriptionCompleted Type = "transcription.completed"
	// TypeError carries a server-side error.
	TypeError Type = "error"
)

// Outbound event types (core -> model service).
const (
	// TypeItemCreate asks the server to append an item (user message or tool
	// result) to the conversation.
	TypeItemCreate Type = "item.create"
	// TypeResponseRequest asks the model to produce a new response.
	TypeResponseRequest Type = "response.request"
	// TypeResponseCancel cancels the in-flight response, if any.
	TypeResponseCancel Type = "response.cancel"
	// TypeInputClear discards buffered, uncommitted user input.
	TypeInputClear Type = "input.clear"
	// TypeSessionUpdate swaps the active agent's instructions, tool catalog
	// and language onto the channel.
	TypeSessionUpdate Type = "session.update"
)

// Transcript item roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
	RoleTool      = "tool"
)

// Transcript item statuses.
const (
	StatusInProgress = "in_progress"
	StatusDone       = "done"
	StatusError      = "error"
)

// Response statuses.
const (
	ResponseStatusCompleted = "completed"
	ResponseStatusCanceled  = "canceled"
	ResponseStatusFailed    = "failed"
)

// Item is one logical transcript entry keyed by a stable identifier.
type Item struct {
	// ItemID is the stable, bounded-length identifier of the item.
	ItemID string `json:"itemId"`
	// Role is the speaker role: user, assistant or system.
	Role string `json:"role"`
	// Text is the item content.
	Text string `json:"text"`
	// Status is in_progress, done or error.
	Status string `json:"status"`
	// AgentName records which agent produced the item.
	AgentName string `json:"agentName,omitempty"`
}

// ToolCall is one function call issued by the model.
type ToolCall struct {
	// Name is the tool name as issued by the model.
	Name string `json:"name"`
	// CallID pairs the call with its result.
	CallID string `json:"callId"`
	// Arguments is the raw JSON argument payload.
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// Response is the payload of response lifecycle events.
type Response struct {
	// ID is the response identifier assigned by the server.
	ID string `json:"id"`
	// Author is the agent that was active when the response was produced.
	Author string `json:"author,omitempty"`
	// Status is completed, canceled or failed.
	Status string `json:"status,omitempty"`
	// Output is the assistant text, if any.
	Output string `json:"output,omitempty"`
	// ToolCalls are the function calls the model issued in this response.
	ToolCalls []ToolCall `json:"toolCalls,omitempty"`
}

// HasToolCalls reports whether the response carries function calls.
func (r *Response) HasToolCalls() bool {
	return r != nil && len(r.ToolCalls) > 0
}

// Delta is a streaming text fragment for an in-progress item.
type Delta struct {
	// ItemID identifies the item the fragment belongs to.
	ItemID string `json:"itemId"`
	// Text is the appended fragment.
	Text string `json:"text"`
}

// ErrorDetail describes a channel-level error.
type ErrorDetail struct {
	// Type classifies the error.
	Type string `json:"type"`
	// Message is the human-readable description.
	Message string `json:"message"`
}

// SessionUpdate reconfigures the channel for the active agent.
type SessionUpdate struct {
	// AgentName is the agent the session is being switched to.
	AgentName string `json:"agentName"`
	// Instructions are the agent's system instructions.
	Instructions string `json:"instructions,omitempty"`
	// Tools is the agent's tool catalog, transfer tool included.
	Tools []*tool.Declaration `json:"tools,omitempty"`
	// Language is the canonical BCP-47 language tag for the session.
	Language string `json:"language,omitempty"`
}

// Event is the single wire type exchanged on the session channel.
type Event struct {
	// Type discriminates the payload.
	Type Type `json:"type"`
	// ID is the unique identifier of the event.
	ID string `json:"id"`
	// Timestamp is when the event was produced.
	Timestamp time.Time `json:"timestamp"`
	// Author is the agent associated with the event, when one applies.
	Author string `json:"author,omitempty"`

	// Item is set for item.created and item.create.
	Item *Item `json:"item,omitempty"`
	// Response is set for response lifecycle events.
	Response *Response `json:"response,omitempty"`
	// Delta is set for item.delta.
	Delta *Delta `json:"delta,omitempty"`
	// Error is set for error events.
	Error *ErrorDetail `json:"error,omitempty"`
	// Session is set for session.update.
	Session *SessionUpdate `json:"session,omitempty"`
	// Transcript is set for transcription.completed.
	Transcript string `json:"transcript,omitempty"`
}

// Option configures an Event.
type Option func(*Event)

// WithAuthor sets the author of the event.
func WithAuthor(author string) Option {
	return func(e *Event) {
		e.Author = author
	}
}

// WithItem sets the item payload.
func WithItem(item *Item) Option {
	return func(e *Event) {
		e.Item = item
	}
}

// WithResponse sets the response payload.
func WithResponse(response *Response) Option {
	return func(e *Event) {
		e.Response = response
	}
}

// WithDelta sets the delta payload.
func WithDelta(delta *Delta) Option {
	return func(e *Event) {
		e.Delta = delta
	}
}

// WithSession sets the session.update payload.
func WithSession(update *SessionUpdate) Option {
	return func(e *Event) {
		e.Session = update
	}
}

// New creates a new Event with a generated ID and timestamp.
func New(typ Type, opts ...Option) *Event {
	e := &Event{
		Type:      typ,
		ID:        uuid.New().String(),
		Timestamp: time.Now(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NewError creates an error Event with the specified details.
func NewError(errorType, message string) *Event {
	return &Event{
		Type:      TypeError,
		ID:        uuid.New().String(),
		Timestamp: time.Now(),
		Error: &ErrorDetail{
			Type:    errorType,
			Message: message,
		},
	}
}

// Clone creates a deep copy of the event.
func (e *Event) Clone() *Event {
	if e == nil {
		return nil
	}
	clone := *e
	if e.Item != nil {
		item := *e.Item
		clone.Item = &item
	}
	if e.Response != nil {
		rsp := *e.Response
		rsp.ToolCalls = make([]ToolCall, len(e.Response.ToolCalls))
		for i, tc := range e.Response.ToolCalls {
			rsp.ToolCalls[i] = tc
			rsp.ToolCalls[i].Arguments = append(json.RawMessage(nil), tc.Arguments...)
		}
		clone.Response = &rsp
	}
	if e.Delta != nil {
		delta := *e.Delta
		clone.Delta = &delta
	}
	if e.Error != nil {
		detail := *e.Error
		clone.Error = &detail
	}
	if e.Session != nil {
		update := *e.Session
		update.Tools = append([]*tool.Declaration(nil), e.Session.Tools...)
		clone.Session = &update
	}
	return &clone
}
