//
// Tencent is pleased to support the open source community by making trpc-realtime-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-realtime-go is licensed under the Apache License Version 2.0.
//
//

// Package tool provides tool declarations and the handler contract for the
// agent system.
package tool

import (
	"context"
)

// Message is the view of one transcript entry a handler receives. Handlers
// see content and provenance only; dedup bookkeeping stays in the core.
type Message struct {
	// Role is the speaker role: user, assistant or system.
	Role string `json:"role"`
	// Text is the message content.
	Text string `json:"text"`
	// AgentName records which agent produced the message.
	AgentName string `json:"agentName,omitempty"`
}

// Handler executes one tool call. The arguments map is the model-issued
// payload after session metadata has been merged in; transcript is a
// read-only snapshot of the conversation so far. The returned map is the
// raw result object; the dispatcher classifies it (see Classify).
type Handler func(ctx context.Context, args map[string]any, transcript []Message) (map[string]any, error)

// Tool pairs a declaration with its handler.
type Tool struct {
	declaration *Declaration
	handler     Handler
}

// New creates a tool from a declaration and a handler.
func New(declaration *Declaration, handler Handler) *Tool {
	return &Tool{declaration: declaration, handler: handler}
}

// Declaration returns the metadata describing the tool.
func (t *Tool) Declaration() *Declaration {
	return t.declaration
}

// Call invokes the handler.
func (t *Tool) Call(ctx context.Context, args map[string]any, transcript []Message) (map[string]any, error) {
	return t.handler(ctx, args, transcript)
}

// Declaration describes the metadata of a tool: its name, description and
// expected arguments.
type Declaration struct {
	// Name is the unique identifier of the tool.
	Name string `json:"name"`

	// Description explains the tool's purpose and functionality.
	Description string `json:"description"`

	// InputSchema defines the expected input for the tool in JSON schema format.
	InputSchema *Schema `json:"inputSchema"`
}

// Schema represents the structure of JSON Schema used for defining arguments.
// It follows the JSON Schema standard, supporting various types, properties,
// and validation rules.
type Schema struct {
	// Type specifies the data type (e.g., "object", "array", "string", "number").
	Type        string   `json:"type"`
	Description string   `json:"description,omitempty"`
	Required    []string `json:"required,omitempty"`
	// Properties of the arguments, each with its own schema.
	Properties map[string]*Schema `json:"properties,omitempty"`
	// For array types, defines the schema of items in the array.
	Items *Schema `json:"items,omitempty"`
	// Enum restricts a string schema to a fixed set of values.
	Enum []string `json:"enum,omitempty"`
}
