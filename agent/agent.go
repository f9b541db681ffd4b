//
// Tencent is pleased to support the open source community by making trpc-realtime-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-realtime-go is licensed under the Apache License Version 2.0.
//
//

// Package agent defines the static description of a conversational agent
// and the registry that resolves names to definitions. Definitions are
// immutable after construction; per-session state lives in session.
package agent

import (
	"trpc.group/trpc-go/trpc-realtime-go/tool"
)

// Display modes shape the default presentation of an agent's errors and
// prompts when a tool result carries no explicit hint.
const (
	// DisplayChat renders plain conversation.
	DisplayChat = "chat"
	// DisplayVerificationForm renders the phone verification form.
	DisplayVerificationForm = "verification_form"
	// DisplaySchedulingForm renders the slot picker.
	DisplaySchedulingForm = "scheduling_form"
)

// Definition is one agent: its prompt, its tools and the agents it may
// hand the session to. Build with New; the zero value is not usable.
type Definition struct {
	name        string
	description string
	instruction string
	displayMode string
	tools       map[string]*tool.Tool
	toolOrder   []string
	downstream  []string
	defaults    map[string]any
	kickoff     string
}

// Option configures a Definition under construction.
type Option func(*Definition)

// WithDescription sets the agent description shown to transferring peers.
func WithDescription(description string) Option {
	return func(d *Definition) { d.description = description }
}

// WithInstruction sets the system instruction for the model.
func WithInstruction(instruction string) Option {
	return func(d *Definition) { d.instruction = instruction }
}

// WithDisplayMode sets the agent's default presentation mode.
func WithDisplayMode(mode string) Option {
	return func(d *Definition) { d.displayMode = mode }
}

// WithTools registers the agent's callable tools.
func WithTools(tools ...*tool.Tool) Option {
	return func(d *Definition) {
		for _, t := range tools {
			if t == nil {
				continue
			}
			name := t.Declaration().Name
			if _, exists := d.tools[name]; !exists {
				d.toolOrder = append(d.toolOrder, name)
			}
			d.tools[name] = t
		}
	}
}

// WithDownstream names the agents this agent may transfer to. Order is
// preserved; it drives the destination enum shown to the model.
func WithDownstream(names ...string) Option {
	return func(d *Definition) { d.downstream = append(d.downstream, names...) }
}

// WithDefaultMetadata sets the metadata baseline a session receives when
// it transfers into this agent. Live session state and transfer fields
// layer on top.
func WithDefaultMetadata(defaults map[string]any) Option {
	return func(d *Definition) { d.defaults = defaults }
}

// WithKickoffMessage sets the synthesized user message that starts this
// agent after a silent transfer, so it acts without waiting for input.
func WithKickoffMessage(text string) Option {
	return func(d *Definition) { d.kickoff = text }
}

// New builds an agent definition.
func New(name string, opts ...Option) *Definition {
	d := &Definition{
		name:        name,
		displayMode: DisplayChat,
		tools:       make(map[string]*tool.Tool),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Name returns the agent name.
func (d *Definition) Name() string { return d.name }

// Description returns the agent description.
func (d *Definition) Description() string { return d.description }

// Instruction returns the system instruction.
func (d *Definition) Instruction() string { return d.instruction }

// DisplayMode returns the default presentation mode.
func (d *Definition) DisplayMode() string { return d.displayMode }

// Downstream returns the names of agents this agent may transfer to.
func (d *Definition) Downstream() []string {
	return append([]string(nil), d.downstream...)
}

// CanTransferTo reports whether name is a permitted transfer target.
func (d *Definition) CanTransferTo(name string) bool {
	for _, n := range d.downstream {
		if n == name {
			return true
		}
	}
	return false
}

// Tool returns the named tool, or nil when the agent does not have it.
func (d *Definition) Tool(name string) *tool.Tool {
	return d.tools[name]
}

// Tools returns the agent's tools in registration order.
func (d *Definition) Tools() []*tool.Tool {
	out := make([]*tool.Tool, 0, len(d.toolOrder))
	for _, name := range d.toolOrder {
		out = append(out, d.tools[name])
	}
	return out
}

// Declarations returns the schemas of the agent's tools in registration
// order, for session.update payloads.
func (d *Definition) Declarations() []*tool.Declaration {
	out := make([]*tool.Declaration, 0, len(d.toolOrder))
	for _, name := range d.toolOrder {
		out = append(out, d.tools[name].Declaration())
	}
	return out
}

// DefaultMetadata returns a copy of the agent's metadata baseline.
func (d *Definition) DefaultMetadata() map[string]any {
	out := make(map[string]any, len(d.defaults))
	for k, v := range d.defaults {
		out[k] = v
	}
	return out
}

// KickoffMessage returns the silent-transfer starter message, if any.
func (d *Definition) KickoffMessage() string { return d.kickoff }

// DefaultUIHint maps the display mode to the hint sent with structured
// errors that carry none of their own.
func (d *Definition) DefaultUIHint() string {
	switch d.displayMode {
	case DisplayVerificationForm:
		return tool.UIHintVerificationForm
	case DisplaySchedulingForm:
		return tool.UIHintSchedulingForm
	default:
		return tool.UIHintChat
	}
}
