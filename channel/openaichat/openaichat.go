//
// Tencent is pleased to support the open source community by making trpc-realtime-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-realtime-go is licensed under the Apache License Version 2.0.
//
//

// Package openaichat drives an OpenAI-compatible chat completion API as
// the model side of a session channel. It keeps the conversation history
// locally and translates completions into the channel event protocol, so
// the flow core sees the same stream a realtime transport would produce.
package openaichat

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	openai "github.com/openai/openai-go"
	openaiopt "github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"trpc.group/trpc-go/trpc-realtime-go/channel"
	"trpc.group/trpc-go/trpc-realtime-go/event"
	"trpc.group/trpc-go/trpc-realtime-go/log"
	"trpc.group/trpc-go/trpc-realtime-go/tool"
)

const (
	defaultModel = "gpt-4o-mini"
	eventBuffer  = 64

	// toolResultPrefix is how the flow names tool-result items; the call
	// id the API expects is the remainder.
	toolResultPrefix = "result_"
)

// Options configure the driver.
type Options struct {
	model      string
	clientOpts []openaiopt.RequestOption
}

// Option configures the driver.
type Option func(*Options)

// WithModel sets the completion model name.
func WithModel(name string) Option {
	return func(o *Options) { o.model = name }
}

// WithAPIKey sets the API key.
func WithAPIKey(key string) Option {
	return func(o *Options) {
		o.clientOpts = append(o.clientOpts, openaiopt.WithAPIKey(key))
	}
}

// WithBaseURL points the client at an OpenAI-compatible endpoint.
func WithBaseURL(url string) Option {
	return func(o *Options) {
		o.clientOpts = append(o.clientOpts, openaiopt.WithBaseURL(url))
	}
}

// Channel is a chat-completion-backed model session.
type Channel struct {
	client openai.Client
	model  string
	events chan *event.Event

	mu           sync.Mutex
	history      []openai.ChatCompletionMessageParamUnion
	pendingCalls []string
	tools        []openai.ChatCompletionToolParam
	instructions string
	agentName    string
	seq          int
	cancelActive context.CancelFunc
	closed       bool
}

var _ channel.Channel = (*Channel)(nil)

// New creates the driver and announces session readiness on the stream.
func New(opt ...Option) *Channel {
	opts := Options{model: defaultModel}
	for _, o := range opt {
		o(&opts)
	}
	c := &Channel{
		client: openai.NewClient(opts.clientOpts...),
		model:  opts.model,
		events: make(chan *event.Event, eventBuffer),
	}
	c.events <- event.New(event.TypeSessionReady)
	return c
}

// UpdateSession swaps instructions and the tool catalog. History is kept;
// the next completion runs with the destination agent's configuration.
func (c *Channel) UpdateSession(_ context.Context, update *event.SessionUpdate) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return channel.ErrClosed
	}
	c.agentName = update.AgentName
	c.instructions = update.Instructions
	if update.Language != "" {
		c.instructions += "\nRespond in the language tagged " + update.Language + "."
	}
	c.tools = convertTools(update.Tools)
	return nil
}

// CreateItem appends a conversation item to the local history and echoes
// an item.created so the flow's transcript stays in step.
func (c *Channel) CreateItem(_ context.Context, item *event.Item) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return channel.ErrClosed
	}
	switch item.Role {
	case event.RoleUser:
		c.history = append(c.history, openai.ChatCompletionMessageParamUnion{
			OfUser: &openai.ChatCompletionUserMessageParam{
				Content: openai.ChatCompletionUserMessageParamContentUnion{
					OfString: openai.String(item.Text),
				},
			},
		})
	case event.RoleTool:
		callID := strings.TrimPrefix(item.ItemID, toolResultPrefix)
		c.history = append(c.history, openai.ChatCompletionMessageParamUnion{
			OfTool: &openai.ChatCompletionToolMessageParam{
				Content: openai.ChatCompletionToolMessageParamContentUnion{
					OfString: openai.String(item.Text),
				},
				ToolCallID: callID,
			},
		})
		c.markCallAnswered(callID)
	case event.RoleSystem:
		c.history = append(c.history, openai.ChatCompletionMessageParamUnion{
			OfSystem: &openai.ChatCompletionSystemMessageParam{
				Content: openai.ChatCompletionSystemMessageParamContentUnion{
					OfString: openai.String(item.Text),
				},
			},
		})
	default:
		c.history = append(c.history, openai.ChatCompletionMessageParamUnion{
			OfAssistant: &openai.ChatCompletionAssistantMessageParam{
				Content: openai.ChatCompletionAssistantMessageParamContentUnion{
					OfString: openai.String(item.Text),
				},
			},
		})
	}
	if item.Role != event.RoleTool {
		c.emitLocked(event.New(event.TypeItemCreated, event.WithItem(item)))
	}
	return nil
}

// RequestResponse starts one completion. Lifecycle events for it arrive
// on the stream; a second request while one runs is dropped, matching the
// single-active-response contract.
func (c *Channel) RequestResponse(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return channel.ErrClosed
	}
	if c.cancelActive != nil {
		c.mu.Unlock()
		log.Debugf("openaichat: response requested while one is active, dropping")
		return nil
	}
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c.cancelActive = cancel
	c.seq++
	responseID := fmt.Sprintf("resp_%d", c.seq)
	c.settleDanglingCalls()
	request := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(c.model),
		Messages: c.requestMessages(),
		Tools:    c.tools,
	}
	author := c.agentName
	c.mu.Unlock()

	go c.complete(runCtx, responseID, author, request)
	return nil
}

// CancelResponse stops the in-flight completion. Nothing active is fine;
// the flow treats that as already settled.
func (c *Channel) CancelResponse(context.Context) error {
	c.mu.Lock()
	cancel := c.cancelActive
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	} else {
		c.emit(event.New(event.TypeResponseCanceled))
	}
	return nil
}

// ClearInput is a no-op for the text transport; there is no audio buffer.
func (c *Channel) ClearInput(context.Context) error { return nil }

// Events implements channel.Channel.
func (c *Channel) Events() <-chan *event.Event { return c.events }

// Close implements channel.Channel.
func (c *Channel) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	cancel := c.cancelActive
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	close(c.events)
	return nil
}

// complete runs one completion and emits its lifecycle on the stream.
func (c *Channel) complete(ctx context.Context, responseID, author string, request openai.ChatCompletionNewParams) {
	defer func() {
		c.mu.Lock()
		c.cancelActive = nil
		c.mu.Unlock()
	}()

	c.emit(event.New(event.TypeResponseStarted,
		event.WithResponse(&event.Response{ID: responseID, Author: author})))

	itemID := fmt.Sprintf("assistant_%s", responseID)
	acc := openai.ChatCompletionAccumulator{}
	stream := c.client.Chat.Completions.NewStreaming(ctx, request)
	for stream.Next() {
		chunk := stream.Current()
		acc.AddChunk(chunk)
		if len(chunk.Choices) > 0 && chunk.Choices[0].Delta.Content != "" {
			c.emit(event.New(event.TypeItemDelta, event.WithDelta(&event.Delta{
				ItemID: itemID,
				Text:   chunk.Choices[0].Delta.Content,
			})))
		}
	}
	if err := stream.Err(); err != nil {
		if ctx.Err() != nil {
			c.emit(event.New(event.TypeResponseCanceled,
				event.WithResponse(&event.Response{ID: responseID, Author: author, Status: event.ResponseStatusCanceled})))
			return
		}
		log.Errorf("openaichat: completion failed: %v", err)
		c.emit(event.NewError("completion", err.Error()))
		c.emit(event.New(event.TypeResponseCompleted,
			event.WithResponse(&event.Response{ID: responseID, Author: author, Status: event.ResponseStatusFailed})))
		return
	}

	var output string
	var toolCalls []event.ToolCall
	if len(acc.Choices) > 0 {
		msg := acc.Choices[0].Message
		output = msg.Content
		for _, tc := range msg.ToolCalls {
			toolCalls = append(toolCalls, event.ToolCall{
				Name:      tc.Function.Name,
				CallID:    tc.ID,
				Arguments: json.RawMessage(tc.Function.Arguments),
			})
		}
	}

	if len(acc.Choices) > 0 {
		c.mu.Lock()
		if !c.closed {
			c.history = append(c.history, acc.Choices[0].Message.ToParam())
			for _, tc := range toolCalls {
				c.pendingCalls = append(c.pendingCalls, tc.CallID)
			}
		}
		c.mu.Unlock()
	}

	if output != "" {
		c.emit(event.New(event.TypeItemCreated, event.WithItem(&event.Item{
			ItemID:    itemID,
			Role:      event.RoleAssistant,
			Text:      output,
			Status:    event.StatusDone,
			AgentName: author,
		})))
	}
	c.emit(event.New(event.TypeResponseCompleted, event.WithResponse(&event.Response{
		ID:        responseID,
		Author:    author,
		Status:    event.ResponseStatusCompleted,
		Output:    output,
		ToolCalls: toolCalls,
	})))
}

// markCallAnswered drops a call id from the unanswered set. Caller holds
// the lock.
func (c *Channel) markCallAnswered(callID string) {
	for i, id := range c.pendingCalls {
		if id == callID {
			c.pendingCalls = append(c.pendingCalls[:i], c.pendingCalls[i+1:]...)
			return
		}
	}
}

// settleDanglingCalls answers tool calls that produced no tool-result
// item. Silent results and transfers leave their calls unanswered, but
// the completion API rejects an assistant tool_calls message without a
// tool message per call id, so each one gets a minimal acknowledgement.
// Caller holds the lock.
func (c *Channel) settleDanglingCalls() {
	for _, callID := range c.pendingCalls {
		c.history = append(c.history, openai.ChatCompletionMessageParamUnion{
			OfTool: &openai.ChatCompletionToolMessageParam{
				Content: openai.ChatCompletionToolMessageParamContentUnion{
					OfString: openai.String(`{"acknowledged":true}`),
				},
				ToolCallID: callID,
			},
		})
	}
	c.pendingCalls = nil
}

// requestMessages renders the system prompt plus history. Caller holds
// the lock.
func (c *Channel) requestMessages() []openai.ChatCompletionMessageParamUnion {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(c.history)+1)
	if c.instructions != "" {
		msgs = append(msgs, openai.ChatCompletionMessageParamUnion{
			OfSystem: &openai.ChatCompletionSystemMessageParam{
				Content: openai.ChatCompletionSystemMessageParamContentUnion{
					OfString: openai.String(c.instructions),
				},
			},
		})
	}
	return append(msgs, c.history...)
}

// emit delivers an event without blocking. The lock is held across the
// send so a concurrent Close cannot close the stream mid-send.
func (c *Channel) emit(evt *event.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.emitLocked(evt)
}

// emitLocked is emit for callers already holding c.mu.
func (c *Channel) emitLocked(evt *event.Event) {
	if c.closed {
		return
	}
	select {
	case c.events <- evt:
	default:
		log.Warnf("openaichat: event buffer full, dropping %s", evt.Type)
	}
}

func convertTools(declarations []*tool.Declaration) []openai.ChatCompletionToolParam {
	var result []openai.ChatCompletionToolParam
	for _, declaration := range declarations {
		if declaration == nil {
			continue
		}
		schemaBytes, err := json.Marshal(declaration.InputSchema)
		if err != nil {
			log.Errorf("openaichat: marshal schema for %s: %v", declaration.Name, err)
			continue
		}
		var parameters shared.FunctionParameters
		if err := json.Unmarshal(schemaBytes, &parameters); err != nil {
			log.Errorf("openaichat: unmarshal schema for %s: %v", declaration.Name, err)
			continue
		}
		result = append(result, openai.ChatCompletionToolParam{
			Function: openai.FunctionDefinitionParam{
				Name:        declaration.Name,
				Description: openai.String(declaration.Description),
				Parameters:  parameters,
			},
		})
	}
	return result
}
