//
// Tencent is pleased to support the open source community by making trpc-realtime-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-realtime-go is licensed under the Apache License Version 2.0.
//
//

// Package channel abstracts the bidirectional model session the flow talks
// to. Drivers translate between provider wire formats and the event types
// in package event; the flow core never sees a provider payload.
package channel

import (
	"context"
	"errors"

	"trpc.group/trpc-go/trpc-realtime-go/event"
)

// ErrClosed is returned by commands issued after the channel shut down.
var ErrClosed = errors.New("channel: closed")

// Channel is one live model session. Commands are issued by the flow;
// server events arrive on Events. A driver closes the Events stream when
// the underlying connection ends, after delivering any terminal error as
// an event.TypeError.
type Channel interface {
	// CreateItem appends a conversation item to the model context without
	// requesting a response.
	CreateItem(ctx context.Context, item *event.Item) error

	// RequestResponse asks the model to produce the next response.
	RequestResponse(ctx context.Context) error

	// CancelResponse cancels the in-flight response, if any. The driver
	// acknowledges with a response.canceled or response.completed event.
	CancelResponse(ctx context.Context) error

	// ClearInput discards buffered, uncommitted user input.
	ClearInput(ctx context.Context) error

	// UpdateSession reconfigures the model side: instructions, tools,
	// language. Used on connect and at every agent transfer.
	UpdateSession(ctx context.Context, update *event.SessionUpdate) error

	// Events returns the server event stream. The flow is the only reader.
	Events() <-chan *event.Event

	// Close tears the session down and closes the Events stream.
	Close() error
}
