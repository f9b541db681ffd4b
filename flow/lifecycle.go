//
// Tencent is pleased to support the open source community by making trpc-realtime-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-realtime-go is licensed under the Apache License Version 2.0.
//
//

package flow

import (
	"context"
	"sync"
	"time"

	"trpc.group/trpc-go/trpc-realtime-go/event"
	"trpc.group/trpc-go/trpc-realtime-go/log"
)

// onResponseStarted marks a response active. A second start while one is
// live is upstream protocol noise; it is absorbed rather than surfaced.
func (o *Orchestrator) onResponseStarted(evt *event.Event) {
	if o.sess == nil || evt.Response == nil {
		return
	}
	if !o.sess.BeginResponse(evt.Response.ID) {
		log.Warnf("flow: response %s started while %s active, treating as active",
			evt.Response.ID, o.sess.ActiveResponseID())
	}
}

// onResponseCompleted clears the active flag, settles any pending
// cancellation wait, and decides whether the response's tool calls run.
// While a transfer is pending, only the destination agent's completion
// dispatches; a completion authored by the outgoing agent is stale and
// its tool calls are dropped.
func (o *Orchestrator) onResponseCompleted(ctx context.Context, evt *event.Event) {
	if o.sess == nil || evt.Response == nil {
		return
	}
	resp := evt.Response
	o.sess.EndResponse()
	o.acks.settle()

	author := resp.Author
	if pending, target := o.sess.Transferring(); pending {
		o.sess.EndTransfer()
		// Only the destination's own completion dispatches. An author-less
		// completion here is the canceled outgoing response finishing, not
		// the destination's first turn.
		if author != target {
			if resp.HasToolCalls() {
				log.Infof("flow: dropping %d stale tool calls from superseded agent %q",
					len(resp.ToolCalls), author)
			}
			return
		}
	}
	if author == "" {
		author = o.sess.ActiveAgent()
	}

	if !resp.HasToolCalls() {
		return
	}
	calls := append([]event.ToolCall(nil), resp.ToolCalls...)
	// Dispatch off the event loop so the transfer coordinator can await
	// cancellation acknowledgements that arrive as further events.
	if err := o.pool.Submit(func() { o.dispatchBatch(ctx, author, calls) }); err != nil {
		log.Errorf("flow: pool submit failed, dispatching inline: %v", err)
		go o.dispatchBatch(ctx, author, calls)
	}
}

// onResponseCanceled clears the active flag. A cancel with nothing in
// flight is expected after races and is swallowed.
func (o *Orchestrator) onResponseCanceled(evt *event.Event) {
	if o.sess == nil {
		return
	}
	if !o.sess.EndResponse() {
		log.Debugf("flow: cancellation with no active response, ignoring")
	}
	o.acks.settle()
}

// cancelActiveResponse issues a cancellation for the in-flight response
// and waits for the channel to acknowledge it. Nothing in flight is
// success. The wait is bounded so a lost acknowledgement cannot wedge a
// transfer.
func (o *Orchestrator) cancelActiveResponse(ctx context.Context) error {
	if !o.sess.HasActiveResponse() {
		return nil
	}
	wait := o.acks.arm()
	if err := o.ch.CancelResponse(ctx); err != nil {
		o.acks.settle()
		return err
	}
	select {
	case <-wait:
		return nil
	case <-time.After(o.opts.ackWindow):
		log.Warnf("flow: cancellation acknowledgement timed out after %s", o.opts.ackWindow)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// cancelAcks is the acknowledgement rendezvous between a goroutine that
// cancels a response and the event loop that later observes the
// response.canceled (or completed) event.
type cancelAcks struct {
	mu      sync.Mutex
	pending chan struct{}
}

func newCancelAcks() *cancelAcks { return &cancelAcks{} }

// arm registers interest in the next settlement and returns the channel
// closed when it happens.
func (c *cancelAcks) arm() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending == nil {
		c.pending = make(chan struct{})
	}
	return c.pending
}

// settle releases any armed waiter. Safe to call with none pending.
func (c *cancelAcks) settle() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending != nil {
		close(c.pending)
		c.pending = nil
	}
}
