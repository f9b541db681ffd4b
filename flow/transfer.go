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
	"errors"
	"fmt"

	"trpc.group/trpc-go/trpc-realtime-go/agent"
	"trpc.group/trpc-go/trpc-realtime-go/event"
	itelemetry "trpc.group/trpc-go/trpc-realtime-go/internal/telemetry"
	"trpc.group/trpc-go/trpc-realtime-go/log"
	"trpc.group/trpc-go/trpc-realtime-go/session"
	"trpc.group/trpc-go/trpc-realtime-go/telemetry/trace"
	"trpc.group/trpc-go/trpc-realtime-go/tool"
)

// defaultKickoff starts a destination agent that has no phrase of its own.
const defaultKickoff = "Hi"

// executeTransfer moves conversation ownership to the destination named
// by the classified tool result. The originating call id stays paired
// with whatever result the model sees. Validation failures are reported
// to the model and leave the session with the current agent; identity
// conflicts abort the transfer before any state is swapped.
func (o *Orchestrator) executeTransfer(ctx context.Context, from *agent.Definition, callID string, res tool.Result) {
	ctx, span := trace.Tracer.Start(ctx, itelemetry.SpanNameTransfer)
	defer span.End()

	dest := o.registry.Get(res.Destination)
	if dest == nil || !from.CanTransferTo(res.Destination) {
		log.Warnf("flow: transfer from %s to unavailable agent %q refused", from.Name(), res.Destination)
		o.reportTransferFailure(ctx, from, callID, fmt.Sprintf("agent %q is not a permitted transfer target", res.Destination))
		return
	}

	if !o.sess.BeginTransfer(dest.Name()) {
		log.Warnf("flow: transfer to %s refused, another transfer is pending", dest.Name())
		o.reportTransferFailure(ctx, from, callID, "a transfer is already in progress")
		return
	}

	if err := o.cancelActiveResponse(ctx); err != nil {
		o.sess.EndTransfer()
		o.reportTransferFailure(ctx, from, callID, "could not cancel the active response: "+err.Error())
		return
	}

	merged, err := o.mergeForTransfer(from, dest, res.Payload)
	if err != nil {
		o.sess.EndTransfer()
		log.Errorf("flow: transfer %s -> %s aborted: %v", from.Name(), dest.Name(), err)
		o.reportTransferFailure(ctx, from, callID, "internal identity conflict, transfer aborted")
		return
	}

	if err := o.sess.ReplaceMetadata(merged); err != nil {
		o.sess.EndTransfer()
		o.reportTransferFailure(ctx, from, callID, "internal identity conflict, transfer aborted")
		return
	}
	o.sess.SetActiveAgent(dest.Name())

	silent := res.SilentTransfer || o.opts.silentAgents[dest.Name()]
	itelemetry.TraceTransfer(span, o.sess.ID(), from.Name(), dest.Name(), silent)
	log.Infof("flow: transfer %s -> %s (silent=%t)", from.Name(), dest.Name(), silent)

	if err := o.updateSessionConfig(ctx, dest); err != nil {
		log.Errorf("flow: session update for %s: %v", dest.Name(), err)
	}

	if silent {
		o.kickoff(ctx, dest)
		return
	}
	o.emitToolResult(ctx, from.Name(), callID, map[string]any{
		tool.KeySuccess: true,
		"message":       fmt.Sprintf("conversation transferred to %s", dest.Name()),
	})
	o.requestResponse(ctx)
}

// mergeForTransfer computes the destination's metadata. Precedence from
// lowest to highest: destination defaults, live session metadata, fields
// carried by the transferring tool result. The provenance stamp is
// written last and control fields never survive the merge.
func (o *Orchestrator) mergeForTransfer(from, dest *agent.Definition, payload map[string]any) (session.Metadata, error) {
	fields := session.Metadata(payload).Clone()
	session.Canonicalize(fields)
	session.StripTransferControls(fields)

	merged := session.Merge(session.Metadata(dest.DefaultMetadata()), o.sess.Metadata(), fields)
	session.Canonicalize(merged)
	session.StripTransferControls(merged)
	merged[session.KeyCameFrom] = from.Name()

	if err := session.ValidateIdentity(merged); err != nil {
		return nil, err
	}
	return merged, nil
}

// kickoff clears pending input and plants the destination's starter
// message so agents that must self-start issue their first tool call
// without waiting for the user.
func (o *Orchestrator) kickoff(ctx context.Context, dest *agent.Definition) {
	if err := o.ch.ClearInput(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Debugf("flow: clear input before kickoff: %v", err)
	}
	text := dest.KickoffMessage()
	if text == "" {
		text = defaultKickoff
	}
	// The sequence number keeps repeat kickoffs to the same agent from
	// colliding in the transcript.
	item := &event.Item{
		ItemID: fmt.Sprintf("kickoff_%s_%d", dest.Name(), o.kickoffSeq.Add(1)),
		Role:   event.RoleUser,
		Text:   text,
		Status: event.StatusDone,
	}
	if err := o.ch.CreateItem(ctx, item); err != nil {
		log.Errorf("flow: kickoff for %s: %v", dest.Name(), err)
		return
	}
	o.requestResponse(ctx)
}

// reportTransferFailure surfaces a non-fatal transfer problem to the
// model as a structured tool result paired with the failing call.
func (o *Orchestrator) reportTransferFailure(ctx context.Context, from *agent.Definition, callID, message string) {
	payload := tool.ErrorResult(message, "stay with the current agent and tell the user", from.DefaultUIHint())
	o.emitToolResult(ctx, from.Name(), callID, payload)
	o.requestResponse(ctx)
}
