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
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"trpc.group/trpc-go/trpc-realtime-go/agent"
	"trpc.group/trpc-go/trpc-realtime-go/event"
	"trpc.group/trpc-go/trpc-realtime-go/internal/phone"
	itelemetry "trpc.group/trpc-go/trpc-realtime-go/internal/telemetry"
	"trpc.group/trpc-go/trpc-realtime-go/log"
	"trpc.group/trpc-go/trpc-realtime-go/session"
	"trpc.group/trpc-go/trpc-realtime-go/telemetry/trace"
	"trpc.group/trpc-go/trpc-realtime-go/tool"
)

// argument field names the dispatcher treats specially.
const (
	argPhoneNumber = "phone_number"
)

// dispatchBatch runs every tool call of one response. Handlers execute
// concurrently; side effects are applied in issuance order so the
// channel sees a deterministic sequence. The first transfer ends the
// batch: the session has moved on, remaining results belong to an agent
// that no longer owns it.
func (o *Orchestrator) dispatchBatch(ctx context.Context, author string, calls []event.ToolCall) {
	def := o.registry.Get(author)
	if def == nil {
		log.Errorf("flow: tool calls from unknown agent %q dropped", author)
		return
	}
	transcript := o.sess.Transcript().Messages()

	// Per-call handlers run on plain goroutines: this batch already holds a
	// pool worker, and submitting children into the same pool wedges once
	// every worker is a batch runner.
	results := make([]tool.Result, len(calls))
	var wg sync.WaitGroup
	for i := range calls {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = o.dispatchOne(ctx, def, calls[i], transcript)
		}()
	}
	wg.Wait()

	emitted := false
	for i, res := range results {
		if res.UIHint != "" {
			o.hints.show(res.UIHint, res.Payload)
		}
		if res.Kind != tool.KindTransfer {
			o.applyMetadataDeltas(res.Payload)
		}
		switch res.Kind {
		case tool.KindTransfer:
			// Results emitted so far stay in the conversation context; the
			// transfer itself triggers the next response.
			o.executeTransfer(ctx, def, calls[i].CallID, res)
			if rest := len(results) - i - 1; rest > 0 {
				log.Infof("flow: %d tool results after transfer discarded", rest)
			}
			return
		case tool.KindSilent:
			// No result surfaced, no response requested.
		default:
			o.emitToolResult(ctx, def.Name(), calls[i].CallID, res.Payload)
			emitted = true
		}
	}
	if emitted {
		o.requestResponse(ctx)
	}
}

// dispatchOne resolves and runs a single tool call, returning the
// classified result. All failure modes produce a structured error result;
// nothing escapes as a panic or a dropped call.
func (o *Orchestrator) dispatchOne(ctx context.Context, def *agent.Definition, call event.ToolCall, transcript []tool.Message) tool.Result {
	ctx, span := trace.Tracer.Start(ctx, itelemetry.SpanNamePrefixDispatchTool+"."+call.Name)
	defer span.End()

	args, err := parseArguments(call.Arguments)
	if err != nil {
		log.Warnf("flow: malformed arguments for %s (%s): %v", call.Name, call.CallID, err)
		return tool.Classify(tool.ErrorResult(
			"malformed arguments: "+err.Error(),
			"re-issue the call with a valid JSON argument object",
			def.DefaultUIHint(),
		))
	}

	t := def.Tool(call.Name)
	if t == nil {
		return tool.Classify(tool.ErrorResult(
			fmt.Sprintf("agent %q has no tool named %q", def.Name(), call.Name),
			unknownToolSuggestion(def),
			def.DefaultUIHint(),
		))
	}

	o.normalizePhone(args)
	mergeMetadataIntoArgs(args, o.sess.Metadata())

	itelemetry.TraceToolDispatch(span, t.Declaration(), o.sess.ID(), call.CallID, args)

	payload, err := t.Call(ctx, args, transcript)
	if err != nil {
		log.Warnf("flow: tool %s failed: %v", call.Name, err)
		return tool.Classify(tool.ErrorResult(
			err.Error(),
			"relay the problem to the user and retry if they ask",
			def.DefaultUIHint(),
		))
	}
	res := tool.Classify(payload)
	if res.UIHint == "" && res.Kind == tool.KindError {
		res.UIHint = def.DefaultUIHint()
	}
	return res
}

// parseArguments decodes the raw model-issued argument JSON. Empty
// payloads mean no arguments.
func parseArguments(raw json.RawMessage) (map[string]any, error) {
	if len(raw) == 0 {
		return map[string]any{}, nil
	}
	var args map[string]any
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, err
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, nil
}

// normalizePhone coerces a caller-supplied phone number toward E.164 and
// echoes it into metadata immediately. The live argument is the one field
// that is authoritative over stored state; the echo keeps retries
// consistent after a failed verification attempt.
func (o *Orchestrator) normalizePhone(args map[string]any) {
	raw, _ := args[argPhoneNumber].(string)
	if raw == "" {
		return
	}
	normalized := phone.Normalize(raw)
	args[argPhoneNumber] = normalized
	o.sess.Set(session.KeyPhoneNumber, normalized)
}

// mergeMetadataIntoArgs fills argument gaps from session metadata. An
// argument the model supplied with a non-empty value wins; empty or
// missing slots take the stored value.
func mergeMetadataIntoArgs(args map[string]any, meta session.Metadata) {
	for k, v := range meta {
		if existing, ok := args[k]; ok && !isEmptyValue(existing) {
			continue
		}
		args[k] = v
	}
	// Handlers read the wire spelling for the phone field.
	if existing, ok := args[argPhoneNumber]; !ok || isEmptyValue(existing) {
		if p := meta.String(session.KeyPhoneNumber); p != "" {
			args[argPhoneNumber] = p
		}
	}
}

// applyMetadataDeltas writes the whitelisted fields of a tool result back
// into session metadata. Handlers never touch shared state directly; this
// is the one channel their state changes flow through outside a transfer.
func (o *Orchestrator) applyMetadataDeltas(payload map[string]any) {
	if len(payload) == 0 {
		return
	}
	delta := session.Metadata(payload).Clone()
	session.Canonicalize(delta)
	for k, v := range delta {
		if session.IsKnownKey(k) {
			o.sess.Set(k, v)
		}
	}
}

func isEmptyValue(v any) bool {
	switch tv := v.(type) {
	case nil:
		return true
	case string:
		return tv == ""
	case []any:
		return len(tv) == 0
	case map[string]any:
		return len(tv) == 0
	}
	return false
}

// unknownToolSuggestion tells the model how to proceed on the agent it is
// actually talking to. This is the primary defense against hallucinated
// tool names.
func unknownToolSuggestion(def *agent.Definition) string {
	switch def.DisplayMode() {
	case agent.DisplaySchedulingForm:
		return "call getAvailableSlots to begin scheduling"
	case agent.DisplayVerificationForm:
		return "call submitPhoneNumber to begin verification"
	}
	names := make([]string, 0, len(def.Tools()))
	for _, t := range def.Tools() {
		names = append(names, t.Declaration().Name)
	}
	if len(names) == 0 {
		return "respond conversationally; this agent has no tools"
	}
	return "use one of: " + strings.Join(names, ", ")
}

// emitToolResult appends the serialized result to the conversation.
func (o *Orchestrator) emitToolResult(ctx context.Context, agentName, callID string, payload map[string]any) {
	text, err := json.Marshal(payload)
	if err != nil {
		log.Errorf("flow: marshal tool result for %s: %v", callID, err)
		text = []byte(`{"error":"internal: unserializable tool result"}`)
	}
	item := &event.Item{
		ItemID:    "result_" + callID,
		Role:      event.RoleTool,
		Text:      string(text),
		Status:    event.StatusDone,
		AgentName: agentName,
	}
	if err := o.ch.CreateItem(ctx, item); err != nil {
		log.Errorf("flow: emit tool result %s: %v", callID, err)
	}
}

func (o *Orchestrator) requestResponse(ctx context.Context) {
	if err := o.ch.RequestResponse(ctx); err != nil {
		log.Errorf("flow: request response: %v", err)
	}
}
