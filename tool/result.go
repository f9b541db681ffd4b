//
// Tencent is pleased to support the open source community by making trpc-realtime-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-realtime-go is licensed under the Apache License Version 2.0.
//
//

package tool

// Control field keys recognized in handler result objects. Handlers signal
// intent through these keys; the dispatcher classifies on them and the
// transfer coordinator strips them before metadata is merged.
const (
	// KeyDestination names the agent a transfer result hands the session to.
	KeyDestination = "destination"
	// KeyDestinationAgent is the legacy alias some handlers emit.
	KeyDestinationAgent = "destination_agent"
	// KeySilentTransfer marks a transfer that must not narrate itself.
	KeySilentTransfer = "silentTransfer"
	// KeySilent suppresses the tool result entirely (no destination).
	KeySilent = "silent"
	// KeyError carries a handler-reported error message.
	KeyError = "error"
	// KeySuggestedAction tells the model how to recover from an error.
	KeySuggestedAction = "suggested_action"
	// KeyUIHint names the presentation mode the result wants shown.
	KeyUIHint = "ui_display_hint"
	// KeySuccess is a success flag some handlers emit alongside transfers.
	KeySuccess = "success"
)

// UI hint values understood by the presentation layer. Opaque to the core;
// forwarded as-is.
const (
	UIHintChat             = "CHAT"
	UIHintSchedulingForm   = "SCHEDULING_FORM"
	UIHintVerificationForm = "VERIFICATION_FORM"
)

// Kind classifies a handler result.
type Kind int

const (
	// KindNormal surfaces the payload to the model as a tool result.
	KindNormal Kind = iota
	// KindSilent suppresses the result entirely.
	KindSilent
	// KindTransfer hands the session to another agent.
	KindTransfer
	// KindError reports a structured, recoverable error to the model.
	KindError
)

// Result is the classified outcome of one tool call.
type Result struct {
	// Kind tags the union.
	Kind Kind
	// Payload is the full result object as returned by the handler.
	Payload map[string]any
	// Destination is the target agent name for KindTransfer.
	Destination string
	// SilentTransfer marks a transfer that must not narrate itself.
	SilentTransfer bool
	// ErrorMessage is set for KindError.
	ErrorMessage string
	// SuggestedAction is the corrective action for KindError.
	SuggestedAction string
	// UIHint is the presentation mode the result wants shown, if any.
	UIHint string
}

// Classify inspects a raw handler result object and tags it.
// Precedence: destination beats silent beats error; a handler that both
// transfers and reports an error is treated as a transfer carrying the
// error payload, matching how verification failures hand back to the
// calling agent.
func Classify(payload map[string]any) Result {
	r := Result{Kind: KindNormal, Payload: payload}
	if payload == nil {
		return r
	}
	r.UIHint, _ = payload[KeyUIHint].(string)

	if dest := destinationOf(payload); dest != "" {
		r.Kind = KindTransfer
		r.Destination = dest
		r.SilentTransfer, _ = payload[KeySilentTransfer].(bool)
		return r
	}
	if silent, _ := payload[KeySilent].(bool); silent {
		r.Kind = KindSilent
		return r
	}
	if msg, ok := payload[KeyError].(string); ok && msg != "" {
		r.Kind = KindError
		r.ErrorMessage = msg
		r.SuggestedAction, _ = payload[KeySuggestedAction].(string)
	}
	return r
}

// ErrorResult builds a structured error payload for the model, with a
// suggested corrective action and an optional UI hint.
func ErrorResult(message, suggestedAction, uiHint string) map[string]any {
	payload := map[string]any{
		KeyError: message,
	}
	if suggestedAction != "" {
		payload[KeySuggestedAction] = suggestedAction
	}
	if uiHint != "" {
		payload[KeyUIHint] = uiHint
	}
	return payload
}

// ControlKeys lists the transfer-control fields that must never leak into
// session metadata.
func ControlKeys() []string {
	return []string{
		KeyDestination,
		KeyDestinationAgent,
		KeySilentTransfer,
		KeySilent,
		KeyError,
		KeySuggestedAction,
		KeySuccess,
		KeyUIHint,
	}
}

func destinationOf(payload map[string]any) string {
	if dest, ok := payload[KeyDestination].(string); ok && dest != "" {
		return dest
	}
	if dest, ok := payload[KeyDestinationAgent].(string); ok && dest != "" {
		return dest
	}
	return ""
}
