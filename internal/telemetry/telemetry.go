//
// Tencent is pleased to support the open source community by making trpc-realtime-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-realtime-go is licensed under the Apache License Version 2.0.
//
//

// Package telemetry provides span and attribute naming for the orchestration
// core.
package telemetry

import (
	"encoding/json"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"trpc.group/trpc-go/trpc-realtime-go/tool"
)

// Telemetry service constants.
const (
	ServiceName      = "telemetry"
	ServiceVersion   = "v0.1.0"
	ServiceNamespace = "trpc-go-realtime"
	InstrumentName   = "trpc.realtime.go"

	SpanNamePrefixDispatchTool = "dispatch_tool"
	SpanNameTransfer           = "agent_transfer"
)

const (
	// ProtocolGRPC uses gRPC protocol for the OTLP exporter.
	ProtocolGRPC string = "grpc"
	// ProtocolHTTP uses HTTP protocol for the OTLP exporter.
	ProtocolHTTP string = "http"
)

// Telemetry attribute keys.
var (
	KeySessionID   = "trpc.go.realtime.session_id"
	KeyAgentName   = "trpc.go.realtime.agent_name"
	KeyToolCallID  = "trpc.go.realtime.tool_call_id"
	KeyDestination = "trpc.go.realtime.transfer_destination"
)

// TraceToolDispatch annotates a span with one dispatched tool call.
func TraceToolDispatch(span trace.Span, declaration *tool.Declaration, sessionID, callID string, args map[string]any) {
	span.SetAttributes(
		attribute.String("gen_ai.system", "trpc.go.realtime"),
		attribute.String("gen_ai.operation.name", "tool.execute"),
		attribute.String("gen_ai.tool.name", declaration.Name),
		attribute.String(KeySessionID, sessionID),
		attribute.String(KeyToolCallID, callID),
	)
	if bts, err := json.Marshal(args); err == nil {
		span.SetAttributes(attribute.String("trpc.go.realtime.tool_call_args", string(bts)))
	} else {
		span.SetAttributes(attribute.String("trpc.go.realtime.tool_call_args", "<not json serializable>"))
	}
}

// TraceTransfer annotates a span with one executed agent transfer.
func TraceTransfer(span trace.Span, sessionID, from, destination string, silent bool) {
	span.SetAttributes(
		attribute.String("gen_ai.system", "trpc.go.realtime"),
		attribute.String("gen_ai.operation.name", "agent.transfer"),
		attribute.String(KeySessionID, sessionID),
		attribute.String(KeyAgentName, from),
		attribute.String(KeyDestination, destination),
		attribute.Bool("trpc.go.realtime.silent_transfer", silent),
	)
}
