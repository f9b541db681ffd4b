//
// Tencent is pleased to support the open source community by making trpc-realtime-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-realtime-go is licensed under the Apache License Version 2.0.
//
//

package event

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/trpc-realtime-go/tool"
)

func TestNewAssignsIdentityAndTimestamp(t *testing.T) {
	a := New(TypeSessionReady)
	b := New(TypeSessionReady)

	assert.Equal(t, TypeSessionReady, a.Type)
	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.False(t, a.Timestamp.IsZero())
}

func TestOptionsAttachPayloads(t *testing.T) {
	item := &Item{ItemID: "i1", Role: RoleUser, Text: "hello", Status: StatusDone}
	evt := New(TypeItemCreate, WithItem(item), WithAuthor("realestate"))

	assert.Equal(t, "realestate", evt.Author)
	require.NotNil(t, evt.Item)
	assert.Equal(t, "hello", evt.Item.Text)
	assert.Nil(t, evt.Response)
}

func TestNewError(t *testing.T) {
	evt := NewError("transport", "connection reset")

	assert.Equal(t, TypeError, evt.Type)
	require.NotNil(t, evt.Error)
	assert.Equal(t, "transport", evt.Error.Type)
	assert.Equal(t, "connection reset", evt.Error.Message)
}

func TestHasToolCalls(t *testing.T) {
	var nilRsp *Response
	assert.False(t, nilRsp.HasToolCalls())
	assert.False(t, (&Response{ID: "r1"}).HasToolCalls())
	assert.True(t, (&Response{ID: "r1", ToolCalls: []ToolCall{{Name: "lookupProperty"}}}).HasToolCalls())
}

func TestJSONRoundTrip(t *testing.T) {
	evt := New(TypeResponseCompleted,
		WithAuthor("scheduling"),
		WithResponse(&Response{
			ID:     "resp_1",
			Status: ResponseStatusCompleted,
			ToolCalls: []ToolCall{{
				Name:      "getAvailableSlots",
				CallID:    "call_1",
				Arguments: json.RawMessage(`{"property_id":"p1"}`),
			}},
		}),
	)

	data, err := json.Marshal(evt)
	require.NoError(t, err)

	var decoded Event
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, evt.Type, decoded.Type)
	assert.Equal(t, "scheduling", decoded.Author)
	require.NotNil(t, decoded.Response)
	require.Len(t, decoded.Response.ToolCalls, 1)
	assert.Equal(t, "call_1", decoded.Response.ToolCalls[0].CallID)
	assert.JSONEq(t, `{"property_id":"p1"}`, string(decoded.Response.ToolCalls[0].Arguments))
}

func TestCloneIsDeep(t *testing.T) {
	evt := New(TypeResponseCompleted,
		WithItem(&Item{ItemID: "i1", Text: "original"}),
		WithResponse(&Response{
			ID:        "resp_1",
			ToolCalls: []ToolCall{{Name: "transfer_to_agent", Arguments: json.RawMessage(`{}`)}},
		}),
		WithSession(&SessionUpdate{
			AgentName: "realestate",
			Tools:     []*tool.Declaration{{Name: "lookupProperty"}},
		}),
	)

	clone := evt.Clone()
	clone.Item.Text = "mutated"
	clone.Response.ToolCalls[0].Name = "mutated"
	clone.Response.ToolCalls[0].Arguments[0] = 'X'
	clone.Session.Tools[0] = &tool.Declaration{Name: "mutated"}

	assert.Equal(t, "original", evt.Item.Text)
	assert.Equal(t, "transfer_to_agent", evt.Response.ToolCalls[0].Name)
	assert.Equal(t, json.RawMessage(`{}`), evt.Response.ToolCalls[0].Arguments)
	assert.Equal(t, "lookupProperty", evt.Session.Tools[0].Name)

	var nilEvt *Event
	assert.Nil(t, nilEvt.Clone())
}
