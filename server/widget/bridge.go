//
// Tencent is pleased to support the open source community by making trpc-realtime-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-realtime-go is licensed under the Apache License Version 2.0.
//
//

package widget

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"

	"trpc.group/trpc-go/trpc-realtime-go/channel"
	"trpc.group/trpc-go/trpc-realtime-go/event"
	"trpc.group/trpc-go/trpc-realtime-go/log"
)

// clientFacingTypes are the model events mirrored to the browser. Raw
// response payloads stay server-side; the client renders items.
var clientFacingTypes = map[event.Type]bool{
	event.TypeItemCreated:            true,
	event.TypeItemDelta:              true,
	event.TypeTranscriptionCompleted: true,
	event.TypeResponseStarted:        true,
	event.TypeResponseCompleted:      true,
	event.TypeResponseCanceled:       true,
	event.TypeError:                  true,
}

// tappedChannel wraps a channel so every inbound event is also offered
// to a tap before the orchestrator consumes it. The orchestrator stays
// the sole reader of the wrapped stream.
type tappedChannel struct {
	channel.Channel
	out chan *event.Event
}

func newTappedChannel(inner channel.Channel, tap func(*event.Event)) *tappedChannel {
	t := &tappedChannel{
		Channel: inner,
		out:     make(chan *event.Event, 32),
	}
	go func() {
		defer close(t.out)
		for evt := range inner.Events() {
			if clientFacingTypes[evt.Type] {
				tap(evt)
			}
			t.out <- evt
		}
	}()
	return t
}

// Events returns the tapped stream.
func (t *tappedChannel) Events() <-chan *event.Event { return t.out }

// clientWriter serializes frames to the browser connection. It doubles
// as the flow's hint sink.
type clientWriter struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *clientWriter) send(evt *event.Event) {
	data, err := json.Marshal(evt)
	if err != nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		log.Debugf("widget: client write: %v", err)
	}
}

// ShowHint implements flow.HintSink. The hint and its payload ride in a
// system item so the frame shape matches every other client event.
func (c *clientWriter) ShowHint(hint string, payload map[string]any) {
	body, err := json.Marshal(map[string]any{"hint": hint, "payload": payload})
	if err != nil {
		return
	}
	evt := event.New(TypeUIHint, event.WithItem(&event.Item{
		ItemID: "hint",
		Role:   event.RoleSystem,
		Text:   string(body),
		Status: event.StatusDone,
	}))
	c.send(evt)
}
