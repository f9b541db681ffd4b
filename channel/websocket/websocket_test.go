//
// Tencent is pleased to support the open source community by making trpc-realtime-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-realtime-go is licensed under the Apache License Version 2.0.
//
//

package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gorilla "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/trpc-realtime-go/event"
)

// echoReadyServer upgrades, sends session.ready and echoes every frame
// back with its type flipped to item.created.
func echoReadyServer(t *testing.T) *httptest.Server {
	t.Helper()
	upgrader := &gorilla.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()

		ready, _ := json.Marshal(event.New(event.TypeSessionReady))
		require.NoError(t, conn.WriteMessage(gorilla.TextMessage, ready))

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var evt event.Event
			if err := json.Unmarshal(data, &evt); err != nil {
				continue
			}
			evt.Type = event.TypeItemCreated
			out, _ := json.Marshal(&evt)
			if err := conn.WriteMessage(gorilla.TextMessage, out); err != nil {
				return
			}
		}
	}))
}

func wsURL(s *httptest.Server) string {
	return "ws" + strings.TrimPrefix(s.URL, "http")
}

func TestDialAndRoundTrip(t *testing.T) {
	srv := echoReadyServer(t)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ch, err := Dial(ctx, wsURL(srv))
	require.NoError(t, err)
	defer ch.Close()

	evt := <-ch.Events()
	require.NotNil(t, evt)
	assert.Equal(t, event.TypeSessionReady, evt.Type)

	item := &event.Item{ItemID: "i1", Role: event.RoleUser, Text: "hello", Status: event.StatusDone}
	require.NoError(t, ch.CreateItem(ctx, item))

	echoed := <-ch.Events()
	require.NotNil(t, echoed)
	assert.Equal(t, event.TypeItemCreated, echoed.Type)
	require.NotNil(t, echoed.Item)
	assert.Equal(t, "hello", echoed.Item.Text)
}

func TestCommandsAfterCloseFail(t *testing.T) {
	srv := echoReadyServer(t)
	defer srv.Close()

	ctx := context.Background()
	ch, err := Dial(ctx, wsURL(srv))
	require.NoError(t, err)
	<-ch.Events()
	require.NoError(t, ch.Close())

	err = ch.RequestResponse(ctx)
	require.Error(t, err)
}

func TestEventsStreamClosesWithConnection(t *testing.T) {
	srv := echoReadyServer(t)
	defer srv.Close()

	ch, err := Dial(context.Background(), wsURL(srv))
	require.NoError(t, err)
	<-ch.Events()
	require.NoError(t, ch.Close())

	select {
	case _, ok := <-ch.Events():
		assert.False(t, ok, "stream must close after the connection ends")
	case <-time.After(2 * time.Second):
		t.Fatal("events stream did not close")
	}
}
