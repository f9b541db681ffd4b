//
// Tencent is pleased to support the open source community by making trpc-realtime-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-realtime-go is licensed under the Apache License Version 2.0.
//
//

// Package websocket adapts a WebSocket connection to the channel
// interface. Frames are JSON-encoded event.Event values in both
// directions; the model service sits on the far end.
package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"trpc.group/trpc-go/trpc-realtime-go/channel"
	"trpc.group/trpc-go/trpc-realtime-go/event"
	"trpc.group/trpc-go/trpc-realtime-go/log"
)

const (
	writeTimeout = 10 * time.Second
	pongTimeout  = 60 * time.Second
	pingInterval = 25 * time.Second
	eventBuffer  = 32
)

// Options configure a Channel.
type Options struct {
	dialer  *websocket.Dialer
	headers http.Header
}

// Option configures the dial.
type Option func(*Options)

// WithDialer replaces the default dialer.
func WithDialer(d *websocket.Dialer) Option {
	return func(o *Options) { o.dialer = d }
}

// WithHeaders sets extra handshake headers, auth tokens included.
func WithHeaders(h http.Header) Option {
	return func(o *Options) { o.headers = h }
}

// Channel is a WebSocket-backed model session.
type Channel struct {
	conn   *websocket.Conn
	events chan *event.Event

	writeMu   sync.Mutex
	closeOnce sync.Once
	done      chan struct{}
}

var _ channel.Channel = (*Channel)(nil)

// Dial connects to the model service endpoint and starts the read loop.
func Dial(ctx context.Context, url string, opt ...Option) (*Channel, error) {
	opts := Options{dialer: websocket.DefaultDialer}
	for _, o := range opt {
		o(&opts)
	}
	conn, _, err := opts.dialer.DialContext(ctx, url, opts.headers)
	if err != nil {
		return nil, err
	}
	return wrap(conn), nil
}

// Accept upgrades an incoming HTTP request into a channel, for servers
// that terminate the widget's connection themselves.
func Accept(w http.ResponseWriter, r *http.Request, upgrader *websocket.Upgrader) (*Channel, error) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, err
	}
	return wrap(conn), nil
}

func wrap(conn *websocket.Conn) *Channel {
	c := &Channel{
		conn:   conn,
		events: make(chan *event.Event, eventBuffer),
		done:   make(chan struct{}),
	}
	conn.SetReadDeadline(time.Now().Add(pongTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongTimeout))
	})
	go c.readLoop()
	go c.pingLoop()
	return c
}

// readLoop decodes inbound frames until the connection ends, then closes
// the event stream. A decode failure is protocol noise, not fatal.
func (c *Channel) readLoop() {
	defer close(c.events)
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
				// Local close; nothing to report.
			default:
				if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					log.Warnf("websocket: read: %v", err)
					c.events <- event.NewError("transport", err.Error())
				}
			}
			c.Close()
			return
		}
		var evt event.Event
		if err := json.Unmarshal(data, &evt); err != nil {
			log.Warnf("websocket: undecodable frame dropped: %v", err)
			continue
		}
		select {
		case c.events <- &evt:
		case <-c.done:
			return
		}
	}
}

func (c *Channel) pingLoop() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.writeMu.Lock()
			err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout))
			c.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

func (c *Channel) send(ctx context.Context, evt *event.Event) error {
	select {
	case <-c.done:
		return channel.ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// CreateItem implements channel.Channel.
func (c *Channel) CreateItem(ctx context.Context, item *event.Item) error {
	return c.send(ctx, event.New(event.TypeItemCreate, event.WithItem(item)))
}

// RequestResponse implements channel.Channel.
func (c *Channel) RequestResponse(ctx context.Context) error {
	return c.send(ctx, event.New(event.TypeResponseRequest))
}

// CancelResponse implements channel.Channel.
func (c *Channel) CancelResponse(ctx context.Context) error {
	return c.send(ctx, event.New(event.TypeResponseCancel))
}

// ClearInput implements channel.Channel.
func (c *Channel) ClearInput(ctx context.Context) error {
	return c.send(ctx, event.New(event.TypeInputClear))
}

// UpdateSession implements channel.Channel.
func (c *Channel) UpdateSession(ctx context.Context, update *event.SessionUpdate) error {
	return c.send(ctx, event.New(event.TypeSessionUpdate, event.WithSession(update)))
}

// Events implements channel.Channel.
func (c *Channel) Events() <-chan *event.Event { return c.events }

// Close implements channel.Channel.
func (c *Channel) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		c.writeMu.Lock()
		werr := c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeTimeout))
		c.writeMu.Unlock()
		if werr != nil {
			log.Debugf("websocket: close frame: %v", werr)
		}
		err = c.conn.Close()
	})
	return err
}
