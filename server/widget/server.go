//
// Tencent is pleased to support the open source community by making trpc-realtime-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-realtime-go is licensed under the Apache License Version 2.0.
//
//

// Package widget serves the chat widget endpoints: a WebSocket session
// endpoint bridging browser clients to the orchestration core, plus
// small JSON endpoints for health and agent discovery.
package widget

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"

	"trpc.group/trpc-go/trpc-realtime-go/agent"
	"trpc.group/trpc-go/trpc-realtime-go/channel"
	"trpc.group/trpc-go/trpc-realtime-go/event"
	"trpc.group/trpc-go/trpc-realtime-go/flow"
	"trpc.group/trpc-go/trpc-realtime-go/log"
)

// TypeUIHint is the server-to-client frame announcing a presentation
// mode change. It never travels on the model channel.
const TypeUIHint = event.Type("ui.hint")

// ChannelFactory builds the model-side channel for one session.
type ChannelFactory func(ctx context.Context) (channel.Channel, error)

// Server exposes the widget HTTP surface. Each WebSocket connection gets
// its own channel and orchestrator.
type Server struct {
	registry *agent.Registry
	router   *mux.Router
	upgrader websocket.Upgrader

	newChannel ChannelFactory
	fetcher    flow.MetadataFetcher
	flowOpts   []flow.Option
}

// Option configures the Server instance.
type Option func(*Server)

// WithMetadataFetcher sets the session bootstrap collaborator.
func WithMetadataFetcher(f flow.MetadataFetcher) Option {
	return func(s *Server) { s.fetcher = f }
}

// WithFlowOptions appends options applied to every per-session flow.
func WithFlowOptions(opts ...flow.Option) Option {
	return func(s *Server) { s.flowOpts = append(s.flowOpts, opts...) }
}

// New creates the widget server. The factory is called once per
// connecting client to open the model-side channel.
func New(registry *agent.Registry, factory ChannelFactory, opts ...Option) *Server {
	s := &Server{
		registry:   registry,
		router:     mux.NewRouter(),
		newChannel: factory,
		upgrader: websocket.Upgrader{
			// The widget is embedded on customer sites; origin policy is
			// enforced upstream.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
	for _, opt := range opts {
		opt(s)
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Content-Length", "Content-Type"},
	})
	s.router.Use(c.Handler)
	s.registerRoutes()
	return s
}

// Handler returns the http.Handler for the server.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) registerRoutes() {
	s.router.HandleFunc("/v1/widget/healthz", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/v1/widget/agents", s.handleAgents).Methods(http.MethodGet)
	s.router.HandleFunc("/v1/widget/ws", s.handleSession).Methods(http.MethodGet)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// agentInfo is the discovery view of one agent.
type agentInfo struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Tools       []string `json:"tools"`
	Downstream  []string `json:"downstream,omitempty"`
}

func (s *Server) handleAgents(w http.ResponseWriter, _ *http.Request) {
	out := make([]agentInfo, 0, len(s.registry.Names()))
	for _, def := range s.registry.All() {
		info := agentInfo{
			Name:        def.Name(),
			Description: def.Description(),
			Downstream:  def.Downstream(),
		}
		for _, t := range def.Tools() {
			info.Tools = append(info.Tools, t.Declaration().Name)
		}
		out = append(out, info)
	}
	writeJSON(w, http.StatusOK, out)
}

// handleSession upgrades the client connection and runs one session: the
// model channel feeds the orchestrator, the client gets a mirrored view
// of the stream, and client frames drive user input and cancellation.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	clientConn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warnf("widget: upgrade failed: %v", err)
		return
	}
	defer clientConn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	modelCh, err := s.newChannel(ctx)
	if err != nil {
		log.Errorf("widget: open model channel: %v", err)
		writeClientEvent(clientConn, event.NewError("transport", "model channel unavailable"))
		return
	}
	defer modelCh.Close()

	client := &clientWriter{conn: clientConn}
	tapped := newTappedChannel(modelCh, func(evt *event.Event) { client.send(evt) })

	q := r.URL.Query()
	opts := append([]flow.Option{
		flow.WithIdentity(flow.Identity{
			SessionID: q.Get("sessionId"),
			ChatbotID: q.Get("chatbotId"),
			OrgID:     q.Get("orgId"),
		}),
		flow.WithLanguage(q.Get("language")),
		flow.WithHintSink(client),
	}, s.flowOpts...)
	if s.fetcher != nil {
		opts = append(opts, flow.WithMetadataFetcher(s.fetcher))
	}

	orchestrator, err := flow.New(s.registry, tapped, opts...)
	if err != nil {
		log.Errorf("widget: build flow: %v", err)
		return
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := orchestrator.Run(ctx); err != nil && ctx.Err() == nil {
			log.Warnf("widget: session ended: %v", err)
		}
	}()

	s.readClient(ctx, clientConn, modelCh)
	cancel()
	modelCh.Close()
	<-done
}

// readClient pumps frames from the browser until it disconnects. User
// messages go onto the model channel and trigger a response; cancels are
// forwarded as-is.
func (s *Server) readClient(ctx context.Context, conn *websocket.Conn, ch channel.Channel) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var evt event.Event
		if err := json.Unmarshal(data, &evt); err != nil {
			log.Debugf("widget: undecodable client frame dropped: %v", err)
			continue
		}
		switch evt.Type {
		case event.TypeItemCreate:
			if evt.Item == nil || evt.Item.Text == "" {
				continue
			}
			evt.Item.Role = event.RoleUser
			if err := ch.CreateItem(ctx, evt.Item); err != nil {
				log.Warnf("widget: forward user message: %v", err)
				continue
			}
			if err := ch.RequestResponse(ctx); err != nil {
				log.Warnf("widget: request response: %v", err)
			}
		case event.TypeResponseCancel:
			if err := ch.CancelResponse(ctx); err != nil {
				log.Debugf("widget: forward cancel: %v", err)
			}
		default:
			log.Debugf("widget: ignoring client frame %s", evt.Type)
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warnf("widget: write response: %v", err)
	}
}

func writeClientEvent(conn *websocket.Conn, evt *event.Event) {
	data, err := json.Marshal(evt)
	if err != nil {
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		log.Debugf("widget: client write: %v", err)
	}
}
