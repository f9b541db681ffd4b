//
// Tencent is pleased to support the open source community by making trpc-realtime-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-realtime-go is licensed under the Apache License Version 2.0.
//
//

// Package flow runs the orchestration loop for one widget session: it
// consumes the channel's event stream, keeps session state consistent,
// dispatches tool calls and executes agent transfers.
package flow

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"

	"trpc.group/trpc-go/trpc-realtime-go/agent"
	"trpc.group/trpc-go/trpc-realtime-go/channel"
	"trpc.group/trpc-go/trpc-realtime-go/event"
	"trpc.group/trpc-go/trpc-realtime-go/log"
	"trpc.group/trpc-go/trpc-realtime-go/session"
)

// MetadataFetcher enriches a freshly bootstrapped session with stored
// visitor state. Called once per session on connect.
type MetadataFetcher interface {
	Fetch(ctx context.Context, sessionID, chatbotID string) (map[string]any, error)
}

// HintSink receives UI hint changes. The payload is the tool result the
// hint arrived on, forwarded opaquely.
type HintSink interface {
	ShowHint(hint string, payload map[string]any)
}

const (
	defaultPoolSize  = 8
	defaultHintTTL   = 45 * time.Second
	defaultAckWindow = 5 * time.Second
)

// Identity carries the caller-supplied identifiers for a connection.
// Malformed or missing values fall back to fetched or generated ones.
type Identity struct {
	SessionID string
	ChatbotID string
	OrgID     string
}

// Options configure an Orchestrator.
type Options struct {
	identity     Identity
	fetcher      MetadataFetcher
	hints        HintSink
	silentAgents map[string]bool
	language     string
	poolSize     int
	hintTTL      time.Duration
	ackWindow    time.Duration
}

// Option configures the orchestrator.
type Option func(*Options)

// WithIdentity sets the caller-supplied session identifiers.
func WithIdentity(id Identity) Option {
	return func(o *Options) { o.identity = id }
}

// WithMetadataFetcher sets the bootstrap metadata collaborator.
func WithMetadataFetcher(f MetadataFetcher) Option {
	return func(o *Options) { o.fetcher = f }
}

// WithHintSink sets the presentation-layer hint receiver.
func WithHintSink(s HintSink) Option {
	return func(o *Options) { o.hints = s }
}

// WithAlwaysSilentTransfers names agents every transfer into which is
// silent regardless of the transferring tool's flag. Such agents start
// themselves from a synthesized kickoff message.
func WithAlwaysSilentTransfers(names ...string) Option {
	return func(o *Options) {
		for _, n := range names {
			o.silentAgents[n] = true
		}
	}
}

// WithLanguage sets the requested conversation language tag.
func WithLanguage(tag string) Option {
	return func(o *Options) { o.language = tag }
}

// WithPoolSize bounds the goroutine pool used for tool call batches.
func WithPoolSize(n int) Option {
	return func(o *Options) { o.poolSize = n }
}

// WithHintTTL bounds how long a non-chat UI hint stays up before the
// presentation reverts to plain chat.
func WithHintTTL(ttl time.Duration) Option {
	return func(o *Options) { o.hintTTL = ttl }
}

// Orchestrator drives one conversation session over a channel. Create
// with New, start with Run; Run returns when the channel closes.
type Orchestrator struct {
	registry *agent.Registry
	ch       channel.Channel
	opts     Options

	sess  *session.Session
	pool  *ants.Pool
	acks  *cancelAcks
	hints *hintKeeper

	kickoffSeq atomic.Uint64
}

// New creates an orchestrator for one connection.
func New(registry *agent.Registry, ch channel.Channel, opt ...Option) (*Orchestrator, error) {
	if registry == nil {
		return nil, errors.New("flow: nil registry")
	}
	if ch == nil {
		return nil, errors.New("flow: nil channel")
	}
	opts := Options{
		silentAgents: make(map[string]bool),
		poolSize:     defaultPoolSize,
		hintTTL:      defaultHintTTL,
		ackWindow:    defaultAckWindow,
	}
	for _, o := range opt {
		o(&opts)
	}
	pool, err := ants.NewPool(opts.poolSize)
	if err != nil {
		return nil, fmt.Errorf("flow: create pool: %w", err)
	}
	return &Orchestrator{
		registry: registry,
		ch:       ch,
		opts:     opts,
		pool:     pool,
		acks:     newCancelAcks(),
		hints:    newHintKeeper(opts.hints, opts.hintTTL),
	}, nil
}

// Session returns the live session, nil before the channel is ready.
func (o *Orchestrator) Session() *session.Session { return o.sess }

// Run consumes the channel event stream until it closes. Transport
// failure is the only fatal condition; everything conversational is
// absorbed or surfaced to the model as data.
func (o *Orchestrator) Run(ctx context.Context) error {
	defer o.pool.Release()
	defer o.hints.stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case evt, ok := <-o.ch.Events():
			if !ok {
				log.Infof("flow: channel closed, session %s torn down", o.sessionID())
				return nil
			}
			o.handle(ctx, evt)
		}
	}
}

func (o *Orchestrator) handle(ctx context.Context, evt *event.Event) {
	switch evt.Type {
	case event.TypeSessionReady:
		if err := o.bootstrap(ctx); err != nil {
			log.Errorf("flow: bootstrap failed: %v", err)
			o.closeChannel()
		}
	case event.TypeResponseStarted:
		o.onResponseStarted(evt)
	case event.TypeResponseCompleted:
		o.onResponseCompleted(ctx, evt)
	case event.TypeResponseCanceled:
		o.onResponseCanceled(evt)
	case event.TypeItemCreated:
		o.onItemCreated(evt)
	case event.TypeItemDelta:
		o.onItemDelta(evt)
	case event.TypeTranscriptionCompleted:
		o.onTranscription(evt)
	case event.TypeError:
		if evt.Error != nil {
			log.Warnf("flow: channel error %s: %s", evt.Error.Type, evt.Error.Message)
		}
	default:
		log.Debugf("flow: ignoring event type %s", evt.Type)
	}
}

// bootstrap builds session state once the channel reports ready: fetch
// stored visitor metadata, resolve identity, seat the entry agent and
// push its configuration to the model side.
func (o *Orchestrator) bootstrap(ctx context.Context) error {
	id := o.opts.identity

	var stored session.Metadata
	if o.opts.fetcher != nil {
		fetched, err := o.opts.fetcher.Fetch(ctx, id.SessionID, id.ChatbotID)
		if err != nil {
			log.Warnf("flow: metadata fetch failed, continuing with ids only: %v", err)
		} else {
			stored = session.Metadata(fetched)
			session.Canonicalize(stored)
		}
	}

	meta, err := session.Bootstrap(id.SessionID, id.ChatbotID, id.OrgID, stored)
	if err != nil {
		return err
	}
	meta[session.KeyLanguage] = session.NormalizeLanguage(o.opts.language)

	sess, err := session.New(meta)
	if err != nil {
		return err
	}
	o.sess = sess

	entry := o.registry.Entry()
	o.sess.SetActiveAgent(entry.Name())
	if err := o.updateSessionConfig(ctx, entry); err != nil {
		return fmt.Errorf("configure entry agent: %w", err)
	}
	log.Infof("flow: session %s ready, entry agent %s", o.sess.ID(), entry.Name())
	return nil
}

// updateSessionConfig pushes an agent's instructions, tool catalog and
// the session language onto the channel.
func (o *Orchestrator) updateSessionConfig(ctx context.Context, def *agent.Definition) error {
	return o.ch.UpdateSession(ctx, &event.SessionUpdate{
		AgentName:    def.Name(),
		Instructions: def.Instruction(),
		Tools:        def.Declarations(),
		Language:     o.sess.Metadata().String(session.KeyLanguage),
	})
}

func (o *Orchestrator) onItemCreated(evt *event.Event) {
	if o.sess == nil || evt.Item == nil {
		return
	}
	item := evt.Item
	o.sess.Transcript().Upsert(item.ItemID, item.Role, item.Text, false)
	if item.AgentName != "" {
		o.sess.Transcript().SetAgent(item.ItemID, item.AgentName)
	} else if item.Role == event.RoleAssistant {
		o.sess.Transcript().SetAgent(item.ItemID, o.sess.ActiveAgent())
	}
	if item.Status == event.StatusDone || item.Status == event.StatusError {
		o.sess.Transcript().MarkStatus(item.ItemID, item.Status)
	}
}

func (o *Orchestrator) onItemDelta(evt *event.Event) {
	if o.sess == nil || evt.Delta == nil {
		return
	}
	o.sess.Transcript().Upsert(evt.Delta.ItemID, event.RoleAssistant, evt.Delta.Text, true)
}

func (o *Orchestrator) onTranscription(evt *event.Event) {
	if o.sess == nil || evt.Item == nil {
		return
	}
	o.sess.Transcript().Upsert(evt.Item.ItemID, event.RoleUser, evt.Item.Text, false)
	o.sess.Transcript().MarkStatus(evt.Item.ItemID, event.StatusDone)
}

func (o *Orchestrator) sessionID() string {
	if o.sess == nil {
		return "(unbootstrapped)"
	}
	return o.sess.ID()
}

func (o *Orchestrator) closeChannel() {
	if err := o.ch.Close(); err != nil && !errors.Is(err, channel.ErrClosed) {
		log.Warnf("flow: channel close: %v", err)
	}
}
