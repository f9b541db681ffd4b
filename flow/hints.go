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
	"sync"
	"time"

	"trpc.group/trpc-go/trpc-realtime-go/tool"
)

// hintKeeper forwards UI hints to the presentation sink and reverts form
// hints to plain chat after a bounded time, so an abandoned verification
// or scheduling form does not stay up forever. Not safety-critical; a
// fired timer after a newer hint is detected by generation and ignored.
type hintKeeper struct {
	mu    sync.Mutex
	sink  HintSink
	ttl   time.Duration
	gen   uint64
	timer *time.Timer
}

func newHintKeeper(sink HintSink, ttl time.Duration) *hintKeeper {
	return &hintKeeper{sink: sink, ttl: ttl}
}

// show forwards the hint and arms the expiry timer for non-chat hints.
func (h *hintKeeper) show(hint string, payload map[string]any) {
	if h.sink == nil {
		return
	}
	h.mu.Lock()
	h.gen++
	gen := h.gen
	if h.timer != nil {
		h.timer.Stop()
		h.timer = nil
	}
	if hint != tool.UIHintChat && h.ttl > 0 {
		h.timer = time.AfterFunc(h.ttl, func() { h.expire(gen) })
	}
	h.mu.Unlock()

	h.sink.ShowHint(hint, payload)
}

func (h *hintKeeper) expire(gen uint64) {
	h.mu.Lock()
	stale := gen != h.gen
	h.mu.Unlock()
	if stale {
		return
	}
	h.sink.ShowHint(tool.UIHintChat, nil)
}

// stop disarms any pending expiry. Called at session teardown.
func (h *hintKeeper) stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.gen++
	if h.timer != nil {
		h.timer.Stop()
		h.timer = nil
	}
}
