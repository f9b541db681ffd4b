//
// Tencent is pleased to support the open source community by making trpc-realtime-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-realtime-go is licensed under the Apache License Version 2.0.
//
//

package session

import (
	"sync"

	"trpc.group/trpc-go/trpc-realtime-go/event"
	"trpc.group/trpc-go/trpc-realtime-go/tool"
)

// maxItemIDLen bounds stored item identifiers. Channel drivers send
// provider-generated ids well under this; anything longer is truncated
// rather than allowed to grow the index without bound.
const maxItemIDLen = 64

// Transcript is the per-session deduplicated conversation history. Items
// are keyed by id and kept in first-seen order; a finished item never
// changes again no matter how often the channel re-announces it.
type Transcript struct {
	mu    sync.RWMutex
	order []string
	items map[string]*event.Item
}

// NewTranscript returns an empty transcript.
func NewTranscript() *Transcript {
	return &Transcript{items: make(map[string]*event.Item)}
}

// Upsert records an item announcement or a streamed fragment for it.
// A new id inserts the item in progress; a known in-progress id has its
// text replaced, or appended when delta is set; a known done item is left
// untouched. Returns true when the transcript changed.
func (t *Transcript) Upsert(itemID, role, text string, delta bool) bool {
	itemID = truncateID(itemID)
	if itemID == "" {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	item, ok := t.items[itemID]
	if !ok {
		t.items[itemID] = &event.Item{
			ItemID: itemID,
			Role:   role,
			Text:   text,
			Status: event.StatusInProgress,
		}
		t.order = append(t.order, itemID)
		return true
	}
	if item.Status != event.StatusInProgress {
		return false
	}
	if delta {
		item.Text += text
	} else {
		item.Text = text
	}
	return true
}

// SetAgent tags an item with the agent that authored it. No-op for
// unknown or finished items.
func (t *Transcript) SetAgent(itemID, agentName string) {
	itemID = truncateID(itemID)
	t.mu.Lock()
	defer t.mu.Unlock()
	if item, ok := t.items[itemID]; ok && item.Status == event.StatusInProgress {
		item.AgentName = agentName
	}
}

// MarkStatus finalizes an item. Only in-progress items transition; marking
// an already finished item again is an idempotent no-op, so duplicate
// completion notifications from the channel are harmless.
func (t *Transcript) MarkStatus(itemID, status string) {
	itemID = truncateID(itemID)
	t.mu.Lock()
	defer t.mu.Unlock()
	item, ok := t.items[itemID]
	if !ok || item.Status != event.StatusInProgress {
		return
	}
	if status == event.StatusDone || status == event.StatusError {
		item.Status = status
	}
}

// Text returns the current text of an item and whether it exists.
func (t *Transcript) Text(itemID string) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	item, ok := t.items[truncateID(itemID)]
	if !ok {
		return "", false
	}
	return item.Text, true
}

// Items returns a snapshot of all items in first-seen order.
func (t *Transcript) Items() []event.Item {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]event.Item, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, *t.items[id])
	}
	return out
}

// Messages renders the transcript as the read-only view tool handlers
// receive. Empty items are skipped.
func (t *Transcript) Messages() []tool.Message {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]tool.Message, 0, len(t.order))
	for _, id := range t.order {
		item := t.items[id]
		if item.Text == "" {
			continue
		}
		out = append(out, tool.Message{
			Role:      item.Role,
			Text:      item.Text,
			AgentName: item.AgentName,
		})
	}
	return out
}

// Len returns the number of tracked items.
func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.order)
}

func truncateID(id string) string {
	if len(id) > maxItemIDLen {
		return id[:maxItemIDLen]
	}
	return id
}
