//
// Tencent is pleased to support the open source community by making trpc-realtime-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-realtime-go is licensed under the Apache License Version 2.0.
//
//

package agent

import (
	"fmt"

	"trpc.group/trpc-go/trpc-realtime-go/tool/transfer"
)

// Registry resolves agent names to definitions. Construction validates the
// downstream graph and equips every agent that has downstream peers with a
// transfer tool scoped to exactly those peers. The registry is read-only
// after NewRegistry returns.
type Registry struct {
	agents map[string]*Definition
	order  []string
	entry  string
}

// NewRegistry builds a registry from the given definitions. The first
// definition is the entry agent new sessions start on. Unknown downstream
// names and duplicate agent names are construction errors.
func NewRegistry(defs ...*Definition) (*Registry, error) {
	if len(defs) == 0 {
		return nil, fmt.Errorf("agent: registry needs at least one agent")
	}
	r := &Registry{
		agents: make(map[string]*Definition, len(defs)),
		entry:  defs[0].Name(),
	}
	for _, d := range defs {
		if d.Name() == "" {
			return nil, fmt.Errorf("agent: definition with empty name")
		}
		if _, dup := r.agents[d.Name()]; dup {
			return nil, fmt.Errorf("agent: duplicate agent %q", d.Name())
		}
		r.agents[d.Name()] = d
		r.order = append(r.order, d.Name())
	}
	for _, d := range r.agents {
		if err := r.injectTransferTool(d); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Get returns the named agent, or nil.
func (r *Registry) Get(name string) *Definition {
	return r.agents[name]
}

// Entry returns the agent new sessions start on.
func (r *Registry) Entry() *Definition {
	return r.agents[r.entry]
}

// Names returns all agent names in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// All returns all definitions in registration order.
func (r *Registry) All() []*Definition {
	out := make([]*Definition, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.agents[name])
	}
	return out
}

func (r *Registry) injectTransferTool(d *Definition) error {
	if len(d.downstream) == 0 {
		return nil
	}
	dests := make([]transfer.Destination, 0, len(d.downstream))
	for _, name := range d.downstream {
		peer, ok := r.agents[name]
		if !ok {
			return fmt.Errorf("agent: %q lists unknown downstream %q", d.Name(), name)
		}
		dests = append(dests, transfer.Destination{
			Name:        peer.Name(),
			Description: peer.Description(),
		})
	}
	t := transfer.New(dests)
	if _, exists := d.tools[transfer.ToolName]; !exists {
		d.toolOrder = append(d.toolOrder, transfer.ToolName)
	}
	d.tools[transfer.ToolName] = t
	return nil
}
