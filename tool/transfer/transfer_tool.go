//
// Tencent is pleased to support the open source community by making trpc-realtime-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-realtime-go is licensed under the Apache License Version 2.0.
//
//

// Package transfer provides the synthesized transfer tool every agent
// carries. Its destination enum is exactly the agent's downstream list.
package transfer

import (
	"context"
	"fmt"
	"strings"

	"trpc.group/trpc-go/trpc-realtime-go/tool"
)

const (
	// ToolName is the name of the transfer tool.
	ToolName = "transfer_to_agent"
	// FieldDestination is the name of the destination field.
	FieldDestination = "destination"
	// FieldSilent is the name of the optional silent flag field.
	FieldSilent = "silentTransfer"
)

// Destination describes one permitted transfer target.
type Destination struct {
	// Name is the target agent name.
	Name string
	// Description is the target agent's public description, shown to the
	// model in the tool schema.
	Description string
}

// New synthesizes the transfer tool for an agent with the given downstream
// destinations. The default handler signals intent to transfer; the
// coordinator executes the handoff.
func New(destinations []Destination) *tool.Tool {
	return tool.New(declaration(destinations), handler(destinations))
}

func declaration(destinations []Destination) *tool.Declaration {
	names := make([]string, len(destinations))
	lines := make([]string, len(destinations))
	for i, d := range destinations {
		names[i] = d.Name
		lines[i] = fmt.Sprintf("- %s: %s", d.Name, d.Description)
	}

	schema := &tool.Schema{
		Type: "object",
		Properties: map[string]*tool.Schema{
			FieldDestination: {
				Type: "string",
				Enum: names,
				Description: fmt.Sprintf(
					"Name of the agent to transfer the conversation to.\n\nAvailable agents:\n%s",
					strings.Join(lines, "\n")),
			},
			FieldSilent: {
				Type:        "boolean",
				Description: "When true, the transfer is not narrated to the user.",
			},
		},
		Required: []string{FieldDestination},
	}

	return &tool.Declaration{
		Name:        ToolName,
		Description: "Transfer the conversation to another agent. The destination agent takes over from the next response.",
		InputSchema: schema,
	}
}

func handler(destinations []Destination) tool.Handler {
	permitted := make(map[string]struct{}, len(destinations))
	names := make([]string, len(destinations))
	for i, d := range destinations {
		permitted[d.Name] = struct{}{}
		names[i] = d.Name
	}

	return func(ctx context.Context, args map[string]any, transcript []tool.Message) (map[string]any, error) {
		dest, _ := args[FieldDestination].(string)
		if dest == "" {
			return tool.ErrorResult("transfer requires a destination agent", "provide the destination field", ""), nil
		}
		if _, ok := permitted[dest]; !ok {
			return tool.ErrorResult(
				fmt.Sprintf("agent %q is not a permitted transfer target", dest),
				fmt.Sprintf("choose one of: %s", strings.Join(names, ", ")),
				"",
			), nil
		}
		silent, _ := args[FieldSilent].(bool)
		return map[string]any{
			tool.KeyDestination:    dest,
			tool.KeySilentTransfer: silent,
		}, nil
	}
}
