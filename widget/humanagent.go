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
	"context"
	"fmt"

	"trpc.group/trpc-go/trpc-realtime-go/agent"
	"trpc.group/trpc-go/trpc-realtime-go/session"
	"trpc.group/trpc-go/trpc-realtime-go/tool"
)

const humanAgentInstruction = `The visitor asked for a person. Collect a short reason, call
escalateToHuman, then tell them someone will take over shortly.`

func newHumanAgent(cfg Config) *agent.Definition {
	return agent.New(AgentHumanAgent,
		agent.WithDescription("Hands the conversation to a human operator."),
		agent.WithInstruction(humanAgentInstruction),
		agent.WithDisplayMode(agent.DisplayChat),
		agent.WithDownstream(AgentRealEstate),
		agent.WithTools(escalateTool(cfg.Escalate)),
	)
}

func escalateTool(escalator Escalator) *tool.Tool {
	decl := &tool.Declaration{
		Name:        "escalateToHuman",
		Description: "Notify a human operator to take over this conversation.",
		InputSchema: &tool.Schema{
			Type: "object",
			Properties: map[string]*tool.Schema{
				"reason": {Type: "string", Description: "Why the visitor wants a person."},
			},
		},
	}
	return tool.New(decl, func(ctx context.Context, args map[string]any, _ []tool.Message) (map[string]any, error) {
		meta := session.Metadata(args)
		reason := argString(args, "reason")
		if reason == "" {
			reason = "visitor requested a human"
		}
		if err := escalator.Escalate(ctx, meta.SessionID(), reason); err != nil {
			return nil, fmt.Errorf("escalate: %w", err)
		}
		return map[string]any{
			tool.KeySuccess: true,
			"message":       "a human operator has been notified",
		}, nil
	})
}
