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

// questionLimit is how many user questions an unverified visitor may ask
// before the session is handed to verification.
const questionLimit = 7

const realEstateInstruction = `You are a helpful real estate assistant for this property developer.
Answer questions about listed projects using your tools. Track every user
message with trackUserMessage before answering. Keep answers short and
concrete; offer to schedule a visit when interest is clear.`

func newRealEstateAgent(cfg Config) *agent.Definition {
	return agent.New(AgentRealEstate,
		agent.WithDescription("Answers questions about properties, projects, prices, images and directions."),
		agent.WithInstruction(realEstateInstruction),
		agent.WithDisplayMode(agent.DisplayChat),
		agent.WithDownstream(AgentAuthentication, AgentScheduling, AgentHumanAgent),
		agent.WithTools(
			trackUserMessageTool(),
			lookupPropertyTool(cfg.Search),
			projectDetailsTool(cfg.Catalog),
			propertyImagesTool(cfg.Images),
			calculateRouteTool(cfg.Routes),
			updateActiveProjectTool(),
		),
	)
}

// trackUserMessageTool counts user questions and forces verification once
// an unverified visitor exceeds the limit. On transfer the counter resets
// so a verified visitor starts clean.
func trackUserMessageTool() *tool.Tool {
	decl := &tool.Declaration{
		Name:        "trackUserMessage",
		Description: "Record one user message before answering it. Call this for every user turn.",
		InputSchema: &tool.Schema{
			Type: "object",
			Properties: map[string]*tool.Schema{
				"message": {Type: "string", Description: "The user message being answered."},
			},
			Required: []string{"message"},
		},
	}
	return tool.New(decl, func(_ context.Context, args map[string]any, _ []tool.Message) (map[string]any, error) {
		count := argInt(args, session.KeyQuestionCount) + 1
		if count >= questionLimit && !argBool(args, session.KeyIsVerified) {
			return map[string]any{
				tool.KeyDestination:      AgentAuthentication,
				tool.KeySilentTransfer:   true,
				session.KeyQuestionCount: 0,
				session.KeyFlowContext:   "from_question_limit",
			}, nil
		}
		return map[string]any{
			tool.KeySilent:           true,
			session.KeyQuestionCount: count,
		}, nil
	})
}

func lookupPropertyTool(search VectorSearcher) *tool.Tool {
	decl := &tool.Declaration{
		Name:        "lookupProperty",
		Description: "Search the project knowledge base for properties matching a free-text query.",
		InputSchema: &tool.Schema{
			Type: "object",
			Properties: map[string]*tool.Schema{
				"query": {Type: "string", Description: "What the user is looking for."},
			},
			Required: []string{"query"},
		},
	}
	return tool.New(decl, func(ctx context.Context, args map[string]any, _ []tool.Message) (map[string]any, error) {
		query := argString(args, "query")
		if query == "" {
			return tool.ErrorResult("lookupProperty requires a query", "ask the user what they are looking for", ""), nil
		}
		meta := session.Metadata(args)
		properties, err := search.Search(ctx, meta.OrgID(), query, meta.ProjectIDs())
		if err != nil {
			return nil, fmt.Errorf("property search: %w", err)
		}
		return map[string]any{
			"properties":   properties,
			tool.KeyUIHint: tool.UIHintChat,
		}, nil
	})
}

func projectDetailsTool(catalog ProjectCatalog) *tool.Tool {
	decl := &tool.Declaration{
		Name:        "getProjectDetails",
		Description: "Fetch details for one project, or all projects when no id is given.",
		InputSchema: &tool.Schema{
			Type: "object",
			Properties: map[string]*tool.Schema{
				"project_id": {Type: "string", Description: "Project to describe; omit for all."},
			},
		},
	}
	return tool.New(decl, func(ctx context.Context, args map[string]any, _ []tool.Message) (map[string]any, error) {
		meta := session.Metadata(args)
		ids := meta.ProjectIDs()
		if id := argString(args, "project_id"); id != "" {
			ids = []string{id}
		}
		if len(ids) == 0 {
			return tool.ErrorResult("no projects configured for this widget", "tell the user no projects are available", ""), nil
		}
		projects, err := catalog.Details(ctx, meta.OrgID(), ids)
		if err != nil {
			return nil, fmt.Errorf("project details: %w", err)
		}
		return map[string]any{"projects": projects}, nil
	})
}

func propertyImagesTool(images ImageFinder) *tool.Tool {
	decl := &tool.Declaration{
		Name:        "getPropertyImages",
		Description: "Fetch gallery images for a project.",
		InputSchema: &tool.Schema{
			Type: "object",
			Properties: map[string]*tool.Schema{
				"project_id": {Type: "string", Description: "Project to show; defaults to the active project."},
			},
		},
	}
	return tool.New(decl, func(ctx context.Context, args map[string]any, _ []tool.Message) (map[string]any, error) {
		id := effectiveProjectID(args)
		if id == "" {
			return tool.ErrorResult("no project selected", "ask which project the user wants to see", ""), nil
		}
		urls, err := images.Images(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("project images: %w", err)
		}
		return map[string]any{"projectId": id, "images": urls}, nil
	})
}

func calculateRouteTool(routes RoutePlanner) *tool.Tool {
	decl := &tool.Declaration{
		Name:        "calculateRoute",
		Description: "Compute the route from the user's location to a property.",
		InputSchema: &tool.Schema{
			Type: "object",
			Properties: map[string]*tool.Schema{
				"origin":      {Type: "string", Description: "Where the user starts from."},
				"destination": {Type: "string", Description: "The property address or project name."},
			},
			Required: []string{"origin", "destination"},
		},
	}
	return tool.New(decl, func(ctx context.Context, args map[string]any, _ []tool.Message) (map[string]any, error) {
		origin := argString(args, "origin")
		destination := argString(args, "destination")
		if origin == "" || destination == "" {
			return tool.ErrorResult("route needs both origin and destination", "ask the user for the missing endpoint", ""), nil
		}
		route, err := routes.Route(ctx, origin, destination)
		if err != nil {
			return nil, fmt.Errorf("route: %w", err)
		}
		return map[string]any{"route": route}, nil
	})
}

// updateActiveProjectTool pins the project the conversation centers on.
// The new value persists through the metadata write-back.
func updateActiveProjectTool() *tool.Tool {
	decl := &tool.Declaration{
		Name:        "updateActiveProject",
		Description: "Set the project the conversation is currently about.",
		InputSchema: &tool.Schema{
			Type: "object",
			Properties: map[string]*tool.Schema{
				"project_id": {Type: "string", Description: "The project the user is focused on."},
			},
			Required: []string{"project_id"},
		},
	}
	return tool.New(decl, func(_ context.Context, args map[string]any, _ []tool.Message) (map[string]any, error) {
		id := argString(args, "project_id")
		if id == "" {
			return tool.ErrorResult("updateActiveProject requires a project_id", "pass the project the user mentioned", ""), nil
		}
		return map[string]any{
			session.KeyActiveProject: id,
			tool.KeySuccess:          true,
		}, nil
	})
}

// effectiveProjectID resolves the project a tool should act on: explicit
// argument, then the active project, then the first configured project.
func effectiveProjectID(args map[string]any) string {
	if id := argString(args, "project_id", session.KeyPropertyToSchedule); id != "" {
		return id
	}
	meta := session.Metadata(args)
	if p := meta.ActiveProject(); p != session.ActiveProjectNone {
		return p
	}
	if ids := meta.ProjectIDs(); len(ids) > 0 {
		return ids[0]
	}
	return ""
}
