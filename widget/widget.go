//
// Tencent is pleased to support the open source community by making trpc-realtime-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-realtime-go is licensed under the Apache License Version 2.0.
//
//

// Package widget assembles the chat widget's agent set: property Q&A,
// phone verification, visit scheduling and human fallback. External
// services the tool handlers call are abstracted behind the collaborator
// interfaces here; the handlers own only the conversation logic.
package widget

import (
	"context"
	"errors"

	"trpc.group/trpc-go/trpc-realtime-go/agent"
)

// Agent names. Downstream lists and transfer destinations refer to these.
const (
	AgentRealEstate     = "realestate"
	AgentAuthentication = "authentication"
	AgentScheduling     = "scheduling"
	AgentHumanAgent     = "humanagent"
)

// Property is one listing returned by the search collaborator.
type Property struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       string `json:"price,omitempty"`
	Location    string `json:"location,omitempty"`
}

// Project is one development the widget may discuss.
type Project struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Location    string `json:"location,omitempty"`
	Description string `json:"description,omitempty"`
}

// Route is a computed path between the visitor and a property.
type Route struct {
	DistanceKM float64 `json:"distanceKm"`
	Duration   string  `json:"duration"`
	Summary    string  `json:"summary,omitempty"`
}

// Slot is one bookable visit window.
type Slot struct {
	Date string `json:"date"`
	Time string `json:"time"`
}

// Booking is a confirmed visit request.
type Booking struct {
	PropertyID   string
	Date         string
	Time         string
	PhoneNumber  string
	CustomerName string
}

// VectorSearcher answers free-text property questions.
type VectorSearcher interface {
	Search(ctx context.Context, orgID, query string, projectIDs []string) ([]Property, error)
}

// ProjectCatalog resolves project identifiers to their details.
type ProjectCatalog interface {
	Details(ctx context.Context, orgID string, projectIDs []string) ([]Project, error)
}

// ImageFinder returns gallery image URLs for a project.
type ImageFinder interface {
	Images(ctx context.Context, projectID string) ([]string, error)
}

// RoutePlanner computes a route between two places.
type RoutePlanner interface {
	Route(ctx context.Context, origin, destination string) (Route, error)
}

// OTPSender sends a one-time code to a phone number.
type OTPSender interface {
	Send(ctx context.Context, phoneNumber string) error
}

// OTPVerifier checks a one-time code. It returns one canonical boolean;
// the handlers do not interpret backend-specific success encodings.
type OTPVerifier interface {
	Verify(ctx context.Context, phoneNumber, code string) (bool, error)
}

// SlotProvider lists bookable visit windows for a property.
type SlotProvider interface {
	AvailableSlots(ctx context.Context, propertyID string) ([]Slot, error)
}

// Booker confirms a visit and returns a confirmation reference.
type Booker interface {
	Book(ctx context.Context, b Booking) (string, error)
}

// Escalator hands the conversation to a human operator.
type Escalator interface {
	Escalate(ctx context.Context, sessionID, reason string) error
}

// Config wires the collaborators into the agent set.
type Config struct {
	Search   VectorSearcher
	Catalog  ProjectCatalog
	Images   ImageFinder
	Routes   RoutePlanner
	OTPSend  OTPSender
	OTPCheck OTPVerifier
	Slots    SlotProvider
	Booking  Booker
	Escalate Escalator
}

func (c Config) validate() error {
	if c.Search == nil || c.Catalog == nil || c.Images == nil || c.Routes == nil {
		return errors.New("widget: real estate collaborators incomplete")
	}
	if c.OTPSend == nil || c.OTPCheck == nil {
		return errors.New("widget: verification collaborators incomplete")
	}
	if c.Slots == nil || c.Booking == nil {
		return errors.New("widget: scheduling collaborators incomplete")
	}
	if c.Escalate == nil {
		return errors.New("widget: escalation collaborator missing")
	}
	return nil
}

// NewRegistry builds the four widget agents. The real estate agent is the
// entry point; verification and scheduling hand back to it when done.
func NewRegistry(cfg Config) (*agent.Registry, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return agent.NewRegistry(
		newRealEstateAgent(cfg),
		newAuthenticationAgent(cfg),
		newSchedulingAgent(cfg),
		newHumanAgent(cfg),
	)
}

// SilentTransferAgents lists the agents every transfer into which must be
// silent: they open with their own tool call instead of narration.
func SilentTransferAgents() []string {
	return []string{AgentAuthentication, AgentScheduling}
}
