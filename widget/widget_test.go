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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/trpc-realtime-go/agent"
	"trpc.group/trpc-go/trpc-realtime-go/session"
	"trpc.group/trpc-go/trpc-realtime-go/tool"
	"trpc.group/trpc-go/trpc-realtime-go/tool/transfer"
)

// fakeBackends implements every collaborator with canned data.
type fakeBackends struct {
	properties []Property
	slots      []Slot
	otpPass    bool
	sentTo     []string
	booked     []Booking
	escalated  []string
	searchErr  error
}

func (f *fakeBackends) Search(_ context.Context, _ string, _ string, _ []string) ([]Property, error) {
	return f.properties, f.searchErr
}

func (f *fakeBackends) Details(_ context.Context, _ string, ids []string) ([]Project, error) {
	out := make([]Project, len(ids))
	for i, id := range ids {
		out[i] = Project{ID: id, Name: "Project " + id}
	}
	return out, nil
}

func (f *fakeBackends) Images(_ context.Context, projectID string) ([]string, error) {
	return []string{"https://img.example/" + projectID + "/1.jpg"}, nil
}

func (f *fakeBackends) Route(_ context.Context, origin, destination string) (Route, error) {
	return Route{DistanceKM: 12.5, Duration: "25m", Summary: origin + " to " + destination}, nil
}

func (f *fakeBackends) Send(_ context.Context, phoneNumber string) error {
	f.sentTo = append(f.sentTo, phoneNumber)
	return nil
}

func (f *fakeBackends) Verify(_ context.Context, _, _ string) (bool, error) {
	return f.otpPass, nil
}

func (f *fakeBackends) AvailableSlots(_ context.Context, propertyID string) ([]Slot, error) {
	_ = propertyID
	return f.slots, nil
}

func (f *fakeBackends) Book(_ context.Context, b Booking) (string, error) {
	f.booked = append(f.booked, b)
	return "BOOK-42", nil
}

func (f *fakeBackends) Escalate(_ context.Context, sessionID, _ string) error {
	f.escalated = append(f.escalated, sessionID)
	return nil
}

func configFor(f *fakeBackends) Config {
	return Config{
		Search: f, Catalog: f, Images: f, Routes: f,
		OTPSend: f, OTPCheck: f,
		Slots: f, Booking: f,
		Escalate: f,
	}
}

func callTool(t *testing.T, reg *agent.Registry, agentName, toolName string, args map[string]any) map[string]any {
	t.Helper()
	def := reg.Get(agentName)
	require.NotNil(t, def)
	tl := def.Tool(toolName)
	require.NotNil(t, tl, "tool %s on %s", toolName, agentName)
	if args == nil {
		args = map[string]any{}
	}
	out, err := tl.Call(context.Background(), args, nil)
	require.NoError(t, err)
	return out
}

func TestNewRegistryWiring(t *testing.T) {
	f := &fakeBackends{}
	reg, err := NewRegistry(configFor(f))
	require.NoError(t, err)

	assert.Equal(t, AgentRealEstate, reg.Entry().Name())
	for _, name := range []string{AgentRealEstate, AgentAuthentication, AgentScheduling, AgentHumanAgent} {
		require.NotNil(t, reg.Get(name))
		assert.NotNil(t, reg.Get(name).Tool(transfer.ToolName),
			"every widget agent can transfer somewhere")
	}
	assert.True(t, reg.Get(AgentRealEstate).CanTransferTo(AgentHumanAgent))
	assert.False(t, reg.Get(AgentHumanAgent).CanTransferTo(AgentScheduling))
}

func TestNewRegistryRejectsIncompleteConfig(t *testing.T) {
	_, err := NewRegistry(Config{})
	require.Error(t, err)
}

func TestTrackUserMessageCountsSilently(t *testing.T) {
	reg, err := NewRegistry(configFor(&fakeBackends{}))
	require.NoError(t, err)

	out := callTool(t, reg, AgentRealEstate, "trackUserMessage", map[string]any{
		"message":                "how big is the garden?",
		session.KeyQuestionCount: float64(2),
	})
	res := tool.Classify(out)
	assert.Equal(t, tool.KindSilent, res.Kind)
	assert.Equal(t, 3, out[session.KeyQuestionCount])
}

func TestTrackUserMessageForcesVerificationAtLimit(t *testing.T) {
	reg, err := NewRegistry(configFor(&fakeBackends{}))
	require.NoError(t, err)

	// Six prior tracked messages, seventh arrives unverified.
	out := callTool(t, reg, AgentRealEstate, "trackUserMessage", map[string]any{
		"message":                "and the seventh question",
		session.KeyQuestionCount: float64(6),
		session.KeyIsVerified:    false,
	})
	res := tool.Classify(out)
	require.Equal(t, tool.KindTransfer, res.Kind)
	assert.Equal(t, AgentAuthentication, res.Destination)
	assert.True(t, res.SilentTransfer)
	assert.Equal(t, 0, out[session.KeyQuestionCount], "counter resets with the handoff")
}

func TestTrackUserMessageNoLimitWhenVerified(t *testing.T) {
	reg, err := NewRegistry(configFor(&fakeBackends{}))
	require.NoError(t, err)

	out := callTool(t, reg, AgentRealEstate, "trackUserMessage", map[string]any{
		"message":                "question twelve",
		session.KeyQuestionCount: float64(11),
		session.KeyIsVerified:    true,
	})
	assert.Equal(t, tool.KindSilent, tool.Classify(out).Kind)
	assert.Equal(t, 12, out[session.KeyQuestionCount])
}

func TestLookupProperty(t *testing.T) {
	f := &fakeBackends{properties: []Property{{ID: "p1", Name: "Skyline Towers"}}}
	reg, err := NewRegistry(configFor(f))
	require.NoError(t, err)

	out := callTool(t, reg, AgentRealEstate, "lookupProperty", map[string]any{
		"query":                "2 bedroom with balcony",
		session.KeyOrgID:       "33333333-3333-3333-3333-333333333333",
		session.KeyProjectIDs:  []any{"p1"},
	})
	assert.Equal(t, f.properties, out["properties"])
	assert.Equal(t, tool.UIHintChat, out[tool.KeyUIHint])

	out = callTool(t, reg, AgentRealEstate, "lookupProperty", nil)
	assert.NotEmpty(t, out[tool.KeyError], "missing query is a structured error")
}

func TestLookupPropertyBackendFailure(t *testing.T) {
	f := &fakeBackends{searchErr: errors.New("vector store down")}
	reg, err := NewRegistry(configFor(f))
	require.NoError(t, err)

	def := reg.Get(AgentRealEstate)
	_, err = def.Tool("lookupProperty").Call(context.Background(), map[string]any{"query": "x"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "vector store down")
}

func TestUpdateActiveProjectPersists(t *testing.T) {
	reg, err := NewRegistry(configFor(&fakeBackends{}))
	require.NoError(t, err)

	out := callTool(t, reg, AgentRealEstate, "updateActiveProject", map[string]any{"project_id": "p2"})
	assert.Equal(t, "p2", out[session.KeyActiveProject])
	assert.True(t, session.IsKnownKey(session.KeyActiveProject), "write-back reaches metadata")
}

func TestSubmitPhoneNumberValidation(t *testing.T) {
	f := &fakeBackends{}
	reg, err := NewRegistry(configFor(f))
	require.NoError(t, err)

	out := callTool(t, reg, AgentAuthentication, "submitPhoneNumber", map[string]any{
		"phone_number": "+4155552671",
	})
	assert.Equal(t, true, out[tool.KeySuccess])
	assert.Equal(t, []string{"+4155552671"}, f.sentTo)
	assert.Equal(t, tool.UIHintVerificationForm, out[tool.KeyUIHint])

	out = callTool(t, reg, AgentAuthentication, "submitPhoneNumber", map[string]any{
		"phone_number": "+0123",
	})
	assert.NotEmpty(t, out[tool.KeyError])
	assert.Empty(t, f.sentTo[1:], "no code sent for an invalid number")
}

func TestVerifyOTPSuccessTransfersBack(t *testing.T) {
	f := &fakeBackends{otpPass: true}
	reg, err := NewRegistry(configFor(f))
	require.NoError(t, err)

	out := callTool(t, reg, AgentAuthentication, "verifyOTP", map[string]any{
		"phone_number": "+4155552671",
		"otp":          "123456",
	})
	res := tool.Classify(out)
	require.Equal(t, tool.KindTransfer, res.Kind)
	assert.Equal(t, AgentRealEstate, res.Destination)
	assert.Equal(t, true, out[session.KeyIsVerified])
	assert.Equal(t, "from_direct_auth", out[session.KeyFlowContext])
}

func TestVerifyOTPReturnsToScheduling(t *testing.T) {
	f := &fakeBackends{otpPass: true}
	reg, err := NewRegistry(configFor(f))
	require.NoError(t, err)

	out := callTool(t, reg, AgentAuthentication, "verifyOTP", map[string]any{
		"phone_number":      "+4155552671",
		"otp":               "123456",
		session.KeyCameFrom: AgentScheduling,
	})
	assert.Equal(t, AgentScheduling, tool.Classify(out).Destination)
}

func TestVerifyOTPFailureKeepsFormUp(t *testing.T) {
	f := &fakeBackends{otpPass: false}
	reg, err := NewRegistry(configFor(f))
	require.NoError(t, err)

	out := callTool(t, reg, AgentAuthentication, "verifyOTP", map[string]any{
		"phone_number": "+4155552671",
		"otp":          "000000",
	})
	res := tool.Classify(out)
	assert.Equal(t, tool.KindError, res.Kind)
	assert.NotEmpty(t, res.SuggestedAction)
	assert.Equal(t, tool.UIHintVerificationForm, res.UIHint)
}

func TestAvailableSlotsFallsBackToFirstProject(t *testing.T) {
	f := &fakeBackends{slots: []Slot{{Date: "2026-09-01", Time: "10:00"}}}
	reg, err := NewRegistry(configFor(f))
	require.NoError(t, err)

	// No property_id argument; metadata supplies the configured projects.
	out := callTool(t, reg, AgentScheduling, "getAvailableSlots", map[string]any{
		session.KeyProjectIDs: []any{"p1", "p2"},
	})
	assert.Equal(t, "p1", out[session.KeyPropertyToSchedule])
	assert.Equal(t, f.slots, out["slots"])
	assert.Equal(t, tool.UIHintSchedulingForm, out[tool.KeyUIHint])
}

func TestBookAppointmentRequiresVerification(t *testing.T) {
	f := &fakeBackends{}
	reg, err := NewRegistry(configFor(f))
	require.NoError(t, err)

	out := callTool(t, reg, AgentScheduling, "bookAppointment", map[string]any{
		session.KeyIsVerified: false,
	})
	res := tool.Classify(out)
	require.Equal(t, tool.KindTransfer, res.Kind)
	assert.Equal(t, AgentAuthentication, res.Destination)
	assert.True(t, res.SilentTransfer)
	assert.Empty(t, f.booked)
}

func TestBookAppointmentBooksAndReturns(t *testing.T) {
	f := &fakeBackends{}
	reg, err := NewRegistry(configFor(f))
	require.NoError(t, err)

	out := callTool(t, reg, AgentScheduling, "bookAppointment", map[string]any{
		session.KeyIsVerified:         true,
		session.KeyPropertyToSchedule: "p1",
		session.KeySelectedDate:       "2026-09-01",
		session.KeySelectedTime:       "10:00",
		session.KeyPhoneNumber:        "+4155552671",
	})
	res := tool.Classify(out)
	require.Equal(t, tool.KindTransfer, res.Kind)
	assert.Equal(t, AgentRealEstate, res.Destination)
	assert.Equal(t, true, out[session.KeyHasScheduled])
	assert.Equal(t, "BOOK-42", out["confirmation"])
	require.Len(t, f.booked, 1)
	assert.Equal(t, "p1", f.booked[0].PropertyID)
	assert.Equal(t, "+4155552671", f.booked[0].PhoneNumber)
}

func TestEscalateToHuman(t *testing.T) {
	f := &fakeBackends{}
	reg, err := NewRegistry(configFor(f))
	require.NoError(t, err)

	out := callTool(t, reg, AgentHumanAgent, "escalateToHuman", map[string]any{
		session.KeySessionID: "11111111-1111-1111-1111-111111111111",
		"reason":             "pricing negotiation",
	})
	assert.Equal(t, true, out[tool.KeySuccess])
	assert.Equal(t, []string{"11111111-1111-1111-1111-111111111111"}, f.escalated)
}

func TestSilentTransferAgents(t *testing.T) {
	assert.ElementsMatch(t, []string{AgentAuthentication, AgentScheduling}, SilentTransferAgents())
}
