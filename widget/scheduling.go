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

const schedulingInstruction = `You book property visits. Start by calling getAvailableSlots, let the
visitor pick a window with selectSlot, then confirm with bookAppointment.
Only book for verified visitors.`

func newSchedulingAgent(cfg Config) *agent.Definition {
	return agent.New(AgentScheduling,
		agent.WithDescription("Books property visit appointments from the available slots."),
		agent.WithInstruction(schedulingInstruction),
		agent.WithDisplayMode(agent.DisplaySchedulingForm),
		agent.WithKickoffMessage("I'd like to schedule a visit."),
		agent.WithDownstream(AgentRealEstate, AgentAuthentication, AgentHumanAgent),
		agent.WithTools(
			availableSlotsTool(cfg.Slots),
			selectSlotTool(),
			bookAppointmentTool(cfg.Booking),
		),
	)
}

func availableSlotsTool(provider SlotProvider) *tool.Tool {
	decl := &tool.Declaration{
		Name:        "getAvailableSlots",
		Description: "List bookable visit windows for a property.",
		InputSchema: &tool.Schema{
			Type: "object",
			Properties: map[string]*tool.Schema{
				"property_id": {Type: "string", Description: "Property to visit; defaults to the active project."},
			},
		},
	}
	return tool.New(decl, func(ctx context.Context, args map[string]any, _ []tool.Message) (map[string]any, error) {
		id := effectiveProjectID(args)
		if id == "" {
			return tool.ErrorResult(
				"no property selected for scheduling",
				"ask which property the visitor wants to see",
				tool.UIHintSchedulingForm,
			), nil
		}
		slots, err := provider.AvailableSlots(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("available slots: %w", err)
		}
		return map[string]any{
			"slots":                       slots,
			session.KeyPropertyToSchedule: id,
			tool.KeyUIHint:                tool.UIHintSchedulingForm,
		}, nil
	})
}

// selectSlotTool records the visitor's pick. The selection persists in
// metadata so bookAppointment works even if the model drops the fields.
func selectSlotTool() *tool.Tool {
	decl := &tool.Declaration{
		Name:        "selectSlot",
		Description: "Record the visit window the visitor picked.",
		InputSchema: &tool.Schema{
			Type: "object",
			Properties: map[string]*tool.Schema{
				"date": {Type: "string", Description: "Picked date, YYYY-MM-DD."},
				"time": {Type: "string", Description: "Picked time, HH:MM."},
			},
			Required: []string{"date", "time"},
		},
	}
	return tool.New(decl, func(_ context.Context, args map[string]any, _ []tool.Message) (map[string]any, error) {
		date := argString(args, "date", session.KeySelectedDate)
		timeOfDay := argString(args, "time", session.KeySelectedTime)
		if date == "" || timeOfDay == "" {
			return tool.ErrorResult(
				"a slot needs both a date and a time",
				"ask the visitor to pick a window from the list",
				tool.UIHintSchedulingForm,
			), nil
		}
		return map[string]any{
			tool.KeySuccess:         true,
			session.KeySelectedDate: date,
			session.KeySelectedTime: timeOfDay,
			tool.KeyUIHint:          tool.UIHintSchedulingForm,
		}, nil
	})
}

// bookAppointmentTool confirms the visit. Unverified visitors are routed
// through verification first, with the scheduling context riding along so
// they come straight back.
func bookAppointmentTool(booker Booker) *tool.Tool {
	decl := &tool.Declaration{
		Name:        "bookAppointment",
		Description: "Confirm the visit for the selected slot.",
		InputSchema: &tool.Schema{
			Type: "object",
			Properties: map[string]*tool.Schema{
				"property_id": {Type: "string", Description: "Property being visited."},
				"date":        {Type: "string", Description: "Confirmed date."},
				"time":        {Type: "string", Description: "Confirmed time."},
			},
		},
	}
	return tool.New(decl, func(ctx context.Context, args map[string]any, _ []tool.Message) (map[string]any, error) {
		if !argBool(args, session.KeyIsVerified) {
			return map[string]any{
				tool.KeyDestination:    AgentAuthentication,
				tool.KeySilentTransfer: true,
				session.KeyFlowContext: "from_scheduling_verification",
			}, nil
		}
		booking := Booking{
			PropertyID:   argString(args, "property_id", session.KeyPropertyToSchedule),
			Date:         argString(args, "date", session.KeySelectedDate),
			Time:         argString(args, "time", session.KeySelectedTime),
			PhoneNumber:  argString(args, "phone_number", session.KeyPhoneNumber),
			CustomerName: argString(args, "customer_name", session.KeyCustomerName),
		}
		if booking.PropertyID == "" || booking.Date == "" || booking.Time == "" {
			return tool.ErrorResult(
				"booking needs a property, a date and a time",
				"call getAvailableSlots and let the visitor pick a window first",
				tool.UIHintSchedulingForm,
			), nil
		}
		ref, err := booker.Book(ctx, booking)
		if err != nil {
			return nil, fmt.Errorf("book appointment: %w", err)
		}
		return map[string]any{
			tool.KeyDestination:     AgentRealEstate,
			session.KeyHasScheduled: true,
			session.KeyFlowContext:  "from_scheduling_booked",
			"confirmation":          ref,
			session.KeySelectedDate: booking.Date,
			session.KeySelectedTime: booking.Time,
		}, nil
	})
}
