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
	"trpc.group/trpc-go/trpc-realtime-go/internal/phone"
	"trpc.group/trpc-go/trpc-realtime-go/session"
	"trpc.group/trpc-go/trpc-realtime-go/tool"
)

const authenticationInstruction = `You verify the visitor's phone number before the conversation
continues. Call submitPhoneNumber as soon as you have a number, then
verifyOTP with the code the visitor enters. Do not discuss properties.`

func newAuthenticationAgent(cfg Config) *agent.Definition {
	return agent.New(AgentAuthentication,
		agent.WithDescription("Verifies the visitor's phone number with a one-time code."),
		agent.WithInstruction(authenticationInstruction),
		agent.WithDisplayMode(agent.DisplayVerificationForm),
		agent.WithKickoffMessage("I need to verify my phone number."),
		agent.WithDownstream(AgentRealEstate, AgentScheduling),
		agent.WithTools(
			submitPhoneNumberTool(cfg.OTPSend),
			verifyOTPTool(cfg.OTPCheck),
		),
	)
}

func submitPhoneNumberTool(sender OTPSender) *tool.Tool {
	decl := &tool.Declaration{
		Name:        "submitPhoneNumber",
		Description: "Send a one-time verification code to the visitor's phone number.",
		InputSchema: &tool.Schema{
			Type: "object",
			Properties: map[string]*tool.Schema{
				"phone_number": {Type: "string", Description: "Phone number in international format."},
			},
			Required: []string{"phone_number"},
		},
	}
	return tool.New(decl, func(ctx context.Context, args map[string]any, _ []tool.Message) (map[string]any, error) {
		number := argString(args, "phone_number", session.KeyPhoneNumber)
		if number == "" {
			return tool.ErrorResult(
				"no phone number provided",
				"ask the visitor for their phone number",
				tool.UIHintVerificationForm,
			), nil
		}
		if !phone.Valid(number) {
			return tool.ErrorResult(
				fmt.Sprintf("%q is not a valid international phone number", number),
				"ask for the number again including the country code",
				tool.UIHintVerificationForm,
			), nil
		}
		if err := sender.Send(ctx, number); err != nil {
			return nil, fmt.Errorf("send verification code: %w", err)
		}
		return map[string]any{
			tool.KeySuccess:        true,
			session.KeyPhoneNumber: number,
			"message":              "verification code sent",
			tool.KeyUIHint:         tool.UIHintVerificationForm,
		}, nil
	})
}

// verifyOTPTool checks the entered code. A pass transfers the session
// back where it came from with the verification result riding along; a
// fail keeps the form up and asks again.
func verifyOTPTool(verifier OTPVerifier) *tool.Tool {
	decl := &tool.Declaration{
		Name:        "verifyOTP",
		Description: "Check the one-time code the visitor entered.",
		InputSchema: &tool.Schema{
			Type: "object",
			Properties: map[string]*tool.Schema{
				"phone_number": {Type: "string", Description: "The number the code was sent to."},
				"otp":          {Type: "string", Description: "The code the visitor entered."},
			},
			Required: []string{"otp"},
		},
	}
	return tool.New(decl, func(ctx context.Context, args map[string]any, _ []tool.Message) (map[string]any, error) {
		number := argString(args, "phone_number", session.KeyPhoneNumber)
		code := argString(args, "otp", "code")
		if number == "" || code == "" {
			return tool.ErrorResult(
				"verification needs both the phone number and the code",
				"ask the visitor to enter the code they received",
				tool.UIHintVerificationForm,
			), nil
		}
		ok, err := verifier.Verify(ctx, number, code)
		if err != nil {
			return nil, fmt.Errorf("verify code: %w", err)
		}
		if !ok {
			return tool.ErrorResult(
				"the code did not match",
				"ask the visitor to re-enter the code or request a new one",
				tool.UIHintVerificationForm,
			), nil
		}
		destination := AgentRealEstate
		if came := argString(args, session.KeyCameFrom); came == AgentScheduling {
			destination = AgentScheduling
		}
		return map[string]any{
			tool.KeyDestination:    destination,
			session.KeyIsVerified:  true,
			session.KeyPhoneNumber: number,
			session.KeyFlowContext: "from_direct_auth",
		}, nil
	})
}
