//
// Tencent is pleased to support the open source community by making trpc-realtime-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-realtime-go is licensed under the Apache License Version 2.0.
//
//

package tool

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		payload map[string]any
		want    Result
	}{
		{
			name:    "nil payload is normal",
			payload: nil,
			want:    Result{Kind: KindNormal},
		},
		{
			name:    "plain payload is normal",
			payload: map[string]any{"properties": []any{"p1"}},
			want:    Result{Kind: KindNormal},
		},
		{
			name:    "destination tags transfer",
			payload: map[string]any{KeyDestination: "authentication", KeySilentTransfer: true},
			want:    Result{Kind: KindTransfer, Destination: "authentication", SilentTransfer: true},
		},
		{
			name:    "destination_agent alias tags transfer",
			payload: map[string]any{KeyDestinationAgent: "realestate"},
			want:    Result{Kind: KindTransfer, Destination: "realestate"},
		},
		{
			name:    "silent without destination suppresses output",
			payload: map[string]any{KeySilent: true, "tracked": true},
			want:    Result{Kind: KindSilent},
		},
		{
			name:    "error with suggestion",
			payload: map[string]any{KeyError: "backend unavailable", KeySuggestedAction: "retry later"},
			want:    Result{Kind: KindError, ErrorMessage: "backend unavailable", SuggestedAction: "retry later"},
		},
		{
			name: "transfer wins over error",
			payload: map[string]any{
				KeyDestination: "realestate",
				KeyError:       "verification failed",
			},
			want: Result{Kind: KindTransfer, Destination: "realestate"},
		},
		{
			name:    "ui hint is carried",
			payload: map[string]any{KeyUIHint: UIHintSchedulingForm, "slots": []any{}},
			want:    Result{Kind: KindNormal, UIHint: UIHintSchedulingForm},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.payload)
			assert.Equal(t, tt.want.Kind, got.Kind)
			assert.Equal(t, tt.want.Destination, got.Destination)
			assert.Equal(t, tt.want.SilentTransfer, got.SilentTransfer)
			assert.Equal(t, tt.want.ErrorMessage, got.ErrorMessage)
			assert.Equal(t, tt.want.SuggestedAction, got.SuggestedAction)
			assert.Equal(t, tt.want.UIHint, got.UIHint)
		})
	}
}

func TestErrorResult(t *testing.T) {
	payload := ErrorResult("unknown tool", "call getAvailableSlots first", UIHintSchedulingForm)

	result := Classify(payload)
	assert.Equal(t, KindError, result.Kind)
	assert.Equal(t, "unknown tool", result.ErrorMessage)
	assert.Equal(t, "call getAvailableSlots first", result.SuggestedAction)
	assert.Equal(t, UIHintSchedulingForm, result.UIHint)
}

func TestControlKeysCoverTransferFields(t *testing.T) {
	keys := ControlKeys()
	for _, want := range []string{KeyDestination, KeyDestinationAgent, KeySilentTransfer, KeySuccess} {
		assert.Contains(t, keys, want)
	}
	// Semantic state must never be listed as a control field.
	assert.NotContains(t, keys, "isVerified")
	assert.NotContains(t, keys, "cameFrom")
}
