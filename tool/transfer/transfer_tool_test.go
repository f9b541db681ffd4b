//
// Tencent is pleased to support the open source community by making trpc-realtime-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-realtime-go is licensed under the Apache License Version 2.0.
//
//

package transfer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/trpc-realtime-go/tool"
)

func testDestinations() []Destination {
	return []Destination{
		{Name: "authentication", Description: "Verifies the visitor's phone number."},
		{Name: "scheduling", Description: "Books property visits."},
	}
}

func TestDeclaration(t *testing.T) {
	tl := New(testDestinations())
	decl := tl.Declaration()

	assert.Equal(t, ToolName, decl.Name)

	destSchema := decl.InputSchema.Properties[FieldDestination]
	require.NotNil(t, destSchema)
	assert.Equal(t, []string{"authentication", "scheduling"}, destSchema.Enum)
	assert.Contains(t, destSchema.Description, "Verifies the visitor's phone number.")
	assert.Contains(t, decl.InputSchema.Required, FieldDestination)
}

func TestCallSignalsTransferIntent(t *testing.T) {
	tl := New(testDestinations())

	payload, err := tl.Call(context.Background(), map[string]any{
		FieldDestination: "scheduling",
		FieldSilent:      true,
	}, nil)
	require.NoError(t, err)

	result := tool.Classify(payload)
	assert.Equal(t, tool.KindTransfer, result.Kind)
	assert.Equal(t, "scheduling", result.Destination)
	assert.True(t, result.SilentTransfer)
}

func TestCallRejectsUnknownDestination(t *testing.T) {
	tl := New(testDestinations())

	payload, err := tl.Call(context.Background(), map[string]any{
		FieldDestination: "billing",
	}, nil)
	require.NoError(t, err)

	result := tool.Classify(payload)
	assert.Equal(t, tool.KindError, result.Kind)
	assert.Contains(t, result.SuggestedAction, "authentication")
	assert.Contains(t, result.SuggestedAction, "scheduling")
}

func TestCallRequiresDestination(t *testing.T) {
	tl := New(testDestinations())

	payload, err := tl.Call(context.Background(), map[string]any{}, nil)
	require.NoError(t, err)

	result := tool.Classify(payload)
	assert.Equal(t, tool.KindError, result.Kind)
	assert.NotEmpty(t, result.SuggestedAction)
}
