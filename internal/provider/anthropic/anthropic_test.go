// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quire Contributors

package anthropic_test

import (
	"context"
	"testing"

	"github.com/quire-dev/quire/internal/provider"
	"github.com/quire-dev/quire/internal/provider/anthropic"
	quireerr "github.com/quire-dev/quire/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustNewProvider(t *testing.T) *anthropic.Provider {
	t.Helper()
	p, err := anthropic.New(anthropic.Config{APIKey: "test-key"})
	require.NoError(t, err)
	return p
}

func TestAnthropicProvider_Name(t *testing.T) {
	p := mustNewProvider(t)
	assert.Equal(t, "anthropic", p.Name())
	assert.Greater(t, p.MaxContextTokens(), 0)
}

func TestAnthropicProvider_MissingAPIKey(t *testing.T) {
	_, err := anthropic.New(anthropic.Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api_key")
	assert.True(t, quireerr.HasCode(err, quireerr.CodeProviderRequestInvalid))
}

func TestAnthropicProvider_EmbedUnsupported(t *testing.T) {
	p := mustNewProvider(t)
	_, err := p.Embed(context.Background(), "", []string{"text"})
	require.Error(t, err)
	assert.True(t, quireerr.HasCode(err, quireerr.CodeProviderEmbedUnsupported))
}

func TestAnthropicConvertMessages(t *testing.T) {
	msgs := []provider.Message{
		{Role: provider.MessageRoleSystem, Content: "skipped"},
		{Role: provider.MessageRoleUser, Content: "question"},
		{Role: provider.MessageRoleAssistant, Content: "answer"},
	}

	converted, err := anthropic.ConvertMessages(msgs)
	require.NoError(t, err)
	require.Len(t, converted, 2) // system handled at the params level

	_, err = anthropic.ConvertMessages([]provider.Message{{Role: "tool", Content: "x"}})
	require.Error(t, err)
}

func TestAnthropicBuildParams(t *testing.T) {
	temp := float32(0.7)
	params, err := anthropic.BuildParams(provider.GenerateRequest{
		Model:        "claude-sonnet-4-5",
		Messages:     []provider.Message{{Role: provider.MessageRoleUser, Content: "hi"}},
		SystemPrompt: "be brief",
		Temperature:  &temp,
		MaxTokens:    1024,
	})
	require.NoError(t, err)

	assert.Equal(t, "claude-sonnet-4-5", string(params.Model))
	assert.Equal(t, int64(1024), params.MaxTokens)
	require.Len(t, params.System, 1)
	assert.Equal(t, "be brief", params.System[0].Text)
	assert.InDelta(t, 0.7, params.Temperature.Value, 1e-6)
}

func TestAnthropicBuildParams_DefaultMaxTokens(t *testing.T) {
	params, err := anthropic.BuildParams(provider.GenerateRequest{
		Model:    "claude-haiku-4-5",
		Messages: []provider.Message{{Role: provider.MessageRoleUser, Content: "hi"}},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(4096), params.MaxTokens)
}
