// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quire Contributors

package anthropic

import (
	"context"
	"strings"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/quire-dev/quire/internal/provider"
	quireerr "github.com/quire-dev/quire/pkg/errors"
)

// Compile-time interface check.
var _ provider.LLM = (*Provider)(nil)

// Config holds Anthropic provider configuration.
type Config struct {
	APIKey  string
	BaseURL string // optional, useful for testing against a mock server
}

// Provider implements provider.LLM using the Anthropic Messages API.
// Anthropic has no embeddings endpoint, so Embed always fails; embedding work
// must route to a different provider.
type Provider struct {
	client anthropicsdk.Client
	config Config
}

// New creates a new Anthropic provider. Returns an error if the API key is missing.
func New(cfg Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, quireerr.New(quireerr.CodeProviderRequestInvalid,
			"anthropic: missing api_key in config", quireerr.FieldProvider("anthropic"))
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	client := anthropicsdk.NewClient(opts...)
	return &Provider{client: client, config: cfg}, nil
}

func (p *Provider) Name() string { return "anthropic" }

func (p *Provider) MaxContextTokens() int { return 200000 }

// Generate runs a single non-streaming message request.
func (p *Provider) Generate(ctx context.Context, req provider.GenerateRequest) (*provider.GenerateResponse, error) {
	params, err := buildParams(req)
	if err != nil {
		return nil, quireerr.Wrapf(err, quireerr.CodeProviderRequestInvalid, "anthropic: building request params")
	}

	resp, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, quireerr.Wrapf(err, quireerr.CodeProviderUpstreamFailure, "anthropic: message request")
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}

	return &provider.GenerateResponse{
		Text:  sb.String(),
		Model: string(resp.Model),
		Usage: provider.Usage{
			InputTokens:  int(resp.Usage.InputTokens),
			OutputTokens: int(resp.Usage.OutputTokens),
		},
	}, nil
}

// Embed is unsupported for Anthropic.
func (p *Provider) Embed(_ context.Context, _ string, _ []string) ([][]float32, error) {
	return nil, quireerr.New(quireerr.CodeProviderEmbedUnsupported,
		"anthropic: embeddings are not supported", quireerr.FieldProvider("anthropic"))
}

func (p *Provider) Close() error { return nil }

// buildParams converts a provider.GenerateRequest into Anthropic SDK MessageNewParams.
func buildParams(req provider.GenerateRequest) (anthropicsdk.MessageNewParams, error) {
	msgs, err := convertMessages(req.Messages)
	if err != nil {
		return anthropicsdk.MessageNewParams{}, err
	}

	maxTokens := int64(req.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	params := anthropicsdk.MessageNewParams{
		Model:     anthropicsdk.Model(req.Model),
		Messages:  msgs,
		MaxTokens: maxTokens,
	}

	if req.SystemPrompt != "" {
		params.System = []anthropicsdk.TextBlockParam{
			{Text: req.SystemPrompt},
		}
	}

	if req.Temperature != nil {
		params.Temperature = anthropicsdk.Float(float64(*req.Temperature))
	}

	if len(req.StopSequences) > 0 {
		params.StopSequences = req.StopSequences
	}

	return params, nil
}

// convertMessages transforms provider.Message slices into Anthropic SDK MessageParam slices.
func convertMessages(msgs []provider.Message) ([]anthropicsdk.MessageParam, error) {
	var result []anthropicsdk.MessageParam

	for _, msg := range msgs {
		switch msg.Role {
		case provider.MessageRoleUser:
			result = append(result, anthropicsdk.NewUserMessage(
				anthropicsdk.NewTextBlock(msg.Content),
			))
		case provider.MessageRoleAssistant:
			result = append(result, anthropicsdk.NewAssistantMessage(
				anthropicsdk.NewTextBlock(msg.Content),
			))
		case provider.MessageRoleSystem:
			// System messages are handled via the top-level system param,
			// not as individual messages. Skip them here.
			continue
		default:
			return nil, quireerr.Errorf(quireerr.CodeProviderRequestInvalid,
				"anthropic: unsupported message role %q", msg.Role)
		}
	}

	return result, nil
}
