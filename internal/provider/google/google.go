// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quire Contributors

package google

import (
	"context"

	"google.golang.org/genai"

	"github.com/quire-dev/quire/internal/provider"
	quireerr "github.com/quire-dev/quire/pkg/errors"
)

// Compile-time interface check.
var _ provider.LLM = (*Provider)(nil)

// Config holds Google provider configuration.
type Config struct {
	APIKey string
}

// Provider implements provider.LLM using the Google Gemini API.
type Provider struct {
	client *genai.Client
	config Config
}

// New creates a new Google provider. Returns an error if the API key is missing.
func New(cfg Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, quireerr.New(quireerr.CodeProviderRequestInvalid,
			"google: missing api_key in config", quireerr.FieldProvider("google"))
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, quireerr.Wrapf(err, quireerr.CodeProviderUpstreamFailure, "google: creating client")
	}

	return &Provider{client: client, config: cfg}, nil
}

func (p *Provider) Name() string { return "google" }

func (p *Provider) MaxContextTokens() int { return 1000000 }

// Generate runs a single non-streaming content generation request.
func (p *Provider) Generate(ctx context.Context, req provider.GenerateRequest) (*provider.GenerateResponse, error) {
	contents, err := convertMessages(req.Messages)
	if err != nil {
		return nil, quireerr.Wrapf(err, quireerr.CodeProviderRequestInvalid, "google: converting messages")
	}

	result, err := p.client.Models.GenerateContent(ctx, req.Model, contents, buildConfig(req))
	if err != nil {
		return nil, quireerr.Wrapf(err, quireerr.CodeProviderUpstreamFailure, "google: generate content")
	}

	resp := &provider.GenerateResponse{
		Text:  result.Text(),
		Model: req.Model,
	}
	if result.UsageMetadata != nil {
		resp.Usage = provider.Usage{
			InputTokens:  int(result.UsageMetadata.PromptTokenCount),
			OutputTokens: int(result.UsageMetadata.CandidatesTokenCount),
		}
	}
	return resp, nil
}

// Embed returns one embedding vector per input text, in input order.
func (p *Provider) Embed(ctx context.Context, model string, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if model == "" {
		model = "gemini-embedding-001"
	}

	contents := make([]*genai.Content, 0, len(texts))
	for _, text := range texts {
		contents = append(contents, genai.Text(text)...)
	}

	result, err := p.client.Models.EmbedContent(ctx, model, contents,
		&genai.EmbedContentConfig{TaskType: "RETRIEVAL_DOCUMENT"})
	if err != nil {
		return nil, quireerr.Wrapf(err, quireerr.CodeProviderUpstreamFailure, "google: embed content")
	}
	if len(result.Embeddings) != len(texts) {
		return nil, quireerr.Errorf(quireerr.CodeProviderResponseInvalid,
			"google: got %d embeddings for %d inputs", len(result.Embeddings), len(texts))
	}

	out := make([][]float32, len(result.Embeddings))
	for i, emb := range result.Embeddings {
		out[i] = emb.Values
	}
	return out, nil
}

func (p *Provider) Close() error { return nil }

// buildConfig converts a provider.GenerateRequest into a genai.GenerateContentConfig.
func buildConfig(req provider.GenerateRequest) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{}

	if req.Temperature != nil {
		cfg.Temperature = genai.Ptr(*req.Temperature)
	}

	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}

	if len(req.StopSequences) > 0 {
		cfg.StopSequences = req.StopSequences
	}

	if req.SystemPrompt != "" {
		cfg.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{
				{Text: req.SystemPrompt},
			},
		}
	}

	return cfg
}

// convertMessages transforms provider.Message slices into genai.Content slices.
// System messages are excluded (handled via SystemInstruction in buildConfig).
func convertMessages(msgs []provider.Message) ([]*genai.Content, error) {
	var result []*genai.Content

	for _, msg := range msgs {
		var role string
		switch msg.Role {
		case provider.MessageRoleUser:
			role = "user"
		case provider.MessageRoleAssistant:
			role = "model"
		case provider.MessageRoleSystem:
			continue
		default:
			return nil, quireerr.Errorf(quireerr.CodeProviderRequestInvalid,
				"google: unsupported message role %q", msg.Role)
		}

		result = append(result, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: msg.Content}},
		})
	}

	return result, nil
}
