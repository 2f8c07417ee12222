// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quire Contributors

// Package provider defines the LLM abstraction used for retrieval-augmented
// generation: text completion for answering and embedding for indexing.
package provider

import (
	"context"
)

// LLM is the core interface a model provider implements. A provider that
// cannot produce embeddings returns a provider.embed.unsupported error from
// Embed; callers route embedding work to a provider that can.
type LLM interface {
	Name() string
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)
	Embed(ctx context.Context, model string, texts []string) ([][]float32, error)
	MaxContextTokens() int
	Close() error
}

// GenerateRequest is a single non-streaming completion request.
type GenerateRequest struct {
	Model         string
	Messages      []Message
	SystemPrompt  string
	Temperature   *float32
	MaxTokens     int
	StopSequences []string
}

// GenerateResponse is the provider's answer with token accounting.
type GenerateResponse struct {
	Text  string
	Model string
	Usage Usage
}

// Message represents a conversation message.
type Message struct {
	Role    MessageRole
	Content string
}

// MessageRole defines the role of a message sender.
type MessageRole string

const (
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
	MessageRoleSystem    MessageRole = "system"
)

// Usage tracks token consumption.
type Usage struct {
	InputTokens  int
	OutputTokens int
}
