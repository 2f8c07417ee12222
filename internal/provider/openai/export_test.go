// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quire Contributors

package openai

import (
	openaisdk "github.com/openai/openai-go"

	"github.com/quire-dev/quire/internal/provider"
)

// ConvertMessages exposes convertMessages for white-box testing.
var ConvertMessages = func(msgs []provider.Message, systemPrompt string) ([]openaisdk.ChatCompletionMessageParamUnion, error) {
	return convertMessages(msgs, systemPrompt)
}

// BuildParams exposes buildParams for white-box testing.
var BuildParams = func(req provider.GenerateRequest) (openaisdk.ChatCompletionNewParams, error) {
	return buildParams(req)
}
