// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quire Contributors

package google

import (
	"google.golang.org/genai"

	"github.com/quire-dev/quire/internal/provider"
)

// ConvertMessages exposes convertMessages for white-box testing.
var ConvertMessages = func(msgs []provider.Message) ([]*genai.Content, error) {
	return convertMessages(msgs)
}

// BuildConfig exposes buildConfig for white-box testing.
var BuildConfig = func(req provider.GenerateRequest) *genai.GenerateContentConfig {
	return buildConfig(req)
}
