// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quire Contributors

package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	quireerr "github.com/quire-dev/quire/pkg/errors"
)

// DefaultConfigPath returns ./quire.yaml in the working directory.
func DefaultConfigPath() string {
	return "quire.yaml"
}

// defaultConfigDoc is the document written by Bootstrap. It mirrors Load's
// defaults so a freshly bootstrapped file validates as-is.
func defaultConfigDoc() map[string]any {
	return map[string]any{
		"server": map[string]any{
			"listen": "127.0.0.1:8642",
		},
		"storage": map[string]any{
			"backend":           "sqlite",
			"database_url":      "sqlite:///data/metadata.db",
			"data_path":         "data",
			"vector_dimensions": 1536,
		},
		"files": map[string]any{
			"backend": "filesystem",
			"path":    "data/files",
		},
		"models": map[string]any{
			"chat":  "openai/gpt-4.1-mini",
			"embed": "openai/text-embedding-3-small",
		},
		"providers": map[string]any{
			"openai": map[string]any{
				"api_key": "${OPENAI_API_KEY}",
			},
		},
	}
}

// Bootstrap writes a default config file to path if it does not already
// exist. Returns the path written, or empty string if the file already existed.
func Bootstrap(path string) (string, error) {
	if path == "" {
		path = DefaultConfigPath()
	}

	if _, err := os.Stat(path); err == nil {
		return "", nil // already exists
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return "", quireerr.Errorf(quireerr.CodeConfigLoadReadFailure, "creating config directory %s: %w", dir, err)
		}
	}

	out, err := yaml.Marshal(defaultConfigDoc())
	if err != nil {
		return "", quireerr.Errorf(quireerr.CodeConfigLoadReadFailure, "marshalling default config: %w", err)
	}

	if err := os.WriteFile(path, out, 0o600); err != nil {
		return "", quireerr.Errorf(quireerr.CodeConfigLoadReadFailure, "writing config %s: %w", path, err)
	}

	return path, nil
}
