// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quire Contributors

package store

import (
	"sync"

	quireerr "github.com/quire-dev/quire/pkg/errors"
)

// defaultVectorDimensions is the default embedding dimension (matches OpenAI text-embedding-3-small).
const defaultVectorDimensions = 1536

// MetadataStoreFactory creates a metadata store from a database URL of the
// form "sqlite:///<path>". The store is returned uninitialized.
type MetadataStoreFactory func(databaseURL string) (MetadataStore, error)

// VectorStoreFactory creates a vector store given a directory path and
// embedding dimensions.
type VectorStoreFactory func(dataPath string, vectorDims int) (VectorStore, error)

var (
	metadataFactories = map[string]MetadataStoreFactory{}
	vectorFactories   = map[string]VectorStoreFactory{}
	factoriesMu       sync.RWMutex
)

// RegisterBackend registers factory functions for a named storage backend.
// Backend packages call this from init(). This function is goroutine-safe.
func RegisterBackend(name string, meta MetadataStoreFactory, vec VectorStoreFactory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	metadataFactories[name] = meta
	vectorFactories[name] = vec
}

// Config controls which backend the store factory uses.
type Config struct {
	Backend          string // "sqlite" is the only supported backend for now.
	DatabaseURL      string // metadata location, e.g. "sqlite:///data/metadata.db"
	VectorDimensions int    // embedding dimensions; 0 uses the default (1536).
}

func resolveBackend(cfg *Config) string {
	if cfg.Backend == "" {
		return "sqlite"
	}
	return cfg.Backend
}

// NewMetadataStore creates the metadata store for the configured backend.
// The returned store must still be initialized by the caller.
func NewMetadataStore(cfg *Config) (MetadataStore, error) {
	backend := resolveBackend(cfg)

	factoriesMu.RLock()
	factory, ok := metadataFactories[backend]
	factoriesMu.RUnlock()
	if !ok {
		return nil, quireerr.Errorf(quireerr.CodeStoreBackendUnsupported, "unsupported storage backend: %q", backend)
	}

	return factory(cfg.DatabaseURL)
}

// NewVectorStore creates the vector store for the configured backend.
func NewVectorStore(cfg *Config, dataPath string) (VectorStore, error) {
	backend := resolveBackend(cfg)

	factoriesMu.RLock()
	factory, ok := vectorFactories[backend]
	factoriesMu.RUnlock()
	if !ok {
		return nil, quireerr.Errorf(quireerr.CodeStoreBackendUnsupported, "unsupported storage backend: %q", backend)
	}

	dims := defaultVectorDimensions
	if cfg.VectorDimensions > 0 {
		dims = cfg.VectorDimensions
	}

	return factory(dataPath, dims)
}
