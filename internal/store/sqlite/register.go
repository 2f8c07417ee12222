// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quire Contributors

package sqlite

import (
	"path/filepath"

	"github.com/quire-dev/quire/internal/store"
)

func init() {
	store.RegisterBackend("sqlite", newMetadataStore, newVectorStore)
}

func newMetadataStore(databaseURL string) (store.MetadataStore, error) {
	return NewMetadataStore(databaseURL)
}

func newVectorStore(dataPath string, vectorDims int) (store.VectorStore, error) {
	return NewVectorStore(filepath.Join(dataPath, "vectors.db"), vectorDims)
}
