// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quire Contributors

package store

import (
	"testing"

	quireerr "github.com/quire-dev/quire/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetadataStoreUnknownBackend(t *testing.T) {
	_, err := NewMetadataStore(&Config{Backend: "postgres"})
	require.Error(t, err)
	assert.Equal(t, quireerr.CodeStoreBackendUnsupported, quireerr.CodeOf(err))

	_, err = NewVectorStore(&Config{Backend: "postgres"}, t.TempDir())
	require.Error(t, err)
	assert.Equal(t, quireerr.CodeStoreBackendUnsupported, quireerr.CodeOf(err))
}

func TestRegisterBackendDispatch(t *testing.T) {
	var gotURL string
	var gotDims int
	RegisterBackend("fake",
		func(databaseURL string) (MetadataStore, error) {
			gotURL = databaseURL
			return NewMemoryMetadataStore(), nil
		},
		func(dataPath string, vectorDims int) (VectorStore, error) {
			gotDims = vectorDims
			return nil, nil
		},
	)

	_, err := NewMetadataStore(&Config{Backend: "fake", DatabaseURL: "sqlite:///x.db"})
	require.NoError(t, err)
	assert.Equal(t, "sqlite:///x.db", gotURL)

	// Zero dimensions falls back to the default.
	_, err = NewVectorStore(&Config{Backend: "fake"}, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, defaultVectorDimensions, gotDims)

	_, err = NewVectorStore(&Config{Backend: "fake", VectorDimensions: 768}, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, 768, gotDims)
}
