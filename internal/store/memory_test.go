// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quire Contributors

package store_test

import (
	"context"
	"testing"

	"github.com/quire-dev/quire/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMemoryStore(t *testing.T) *store.MemoryMetadataStore {
	t.Helper()
	ms := store.NewMemoryMetadataStore()
	require.NoError(t, ms.Initialize(context.Background()))
	return ms
}

func TestMemoryStore_RequiresInitialize(t *testing.T) {
	ctx := context.Background()
	ms := store.NewMemoryMetadataStore()

	err := ms.AddDocument(ctx, store.NewDocument("doc-1", "Too Early", store.DocumentTypeTXT))
	assert.ErrorIs(t, err, store.ErrNotInitialized)

	require.NoError(t, ms.Initialize(ctx))
	require.NoError(t, ms.AddDocument(ctx, store.NewDocument("doc-1", "Now Fine", store.DocumentTypeTXT)))

	require.NoError(t, ms.Close())
	_, err = ms.GetDocument(ctx, "doc-1")
	assert.ErrorIs(t, err, store.ErrNotInitialized)
}

func TestMemoryStore_CRUD(t *testing.T) {
	ctx := context.Background()
	ms := newMemoryStore(t)

	doc := store.NewDocument("doc-1", "Memory Doc", store.DocumentTypePDF)
	doc.Author = "Author One"
	doc.Metadata = map[string]any{"dropped": true}
	doc.Source = "upload"
	require.NoError(t, ms.AddDocument(ctx, doc))

	// Duplicate id conflicts.
	err := ms.AddDocument(ctx, store.NewDocument("doc-1", "Dup", store.DocumentTypePDF))
	assert.ErrorIs(t, err, store.ErrConflict)

	got, err := ms.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "Memory Doc", got.Title)
	assert.Empty(t, got.Metadata)
	assert.Empty(t, got.Source)

	updated, err := ms.UpdateDocument(ctx, "doc-1", map[string]any{
		"title": "Renamed",
		"id":    "ignored",
	})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Title)
	assert.Equal(t, "doc-1", updated.ID)

	deleted, err := ms.DeleteDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = ms.DeleteDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.False(t, deleted)

	_, err = ms.GetDocument(ctx, "doc-1")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestMemoryStore_ListFilterSortPaginate(t *testing.T) {
	ctx := context.Background()
	ms := newMemoryStore(t)

	seed := []struct {
		id, title, author string
		t                 store.DocumentType
	}{
		{"1", "Alpha", "X", store.DocumentTypeTXT},
		{"2", "Bravo", "X", store.DocumentTypePDF},
		{"3", "Charlie", "Y", store.DocumentTypeTXT},
		{"4", "Delta", "X", store.DocumentTypeTXT},
	}
	for _, s := range seed {
		doc := store.NewDocument(s.id, s.title, s.t)
		doc.Author = s.author
		require.NoError(t, ms.AddDocument(ctx, doc))
	}

	// ANDed filters.
	docs, err := ms.ListDocuments(ctx, store.ListQuery{
		Filters: map[string]any{"author": "X", "document_type": store.DocumentTypeTXT},
		SortBy:  "title",
	})
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "Delta", docs[0].Title) // default order is descending
	assert.Equal(t, "Alpha", docs[1].Title)

	// Pagination over ascending titles.
	docs, err = ms.ListDocuments(ctx, store.ListQuery{
		SortBy:    "title",
		SortOrder: "asc",
		Limit:     2,
		Offset:    1,
	})
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "Bravo", docs[0].Title)
	assert.Equal(t, "Charlie", docs[1].Title)

	// Offset past the end yields an empty page, not an error.
	docs, err = ms.ListDocuments(ctx, store.ListQuery{Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, docs)
}
