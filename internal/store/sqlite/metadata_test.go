// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quire Contributors

package sqlite_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/quire-dev/quire/internal/store"
	"github.com/quire-dev/quire/internal/store/sqlite"
	quireerr "github.com/quire-dev/quire/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDBPathFromURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"sqlite:///data/metadata.db", "data/metadata.db"},
		{"sqlite:////var/lib/quire/metadata.db", "/var/lib/quire/metadata.db"},
		{"sqlite:///./instance/quire.db", "./instance/quire.db"},
		{"plain/path.db", "plain/path.db"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sqlite.DBPathFromURL(tt.in))
	}
}

func TestMetadataStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	ms := newTestMetadataStore(t)

	doc := testDocument("doc-1", "Test Document Alpha")
	require.NoError(t, ms.AddDocument(ctx, doc))

	got, err := ms.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, doc.ID, got.ID)
	assert.Equal(t, doc.Title, got.Title)
	assert.Equal(t, doc.Author, got.Author)
	assert.Equal(t, doc.PublicationDate, got.PublicationDate)
	assert.Equal(t, doc.Type, got.Type)
	assert.Equal(t, doc.FilePath, got.FilePath)
	assert.WithinDuration(t, doc.DateAdded, got.DateAdded, time.Second)
}

func TestMetadataStore_DropsUnpersistedFields(t *testing.T) {
	ctx := context.Background()
	ms := newTestMetadataStore(t)

	doc := testDocument("doc-1", "With Extras")
	doc.Metadata = map[string]any{"custom_key": "custom_value"}
	doc.Source = "file_upload"
	require.NoError(t, ms.AddDocument(ctx, doc))

	got, err := ms.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Empty(t, got.Metadata)
	assert.NotNil(t, got.Metadata)
	assert.Empty(t, got.Source)
}

func TestMetadataStore_DefaultsDateAdded(t *testing.T) {
	ctx := context.Background()
	ms := newTestMetadataStore(t)

	doc := testDocument("doc-1", "No Date")
	doc.DateAdded = time.Time{}
	require.NoError(t, ms.AddDocument(ctx, doc))

	got, err := ms.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().UTC(), got.DateAdded, 5*time.Second)
}

func TestMetadataStore_DuplicateIDConflict(t *testing.T) {
	ctx := context.Background()
	ms := newTestMetadataStore(t)

	require.NoError(t, ms.AddDocument(ctx, testDocument("doc-1", "Original")))

	err := ms.AddDocument(ctx, testDocument("doc-1", "Impostor"))
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrConflict)
	assert.True(t, quireerr.IsConflict(err))

	// The original row is unchanged.
	got, err := ms.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "Original", got.Title)
}

func TestMetadataStore_NotFound(t *testing.T) {
	ctx := context.Background()
	ms := newTestMetadataStore(t)

	_, err := ms.GetDocument(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)

	deleted, err := ms.DeleteDocument(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, deleted)

	_, err = ms.UpdateDocument(ctx, "missing", map[string]any{"title": "New"})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestMetadataStore_FilterANDSemantics(t *testing.T) {
	ctx := context.Background()
	ms := newTestMetadataStore(t)

	a := store.NewDocument("a", "Doc A", store.DocumentTypeTXT)
	a.Author = "X"
	b := store.NewDocument("b", "Doc B", store.DocumentTypePDF)
	b.Author = "Y"
	require.NoError(t, ms.AddDocument(ctx, a))
	require.NoError(t, ms.AddDocument(ctx, b))

	byAuthor, err := ms.ListDocuments(ctx, store.ListQuery{Filters: map[string]any{"author": "X"}})
	require.NoError(t, err)
	require.Len(t, byAuthor, 1)
	assert.Equal(t, "a", byAuthor[0].ID)

	byType, err := ms.ListDocuments(ctx, store.ListQuery{Filters: map[string]any{"document_type": store.DocumentTypePDF}})
	require.NoError(t, err)
	require.Len(t, byType, 1)
	assert.Equal(t, "b", byType[0].ID)

	// Filters are ANDed: author X has no PDFs.
	both, err := ms.ListDocuments(ctx, store.ListQuery{
		Filters: map[string]any{"author": "X", "document_type": store.DocumentTypePDF},
	})
	require.NoError(t, err)
	assert.Empty(t, both)
}

func TestMetadataStore_UnknownAndNilFiltersDropped(t *testing.T) {
	ctx := context.Background()
	ms := newTestMetadataStore(t)

	require.NoError(t, ms.AddDocument(ctx, testDocument("doc-1", "Kept")))

	docs, err := ms.ListDocuments(ctx, store.ListQuery{
		Filters: map[string]any{"bogus": "x", "author": nil},
	})
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestMetadataStore_SortAndPaginate(t *testing.T) {
	ctx := context.Background()
	ms := newTestMetadataStore(t)

	titles := []string{"Echo", "Alpha", "Delta", "Bravo", "Charlie"}
	for i, title := range titles {
		doc := store.NewDocument(title, title, store.DocumentTypeMD)
		_ = i
		require.NoError(t, ms.AddDocument(ctx, doc))
	}

	page, err := ms.ListDocuments(ctx, store.ListQuery{
		SortBy:    "title",
		SortOrder: "asc",
		Limit:     2,
		Offset:    2,
	})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "Charlie", page[0].Title)
	assert.Equal(t, "Delta", page[1].Title)
}

func TestMetadataStore_SortOrderDefaultsToDesc(t *testing.T) {
	ctx := context.Background()
	ms := newTestMetadataStore(t)

	for _, title := range []string{"Alpha", "Bravo", "Charlie"} {
		require.NoError(t, ms.AddDocument(ctx, store.NewDocument(title, title, store.DocumentTypeTXT)))
	}

	docs, err := ms.ListDocuments(ctx, store.ListQuery{SortBy: "title"})
	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.Equal(t, "Charlie", docs[0].Title)
	assert.Equal(t, "Alpha", docs[2].Title)

	// Case-insensitive: "DESC" behaves like "desc".
	docs, err = ms.ListDocuments(ctx, store.ListQuery{SortBy: "title", SortOrder: "DESC"})
	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.Equal(t, "Charlie", docs[0].Title)
}

func TestMetadataStore_UnknownSortByDisablesOrdering(t *testing.T) {
	ctx := context.Background()
	ms := newTestMetadataStore(t)

	for _, title := range []string{"Alpha", "Bravo"} {
		require.NoError(t, ms.AddDocument(ctx, store.NewDocument(title, title, store.DocumentTypeTXT)))
	}

	// No implicit order is promised; just everything comes back.
	docs, err := ms.ListDocuments(ctx, store.ListQuery{SortBy: "date_added; DROP TABLE documents"})
	require.NoError(t, err)
	assert.Len(t, docs, 2)
}

func TestMetadataStore_UpdatePartial(t *testing.T) {
	ctx := context.Background()
	ms := newTestMetadataStore(t)

	require.NoError(t, ms.AddDocument(ctx, testDocument("doc-1", "Before")))

	got, err := ms.UpdateDocument(ctx, "doc-1", map[string]any{
		"title":  "After",
		"author": "Author One (Revised)",
	})
	require.NoError(t, err)
	assert.Equal(t, "After", got.Title)
	assert.Equal(t, "Author One (Revised)", got.Author)

	// document_type updates accept both the enum and its string code.
	got, err = ms.UpdateDocument(ctx, "doc-1", map[string]any{"document_type": store.DocumentTypePDF})
	require.NoError(t, err)
	assert.Equal(t, store.DocumentTypePDF, got.Type)
}

func TestMetadataStore_UpdateWhitelistIgnoresUnknownKeys(t *testing.T) {
	ctx := context.Background()
	ms := newTestMetadataStore(t)

	doc := testDocument("doc-1", "Stable")
	require.NoError(t, ms.AddDocument(ctx, doc))

	// Only unrecognized keys: a no-op that still returns the current entity.
	got, err := ms.UpdateDocument(ctx, "doc-1", map[string]any{
		"id":         "new-id",
		"date_added": time.Now(),
		"bogus":      "x",
	})
	require.NoError(t, err)
	assert.Equal(t, "doc-1", got.ID)
	assert.Equal(t, "Stable", got.Title)

	// The id really did not change.
	_, err = ms.GetDocument(ctx, "new-id")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestMetadataStore_InitializeIdempotent(t *testing.T) {
	ctx := context.Background()
	path := testDBPath(t, "metadata-idem")

	ms, err := sqlite.NewMetadataStore(path)
	require.NoError(t, err)
	require.NoError(t, ms.Initialize(ctx))
	require.NoError(t, ms.AddDocument(ctx, testDocument("doc-1", "Survivor")))

	// Second initialize is a no-op and never drops data.
	require.NoError(t, ms.Initialize(ctx))
	got, err := ms.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "Survivor", got.Title)

	require.NoError(t, ms.Close())
	require.NoError(t, ms.Close()) // close is also idempotent
}

func TestMetadataStore_UninitializedCallsFail(t *testing.T) {
	ctx := context.Background()
	ms, err := sqlite.NewMetadataStore(testDBPath(t, "metadata-uninit"))
	require.NoError(t, err)

	_, err = ms.GetDocument(ctx, "doc-1")
	assert.ErrorIs(t, err, store.ErrNotInitialized)

	require.NoError(t, ms.Initialize(ctx))
	require.NoError(t, ms.AddDocument(ctx, testDocument("doc-1", "Here")))
	require.NoError(t, ms.Close())

	// After close the store must not silently reconnect.
	err = ms.AddDocument(ctx, testDocument("doc-2", "Rejected"))
	assert.ErrorIs(t, err, store.ErrNotInitialized)
	_, err = ms.ListDocuments(ctx, store.ListQuery{})
	assert.ErrorIs(t, err, store.ErrNotInitialized)
}

func TestMetadataStore_ReinitializeAfterClose(t *testing.T) {
	ctx := context.Background()
	path := testDBPath(t, "metadata-reopen")

	ms, err := sqlite.NewMetadataStore(path)
	require.NoError(t, err)
	require.NoError(t, ms.Initialize(ctx))
	require.NoError(t, ms.AddDocument(ctx, testDocument("doc-1", "Persistent")))
	require.NoError(t, ms.Close())

	require.NoError(t, ms.Initialize(ctx))
	defer ms.Close()
	got, err := ms.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "Persistent", got.Title)
}

func TestMetadataStore_CorruptRowsTolerated(t *testing.T) {
	ctx := context.Background()
	path := testDBPath(t, "metadata-corrupt")

	ms, err := sqlite.NewMetadataStore(path)
	require.NoError(t, err)
	require.NoError(t, ms.Initialize(ctx))
	defer ms.Close()

	require.NoError(t, ms.AddDocument(ctx, testDocument("good", "Healthy")))

	// Plant rows the store itself would never write.
	raw, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	require.NoError(t, err)
	defer raw.Close()
	_, err = raw.ExecContext(ctx, `INSERT INTO documents (id, title, document_type, date_added)
VALUES ('bad-type', 'Unknown Format', 'epub', ?)`, time.Now().UTC().Format(time.RFC3339Nano))
	require.NoError(t, err)
	_, err = raw.ExecContext(ctx, `INSERT INTO documents (id, title, document_type, date_added)
VALUES ('bad-date', 'Broken Clock', 'txt', 'not-a-date')`)
	require.NoError(t, err)

	// Corrupt rows read as not-found, indistinguishable from absence.
	_, err = ms.GetDocument(ctx, "bad-type")
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = ms.GetDocument(ctx, "bad-date")
	assert.ErrorIs(t, err, store.ErrNotFound)

	// Listing drops them silently and keeps the healthy row.
	docs, err := ms.ListDocuments(ctx, store.ListQuery{})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "good", docs[0].ID)
}

func TestMetadataStore_EpochDateAccepted(t *testing.T) {
	ctx := context.Background()
	path := testDBPath(t, "metadata-epoch")

	ms, err := sqlite.NewMetadataStore(path)
	require.NoError(t, err)
	require.NoError(t, ms.Initialize(ctx))
	defer ms.Close()

	epoch := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	raw, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	require.NoError(t, err)
	defer raw.Close()
	_, err = raw.ExecContext(ctx, `INSERT INTO documents (id, title, document_type, date_added)
VALUES ('epoch', 'Numeric Date', 'txt', ?)`, epoch.Unix())
	require.NoError(t, err)

	got, err := ms.GetDocument(ctx, "epoch")
	require.NoError(t, err)
	assert.WithinDuration(t, epoch, got.DateAdded, time.Second)
}

func TestMetadataStore_ListDefaultLimit(t *testing.T) {
	ctx := context.Background()
	ms := newTestMetadataStore(t)

	require.NoError(t, ms.AddDocument(ctx, testDocument("doc-1", "Only One")))

	docs, err := ms.ListDocuments(ctx, store.ListQuery{})
	require.NoError(t, err)
	assert.Len(t, docs, 1)

	docs, err = ms.ListDocuments(ctx, store.ListQuery{Offset: 5})
	require.NoError(t, err)
	assert.Empty(t, docs)
}
