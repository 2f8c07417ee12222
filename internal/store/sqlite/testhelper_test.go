// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quire Contributors

package sqlite_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/quire-dev/quire/internal/store"
	"github.com/quire-dev/quire/internal/store/sqlite"
	"github.com/stretchr/testify/require"
)

// testDir creates a temp directory for a test with cleanup.
func testDir(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "quire-test-*")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	return dir
}

// testDBPath returns a temp SQLite database path.
func testDBPath(t *testing.T, name string) string {
	t.Helper()
	return filepath.Join(testDir(t), name+".db")
}

// newTestMetadataStore creates and initializes a metadata store on a temp
// database, closing it when the test finishes.
func newTestMetadataStore(t *testing.T) *sqlite.MetadataStore {
	t.Helper()
	ms, err := sqlite.NewMetadataStore(testDBPath(t, "metadata"))
	require.NoError(t, err)
	require.NoError(t, ms.Initialize(context.Background()))
	t.Cleanup(func() { _ = ms.Close() })
	return ms
}

// testDocument builds a valid document with all persisted fields set.
func testDocument(id, title string) *store.Document {
	doc := store.NewDocument(id, title, store.DocumentTypeTXT)
	doc.Author = "Author One"
	doc.PublicationDate = "2023-01-15"
	doc.FilePath = "/path/to/" + id + ".txt"
	return doc
}
