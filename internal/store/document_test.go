// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quire Contributors

package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDocumentType(t *testing.T) {
	for _, code := range []string{"pdf", "docx", "html", "txt", "md"} {
		dt, err := ParseDocumentType(code)
		require.NoError(t, err)
		assert.Equal(t, DocumentType(code), dt)
	}

	for _, code := range []string{"", "epub", "PDF", "text"} {
		_, err := ParseDocumentType(code)
		assert.Error(t, err, "code %q should not parse", code)
	}
}

func TestNewDocumentDefaults(t *testing.T) {
	doc := NewDocument("doc-1", "A Title", DocumentTypeMD)

	assert.Equal(t, "doc-1", doc.ID)
	assert.Equal(t, "A Title", doc.Title)
	assert.Equal(t, DocumentTypeMD, doc.Type)
	assert.NotNil(t, doc.Metadata)
	assert.WithinDuration(t, time.Now().UTC(), doc.DateAdded, 5*time.Second)
	assert.Equal(t, time.UTC, doc.DateAdded.Location())
}
