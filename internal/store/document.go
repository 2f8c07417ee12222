// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quire Contributors

package store

import (
	"time"

	quireerr "github.com/quire-dev/quire/pkg/errors"
)

// DocumentType identifies the format of a stored document.
type DocumentType string

const (
	DocumentTypePDF  DocumentType = "pdf"
	DocumentTypeDOCX DocumentType = "docx"
	DocumentTypeHTML DocumentType = "html"
	DocumentTypeTXT  DocumentType = "txt"
	DocumentTypeMD   DocumentType = "md"
)

// ParseDocumentType decodes the persisted string code back into a DocumentType.
// An unrecognized code is a representable failure, never a panic.
func ParseDocumentType(code string) (DocumentType, error) {
	switch DocumentType(code) {
	case DocumentTypePDF, DocumentTypeDOCX, DocumentTypeHTML, DocumentTypeTXT, DocumentTypeMD:
		return DocumentType(code), nil
	default:
		return "", quireerr.Errorf(quireerr.CodeStoreInvalidInput, "unknown document type %q", code)
	}
}

// Document is one stored document's metadata record, not its binary content.
//
// Metadata and Source exist on the in-memory entity only: the persisted schema
// has no columns for them, so any round trip through a MetadataStore yields
// Metadata == map[string]any{} and Source == "". This asymmetry is intentional.
type Document struct {
	ID              string
	Title           string
	Author          string
	PublicationDate string // free-form "YYYY" or "YYYY-MM-DD"; stored verbatim, never parsed
	Type            DocumentType
	DateAdded       time.Time
	FilePath        string // opaque locator into a DocumentStore; never dereferenced here
	Metadata        map[string]any
	Source          string
}

// NewDocument fills the required defaults: DateAdded to current UTC time when
// unset and an empty Metadata map.
func NewDocument(id, title string, t DocumentType) *Document {
	return &Document{
		ID:        id,
		Title:     title,
		Type:      t,
		DateAdded: time.Now().UTC(),
		Metadata:  map[string]any{},
	}
}

// TextChunk is a segment of document text used for embedding and search.
type TextChunk struct {
	ID         string
	DocumentID string
	Text       string
	Metadata   map[string]any
}

// SearchResult is a single ranked hit from a vector similarity search.
type SearchResult struct {
	ChunkID    string
	DocumentID string
	Text       string
	Score      float64 // distance metric: lower = more similar; 0.0 = exact match
	Metadata   map[string]any
}
