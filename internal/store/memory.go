// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quire Contributors

package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	quireerr "github.com/quire-dev/quire/pkg/errors"
)

// Compile-time interface check.
var _ MetadataStore = (*MemoryMetadataStore)(nil)

// MemoryMetadataStore is an in-memory MetadataStore used in tests and as a
// reference for the interface contract. Unlike the SQLite store it is safe
// for concurrent use.
type MemoryMetadataStore struct {
	mu          sync.RWMutex
	docs        map[string]Document
	initialized bool
}

// NewMemoryMetadataStore creates an uninitialized in-memory metadata store.
func NewMemoryMetadataStore() *MemoryMetadataStore {
	return &MemoryMetadataStore{}
}

func (m *MemoryMetadataStore) Initialize(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.initialized {
		return nil
	}
	m.docs = make(map[string]Document)
	m.initialized = true
	return nil
}

func (m *MemoryMetadataStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs = nil
	m.initialized = false
	return nil
}

func (m *MemoryMetadataStore) ensureInitialized() error {
	if !m.initialized {
		return quireerr.Wrap(ErrNotInitialized, quireerr.CodeStoreNotInitialized,
			"metadata store not initialized; call Initialize first")
	}
	return nil
}

func (m *MemoryMetadataStore) AddDocument(_ context.Context, doc *Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.ensureInitialized(); err != nil {
		return err
	}
	if _, exists := m.docs[doc.ID]; exists {
		return quireerr.Wrapf(ErrConflict, quireerr.CodeStoreDocumentConflict,
			"document %s already exists", doc.ID)
	}
	m.docs[doc.ID] = project(doc)
	return nil
}

func (m *MemoryMetadataStore) GetDocument(_ context.Context, id string) (*Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.ensureInitialized(); err != nil {
		return nil, err
	}
	doc, ok := m.docs[id]
	if !ok {
		return nil, quireerr.Wrapf(ErrNotFound, quireerr.CodeStoreDocumentNotFound,
			"document %s not found", id)
	}
	return restore(doc), nil
}

func (m *MemoryMetadataStore) ListDocuments(_ context.Context, q ListQuery) ([]*Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.ensureInitialized(); err != nil {
		return nil, err
	}

	var matched []Document
	for _, doc := range m.docs {
		if matchesFilters(doc, q.Filters) {
			matched = append(matched, doc)
		}
	}

	if field, ok := sortField(q.SortBy); ok {
		desc := q.SortOrder == "" || strings.EqualFold(q.SortOrder, "desc")
		sort.Slice(matched, func(i, j int) bool {
			a, b := field(matched[i]), field(matched[j])
			if desc {
				return a > b
			}
			return a < b
		})
	}

	limit := q.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	start := q.Offset
	if start > len(matched) {
		start = len(matched)
	}
	end := start + limit
	if end > len(matched) {
		end = len(matched)
	}

	out := make([]*Document, 0, end-start)
	for _, doc := range matched[start:end] {
		out = append(out, restore(doc))
	}
	return out, nil
}

func (m *MemoryMetadataStore) UpdateDocument(ctx context.Context, id string, updates map[string]any) (*Document, error) {
	m.mu.Lock()
	if err := m.ensureInitialized(); err != nil {
		m.mu.Unlock()
		return nil, err
	}

	doc, ok := m.docs[id]
	if !ok {
		m.mu.Unlock()
		return nil, quireerr.Wrapf(ErrNotFound, quireerr.CodeStoreDocumentNotFound,
			"document %s not found", id)
	}

	for key, value := range updates {
		switch key {
		case "title":
			if s, ok := value.(string); ok {
				doc.Title = s
			}
		case "author":
			if s, ok := value.(string); ok {
				doc.Author = s
			}
		case "publication_date":
			if s, ok := value.(string); ok {
				doc.PublicationDate = s
			}
		case "document_type":
			switch v := value.(type) {
			case DocumentType:
				doc.Type = v
			case string:
				doc.Type = DocumentType(v)
			}
		case "file_path":
			if s, ok := value.(string); ok {
				doc.FilePath = s
			}
		}
	}
	m.docs[id] = doc
	m.mu.Unlock()

	return m.GetDocument(ctx, id)
}

func (m *MemoryMetadataStore) DeleteDocument(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.ensureInitialized(); err != nil {
		return false, err
	}
	if _, ok := m.docs[id]; !ok {
		return false, nil
	}
	delete(m.docs, id)
	return true, nil
}

// project copies the persisted fields of a document, dropping Metadata and
// Source just like the SQLite schema does.
func project(doc *Document) Document {
	return Document{
		ID:              doc.ID,
		Title:           doc.Title,
		Author:          doc.Author,
		PublicationDate: doc.PublicationDate,
		Type:            doc.Type,
		DateAdded:       doc.DateAdded,
		FilePath:        doc.FilePath,
	}
}

func restore(doc Document) *Document {
	doc.Metadata = map[string]any{}
	doc.Source = ""
	return &doc
}

func matchesFilters(doc Document, filters map[string]any) bool {
	for key, value := range filters {
		if value == nil {
			continue
		}
		var field string
		switch key {
		case "id":
			field = doc.ID
		case "title":
			field = doc.Title
		case "author":
			field = doc.Author
		case "publication_date":
			field = doc.PublicationDate
		case "file_path":
			field = doc.FilePath
		case "document_type":
			field = string(doc.Type)
		default:
			continue // unknown keys are silently dropped
		}
		want, ok := filterValue(value)
		if !ok || field != want {
			return false
		}
	}
	return true
}

func filterValue(value any) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, true
	case DocumentType:
		return string(v), true
	default:
		return "", false
	}
}

func sortField(sortBy string) (func(Document) string, bool) {
	switch sortBy {
	case "id":
		return func(d Document) string { return d.ID }, true
	case "title":
		return func(d Document) string { return d.Title }, true
	case "author":
		return func(d Document) string { return d.Author }, true
	case "publication_date":
		return func(d Document) string { return d.PublicationDate }, true
	case "document_type":
		return func(d Document) string { return string(d.Type) }, true
	case "date_added":
		return func(d Document) string { return d.DateAdded.UTC().Format("2006-01-02T15:04:05.000000000Z") }, true
	default:
		return nil, false
	}
}
