// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quire Contributors

package store

import "context"

// MetadataStore manages durable CRUD for Document metadata.
//
// Implementations hold a single connection between Initialize and Close and
// provide no internal locking; callers serialize concurrent operations against
// one store instance. Every call commits before returning, so a subsequent
// call on the same instance observes all prior writes.
type MetadataStore interface {
	// Initialize opens the connection and ensures the schema exists
	// (create-if-absent, never drop). Idempotent.
	Initialize(ctx context.Context) error

	// Close releases the connection and returns the store to the
	// uninitialized state. Safe to call when already closed.
	Close() error

	// AddDocument inserts a new record. Duplicate ids are a conflict,
	// never an update; the caller assigns unique ids beforehand.
	AddDocument(ctx context.Context, doc *Document) error

	// GetDocument returns the entity for id, or a not-found error when the id
	// is absent or the stored row cannot be converted back into an entity.
	GetDocument(ctx context.Context, id string) (*Document, error)

	// ListDocuments returns entities matching all filters, sorted and
	// paginated. Rows that fail conversion are dropped silently, so a page
	// may come back shorter than the limit.
	ListDocuments(ctx context.Context, q ListQuery) ([]*Document, error)

	// UpdateDocument applies a partial update. Only the writable fields are
	// honored; unknown keys are silently ignored. When nothing recognized
	// remains the call is a no-op that returns the current entity. Returns
	// the freshly re-fetched entity on success.
	UpdateDocument(ctx context.Context, id string, updates map[string]any) (*Document, error)

	// DeleteDocument removes the record for id and reports whether a row was
	// actually removed.
	DeleteDocument(ctx context.Context, id string) (bool, error)
}

// ListQuery describes filtering, sorting, and pagination for ListDocuments.
//
// Filters map field names to required values; only id, title, author,
// publication_date, file_path, and document_type are honored, all present
// filters are ANDed with equality, and nil values or unknown keys are
// silently dropped. SortBy outside its whitelist disables sorting, leaving
// result order storage-defined. SortOrder is case-insensitive: anything
// other than "desc" means ascending; an empty value defaults to "desc".
type ListQuery struct {
	Filters   map[string]any
	SortBy    string
	SortOrder string
	Offset    int
	Limit     int // <= 0 uses the default of 100
}

// DefaultListLimit is the page size applied when ListQuery.Limit is unset.
const DefaultListLimit = 100
