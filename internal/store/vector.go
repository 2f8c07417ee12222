// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quire Contributors

package store

import "context"

// VectorStore manages embedding storage and semantic search over text chunks.
type VectorStore interface {
	// AddChunks stores chunks with their embeddings and returns the stored
	// chunk ids. len(embeddings) must equal len(chunks).
	AddChunks(ctx context.Context, chunks []*TextChunk, embeddings [][]float32) ([]string, error)

	// Search performs a k-nearest-neighbor search over stored chunks.
	Search(ctx context.Context, query []float32, topK int, opts SearchOpts) ([]SearchResult, error)

	// GetChunk returns a stored chunk by id, or a not-found error.
	GetChunk(ctx context.Context, id string) (*TextChunk, error)

	// DeleteChunks removes all chunks belonging to a document and reports
	// whether any were removed.
	DeleteChunks(ctx context.Context, documentID string) (bool, error)

	Close() error
}

// SearchOpts restricts a vector search.
type SearchOpts struct {
	// DocumentIDs, when non-empty, limits results to chunks of these documents.
	DocumentIDs []string
	// MetadataFilter, when non-empty, requires equality on chunk metadata keys.
	MetadataFilter map[string]any
}
