// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quire Contributors

package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	"github.com/quire-dev/quire/internal/store"
	quireerr "github.com/quire-dev/quire/pkg/errors"
)

func init() {
	sqlite_vec.Auto()
}

// Compile-time interface check.
var _ store.VectorStore = (*VectorStore)(nil)

// VectorStore implements store.VectorStore backed by SQLite with sqlite-vec.
// Embeddings live in a vec0 virtual table; chunk text and metadata live in a
// companion table keyed by chunk id.
type VectorStore struct {
	db         *sql.DB
	dimensions int
}

// NewVectorStore opens (or creates) a SQLite database at dbPath and
// initialises the vec0 virtual table and companion chunks table.
func NewVectorStore(dbPath string, dimensions int) (*VectorStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, quireerr.Wrapf(err, quireerr.CodeStoreDatabaseFailure, "opening sqlite db %s", dbPath)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, quireerr.Wrapf(err, quireerr.CodeStoreDatabaseFailure, "pinging sqlite db %s", dbPath)
	}

	if err := migrateVector(db, dimensions); err != nil {
		_ = db.Close()
		return nil, quireerr.Wrapf(err, quireerr.CodeStoreDatabaseFailure, "migrating vector tables")
	}

	return &VectorStore{db: db, dimensions: dimensions}, nil
}

func migrateVector(db *sql.DB, dimensions int) error {
	vecDDL := fmt.Sprintf(
		`CREATE VIRTUAL TABLE IF NOT EXISTS chunk_vectors USING vec0(id TEXT PRIMARY KEY, embedding float[%d])`,
		dimensions,
	)
	if _, err := db.Exec(vecDDL); err != nil {
		return fmt.Errorf("creating chunk_vectors virtual table: %w", err)
	}

	const chunkDDL = `
CREATE TABLE IF NOT EXISTS chunks (
	id          TEXT PRIMARY KEY,
	document_id TEXT NOT NULL,
	text        TEXT NOT NULL DEFAULT '',
	metadata    TEXT NOT NULL DEFAULT '{}'
);

CREATE INDEX IF NOT EXISTS idx_chunks_document ON chunks(document_id);
`
	if _, err := db.Exec(chunkDDL); err != nil {
		return fmt.Errorf("creating chunks table: %w", err)
	}

	return nil
}

// AddChunks stores chunks with their embeddings, replacing any chunk that
// already exists under the same id.
func (v *VectorStore) AddChunks(ctx context.Context, chunks []*store.TextChunk, embeddings [][]float32) ([]string, error) {
	if len(chunks) != len(embeddings) {
		return nil, quireerr.Errorf(quireerr.CodeStoreInvalidInput,
			"chunk count %d does not match embedding count %d", len(chunks), len(embeddings))
	}
	if len(chunks) == 0 {
		return nil, nil
	}

	tx, err := v.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, quireerr.Wrapf(err, quireerr.CodeVectorAddFailure, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	ids := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		blob, err := sqlite_vec.SerializeFloat32(embeddings[i])
		if err != nil {
			return nil, quireerr.Wrapf(err, quireerr.CodeVectorAddFailure, "serializing embedding for chunk %s", chunk.ID)
		}

		metaJSON := []byte("{}")
		if len(chunk.Metadata) > 0 {
			metaJSON, err = json.Marshal(chunk.Metadata)
			if err != nil {
				return nil, quireerr.Wrapf(err, quireerr.CodeVectorAddFailure, "marshalling metadata for chunk %s", chunk.ID)
			}
		}

		// vec0 does not support ON CONFLICT; delete first for upsert.
		if _, err := tx.ExecContext(ctx, `DELETE FROM chunk_vectors WHERE id = ?`, chunk.ID); err != nil {
			return nil, quireerr.Wrapf(err, quireerr.CodeVectorAddFailure, "deleting existing vector %s", chunk.ID)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO chunk_vectors(id, embedding) VALUES (?, ?)`, chunk.ID, blob); err != nil {
			return nil, quireerr.Wrapf(err, quireerr.CodeVectorAddFailure, "inserting vector %s", chunk.ID)
		}

		const chunkQ = `INSERT INTO chunks(id, document_id, text, metadata) VALUES (?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET document_id = excluded.document_id, text = excluded.text, metadata = excluded.metadata`
		if _, err := tx.ExecContext(ctx, chunkQ, chunk.ID, chunk.DocumentID, chunk.Text, string(metaJSON)); err != nil {
			return nil, quireerr.Wrapf(err, quireerr.CodeVectorAddFailure, "upserting chunk %s", chunk.ID)
		}

		ids = append(ids, chunk.ID)
	}

	if err := tx.Commit(); err != nil {
		return nil, quireerr.Wrapf(err, quireerr.CodeVectorAddFailure, "committing chunk batch")
	}
	return ids, nil
}

// Search performs a k-nearest-neighbor search and returns ranked results.
// Score represents distance (lower = more similar); 0.0 = exact match.
// Document and metadata restrictions are applied after the KNN pass, so the
// query overfetches to compensate; heavily filtered corpora may still return
// fewer than topK results.
func (v *VectorStore) Search(ctx context.Context, query []float32, topK int, opts store.SearchOpts) ([]store.SearchResult, error) {
	if topK <= 0 {
		topK = 5
	}

	blob, err := sqlite_vec.SerializeFloat32(query)
	if err != nil {
		return nil, quireerr.Wrapf(err, quireerr.CodeVectorSearchFailure, "serializing query vector")
	}

	k := topK
	filtered := len(opts.DocumentIDs) > 0 || len(opts.MetadataFilter) > 0
	if filtered {
		k = topK * 10
	}

	const q = `SELECT v.id, v.distance, c.document_id, c.text, COALESCE(c.metadata, '{}')
FROM chunk_vectors v
LEFT JOIN chunks c ON c.id = v.id
WHERE v.embedding MATCH ? AND k = ?
ORDER BY v.distance`

	rows, err := v.db.QueryContext(ctx, q, blob, k)
	if err != nil {
		return nil, quireerr.Wrapf(err, quireerr.CodeVectorSearchFailure, "searching chunks")
	}
	defer func() { _ = rows.Close() }()

	wantDoc := make(map[string]bool, len(opts.DocumentIDs))
	for _, id := range opts.DocumentIDs {
		wantDoc[id] = true
	}

	var results []store.SearchResult
	for rows.Next() {
		var (
			r       store.SearchResult
			docID   sql.NullString
			text    sql.NullString
			metaStr string
		)
		if err := rows.Scan(&r.ChunkID, &r.Score, &docID, &text, &metaStr); err != nil {
			return nil, quireerr.Wrapf(err, quireerr.CodeVectorSearchFailure, "scanning search result")
		}
		r.DocumentID = docID.String
		r.Text = text.String

		if metaStr != "" && metaStr != "{}" {
			if err := json.Unmarshal([]byte(metaStr), &r.Metadata); err != nil {
				return nil, quireerr.Wrapf(err, quireerr.CodeVectorSearchFailure, "unmarshalling chunk metadata")
			}
		}

		if len(wantDoc) > 0 && !wantDoc[r.DocumentID] {
			continue
		}
		if !matchesMetadata(r.Metadata, opts.MetadataFilter) {
			continue
		}

		results = append(results, r)
		if len(results) == topK {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return nil, quireerr.Wrapf(err, quireerr.CodeVectorSearchFailure, "iterating search results")
	}

	return results, nil
}

func matchesMetadata(meta map[string]any, filter map[string]any) bool {
	for key, want := range filter {
		got, ok := meta[key]
		if !ok || !reflect.DeepEqual(got, want) {
			return false
		}
	}
	return true
}

// GetChunk returns a stored chunk by id.
func (v *VectorStore) GetChunk(ctx context.Context, id string) (*store.TextChunk, error) {
	const q = `SELECT id, document_id, text, metadata FROM chunks WHERE id = ?`

	var (
		chunk   store.TextChunk
		metaStr string
	)
	err := v.db.QueryRowContext(ctx, q, id).Scan(&chunk.ID, &chunk.DocumentID, &chunk.Text, &metaStr)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, quireerr.Wrapf(store.ErrNotFound, quireerr.CodeVectorChunkNotFound, "chunk %s not found", id)
	}
	if err != nil {
		return nil, quireerr.Wrapf(err, quireerr.CodeStoreDatabaseFailure, "getting chunk %s", id)
	}

	if metaStr != "" && metaStr != "{}" {
		if err := json.Unmarshal([]byte(metaStr), &chunk.Metadata); err != nil {
			return nil, quireerr.Wrapf(err, quireerr.CodeStoreDatabaseFailure, "unmarshalling metadata for chunk %s", id)
		}
	}

	return &chunk, nil
}

// DeleteChunks removes all chunks belonging to a document from both tables
// and reports whether any were removed.
func (v *VectorStore) DeleteChunks(ctx context.Context, documentID string) (bool, error) {
	rows, err := v.db.QueryContext(ctx, `SELECT id FROM chunks WHERE document_id = ?`, documentID)
	if err != nil {
		return false, quireerr.Wrapf(err, quireerr.CodeStoreDatabaseFailure, "finding chunks for document %s", documentID)
	}

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			_ = rows.Close()
			return false, quireerr.Wrapf(err, quireerr.CodeStoreDatabaseFailure, "scanning chunk id")
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return false, quireerr.Wrapf(err, quireerr.CodeStoreDatabaseFailure, "iterating chunk ids")
	}
	_ = rows.Close()

	if len(ids) == 0 {
		return false, nil
	}

	tx, err := v.db.BeginTx(ctx, nil)
	if err != nil {
		return false, quireerr.Wrapf(err, quireerr.CodeStoreDatabaseFailure, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM chunk_vectors WHERE id IN (`+placeholders+`)`, args...); err != nil {
		return false, quireerr.Wrapf(err, quireerr.CodeStoreDatabaseFailure, "deleting vectors for document %s", documentID)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE id IN (`+placeholders+`)`, args...); err != nil {
		return false, quireerr.Wrapf(err, quireerr.CodeStoreDatabaseFailure, "deleting chunks for document %s", documentID)
	}

	if err := tx.Commit(); err != nil {
		return false, quireerr.Wrapf(err, quireerr.CodeStoreDatabaseFailure, "committing chunk delete")
	}
	return true, nil
}

// Close closes the underlying database connection.
func (v *VectorStore) Close() error {
	return v.db.Close()
}
