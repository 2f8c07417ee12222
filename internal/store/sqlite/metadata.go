// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quire Contributors

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/quire-dev/quire/internal/store"
	quireerr "github.com/quire-dev/quire/pkg/errors"
)

// Compile-time interface check.
var _ store.MetadataStore = (*MetadataStore)(nil)

// MetadataStore implements store.MetadataStore backed by SQLite.
//
// It owns a single *sql.DB handle between Initialize and Close and provides
// no internal locking; one caller at a time. Every operation commits before
// returning.
type MetadataStore struct {
	dbPath string
	db     *sql.DB
	logger *slog.Logger
}

// NewMetadataStore creates an uninitialized metadata store for the given
// database URL ("sqlite:///<path>", absolute or relative, or a bare path).
// No connection is opened until Initialize.
func NewMetadataStore(databaseURL string) (*MetadataStore, error) {
	path := DBPathFromURL(databaseURL)
	if path == "" {
		return nil, quireerr.Errorf(quireerr.CodeStoreInvalidInput, "empty database path in %q", databaseURL)
	}
	return &MetadataStore{dbPath: path, logger: slog.Default()}, nil
}

// DBPathFromURL derives a plain filesystem path from a "sqlite:///<path>"
// configuration string. A string without the scheme is returned as-is.
func DBPathFromURL(databaseURL string) string {
	if rest, ok := strings.CutPrefix(databaseURL, "sqlite:///"); ok {
		return rest
	}
	return databaseURL
}

// Initialize opens the connection, creates parent directories, and ensures
// the documents table exists. Calling it again while initialized is a no-op.
func (s *MetadataStore) Initialize(ctx context.Context) error {
	if s.db != nil {
		return nil
	}

	if dir := filepath.Dir(s.dbPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return quireerr.Wrapf(err, quireerr.CodeStoreDatabaseFailure, "creating database directory %s", dir)
		}
	}

	db, err := sql.Open("sqlite3", s.dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return quireerr.Wrapf(err, quireerr.CodeStoreDatabaseFailure, "opening sqlite db %s", s.dbPath)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return quireerr.Wrapf(err, quireerr.CodeStoreDatabaseFailure, "pinging sqlite db %s", s.dbPath)
	}

	if err := migrateMetadata(ctx, db); err != nil {
		_ = db.Close()
		return quireerr.Wrapf(err, quireerr.CodeStoreDatabaseFailure, "migrating documents table")
	}

	s.db = db
	s.logger.Info("metadata store initialized", slog.String("path", s.dbPath))
	return nil
}

func migrateMetadata(ctx context.Context, db *sql.DB) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS documents (
	id               TEXT PRIMARY KEY,
	title            TEXT NOT NULL,
	author           TEXT,
	publication_date TEXT,
	document_type    TEXT NOT NULL,
	date_added       TIMESTAMP NOT NULL,
	file_path        TEXT
);
`
	_, err := db.ExecContext(ctx, ddl)
	return err
}

// Close releases the connection and returns the store to the uninitialized
// state. Safe to call when already closed.
func (s *MetadataStore) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	s.logger.Info("metadata store closed", slog.String("path", s.dbPath))
	return err
}

func (s *MetadataStore) ensureInitialized() error {
	if s.db == nil {
		return quireerr.Wrap(store.ErrNotInitialized, quireerr.CodeStoreNotInitialized,
			"metadata store not initialized; call Initialize first")
	}
	return nil
}

// AddDocument inserts the seven persisted columns; Metadata and Source are
// dropped by design. A duplicate id is a conflict, never an update.
func (s *MetadataStore) AddDocument(ctx context.Context, doc *store.Document) error {
	if err := s.ensureInitialized(); err != nil {
		return err
	}

	dateAdded := doc.DateAdded
	if dateAdded.IsZero() {
		dateAdded = time.Now().UTC()
	}

	const q = `INSERT INTO documents (id, title, author, publication_date, document_type, date_added, file_path)
VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, q,
		doc.ID,
		doc.Title,
		nullable(doc.Author),
		nullable(doc.PublicationDate),
		string(doc.Type),
		dateAdded.UTC().Format(time.RFC3339Nano),
		nullable(doc.FilePath),
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
			return quireerr.Wrapf(store.ErrConflict, quireerr.CodeStoreDocumentConflict,
				"document %s already exists", doc.ID)
		}
		return quireerr.Wrapf(err, quireerr.CodeStoreDatabaseFailure, "adding document %s", doc.ID)
	}
	return nil
}

// GetDocument returns the entity for id. An absent row and a row that cannot
// be converted are indistinguishable to the caller: both are not-found.
func (s *MetadataStore) GetDocument(ctx context.Context, id string) (*store.Document, error) {
	if err := s.ensureInitialized(); err != nil {
		return nil, err
	}

	const q = `SELECT id, title, author, publication_date, document_type, date_added, file_path
FROM documents WHERE id = ?`

	row := s.db.QueryRowContext(ctx, q, id)
	doc, err := s.scanDocument(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, quireerr.Wrapf(store.ErrNotFound, quireerr.CodeStoreDocumentNotFound,
			"document %s not found", id)
	}
	if err != nil {
		return nil, quireerr.Wrapf(err, quireerr.CodeStoreDatabaseFailure, "getting document %s", id)
	}
	if doc == nil {
		// Row exists but cannot be converted; already logged by the chokepoint.
		return nil, quireerr.Wrapf(store.ErrNotFound, quireerr.CodeStoreDocumentNotFound,
			"document %s not found", id)
	}
	return doc, nil
}

// listFilterColumns is the whitelist of filterable fields. Unknown keys and
// nil values are silently dropped.
var listFilterColumns = map[string]bool{
	"id":               true,
	"title":            true,
	"author":           true,
	"publication_date": true,
	"file_path":        true,
	"document_type":    true,
}

// listSortColumns is the whitelist of sortable fields. Anything else
// disables sorting, leaving result order storage-defined.
var listSortColumns = map[string]bool{
	"id":               true,
	"title":            true,
	"author":           true,
	"publication_date": true,
	"document_type":    true,
	"date_added":       true,
}

// ListDocuments returns entities matching all filters, sorted and paginated.
// Rows failing conversion are dropped silently, so pages may be short.
func (s *MetadataStore) ListDocuments(ctx context.Context, q store.ListQuery) ([]*store.Document, error) {
	if err := s.ensureInitialized(); err != nil {
		return nil, err
	}

	var (
		qb   strings.Builder
		args []any
	)

	qb.WriteString(`SELECT id, title, author, publication_date, document_type, date_added, file_path FROM documents`)

	var conditions []string
	for _, col := range []string{"id", "title", "author", "publication_date", "file_path", "document_type"} {
		value, ok := q.Filters[col]
		if !ok || value == nil || !listFilterColumns[col] {
			continue
		}
		conditions = append(conditions, col+" = ?")
		if dt, isType := value.(store.DocumentType); isType {
			args = append(args, string(dt))
		} else {
			args = append(args, value)
		}
	}
	if len(conditions) > 0 {
		qb.WriteString(" WHERE ")
		qb.WriteString(strings.Join(conditions, " AND "))
	}

	if listSortColumns[q.SortBy] {
		order := "ASC"
		if q.SortOrder == "" || strings.EqualFold(q.SortOrder, "desc") {
			order = "DESC"
		}
		qb.WriteString(" ORDER BY " + q.SortBy + " " + order)
	}

	limit := q.Limit
	if limit <= 0 {
		limit = store.DefaultListLimit
	}
	qb.WriteString(" LIMIT ? OFFSET ?")
	args = append(args, limit, q.Offset)

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, quireerr.Wrapf(err, quireerr.CodeStoreDatabaseFailure, "listing documents")
	}
	defer func() { _ = rows.Close() }()

	var docs []*store.Document
	for rows.Next() {
		doc, err := s.scanDocument(rows.Scan)
		if err != nil {
			return nil, quireerr.Wrapf(err, quireerr.CodeStoreDatabaseFailure, "scanning document row")
		}
		if doc == nil {
			continue // unconvertible row, logged and dropped
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, quireerr.Wrapf(err, quireerr.CodeStoreDatabaseFailure, "iterating document rows")
	}

	return docs, nil
}

// updatableColumns is the whitelist of writable fields for partial updates.
// Everything else, including id and date_added, is silently ignored.
var updatableColumns = []string{"title", "author", "publication_date", "document_type", "file_path"}

// UpdateDocument applies a partial update and returns the freshly re-fetched
// entity. When no recognized field remains after filtering, the call is a
// no-op that still returns the current entity.
func (s *MetadataStore) UpdateDocument(ctx context.Context, id string, updates map[string]any) (*store.Document, error) {
	if err := s.ensureInitialized(); err != nil {
		return nil, err
	}

	var (
		sets []string
		args []any
	)
	for _, col := range updatableColumns {
		value, ok := updates[col]
		if !ok {
			continue
		}
		sets = append(sets, col+" = ?")
		if dt, isType := value.(store.DocumentType); isType {
			args = append(args, string(dt))
		} else {
			args = append(args, value)
		}
	}

	if len(sets) == 0 {
		return s.GetDocument(ctx, id)
	}

	q := "UPDATE documents SET " + strings.Join(sets, ", ") + " WHERE id = ?"
	args = append(args, id)

	result, err := s.db.ExecContext(ctx, q, args...)
	if err != nil {
		return nil, quireerr.Wrapf(err, quireerr.CodeStoreDatabaseFailure, "updating document %s", id)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, quireerr.Wrapf(err, quireerr.CodeStoreDatabaseFailure, "checking rows affected for document %s", id)
	}
	if affected == 0 {
		return nil, quireerr.Wrapf(store.ErrNotFound, quireerr.CodeStoreDocumentNotFound,
			"document %s not found", id)
	}

	return s.GetDocument(ctx, id)
}

// DeleteDocument removes the row for id and reports whether a row was
// actually removed.
func (s *MetadataStore) DeleteDocument(ctx context.Context, id string) (bool, error) {
	if err := s.ensureInitialized(); err != nil {
		return false, err
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return false, quireerr.Wrapf(err, quireerr.CodeStoreDatabaseFailure, "deleting document %s", id)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, quireerr.Wrapf(err, quireerr.CodeStoreDatabaseFailure, "checking rows affected for document %s", id)
	}
	return affected > 0, nil
}

// scanDocument is the single row-to-entity conversion chokepoint used by get
// and list. It returns (nil, nil) for rows that exist but cannot be converted
// — bad type code, unparseable date — after logging; the scan error itself is
// returned only for driver-level failures.
func (s *MetadataStore) scanDocument(scan func(dest ...any) error) (*store.Document, error) {
	var (
		id, title, typeCode       string
		author, pubDate, filePath sql.NullString
		dateAdded                 any
	)

	if err := scan(&id, &title, &author, &pubDate, &typeCode, &dateAdded, &filePath); err != nil {
		return nil, err
	}

	docType, err := store.ParseDocumentType(typeCode)
	if err != nil {
		s.logger.Warn("dropping document row with unknown type code",
			slog.String("id", id),
			slog.String("document_type", typeCode),
		)
		return nil, nil
	}

	added, err := parseDateAdded(dateAdded)
	if err != nil {
		s.logger.Warn("dropping document row with unparseable date_added",
			slog.String("id", id),
			slog.Any("date_added", dateAdded),
			slog.String("error", err.Error()),
		)
		return nil, nil
	}

	return &store.Document{
		ID:              id,
		Title:           title,
		Author:          author.String,
		PublicationDate: pubDate.String,
		Type:            docType,
		DateAdded:       added,
		FilePath:        filePath.String,
		Metadata:        map[string]any{}, // never persisted
		Source:          "",               // never persisted
	}, nil
}

// dateFormats are the accepted textual forms of date_added, tried in order.
var dateFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseDateAdded accepts the three persisted forms of date_added: an
// ISO-8601 string, a numeric epoch-seconds value, or a timestamp already
// structured by the driver. Anything else fails the row.
func parseDateAdded(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		if t.IsZero() {
			// The driver reports unparseable TIMESTAMP text as the zero time.
			return time.Time{}, quireerr.New(quireerr.CodeStoreInvalidInput, "zero date_added")
		}
		return t, nil
	case string:
		return parseDateString(t)
	case []byte:
		return parseDateString(string(t))
	case int64:
		return time.Unix(t, 0).UTC(), nil
	case float64:
		sec := int64(t)
		nsec := int64((t - float64(sec)) * float64(time.Second))
		return time.Unix(sec, nsec).UTC(), nil
	default:
		return time.Time{}, quireerr.Errorf(quireerr.CodeStoreInvalidInput, "unexpected date_added type %T", v)
	}
}

func parseDateString(s string) (time.Time, error) {
	for _, format := range dateFormats {
		if t, err := time.ParseInLocation(format, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, quireerr.Errorf(quireerr.CodeStoreInvalidInput, "unparseable date_added %q", s)
}

// nullable maps an empty string to NULL for the optional text columns.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
