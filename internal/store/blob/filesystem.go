// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quire Contributors

// Package blob provides local filesystem document storage.
package blob

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/quire-dev/quire/internal/store"
	quireerr "github.com/quire-dev/quire/pkg/errors"
)

// Compile-time interface check.
var _ store.DocumentStore = (*FilesystemStore)(nil)

// FilesystemStore saves document bytes under a base directory. Each save
// writes a fresh uuid-prefixed file, so two uploads of the same filename never
// collide. The returned locator is the absolute file path.
type FilesystemStore struct {
	baseDir string
}

// NewFilesystemStore creates the base directory if needed.
func NewFilesystemStore(baseDir string) (*FilesystemStore, error) {
	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, quireerr.Wrapf(err, quireerr.CodeFilesSaveFailure, "resolving base dir %s", baseDir)
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, quireerr.Wrapf(err, quireerr.CodeFilesSaveFailure, "creating base dir %s", abs)
	}
	return &FilesystemStore{baseDir: abs}, nil
}

// Save writes content to a new file and returns its path as the locator.
func (f *FilesystemStore) Save(ctx context.Context, content []byte, filename string, t store.DocumentType) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", quireerr.Wrap(err, quireerr.CodeFilesSaveFailure, "saving document")
	}

	name := fmt.Sprintf("%s_%s", uuid.NewString(), sanitizeFilename(filename, t))
	path := filepath.Join(f.baseDir, name)

	if err := os.WriteFile(path, content, 0o600); err != nil {
		return "", quireerr.Wrapf(err, quireerr.CodeFilesSaveFailure, "writing %s", path)
	}

	slog.Debug("saved document file", "path", path, "bytes", len(content))
	return path, nil
}

// Load reads document bytes back by locator.
func (f *FilesystemStore) Load(ctx context.Context, locator string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, quireerr.Wrap(err, quireerr.CodeFilesLoadFailure, "loading document")
	}

	content, err := os.ReadFile(locator)
	if os.IsNotExist(err) {
		return nil, quireerr.Wrapf(store.ErrNotFound, quireerr.CodeFilesNotFound, "file %s not found", locator)
	}
	if err != nil {
		return nil, quireerr.Wrapf(err, quireerr.CodeFilesLoadFailure, "reading %s", locator)
	}
	return content, nil
}

// Delete removes the file. Deleting an absent locator is not an error.
func (f *FilesystemStore) Delete(ctx context.Context, locator string) error {
	if err := ctx.Err(); err != nil {
		return quireerr.Wrap(err, quireerr.CodeFilesDeleteFailure, "deleting document")
	}

	err := os.Remove(locator)
	if err != nil && !os.IsNotExist(err) {
		return quireerr.Wrapf(err, quireerr.CodeFilesDeleteFailure, "removing %s", locator)
	}
	return nil
}

// sanitizeFilename strips path components and falls back to a typed default
// when the client sends no usable name.
func sanitizeFilename(filename string, t store.DocumentType) string {
	name := filepath.Base(strings.TrimSpace(filename))
	if name == "" || name == "." || name == string(filepath.Separator) {
		name = "document." + string(t)
	}
	return strings.ReplaceAll(name, string(filepath.Separator), "_")
}
