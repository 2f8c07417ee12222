// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quire Contributors

package store

import "context"

// DocumentStore manages physical document bytes, decoupled from metadata.
// Save returns an opaque locator; the metadata store's FilePath field is
// expected to hold such a locator but never validates or dereferences it.
type DocumentStore interface {
	Save(ctx context.Context, content []byte, filename string, t DocumentType) (string, error)
	Load(ctx context.Context, locator string) ([]byte, error)
	Delete(ctx context.Context, locator string) error
}
