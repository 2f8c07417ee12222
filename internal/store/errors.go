// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quire Contributors

package store

import "errors"

// Sentinel errors for store operations.
// These errors can be checked using errors.Is() for classification; the
// concrete stores wrap them with coded context from pkg/errors.
var (
	// ErrNotInitialized indicates a CRUD call before Initialize or after Close.
	ErrNotInitialized = errors.New("store not initialized")

	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates an insert with an already-used primary key.
	ErrConflict = errors.New("conflict")

	// ErrDatabase indicates a general database error occurred.
	// This is a catch-all for unexpected storage failures.
	ErrDatabase = errors.New("database error")
)
