// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quire Contributors

package errors_test

import (
	stderrors "errors"
	"net/http"
	"testing"

	quireerr "github.com/quire-dev/quire/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIncludesCodeAndFields(t *testing.T) {
	err := quireerr.New(
		quireerr.CodeStoreDocumentNotFound,
		"document missing",
		quireerr.FieldDocumentID("doc-123"),
		quireerr.Field("table", "documents"),
	)

	require.Error(t, err)
	assert.Equal(t, quireerr.CodeStoreDocumentNotFound, quireerr.CodeOf(err))
	assert.True(t, quireerr.HasCode(err, quireerr.CodeStoreDocumentNotFound))

	fields := quireerr.FieldsOf(err)
	assert.Equal(t, "doc-123", fields["document_id"])
	assert.Equal(t, "documents", fields["table"])
}

func TestErrorfWrapsInnerError(t *testing.T) {
	inner := stderrors.New("disk full")
	err := quireerr.Errorf(quireerr.CodeStoreDatabaseFailure, "write failed: %w", inner)
	require.Error(t, err)
	assert.ErrorIs(t, err, inner)
	assert.Equal(t, quireerr.CodeStoreDatabaseFailure, quireerr.CodeOf(err))
}

func TestWrapPreservesWrappedErrorAndCode(t *testing.T) {
	root := stderrors.New("record missing")
	err := quireerr.Wrap(
		root,
		quireerr.CodeStoreDocumentNotFound,
		"loading document",
		quireerr.FieldDocumentID("doc-42"),
	)

	require.Error(t, err)
	assert.ErrorIs(t, err, root)
	assert.True(t, quireerr.IsNotFound(err))
	assert.Equal(t, "doc-42", quireerr.FieldsOf(err)["document_id"])
}

func TestWrapNilReturnsNil(t *testing.T) {
	assert.NoError(t, quireerr.Wrap(nil, quireerr.CodeStoreDatabaseFailure, "nothing"))
	assert.NoError(t, quireerr.Wrapf(nil, quireerr.CodeStoreDatabaseFailure, "nothing %d", 1))
}

func TestClassifiers(t *testing.T) {
	assert.True(t, quireerr.IsNotFound(quireerr.New(quireerr.CodeFilesNotFound, "gone")))
	assert.True(t, quireerr.IsConflict(quireerr.New(quireerr.CodeStoreDocumentConflict, "dup")))
	assert.True(t, quireerr.IsNotInitialized(quireerr.New(quireerr.CodeStoreNotInitialized, "closed")))
	assert.True(t, quireerr.IsInvalidInput(quireerr.New(quireerr.CodeServiceQueryInvalid, "bad query")))
	assert.True(t, quireerr.IsUpstreamFailure(quireerr.New(quireerr.CodeProviderUpstreamFailure, "down")))
	assert.False(t, quireerr.IsNotFound(nil))
}

func TestHTTPStatusMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", quireerr.New(quireerr.CodeStoreDocumentNotFound, "x"), http.StatusNotFound},
		{"conflict", quireerr.New(quireerr.CodeStoreDocumentConflict, "x"), http.StatusConflict},
		{"invalid", quireerr.New(quireerr.CodeServerRequestInvalid, "x"), http.StatusBadRequest},
		{"upstream", quireerr.New(quireerr.CodeProviderUpstreamFailure, "x"), http.StatusBadGateway},
		{"internal", quireerr.New(quireerr.CodeStoreDatabaseFailure, "x"), http.StatusInternalServerError},
		{"plain error", stderrors.New("x"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, quireerr.HTTPStatus(tt.err))
		})
	}
}
