// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quire Contributors

// Package minio provides S3-compatible document storage for deployments that
// keep document bytes off the local disk.
package minio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/quire-dev/quire/internal/store"
	quireerr "github.com/quire-dev/quire/pkg/errors"
)

// Compile-time interface check.
var _ store.DocumentStore = (*Store)(nil)

// Config holds connection settings for an S3-compatible endpoint.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// Store implements store.DocumentStore on an S3-compatible backend (MinIO,
// AWS S3, etc.). The locator is the object key within the configured bucket.
// Safe for concurrent use.
type Store struct {
	client *minio.Client
	bucket string
}

// New validates connectivity and ensures the bucket exists, creating it when
// missing.
func New(cfg Config) (*Store, error) {
	if cfg.Endpoint == "" {
		return nil, quireerr.New(quireerr.CodeConfigValidateInvalidValue, "minio endpoint is required")
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, quireerr.New(quireerr.CodeConfigValidateInvalidValue, "minio credentials are required")
	}
	if cfg.Bucket == "" {
		return nil, quireerr.New(quireerr.CodeConfigValidateInvalidValue, "minio bucket is required")
	}

	cli, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, quireerr.Wrap(err, quireerr.CodeFilesSaveFailure, "creating minio client")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	exists, err := cli.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, quireerr.Wrapf(err, quireerr.CodeFilesSaveFailure, "checking bucket %s", cfg.Bucket)
	}
	if !exists {
		if err := cli.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, quireerr.Wrapf(err, quireerr.CodeFilesSaveFailure, "creating bucket %s", cfg.Bucket)
		}
	}

	return &Store{client: cli, bucket: cfg.Bucket}, nil
}

// Save uploads content under a fresh uuid-prefixed key and returns the key.
func (s *Store) Save(ctx context.Context, content []byte, filename string, t store.DocumentType) (string, error) {
	key := fmt.Sprintf("%s_%s", uuid.NewString(), objectName(filename, t))

	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(content), int64(len(content)),
		minio.PutObjectOptions{ContentType: contentType(t)})
	if err != nil {
		return "", quireerr.Wrapf(err, quireerr.CodeFilesSaveFailure, "uploading %s", key)
	}
	return key, nil
}

// Load downloads object bytes by key.
func (s *Store) Load(ctx context.Context, locator string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, locator, minio.GetObjectOptions{})
	if err != nil {
		return nil, quireerr.Wrapf(err, quireerr.CodeFilesLoadFailure, "getting object %s", locator)
	}
	defer func() { _ = obj.Close() }()

	content, err := io.ReadAll(obj)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, quireerr.Wrapf(store.ErrNotFound, quireerr.CodeFilesNotFound, "object %s not found", locator)
		}
		return nil, quireerr.Wrapf(err, quireerr.CodeFilesLoadFailure, "reading object %s", locator)
	}
	return content, nil
}

// Delete removes an object by key. Removing an absent key is not an error in
// S3 semantics, so neither is it here.
func (s *Store) Delete(ctx context.Context, locator string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, locator, minio.RemoveObjectOptions{}); err != nil {
		return quireerr.Wrapf(err, quireerr.CodeFilesDeleteFailure, "removing object %s", locator)
	}
	return nil
}

func objectName(filename string, t store.DocumentType) string {
	name := path.Base(strings.TrimSpace(filename))
	if name == "" || name == "." || name == "/" {
		name = "document." + string(t)
	}
	return strings.ReplaceAll(name, "/", "_")
}

func contentType(t store.DocumentType) string {
	switch t {
	case store.DocumentTypePDF:
		return "application/pdf"
	case store.DocumentTypeDOCX:
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case store.DocumentTypeHTML:
		return "text/html"
	case store.DocumentTypeMD:
		return "text/markdown"
	default:
		return "text/plain"
	}
}
