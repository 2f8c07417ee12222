// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quire Contributors

package main

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/quire-dev/quire/internal/config"
	"github.com/quire-dev/quire/internal/provider"
	anthropicprov "github.com/quire-dev/quire/internal/provider/anthropic"
	googleprov "github.com/quire-dev/quire/internal/provider/google"
	openaiprov "github.com/quire-dev/quire/internal/provider/openai"
	"github.com/quire-dev/quire/internal/server"
	"github.com/quire-dev/quire/internal/service"
	"github.com/quire-dev/quire/internal/store"
	"github.com/quire-dev/quire/internal/store/blob"
	miniostore "github.com/quire-dev/quire/internal/store/minio"
	_ "github.com/quire-dev/quire/internal/store/sqlite" // register sqlite backend
	quireerr "github.com/quire-dev/quire/pkg/errors"
)

// Backend holds all wired subsystems and manages their lifecycle.
type Backend struct {
	Server   *server.Server
	Metadata store.MetadataStore
	Vectors  store.VectorStore
	Registry *provider.Registry
	Service  *service.DocumentService
}

// WireBackend creates all subsystems and wires them together.
func WireBackend(ctx context.Context, cfg *config.Config) (*Backend, error) {
	if err := os.MkdirAll(cfg.Storage.DataPath, 0o750); err != nil {
		return nil, quireerr.Errorf(quireerr.CodeCLISetupFailure, "creating data directory: %w", err)
	}

	// 1. Metadata store.
	meta, err := store.NewMetadataStore(&store.Config{
		Backend:          cfg.Storage.Backend,
		DatabaseURL:      cfg.Storage.DatabaseURL,
		VectorDimensions: cfg.Storage.VectorDimensions,
	})
	if err != nil {
		return nil, quireerr.Errorf(quireerr.CodeCLISetupFailure, "creating metadata store: %w", err)
	}
	if err := meta.Initialize(ctx); err != nil {
		return nil, quireerr.Errorf(quireerr.CodeCLISetupFailure, "initializing metadata store: %w", err)
	}

	// 2. Vector store.
	vectors, err := store.NewVectorStore(&store.Config{
		Backend:          cfg.Storage.Backend,
		DatabaseURL:      cfg.Storage.DatabaseURL,
		VectorDimensions: cfg.Storage.VectorDimensions,
	}, cfg.Storage.DataPath)
	if err != nil {
		_ = meta.Close()
		return nil, quireerr.Errorf(quireerr.CodeCLISetupFailure, "creating vector store: %w", err)
	}

	// 3. Document file store.
	files, err := newFileStore(cfg)
	if err != nil {
		_ = vectors.Close()
		_ = meta.Close()
		return nil, err
	}

	// 4. Provider registry with default model refs from config.
	registry := provider.NewRegistry()
	registerBuiltinProviders(cfg, registry)

	if err := registry.SetDefaultChat(cfg.Models.Chat); err != nil {
		_ = vectors.Close()
		_ = meta.Close()
		return nil, quireerr.Wrapf(err, quireerr.CodeCLISetupFailure, "setting default chat model %s", cfg.Models.Chat)
	}
	if err := registry.SetDefaultEmbed(cfg.Models.Embed); err != nil {
		_ = vectors.Close()
		_ = meta.Close()
		return nil, quireerr.Wrapf(err, quireerr.CodeCLISetupFailure, "setting default embed model %s", cfg.Models.Embed)
	}

	// 5. Document service and HTTP server.
	svc := service.New(meta, files, vectors, registry)

	srv, err := server.New(server.Config{ListenAddr: cfg.Server.Listen}, svc)
	if err != nil {
		_ = registry.Close()
		_ = vectors.Close()
		_ = meta.Close()
		return nil, quireerr.Errorf(quireerr.CodeCLISetupFailure, "creating server: %w", err)
	}

	return &Backend{
		Server:   srv,
		Metadata: meta,
		Vectors:  vectors,
		Registry: registry,
		Service:  svc,
	}, nil
}

// Start runs the HTTP server and blocks until the context is cancelled.
func (b *Backend) Start(ctx context.Context) error {
	return b.Server.Start(ctx)
}

// Close releases all resources held by the backend.
func (b *Backend) Close() error {
	type closer interface{ Close() error }
	closers := []closer{b.Registry, b.Vectors, b.Metadata}

	var errs []error
	for _, c := range closers {
		if c != nil {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func newFileStore(cfg *config.Config) (store.DocumentStore, error) {
	switch cfg.Files.Backend {
	case "filesystem":
		fs, err := blob.NewFilesystemStore(cfg.Files.Path)
		if err != nil {
			return nil, quireerr.Errorf(quireerr.CodeCLISetupFailure, "creating file store: %w", err)
		}
		return fs, nil
	case "minio":
		ms, err := miniostore.New(miniostore.Config{
			Endpoint:  cfg.Files.MinIO.Endpoint,
			AccessKey: cfg.Files.MinIO.AccessKey,
			SecretKey: cfg.Files.MinIO.SecretKey,
			Bucket:    cfg.Files.MinIO.Bucket,
			UseSSL:    cfg.Files.MinIO.UseSSL,
		})
		if err != nil {
			return nil, quireerr.Errorf(quireerr.CodeCLISetupFailure, "creating minio store: %w", err)
		}
		return ms, nil
	default:
		return nil, quireerr.Errorf(quireerr.CodeCLISetupFailure, "unsupported files backend: %q", cfg.Files.Backend)
	}
}

// providerFactory builds a provider.LLM from a ProviderConfig.
type providerFactory func(config.ProviderConfig) (provider.LLM, error)

// builtinProviderFactories maps provider names to their constructors.
// Declared as a variable so tests can inject failing factories.
var builtinProviderFactories = map[string]providerFactory{
	"anthropic": func(pc config.ProviderConfig) (provider.LLM, error) {
		return anthropicprov.New(anthropicprov.Config{APIKey: pc.APIKey, BaseURL: pc.Endpoint})
	},
	"google": func(pc config.ProviderConfig) (provider.LLM, error) {
		return googleprov.New(googleprov.Config{APIKey: pc.APIKey})
	},
	"openai": func(pc config.ProviderConfig) (provider.LLM, error) {
		return openaiprov.New(openaiprov.Config{APIKey: pc.APIKey, BaseURL: pc.Endpoint})
	},
}

// registerBuiltinProviders iterates configured providers and registers
// matching built-in implementations. Unknown names or empty API keys are
// logged and skipped — neither is fatal at startup.
func registerBuiltinProviders(cfg *config.Config, reg *provider.Registry) {
	for name, pc := range cfg.Providers {
		if pc.APIKey == "" {
			slog.Warn("skipping provider with empty API key", "provider", name)
			continue
		}
		factory, ok := builtinProviderFactories[name]
		if !ok {
			slog.Warn("unknown provider in config, skipping", "provider", name)
			continue
		}
		p, err := factory(pc)
		if err != nil {
			slog.Warn("failed to create provider", "provider", name, "error", err)
			continue
		}
		reg.Register(name, p)
		slog.Info("registered provider", "provider", name)
	}
}
