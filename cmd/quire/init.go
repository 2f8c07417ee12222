// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quire Contributors

package main

import (
	"fmt"
	"os"

	"github.com/quire-dev/quire/internal/config"
	"github.com/quire-dev/quire/internal/store"
	_ "github.com/quire-dev/quire/internal/store/sqlite" // register sqlite backend
	quireerr "github.com/quire-dev/quire/pkg/errors"
	"github.com/spf13/cobra"
)

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create a default config file and initialize storage",
		Long: `Write a default quire.yaml (if none exists), create the data
directory, and initialize the metadata database schema. Safe to run more
than once.`,
		RunE: runInit,
	}
}

func runInit(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	cfgPath, _ := cmd.Flags().GetString("config")
	if cfgPath == "" {
		cfgPath = config.DefaultConfigPath()
	}

	written, err := config.Bootstrap(cfgPath)
	if err != nil {
		return err
	}
	if written != "" {
		fmt.Fprintf(out, "Wrote default config to %s\n", written)
	} else {
		fmt.Fprintf(out, "Config already exists at %s\n", cfgPath)
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.Storage.DataPath, 0o750); err != nil {
		return quireerr.Errorf(quireerr.CodeCLISetupFailure, "creating data directory %s: %w", cfg.Storage.DataPath, err)
	}
	if cfg.Files.Backend == "filesystem" {
		if err := os.MkdirAll(cfg.Files.Path, 0o750); err != nil {
			return quireerr.Errorf(quireerr.CodeCLISetupFailure, "creating files directory %s: %w", cfg.Files.Path, err)
		}
	}

	meta, err := store.NewMetadataStore(&store.Config{
		Backend:          cfg.Storage.Backend,
		DatabaseURL:      cfg.Storage.DatabaseURL,
		VectorDimensions: cfg.Storage.VectorDimensions,
	})
	if err != nil {
		return quireerr.Errorf(quireerr.CodeCLISetupFailure, "creating metadata store: %w", err)
	}
	if err := meta.Initialize(cmd.Context()); err != nil {
		return quireerr.Errorf(quireerr.CodeCLISetupFailure, "initializing metadata store: %w", err)
	}
	if err := meta.Close(); err != nil {
		return quireerr.Errorf(quireerr.CodeCLISetupFailure, "closing metadata store: %w", err)
	}

	fmt.Fprintf(out, "Initialized %s metadata store at %s\n", cfg.Storage.Backend, cfg.Storage.DatabaseURL)
	fmt.Fprintln(out, "Run `quire start` to launch the server.")
	return nil
}
