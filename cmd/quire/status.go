// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quire Contributors

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

// statusHTTPClient is the client used to probe the health endpoint.
// Exposed as a variable so tests can replace it.
var statusHTTPClient = &http.Client{Timeout: 5 * time.Second}

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show backend status",
		Long:  "Check the running backend's health endpoint and display status information.",
		RunE:  runStatus,
	}

	cmd.Flags().String("address", "127.0.0.1:8642", "backend address to check")

	return cmd
}

func runStatus(cmd *cobra.Command, _ []string) error {
	addr, _ := cmd.Flags().GetString("address")
	out := cmd.OutOrStdout()

	req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, "http://"+addr+"/health", nil)
	if err != nil {
		return err
	}

	resp, err := statusHTTPClient.Do(req)
	if err != nil {
		if errors.Is(err, syscall.ECONNREFUSED) {
			_, _ = fmt.Fprintf(out, "Backend at %s is not running (connection refused)\n", addr)
			return nil
		}
		_, _ = fmt.Fprintf(out, "Backend at %s: %s\n", addr, err)
		return nil
	}
	defer resp.Body.Close()

	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		_, _ = fmt.Fprintf(out, "Backend at %s: unreadable response (%s)\n", addr, err)
		return nil
	}

	_, _ = fmt.Fprintf(out, "Backend at %s: %s\n", addr, body.Status)
	return nil
}
