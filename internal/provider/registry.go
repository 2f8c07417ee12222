// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quire Contributors

package provider

import (
	"strings"
	"sync"

	quireerr "github.com/quire-dev/quire/pkg/errors"
)

// Registry manages provider registration and lookup. Model references use
// the "provider/model" format; a bare model name resolves against the
// configured default provider.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]LLM

	defaultChatRef  string // "provider/model"
	defaultEmbedRef string // "provider/model"
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]LLM)}
}

// Register adds a provider to the registry, replacing any previous provider
// registered under the same name.
func (r *Registry) Register(name string, p LLM) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[name] = p
}

// Get retrieves a provider by name.
func (r *Registry) Get(name string) (LLM, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[name]
	if !ok {
		return nil, quireerr.New(
			quireerr.CodeProviderNotFound,
			"provider not found: "+name,
			quireerr.FieldProvider(name),
		)
	}
	return p, nil
}

// SetDefaultChat sets the "provider/model" ref used when a chat request
// names no model. Returns an error if the provider portion is not registered.
func (r *Registry) SetDefaultChat(ref string) error {
	return r.setDefault(ref, &r.defaultChatRef)
}

// SetDefaultEmbed sets the "provider/model" ref used for embedding work.
func (r *Registry) SetDefaultEmbed(ref string) error {
	return r.setDefault(ref, &r.defaultEmbedRef)
}

func (r *Registry) setDefault(ref string, target *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	provName, _ := parseRef(ref)
	if _, ok := r.providers[provName]; !ok {
		return quireerr.New(
			quireerr.CodeProviderNotFound,
			"provider not registered: "+provName,
			quireerr.FieldProvider(provName),
		)
	}
	*target = ref
	return nil
}

// ResolveChat resolves a model reference for completion. An empty ref uses
// the default chat ref; a non-empty ref must be "provider/model" qualified.
func (r *Registry) ResolveChat(ref string) (LLM, string, error) {
	return r.resolve(ref, r.defaultRef(&r.defaultChatRef))
}

// ResolveEmbed resolves a model reference for embedding.
func (r *Registry) ResolveEmbed(ref string) (LLM, string, error) {
	return r.resolve(ref, r.defaultRef(&r.defaultEmbedRef))
}

func (r *Registry) defaultRef(target *string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return *target
}

func (r *Registry) resolve(ref, fallback string) (LLM, string, error) {
	if ref == "" || ref == "default" {
		ref = fallback
	}
	if ref == "" {
		return nil, "", quireerr.New(quireerr.CodeProviderNotFound, "no default provider configured")
	}
	if !strings.Contains(ref, "/") {
		return nil, "", quireerr.Errorf(
			quireerr.CodeProviderInvalidModelRef,
			"model reference %q must use provider/model format", ref,
		)
	}

	provName, model := parseRef(ref)
	p, err := r.Get(provName)
	if err != nil {
		return nil, "", err
	}
	return p, model, nil
}

// Close shuts down all registered providers.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for _, p := range r.providers {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return quireerr.Join(errs...)
	}
	return nil
}

// parseRef splits a "provider/model" reference on the first "/".
func parseRef(ref string) (providerName, model string) {
	idx := strings.Index(ref, "/")
	if idx < 0 {
		return ref, ""
	}
	return ref[:idx], ref[idx+1:]
}
