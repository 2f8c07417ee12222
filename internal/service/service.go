// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quire Contributors

// Package service glues the stores and providers together into the document
// operations the server and CLI expose: ingest, search, chat, delete.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/quire-dev/quire/internal/provider"
	"github.com/quire-dev/quire/internal/store"
	quireerr "github.com/quire-dev/quire/pkg/errors"
)

// DocumentService coordinates document ingestion, retrieval, and deletion
// across the metadata store, the document store, the vector store, and the
// provider registry.
type DocumentService struct {
	meta     store.MetadataStore
	files    store.DocumentStore
	vectors  store.VectorStore
	registry *provider.Registry

	chunkSize    int
	chunkOverlap int
}

// Option configures a DocumentService.
type Option func(*DocumentService)

// WithChunking overrides the default chunk size and overlap (in characters).
func WithChunking(size, overlap int) Option {
	return func(s *DocumentService) {
		s.chunkSize = size
		s.chunkOverlap = overlap
	}
}

// New creates a DocumentService. All four collaborators are required.
func New(meta store.MetadataStore, files store.DocumentStore, vectors store.VectorStore, registry *provider.Registry, opts ...Option) *DocumentService {
	s := &DocumentService{
		meta:         meta,
		files:        files,
		vectors:      vectors,
		registry:     registry,
		chunkSize:    defaultChunkSize,
		chunkOverlap: defaultChunkOverlap,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IngestInput carries an uploaded document and its metadata.
type IngestInput struct {
	Content         []byte
	Filename        string
	Title           string
	Author          string
	PublicationDate string
	Type            store.DocumentType
	EmbedModel      string // "provider/model" ref; empty uses the default
}

// Ingest saves the document bytes, records metadata, and indexes the text for
// semantic search. On indexing failure the already-written file and metadata
// are rolled back so a failed ingest leaves no partial state.
func (s *DocumentService) Ingest(ctx context.Context, in IngestInput) (*store.Document, error) {
	if len(in.Content) == 0 {
		return nil, quireerr.New(quireerr.CodeServiceIngestFailure, "document content is empty")
	}
	if _, err := store.ParseDocumentType(string(in.Type)); err != nil {
		return nil, quireerr.Wrapf(err, quireerr.CodeServiceIngestFailure, "ingesting %s", in.Filename)
	}

	locator, err := s.files.Save(ctx, in.Content, in.Filename, in.Type)
	if err != nil {
		return nil, quireerr.Wrapf(err, quireerr.CodeServiceIngestFailure, "saving document bytes")
	}

	title := in.Title
	if title == "" {
		title = in.Filename
	}

	doc := store.NewDocument(uuid.NewString(), title, in.Type)
	doc.Author = in.Author
	doc.PublicationDate = in.PublicationDate
	doc.FilePath = locator

	if err := s.meta.AddDocument(ctx, doc); err != nil {
		s.cleanupFile(ctx, locator)
		return nil, quireerr.Wrapf(err, quireerr.CodeServiceIngestFailure, "recording document metadata")
	}

	if err := s.indexDocument(ctx, doc, string(in.Content), in.EmbedModel); err != nil {
		s.cleanupFile(ctx, locator)
		if _, derr := s.meta.DeleteDocument(ctx, doc.ID); derr != nil {
			slog.Warn("rollback of document metadata failed",
				slog.String("document_id", doc.ID), slog.String("error", derr.Error()))
		}
		return nil, err
	}

	slog.Info("ingested document",
		slog.String("document_id", doc.ID),
		slog.String("title", doc.Title),
		slog.String("type", string(doc.Type)))
	return doc, nil
}

func (s *DocumentService) cleanupFile(ctx context.Context, locator string) {
	if err := s.files.Delete(ctx, locator); err != nil {
		slog.Warn("rollback of saved document file failed",
			slog.String("locator", locator), slog.String("error", err.Error()))
	}
}

func (s *DocumentService) indexDocument(ctx context.Context, doc *store.Document, text, embedRef string) error {
	pieces := splitText(text, s.chunkSize, s.chunkOverlap)
	if len(pieces) == 0 {
		return nil
	}

	llm, model, err := s.registry.ResolveEmbed(embedRef)
	if err != nil {
		return quireerr.Wrapf(err, quireerr.CodeServiceIngestFailure, "resolving embedding provider")
	}

	embeddings, err := llm.Embed(ctx, model, pieces)
	if err != nil {
		return quireerr.Wrapf(err, quireerr.CodeServiceIngestFailure, "embedding %d chunks", len(pieces))
	}

	chunks := make([]*store.TextChunk, len(pieces))
	for i, piece := range pieces {
		chunks[i] = &store.TextChunk{
			ID:         uuid.NewString(),
			DocumentID: doc.ID,
			Text:       piece,
			Metadata:   map[string]any{"position": fmt.Sprintf("%d", i)},
		}
	}

	if _, err := s.vectors.AddChunks(ctx, chunks, embeddings); err != nil {
		return quireerr.Wrapf(err, quireerr.CodeServiceIngestFailure, "indexing %d chunks", len(chunks))
	}
	return nil
}

// SearchQuery is a semantic search request. Exactly one of QueryText and
// QueryEmbedding must be set.
type SearchQuery struct {
	QueryText      string
	QueryEmbedding []float32
	TopK           int
	DocumentIDs    []string
	EmbedModel     string // "provider/model" ref; empty uses the default
}

// Search embeds the query text if needed and runs a vector similarity search.
func (s *DocumentService) Search(ctx context.Context, q SearchQuery) ([]store.SearchResult, error) {
	hasText := q.QueryText != ""
	hasEmbedding := len(q.QueryEmbedding) > 0
	if hasText == hasEmbedding {
		return nil, quireerr.New(quireerr.CodeServiceQueryInvalid,
			"exactly one of query_text and query_embedding must be provided")
	}

	embedding := q.QueryEmbedding
	if hasText {
		llm, model, err := s.registry.ResolveEmbed(q.EmbedModel)
		if err != nil {
			return nil, err
		}
		vecs, err := llm.Embed(ctx, model, []string{q.QueryText})
		if err != nil {
			return nil, err
		}
		if len(vecs) != 1 {
			return nil, quireerr.Errorf(quireerr.CodeProviderResponseInvalid,
				"got %d embeddings for one query", len(vecs))
		}
		embedding = vecs[0]
	}

	return s.vectors.Search(ctx, embedding, q.TopK, store.SearchOpts{DocumentIDs: q.DocumentIDs})
}

// ChatRequest is a retrieval-augmented chat request.
type ChatRequest struct {
	Question    string
	Model       string // "provider/model" ref; empty uses the default
	EmbedModel  string
	TopK        int
	Temperature *float32
	MaxTokens   int
}

// ChatResponse carries the generated answer and the chunks that grounded it.
type ChatResponse struct {
	Answer  string
	Model   string
	Sources []store.SearchResult
	Usage   provider.Usage
}

const chatSystemPrompt = "You are a helpful assistant answering questions about a document collection. " +
	"Use only the provided context to answer. If the context does not contain the answer, say so."

// charsPerToken is the heuristic used to trim retrieved context against a
// provider's context window.
const charsPerToken = 4

// Chat retrieves relevant chunks and asks the configured LLM to answer using
// them as context.
func (s *DocumentService) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if strings.TrimSpace(req.Question) == "" {
		return nil, quireerr.New(quireerr.CodeServiceQueryInvalid, "question is empty")
	}

	results, err := s.Search(ctx, SearchQuery{
		QueryText:  req.Question,
		TopK:       req.TopK,
		EmbedModel: req.EmbedModel,
	})
	if err != nil {
		return nil, err
	}

	llm, model, err := s.registry.ResolveChat(req.Model)
	if err != nil {
		return nil, err
	}

	// Leave half the window for the conversation and the answer.
	budget := llm.MaxContextTokens() / 2 * charsPerToken
	contextBlock := buildContext(results, budget)

	prompt := req.Question
	if contextBlock != "" {
		prompt = "Context:\n" + contextBlock + "\n\nQuestion: " + req.Question
	}

	resp, err := llm.Generate(ctx, provider.GenerateRequest{
		Model:        model,
		Messages:     []provider.Message{{Role: provider.MessageRoleUser, Content: prompt}},
		SystemPrompt: chatSystemPrompt,
		Temperature:  req.Temperature,
		MaxTokens:    req.MaxTokens,
	})
	if err != nil {
		return nil, err
	}

	return &ChatResponse{
		Answer:  resp.Text,
		Model:   resp.Model,
		Sources: results,
		Usage:   resp.Usage,
	}, nil
}

// buildContext concatenates result texts, stopping before the character
// budget is exceeded.
func buildContext(results []store.SearchResult, budget int) string {
	var sb strings.Builder
	for _, r := range results {
		if sb.Len()+len(r.Text)+2 > budget {
			break
		}
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(r.Text)
	}
	return sb.String()
}

// GetDocument returns a document's metadata.
func (s *DocumentService) GetDocument(ctx context.Context, id string) (*store.Document, error) {
	return s.meta.GetDocument(ctx, id)
}

// ListDocuments lists document metadata with filtering, sorting, and paging.
func (s *DocumentService) ListDocuments(ctx context.Context, q store.ListQuery) ([]*store.Document, error) {
	return s.meta.ListDocuments(ctx, q)
}

// UpdateDocument applies a whitelisted partial update to document metadata.
func (s *DocumentService) UpdateDocument(ctx context.Context, id string, updates map[string]any) (*store.Document, error) {
	return s.meta.UpdateDocument(ctx, id, updates)
}

// Delete removes a document everywhere: its chunks, its stored bytes, and its
// metadata row. Removal is best effort; failures are joined so one failing
// layer does not hide another. Returns whether the metadata row existed.
func (s *DocumentService) Delete(ctx context.Context, id string) (bool, error) {
	doc, err := s.meta.GetDocument(ctx, id)
	if err != nil && !quireerr.IsNotFound(err) {
		return false, quireerr.Wrapf(err, quireerr.CodeServiceDeleteFailure, "loading document %s", id)
	}

	var errs []error

	if _, err := s.vectors.DeleteChunks(ctx, id); err != nil {
		errs = append(errs, err)
	}

	if doc != nil && doc.FilePath != "" {
		if err := s.files.Delete(ctx, doc.FilePath); err != nil {
			errs = append(errs, err)
		}
	}

	deleted, err := s.meta.DeleteDocument(ctx, id)
	if err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return deleted, quireerr.Join(errs...)
	}
	return deleted, nil
}
