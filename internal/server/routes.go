// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quire Contributors

package server

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/quire-dev/quire/internal/service"
	"github.com/quire-dev/quire/internal/store"
	quireerr "github.com/quire-dev/quire/pkg/errors"
)

func (s *Server) registerRoutes() {
	// Document endpoints
	huma.Register(s.api, huma.Operation{
		OperationID: "list-documents",
		Method:      http.MethodGet,
		Path:        "/api/v1/documents",
		Summary:     "List documents",
		Tags:        []string{"documents"},
	}, s.handleListDocuments)

	huma.Register(s.api, huma.Operation{
		OperationID: "create-document",
		Method:      http.MethodPost,
		Path:        "/api/v1/documents",
		Summary:     "Ingest a document",
		Tags:        []string{"documents"},
	}, s.handleCreateDocument)

	huma.Register(s.api, huma.Operation{
		OperationID: "get-document",
		Method:      http.MethodGet,
		Path:        "/api/v1/documents/{id}",
		Summary:     "Get document metadata",
		Tags:        []string{"documents"},
	}, s.handleGetDocument)

	huma.Register(s.api, huma.Operation{
		OperationID: "update-document",
		Method:      http.MethodPatch,
		Path:        "/api/v1/documents/{id}",
		Summary:     "Update document metadata",
		Tags:        []string{"documents"},
	}, s.handleUpdateDocument)

	huma.Register(s.api, huma.Operation{
		OperationID: "delete-document",
		Method:      http.MethodDelete,
		Path:        "/api/v1/documents/{id}",
		Summary:     "Delete a document",
		Tags:        []string{"documents"},
	}, s.handleDeleteDocument)

	// Retrieval endpoints
	huma.Register(s.api, huma.Operation{
		OperationID: "search",
		Method:      http.MethodPost,
		Path:        "/api/v1/search",
		Summary:     "Semantic search over document chunks",
		Tags:        []string{"retrieval"},
	}, s.handleSearch)

	huma.Register(s.api, huma.Operation{
		OperationID: "chat",
		Method:      http.MethodPost,
		Path:        "/api/v1/chat",
		Summary:     "Ask a question grounded in the document collection",
		Tags:        []string{"retrieval"},
	}, s.handleChat)
}

// --- Request/Response types for huma ---

// DocumentBody is the JSON shape of document metadata.
type DocumentBody struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Author          string `json:"author,omitempty"`
	PublicationDate string `json:"publication_date,omitempty"`
	DocumentType    string `json:"document_type"`
	DateAdded       string `json:"date_added"`
	FilePath        string `json:"file_path,omitempty"`
}

func toDocumentBody(doc *store.Document) DocumentBody {
	return DocumentBody{
		ID:              doc.ID,
		Title:           doc.Title,
		Author:          doc.Author,
		PublicationDate: doc.PublicationDate,
		DocumentType:    string(doc.Type),
		DateAdded:       doc.DateAdded.UTC().Format(time.RFC3339Nano),
		FilePath:        doc.FilePath,
	}
}

type listDocumentsInput struct {
	Title           string `query:"title" doc:"Filter by exact title"`
	Author          string `query:"author" doc:"Filter by exact author"`
	PublicationDate string `query:"publication_date" doc:"Filter by exact publication date"`
	DocumentType    string `query:"document_type" doc:"Filter by document type code"`
	SortBy          string `query:"sort_by" doc:"Sort field (id, title, author, publication_date, document_type, date_added)"`
	SortOrder       string `query:"sort_order" doc:"asc or desc (default desc)"`
	Limit           int    `query:"limit" minimum:"0" doc:"Page size (default 100)"`
	Offset          int    `query:"offset" minimum:"0" doc:"Rows to skip"`
}
type listDocumentsOutput struct {
	Body struct {
		Documents []DocumentBody `json:"documents"`
	}
}

type createDocumentInput struct {
	Body struct {
		Content         string `json:"content" minLength:"1" doc:"Document text"`
		Filename        string `json:"filename" minLength:"1" doc:"Original filename"`
		Title           string `json:"title,omitempty" doc:"Title (defaults to filename)"`
		Author          string `json:"author,omitempty"`
		PublicationDate string `json:"publication_date,omitempty"`
		DocumentType    string `json:"document_type" enum:"pdf,docx,html,txt,md"`
	}
}
type createDocumentOutput struct {
	Status int
	Body   DocumentBody
}

type documentIDInput struct {
	ID string `path:"id"`
}
type getDocumentOutput struct {
	Body DocumentBody
}

type updateDocumentInput struct {
	ID   string `path:"id"`
	Body struct {
		Title           *string `json:"title,omitempty"`
		Author          *string `json:"author,omitempty"`
		PublicationDate *string `json:"publication_date,omitempty"`
		DocumentType    *string `json:"document_type,omitempty" enum:"pdf,docx,html,txt,md"`
		FilePath        *string `json:"file_path,omitempty"`
	}
}
type updateDocumentOutput struct {
	Body DocumentBody
}

type deleteDocumentOutput struct {
	Body struct {
		Deleted bool `json:"deleted"`
	}
}

type searchInput struct {
	Body struct {
		QueryText      string    `json:"query_text,omitempty" doc:"Natural-language query"`
		QueryEmbedding []float32 `json:"query_embedding,omitempty" doc:"Pre-computed query vector"`
		TopK           int       `json:"top_k,omitempty" minimum:"0" doc:"Number of results (default 5)"`
		DocumentIDs    []string  `json:"document_ids,omitempty" doc:"Restrict to these documents"`
	}
}
type searchResultBody struct {
	ChunkID    string         `json:"chunk_id"`
	DocumentID string         `json:"document_id"`
	Text       string         `json:"text"`
	Score      float64        `json:"score" doc:"Distance, lower is more similar"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}
type searchOutput struct {
	Body struct {
		Results []searchResultBody `json:"results"`
	}
}

type chatInput struct {
	Body struct {
		Question    string   `json:"question" minLength:"1"`
		Model       string   `json:"model,omitempty" doc:"provider/model ref; empty uses the default"`
		TopK        int      `json:"top_k,omitempty" minimum:"0"`
		Temperature *float32 `json:"temperature,omitempty"`
		MaxTokens   int      `json:"max_tokens,omitempty" minimum:"0"`
	}
}
type chatOutput struct {
	Body struct {
		Answer  string             `json:"answer"`
		Model   string             `json:"model"`
		Sources []searchResultBody `json:"sources,omitempty"`
	}
}

// --- Handlers ---

func (s *Server) handleListDocuments(ctx context.Context, input *listDocumentsInput) (*listDocumentsOutput, error) {
	filters := map[string]any{}
	if input.Title != "" {
		filters["title"] = input.Title
	}
	if input.Author != "" {
		filters["author"] = input.Author
	}
	if input.PublicationDate != "" {
		filters["publication_date"] = input.PublicationDate
	}
	if input.DocumentType != "" {
		filters["document_type"] = input.DocumentType
	}

	docs, err := s.svc.ListDocuments(ctx, store.ListQuery{
		Filters:   filters,
		SortBy:    input.SortBy,
		SortOrder: input.SortOrder,
		Limit:     input.Limit,
		Offset:    input.Offset,
	})
	if err != nil {
		return nil, humaError(err, "listing documents")
	}

	out := &listDocumentsOutput{}
	out.Body.Documents = make([]DocumentBody, 0, len(docs))
	for _, doc := range docs {
		out.Body.Documents = append(out.Body.Documents, toDocumentBody(doc))
	}
	return out, nil
}

func (s *Server) handleCreateDocument(ctx context.Context, input *createDocumentInput) (*createDocumentOutput, error) {
	docType, err := store.ParseDocumentType(input.Body.DocumentType)
	if err != nil {
		return nil, huma.Error400BadRequest("unknown document_type "+input.Body.DocumentType, err)
	}

	doc, err := s.svc.Ingest(ctx, service.IngestInput{
		Content:         []byte(input.Body.Content),
		Filename:        input.Body.Filename,
		Title:           input.Body.Title,
		Author:          input.Body.Author,
		PublicationDate: input.Body.PublicationDate,
		Type:            docType,
	})
	if err != nil {
		return nil, humaError(err, "ingesting document")
	}

	return &createDocumentOutput{Status: http.StatusCreated, Body: toDocumentBody(doc)}, nil
}

func (s *Server) handleGetDocument(ctx context.Context, input *documentIDInput) (*getDocumentOutput, error) {
	doc, err := s.svc.GetDocument(ctx, input.ID)
	if err != nil {
		return nil, humaError(err, "getting document "+input.ID)
	}
	return &getDocumentOutput{Body: toDocumentBody(doc)}, nil
}

func (s *Server) handleUpdateDocument(ctx context.Context, input *updateDocumentInput) (*updateDocumentOutput, error) {
	updates := map[string]any{}
	if input.Body.Title != nil {
		updates["title"] = *input.Body.Title
	}
	if input.Body.Author != nil {
		updates["author"] = *input.Body.Author
	}
	if input.Body.PublicationDate != nil {
		updates["publication_date"] = *input.Body.PublicationDate
	}
	if input.Body.DocumentType != nil {
		if _, err := store.ParseDocumentType(*input.Body.DocumentType); err != nil {
			return nil, huma.Error400BadRequest("unknown document_type "+*input.Body.DocumentType, err)
		}
		updates["document_type"] = *input.Body.DocumentType
	}
	if input.Body.FilePath != nil {
		updates["file_path"] = *input.Body.FilePath
	}

	doc, err := s.svc.UpdateDocument(ctx, input.ID, updates)
	if err != nil {
		return nil, humaError(err, "updating document "+input.ID)
	}
	return &updateDocumentOutput{Body: toDocumentBody(doc)}, nil
}

func (s *Server) handleDeleteDocument(ctx context.Context, input *documentIDInput) (*deleteDocumentOutput, error) {
	deleted, err := s.svc.Delete(ctx, input.ID)
	if err != nil {
		return nil, humaError(err, "deleting document "+input.ID)
	}
	out := &deleteDocumentOutput{}
	out.Body.Deleted = deleted
	return out, nil
}

func (s *Server) handleSearch(ctx context.Context, input *searchInput) (*searchOutput, error) {
	results, err := s.svc.Search(ctx, service.SearchQuery{
		QueryText:      input.Body.QueryText,
		QueryEmbedding: input.Body.QueryEmbedding,
		TopK:           input.Body.TopK,
		DocumentIDs:    input.Body.DocumentIDs,
	})
	if err != nil {
		return nil, humaError(err, "searching")
	}

	out := &searchOutput{}
	out.Body.Results = toResultBodies(results)
	return out, nil
}

func (s *Server) handleChat(ctx context.Context, input *chatInput) (*chatOutput, error) {
	resp, err := s.svc.Chat(ctx, service.ChatRequest{
		Question:    input.Body.Question,
		Model:       input.Body.Model,
		TopK:        input.Body.TopK,
		Temperature: input.Body.Temperature,
		MaxTokens:   input.Body.MaxTokens,
	})
	if err != nil {
		return nil, humaError(err, "answering question")
	}

	out := &chatOutput{}
	out.Body.Answer = resp.Answer
	out.Body.Model = resp.Model
	out.Body.Sources = toResultBodies(resp.Sources)
	return out, nil
}

func toResultBodies(results []store.SearchResult) []searchResultBody {
	out := make([]searchResultBody, 0, len(results))
	for _, r := range results {
		out = append(out, searchResultBody{
			ChunkID:    r.ChunkID,
			DocumentID: r.DocumentID,
			Text:       r.Text,
			Score:      r.Score,
			Metadata:   r.Metadata,
		})
	}
	return out
}

// humaError maps a coded service error onto the right HTTP status.
func humaError(err error, msg string) error {
	return huma.NewError(quireerr.HTTPStatus(err), msg, err)
}
