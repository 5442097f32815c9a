// Package httpapi exposes the ingestion, recall, and chat services over a
// chi-routed JSON API.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/omnirecall/omnirecall/internal/domain"
	chatuc "github.com/omnirecall/omnirecall/internal/usecase/chat"
	healthuc "github.com/omnirecall/omnirecall/internal/usecase/health"
	ingestionuc "github.com/omnirecall/omnirecall/internal/usecase/ingestion"
	recalluc "github.com/omnirecall/omnirecall/internal/usecase/recall"
)

const (
	defaultTopK          = 5
	defaultListDocuments = 100
	defaultListChunks    = 200
	defaultUploadLimit   = 10 << 20
)

// allowedExtensions restricts uploads to plain-text formats.
var allowedExtensions = map[string]struct{}{
	".txt":      {},
	".md":       {},
	".markdown": {},
}

// ErrorResponse is the JSON error envelope shared by all endpoints.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

const (
	codeBadRequest          = "bad_request"
	codeNotFound            = "document_not_found"
	codeRateLimited         = "rate_limited"
	codePayloadTooLarge     = "payload_too_large"
	codeUnsupportedMedia    = "unsupported_media_type"
	codeProviderUnavailable = "provider_unavailable"
	codeInternalError       = "internal_error"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server wires the use case services into HTTP handlers.
type Server struct {
	documents      *ingestionuc.Service
	recall         *recalluc.Service
	chat           *chatuc.Service
	health         *healthuc.Service
	logger         *zap.Logger
	maxUploadBytes int64
	errorHandlers  []errorHandler
}

// NewServer creates an HTTP API server. maxUploadBytes caps document uploads;
// values <= 0 fall back to the default limit.
func NewServer(
	documents *ingestionuc.Service,
	recall *recalluc.Service,
	chat *chatuc.Service,
	health *healthuc.Service,
	maxUploadBytes int64,
	logger *zap.Logger,
) *Server {
	if maxUploadBytes <= 0 {
		maxUploadBytes = defaultUploadLimit
	}
	s := &Server{
		documents:      documents,
		recall:         recall,
		chat:           chat,
		health:         health,
		logger:         logger,
		maxUploadBytes: maxUploadBytes,
	}
	s.errorHandlers = []errorHandler{
		providerUnavailableHandler,
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, codeNotFound),
		sentinelHandler(domain.ErrInvalidInput, http.StatusBadRequest, codeBadRequest),
		sentinelHandler(domain.ErrRateLimited, http.StatusTooManyRequests, codeRateLimited),
	}
	return s
}

// Routes mounts all endpoints on the given router.
func (s *Server) Routes(r chi.Router) {
	r.Route("/api/documents", func(r chi.Router) {
		r.Post("/upload", s.UploadDocument)
		r.Get("/", s.ListDocuments)
		r.Get("/{documentID}", s.GetDocument)
		r.Get("/{documentID}/chunks", s.GetDocumentChunks)
		r.Get("/{documentID}/content", s.GetDocumentContent)
		r.Post("/{documentID}/reindex", s.ReindexDocument)
		r.Delete("/{documentID}", s.DeleteDocument)
	})
	r.Post("/api/recall/search", s.SearchRecall)
	r.Post("/api/chat", s.CompleteChat)
	r.Get("/health", s.Health)
	r.Get("/metrics", s.Metrics)
}

// documentDetails is the full document representation.
type documentDetails struct {
	DocumentID  string `json:"documentId"`
	FileName    string `json:"fileName"`
	SourceType  string `json:"sourceType"`
	BlobPath    string `json:"blobPath"`
	ChunkCount  int    `json:"chunkCount"`
	ContentHash string `json:"contentHash"`
	CreatedAt   string `json:"createdAtUtc"`
}

// documentListItem omits blob and hash details from listings.
type documentListItem struct {
	DocumentID string `json:"documentId"`
	FileName   string `json:"fileName"`
	SourceType string `json:"sourceType"`
	ChunkCount int    `json:"chunkCount"`
	CreatedAt  string `json:"createdAtUtc"`
}

type recallSearchRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"topK"`
}

type chatRequest struct {
	Prompt string `json:"prompt"`
	TopK   int    `json:"topK"`
}

type chatResponse struct {
	Answer    string            `json:"answer"`
	Provider  string            `json:"provider"`
	Model     string            `json:"model"`
	Citations []domain.Citation `json:"citations"`
}

// UploadDocument handles POST /api/documents/upload. Accepts multipart form
// data with a "file" part and an optional "sourceType" field.
func (s *Server) UploadDocument(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > s.maxUploadBytes {
		writeError(w, http.StatusRequestEntityTooLarge, codePayloadTooLarge,
			"Max upload size is "+strconv.FormatInt(s.maxUploadBytes, 10)+" bytes.")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)

	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, codePayloadTooLarge,
				"Max upload size is "+strconv.FormatInt(s.maxUploadBytes, 10)+" bytes.")
			return
		}
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid multipart form payload.")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "File is required.")
		return
	}
	defer func() { _ = file.Close() }()

	if header.Size == 0 {
		writeError(w, http.StatusBadRequest, codeBadRequest, "File is required.")
		return
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if _, ok := allowedExtensions[ext]; !ok {
		writeError(w, http.StatusUnsupportedMediaType, codeUnsupportedMedia,
			"Unsupported file extension: "+ext)
		return
	}

	raw, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Failed to read uploaded file.")
		return
	}
	content := string(raw)
	if strings.TrimSpace(content) == "" {
		writeError(w, http.StatusBadRequest, codeBadRequest,
			"Uploaded file produced no readable text content.")
		return
	}

	sourceType := strings.TrimSpace(r.FormValue("sourceType"))
	if sourceType == "" {
		sourceType = "file"
	}

	result, err := s.documents.Ingest(r.Context(), header.Filename, content, sourceType)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	w.Header().Set("Location", "/api/documents/"+result.DocumentID)
	writeJSON(w, http.StatusCreated, result)
}

// GetDocument handles GET /api/documents/{documentID}.
func (s *Server) GetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.documents.GetDocument(r.Context(), chi.URLParam(r, "documentID"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detailsFromDocument(doc))
}

// GetDocumentContent handles GET /api/documents/{documentID}/content. It
// serves the stored normalized text as a plain-text download.
func (s *Server) GetDocumentContent(w http.ResponseWriter, r *http.Request) {
	doc, content, err := s.documents.GetContent(r.Context(), chi.URLParam(r, "documentID"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.FileName))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(content))
}

// ListDocuments handles GET /api/documents.
func (s *Server) ListDocuments(w http.ResponseWriter, r *http.Request) {
	maxCount := queryInt(r, "maxCount", defaultListDocuments)
	docs, err := s.documents.ListDocuments(r.Context(), maxCount)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	items := make([]documentListItem, len(docs))
	for i, d := range docs {
		items[i] = documentListItem{
			DocumentID: d.ID,
			FileName:   d.FileName,
			SourceType: d.SourceType,
			ChunkCount: d.ChunkCount,
			CreatedAt:  d.CreatedAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		}
	}
	writeJSON(w, http.StatusOK, items)
}

// GetDocumentChunks handles GET /api/documents/{documentID}/chunks.
func (s *Server) GetDocumentChunks(w http.ResponseWriter, r *http.Request) {
	maxCount := queryInt(r, "maxCount", defaultListChunks)
	previews, err := s.documents.GetChunks(r.Context(), chi.URLParam(r, "documentID"), maxCount)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, previews)
}

// DeleteDocument handles DELETE /api/documents/{documentID}.
func (s *Server) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	deleted, err := s.documents.DeleteDocument(r.Context(), chi.URLParam(r, "documentID"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, codeNotFound, domain.ErrNotFound.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ReindexDocument handles POST /api/documents/{documentID}/reindex.
func (s *Server) ReindexDocument(w http.ResponseWriter, r *http.Request) {
	result, err := s.documents.Reindex(r.Context(), chi.URLParam(r, "documentID"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// SearchRecall handles POST /api/recall/search.
func (s *Server) SearchRecall(w http.ResponseWriter, r *http.Request) {
	var req recallSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Query is required.")
		return
	}
	if req.TopK <= 0 {
		req.TopK = defaultTopK
	}

	result, err := s.recall.Search(r.Context(), req.Query, req.TopK)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// CompleteChat handles POST /api/chat.
func (s *Server) CompleteChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Prompt is required.")
		return
	}
	if req.TopK <= 0 {
		req.TopK = defaultTopK
	}

	outcome, err := s.chat.Complete(r.Context(), req.Prompt, req.TopK)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, chatResponse{
		Answer:    outcome.Answer,
		Provider:  outcome.Provider,
		Model:     outcome.Model,
		Citations: outcome.Citations,
	})
}

// Health handles GET /health. The endpoint returns 503 only when the backing
// store is down; degraded AI providers still serve retrieval traffic.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())
	status := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, report)
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func detailsFromDocument(doc domain.Document) documentDetails {
	return documentDetails{
		DocumentID:  doc.ID,
		FileName:    doc.FileName,
		SourceType:  doc.SourceType,
		BlobPath:    doc.BlobPath,
		ChunkCount:  doc.ChunkCount,
		ContentHash: doc.ContentHash,
		CreatedAt:   doc.CreatedAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	}
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrNotFound,
		domain.ErrInvalidInput,
		domain.ErrNoChunksProduced,
		domain.ErrRateLimited,
		domain.ErrProviderTransient,
		domain.ErrEmptyResponse,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// providerUnavailableHandler maps exhausted chat providers to 503 with the
// aggregate failure message. Runs before the sentinel handlers so the wrapped
// rate-limit cause does not surface as 429.
func providerUnavailableHandler(w http.ResponseWriter, err error, _ string) bool {
	var pue *domain.ProviderUnavailableError
	if !errors.As(err, &pue) {
		return false
	}
	writeError(w, http.StatusServiceUnavailable, codeProviderUnavailable, pue.Error())
	return true
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
