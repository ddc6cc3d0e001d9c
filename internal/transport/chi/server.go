// Package chi exposes the shopping assistant over HTTP.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/domain"
	"github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/domain/activity"
	"github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/metrics"
	"github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/usecase/assistant"
	"github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/usecase/catalog"
	healthuc "github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/usecase/health"
	"github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/usecase/search"
)

// Error codes returned in error bodies.
const (
	CodeBadRequest             = "bad_request"
	CodeValidationFailed       = "validation_failed"
	CodeNotFound               = "not_found"
	CodePayloadTooLarge        = "payload_too_large"
	CodeUnsupportedMediaType   = "unsupported_media_type"
	CodeEmbeddingProviderError = "embedding_provider_error"
	CodeDataAccessFailed       = "data_access_failed"
	CodeInternalError          = "internal_error"
)

// ImageSearcher ranks products against an uploaded image.
type ImageSearcher interface {
	SearchImage(ctx context.Context, image []byte, format string, limit int, rec *activity.Recorder) (search.Outcome, error)
}

// Uploads bounds image search uploads.
type Uploads struct {
	MaxBytes int64
	// AllowedTypes maps a content type to the provider image format.
	AllowedTypes map[string]string
}

// DefaultUploads accepts jpeg, png, gif and webp images up to 5 MiB.
func DefaultUploads() Uploads {
	return Uploads{
		MaxBytes: 5 << 20,
		AllowedTypes: map[string]string{
			"image/jpeg": "jpeg",
			"image/png":  "png",
			"image/gif":  "gif",
			"image/webp": "webp",
		},
	}
}

// Options configure the router.
type Options struct {
	Uploads Uploads
	// Heartbeat is the activity stream keep-alive interval. Zero disables it.
	Heartbeat time.Duration
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server serves the assistant API.
type Server struct {
	assistant     *assistant.Service
	catalog       *catalog.Service
	images        ImageSearcher
	health        *healthuc.Service
	hub           *activity.Hub
	logger        *zap.Logger
	opts          Options
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server. images and hub may be nil.
func NewServer(
	asst *assistant.Service,
	cat *catalog.Service,
	images ImageSearcher,
	health *healthuc.Service,
	hub *activity.Hub,
	logger *zap.Logger,
	opts Options,
) *Server {
	if opts.Uploads.MaxBytes <= 0 || len(opts.Uploads.AllowedTypes) == 0 {
		opts.Uploads = DefaultUploads()
	}
	s := &Server{
		assistant: asst,
		catalog:   cat,
		images:    images,
		health:    health,
		hub:       hub,
		logger:    logger,
		opts:      opts,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidRequest, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, CodeNotFound),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, CodeEmbeddingProviderError),
		sentinelHandler(domain.ErrDataAccess, http.StatusBadGateway, CodeDataAccessFailed),
	}
	return s
}

// Handler builds the routed handler with the full middleware chain.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(Recoverer(s.logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(RequestLogger(s.logger))
	r.Use(metrics.Middleware())

	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
	r.Route("/api", func(r chi.Router) {
		r.Post("/chat", s.Chat)
		r.Get("/search", s.Search)
		r.Post("/search/image", s.SearchImage)
		r.Get("/products/{id}", s.GetProduct)
		r.Get("/products/{id}/inventory", s.CheckInventory)
		r.Get("/activity/stream", s.StreamActivity)
	})
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, CodeNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, CodeBadRequest, "method not allowed")
	})
	return r
}

// Chat handles POST /api/chat.
func (s *Server) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := validateStruct(req); err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, err.Error())
		return
	}
	areq, err := req.toDomain()
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, err.Error())
		return
	}

	resp, err := s.assistant.Handle(r.Context(), areq, s.sink())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, chatToResponse(resp))
}

// Search handles GET /api/search?q=&backend=&limit=, a stateless form of chat.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	var (
		q       string
		backend string
		limit   int
	)
	if err := runtime.BindQueryParameter("form", true, true, "q", query, &q); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "backend", query, &backend); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "limit", query, &limit); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}

	resp, err := s.assistant.Handle(r.Context(), assistant.Request{
		Message: q,
		Backend: assistant.Backend(backend),
		Limit:   limit,
	}, s.sink())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, searchResponse{
		SearchType: string(resp.Mode),
		Products:   scoredToResponse(resp.Products),
		Degraded:   resp.Degraded,
		Activities: activitiesToResponse(resp.Activities),
	})
}

// SearchImage handles POST /api/search/image (multipart field "image").
func (s *Server) SearchImage(w http.ResponseWriter, r *http.Request) {
	if s.images == nil {
		writeError(w, http.StatusNotImplemented, CodeEmbeddingProviderError, "image search is not configured")
		return
	}
	var limit int
	if err := runtime.BindQueryParameter("form", true, false, "limit", r.URL.Query(), &limit); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.opts.Uploads.MaxBytes+(1<<20))
	file, header, err := r.FormFile("image")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, CodePayloadTooLarge, "image too large")
			return
		}
		writeError(w, http.StatusBadRequest, CodeBadRequest, "multipart field \"image\" is required")
		return
	}
	defer func() { _ = file.Close() }()

	contentType := strings.ToLower(header.Header.Get("Content-Type"))
	format, ok := s.opts.Uploads.AllowedTypes[contentType]
	if !ok {
		writeError(w, http.StatusUnsupportedMediaType, CodeUnsupportedMediaType,
			"unsupported image type "+contentType)
		return
	}
	if header.Size > s.opts.Uploads.MaxBytes {
		writeError(w, http.StatusRequestEntityTooLarge, CodePayloadTooLarge, "image too large")
		return
	}
	image, err := io.ReadAll(io.LimitReader(file, s.opts.Uploads.MaxBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "read image: "+err.Error())
		return
	}
	if int64(len(image)) > s.opts.Uploads.MaxBytes {
		writeError(w, http.StatusRequestEntityTooLarge, CodePayloadTooLarge, "image too large")
		return
	}

	rec := activity.NewRecorder("visual-search", s.sink())
	out, err := s.images.SearchImage(r.Context(), image, format, limit, rec)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, searchResponse{
		SearchType: string(out.Mode),
		Products:   scoredToResponse(out.Products),
		Activities: activitiesToResponse(rec.Entries()),
	})
}

// GetProduct handles GET /api/products/{id}.
func (s *Server) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}
	p, err := s.catalog.Get(r.Context(), id, activity.NewRecorder("catalog", s.sink()))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, productToResponse(p))
}

// CheckInventory handles GET /api/products/{id}/inventory?size=.
func (s *Server) CheckInventory(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}
	var size string
	if err := runtime.BindQueryParameter("form", true, false, "size", r.URL.Query(), &size); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}
	a, err := s.catalog.CheckInventory(r.Context(), id, size, activity.NewRecorder("catalog", s.sink()))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, availabilityToResponse(a))
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}
	status := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, healthResponse{Status: string(report.Status), Checks: checks})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// sink returns the hub as an activity sink, or a nil interface when unset.
func (s *Server) sink() activity.Sink {
	if s.hub == nil {
		return nil
	}
	return s.hub
}

func productID(w http.ResponseWriter, r *http.Request) (string, bool) {
	var id string
	err := runtime.BindStyledParameterWithOptions("simple", "id", chi.URLParam(r, "id"), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Required: true})
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return "", false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

// safeDomainMessage returns a client-safe message. Validation errors keep
// their detail; upstream failures are reduced to their sentinel.
func safeDomainMessage(err error) string {
	if errors.Is(err, domain.ErrInvalidRequest) {
		return err.Error()
	}
	sentinels := []error{
		domain.ErrNotFound,
		domain.ErrEmbeddingProviderError,
		domain.ErrDataAccess,
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

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}
