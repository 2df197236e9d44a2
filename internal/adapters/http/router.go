package httpadapter

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/kirillkom/project-brain/internal/config"
	"github.com/kirillkom/project-brain/internal/core/domain"
	"github.com/kirillkom/project-brain/internal/core/ports"
)

const maxJSONBodyBytes = 1 << 20

// Services are the inbound ports the router exposes. Nil services answer 501.
type Services struct {
	Ingest    ports.DocumentIngestor
	Documents ports.DocumentReader
	Search    ports.SearchService
	Query     ports.QueryService
	Conflicts ports.ConflictService
	Extract   ports.ExtractionService
	Analytics ports.AnalyticsReader
	IndexSize func() int
}

// Observer receives per-request engine observations.
type Observer interface {
	Middleware(next http.Handler) http.Handler
	Handler() http.Handler
	RecordRAGObservation(endpoint string, chunkCount int, duration time.Duration)
	RecordAnswer(confidence string, cached bool)
	RecordConflictScan(found int)
	RecordExtraction(entityType string, records, dropped int)
}

type Router struct {
	cfg      config.Config
	svc      Services
	observer Observer
}

func NewRouter(cfg config.Config, svc Services, observer Observer) *Router {
	return &Router{cfg: cfg, svc: svc, observer: observer}
}

func (rt *Router) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(accessLogMiddleware)
	r.Use(middleware.Recoverer)
	if rt.observer != nil {
		r.Use(rt.observer.Middleware)
		r.Method(http.MethodGet, "/metrics", rt.observer.Handler())
	}

	r.Get("/healthz", rt.healthz)

	r.Route("/v1", func(r chi.Router) {
		r.Use(apiKeyMiddleware(rt.cfg.APIKey))
		r.Use(rateLimitMiddleware(rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst))
		r.Use(func(next http.Handler) http.Handler {
			return backpressureMiddleware(next, rt.cfg.APIMaxInFlight, time.Duration(rt.cfg.APIBackpressureWaitMS)*time.Millisecond)
		})
		if rt.cfg.APIRequestTimeoutSeconds > 0 {
			r.Use(middleware.Timeout(time.Duration(rt.cfg.APIRequestTimeoutSeconds) * time.Second))
		}

		r.Post("/search", rt.search)
		r.Post("/chat", rt.chat)
		r.Get("/conflicts", rt.conflicts)
		r.Get("/cache/stats", rt.cacheStats)
		r.Post("/cache/clear", rt.clearCache)
		r.Post("/extract", rt.extract)
		r.Get("/export/{entity_type}", rt.export)
		r.Get("/analytics", rt.analytics)

		r.Post("/documents", rt.uploadDocument)
		r.Get("/documents", rt.listDocuments)
		r.Get("/documents/{id}", rt.getDocumentByID)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	})
	return r
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	resp := map[string]any{"status": "ok"}
	if rt.svc.IndexSize != nil {
		resp["indexed_chunks"] = rt.svc.IndexSize()
	}
	if rt.svc.Query != nil {
		resp["cache"] = rt.svc.Query.CacheStats()
	}
	writeJSON(w, http.StatusOK, resp)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
	dec := json.NewDecoder(body)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return domain.WrapError(domain.ErrInvalidInput, "decode request", errors.New("request body is empty"))
		}
		return domain.WrapError(domain.ErrInvalidInput, "decode request", fmt.Errorf("invalid json: %w", err))
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := mapErrorToHTTPStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		slog.Error("http_handler_failed",
			"request_id", requestIDFromContext(r.Context()),
			"path", r.URL.Path,
			"error", err,
		)
		msg = "internal server error"
	}
	writeJSON(w, status, map[string]string{"error": msg})
}

func notImplemented(w http.ResponseWriter) {
	writeJSON(w, http.StatusNotImplemented, map[string]string{"error": "not available in this deployment"})
}
