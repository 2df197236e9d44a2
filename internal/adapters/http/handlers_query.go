package httpadapter

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kirillkom/project-brain/internal/core/domain"
	"github.com/kirillkom/project-brain/internal/infrastructure/export/xlsx"
)

type searchRequest struct {
	Query   string         `json:"query"`
	K       *int           `json:"k"`
	Filters map[string]any `json:"filters"`
}

type searchHit struct {
	ChunkID        string  `json:"chunk_id"`
	DocumentID     string  `json:"document_id"`
	Filename       string  `json:"filename"`
	PageNumber     int     `json:"page_number"`
	Text           string  `json:"text"`
	RelevanceScore float64 `json:"relevance_score"`
}

type searchResponse struct {
	Query   string      `json:"query"`
	Count   int         `json:"count"`
	Results []searchHit `json:"results"`
}

type chatRequest struct {
	Message        string         `json:"message"`
	ConversationID string         `json:"conversation_id"`
	K              *int           `json:"k"`
	Filters        map[string]any `json:"filters"`
}

type extractRequest struct {
	EntityType string `json:"entity_type"`
}

func (rt *Router) search(w http.ResponseWriter, r *http.Request) {
	if rt.svc.Search == nil {
		notImplemented(w)
		return
	}
	var req searchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	filter, err := domain.ParseSearchFilter(req.Filters)
	if err != nil {
		writeError(w, r, err)
		return
	}

	start := time.Now()
	result, err := rt.svc.Search.Search(r.Context(), req.Query, rt.topK(req.K), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if rt.observer != nil {
		rt.observer.RecordRAGObservation("search", len(result.Chunks), time.Since(start))
	}

	hits := make([]searchHit, 0, len(result.Chunks))
	for _, sc := range result.Chunks {
		hits = append(hits, searchHit{
			ChunkID:        sc.Chunk.ChunkID,
			DocumentID:     sc.Chunk.DocumentID,
			Filename:       sc.Chunk.Filename,
			PageNumber:     sc.Chunk.PageNumber,
			Text:           sc.Chunk.Text,
			RelevanceScore: sc.Score,
		})
	}
	writeJSON(w, http.StatusOK, searchResponse{Query: req.Query, Count: len(hits), Results: hits})
}

func (rt *Router) chat(w http.ResponseWriter, r *http.Request) {
	if rt.svc.Query == nil {
		notImplemented(w)
		return
	}
	var req chatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	filter, err := domain.ParseSearchFilter(req.Filters)
	if err != nil {
		writeError(w, r, err)
		return
	}

	start := time.Now()
	answer, err := rt.svc.Query.Answer(r.Context(), domain.QueryRequest{
		Question:       req.Message,
		ConversationID: req.ConversationID,
		Limit:          rt.topK(req.K),
		Filter:         filter,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	if answer.Sources == nil {
		answer.Sources = []domain.Source{}
	}
	if rt.observer != nil {
		rt.observer.RecordRAGObservation("chat", answer.ChunksFound, time.Since(start))
		rt.observer.RecordAnswer(string(answer.Confidence), answer.Cached)
	}
	writeJSON(w, http.StatusOK, answer)
}

// topK resolves an optional k from a request body. An omitted k takes the
// configured default; an explicit value is passed through for validation.
func (rt *Router) topK(k *int) int {
	if k != nil {
		return *k
	}
	if rt.cfg.RAGTopK > 0 {
		return rt.cfg.RAGTopK
	}
	return domain.DefaultTopK
}

func (rt *Router) conflicts(w http.ResponseWriter, r *http.Request) {
	if rt.svc.Conflicts == nil {
		notImplemented(w)
		return
	}
	report, err := rt.svc.Conflicts.DetectConflicts(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if report.Conflicts == nil {
		report.Conflicts = []domain.ConflictRecord{}
	}
	if rt.observer != nil {
		rt.observer.RecordConflictScan(report.ConflictsFound)
	}
	writeJSON(w, http.StatusOK, report)
}

func (rt *Router) cacheStats(w http.ResponseWriter, _ *http.Request) {
	if rt.svc.Query == nil {
		notImplemented(w)
		return
	}
	writeJSON(w, http.StatusOK, rt.svc.Query.CacheStats())
}

func (rt *Router) clearCache(w http.ResponseWriter, _ *http.Request) {
	if rt.svc.Query == nil {
		notImplemented(w)
		return
	}
	rt.svc.Query.ClearCache()
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (rt *Router) extract(w http.ResponseWriter, r *http.Request) {
	var req extractRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	result, ok := rt.runExtraction(w, r, req.EntityType)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) export(w http.ResponseWriter, r *http.Request) {
	result, ok := rt.runExtraction(w, r, chi.URLParam(r, "entity_type"))
	if !ok {
		return
	}
	if len(result.Records) == 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": fmt.Sprintf("no %s data found", result.EntityType),
		})
		return
	}

	var buf bytes.Buffer
	if err := xlsx.Write(&buf, result); err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", xlsx.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", xlsx.Filename(result.EntityType)))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (rt *Router) runExtraction(w http.ResponseWriter, r *http.Request, rawType string) (*domain.ExtractionResult, bool) {
	if rt.svc.Extract == nil {
		notImplemented(w)
		return nil, false
	}
	entityType, err := domain.ParseEntityType(rawType)
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}
	result, err := rt.svc.Extract.Extract(r.Context(), entityType)
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}
	if result.Records == nil {
		result.Records = []domain.StructuredRecord{}
	}
	if result.Sources == nil {
		result.Sources = []domain.SourceRef{}
	}
	if rt.observer != nil {
		rt.observer.RecordExtraction(string(result.EntityType), len(result.Records), result.Dropped)
	}
	return result, true
}
