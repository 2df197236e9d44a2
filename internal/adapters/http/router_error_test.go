package httpadapter

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kirillkom/project-brain/internal/config"
	"github.com/kirillkom/project-brain/internal/core/domain"
)

func postJSON(t *testing.T, handler http.Handler, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	return res
}

func TestChatMapsDomainErrorsToStatus(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"invalid input", domain.WrapError(domain.ErrInvalidInput, "answer", errors.New("bad query")), http.StatusBadRequest},
		{"compute failure", domain.WrapError(domain.ErrComputeFailure, "generate answer", errors.New("model down")), http.StatusBadGateway},
		{"temporary", domain.WrapError(domain.ErrTemporary, "ollama.generate", errors.New("503")), http.StatusServiceUnavailable},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			handler := NewRouter(config.Config{}, Services{Query: &queryFake{err: tc.err}}, nil).Handler()
			res := postJSON(t, handler, "/v1/chat", map[string]any{"message": "fire rating?"})
			if res.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, res.Code)
			}
		})
	}
}

func TestInternalErrorsHideDetails(t *testing.T) {
	handler := NewRouter(config.Config{}, Services{Query: &queryFake{err: errors.New("pq: password leaked")}}, nil).Handler()
	res := postJSON(t, handler, "/v1/chat", map[string]any{"message": "x"})
	if strings.Contains(res.Body.String(), "leaked") {
		t.Fatalf("internal error details leaked: %s", res.Body.String())
	}
}

func TestChatRejectsMalformedJSON(t *testing.T) {
	handler := NewRouter(config.Config{}, Services{Query: &queryFake{}}, nil).Handler()
	req := httptest.NewRequest(http.MethodPost, "/v1/chat", strings.NewReader("{"))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestSearchRejectsInvalidFilters(t *testing.T) {
	search := &searchFake{}
	handler := NewRouter(config.Config{}, Services{Search: search}, nil).Handler()
	res := postJSON(t, handler, "/v1/search", map[string]any{
		"query":   "doors",
		"filters": map[string]any{"page_min": 9, "page_max": 2},
	})
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestGetDocumentByIDReturns404ForNotFound(t *testing.T) {
	handler := NewRouter(
		config.Config{},
		Services{Documents: docsFake{err: domain.WrapError(domain.ErrDocumentNotFound, "get", errors.New("id=missing"))}},
		nil,
	).Handler()

	req := httptest.NewRequest(http.MethodGet, "/v1/documents/missing", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}
}

func TestExtractRejectsUnknownEntityType(t *testing.T) {
	handler := NewRouter(config.Config{}, Services{Extract: extractFake{}}, nil).Handler()
	res := postJSON(t, handler, "/v1/extract", map[string]any{"entity_type": "window_schedule"})
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestMissingServiceReturns501(t *testing.T) {
	handler := NewRouter(config.Config{}, Services{}, nil).Handler()
	req := httptest.NewRequest(http.MethodGet, "/v1/conflicts", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusNotImplemented {
		t.Fatalf("expected 501, got %d", res.Code)
	}
}

func TestUnknownRouteReturnsJSON404(t *testing.T) {
	handler := NewRouter(config.Config{}, Services{}, nil).Handler()
	req := httptest.NewRequest(http.MethodGet, "/v2/nothing", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}
	if got := res.Header().Get("Content-Type"); got != "application/json" {
		t.Fatalf("expected json content type, got %q", got)
	}
}
