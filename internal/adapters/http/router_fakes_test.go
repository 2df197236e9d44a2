package httpadapter

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/kirillkom/project-brain/internal/core/domain"
)

type ingestFake struct {
	err error
}

func (f ingestFake) Upload(_ context.Context, filename, mimeType string, body io.Reader) (*domain.Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload", io.EOF)
	}

	now := time.Now().UTC()
	return &domain.Document{
		ID:          "doc-1",
		Filename:    filename,
		MimeType:    mimeType,
		StoragePath: "doc-1_file.txt",
		Status:      domain.StatusUploaded,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

type docsFake struct {
	err error
}

func (f docsFake) GetByID(_ context.Context, id string) (*domain.Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Document{ID: id, Filename: "a.txt", MimeType: "text/plain", StoragePath: "a", Status: domain.StatusReady}, nil
}

func (f docsFake) List(context.Context) ([]domain.Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	return nil, nil
}

type searchFake struct {
	err     error
	result  domain.RetrievalResult
	gotK    int
	gotFilt domain.SearchFilter
}

func (f *searchFake) Search(_ context.Context, _ string, k int, filter domain.SearchFilter) (domain.RetrievalResult, error) {
	f.gotK = k
	f.gotFilt = filter
	return f.result, f.err
}

type queryFake struct {
	err     error
	answer  domain.Answer
	gotReq  domain.QueryRequest
	cleared bool
}

func (f *queryFake) Answer(_ context.Context, req domain.QueryRequest) (*domain.Answer, error) {
	f.gotReq = req
	if f.err != nil {
		return nil, f.err
	}
	out := f.answer
	return &out, nil
}

func (f *queryFake) CacheStats() domain.CacheStats {
	return domain.CacheStats{TotalEntries: 2, ValidEntries: 1, TTLSeconds: 3600}
}

func (f *queryFake) ClearCache() { f.cleared = true }

type conflictsFake struct {
	report domain.ConflictReport
	err    error
}

func (f conflictsFake) DetectConflicts(context.Context) (*domain.ConflictReport, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := f.report
	return &out, nil
}

type extractFake struct {
	result domain.ExtractionResult
	err    error
}

func (f extractFake) Extract(_ context.Context, entityType domain.EntityType) (*domain.ExtractionResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := f.result
	out.EntityType = entityType
	return &out, nil
}

type analyticsFake struct{}

func (analyticsFake) Analytics(context.Context) (*domain.Analytics, error) {
	return &domain.Analytics{TotalQueries: 4}, nil
}

type observerFake struct {
	ragEndpoints []string
	answers      []string
	conflicts    []int
	extractions  []string
}

func (o *observerFake) Middleware(next http.Handler) http.Handler { return next }

func (o *observerFake) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("brain_http_requests_total 1\n"))
	})
}

func (o *observerFake) RecordRAGObservation(endpoint string, _ int, _ time.Duration) {
	o.ragEndpoints = append(o.ragEndpoints, endpoint)
}

func (o *observerFake) RecordAnswer(confidence string, _ bool) {
	o.answers = append(o.answers, confidence)
}

func (o *observerFake) RecordConflictScan(found int) {
	o.conflicts = append(o.conflicts, found)
}

func (o *observerFake) RecordExtraction(entityType string, _, _ int) {
	o.extractions = append(o.extractions, entityType)
}
