package mcpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/kirillkom/project-brain/internal/core/domain"
)

type searchStub struct {
	result  domain.RetrievalResult
	err     error
	gotK    int
	gotFilt domain.SearchFilter
}

func (s *searchStub) Search(_ context.Context, _ string, k int, filter domain.SearchFilter) (domain.RetrievalResult, error) {
	s.gotK = k
	s.gotFilt = filter
	return s.result, s.err
}

type queryStub struct {
	gotReq domain.QueryRequest
}

func (q *queryStub) Answer(_ context.Context, req domain.QueryRequest) (*domain.Answer, error) {
	q.gotReq = req
	return &domain.Answer{Text: "60 minutes", Confidence: domain.ConfidenceMedium, Sources: []domain.Source{}}, nil
}

func (q *queryStub) CacheStats() domain.CacheStats { return domain.CacheStats{} }
func (q *queryStub) ClearCache()                   {}

type conflictStub struct{}

func (conflictStub) DetectConflicts(context.Context) (*domain.ConflictReport, error) {
	return &domain.ConflictReport{Analysis: "No conflicts detected across 0 indexed chunks."}, nil
}

type extractStub struct {
	got domain.EntityType
}

func (e *extractStub) Extract(_ context.Context, entityType domain.EntityType) (*domain.ExtractionResult, error) {
	e.got = entityType
	return &domain.ExtractionResult{EntityType: entityType}, nil
}

func callRequest(name string, args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if res == nil || len(res.Content) == 0 {
		t.Fatalf("empty tool result")
	}
	switch c := res.Content[0].(type) {
	case mcp.TextContent:
		return c.Text
	case *mcp.TextContent:
		return c.Text
	default:
		t.Fatalf("unexpected content type %T", res.Content[0])
		return ""
	}
}

func TestNewServerRequiresSearch(t *testing.T) {
	if _, err := NewServer(Ports{}); !errors.Is(err, ErrMissingSearchService) {
		t.Fatalf("expected ErrMissingSearchService, got %v", err)
	}
}

func TestHandleSearch(t *testing.T) {
	search := &searchStub{result: domain.RetrievalResult{Chunks: []domain.ScoredChunk{
		{Chunk: domain.Chunk{ChunkID: "d1_page2_chunk0", Filename: "A.pdf", PageNumber: 2, Text: "D-101 900mm"}, Score: 0.8},
	}}}
	s, err := NewServer(Ports{Search: search})
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}

	res, err := s.handleSearch(context.Background(), callRequest("search_documents", map[string]any{
		"query":   "door widths",
		"k":       float64(3),
		"filters": map[string]any{"document": "A.pdf"},
	}))
	if err != nil {
		t.Fatalf("handleSearch() error = %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, res))
	}
	if search.gotK != 3 || search.gotFilt.Document != "A.pdf" {
		t.Fatalf("unexpected search args k=%d filter=%+v", search.gotK, search.gotFilt)
	}

	var out searchOutput
	if err := json.Unmarshal([]byte(resultText(t, res)), &out); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if out.Count != 1 || out.Results[0].ChunkID != "d1_page2_chunk0" {
		t.Fatalf("unexpected output %+v", out)
	}
}

func TestHandleSearchOmittedKUsesDefault(t *testing.T) {
	search := &searchStub{}
	s, err := NewServer(Ports{Search: search, DefaultK: 8})
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	if _, err := s.handleSearch(context.Background(), callRequest("search_documents", map[string]any{"query": "doors"})); err != nil {
		t.Fatalf("handleSearch() error = %v", err)
	}
	if search.gotK != 8 {
		t.Fatalf("expected default k=8, got %d", search.gotK)
	}

	s, _ = NewServer(Ports{Search: search})
	if _, err := s.handleSearch(context.Background(), callRequest("search_documents", map[string]any{"query": "doors"})); err != nil {
		t.Fatalf("handleSearch() error = %v", err)
	}
	if search.gotK != domain.DefaultTopK {
		t.Fatalf("expected k=%d, got %d", domain.DefaultTopK, search.gotK)
	}
}

func TestHandleSearchMissingQueryIsToolError(t *testing.T) {
	s, _ := NewServer(Ports{Search: &searchStub{}})
	res, err := s.handleSearch(context.Background(), callRequest("search_documents", map[string]any{}))
	if err != nil {
		t.Fatalf("handleSearch() error = %v", err)
	}
	if !res.IsError {
		t.Fatalf("expected tool error result")
	}
}

func TestHandleSearchInvalidFilterIsToolError(t *testing.T) {
	s, _ := NewServer(Ports{Search: &searchStub{}})
	res, err := s.handleSearch(context.Background(), callRequest("search_documents", map[string]any{
		"query":   "x",
		"filters": map[string]any{"min_confidence": 2.0},
	}))
	if err != nil {
		t.Fatalf("handleSearch() error = %v", err)
	}
	if !res.IsError {
		t.Fatalf("expected tool error result")
	}
}

func TestHandleSearchBackendFailureIsProtocolError(t *testing.T) {
	s, _ := NewServer(Ports{Search: &searchStub{err: errors.New("index corrupted")}})
	if _, err := s.handleSearch(context.Background(), callRequest("search_documents", map[string]any{"query": "x"})); err == nil {
		t.Fatalf("expected protocol error")
	}
}

func TestHandleAskForwardsQuestion(t *testing.T) {
	query := &queryStub{}
	s, _ := NewServer(Ports{Search: &searchStub{}, Query: query})
	res, err := s.handleAsk(context.Background(), callRequest("ask_question", map[string]any{
		"question":        "What is the stair fire rating?",
		"k":               float64(4),
		"conversation_id": "conv-7",
	}))
	if err != nil {
		t.Fatalf("handleAsk() error = %v", err)
	}
	if query.gotReq.Question != "What is the stair fire rating?" || query.gotReq.Limit != 4 || query.gotReq.ConversationID != "conv-7" {
		t.Fatalf("unexpected request %+v", query.gotReq)
	}
	var answer domain.Answer
	if err := json.Unmarshal([]byte(resultText(t, res)), &answer); err != nil {
		t.Fatalf("decode answer: %v", err)
	}
	if answer.Confidence != domain.ConfidenceMedium {
		t.Fatalf("unexpected answer %+v", answer)
	}
}

func TestHandleConflictsReturnsEmptyList(t *testing.T) {
	s, _ := NewServer(Ports{Search: &searchStub{}, Conflicts: conflictStub{}})
	res, err := s.handleConflicts(context.Background(), callRequest("detect_conflicts", nil))
	if err != nil {
		t.Fatalf("handleConflicts() error = %v", err)
	}
	var report map[string]any
	if err := json.Unmarshal([]byte(resultText(t, res)), &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if list, ok := report["conflicts"].([]any); !ok || len(list) != 0 {
		t.Fatalf("expected empty conflicts array, got %#v", report["conflicts"])
	}
}

func TestHandleExtractResolvesAlias(t *testing.T) {
	extract := &extractStub{}
	s, _ := NewServer(Ports{Search: &searchStub{}, Extract: extract})
	res, err := s.handleExtract(context.Background(), callRequest("extract_entities", map[string]any{"entity_type": "room_schedule"}))
	if err != nil {
		t.Fatalf("handleExtract() error = %v", err)
	}
	if res.IsError || extract.got != domain.EntityRoomSummary {
		t.Fatalf("unexpected result error=%v got=%q", res.IsError, extract.got)
	}

	res, err = s.handleExtract(context.Background(), callRequest("extract_entities", map[string]any{"entity_type": "windows"}))
	if err != nil {
		t.Fatalf("handleExtract() error = %v", err)
	}
	if !res.IsError {
		t.Fatalf("expected tool error for unknown entity type")
	}
}
