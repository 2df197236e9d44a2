package mcpadapter

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/kirillkom/project-brain/internal/core/domain"
)

type searchHit struct {
	ChunkID        string  `json:"chunk_id"`
	Filename       string  `json:"filename"`
	PageNumber     int     `json:"page_number"`
	Text           string  `json:"text"`
	RelevanceScore float64 `json:"relevance_score"`
}

type searchOutput struct {
	Query   string      `json:"query"`
	Count   int         `json:"count"`
	Results []searchHit `json:"results"`
}

func (s *Server) registerTools() {
	s.mcp.AddTool(mcp.NewTool("search_documents",
		mcp.WithDescription("Hybrid semantic and keyword search over indexed construction documents."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search text")),
		mcp.WithNumber("k", mcp.Description("Maximum number of chunks to return (default 5)")),
		mcp.WithObject("filters", mcp.Description("Optional document, page_min, page_max and min_confidence filters")),
	), s.handleSearch)

	if s.ports.Query != nil {
		s.mcp.AddTool(mcp.NewTool("ask_question",
			mcp.WithDescription("Answer a question from the indexed documents with cited sources and a confidence level."),
			mcp.WithString("question", mcp.Required(), mcp.Description("Question to answer")),
			mcp.WithNumber("k", mcp.Description("Number of chunks used as context")),
			mcp.WithString("conversation_id", mcp.Description("Continue an earlier conversation")),
			mcp.WithObject("filters", mcp.Description("Optional retrieval filters")),
		), s.handleAsk)
	}

	if s.ports.Conflicts != nil {
		s.mcp.AddTool(mcp.NewTool("detect_conflicts",
			mcp.WithDescription("Find topics where different documents state different values."),
		), s.handleConflicts)
	}

	if s.ports.Extract != nil {
		s.mcp.AddTool(mcp.NewTool("extract_entities",
			mcp.WithDescription("Extract a door schedule, room summary or equipment list from the documents."),
			mcp.WithString("entity_type",
				mcp.Required(),
				mcp.Enum(string(domain.EntityDoorSchedule), string(domain.EntityRoomSummary), string(domain.EntityEquipmentList)),
			),
		), s.handleExtract)
	}
}

func (s *Server) handleSearch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	filter, err := filterArgument(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.ports.Search.Search(ctx, query, req.GetInt("k", s.ports.DefaultK), filter)
	if err != nil {
		return toolError(err)
	}

	out := searchOutput{Query: query, Count: len(result.Chunks), Results: make([]searchHit, 0, len(result.Chunks))}
	for _, sc := range result.Chunks {
		out.Results = append(out.Results, searchHit{
			ChunkID:        sc.Chunk.ChunkID,
			Filename:       sc.Chunk.Filename,
			PageNumber:     sc.Chunk.PageNumber,
			Text:           sc.Chunk.Text,
			RelevanceScore: sc.Score,
		})
	}
	return jsonResult(out)
}

func (s *Server) handleAsk(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := req.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	filter, err := filterArgument(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	answer, err := s.ports.Query.Answer(ctx, domain.QueryRequest{
		Question:       question,
		ConversationID: req.GetString("conversation_id", ""),
		Limit:          req.GetInt("k", s.ports.DefaultK),
		Filter:         filter,
	})
	if err != nil {
		return toolError(err)
	}
	return jsonResult(answer)
}

func (s *Server) handleConflicts(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	report, err := s.ports.Conflicts.DetectConflicts(ctx)
	if err != nil {
		return toolError(err)
	}
	if report.Conflicts == nil {
		report.Conflicts = []domain.ConflictRecord{}
	}
	return jsonResult(report)
}

func (s *Server) handleExtract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("entity_type")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	entityType, err := domain.ParseEntityType(raw)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.ports.Extract.Extract(ctx, entityType)
	if err != nil {
		return toolError(err)
	}
	if result.Records == nil {
		result.Records = []domain.StructuredRecord{}
	}
	return jsonResult(result)
}

func filterArgument(req mcp.CallToolRequest) (domain.SearchFilter, error) {
	raw, ok := req.GetArguments()["filters"]
	if !ok || raw == nil {
		return domain.SearchFilter{}, nil
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return domain.SearchFilter{}, fmt.Errorf("filters must be an object")
	}
	return domain.ParseSearchFilter(m)
}

// toolError reports caller mistakes as tool results and everything else as
// protocol errors.
func toolError(err error) (*mcp.CallToolResult, error) {
	if domain.IsKind(err, domain.ErrInvalidInput) || domain.IsKind(err, domain.ErrTemporary) {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return nil, err
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode tool result: %w", err)
	}
	return mcp.NewToolResultText(string(raw)), nil
}
