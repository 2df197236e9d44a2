package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/kirillkom/project-brain/internal/core/domain"
	"github.com/kirillkom/project-brain/internal/core/ports"
)

const (
	NoSourcesAnswer = "I couldn't find any relevant information in the documents. Please make sure documents have been uploaded."
	previewRunes    = 200

	DefaultHistoryTurns   = 10
	DefaultComputeTimeout = 2 * time.Minute
)

var extractionIntents = []struct {
	phrase string
	entity domain.EntityType
}{
	{"generate a door schedule", domain.EntityDoorSchedule},
	{"door schedule", domain.EntityDoorSchedule},
	{"room summary", domain.EntityRoomSummary},
	{"list all rooms", domain.EntityRoomSummary},
	{"equipment list", domain.EntityEquipmentList},
	{"mep equipment", domain.EntityEquipmentList},
}

type QueryOptions struct {
	DefaultK int
	CacheTTL time.Duration
	// HistoryTurns caps the earlier turns handed to the generator.
	HistoryTurns int
	// ComputeTimeout bounds a cache miss. The computation is detached from
	// the caller so one cancelled request cannot fail the others sharing it.
	ComputeTimeout time.Duration
}

type QueryUseCase struct {
	search         ports.SearchService
	generator      ports.AnswerGenerator
	extractor      ports.ExtractionService
	cache          ports.AnswerCache
	history        ports.QueryHistoryStore
	conversations  ports.ConversationStore
	defaultK       int
	cacheTTL       time.Duration
	historyTurns   int
	computeTimeout time.Duration
}

// NewQueryUseCase wires the answer flow. extractor, history and
// conversations may be nil.
func NewQueryUseCase(
	search ports.SearchService,
	generator ports.AnswerGenerator,
	extractor ports.ExtractionService,
	cache ports.AnswerCache,
	history ports.QueryHistoryStore,
	conversations ports.ConversationStore,
	opts QueryOptions,
) *QueryUseCase {
	defaultK := opts.DefaultK
	if defaultK <= 0 {
		defaultK = DefaultTopK
	}
	historyTurns := opts.HistoryTurns
	if historyTurns <= 0 {
		historyTurns = DefaultHistoryTurns
	}
	computeTimeout := opts.ComputeTimeout
	if computeTimeout <= 0 {
		computeTimeout = DefaultComputeTimeout
	}
	return &QueryUseCase{
		search:         search,
		generator:      generator,
		extractor:      extractor,
		cache:          cache,
		history:        history,
		conversations:  conversations,
		defaultK:       defaultK,
		cacheTTL:       opts.CacheTTL,
		historyTurns:   historyTurns,
		computeTimeout: computeTimeout,
	}
}

func (uc *QueryUseCase) Answer(ctx context.Context, req domain.QueryRequest) (*domain.Answer, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "answer", errors.New("message is required"))
	}
	if req.Limit < 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "answer", fmt.Errorf("k must not be negative, got %d", req.Limit))
	}
	k := req.Limit
	if k == 0 {
		k = uc.defaultK
	}

	var prior []domain.ConversationTurn
	conversationID := strings.TrimSpace(req.ConversationID)
	if conversationID == "" {
		conversationID = uuid.NewString()
	} else {
		prior = uc.priorTurns(ctx, conversationID)
	}

	var (
		answer *domain.Answer
		cached bool
		err    error
	)
	if len(prior) == 0 {
		answer, cached, err = uc.cache.GetOrCompute(question, req.Filter, k, uc.cacheTTL, func() (*domain.Answer, error) {
			computeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), uc.computeTimeout)
			defer cancel()
			return uc.compute(computeCtx, question, k, req.Filter, nil)
		})
	} else {
		// Follow-ups depend on the earlier turns, so they bypass the cache.
		answer, err = uc.compute(ctx, question, k, req.Filter, prior)
	}
	if err != nil {
		return nil, err
	}

	out := *answer
	out.ConversationID = conversationID
	out.Cached = cached
	uc.recordHistory(ctx, question, req.Filter, &out)
	uc.appendTurns(ctx, conversationID, question, out.Text)
	return &out, nil
}

func (uc *QueryUseCase) CacheStats() domain.CacheStats {
	return uc.cache.Stats()
}

func (uc *QueryUseCase) ClearCache() {
	uc.cache.Clear()
}

func (uc *QueryUseCase) compute(
	ctx context.Context,
	question string,
	k int,
	filter domain.SearchFilter,
	prior []domain.ConversationTurn,
) (*domain.Answer, error) {
	res, err := uc.search.Search(ctx, question, k, filter)
	if err != nil {
		return nil, err
	}
	if len(res.Chunks) == 0 {
		return &domain.Answer{
			Text:        NoSourcesAnswer,
			Sources:     []domain.Source{},
			Confidence:  domain.ConfidenceNoData,
			ChunksFound: 0,
		}, nil
	}

	answer := &domain.Answer{
		Sources:     formatSources(res.Chunks),
		Confidence:  ScoreConfidence(res.Scores()),
		ChunksFound: len(res.Chunks),
	}

	if entity, ok := extractionIntent(question); ok && uc.extractor != nil {
		result, err := uc.extractor.Extract(ctx, entity)
		if err != nil {
			return nil, err
		}
		answer.Text = formatExtraction(result)
		answer.StructuredData = result.Records
		return answer, nil
	}

	text, err := uc.generator.GenerateAnswer(ctx, question, prior, res.Chunks)
	if err != nil {
		return nil, domain.WrapError(domain.ErrComputeFailure, "generate answer", err)
	}
	answer.Text = text
	return answer, nil
}

func (uc *QueryUseCase) recordHistory(ctx context.Context, question string, filter domain.SearchFilter, answer *domain.Answer) {
	if uc.history == nil {
		return
	}
	entry := domain.QueryHistoryEntry{
		ID:           uuid.NewString(),
		Query:        question,
		Filter:       filter,
		SourcesCount: len(answer.Sources),
		SourceFiles:  sourceFiles(answer.Sources),
		Confidence:   answer.Confidence,
		Cached:       answer.Cached,
		CreatedAt:    time.Now().UTC(),
	}
	if err := uc.history.Record(ctx, entry); err != nil {
		slog.Warn("query_history_record_failed", "error", err.Error())
	}
}

func (uc *QueryUseCase) priorTurns(ctx context.Context, conversationID string) []domain.ConversationTurn {
	if uc.conversations == nil {
		return nil
	}
	turns, err := uc.conversations.RecentTurns(ctx, conversationID, uc.historyTurns)
	if err != nil {
		slog.Warn("conversation_load_failed", "conversation_id", conversationID, "error", err.Error())
		return nil
	}
	return turns
}

func (uc *QueryUseCase) appendTurns(ctx context.Context, conversationID, question, answer string) {
	if uc.conversations == nil {
		return
	}
	now := time.Now().UTC()
	err := uc.conversations.AppendTurns(ctx, conversationID,
		domain.ConversationTurn{Role: domain.RoleUser, Content: question, CreatedAt: now},
		domain.ConversationTurn{Role: domain.RoleAssistant, Content: answer, CreatedAt: now},
	)
	if err != nil {
		slog.Warn("conversation_append_failed", "conversation_id", conversationID, "error", err.Error())
	}
}

func extractionIntent(question string) (domain.EntityType, bool) {
	lowered := strings.ToLower(question)
	for _, intent := range extractionIntents {
		if strings.Contains(lowered, intent.phrase) {
			return intent.entity, true
		}
	}
	return "", false
}

// formatSources keeps the first chunk per (filename, page) in rank order.
func formatSources(chunks []domain.ScoredChunk) []domain.Source {
	seen := make(map[domain.SourceRef]struct{}, len(chunks))
	out := make([]domain.Source, 0, len(chunks))
	for _, c := range chunks {
		ref := domain.SourceRef{Filename: c.Chunk.Filename, PageNumber: c.Chunk.PageNumber}
		if _, ok := seen[ref]; ok {
			continue
		}
		seen[ref] = struct{}{}
		out = append(out, domain.Source{
			Filename:       c.Chunk.Filename,
			PageNumber:     c.Chunk.PageNumber,
			RelevanceScore: c.Score,
			Preview:        preview(c.Chunk.Text),
		})
	}
	return out
}

func preview(text string) string {
	if utf8.RuneCountInString(text) <= previewRunes {
		return text
	}
	runes := []rune(text)
	return string(runes[:previewRunes]) + "..."
}

func sourceFiles(sources []domain.Source) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(sources))
	for _, s := range sources {
		if _, ok := seen[s.Filename]; ok {
			continue
		}
		seen[s.Filename] = struct{}{}
		out = append(out, s.Filename)
	}
	return out
}

func formatExtraction(result *domain.ExtractionResult) string {
	if len(result.Records) == 0 {
		return fmt.Sprintf("No %s data found in the documents.", strings.ReplaceAll(string(result.EntityType), "_", " "))
	}

	var b strings.Builder
	switch result.EntityType {
	case domain.EntityDoorSchedule:
		fmt.Fprintf(&b, "I found %d doors in the documents:\n\n", len(result.Records))
	case domain.EntityRoomSummary:
		fmt.Fprintf(&b, "I found %d rooms in the documents:\n\n", len(result.Records))
	default:
		fmt.Fprintf(&b, "I found %d equipment items:\n\n", len(result.Records))
	}
	for _, rec := range result.Records {
		switch r := rec.(type) {
		case domain.DoorEntry:
			fmt.Fprintf(&b, "• %s: %smm × %smm, Fire Rating: %s, Material: %s\n",
				r.Mark, formatNumber(r.WidthMM), formatNumber(r.HeightMM), orNA(r.FireRating), orNA(r.Material))
		case domain.RoomEntry:
			fmt.Fprintf(&b, "• %s: Area: %sm², Finish: %s\n", r.Name, formatNumber(r.AreaSqm), orNA(r.FloorFinish))
		case domain.EquipmentEntry:
			fmt.Fprintf(&b, "• %s: %s\n", r.Type, r.Description)
		}
	}
	if result.Dropped > 0 {
		fmt.Fprintf(&b, "\n%d incomplete records were omitted.\n", result.Dropped)
	}
	return b.String()
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
