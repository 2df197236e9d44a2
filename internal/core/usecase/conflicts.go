package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/kirillkom/project-brain/internal/core/domain"
	"github.com/kirillkom/project-brain/internal/core/ports"
)

// ConflictDetector flags topics whose governing values disagree across documents.
type ConflictDetector struct {
	rules atomic.Pointer[[]domain.TopicRule]
}

func NewConflictDetector(rules []domain.TopicRule) *ConflictDetector {
	d := &ConflictDetector{}
	d.SetRules(rules)
	return d
}

// SetRules replaces the topic table. In-flight scans keep the table they started with.
func (d *ConflictDetector) SetRules(rules []domain.TopicRule) {
	cp := make([]domain.TopicRule, len(rules))
	copy(cp, rules)
	d.rules.Store(&cp)
}

func (d *ConflictDetector) Rules() []domain.TopicRule {
	return *d.rules.Load()
}

func (d *ConflictDetector) Detect(chunks []domain.Chunk) []domain.ConflictRecord {
	rules := d.Rules()
	if len(chunks) == 0 || len(rules) == 0 {
		return []domain.ConflictRecord{}
	}

	sorted := make([]domain.Chunk, len(chunks))
	copy(sorted, chunks)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ChunkID < sorted[j].ChunkID })
	lowered := make([]string, len(sorted))
	for i, c := range sorted {
		lowered[i] = strings.ToLower(c.Text)
	}

	records := make([]domain.ConflictRecord, 0)
	for _, rule := range rules {
		group := make([]domain.Chunk, 0)
		keywords := lowerKeywords(rule.Keywords)
		for i, c := range sorted {
			if matchesAny(lowered[i], keywords) {
				group = append(group, c)
			}
		}
		if countDocuments(group) < 2 {
			continue
		}
		if rec, ok := detectTopic(rule, keywords, group); ok {
			records = append(records, rec)
		}
	}
	return records
}

func detectTopic(rule domain.TopicRule, keywords []string, group []domain.Chunk) (rec domain.ConflictRecord, found bool) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("conflict_topic_failed", "topic", rule.Topic, "panic", fmt.Sprint(r))
			rec, found = domain.ConflictRecord{}, false
		}
	}()
	if rule.Extract == nil {
		slog.Warn("conflict_topic_skipped", "topic", rule.Topic, "reason", "no value extractor")
		return domain.ConflictRecord{}, false
	}

	statements := make([]domain.ConflictStatement, 0, len(group))
	valued := make([]domain.Chunk, 0, len(group))
	values := map[string]struct{}{}
	for _, c := range group {
		excerpt := keywordExcerpt(c.Text, keywords)
		value, ok := rule.Extract(excerpt)
		if !ok {
			value, ok = rule.Extract(c.Text)
		}
		if !ok {
			continue
		}
		normalized := NormalizeConflictValue(value)
		if normalized == "" {
			continue
		}
		values[normalized] = struct{}{}
		valued = append(valued, c)
		statements = append(statements, domain.ConflictStatement{
			ChunkID:    c.ChunkID,
			DocumentID: c.DocumentID,
			Excerpt:    excerpt,
			Value:      normalized,
		})
	}

	if len(values) < 2 || countDocuments(valued) < 2 {
		return domain.ConflictRecord{}, false
	}
	return domain.ConflictRecord{
		Topic:      rule.Topic,
		Statements: statements,
		Sources:    uniqueSourceRefs(valued),
	}, true
}

// NormalizeConflictValue lower-cases v, collapses whitespace and rewrites
// numeric tokens canonically so "1.0" and "1" compare equal.
func NormalizeConflictValue(v string) string {
	fields := strings.Fields(strings.ToLower(v))
	for i, f := range fields {
		if n, err := strconv.ParseFloat(f, 64); err == nil {
			fields[i] = strconv.FormatFloat(n, 'f', -1, 64)
		}
	}
	return strings.Join(fields, " ")
}

func lowerKeywords(keywords []string) []string {
	out := make([]string, 0, len(keywords))
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k != "" {
			out = append(out, k)
		}
	}
	return out
}

func matchesAny(loweredText string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(loweredText, k) {
			return true
		}
	}
	return false
}

func countDocuments(chunks []domain.Chunk) int {
	docs := make(map[string]struct{}, len(chunks))
	for _, c := range chunks {
		docs[c.DocumentID] = struct{}{}
	}
	return len(docs)
}

func uniqueSourceRefs(chunks []domain.Chunk) []domain.SourceRef {
	seen := make(map[domain.SourceRef]struct{}, len(chunks))
	out := make([]domain.SourceRef, 0, len(chunks))
	for _, c := range chunks {
		ref := domain.SourceRef{Filename: c.Filename, PageNumber: c.PageNumber}
		if _, ok := seen[ref]; ok {
			continue
		}
		seen[ref] = struct{}{}
		out = append(out, ref)
	}
	return out
}

// keywordExcerpt returns the sentence holding the first keyword occurrence.
func keywordExcerpt(text string, keywords []string) string {
	lowered := strings.ToLower(text)
	pos := -1
	for _, k := range keywords {
		if i := strings.Index(lowered, k); i >= 0 && (pos < 0 || i < pos) {
			pos = i
		}
	}
	if pos < 0 {
		return strings.TrimSpace(text)
	}

	start := 0
	for i := pos - 1; i >= 0; i-- {
		if isSentenceBreak(text, i) {
			start = i + 1
			break
		}
	}
	end := len(text)
	for i := pos; i < len(text); i++ {
		if isSentenceBreak(text, i) {
			end = i + 1
			break
		}
	}
	return strings.Join(strings.Fields(text[start:end]), " ")
}

func isSentenceBreak(text string, i int) bool {
	switch text[i] {
	case '\n':
		return true
	case '.', '!', '?', ';':
		return i+1 == len(text) || text[i+1] == ' ' || text[i+1] == '\n' || text[i+1] == '\t'
	}
	return false
}

// ConflictUseCase runs conflict detection over one snapshot of the index.
type ConflictUseCase struct {
	index    ports.ChunkIndex
	detector *ConflictDetector
}

func NewConflictUseCase(index ports.ChunkIndex, detector *ConflictDetector) *ConflictUseCase {
	return &ConflictUseCase{index: index, detector: detector}
}

func (uc *ConflictUseCase) DetectConflicts(ctx context.Context) (*domain.ConflictReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	chunks := uc.index.All()
	conflicts := uc.detector.Detect(chunks)
	return &domain.ConflictReport{
		ConflictsFound: len(conflicts),
		Conflicts:      conflicts,
		Analysis:       summarizeConflicts(conflicts, len(chunks)),
	}, nil
}

func summarizeConflicts(conflicts []domain.ConflictRecord, scanned int) string {
	if scanned == 0 {
		return "No documents indexed yet."
	}
	if len(conflicts) == 0 {
		return fmt.Sprintf("No conflicts detected across %d indexed chunks.", scanned)
	}
	parts := make([]string, 0, len(conflicts))
	for _, c := range conflicts {
		values := make([]string, 0, len(c.Statements))
		seen := map[string]struct{}{}
		for _, s := range c.Statements {
			if _, ok := seen[s.Value]; ok {
				continue
			}
			seen[s.Value] = struct{}{}
			values = append(values, s.Value)
		}
		parts = append(parts, fmt.Sprintf("%s (%s)", c.Topic, strings.Join(values, " vs ")))
	}
	return fmt.Sprintf("Found %d potential conflicts: %s.", len(conflicts), strings.Join(parts, "; "))
}
