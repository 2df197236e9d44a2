package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/kirillkom/project-brain/internal/core/domain"
)

const (
	recentQueriesLimit  = 50
	popularQueriesLimit = 10
)

type QueryHistoryRepository struct {
	db *sql.DB
}

func NewQueryHistoryRepository(db *sql.DB) *QueryHistoryRepository {
	return &QueryHistoryRepository{db: db}
}

func (r *QueryHistoryRepository) Record(ctx context.Context, entry domain.QueryHistoryEntry) error {
	filtersJSON, err := json.Marshal(entry.Filter)
	if err != nil {
		return fmt.Errorf("marshal filters: %w", err)
	}
	files := entry.SourceFiles
	if files == nil {
		files = []string{}
	}
	filesJSON, err := json.Marshal(files)
	if err != nil {
		return fmt.Errorf("marshal source files: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO query_history (id, query, filters, sources_count, source_files, confidence, cached, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
`, entry.ID, entry.Query, filtersJSON, entry.SourcesCount, filesJSON, string(entry.Confidence), entry.Cached, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert query history: %w", err)
	}
	return nil
}

func (r *QueryHistoryRepository) Analytics(ctx context.Context) (*domain.Analytics, error) {
	out := &domain.Analytics{
		RecentQueries:  []domain.QueryHistoryEntry{},
		PopularQueries: []domain.QueryCount{},
		DocumentUsage:  []domain.DocumentUsage{},
	}

	row := r.db.QueryRowContext(ctx, `
SELECT COUNT(*), COALESCE(AVG(sources_count), 0)
FROM query_history
`)
	if err := row.Scan(&out.TotalQueries, &out.AvgSourcesPerQuery); err != nil {
		return nil, fmt.Errorf("scan query totals: %w", err)
	}
	if out.TotalQueries == 0 {
		return out, nil
	}

	recent, err := r.recent(ctx)
	if err != nil {
		return nil, err
	}
	out.RecentQueries = recent

	popular, err := r.popular(ctx)
	if err != nil {
		return nil, err
	}
	out.PopularQueries = popular

	usage, err := r.documentUsage(ctx)
	if err != nil {
		return nil, err
	}
	out.DocumentUsage = usage
	return out, nil
}

func (r *QueryHistoryRepository) recent(ctx context.Context) ([]domain.QueryHistoryEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, query, filters, sources_count, confidence, cached, created_at
FROM query_history
ORDER BY created_at DESC
LIMIT $1
`, recentQueriesLimit)
	if err != nil {
		return nil, fmt.Errorf("list recent queries: %w", err)
	}
	defer rows.Close()

	out := make([]domain.QueryHistoryEntry, 0)
	for rows.Next() {
		var e domain.QueryHistoryEntry
		var filtersRaw []byte
		var confidence string
		if err := rows.Scan(&e.ID, &e.Query, &filtersRaw, &e.SourcesCount, &confidence, &e.Cached, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan recent query: %w", err)
		}
		if len(filtersRaw) > 0 {
			if err := json.Unmarshal(filtersRaw, &e.Filter); err != nil {
				return nil, fmt.Errorf("unmarshal filters: %w", err)
			}
		}
		e.Confidence = domain.Confidence(confidence)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recent queries: %w", err)
	}
	return out, nil
}

func (r *QueryHistoryRepository) popular(ctx context.Context) ([]domain.QueryCount, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT query, COUNT(*) AS n
FROM query_history
GROUP BY query
ORDER BY n DESC, query ASC
LIMIT $1
`, popularQueriesLimit)
	if err != nil {
		return nil, fmt.Errorf("list popular queries: %w", err)
	}
	defer rows.Close()

	out := make([]domain.QueryCount, 0)
	for rows.Next() {
		var qc domain.QueryCount
		if err := rows.Scan(&qc.Query, &qc.Count); err != nil {
			return nil, fmt.Errorf("scan popular query: %w", err)
		}
		out = append(out, qc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate popular queries: %w", err)
	}
	return out, nil
}

func (r *QueryHistoryRepository) documentUsage(ctx context.Context) ([]domain.DocumentUsage, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT f.file, COUNT(*) AS n
FROM query_history h
CROSS JOIN LATERAL jsonb_array_elements_text(h.source_files) AS f(file)
GROUP BY f.file
ORDER BY n DESC, f.file ASC
`)
	if err != nil {
		return nil, fmt.Errorf("list document usage: %w", err)
	}
	defer rows.Close()

	out := make([]domain.DocumentUsage, 0)
	for rows.Next() {
		var u domain.DocumentUsage
		if err := rows.Scan(&u.Document, &u.Count); err != nil {
			return nil, fmt.Errorf("scan document usage: %w", err)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate document usage: %w", err)
	}
	return out, nil
}
