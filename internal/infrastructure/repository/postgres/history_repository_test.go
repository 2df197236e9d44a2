package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/kirillkom/project-brain/internal/core/domain"
)

func TestRecordQueryHistory(t *testing.T) {
	db, mock, done := newMockDB(t)
	defer done()
	repo := NewQueryHistoryRepository(db)

	page := 5
	entry := domain.QueryHistoryEntry{
		ID:           "q-1",
		Query:        "fire rating",
		Filter:       domain.SearchFilter{PageMin: &page},
		SourcesCount: 2,
		SourceFiles:  []string{"A.pdf", "B.pdf"},
		Confidence:   domain.ConfidenceHigh,
		CreatedAt:    time.Now().UTC(),
	}

	mock.ExpectExec("INSERT INTO query_history").
		WithArgs("q-1", "fire rating", []byte(`{"page_min":5}`), 2, []byte(`["A.pdf","B.pdf"]`), "high", false, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Record(context.Background(), entry); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestAnalyticsEmptyHistory(t *testing.T) {
	db, mock, done := newMockDB(t)
	defer done()
	repo := NewQueryHistoryRepository(db)

	mock.ExpectQuery(`SELECT COUNT\(\*\), COALESCE\(AVG\(sources_count\), 0\)`).
		WillReturnRows(sqlmock.NewRows([]string{"count", "avg"}).AddRow(0, 0.0))

	got, err := repo.Analytics(context.Background())
	if err != nil {
		t.Fatalf("Analytics() error = %v", err)
	}
	if got.TotalQueries != 0 || got.RecentQueries == nil || got.DocumentUsage == nil {
		t.Fatalf("unexpected analytics %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestAnalyticsAggregates(t *testing.T) {
	db, mock, done := newMockDB(t)
	defer done()
	repo := NewQueryHistoryRepository(db)

	now := time.Now().UTC()
	mock.ExpectQuery(`SELECT COUNT\(\*\), COALESCE\(AVG\(sources_count\), 0\)`).
		WillReturnRows(sqlmock.NewRows([]string{"count", "avg"}).AddRow(3, 1.5))
	mock.ExpectQuery("SELECT id, query, filters").
		WithArgs(recentQueriesLimit).
		WillReturnRows(sqlmock.NewRows([]string{"id", "query", "filters", "sources_count", "confidence", "cached", "created_at"}).
			AddRow("q-3", "door widths", []byte(`{"document":"A.pdf"}`), 1, "medium", true, now).
			AddRow("q-2", "fire rating", []byte(`{}`), 2, "high", false, now))
	mock.ExpectQuery("SELECT query, COUNT").
		WithArgs(popularQueriesLimit).
		WillReturnRows(sqlmock.NewRows([]string{"query", "n"}).AddRow("fire rating", 2).AddRow("door widths", 1))
	mock.ExpectQuery("jsonb_array_elements_text").
		WillReturnRows(sqlmock.NewRows([]string{"file", "n"}).AddRow("A.pdf", 3).AddRow("B.pdf", 1))

	got, err := repo.Analytics(context.Background())
	if err != nil {
		t.Fatalf("Analytics() error = %v", err)
	}
	if got.TotalQueries != 3 || got.AvgSourcesPerQuery != 1.5 {
		t.Fatalf("unexpected totals %+v", got)
	}
	if len(got.RecentQueries) != 2 || got.RecentQueries[0].Filter.Document != "A.pdf" || !got.RecentQueries[0].Cached {
		t.Fatalf("unexpected recent queries %+v", got.RecentQueries)
	}
	if len(got.PopularQueries) != 2 || got.PopularQueries[0].Count != 2 {
		t.Fatalf("unexpected popular queries %+v", got.PopularQueries)
	}
	if len(got.DocumentUsage) != 2 || got.DocumentUsage[0].Document != "A.pdf" {
		t.Fatalf("unexpected document usage %+v", got.DocumentUsage)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
