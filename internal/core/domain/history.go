package domain

import "time"

type QueryHistoryEntry struct {
	ID           string       `json:"id"`
	Query        string       `json:"query"`
	Filter       SearchFilter `json:"filters"`
	SourcesCount int          `json:"sources_count"`
	SourceFiles  []string     `json:"-"`
	Confidence   Confidence   `json:"confidence"`
	Cached       bool         `json:"cached"`
	CreatedAt    time.Time    `json:"timestamp"`
}

type QueryCount struct {
	Query string `json:"query"`
	Count int    `json:"count"`
}

type DocumentUsage struct {
	Document string `json:"document"`
	Count    int    `json:"count"`
}

type Analytics struct {
	TotalQueries       int                 `json:"total_queries"`
	RecentQueries      []QueryHistoryEntry `json:"recent_queries"`
	PopularQueries     []QueryCount        `json:"popular_queries"`
	DocumentUsage      []DocumentUsage     `json:"document_usage"`
	AvgSourcesPerQuery float64             `json:"avg_sources_per_query"`
}
