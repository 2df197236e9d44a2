package usecase

import (
	"sort"

	"github.com/kirillkom/project-brain/internal/core/domain"
)

const (
	confidenceTopN       = 3
	highConfidenceMean   = 0.7
	mediumConfidenceMean = 0.5
)

// ScoreConfidence buckets the mean of the three best relevance scores.
// An empty score set yields ConfidenceNoData.
func ScoreConfidence(scores []float64) domain.Confidence {
	if len(scores) == 0 {
		return domain.ConfidenceNoData
	}

	top := make([]float64, len(scores))
	copy(top, scores)
	sort.Sort(sort.Reverse(sort.Float64Slice(top)))
	if len(top) > confidenceTopN {
		top = top[:confidenceTopN]
	}

	var sum float64
	for _, s := range top {
		sum += s
	}
	mean := sum / float64(len(top))

	switch {
	case mean > highConfidenceMean:
		return domain.ConfidenceHigh
	case mean > mediumConfidenceMean:
		return domain.ConfidenceMedium
	default:
		return domain.ConfidenceLow
	}
}
