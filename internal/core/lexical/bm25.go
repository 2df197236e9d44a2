package lexical

import "math"

const (
	DefaultK1 = 1.2
	DefaultB  = 0.75
)

type BM25 struct {
	K1 float64
	B  float64
}

func NewBM25(k1, b float64) BM25 {
	if k1 <= 0 {
		k1 = DefaultK1
	}
	if b < 0 || b > 1 {
		b = DefaultB
	}
	return BM25{K1: k1, B: b}
}

// Score rates every document in docs against the query terms using corpus
// statistics computed over docs alone. The result is index-aligned with docs.
func (m BM25) Score(queryTerms []string, docs []map[string]int) []float64 {
	scores := make([]float64, len(docs))
	if len(docs) == 0 || len(queryTerms) == 0 {
		return scores
	}

	lengths := make([]float64, len(docs))
	var total float64
	for i, tf := range docs {
		lengths[i] = float64(DocumentLength(tf))
		total += lengths[i]
	}
	avgLen := total / float64(len(docs))
	if avgLen == 0 {
		return scores
	}

	unique := make(map[string]struct{}, len(queryTerms))
	for _, term := range queryTerms {
		unique[term] = struct{}{}
	}

	n := float64(len(docs))
	for term := range unique {
		df := 0
		for _, tf := range docs {
			if tf[term] > 0 {
				df++
			}
		}
		if df == 0 {
			continue
		}
		idf := math.Log(1 + (n-float64(df)+0.5)/(float64(df)+0.5))
		for i, tf := range docs {
			freq := float64(tf[term])
			if freq == 0 {
				continue
			}
			norm := freq + m.K1*(1-m.B+m.B*lengths[i]/avgLen)
			scores[i] += idf * (freq * (m.K1 + 1)) / norm
		}
	}
	return scores
}

// MinMax scales values into [0,1]. When every value is equal, zeros included,
// each maps to 1.
func MinMax(values []float64) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	span := hi - lo
	for i, v := range values {
		if span <= 0 {
			out[i] = 1
			continue
		}
		out[i] = (v - lo) / span
	}
	return out
}
