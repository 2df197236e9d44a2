// Package lexical holds the term statistics behind sparse retrieval:
// tokenization, term frequencies and BM25 scoring.
package lexical

import (
	"strings"
	"unicode"
)

// Tokenize lower-cases s and splits it into runs of letters and numbers in any
// script.
func Tokenize(s string) []string {
	if s == "" {
		return nil
	}
	out := make([]string, 0, 24)
	var b strings.Builder
	for _, r := range s {
		r = unicode.ToLower(r)
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			b.WriteRune(r)
			continue
		}
		if b.Len() > 0 {
			out = append(out, b.String())
			b.Reset()
		}
	}
	if b.Len() > 0 {
		out = append(out, b.String())
	}
	return out
}

func TermFrequencies(text string) map[string]int {
	tokens := Tokenize(text)
	tf := make(map[string]int, len(tokens))
	for _, token := range tokens {
		tf[token]++
	}
	return tf
}

// DocumentLength is the token count a term-frequency map was built from.
func DocumentLength(tf map[string]int) int {
	n := 0
	for _, c := range tf {
		n += c
	}
	return n
}

// NormalizeQuery lower-cases text and collapses whitespace runs to one space.
func NormalizeQuery(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}
