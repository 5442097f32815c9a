package recall

import (
	"math"
	"strings"
	"time"
)

const recencyHalfLifeDays = 30.0

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {},
	"be": {}, "by": {}, "for": {}, "from": {}, "how": {}, "in": {},
	"is": {}, "it": {}, "of": {}, "on": {}, "or": {}, "that": {},
	"the": {}, "to": {}, "was": {}, "what": {}, "when": {}, "where": {},
	"which": {}, "who": {}, "why": {}, "with": {},
}

// cosineSimilarity returns 0 when either vector is empty or the lengths
// differ, so chunks without embeddings simply score nothing on the vector
// component instead of erroring out.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// keywordTerms lowercases and tokenizes a query, dropping stop words. If
// every term is a stop word the unfiltered set is used instead, so queries
// like "what is it" still match something.
func keywordTerms(query string) map[string]struct{} {
	tokens := strings.Fields(strings.ToLower(query))
	terms := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		if _, stop := stopWords[tok]; !stop {
			terms[tok] = struct{}{}
		}
	}
	if len(terms) == 0 {
		for _, tok := range tokens {
			terms[tok] = struct{}{}
		}
	}
	return terms
}

// keywordScore is the fraction of query terms present in the content.
func keywordScore(terms map[string]struct{}, content string) float64 {
	if len(terms) == 0 {
		return 0
	}
	lower := strings.ToLower(content)
	matched := 0
	for term := range terms {
		if strings.Contains(lower, term) {
			matched++
		}
	}
	return float64(matched) / float64(len(terms))
}

// recencyScore decays exponentially with chunk age, halving roughly every
// recencyHalfLifeDays. Future timestamps clamp to full score.
func recencyScore(createdAt, now time.Time) float64 {
	ageDays := now.Sub(createdAt).Hours() / 24
	if ageDays < 0 {
		ageDays = 0
	}
	return math.Exp(-ageDays / recencyHalfLifeDays)
}

// hybridScore blends the three signals with fixed weights.
func hybridScore(cosine, keyword, recency float64) float64 {
	return 0.7*cosine + 0.2*keyword + 0.1*recency
}

func roundScore(score float64) float64 {
	return math.Round(score*10000) / 10000
}
