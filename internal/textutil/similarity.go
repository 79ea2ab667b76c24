package textutil

import "strings"

// CosineSimilarity computes the cosine similarity between two fingerprints.
// Returns 0 if either fingerprint is nil or has zero norm.
func CosineSimilarity(a, b *Fingerprint) float64 {
	if a == nil || b == nil || a.norm == 0 || b.norm == 0 {
		return 0
	}
	var dot float64
	for token, count := range a.tokens {
		if other, ok := b.tokens[token]; ok {
			dot += count * other
		}
	}
	if dot == 0 {
		return 0
	}
	return dot / (a.norm * b.norm)
}

// BestMatch returns the index of the candidate closest to query and its
// score in [0, 1]. A case-insensitive exact match scores 1 and wins
// immediately; ties keep the earliest candidate. The index is -1 when no
// candidate shares a token with query.
func BestMatch(query string, candidates []string) (int, float64) {
	trimmed := strings.TrimSpace(query)
	for i, c := range candidates {
		if strings.EqualFold(strings.TrimSpace(c), trimmed) {
			return i, 1
		}
	}
	target := NewFingerprint(query)
	best, bestScore := -1, 0.0
	for i, c := range candidates {
		score := CosineSimilarity(target, NewFingerprint(c))
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	return best, bestScore
}
