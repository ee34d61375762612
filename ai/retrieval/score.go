package retrieval

import (
	"math"
	"time"
)

// zeroNormEpsilon substitutes for a zero vector norm so cosine similarity
// never divides by zero.
const zeroNormEpsilon = 1e-10

// RecencyScore maps a creation timestamp to [0, 1]. A chunk created now
// scores ~1; anything older than a year scores 0.
func RecencyScore(createdTs int64, now time.Time) float64 {
	if createdTs <= 0 {
		createdTs = now.Unix()
	}
	ageDays := now.Sub(time.Unix(createdTs, 0)).Hours() / 24
	return math.Max(0, 1-ageDays/365)
}

// Scorer blends a tier's relevance score with recency. The weights come from
// configuration; they carry no derivation beyond "relevance dominates".
type Scorer struct {
	RelevanceWeight float64
	RecencyWeight   float64
}

// Composite returns the blended ranking score. It stays in [0, 1] whenever
// relevance does.
func (s Scorer) Composite(relevance float64, createdTs int64, now time.Time) float64 {
	return s.RelevanceWeight*relevance + s.RecencyWeight*RecencyScore(createdTs, now)
}

// Cosine computes cosine similarity between two vectors. Zero-norm vectors
// are treated as having norm epsilon.
func Cosine(a, b []float32) float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	normA = math.Sqrt(normA)
	normB = math.Sqrt(normB)
	if normA < zeroNormEpsilon {
		normA = zeroNormEpsilon
	}
	if normB < zeroNormEpsilon {
		normB = zeroNormEpsilon
	}
	return float32(dot / (normA * normB))
}
