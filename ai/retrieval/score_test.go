package retrieval

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRecencyScore(t *testing.T) {
	now := time.Now()

	t.Run("fresh chunk scores near one", func(t *testing.T) {
		assert.InDelta(t, 1.0, RecencyScore(now.Unix(), now), 0.01)
	})

	t.Run("year-old chunk scores near zero", func(t *testing.T) {
		assert.InDelta(t, 0.0, RecencyScore(now.AddDate(-1, 0, 0).Unix(), now), 0.01)
	})

	t.Run("older than a year clamps to zero", func(t *testing.T) {
		assert.Equal(t, 0.0, RecencyScore(now.AddDate(0, 0, -400).Unix(), now))
	})

	t.Run("missing timestamp defaults to now", func(t *testing.T) {
		assert.InDelta(t, 1.0, RecencyScore(0, now), 0.01)
	})

	t.Run("always within bounds", func(t *testing.T) {
		for _, ts := range []int64{-1000, 1, now.Unix(), now.Unix() + 86400} {
			score := RecencyScore(ts, now)
			assert.GreaterOrEqual(t, score, 0.0)
			assert.LessOrEqual(t, score, 1.0+0.01)
		}
	})
}

func TestComposite(t *testing.T) {
	scorer := Scorer{RelevanceWeight: 0.8, RecencyWeight: 0.2}
	now := time.Now()

	t.Run("blends relevance and recency", func(t *testing.T) {
		assert.InDelta(t, 0.92, scorer.Composite(0.9, now.Unix(), now), 0.01)
	})

	t.Run("stays in unit interval for unit relevance", func(t *testing.T) {
		for _, relevance := range []float64{0, 0.5, 1} {
			score := scorer.Composite(relevance, now.AddDate(0, -6, 0).Unix(), now)
			assert.GreaterOrEqual(t, score, 0.0)
			assert.LessOrEqual(t, score, 1.0)
		}
	})
}

func TestCosine(t *testing.T) {
	t.Run("identical vectors", func(t *testing.T) {
		v := []float32{0.5, 0.5, 0.1}
		assert.InDelta(t, 1.0, float64(Cosine(v, v)), 0.001)
	})

	t.Run("orthogonal vectors", func(t *testing.T) {
		assert.InDelta(t, 0.0, float64(Cosine([]float32{1, 0}, []float32{0, 1})), 0.001)
	})

	t.Run("zero vector does not divide by zero", func(t *testing.T) {
		score := Cosine([]float32{0, 0, 0}, []float32{1, 2, 3})
		assert.False(t, score != score, "score must not be NaN")
		assert.InDelta(t, 0.0, float64(score), 0.001)
	})
}
