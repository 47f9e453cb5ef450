package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewBM25Index_Empty(t *testing.T) {
	index := NewBM25Index(nil, tokenizeLabel)

	assert.Empty(t, index.Labels())
	assert.Empty(t, index.Scores([]string{"shoes"}))
}

func TestBM25Index_Scores(t *testing.T) {
	labels := []string{
		"Apparel & Accessories > Clothing",
		"Apparel & Accessories > Shoes",
		"Furniture > Lighting",
	}
	index := NewBM25Index(labels, tokenizeLabel)

	t.Run("matching term scores only its label", func(t *testing.T) {
		scores := index.Scores([]string{"shoes"})
		assert.Greater(t, scores[1], 0.0)
		assert.Zero(t, scores[0])
		assert.Zero(t, scores[2])
	})

	t.Run("unknown terms score nothing", func(t *testing.T) {
		scores := index.Scores([]string{"zzqv", "unknown"})
		assert.Equal(t, []float64{0, 0, 0}, scores)
	})

	t.Run("repeated query terms add up", func(t *testing.T) {
		once := index.Scores([]string{"lighting"})
		twice := index.Scores([]string{"lighting", "lighting"})
		assert.InDelta(t, 2*once[2], twice[2], 1e-9)
	})

	t.Run("common terms keep a positive weight", func(t *testing.T) {
		// "apparel" appears in two of three labels, so its raw idf is negative
		scores := index.Scores([]string{"apparel"})
		assert.Greater(t, scores[0], 0.0)
		assert.InDelta(t, scores[0], scores[1], 1e-9)
	})
}

func TestBM25Index_ShortLabelsNotPenalized(t *testing.T) {
	labels := []string{
		"Lamps",
		"Home & Garden > Lighting > Floor Lamps Accessories",
		"Furniture > Tables",
	}
	index := NewBM25Index(labels, tokenizeLabel)

	scores := index.Scores([]string{"lamps"})
	assert.Greater(t, scores[1], 0.0)
	assert.Greater(t, scores[0], scores[1])
	assert.Zero(t, scores[2])
}

func TestBM25Index_Deterministic(t *testing.T) {
	labels := []string{"Furniture > Lighting", "Home & Garden > Lamps", "Home & Garden > Decor"}
	query := []string{"home", "lamps", "lighting"}

	first := NewBM25Index(labels, tokenizeLabel).Scores(query)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, NewBM25Index(labels, tokenizeLabel).Scores(query))
	}
}
