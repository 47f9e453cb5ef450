package usecase

import (
	"math"
	"sort"
)

// Okapi BM25 parameters
const (
	bm25K1      = 1.5
	bm25B       = 0.75
	bm25Epsilon = 0.25 // floor for terms that appear in more than half the labels
)

// BM25Index is an Okapi BM25 model fitted over category labels, each label
// treated as one small document. It is immutable once built.
type BM25Index struct {
	labels    []string
	docFreqs  []map[string]int
	docLens   []float64
	avgDocLen float64
	idf       map[string]float64
}

// NewBM25Index tokenizes every label and fits the model. Labels that produce
// no tokens are kept and always score zero.
func NewBM25Index(labels []string, tokenize func(string) []string) *BM25Index {
	ix := &BM25Index{
		labels:   labels,
		docFreqs: make([]map[string]int, len(labels)),
		docLens:  make([]float64, len(labels)),
		idf:      make(map[string]float64),
	}

	// Step 1: term frequencies per label and label counts per term
	labelCounts := make(map[string]int)
	totalLen := 0
	for i, label := range labels {
		tokens := tokenize(label)
		freqs := make(map[string]int, len(tokens))
		for _, token := range tokens {
			freqs[token]++
		}
		for token := range freqs {
			labelCounts[token]++
		}
		ix.docFreqs[i] = freqs
		ix.docLens[i] = float64(len(tokens))
		totalLen += len(tokens)
	}
	if len(labels) > 0 {
		ix.avgDocLen = float64(totalLen) / float64(len(labels))
	}

	// Step 2: idf, visiting terms in sorted order so the float sum is stable
	terms := make([]string, 0, len(labelCounts))
	for term := range labelCounts {
		terms = append(terms, term)
	}
	sort.Strings(terms)

	n := float64(len(labels))
	idfSum := 0.0
	var negative []string
	for _, term := range terms {
		df := float64(labelCounts[term])
		idf := math.Log(n-df+0.5) - math.Log(df+0.5)
		ix.idf[term] = idf
		idfSum += idf
		if idf < 0 {
			negative = append(negative, term)
		}
	}

	// Step 3: common terms get a small positive weight instead of a penalty
	if len(terms) > 0 {
		floor := bm25Epsilon * idfSum / float64(len(terms))
		for _, term := range negative {
			ix.idf[term] = floor
		}
	}

	return ix
}

// Labels returns the indexed labels in index order
func (ix *BM25Index) Labels() []string {
	return ix.labels
}

// Scores returns one score per label for the query. Repeated query terms
// count again; terms outside the vocabulary contribute nothing.
func (ix *BM25Index) Scores(query []string) []float64 {
	scores := make([]float64, len(ix.labels))
	if ix.avgDocLen == 0 {
		return scores
	}

	for _, term := range query {
		idf, ok := ix.idf[term]
		if !ok {
			continue
		}
		for i, freqs := range ix.docFreqs {
			tf := float64(freqs[term])
			if tf == 0 {
				continue
			}
			norm := bm25K1 * (1 - bm25B + bm25B*ix.docLens[i]/ix.avgDocLen)
			scores[i] += idf * (tf * (bm25K1 + 1) / (tf + norm))
		}
	}
	return scores
}
