package usecase

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/shelfsense/backend/internal/domain"
)

// DefaultTopK is the number of category candidates returned when the caller
// does not ask for a specific count.
const DefaultTopK = 20

// Caps per field so one noisy signal cannot drown out the others
const (
	queryTitleLimit    = 3
	queryBrandLimit    = 2
	queryCategoryLimit = 3
)

const segmentSeparator = " > "

var labelTokenPattern = regexp.MustCompile(`[a-z0-9]+`)

// labelStopWords carry no signal for category matching
var labelStopWords = map[string]bool{
	"a": true, "an": true, "and": true, "at": true, "by": true,
	"for": true, "from": true, "in": true, "of": true, "on": true,
	"or": true, "the": true, "to": true, "with": true,
}

// IndexCache holds built ranking indexes keyed by a hash of the vocabulary
type IndexCache interface {
	Get(key string) (*BM25Index, error)
	Set(key string, index *BM25Index) bool
}

// Prefilter narrows the taxonomy to a short ranked list of plausible
// categories for a page. It is safe for concurrent use.
type Prefilter struct {
	taxonomy *domain.Taxonomy
	indexes  IndexCache
	metrics  Metrics
	logger   zerolog.Logger
}

// NewPrefilter creates a prefilter ranking against taxonomy by default.
// A nil cache rebuilds the index on every call.
func NewPrefilter(taxonomy *domain.Taxonomy, indexes IndexCache, metrics Metrics, logger zerolog.Logger) *Prefilter {
	return &Prefilter{
		taxonomy: taxonomy,
		indexes:  indexes,
		metrics:  metricsOrNoop(metrics),
		logger:   logger.With().Str("component", "prefilter").Logger(),
	}
}

// SelectCategoryCandidates returns up to topK category labels ranked by BM25
// relevance to the context's titles, brands and category hints. A nil
// categories slice means the configured taxonomy. When nothing in the context
// overlaps the vocabulary it returns a breadth-first fallback instead.
func (p *Prefilter) SelectCategoryCandidates(ctx *domain.CandidateContext, categories []string, topK int) []string {
	if topK <= 0 {
		return []string{}
	}

	labels := p.materialize(categories)
	if len(labels) == 0 {
		return []string{}
	}

	index := p.index(labels)
	query := buildQueryTerms(ctx)
	if len(query) == 0 {
		p.logger.Debug().Msg("empty query, using fallback")
		p.metrics.PrefilterRanked(true)
		return fallbackCategories(labels, topK)
	}

	ranked, best := rankLabels(index, query)
	if best <= 0 {
		p.logger.Debug().Strs("query", query).Msg("no vocabulary overlap, using fallback")
		p.metrics.PrefilterRanked(true)
		return fallbackCategories(labels, topK)
	}

	limit := min(topK, len(labels))
	result := collectUnique(ranked, limit)
	p.logger.Debug().
		Strs("query", query).
		Float64("best_score", best).
		Strs("categories", result).
		Msg("ranked categories")
	p.metrics.PrefilterRanked(false)
	return result
}

// materialize trims, deduplicates and sorts the caller's labels
func (p *Prefilter) materialize(categories []string) []string {
	if categories == nil {
		return p.taxonomy.Labels()
	}
	return domain.NewTaxonomy(categories).Labels()
}

func (p *Prefilter) index(labels []string) *BM25Index {
	if p.indexes == nil {
		return NewBM25Index(labels, tokenizeLabel)
	}

	key := vocabularyKey(labels)
	if index, err := p.indexes.Get(key); err == nil {
		return index
	}

	index := NewBM25Index(labels, tokenizeLabel)
	if p.indexes.Set(key, index) {
		p.logger.Debug().Msg("evicted least recently used index")
	}
	p.logger.Debug().Int("labels", len(labels)).Str("key", key[:12]).Msg("built ranking index")
	return index
}

// vocabularyKey hashes the sorted label tuple
func vocabularyKey(labels []string) string {
	h := sha256.New()
	for _, label := range labels {
		h.Write([]byte(label))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// buildQueryTerms flattens the most informative context fields into tokens
func buildQueryTerms(ctx *domain.CandidateContext) []string {
	if ctx == nil {
		return nil
	}

	var values []string
	values = append(values, head(ctx.TitleCandidates, queryTitleLimit)...)
	values = append(values, head(ctx.BrandCandidates, queryBrandLimit)...)
	values = append(values, head(ctx.CategoryHintCandidates, queryCategoryLimit)...)

	var terms []string
	for _, v := range values {
		terms = append(terms, tokenizeLabel(v)...)
	}
	return terms
}

// tokenizeLabel lower-cases s and keeps alphanumeric runs longer than one
// character that are not stop words.
//
//	"Apparel & Accessories > Back-Packs" -> [apparel accessories back packs]
func tokenizeLabel(s string) []string {
	var tokens []string
	for _, token := range labelTokenPattern.FindAllString(strings.ToLower(s), -1) {
		if len(token) <= 1 || labelStopWords[token] {
			continue
		}
		tokens = append(tokens, token)
	}
	return tokens
}

type scoredLabel struct {
	label string
	score float64
}

// rankLabels scores every label, best first with ties in ascending label
// order, and returns the best score.
func rankLabels(index *BM25Index, query []string) ([]scoredLabel, float64) {
	scores := index.Scores(query)
	ranked := make([]scoredLabel, len(scores))
	for i, score := range scores {
		ranked[i] = scoredLabel{label: index.Labels()[i], score: score}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].label < ranked[j].label
	})

	if len(ranked) == 0 {
		return ranked, 0
	}
	return ranked, ranked[0].score
}

func collectUnique(ranked []scoredLabel, limit int) []string {
	result := make([]string, 0, limit)
	seen := make(map[string]bool, limit)
	for _, r := range ranked {
		if seen[r.label] {
			continue
		}
		seen[r.label] = true
		result = append(result, r.label)
		if len(result) >= limit {
			break
		}
	}
	return result
}

// fallbackCategories favors breadth: first one top-level segment per branch
// in vocabulary order, then full labels not already taken.
func fallbackCategories(labels []string, topK int) []string {
	result := make([]string, 0, topK)
	seen := make(map[string]bool)

	for _, label := range labels {
		segment, _, _ := strings.Cut(label, segmentSeparator)
		if seen[segment] {
			continue
		}
		seen[segment] = true
		result = append(result, segment)
		if len(result) >= topK {
			return result
		}
	}

	for _, label := range labels {
		if seen[label] {
			continue
		}
		seen[label] = true
		result = append(result, label)
		if len(result) >= topK {
			break
		}
	}
	return result
}

func head(values []string, n int) []string {
	if len(values) > n {
		return values[:n]
	}
	return values
}
