package usecase

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"runtime"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/shelfsense/backend/internal/domain"
)

// Evidence signal names recorded on every match decision
const (
	SignalGTIN       = "upc_gtin_exact_match"
	SignalTitleBrand = "title_brand_similarity"
)

const (
	canonicalIDPrefix   = "cp_"
	gtinMatchConfidence = 0.95 // floor applied when two records share a code
	titleWeight         = 0.75
	brandWeight         = 0.25
)

var (
	gtinPattern      = regexp.MustCompile(`\b\d{8,14}\b`)
	nonAlphanumerics = regexp.MustCompile(`[^a-z0-9]+`)
)

// IdentityConfig tunes pairwise matching
type IdentityConfig struct {
	MatchThreshold          float64
	TitleBrandMinSimilarity float64
	UPCWeight               float64
	TitleBrandWeight        float64
	Workers                 int
}

// DefaultIdentityConfig returns the stock thresholds and weights
func DefaultIdentityConfig() IdentityConfig {
	return IdentityConfig{
		MatchThreshold:          0.72,
		TitleBrandMinSimilarity: 0.62,
		UPCWeight:               0.75,
		TitleBrandWeight:        0.25,
		Workers:                 runtime.NumCPU(),
	}
}

// IdentityResolver groups product records that describe the same item and
// stamps each with a canonical id and the decision behind it.
type IdentityResolver struct {
	config  IdentityConfig
	metrics Metrics
	logger  zerolog.Logger
}

// NewIdentityResolver creates a resolver. Workers below one means one per CPU.
func NewIdentityResolver(config IdentityConfig, metrics Metrics, logger zerolog.Logger) *IdentityResolver {
	if config.Workers <= 0 {
		config.Workers = runtime.NumCPU()
	}
	return &IdentityResolver{
		config:  config,
		metrics: metricsOrNoop(metrics),
		logger:  logger.With().Str("component", "identity").Logger(),
	}
}

// Config returns the resolver's effective configuration
func (r *IdentityResolver) Config() IdentityConfig {
	return r.config
}

// identityFeatures are the per-record inputs to pairwise comparison
type identityFeatures struct {
	codes    map[string]bool
	title    string
	brand    string
	rawBrand string
}

// pairResult is the outcome of comparing ids[i] with ids[j], i < j
type pairResult struct {
	sharedCodes []string
	titleBrand  float64
	confidence  float64
	matched     bool
	leftBrand   string
	rightBrand  string
}

// AssignCanonicalProducts returns copies of the records with a canonical
// product id and match decision set on each. The input is not modified.
// Records in the same connected component of matched pairs share a canonical
// id; the decision on each record describes its single best peer.
func (r *IdentityResolver) AssignCanonicalProducts(records map[string]*domain.Product) map[string]*domain.Product {
	result := make(map[string]*domain.Product, len(records))
	if len(records) == 0 {
		return result
	}

	// Step 1: stable ordering and per-record features
	ids := make([]string, 0, len(records))
	for id := range records {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	features := make([]identityFeatures, len(ids))
	for i, id := range ids {
		result[id] = records[id].Clone()
		features[i] = extractIdentityFeatures(result[id])
	}

	// Step 2: score every unordered pair, one row per worker task
	n := len(ids)
	pairs := make([][]pairResult, n)
	g := new(errgroup.Group)
	g.SetLimit(r.config.Workers)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			row := make([]pairResult, n)
			for j := i + 1; j < n; j++ {
				row[j] = r.evaluatePair(features[i], features[j])
			}
			pairs[i] = row
			return nil
		})
	}
	_ = g.Wait()

	pair := func(i, j int) pairResult {
		if i < j {
			return pairs[i][j]
		}
		return pairs[j][i]
	}

	// Step 3: connected components over matched pairs
	uf := newUnionFind(n)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if pairs[i][j].matched {
				uf.union(i, j)
			}
		}
	}

	members := make(map[int][]string)
	for i, id := range ids {
		root := uf.find(i)
		members[root] = append(members[root], id)
	}
	canonical := make(map[int]string, len(members))
	for root, group := range members {
		canonical[root] = canonicalProductID(group)
	}

	// Step 4: canonical id and best-peer decision per record
	for i, id := range ids {
		canonicalID := canonical[uf.find(i)]
		product := result[id]
		product.CanonicalProductID = &canonicalID
		product.MatchDecision = r.bestDecision(i, ids, pair)
	}

	r.logger.Debug().
		Int("records", n).
		Int("clusters", len(members)).
		Msg("resolved product identities")
	r.metrics.IdentityResolved(n, n*(n-1)/2, len(members))

	return result
}

// bestDecision picks the peer with the highest confidence. Ties go to the
// smaller id, which is the first one seen since ids are sorted.
func (r *IdentityResolver) bestDecision(i int, ids []string, pair func(i, j int) pairResult) *domain.MatchDecision {
	best := -1
	var bestResult pairResult
	for j := range ids {
		if j == i {
			continue
		}
		res := pair(i, j)
		if best < 0 || res.confidence > bestResult.confidence {
			best, bestResult = j, res
		}
	}

	if best < 0 {
		return &domain.MatchDecision{
			Matched:    false,
			Confidence: 0,
			Threshold:  r.config.MatchThreshold,
			Evidence: []domain.MatchEvidence{
				{Signal: SignalGTIN, Details: map[string]any{"reason": "no_other_products"}},
				{Signal: SignalTitleBrand, Details: map[string]any{"reason": "no_other_products"}},
			},
		}
	}

	candidateID := ids[best]
	return &domain.MatchDecision{
		CandidateProductID: &candidateID,
		Matched:            bestResult.matched,
		Confidence:         bestResult.confidence,
		Threshold:          r.config.MatchThreshold,
		Evidence:           r.evidence(bestResult),
	}
}

func (r *IdentityResolver) evidence(res pairResult) []domain.MatchEvidence {
	gtinScore := 0.0
	if len(res.sharedCodes) > 0 {
		gtinScore = 1.0
	}
	return []domain.MatchEvidence{
		{
			Signal:  SignalGTIN,
			Score:   gtinScore,
			Matched: len(res.sharedCodes) > 0,
			Details: map[string]any{"shared_codes": append([]string{}, res.sharedCodes...)},
		},
		{
			Signal:  SignalTitleBrand,
			Score:   res.titleBrand,
			Matched: res.titleBrand >= r.config.TitleBrandMinSimilarity,
			Details: map[string]any{"left_brand": res.leftBrand, "right_brand": res.rightBrand},
		},
	}
}

// evaluatePair combines the code and title/brand signals into a confidence
func (r *IdentityResolver) evaluatePair(left, right identityFeatures) pairResult {
	shared := make([]string, 0)
	for code := range left.codes {
		if right.codes[code] {
			shared = append(shared, code)
		}
	}
	sort.Strings(shared)

	titleBrand := titleBrandSimilarity(left, right)

	gtinScore := 0.0
	if len(shared) > 0 {
		gtinScore = 1.0
	}

	weighted := gtinScore*r.config.UPCWeight + titleBrand*r.config.TitleBrandWeight
	totalWeight := r.config.UPCWeight + r.config.TitleBrandWeight

	confidence := 0.0
	if totalWeight > 0 {
		confidence = weighted / totalWeight
	}
	if len(shared) > 0 {
		confidence = max(confidence, gtinMatchConfidence)
	}

	return pairResult{
		sharedCodes: shared,
		titleBrand:  titleBrand,
		confidence:  confidence,
		matched:     len(shared) > 0 || confidence >= r.config.MatchThreshold,
		leftBrand:   left.rawBrand,
		rightBrand:  right.rawBrand,
	}
}

func extractIdentityFeatures(p *domain.Product) identityFeatures {
	sources := []string{p.Name, p.Description, p.Brand}
	sources = append(sources, p.KeyFeatures...)
	for _, offer := range p.Offers {
		sources = append(sources, offer.SourceURL)
	}

	codes := make(map[string]bool)
	for _, s := range sources {
		for _, code := range gtinPattern.FindAllString(s, -1) {
			codes[code] = true
		}
	}

	return identityFeatures{
		codes:    codes,
		title:    normalizeIdentityText(p.Name),
		brand:    normalizeIdentityText(p.Brand),
		rawBrand: p.Brand,
	}
}

// titleBrandSimilarity weights title agreement three times brand agreement
func titleBrandSimilarity(left, right identityFeatures) float64 {
	return titleWeight*sequenceRatio(left.title, right.title) +
		brandWeight*sequenceRatio(left.brand, right.brand)
}

// normalizeIdentityText lower-cases s and collapses every run of
// non-alphanumeric characters to a single space.
func normalizeIdentityText(s string) string {
	s = strings.TrimSpace(strings.ToLower(s))
	return strings.TrimSpace(nonAlphanumerics.ReplaceAllString(s, " "))
}

// canonicalProductID derives a stable id from the sorted member ids
func canonicalProductID(sortedIDs []string) string {
	sum := sha256.Sum256([]byte(strings.Join(sortedIDs, "||")))
	return canonicalIDPrefix + hex.EncodeToString(sum[:])[:16]
}

type unionFind struct {
	parent []int
}

func newUnionFind(n int) *unionFind {
	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	return &unionFind{parent: parent}
}

func (u *unionFind) find(x int) int {
	for u.parent[x] != x {
		u.parent[x] = u.parent[u.parent[x]]
		x = u.parent[x]
	}
	return x
}

func (u *unionFind) union(a, b int) {
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		return
	}
	// smaller index as root keeps roots deterministic
	if rb < ra {
		ra, rb = rb, ra
	}
	u.parent[rb] = ra
}
