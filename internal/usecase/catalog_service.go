package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/shelfsense/backend/internal/domain"
	"github.com/shelfsense/backend/internal/extract"
)

// CatalogServiceConfig holds configuration for the catalog service
type CatalogServiceConfig struct {
	TopK int
}

// Extraction is the deterministic result of reading one page
type Extraction struct {
	Context    *domain.CandidateContext `json:"context"`
	Categories []string                 `json:"categories"`
}

// CatalogService runs the page pipeline and manages the stored catalog.
// Flow: structured pass -> DOM pass -> prefilter -> assemble -> save
type CatalogService struct {
	prefilter *Prefilter
	assembler *Assembler
	resolver  *IdentityResolver
	repo      domain.ProductRepository
	metrics   Metrics
	logger    zerolog.Logger
	topK      int
}

// NewCatalogService creates a new catalog service with dependencies
func NewCatalogService(
	prefilter *Prefilter,
	assembler *Assembler,
	resolver *IdentityResolver,
	repo domain.ProductRepository,
	metrics Metrics,
	logger zerolog.Logger,
	config CatalogServiceConfig,
) *CatalogService {
	topK := config.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}

	return &CatalogService{
		prefilter: prefilter,
		assembler: assembler,
		resolver:  resolver,
		repo:      repo,
		metrics:   metricsOrNoop(metrics),
		logger:    logger.With().Str("component", "catalog").Logger(),
		topK:      topK,
	}
}

// Extract reads the page signals and ranks category candidates. A topK of
// zero uses the configured default.
func (s *CatalogService) Extract(ctx context.Context, html, pageURL string, topK int) (*Extraction, error) {
	if strings.TrimSpace(html) == "" {
		return nil, fmt.Errorf("%w: html is required", domain.ErrInvalidRequest)
	}
	if topK == 0 {
		topK = s.topK
	}

	candidate := extract.ExtractStructuredSignals(html, pageURL)
	extract.ExtractDOMSignals(html, candidate, pageURL)
	s.metrics.PageExtracted()

	categories := s.prefilter.SelectCategoryCandidates(candidate, nil, topK)

	s.logger.Debug().
		Str("page_url", pageURL).
		Int("titles", len(candidate.TitleCandidates)).
		Int("images", len(candidate.ImageURLCandidates)).
		Int("categories", len(categories)).
		Msg("extracted page signals")

	return &Extraction{Context: candidate, Categories: categories}, nil
}

// Ingest extracts, assembles and stores one page. It returns the stable id
// the record was saved under.
func (s *CatalogService) Ingest(ctx context.Context, html, pageURL string) (string, *domain.Product, error) {
	extraction, err := s.Extract(ctx, html, pageURL, 0)
	if err != nil {
		return "", nil, err
	}

	product, err := s.assembler.Assemble(ctx, extraction.Context, extraction.Categories)
	if err != nil {
		return "", nil, err
	}

	id := ProductID(pageURL, html)
	if err := s.repo.Save(ctx, id, product); err != nil {
		return "", nil, fmt.Errorf("save product %s: %w", id, err)
	}

	s.logger.Info().Str("id", id).Str("name", product.Name).Msg("ingested product")
	return id, product, nil
}

// Get returns one stored record
func (s *CatalogService) Get(ctx context.Context, id string) (*domain.Product, error) {
	if strings.TrimSpace(id) == "" {
		return nil, domain.ErrInvalidRequest
	}
	return s.repo.Get(ctx, id)
}

// List returns summaries of every stored record ordered by id
func (s *CatalogService) List(ctx context.Context) ([]domain.ProductSummary, error) {
	records, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	ids := lo.Keys(records)
	sort.Strings(ids)

	return lo.Map(ids, func(id string, _ int) domain.ProductSummary {
		return records[id].Summary(id)
	}), nil
}

// Resolve assigns canonical ids across the given records without storing them
func (s *CatalogService) Resolve(records map[string]*domain.Product) (map[string]*domain.Product, error) {
	for id, record := range records {
		if strings.TrimSpace(id) == "" || record == nil {
			return nil, fmt.Errorf("%w: record %q is empty", domain.ErrInvalidRequest, id)
		}
	}
	return s.resolver.AssignCanonicalProducts(records), nil
}

// ResolveCatalog recomputes canonical ids for every stored record and saves
// the annotated records back.
func (s *CatalogService) ResolveCatalog(ctx context.Context) (map[string]*domain.Product, error) {
	records, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	resolved := s.resolver.AssignCanonicalProducts(records)
	for id, product := range resolved {
		if err := s.repo.Save(ctx, id, product); err != nil {
			return nil, fmt.Errorf("save product %s: %w", id, err)
		}
	}

	clusters := lo.Uniq(lo.FilterMap(lo.Values(resolved), func(p *domain.Product, _ int) (string, bool) {
		if p.CanonicalProductID == nil {
			return "", false
		}
		return *p.CanonicalProductID, true
	}))
	s.logger.Info().
		Int("records", len(resolved)).
		Int("clusters", len(clusters)).
		Msg("resolved catalog identities")

	return resolved, nil
}

// ProductID derives the stable record id for a page: the page URL when known,
// otherwise the page content.
func ProductID(pageURL, html string) string {
	key := pageURL
	if key == "" {
		key = html
	}
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])[:12]
}
