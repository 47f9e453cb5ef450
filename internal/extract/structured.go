package extract

import (
	"github.com/shelfsense/backend/internal/domain"
)

const (
	scriptTypeJSONLD = "application/ld+json"
	scriptTypeJSON   = "application/json"
)

// StructuredExtractor runs the structured-data pass: JSON-LD, meta tags,
// data-* payloads and inline script state.
type StructuredExtractor struct {
	mapper     *Mapper
	normalizer *URLNormalizer
}

// NewStructuredExtractor creates an extractor from mapping rules and an image
// URL normalizer.
func NewStructuredExtractor(rules MappingRules, normalizer *URLNormalizer) (*StructuredExtractor, error) {
	mapper, err := NewMapper(rules)
	if err != nil {
		return nil, err
	}
	if normalizer == nil {
		normalizer = NewURLNormalizer()
	}
	return &StructuredExtractor{mapper: mapper, normalizer: normalizer}, nil
}

var defaultStructuredExtractor = func() *StructuredExtractor {
	e, err := NewStructuredExtractor(DefaultMappingRules(), NewURLNormalizer())
	if err != nil {
		panic(err)
	}
	return e
}()

// ExtractStructuredSignals builds a new CandidateContext for the page from its
// structured data using the default rules.
func ExtractStructuredSignals(markup, pageURL string) *domain.CandidateContext {
	return defaultStructuredExtractor.Extract(markup, pageURL)
}

// Extract builds a new CandidateContext from the structured data in markup.
// Sources are merged in a fixed order so earlier sources rank first in every
// candidate list.
func (e *StructuredExtractor) Extract(markup, pageURL string) *domain.CandidateContext {
	ctx := domain.NewCandidateContext(pageURL)
	signals := ScanHTMLSignals(markup)
	transform := func(raw string) string {
		return e.normalizer.Canonicalize(raw, pageURL)
	}

	// Step 1: JSON-LD nodes and breadcrumbs
	for _, script := range signals.Scripts {
		if script.Type() != scriptTypeJSONLD {
			continue
		}
		payload, err := ParseJSON(script.Body)
		if err != nil {
			continue
		}
		for _, node := range JSONLDNodes(payload) {
			e.mapper.CollectCandidates(node, ctx, transform)
			CollectBreadcrumbHints(node, ctx)
		}
	}

	// Step 2: meta tags and microdata
	e.mapper.MapMeta(signals.Meta, ctx, transform)

	// Step 3: data-* attribute payloads
	for _, payload := range signals.DataPayloads {
		e.mapper.CollectCandidates(payload.Value, ctx, transform)
	}

	// Step 4: application/json scripts and assigned script blobs
	for _, script := range signals.Scripts {
		if script.Type() == scriptTypeJSON {
			if payload, err := ParseJSON(script.Body); err == nil {
				e.mapper.CollectCandidates(payload, ctx, transform)
			}
		}
		for _, blob := range ExtractAssignedJSONBlobs(script.Body) {
			e.mapper.CollectCandidates(blob, ctx, transform)
		}
	}

	// Step 5: scanner prices and colors
	_ = ctx.AddCandidates(domain.FieldPrice, signals.Prices)
	addColorGroup(ctx, signals.Colors)

	return ctx
}
