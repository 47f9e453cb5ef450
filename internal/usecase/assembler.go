package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/shelfsense/backend/internal/domain"
)

const assemblerSystemPrompt = `You are a product data assembler. You will be given structured signals extracted
from a product page and a numbered list of plausible taxonomy categories.

Your job is to produce a single, valid Product object as JSON.

Rules:
- name: choose the most accurate and complete title from title_candidates.
- description: choose or lightly combine the best description from description_candidates.
- brand: choose the most credible brand from brand_candidates. If brand_candidates
  is empty or unhelpful, infer the brand from other signals (description, title,
  page URL domain, or breadcrumbs). For a retailer's own private-label products,
  the retailer name is the brand.
- price: parse the best price string from price_candidates into a number.
  Use currency_candidates to determine the currency code (e.g. "USD", "GBP").
  If a sale price and original price are both present, set compare_at_price to the higher value.
- image_urls: use only URLs from image_url_candidates. Do NOT invent or modify URLs.
- key_features: extract a concise list of bullet-point features from key_feature_candidates
  or the description. An empty list is acceptable if none are present.
- colors: list ALL available color options from color_candidates, including hex codes,
  colorway names and swatch names. Exclude product titles and variant names.
  Deduplicate equivalent colors ("Red/White" and "White/Red" are the same).
- category: you MUST choose the exact string of one item from the numbered
  category list provided. Copy it character-for-character. Do not paraphrase.
- variants: if option groups (e.g. sizes, colours) are present, build variants from
  them. Each variant needs a human-readable name (e.g. "Red / M") and an attributes
  object (e.g. {"color": "Red", "size": "M"}). Cap variants at 50. If no option
  groups exist, return an empty list.`

// BuildPrompt returns the system and user messages for one assembly attempt.
// A non-empty validationError is appended so the generator can correct itself.
func BuildPrompt(candidate *domain.CandidateContext, categories []string, validationError string) []domain.Message {
	var b strings.Builder

	b.WriteString("## Category candidates (choose exactly one, copy the string verbatim)\n\n")
	for i, category := range categories {
		fmt.Fprintf(&b, "%d. %s\n", i+1, category)
	}

	b.WriteString("\n## Extraction signals (JSON)\n\n")
	enc := json.NewEncoder(&b)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(candidate); err != nil {
		b.WriteString("{}\n")
	}

	if validationError != "" {
		b.WriteString("\n## Validation error from previous attempt, fix this\n\n")
		b.WriteString(validationError)
		b.WriteString("\n")
	}

	return []domain.Message{
		{Role: "system", Content: assemblerSystemPrompt},
		{Role: "user", Content: b.String()},
	}
}

// Assembler resolves a candidate context into one validated product record
// through the structured-generation service.
type Assembler struct {
	generator domain.StructuredGenerator
	taxonomy  *domain.Taxonomy
	validate  *validator.Validate
	metrics   Metrics
	logger    zerolog.Logger
}

// NewAssembler creates an assembler. Categories are checked against taxonomy
// when it is non-empty, otherwise against the candidates offered in the prompt.
func NewAssembler(generator domain.StructuredGenerator, taxonomy *domain.Taxonomy, metrics Metrics, logger zerolog.Logger) *Assembler {
	return &Assembler{
		generator: generator,
		taxonomy:  taxonomy,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		metrics:   metricsOrNoop(metrics),
		logger:    logger.With().Str("component", "assembler").Logger(),
	}
}

// Assemble asks the generator for a product. A record that fails validation
// is retried once with the error in the prompt; a second failure is returned.
// Generator errors are returned as is.
func (a *Assembler) Assemble(ctx context.Context, candidate *domain.CandidateContext, categories []string) (*domain.Product, error) {
	if a.generator == nil {
		return nil, domain.ErrGeneratorUnavailable
	}

	product, err := a.attempt(ctx, candidate, categories, "")
	if err == nil || !errors.Is(err, domain.ErrSchemaValidation) {
		return product, err
	}

	a.logger.Warn().Err(err).Msg("validation failed on first attempt, retrying")
	return a.attempt(ctx, candidate, categories, err.Error())
}

func (a *Assembler) attempt(ctx context.Context, candidate *domain.CandidateContext, categories []string, validationError string) (*domain.Product, error) {
	raw, err := a.generator.Generate(ctx, BuildPrompt(candidate, categories, validationError))
	if err != nil {
		a.metrics.AssemblyAttempt(OutcomeGeneratorError)
		return nil, err
	}

	product, err := a.decode(raw, categories)
	if err != nil {
		a.metrics.AssemblyAttempt(OutcomeValidationError)
		return nil, err
	}

	a.metrics.AssemblyAttempt(OutcomeSuccess)
	return product, nil
}

// decode parses and validates one generated record
func (a *Assembler) decode(raw []byte, categories []string) (*domain.Product, error) {
	var product domain.Product
	if err := json.Unmarshal(raw, &product); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSchemaValidation, err)
	}

	// identity fields belong to the resolver
	product.CanonicalProductID = nil
	product.MatchDecision = nil

	if err := a.validate.Struct(&product); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSchemaValidation, err)
	}

	if !a.validCategory(product.Category.Name, categories) {
		return nil, fmt.Errorf("%w: category %q is not a valid taxonomy category",
			domain.ErrSchemaValidation, product.Category.Name)
	}

	return &product, nil
}

func (a *Assembler) validCategory(name string, categories []string) bool {
	if a.taxonomy.Len() > 0 {
		return a.taxonomy.Contains(name)
	}
	return lo.Contains(categories, name)
}
