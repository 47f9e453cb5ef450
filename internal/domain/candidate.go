package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// CandidateField names one of the ordered candidate lists of a CandidateContext
type CandidateField string

const (
	FieldTitle        CandidateField = "title_candidates"
	FieldDescription  CandidateField = "description_candidates"
	FieldBrand        CandidateField = "brand_candidates"
	FieldPrice        CandidateField = "price_candidates"
	FieldCurrency     CandidateField = "currency_candidates"
	FieldImageURL     CandidateField = "image_url_candidates"
	FieldCategoryHint CandidateField = "category_hint_candidates"
	FieldKeyFeature   CandidateField = "key_feature_candidates"
)

// CandidateFields lists every candidate field in serialization order
var CandidateFields = []CandidateField{
	FieldTitle,
	FieldDescription,
	FieldBrand,
	FieldPrice,
	FieldCurrency,
	FieldImageURL,
	FieldCategoryHint,
	FieldKeyFeature,
}

// Valid reports whether f names a known candidate list
func (f CandidateField) Valid() bool {
	for _, known := range CandidateFields {
		if f == known {
			return true
		}
	}
	return false
}

// OptionValue is one choice within an OptionGroup.
// Deterministic extraction only ever sets Value.
type OptionValue struct {
	Value      string   `json:"value"`
	Available  *bool    `json:"available,omitempty"`
	PriceDelta *float64 `json:"price_delta,omitempty"`
}

// OptionGroup is a named variation dimension such as "Size" or "Color"
type OptionGroup struct {
	Dimension string        `json:"dimension"`
	Options   []OptionValue `json:"options"`
}

// NewOptionGroup builds a group from raw values, trimming them and dropping
// empties and duplicates while keeping first-seen order.
func NewOptionGroup(dimension string, values []string) OptionGroup {
	group := OptionGroup{Dimension: dimension}
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		group.Options = append(group.Options, OptionValue{Value: v})
	}
	return group
}

// Values returns the option value strings in order
func (g OptionGroup) Values() []string {
	values := make([]string, 0, len(g.Options))
	for _, o := range g.Options {
		values = append(values, o.Value)
	}
	return values
}

// MinOptionValues is the number of distinct values a dimension needs before it
// is a real choice.
const MinOptionValues = 2

// CandidateContext is the per-page bag of extracted signals awaiting resolution.
// Every candidate list keeps first-seen order and holds no duplicate or blank
// strings. A context belongs to one page and one goroutine.
type CandidateContext struct {
	PageURL string `json:"page_url,omitempty"`

	TitleCandidates        []string `json:"title_candidates"`
	DescriptionCandidates  []string `json:"description_candidates"`
	BrandCandidates        []string `json:"brand_candidates"`
	PriceCandidates        []string `json:"price_candidates"`
	CurrencyCandidates     []string `json:"currency_candidates"`
	ImageURLCandidates     []string `json:"image_url_candidates"`
	CategoryHintCandidates []string `json:"category_hint_candidates"`
	KeyFeatureCandidates   []string `json:"key_feature_candidates"`

	OptionGroupCandidates []OptionGroup `json:"option_group_candidates"`

	// RawAttributes holds scalar passthrough values (string, number or bool)
	RawAttributes map[string]any `json:"raw_attributes"`
}

// NewCandidateContext creates an empty context for the given page
func NewCandidateContext(pageURL string) *CandidateContext {
	return &CandidateContext{
		PageURL:                pageURL,
		TitleCandidates:        []string{},
		DescriptionCandidates:  []string{},
		BrandCandidates:        []string{},
		PriceCandidates:        []string{},
		CurrencyCandidates:     []string{},
		ImageURLCandidates:     []string{},
		CategoryHintCandidates: []string{},
		KeyFeatureCandidates:   []string{},
		OptionGroupCandidates:  []OptionGroup{},
		RawAttributes:          map[string]any{},
	}
}

// list returns a pointer to the slice backing field, or nil for unknown fields
func (c *CandidateContext) list(field CandidateField) *[]string {
	switch field {
	case FieldTitle:
		return &c.TitleCandidates
	case FieldDescription:
		return &c.DescriptionCandidates
	case FieldBrand:
		return &c.BrandCandidates
	case FieldPrice:
		return &c.PriceCandidates
	case FieldCurrency:
		return &c.CurrencyCandidates
	case FieldImageURL:
		return &c.ImageURLCandidates
	case FieldCategoryHint:
		return &c.CategoryHintCandidates
	case FieldKeyFeature:
		return &c.KeyFeatureCandidates
	}
	return nil
}

// Candidates returns the current values of field (nil for unknown fields)
func (c *CandidateContext) Candidates(field CandidateField) []string {
	if l := c.list(field); l != nil {
		return *l
	}
	return nil
}

// AddCandidates appends trimmed, non-empty values not already present in field,
// preserving the order in which they are first seen.
func (c *CandidateContext) AddCandidates(field CandidateField, values []string) error {
	existing := c.list(field)
	if existing == nil {
		return fmt.Errorf("%w: %s", ErrUnknownCandidateField, field)
	}

	seen := make(map[string]bool, len(*existing)+len(values))
	for _, v := range *existing {
		seen[v] = true
	}
	for _, v := range values {
		cleaned := strings.TrimSpace(v)
		if cleaned == "" || seen[cleaned] {
			continue
		}
		*existing = append(*existing, cleaned)
		seen[cleaned] = true
	}
	return nil
}

// AddRawAttribute stores a scalar attribute, replacing any previous value for key.
// Non-scalar values are ignored.
func (c *CandidateContext) AddRawAttribute(key string, value any) {
	switch value.(type) {
	case string, bool, float64, float32, int, int64, json.Number:
	default:
		return
	}
	if c.RawAttributes == nil {
		c.RawAttributes = map[string]any{}
	}
	c.RawAttributes[key] = value
}

// AddOptionGroup merges group into the context. Dimensions compare
// case-insensitively; new values are appended to an existing group in order.
// A group that would end up with fewer than MinOptionValues values is dropped.
func (c *CandidateContext) AddOptionGroup(group OptionGroup) {
	for i := range c.OptionGroupCandidates {
		existing := &c.OptionGroupCandidates[i]
		if !strings.EqualFold(existing.Dimension, group.Dimension) {
			continue
		}
		seen := make(map[string]bool, len(existing.Options))
		for _, o := range existing.Options {
			seen[o.Value] = true
		}
		for _, o := range group.Options {
			if o.Value == "" || seen[o.Value] {
				continue
			}
			existing.Options = append(existing.Options, o)
			seen[o.Value] = true
		}
		return
	}

	cleaned := OptionGroup{Dimension: group.Dimension}
	seen := make(map[string]bool, len(group.Options))
	for _, o := range group.Options {
		if o.Value == "" || seen[o.Value] {
			continue
		}
		cleaned.Options = append(cleaned.Options, o)
		seen[o.Value] = true
	}
	if len(cleaned.Options) < MinOptionValues {
		return
	}
	c.OptionGroupCandidates = append(c.OptionGroupCandidates, cleaned)
}

// FindOptionGroup returns the group for dimension (case-insensitive), if any
func (c *CandidateContext) FindOptionGroup(dimension string) (OptionGroup, bool) {
	for _, g := range c.OptionGroupCandidates {
		if strings.EqualFold(g.Dimension, dimension) {
			return g, true
		}
	}
	return OptionGroup{}, false
}
