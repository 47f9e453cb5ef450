package extract

import (
	"fmt"
	"strings"

	"github.com/shelfsense/backend/internal/domain"
)

// KeyRule maps a JSON key, wherever it appears in a node, to a candidate field
type KeyRule struct {
	Key   string
	Field domain.CandidateField
}

// MappingRules is the declarative table driving the structured mapper.
// Supporting a new page structure means adding rules, not code.
type MappingRules struct {
	// KeyRules are applied in order; values of earlier keys are merged first
	KeyRules []KeyRule
	// ColorKeys hold color strings emitted together as one Color option group
	ColorKeys []string
	// MetaKeys maps lower-cased meta/microdata keys to candidate fields
	MetaKeys map[string]domain.CandidateField
	// PassthroughKeys name variant/option collections serialized into raw attributes
	PassthroughKeys []string
	// PassthroughMaxBytes caps the serialized size of a passthrough value
	PassthroughMaxBytes int
}

// DefaultMappingRules returns the rules covering schema.org JSON-LD, Open
// Graph and the common storefront state blobs.
func DefaultMappingRules() MappingRules {
	return MappingRules{
		KeyRules: []KeyRule{
			{"name", domain.FieldTitle},
			{"title", domain.FieldTitle},
			{"productName", domain.FieldTitle},
			{"headline", domain.FieldTitle},
			{"description", domain.FieldDescription},
			{"shortDescription", domain.FieldDescription},
			{"metaDescription", domain.FieldDescription},
			{"subtitle", domain.FieldDescription},
			{"brand", domain.FieldBrand},
			{"brandName", domain.FieldBrand},
			{"vendor", domain.FieldBrand},
			{"manufacturer", domain.FieldBrand},
			{"price", domain.FieldPrice},
			{"salePrice", domain.FieldPrice},
			{"currentPrice", domain.FieldPrice},
			{"listPrice", domain.FieldPrice},
			{"compareAtPrice", domain.FieldPrice},
			{"priceCurrency", domain.FieldCurrency},
			{"currency", domain.FieldCurrency},
			{"currencyCode", domain.FieldCurrency},
			{"image", domain.FieldImageURL},
			{"images", domain.FieldImageURL},
			{"imageUrl", domain.FieldImageURL},
			{"imageUrls", domain.FieldImageURL},
			{"primaryImage", domain.FieldImageURL},
			{"category", domain.FieldCategoryHint},
			{"productType", domain.FieldCategoryHint},
			{"breadcrumb", domain.FieldCategoryHint},
			{"positiveNotes", domain.FieldKeyFeature},
			{"keyFeatures", domain.FieldKeyFeature},
			{"features", domain.FieldKeyFeature},
			{"highlights", domain.FieldKeyFeature},
			{"benefits", domain.FieldKeyFeature},
		},
		ColorKeys: []string{
			"color", "colour", "colors", "colourways",
			"colorDescription", "colorName", "hues", "swatchColors",
		},
		MetaKeys: map[string]domain.CandidateField{
			"og:title":               domain.FieldTitle,
			"twitter:title":          domain.FieldTitle,
			"title":                  domain.FieldTitle,
			"description":            domain.FieldDescription,
			"og:description":         domain.FieldDescription,
			"twitter:description":    domain.FieldDescription,
			"og:image":               domain.FieldImageURL,
			"twitter:image":          domain.FieldImageURL,
			"image":                  domain.FieldImageURL,
			"og:brand":               domain.FieldBrand,
			"brand":                  domain.FieldBrand,
			"product:brand":          domain.FieldBrand,
			"product:price:amount":   domain.FieldPrice,
			"og:price:amount":        domain.FieldPrice,
			"price":                  domain.FieldPrice,
			"product:price:currency": domain.FieldCurrency,
			"og:price:currency":      domain.FieldCurrency,
			"pricecurrency":          domain.FieldCurrency,
		},
		PassthroughKeys:     []string{"variants", "options", "option_groups"},
		PassthroughMaxBytes: 100_000,
	}
}

// Validate checks that every rule targets a known candidate field
func (r MappingRules) Validate() error {
	for _, rule := range r.KeyRules {
		if !rule.Field.Valid() {
			return fmt.Errorf("%w: key %q maps to %q", domain.ErrUnknownCandidateField, rule.Key, rule.Field)
		}
	}
	for key, field := range r.MetaKeys {
		if !field.Valid() {
			return fmt.Errorf("%w: meta key %q maps to %q", domain.ErrUnknownCandidateField, key, field)
		}
	}
	return nil
}

// Mapper applies MappingRules to decoded JSON nodes and meta signals
type Mapper struct {
	rules   MappingRules
	watched map[string]bool // mapped and color keys
}

// NewMapper validates rules and builds a mapper
func NewMapper(rules MappingRules) (*Mapper, error) {
	if err := rules.Validate(); err != nil {
		return nil, err
	}
	watched := make(map[string]bool, len(rules.KeyRules)+len(rules.ColorKeys))
	for _, rule := range rules.KeyRules {
		watched[rule.Key] = true
	}
	for _, key := range rules.ColorKeys {
		watched[key] = true
	}
	return &Mapper{rules: rules, watched: watched}, nil
}

// CollectCandidates merges every mapped key found anywhere in node into ctx.
// Image values go through transform when it is non-nil. Color values become a
// single Color option group, passthrough collections are serialized into raw
// attributes and remaining top-level scalars are copied as raw attributes.
func (m *Mapper) CollectCandidates(node *Value, ctx *domain.CandidateContext, transform func(string) string) {
	if node == nil {
		return
	}
	found := m.collectWatched(node)

	for _, rule := range m.rules.KeyRules {
		values := found[rule.Key]
		if len(values) == 0 {
			continue
		}
		if transform != nil && rule.Field == domain.FieldImageURL {
			transformed := make([]string, len(values))
			for i, v := range values {
				transformed[i] = transform(v)
			}
			values = transformed
		}
		// fields are checked in NewMapper
		_ = ctx.AddCandidates(rule.Field, values)
	}

	var colors []string
	for _, key := range m.rules.ColorKeys {
		for _, v := range found[key] {
			colors = append(colors, decodeColor(v))
		}
	}
	addColorGroup(ctx, colors)

	for _, key := range m.rules.PassthroughKeys {
		value := m.findStructured(node, key)
		if value == nil {
			continue
		}
		if encoded, err := value.MarshalJSON(); err == nil {
			ctx.AddRawAttribute(key, string(encoded))
		}
	}

	if node.Kind != KindObject {
		return
	}
	for _, member := range node.Members {
		if strings.HasPrefix(member.Key, "@") || m.watched[member.Key] {
			continue
		}
		if scalar, ok := member.Value.Scalar(); ok {
			ctx.AddRawAttribute(member.Key, scalar)
		}
	}
}

// collectWatched walks node once and returns the flattened strings found under
// each watched key, in document order. A matched value is also descended into.
func (m *Mapper) collectWatched(node *Value) map[string][]string {
	found := make(map[string][]string)

	var walk func(v *Value)
	walk = func(v *Value) {
		switch v.Kind {
		case KindObject:
			for _, member := range v.Members {
				if m.watched[member.Key] {
					found[member.Key] = append(found[member.Key], flattenStrings(member.Value)...)
				}
				walk(member.Value)
			}
		case KindArray:
			for _, item := range v.Items {
				walk(item)
			}
		}
	}
	walk(node)
	return found
}

// flattenStrings turns a mapped value into candidate strings. Scalars
// stringify, objects contribute the first present of name/value/url/text and
// arrays flatten element-wise.
func flattenStrings(v *Value) []string {
	switch v.Kind {
	case KindString, KindNumber:
		return []string{v.Str}
	case KindBool:
		if v.Bool {
			return []string{"true"}
		}
		return []string{"false"}
	case KindObject:
		for _, key := range []string{"name", "value", "url", "text"} {
			if s, ok := v.Get(key).StringValue(); ok {
				return []string{s}
			}
		}
		return nil
	case KindArray:
		var out []string
		for _, item := range v.Items {
			out = append(out, flattenStrings(item)...)
		}
		return out
	}
	return nil
}

// findStructured returns the first object or array stored under key anywhere
// in node whose serialized form fits the passthrough cap.
func (m *Mapper) findStructured(node *Value, key string) *Value {
	switch node.Kind {
	case KindObject:
		if v := node.Get(key); v.IsContainer() && m.fitsPassthrough(v) {
			return v
		}
		for _, member := range node.Members {
			if found := m.findStructured(member.Value, key); found != nil {
				return found
			}
		}
	case KindArray:
		for _, item := range node.Items {
			if found := m.findStructured(item, key); found != nil {
				return found
			}
		}
	}
	return nil
}

func (m *Mapper) fitsPassthrough(v *Value) bool {
	if m.rules.PassthroughMaxBytes <= 0 {
		return true
	}
	encoded, err := v.MarshalJSON()
	return err == nil && len(encoded) < m.rules.PassthroughMaxBytes
}

// MapMeta merges meta and microdata signals whose key has a rule
func (m *Mapper) MapMeta(signals []MetaSignal, ctx *domain.CandidateContext, transform func(string) string) {
	for _, signal := range signals {
		field, ok := m.rules.MetaKeys[signal.Key]
		if !ok {
			continue
		}
		content := strings.TrimSpace(signal.Content)
		if content == "" {
			continue
		}
		if transform != nil && field == domain.FieldImageURL {
			content = transform(content)
		}
		_ = ctx.AddCandidates(field, []string{content})
	}
}

// CollectBreadcrumbHints adds the item names of a JSON-LD BreadcrumbList as
// category hints.
func CollectBreadcrumbHints(node *Value, ctx *domain.CandidateContext) {
	if t, _ := node.Get("@type").StringValue(); t != "BreadcrumbList" {
		return
	}
	elements := node.Get("itemListElement")
	if elements == nil || elements.Kind != KindArray {
		return
	}

	names := make([]string, 0, len(elements.Items))
	for _, element := range elements.Items {
		if name, ok := element.Get("name").StringValue(); ok {
			names = append(names, name)
		}
	}
	_ = ctx.AddCandidates(domain.FieldCategoryHint, names)
}

// JSONLDNodes expands a JSON-LD payload into its top-level object nodes,
// unwrapping @graph containers.
func JSONLDNodes(payload *Value) []*Value {
	if payload == nil {
		return nil
	}

	var items []*Value
	switch payload.Kind {
	case KindObject:
		graph := payload.Get("@graph")
		if graph == nil || graph.Kind != KindArray {
			return []*Value{payload}
		}
		items = graph.Items
	case KindArray:
		items = payload.Items
	default:
		return nil
	}

	nodes := make([]*Value, 0, len(items))
	for _, item := range items {
		if item.Kind == KindObject {
			nodes = append(nodes, item)
		}
	}
	return nodes
}

// decodeColor percent-decodes values like "Blizzard%2FDeep%20Navy". Valid
// escapes are decoded one by one; a stray % stays as written and bytes that
// do not form UTF-8 become U+FFFD.
func decodeColor(value string) string {
	if !strings.Contains(value, "%") {
		return value
	}
	out := make([]byte, 0, len(value))
	for i := 0; i < len(value); i++ {
		if value[i] == '%' && i+2 < len(value) && isHex(value[i+1]) && isHex(value[i+2]) {
			out = append(out, unhex(value[i+1])<<4|unhex(value[i+2]))
			i += 2
			continue
		}
		out = append(out, value[i])
	}
	return strings.ToValidUTF8(string(out), "\uFFFD")
}

func isHex(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}

func unhex(c byte) byte {
	switch {
	case c >= 'a':
		return c - 'a' + 10
	case c >= 'A':
		return c - 'A' + 10
	}
	return c - '0'
}

// addColorGroup emits colors as one Color group when at least two distinct
// values remain after trimming.
func addColorGroup(ctx *domain.CandidateContext, colors []string) {
	group := domain.NewOptionGroup("Color", colors)
	if len(group.Options) < domain.MinOptionValues {
		return
	}
	ctx.AddOptionGroup(group)
}
