package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfsense/backend/internal/domain"
)

const lampPage = `<!doctype html>
<html><head>
<title>ignored</title>
<meta property="og:title" content="Pilar Table Lamp">
<meta property="og:image" content="/img/pilar.jpg?width=800">
<meta property="product:price:amount" content="129.00">
<script type="application/ld+json">
{"@context": "https://schema.org", "@graph": [
  {"@type": "Product", "name": "Pilar Lamp", "brand": {"@type": "Brand", "name": "Article"},
   "offers": {"@type": "Offer", "price": "129.00", "priceCurrency": "USD"}},
  {"@type": "BreadcrumbList", "itemListElement": [
    {"@type": "ListItem", "position": 1, "name": "Lighting"},
    {"@type": "ListItem", "position": 2, "name": "Table Lamps"}]}
]}
</script>
<script type="application/json" id="product-data">{"productType": "Lamp", "colors": ["White", "Black%20Matte"]}</script>
<script>window.__PRELOADED_STATE__ = {"product": {"title": "Pilar Lamp - White", "currentPrice": 119, "variants": [{"id": 1, "public_title": "White"}]}};</script>
</head>
<body><span class="price">$129</span></body>
</html>`

func TestExtractStructuredSignals(t *testing.T) {
	ctx := ExtractStructuredSignals(lampPage, "https://www.article.com/product/pilar")

	assert.Equal(t, "https://www.article.com/product/pilar", ctx.PageURL)

	t.Run("titles from every source, JSON-LD first", func(t *testing.T) {
		require.NotEmpty(t, ctx.TitleCandidates)
		assert.Equal(t, "Pilar Lamp", ctx.TitleCandidates[0])
		assert.Contains(t, ctx.TitleCandidates, "Pilar Table Lamp")
		assert.Contains(t, ctx.TitleCandidates, "Pilar Lamp - White")
	})

	t.Run("brand and currency", func(t *testing.T) {
		assert.Equal(t, []string{"Article"}, ctx.BrandCandidates)
		assert.Equal(t, []string{"USD"}, ctx.CurrencyCandidates)
	})

	t.Run("prices merge without duplicates in source order", func(t *testing.T) {
		assert.Equal(t, []string{"129.00", "119", "$129"}, ctx.PriceCandidates)
	})

	t.Run("category hints from breadcrumbs then product type", func(t *testing.T) {
		assert.Equal(t, []string{"Lighting", "Table Lamps", "Lamp"}, ctx.CategoryHintCandidates)
	})

	t.Run("relative images resolve against the page", func(t *testing.T) {
		assert.Equal(t, []string{"https://www.article.com/img/pilar.jpg"}, ctx.ImageURLCandidates)
	})

	t.Run("color group from application/json", func(t *testing.T) {
		group, ok := ctx.FindOptionGroup("Color")
		require.True(t, ok)
		assert.Equal(t, []string{"White", "Black Matte"}, group.Values())
	})

	t.Run("variants passthrough from script state", func(t *testing.T) {
		assert.Equal(t, `[{"id":1,"public_title":"White"}]`, ctx.RawAttributes["variants"])
	})
}

func TestExtractStructuredSignalsDataAttributes(t *testing.T) {
	markup := `<div data-product-json='{"productName": "Dasher NZ", "vendor": "Allbirds"}'></div>
<span data-color="Natural Black"></span>
<button data-swatch="1" aria-label="Dasher NZ - Blizzard swatch"></button>`

	ctx := ExtractStructuredSignals(markup, "")

	assert.Equal(t, []string{"Dasher NZ"}, ctx.TitleCandidates)
	assert.Equal(t, []string{"Allbirds"}, ctx.BrandCandidates)
	group, ok := ctx.FindOptionGroup("Color")
	require.True(t, ok)
	assert.Equal(t, []string{"Natural Black", "Blizzard"}, group.Values())
}

func TestExtractStructuredSignalsMalformedInput(t *testing.T) {
	markups := []string{
		"",
		"<html>",
		`<script type="application/ld+json">{"name": "broken"</script>`,
		`<script>window.__A__ = {"a": [1, 2</script>`,
		`<meta property="og:title">`,
	}

	for _, markup := range markups {
		ctx := ExtractStructuredSignals(markup, "")
		require.NotNil(t, ctx, markup)
		for _, field := range domain.CandidateFields {
			assert.Empty(t, ctx.Candidates(field), "%s in %q", field, markup)
		}
	}
}

func TestNewStructuredExtractorRejectsBadRules(t *testing.T) {
	rules := DefaultMappingRules()
	rules.KeyRules = append(rules.KeyRules, KeyRule{Key: "gtin", Field: "gtin_candidates"})

	_, err := NewStructuredExtractor(rules, nil)

	assert.ErrorIs(t, err, domain.ErrUnknownCandidateField)
}
