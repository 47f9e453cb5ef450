package domain

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddCandidates(t *testing.T) {
	t.Run("keeps first-seen order across overlapping merges", func(t *testing.T) {
		ctx := NewCandidateContext("")

		require.NoError(t, ctx.AddCandidates(FieldTitle, []string{"B", "A", "B"}))
		require.NoError(t, ctx.AddCandidates(FieldTitle, []string{"C", "A", "D", "B"}))

		assert.Equal(t, []string{"B", "A", "C", "D"}, ctx.TitleCandidates)
	})

	t.Run("trims values and drops blanks", func(t *testing.T) {
		ctx := NewCandidateContext("")

		require.NoError(t, ctx.AddCandidates(FieldPrice, []string{"  129.00 ", "", "   ", "129.00", "\t$129\n"}))

		assert.Equal(t, []string{"129.00", "$129"}, ctx.PriceCandidates)
	})

	t.Run("is case-sensitive", func(t *testing.T) {
		ctx := NewCandidateContext("")

		require.NoError(t, ctx.AddCandidates(FieldBrand, []string{"Nike", "NIKE", "nike"}))

		assert.Equal(t, []string{"Nike", "NIKE", "nike"}, ctx.BrandCandidates)
	})

	t.Run("rejects unknown fields", func(t *testing.T) {
		ctx := NewCandidateContext("")

		err := ctx.AddCandidates(CandidateField("color_candidates"), []string{"Red"})

		assert.True(t, errors.Is(err, ErrUnknownCandidateField))
	})

	t.Run("every declared field is addressable", func(t *testing.T) {
		ctx := NewCandidateContext("")
		for _, field := range CandidateFields {
			require.NoError(t, ctx.AddCandidates(field, []string{string(field)}))
			assert.Equal(t, []string{string(field)}, ctx.Candidates(field))
		}
	})
}

func TestAddOptionGroup(t *testing.T) {
	t.Run("merges case-insensitive dimensions into one group", func(t *testing.T) {
		ctx := NewCandidateContext("")

		ctx.AddOptionGroup(NewOptionGroup("Size", []string{"Small", "Medium"}))
		ctx.AddOptionGroup(NewOptionGroup("size", []string{"Medium", "Large"}))

		require.Len(t, ctx.OptionGroupCandidates, 1)
		group := ctx.OptionGroupCandidates[0]
		assert.Equal(t, "Size", group.Dimension)
		assert.Equal(t, []string{"Small", "Medium", "Large"}, group.Values())
	})

	t.Run("drops groups with fewer than two values", func(t *testing.T) {
		ctx := NewCandidateContext("")

		ctx.AddOptionGroup(NewOptionGroup("Size", []string{"Large"}))
		ctx.AddOptionGroup(NewOptionGroup("Color", []string{"Red", "Red", " "}))

		assert.Empty(t, ctx.OptionGroupCandidates)
	})

	t.Run("a merge may add a single value to an existing group", func(t *testing.T) {
		ctx := NewCandidateContext("")

		ctx.AddOptionGroup(NewOptionGroup("Color", []string{"Red", "Blue"}))
		ctx.AddOptionGroup(NewOptionGroup("COLOR", []string{"Green"}))

		group, ok := ctx.FindOptionGroup("color")
		require.True(t, ok)
		assert.Equal(t, []string{"Red", "Blue", "Green"}, group.Values())
	})
}

func TestAddRawAttribute(t *testing.T) {
	ctx := NewCandidateContext("")

	ctx.AddRawAttribute("sku", "A-1")
	ctx.AddRawAttribute("inStock", true)
	ctx.AddRawAttribute("rating", json.Number("4.5"))
	ctx.AddRawAttribute("nested", map[string]any{"a": 1})
	ctx.AddRawAttribute("sku", "A-2")

	assert.Equal(t, "A-2", ctx.RawAttributes["sku"])
	assert.Equal(t, true, ctx.RawAttributes["inStock"])
	assert.Equal(t, json.Number("4.5"), ctx.RawAttributes["rating"])
	assert.NotContains(t, ctx.RawAttributes, "nested")
}

func TestCandidateContextJSON(t *testing.T) {
	ctx := NewCandidateContext("https://example.com/p")
	require.NoError(t, ctx.AddCandidates(FieldTitle, []string{"Lamp"}))

	data, err := json.Marshal(ctx)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "https://example.com/p", decoded["page_url"])
	assert.Equal(t, []any{"Lamp"}, decoded["title_candidates"])
	assert.Equal(t, []any{}, decoded["brand_candidates"])
}
