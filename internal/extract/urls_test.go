package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestURLNormalizerCanonicalize(t *testing.T) {
	n := NewURLNormalizer()

	tests := []struct {
		name     string
		raw      string
		pageURL  string
		expected string
	}{
		{
			name:     "protocol-relative gets https",
			raw:      "//cdn.example.com/img.jpg?w=200&v=3",
			expected: "https://cdn.example.com/img.jpg?v=3",
		},
		{
			name:     "protocol-relative ignores page url",
			raw:      "//cdn.example.com/img.jpg",
			pageURL:  "http://shop.example.com/p/1",
			expected: "https://cdn.example.com/img.jpg",
		},
		{
			name:     "relative path resolved against page",
			raw:      "/images/p.jpg?width=100#zoom",
			pageURL:  "https://shop.example.com/products/lamp",
			expected: "https://shop.example.com/images/p.jpg",
		},
		{
			name:     "sibling path resolved against page",
			raw:      "p.jpg",
			pageURL:  "https://shop.example.com/products/lamp",
			expected: "https://shop.example.com/products/p.jpg",
		},
		{
			name:     "strips every resize parameter",
			raw:      "https://cdn.example.com/a.jpg?fm=webp&q=80&fit=crop&crop=faces&auto=format&ixlib=rb&dpr=2&_mzcb=1&h=10&height=10&quality=1&format=png",
			expected: "https://cdn.example.com/a.jpg",
		},
		{
			name:     "keeps remaining parameters in order",
			raw:      "https://cdn.example.com/a.jpg?z=1&w=5&a=2",
			expected: "https://cdn.example.com/a.jpg?z=1&a=2",
		},
		{
			name:     "re-encodes kept values",
			raw:      "https://cdn.example.com/a.jpg?tag=red%20shoes",
			expected: "https://cdn.example.com/a.jpg?tag=red+shoes",
		},
		{
			name:     "keys without a value keep an empty value",
			raw:      "https://cdn.example.com/a.jpg?v",
			expected: "https://cdn.example.com/a.jpg?v=",
		},
		{
			name:     "trims whitespace",
			raw:      "  https://cdn.example.com/a.jpg  ",
			expected: "https://cdn.example.com/a.jpg",
		},
		{
			name:     "empty input stays empty",
			raw:      "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, n.Canonicalize(tt.raw, tt.pageURL))
		})
	}
}

func TestURLNormalizerIsIdempotent(t *testing.T) {
	n := NewURLNormalizer()

	inputs := []string{
		"https://cdn.example.com/a.jpg?v=3",
		"https://cdn.example.com/a.jpg?tag=red%20shoes&w=10",
		"//cdn.example.com/b.png?width=200#top",
	}
	for _, raw := range inputs {
		once := n.Canonicalize(raw, "")
		assert.Equal(t, once, n.Canonicalize(once, ""), raw)
	}
}

func TestURLNormalizerExtraParams(t *testing.T) {
	n := NewURLNormalizer("sw", "sh")

	assert.Equal(t,
		"https://images.example.com/shoe.jpg?id=9",
		n.Canonicalize("https://images.example.com/shoe.jpg?sw=100&id=9&sh=100", ""))
}
