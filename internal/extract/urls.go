package extract

import (
	"net/url"
	"strings"
)

// defaultResizeParams are CDN query parameters that only change how an image
// is rendered, not which image it is.
var defaultResizeParams = []string{
	"w", "width", "h", "height", "q", "quality", "fit", "crop",
	"auto", "fm", "format", "ixlib", "_mzcb", "dpr",
}

// URLNormalizer canonicalizes image URLs found on product pages
type URLNormalizer struct {
	resizeParams map[string]bool
}

// NewURLNormalizer creates a normalizer stripping the default resize params
// plus any extra ones given.
func NewURLNormalizer(extraParams ...string) *URLNormalizer {
	params := make(map[string]bool, len(defaultResizeParams)+len(extraParams))
	for _, p := range defaultResizeParams {
		params[p] = true
	}
	for _, p := range extraParams {
		params[p] = true
	}
	return &URLNormalizer{resizeParams: params}
}

// Canonicalize absolutizes raw against pageURL, strips resize parameters and
// drops the fragment. Protocol-relative URLs get an https scheme. Input that
// cannot be parsed is returned as is.
func (n *URLNormalizer) Canonicalize(raw, pageURL string) string {
	if raw == "" {
		return raw
	}

	trimmed := strings.TrimSpace(raw)
	u, err := n.resolve(trimmed, pageURL)
	if err != nil {
		return trimmed
	}

	u.RawQuery = n.filterQuery(u.RawQuery)
	u.ForceQuery = false
	u.Fragment = ""
	u.RawFragment = ""
	return u.String()
}

func (n *URLNormalizer) resolve(raw, pageURL string) (*url.URL, error) {
	if strings.HasPrefix(raw, "//") {
		return url.Parse("https:" + raw)
	}
	if pageURL == "" {
		return url.Parse(raw)
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return url.Parse(raw)
	}
	return base.Parse(raw)
}

// filterQuery drops resize keys and re-encodes the remaining pairs in their
// original order. Empty segments are dropped; keys without "=" keep an empty value.
func (n *URLNormalizer) filterQuery(rawQuery string) string {
	if rawQuery == "" {
		return ""
	}

	kept := make([]string, 0, 4)
	for _, segment := range strings.Split(rawQuery, "&") {
		if segment == "" {
			continue
		}
		key, value, _ := strings.Cut(segment, "=")
		key = unescapeQueryPart(key)
		if n.resizeParams[key] {
			continue
		}
		value = unescapeQueryPart(value)
		kept = append(kept, url.QueryEscape(key)+"="+url.QueryEscape(value))
	}
	return strings.Join(kept, "&")
}

func unescapeQueryPart(s string) string {
	unescaped, err := url.QueryUnescape(s)
	if err != nil {
		return s
	}
	return unescaped
}
