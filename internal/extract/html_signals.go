package extract

import (
	"html"
	"regexp"
	"strings"
)

// ScriptSignal is one <script> element: its attributes and entity-decoded body
type ScriptSignal struct {
	Attrs map[string]string
	Body  string
}

// Type returns the normalized type attribute of the script
func (s ScriptSignal) Type() string {
	return strings.ToLower(strings.TrimSpace(s.Attrs["type"]))
}

// MetaSignal is a key/content pair from a <meta> tag or microdata element.
// Keys are lower-cased.
type MetaSignal struct {
	Key     string
	Content string
}

// DataPayload is a JSON object or array decoded from a data-* attribute
type DataPayload struct {
	Attribute string
	Value     *Value
}

// HTMLSignals holds the signal streams produced by one scan of a page
type HTMLSignals struct {
	Scripts      []ScriptSignal
	Meta         []MetaSignal
	DataPayloads []DataPayload
	Colors       []string
	Prices       []string
}

// payloadAttributes are the data-* keys whose values may carry product JSON
var payloadAttributes = []string{
	"data-product",
	"data-product-json",
	"data-variants",
	"data-options",
	"data-json",
}

const (
	colorAttribute  = "data-color"
	swatchAttribute = "data-swatch"
)

// Matches aria-labels like "Dasher NZ - Natural Black swatch"
var swatchLabelPattern = regexp.MustCompile(`(?i)^(.+?)\s+-\s+(.+?)\s+swatch$`)

// ScanHTMLSignals makes a single pass over markup and collects script bodies,
// meta signals, data-* payloads, colors and price strings. Malformed or empty
// markup yields empty streams.
func ScanHTMLSignals(markup string) *HTMLSignals {
	s := &signalScanner{}
	walkMarkup(markup, s)
	s.signals.Prices = s.prices.prices
	return &s.signals
}

type signalScanner struct {
	signals HTMLSignals
	prices  priceCollector

	scriptAttrs map[string]string
	scriptBody  strings.Builder
}

func (s *signalScanner) startTag(tag tagEvent) {
	if tag.name == "script" {
		s.scriptAttrs = tag.attrs
		s.scriptBody.Reset()
		return
	}

	s.prices.startTag(tag)
	s.collectMeta(tag)
	s.collectPayloads(tag)
	s.collectColors(tag)
}

func (s *signalScanner) text(text string, raw bool) {
	if s.scriptAttrs != nil {
		s.scriptBody.WriteString(text)
		return
	}
	if !raw {
		s.prices.text(text)
	}
}

func (s *signalScanner) endTag(name string) {
	if name == "script" {
		if s.scriptAttrs != nil {
			body := html.UnescapeString(strings.TrimSpace(s.scriptBody.String()))
			s.signals.Scripts = append(s.signals.Scripts, ScriptSignal{Attrs: s.scriptAttrs, Body: body})
			s.scriptAttrs = nil
		}
		return
	}
	s.prices.endTag(name)
}

func (s *signalScanner) collectMeta(tag tagEvent) {
	var key string
	if tag.name == "meta" {
		key = firstNonBlank(tag.attr("property"), tag.attr("name"), tag.attr("itemprop"))
	} else {
		// on other elements only microdata counts; name= is too common
		key = strings.TrimSpace(tag.attr("itemprop"))
	}

	content := strings.TrimSpace(tag.attr("content"))
	if key == "" || content == "" {
		return
	}
	s.signals.Meta = append(s.signals.Meta, MetaSignal{Key: strings.ToLower(key), Content: content})
}

func (s *signalScanner) collectPayloads(tag tagEvent) {
	for _, key := range payloadAttributes {
		raw, ok := tag.attrs[key]
		if !ok {
			continue
		}
		if v := parseJSONContainer(strings.TrimSpace(raw)); v != nil {
			s.signals.DataPayloads = append(s.signals.DataPayloads, DataPayload{Attribute: key, Value: v})
		}
	}
}

func (s *signalScanner) collectColors(tag tagEvent) {
	if color := strings.TrimSpace(tag.attr(colorAttribute)); color != "" {
		s.signals.Colors = append(s.signals.Colors, color)
	}

	if _, ok := tag.attrs[swatchAttribute]; !ok {
		return
	}
	label := strings.TrimSpace(tag.attr("aria-label"))
	if m := swatchLabelPattern.FindStringSubmatch(label); m != nil {
		if color := strings.TrimSpace(m[2]); color != "" {
			s.signals.Colors = append(s.signals.Colors, color)
		}
	}
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
