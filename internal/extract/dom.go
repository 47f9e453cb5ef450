package extract

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/shelfsense/backend/internal/domain"
)

// Dimensions that belong to page chrome rather than the product: image
// carousels, geography pickers, quantity steppers.
var nonProductDimensions = map[string]bool{
	"Thumbnail": true,
	"Carousel":  true,
	"Country":   true,
	"Quantity":  true,
	"Qty":       true,
	"State":     true,
	"Language":  true,
}

var (
	// "Size Option: Large", "Item Option: Regular"
	optionLabelPattern = regexp.MustCompile(`(?i)^(.+?)\s+Option:\s+(.+)$`)

	// "Select size 8.5"
	selectLabelPattern = regexp.MustCompile(`(?i)^Select\s+(\w+)\s+(.+)$`)
)

const availabilityAttribute = "dom_availability"

// ExtractDOMSignals enriches ctx with signals from the visible page structure:
// price text, option groups announced through aria-labels and schema.org
// availability. It only adds to ctx. pageURL is currently unused.
func ExtractDOMSignals(markup string, ctx *domain.CandidateContext, pageURL string) {
	if ctx == nil {
		return
	}

	s := &domScanner{caser: cases.Title(language.Und)}
	walkMarkup(markup, s)

	_ = ctx.AddCandidates(domain.FieldPrice, s.prices.prices)
	s.applyOptionGroups(ctx)
	if s.availability != "" {
		ctx.AddRawAttribute(availabilityAttribute, s.availability)
	}
}

type optionSignal struct {
	dimension string
	value     string
}

type domScanner struct {
	caser            cases.Caser
	prices           priceCollector
	options          []optionSignal
	availability     string
	availabilitySeen bool
}

func (s *domScanner) startTag(tag tagEvent) {
	s.prices.startTag(tag)
	s.collectOption(tag)
	s.collectAvailability(tag)
}

func (s *domScanner) text(text string, raw bool) {
	if !raw {
		s.prices.text(text)
	}
}

func (s *domScanner) endTag(name string) {
	s.prices.endTag(name)
}

func (s *domScanner) collectOption(tag tagEvent) {
	label := strings.TrimSpace(tag.attr("aria-label"))
	if label == "" {
		return
	}

	m := optionLabelPattern.FindStringSubmatch(label)
	if m == nil {
		m = selectLabelPattern.FindStringSubmatch(label)
	}
	if m == nil {
		return
	}

	dimension := s.caser.String(strings.TrimSpace(m[1]))
	value := strings.TrimSpace(m[2])
	s.options = append(s.options, optionSignal{dimension: dimension, value: value})
}

func (s *domScanner) collectAvailability(tag tagEvent) {
	if s.availabilitySeen || !strings.EqualFold(tag.attr("itemprop"), "availability") {
		return
	}
	content := strings.TrimSpace(tag.attr("content"))
	if content == "" {
		return
	}
	s.availabilitySeen = true
	// https://schema.org/InStock -> InStock
	if strings.Contains(content, "schema.org/") {
		content = content[strings.LastIndex(content, "/")+1:]
	}
	s.availability = content
}

// applyOptionGroups groups option signals by dimension in first-seen order and
// adds every non-chrome dimension that has at least two distinct values.
func (s *domScanner) applyOptionGroups(ctx *domain.CandidateContext) {
	var order []string
	grouped := make(map[string][]string)
	for _, signal := range s.options {
		if nonProductDimensions[signal.dimension] {
			continue
		}
		if _, ok := grouped[signal.dimension]; !ok {
			order = append(order, signal.dimension)
		}
		grouped[signal.dimension] = append(grouped[signal.dimension], signal.value)
	}

	for _, dimension := range order {
		group := domain.NewOptionGroup(dimension, grouped[dimension])
		if len(group.Options) < domain.MinOptionValues {
			continue
		}
		ctx.AddOptionGroup(group)
	}
}
