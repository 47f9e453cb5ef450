package extract

import (
	"strings"

	"golang.org/x/net/html"
)

// tagEvent is a start or self-closing tag event. Names and attribute keys are
// lower-cased and attribute values are entity-decoded by the tokenizer.
type tagEvent struct {
	name        string
	attrs       map[string]string
	selfClosing bool
}

func (t tagEvent) attr(key string) string {
	return t.attrs[key]
}

// markupVisitor receives tokenizer events in document order
type markupVisitor interface {
	startTag(tag tagEvent)
	text(text string, raw bool)
	endTag(name string)
}

// walkMarkup streams markup through v. The tokenizer never fails on malformed
// input; it stops at the end of the text.
func walkMarkup(markup string, v markupVisitor) {
	z := html.NewTokenizer(strings.NewReader(markup))
	rawTag := ""

	for {
		switch z.Next() {
		case html.ErrorToken:
			return
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			attrs := make(map[string]string, len(tok.Attr))
			for _, a := range tok.Attr {
				attrs[a.Key] = a.Val
			}
			selfClosing := tok.Type == html.SelfClosingTagToken
			if tok.Data == "script" || tok.Data == "style" {
				rawTag = tok.Data
			}
			v.startTag(tagEvent{name: tok.Data, attrs: attrs, selfClosing: selfClosing})
		case html.TextToken:
			v.text(string(z.Text()), rawTag != "")
		case html.EndTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if tag == rawTag {
				rawTag = ""
			}
			v.endTag(tag)
		}
	}
}

// voidElements never get a matching end tag
var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"source": true, "track": true, "wbr": true,
}

type priceFrame struct {
	tag  string
	text strings.Builder
}

// priceCollector buffers the text of price-bearing elements until their
// matching end tag. Only the innermost open frame can be closed.
type priceCollector struct {
	stack  []*priceFrame
	prices []string
}

func (p *priceCollector) startTag(tag tagEvent) {
	if strings.EqualFold(tag.attr("itemprop"), "price") {
		// machine-readable content wins over visible text
		if content := tag.attr("content"); content != "" {
			p.emit(content)
			return
		}
		p.push(tag)
		return
	}
	if dataPrice := tag.attr("data-price"); dataPrice != "" {
		p.emit(dataPrice)
		return
	}
	if strings.Contains(strings.ToLower(tag.attr("class")), "price") {
		p.push(tag)
	}
}

func (p *priceCollector) push(tag tagEvent) {
	if tag.selfClosing || voidElements[tag.name] {
		return
	}
	p.stack = append(p.stack, &priceFrame{tag: tag.name})
}

func (p *priceCollector) text(text string) {
	for _, frame := range p.stack {
		frame.text.WriteString(text)
	}
}

func (p *priceCollector) endTag(name string) {
	if len(p.stack) == 0 {
		return
	}
	top := p.stack[len(p.stack)-1]
	if top.tag != name {
		return
	}
	p.stack = p.stack[:len(p.stack)-1]
	p.emit(top.text.String())
}

func (p *priceCollector) emit(value string) {
	if value = strings.TrimSpace(value); value != "" {
		p.prices = append(p.prices, value)
	}
}
