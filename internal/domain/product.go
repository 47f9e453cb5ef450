package domain

// Price is a product price. CompareAtPrice is the original price when on sale.
type Price struct {
	Price          float64  `json:"price" validate:"gte=0"`
	Currency       string   `json:"currency" validate:"required"`
	CompareAtPrice *float64 `json:"compare_at_price,omitempty"`
}

// Category is a label from the taxonomy
type Category struct {
	Name string `json:"name" validate:"required"`
}

// Variant is one purchasable combination of option values
type Variant struct {
	Name       string            `json:"name" validate:"required"`
	Attributes map[string]string `json:"attributes"`
}

// Offer is one merchant's listing of a product
type Offer struct {
	Merchant     string `json:"merchant,omitempty"`
	SourceURL    string `json:"source_url,omitempty"`
	Price        *Price `json:"price,omitempty"`
	Availability string `json:"availability,omitempty"`
}

// MatchEvidence records how one signal scored for a pair of products
type MatchEvidence struct {
	Signal  string         `json:"signal"`
	Score   float64        `json:"score"`
	Matched bool           `json:"matched"`
	Details map[string]any `json:"details"`
}

// MatchDecision is the resolver's verdict against the best-matching other record
type MatchDecision struct {
	CandidateProductID *string         `json:"candidate_product_id"`
	Matched            bool            `json:"matched"`
	Confidence         float64         `json:"confidence"`
	Threshold          float64         `json:"threshold"`
	Evidence           []MatchEvidence `json:"evidence"`
}

// Product is an assembled product record
type Product struct {
	Name        string    `json:"name" validate:"required"`
	Price       Price     `json:"price"`
	Description string    `json:"description"`
	KeyFeatures []string  `json:"key_features"`
	ImageURLs   []string  `json:"image_urls" validate:"dive,required"`
	VideoURL    *string   `json:"video_url,omitempty"`
	Category    Category  `json:"category"`
	Brand       string    `json:"brand"`
	Colors      []string  `json:"colors"`
	Variants    []Variant `json:"variants" validate:"max=50,dive"`
	Offers      []Offer   `json:"offers,omitempty"`

	CanonicalProductID *string        `json:"canonical_product_id"`
	MatchDecision      *MatchDecision `json:"match_decision"`
}

// ProductSummary is the catalog list view of a product
type ProductSummary struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Brand    string  `json:"brand"`
	Price    Price   `json:"price"`
	Category string  `json:"category"`
	ImageURL *string `json:"image_url"`
}

// Summary builds the list view of p under id
func (p *Product) Summary(id string) ProductSummary {
	summary := ProductSummary{
		ID:       id,
		Name:     p.Name,
		Brand:    p.Brand,
		Price:    p.Price,
		Category: p.Category.Name,
	}
	if len(p.ImageURLs) > 0 {
		first := p.ImageURLs[0]
		summary.ImageURL = &first
	}
	return summary
}

// Clone returns a deep copy of p
func (p *Product) Clone() *Product {
	if p == nil {
		return nil
	}
	out := *p
	out.Price = p.Price.clone()
	out.KeyFeatures = cloneStrings(p.KeyFeatures)
	out.ImageURLs = cloneStrings(p.ImageURLs)
	out.Colors = cloneStrings(p.Colors)
	if p.VideoURL != nil {
		v := *p.VideoURL
		out.VideoURL = &v
	}
	if p.Variants != nil {
		out.Variants = make([]Variant, len(p.Variants))
		for i, v := range p.Variants {
			attrs := make(map[string]string, len(v.Attributes))
			for k, a := range v.Attributes {
				attrs[k] = a
			}
			out.Variants[i] = Variant{Name: v.Name, Attributes: attrs}
		}
	}
	if p.Offers != nil {
		out.Offers = make([]Offer, len(p.Offers))
		for i, o := range p.Offers {
			out.Offers[i] = o
			if o.Price != nil {
				price := o.Price.clone()
				out.Offers[i].Price = &price
			}
		}
	}
	if p.CanonicalProductID != nil {
		id := *p.CanonicalProductID
		out.CanonicalProductID = &id
	}
	if p.MatchDecision != nil {
		out.MatchDecision = p.MatchDecision.clone()
	}
	return &out
}

func (p Price) clone() Price {
	out := p
	if p.CompareAtPrice != nil {
		v := *p.CompareAtPrice
		out.CompareAtPrice = &v
	}
	return out
}

func (d *MatchDecision) clone() *MatchDecision {
	out := *d
	if d.CandidateProductID != nil {
		id := *d.CandidateProductID
		out.CandidateProductID = &id
	}
	out.Evidence = make([]MatchEvidence, len(d.Evidence))
	for i, e := range d.Evidence {
		details := make(map[string]any, len(e.Details))
		for k, v := range e.Details {
			details[k] = v
		}
		out.Evidence[i] = MatchEvidence{Signal: e.Signal, Score: e.Score, Matched: e.Matched, Details: details}
	}
	return &out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
