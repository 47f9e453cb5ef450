package domain

import "context"

// ProductRepository persists assembled product records keyed by stable id
type ProductRepository interface {
	Get(ctx context.Context, id string) (*Product, error)
	Save(ctx context.Context, id string, product *Product) error
	List(ctx context.Context) (map[string]*Product, error)
}

// Message is one turn of a structured-generation prompt
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// StructuredGenerator is the external service that turns a prompt into a JSON
// document satisfying the Product contract.
type StructuredGenerator interface {
	Generate(ctx context.Context, messages []Message) ([]byte, error)
}
