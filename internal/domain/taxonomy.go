package domain

import (
	"sort"
	"strings"
)

// Taxonomy is the closed category vocabulary, loaded once at startup and
// passed explicitly to the components that rank or validate categories.
// It is immutable after construction.
type Taxonomy struct {
	labels []string
	set    map[string]struct{}
}

// NewTaxonomy builds a taxonomy from labels, trimming them and dropping blanks
// and duplicates. Labels are kept in sorted order.
func NewTaxonomy(labels []string) *Taxonomy {
	set := make(map[string]struct{}, len(labels))
	for _, label := range labels {
		label = strings.TrimSpace(label)
		if label == "" {
			continue
		}
		set[label] = struct{}{}
	}

	sorted := make([]string, 0, len(set))
	for label := range set {
		sorted = append(sorted, label)
	}
	sort.Strings(sorted)

	return &Taxonomy{labels: sorted, set: set}
}

// Labels returns a copy of the sorted labels
func (t *Taxonomy) Labels() []string {
	if t == nil {
		return nil
	}
	out := make([]string, len(t.labels))
	copy(out, t.labels)
	return out
}

// Contains reports whether label is in the taxonomy
func (t *Taxonomy) Contains(label string) bool {
	if t == nil {
		return false
	}
	_, ok := t.set[label]
	return ok
}

// Len returns the number of labels
func (t *Taxonomy) Len() int {
	if t == nil {
		return 0
	}
	return len(t.labels)
}
