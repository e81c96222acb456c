package query

import (
	"slices"
	"strings"
)

// DocumentMetadata is the bibliographic information attached to a result.
type DocumentMetadata struct {
	Title   string `json:"title"`
	Authors string `json:"authors"`
	Journal string `json:"journal"`
	Year    int    `json:"year"`
}

// DocumentResult is one result row: a document together with one consistent
// variable binding and the provenance ids that justify each pattern.
type DocumentResult struct {
	DocumentID int64             `json:"document_id"`
	Collection string            `json:"document_collection"`
	Metadata   *DocumentMetadata `json:"metadata,omitempty"`
	Bindings   map[string]Entity `json:"variable_bindings,omitempty"`
	// Provenance maps the pattern index to sorted provenance ids.
	Provenance map[int][]int64 `json:"provenance"`
}

// BindingKey encodes the bindings in variable name order.
func (r DocumentResult) BindingKey() string {
	if len(r.Bindings) == 0 {
		return ""
	}
	names := make([]string, 0, len(r.Bindings))
	for n := range r.Bindings {
		names = append(names, n)
	}
	slices.Sort(names)
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = n + "=" + r.Bindings[n].String()
	}
	return strings.Join(parts, ",")
}

// SortResults orders rows by document id descending, then collection and
// binding key ascending, so pagination over the slice is stable.
func SortResults(rs []DocumentResult) {
	slices.SortStableFunc(rs, func(a, b DocumentResult) int {
		switch {
		case a.DocumentID > b.DocumentID:
			return -1
		case a.DocumentID < b.DocumentID:
			return 1
		}
		if c := strings.Compare(a.Collection, b.Collection); c != 0 {
			return c
		}
		return strings.Compare(a.BindingKey(), b.BindingKey())
	})
}
