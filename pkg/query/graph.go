package query

import (
	"fmt"
	"slices"
	"strings"
)

// Mode selects how the patterns of a GraphQuery combine.
type Mode int

const (
	// ModeAnd requires every pattern to match. A pattern rejected by the
	// optimizer voids the whole query.
	ModeAnd Mode = iota
	// ModeOr skips patterns rejected by the optimizer.
	ModeOr
)

func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "and":
		return ModeAnd, nil
	case "or":
		return ModeOr, nil
	default:
		return ModeAnd, fmt.Errorf("unknown query mode %q", s)
	}
}

func (m Mode) String() string {
	if m == ModeOr {
		return "or"
	}
	return "and"
}

func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Mode) UnmarshalText(text []byte) error {
	mode, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = mode
	return nil
}

// GraphQuery is an ordered list of fact patterns.
type GraphQuery struct {
	Patterns []FactPattern `json:"patterns"`
	Mode     Mode          `json:"mode"`
}

func NewGraphQuery(mode Mode, patterns ...FactPattern) *GraphQuery {
	q := &GraphQuery{Mode: mode}
	for _, p := range patterns {
		q.Add(p)
	}
	return q
}

func (q *GraphQuery) Add(p FactPattern) {
	q.Patterns = append(q.Patterns, p)
}

func (q *GraphQuery) Len() int {
	if q == nil {
		return 0
	}
	return len(q.Patterns)
}

// IsEmpty reports whether q is nil or has no patterns.
func (q *GraphQuery) IsEmpty() bool {
	return q.Len() == 0
}

func (q *GraphQuery) HasVariables() bool {
	if q == nil {
		return false
	}
	for _, p := range q.Patterns {
		if p.HasVariable() {
			return true
		}
	}
	return false
}

// Variables returns the distinct variable names in order of appearance.
func (q *GraphQuery) Variables() []string {
	if q == nil {
		return nil
	}
	var names []string
	for _, p := range q.Patterns {
		for _, n := range p.Variables() {
			if !slices.Contains(names, n) {
				names = append(names, n)
			}
		}
	}
	return names
}

func (q *GraphQuery) Clone() *GraphQuery {
	if q == nil {
		return nil
	}
	c := &GraphQuery{Mode: q.Mode, Patterns: make([]FactPattern, len(q.Patterns))}
	for i, p := range q.Patterns {
		c.Patterns[i] = p.Clone()
	}
	return c
}

// Key encodes the query including pattern order and mode.
func (q *GraphQuery) Key() string {
	if q == nil {
		return ""
	}
	parts := make([]string, 0, len(q.Patterns)+1)
	parts = append(parts, q.Mode.String())
	for _, p := range q.Patterns {
		parts = append(parts, p.Key())
	}
	return strings.Join(parts, " ; ")
}

func (q *GraphQuery) Equal(o *GraphQuery) bool {
	if q == nil || o == nil {
		return q == o
	}
	return q.Key() == o.Key()
}

func (q *GraphQuery) String() string {
	return q.Key()
}
