package query

import "fmt"

// EntityRequest is the JSON form of an entity. Variables are given as ids
// like "?X(Drug)", optionally with type "Variable".
type EntityRequest struct {
	ID   string `json:"id" validate:"required"`
	Type string `json:"type"`
}

type PatternRequest struct {
	Subjects  []EntityRequest `json:"subjects" validate:"required,min=1,dive"`
	Predicate string          `json:"predicate" validate:"required"`
	Objects   []EntityRequest `json:"objects" validate:"required,min=1,dive"`
}

// Request is the JSON form of a GraphQuery as accepted by the HTTP API and
// the command line.
type Request struct {
	Patterns   []PatternRequest `json:"patterns" validate:"required,min=1,dive"`
	Mode       string           `json:"mode" validate:"omitempty,oneof=and or AND OR"`
	Collection string           `json:"collection"`
}

// Build turns the request into a GraphQuery. Errors wrap
// ErrMalformedVariableSyntax or ErrMixedVariableSlot where applicable.
func (r Request) Build() (*GraphQuery, error) {
	mode, err := ParseMode(r.Mode)
	if err != nil {
		return nil, err
	}
	q := NewGraphQuery(mode)
	for i, p := range r.Patterns {
		subjects, err := buildSlot(p.Subjects)
		if err != nil {
			return nil, fmt.Errorf("pattern %d: %w", i, err)
		}
		objects, err := buildSlot(p.Objects)
		if err != nil {
			return nil, fmt.Errorf("pattern %d: %w", i, err)
		}
		pattern, err := NewFactPattern(subjects, p.Predicate, objects)
		if err != nil {
			return nil, fmt.Errorf("pattern %d: %w", i, err)
		}
		q.Add(pattern)
	}
	return q, nil
}

func buildSlot(in []EntityRequest) ([]Entity, error) {
	out := make([]Entity, 0, len(in))
	for _, e := range in {
		entity, err := NewEntity(e.ID, e.Type)
		if err != nil {
			return nil, err
		}
		out = append(out, entity)
	}
	return out, nil
}
