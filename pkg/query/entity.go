package query

import (
	"fmt"
	"regexp"
	"strings"
)

// TypeVariable is the entity type marking an unbound query slot.
const TypeVariable = "Variable"

var reVariable = regexp.MustCompile(`^\?([A-Za-z][A-Za-z0-9_]*)(?:\(([A-Za-z][A-Za-z0-9_]*)\))?$`)

// VariableRef is the parsed form of a variable id such as ?X or ?X(Drug).
// Type is empty for untyped variables.
type VariableRef struct {
	Name string
	Type string
}

// ParseVariable parses ?Name or ?Name(Type).
func ParseVariable(id string) (VariableRef, error) {
	m := reVariable.FindStringSubmatch(strings.TrimSpace(id))
	if m == nil {
		return VariableRef{}, fmt.Errorf("%w: %q", ErrMalformedVariableSyntax, id)
	}
	return VariableRef{Name: m[1], Type: m[2]}, nil
}

func (v VariableRef) String() string {
	if v.Type == "" {
		return "?" + v.Name
	}
	return "?" + v.Name + "(" + v.Type + ")"
}

// Entity is a concrete entity or a variable. Entities are comparable and are
// used directly as map keys; the variable reference is derived from ID once
// in NewEntity.
type Entity struct {
	ID   string `json:"id"`
	Type string `json:"type"`

	Var VariableRef `json:"-"`
}

// NewEntity builds an entity. Ids starting with '?' and entities of type
// Variable are parsed as variable references.
func NewEntity(id, entityType string) (Entity, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Entity{}, fmt.Errorf("entity id is empty")
	}
	if entityType != TypeVariable && !strings.HasPrefix(id, "?") {
		if entityType == "" {
			return Entity{}, fmt.Errorf("entity %q has no type", id)
		}
		return Entity{ID: id, Type: entityType}, nil
	}

	ref, err := ParseVariable(id)
	if err != nil {
		return Entity{}, err
	}
	return Entity{ID: ref.String(), Type: TypeVariable, Var: ref}, nil
}

// MustEntity is NewEntity for literals known to be valid.
func MustEntity(id, entityType string) Entity {
	e, err := NewEntity(id, entityType)
	if err != nil {
		panic(err)
	}
	return e
}

func (e Entity) IsVariable() bool {
	return e.Type == TypeVariable
}

// Less orders entities by id, then type.
func (e Entity) Less(o Entity) bool {
	if e.ID != o.ID {
		return e.ID < o.ID
	}
	return e.Type < o.Type
}

func (e Entity) String() string {
	if e.IsVariable() {
		return e.ID
	}
	return e.ID + ":" + e.Type
}
