package model

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMissingItems      = errors.New("model: array schema requires an item schema")
	ErrNotPrimitive      = errors.New("model: scalar schema requires a primitive kind")
	ErrDuplicateProperty = errors.New("model: duplicate property name")
)

// Schema is a recursive description of a data shape. Schemas form a tree: the IR
// cannot represent cycles, so every reference is materialized before construction.
type Schema struct {
	name        string
	kind        Kind
	typ         ScalarType
	props       []NamedSchema
	items       *Schema
	description string
}

// Placeholder is the minimal object schema substituted for an absent schema.
func Placeholder(name string) *Schema {
	return &Schema{name: name, kind: KindObject, typ: TypeObject}
}

// NewObjectSchema builds an object schema with properties in the given order.
func NewObjectSchema(name string, props []NamedSchema, description string) (*Schema, error) {
	seen := make(map[string]struct{}, len(props))
	cp := make([]NamedSchema, 0, len(props))
	for _, p := range props {
		if _, dup := seen[p.Name]; dup {
			return nil, fmt.Errorf("%w: %q in %q", ErrDuplicateProperty, p.Name, name)
		}
		seen[p.Name] = struct{}{}
		s := p.Schema
		if s == nil {
			s = Placeholder(p.Name)
		}
		cp = append(cp, NamedSchema{Name: p.Name, Schema: s})
	}
	return &Schema{
		name:        name,
		kind:        KindObject,
		typ:         TypeObject,
		props:       cp,
		description: strings.TrimSpace(description),
	}, nil
}

// NewArraySchema builds an array schema; items is mandatory.
func NewArraySchema(name string, items *Schema, description string) (*Schema, error) {
	if items == nil {
		return nil, fmt.Errorf("%w: %q", ErrMissingItems, name)
	}
	return &Schema{
		name:        name,
		kind:        KindArray,
		typ:         TypeList,
		items:       items,
		description: strings.TrimSpace(description),
	}, nil
}

// NewScalarSchema builds a primitive schema.
func NewScalarSchema(name string, kind Kind, typ ScalarType, description string) (*Schema, error) {
	if !kind.IsPrimitive() {
		return nil, fmt.Errorf("%w: %q has kind %q", ErrNotPrimitive, name, kind)
	}
	return &Schema{
		name:        name,
		kind:        kind,
		typ:         typ,
		description: strings.TrimSpace(description),
	}, nil
}

func (s *Schema) Name() string        { return s.name }
func (s *Schema) Kind() Kind          { return s.kind }
func (s *Schema) Type() ScalarType    { return s.typ }
func (s *Schema) Items() *Schema      { return s.items }
func (s *Schema) Description() string { return s.description }

// Properties returns a copy of the ordered property list.
func (s *Schema) Properties() []NamedSchema {
	return append([]NamedSchema(nil), s.props...)
}

// Property looks up a property by name.
func (s *Schema) Property(name string) (*Schema, bool) {
	for _, p := range s.props {
		if p.Name == name {
			return p.Schema, true
		}
	}
	return nil, false
}

func (s *Schema) HasProperties() bool { return len(s.props) > 0 }

// IsObject reports whether s is an object with at least one property, i.e. something
// worth emitting a data-model class for.
func (s *Schema) IsObject() bool { return s.kind == KindObject && len(s.props) > 0 }

func (s *Schema) IsArray() bool { return s.kind == KindArray }

// Equal reports structural equality, recursively.
func (s *Schema) Equal(o *Schema) bool {
	if s == nil || o == nil {
		return s == o
	}
	if s.name != o.name || s.kind != o.kind || s.typ != o.typ || s.description != o.description {
		return false
	}
	if len(s.props) != len(o.props) {
		return false
	}
	for i := range s.props {
		if s.props[i].Name != o.props[i].Name || !s.props[i].Schema.Equal(o.props[i].Schema) {
			return false
		}
	}
	return s.items.Equal(o.items)
}

func (s *Schema) String() string {
	return fmt.Sprintf("Schema{name=%q kind=%s type=%s properties=%d array=%t}", s.name, s.kind, s.typ, len(s.props), s.IsArray())
}
