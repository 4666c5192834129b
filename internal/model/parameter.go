package model

import (
	"errors"
	"fmt"
	"strings"
)

var ErrBlankParameterName = errors.New("model: parameter name must not be blank")

// Parameter is one request parameter declared by an endpoint.
type Parameter struct {
	name        string
	location    Location
	typ         ScalarType
	required    bool
	description string
}

// NewParameter validates and builds a Parameter. Path parameters are always required.
func NewParameter(name string, location Location, typ ScalarType, required bool, description string) (Parameter, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Parameter{}, ErrBlankParameterName
	}
	if location == "" {
		location = InQuery
	}
	if typ == "" {
		typ = TypeString
	}
	if location == InPath {
		required = true
	}
	return Parameter{
		name:        name,
		location:    location,
		typ:         typ,
		required:    required,
		description: strings.TrimSpace(description),
	}, nil
}

func (p Parameter) Name() string        { return p.name }
func (p Parameter) Location() Location  { return p.location }
func (p Parameter) Type() ScalarType    { return p.typ }
func (p Parameter) Required() bool      { return p.required }
func (p Parameter) Description() string { return p.description }

func (p Parameter) String() string {
	return fmt.Sprintf("Parameter{name=%q in=%s type=%s required=%t}", p.name, p.location, p.typ, p.required)
}
