// Package model holds the contract intermediate representation (IR) produced by the
// translator and the virtual project tree produced by the generator. Values are
// immutable once constructed: constructors copy their inputs and accessors return copies.
package model

import "strings"

// Location is where a parameter travels in an HTTP request.
type Location string

const (
	InPath   Location = "path"
	InQuery  Location = "query"
	InHeader Location = "header"
	InCookie Location = "cookie"
)

// ParseLocation maps an OpenAPI "in" value to a Location, defaulting to query.
func ParseLocation(s string) Location {
	switch Location(strings.ToLower(strings.TrimSpace(s))) {
	case InPath:
		return InPath
	case InHeader:
		return InHeader
	case InCookie:
		return InCookie
	default:
		return InQuery
	}
}

// ScalarType is the resolved semantic type of a parameter or schema.
type ScalarType string

const (
	TypeString  ScalarType = "string"
	TypeInteger ScalarType = "integer"
	TypeLong    ScalarType = "long"
	TypeFloat   ScalarType = "float"
	TypeDouble  ScalarType = "double"
	TypeBoolean ScalarType = "boolean"
	TypeList    ScalarType = "list"
	// TypeObject is the generic object; it is also what unresolved types collapse to.
	TypeObject ScalarType = "object"
)

// Kind is the structural kind of a schema.
type Kind string

const (
	KindObject  Kind = "object"
	KindArray   Kind = "array"
	KindString  Kind = "string"
	KindInteger Kind = "integer"
	KindNumber  Kind = "number"
	KindBoolean Kind = "boolean"
)

// IsPrimitive reports whether k has no children.
func (k Kind) IsPrimitive() bool {
	switch k {
	case KindString, KindInteger, KindNumber, KindBoolean:
		return true
	}
	return false
}

// Method is an HTTP method supported by the IR.
type Method string

const (
	GET     Method = "GET"
	POST    Method = "POST"
	PUT     Method = "PUT"
	PATCH   Method = "PATCH"
	DELETE  Method = "DELETE"
	HEAD    Method = "HEAD"
	OPTIONS Method = "OPTIONS"
)

// ParseMethod is case-insensitive and reports false for methods outside the IR.
func ParseMethod(s string) (Method, bool) {
	m := Method(strings.ToUpper(strings.TrimSpace(s)))
	switch m {
	case GET, POST, PUT, PATCH, DELETE, HEAD, OPTIONS:
		return m, true
	}
	return "", false
}

// AcceptsBody reports whether requests with this method may carry a body.
func (m Method) AcceptsBody() bool {
	switch m {
	case POST, PUT, PATCH, DELETE:
		return true
	}
	return false
}

// NamedSchema pairs a name with a schema; ordered slices of it stand in for ordered maps.
type NamedSchema struct {
	Name   string
	Schema *Schema
}
