package spec

import (
	"strings"

	"github.com/varnalabs/apitestgen/internal/model"
)

// ResolveType maps an OpenAPI (type, format) pair to the IR's semantic type.
//
//	string  (any format)      -> string
//	integer                   -> integer
//	integer + int64           -> long
//	number  + float           -> float
//	number  (double or none)  -> double
//	boolean                   -> boolean
//	array                     -> list
//	object / absent / other   -> object
func ResolveType(typ, format string) model.ScalarType {
	format = strings.ToLower(strings.TrimSpace(format))
	switch strings.ToLower(strings.TrimSpace(typ)) {
	case "string":
		return model.TypeString
	case "integer":
		if format == "int64" {
			return model.TypeLong
		}
		return model.TypeInteger
	case "number":
		if format == "float" {
			return model.TypeFloat
		}
		return model.TypeDouble
	case "boolean":
		return model.TypeBoolean
	case "array":
		return model.TypeList
	default:
		return model.TypeObject
	}
}

// primitiveKind reports the structural kind of a primitive OpenAPI type.
func primitiveKind(typ string) (model.Kind, bool) {
	switch strings.ToLower(strings.TrimSpace(typ)) {
	case "string":
		return model.KindString, true
	case "integer":
		return model.KindInteger, true
	case "number":
		return model.KindNumber, true
	case "boolean":
		return model.KindBoolean, true
	}
	return "", false
}
