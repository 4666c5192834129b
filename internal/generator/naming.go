package generator

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/varnalabs/apitestgen/internal/model"
)

const (
	// FallbackProjectBase replaces a title that yields nothing usable.
	FallbackProjectBase = "api"
	// RootGroup collects endpoints without a usable first path segment.
	RootGroup = "root"
)

var (
	nonAlnumLower = regexp.MustCompile(`[^a-z0-9]+`)
	nonAlnum      = regexp.MustCompile(`[^A-Za-z0-9]+`)
	javaIdent     = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)
)

var javaKeywords = map[string]struct{}{
	"abstract": {}, "assert": {}, "boolean": {}, "break": {}, "byte": {}, "case": {}, "catch": {},
	"char": {}, "class": {}, "const": {}, "continue": {}, "default": {}, "do": {}, "double": {},
	"else": {}, "enum": {}, "extends": {}, "false": {}, "final": {}, "finally": {}, "float": {},
	"for": {}, "goto": {}, "if": {}, "implements": {}, "import": {}, "instanceof": {}, "int": {},
	"interface": {}, "long": {}, "native": {}, "new": {}, "null": {}, "package": {}, "private": {},
	"protected": {}, "public": {}, "return": {}, "short": {}, "static": {}, "strictfp": {},
	"super": {}, "switch": {}, "synchronized": {}, "this": {}, "throw": {}, "throws": {},
	"transient": {}, "true": {}, "try": {}, "void": {}, "volatile": {}, "while": {}, "_": {},
}

// ProjectName derives the artifact name from an API title: lower-cased, runs of
// anything outside [a-z0-9] collapsed to "-", then suffix appended.
func ProjectName(title, suffix string) string {
	base := strings.Trim(nonAlnumLower.ReplaceAllString(strings.ToLower(title), "-"), "-")
	if base == "" {
		base = FallbackProjectBase
	}
	return base + suffix
}

// GroupKey is the first non-empty path segment with braces stripped, lower-cased.
func GroupKey(path string) string {
	for _, seg := range strings.Split(path, "/") {
		if strings.TrimSpace(seg) == "" {
			continue
		}
		key := strings.ToLower(strings.NewReplacer("{", "", "}", "").Replace(seg))
		if strings.TrimSpace(key) == "" {
			return RootGroup
		}
		return key
	}
	return RootGroup
}

// ClassName converts a name such as "order-items" or "pet_store" to a PascalCase
// Java class name. Names starting with a digit get a leading underscore.
func ClassName(name string) string {
	var b strings.Builder
	for _, part := range nonAlnum.Split(name, -1) {
		b.WriteString(capitalise(part))
	}
	out := b.String()
	if out == "" {
		return "Unnamed"
	}
	if unicode.IsDigit(rune(out[0])) {
		out = "_" + out
	}
	return out
}

// TestMethodName is "test" plus the PascalCase operation id.
func TestMethodName(operationID string) string {
	var b strings.Builder
	for _, part := range nonAlnum.Split(operationID, -1) {
		b.WriteString(capitalise(part))
	}
	if b.Len() == 0 {
		return "testUnknownOperation"
	}
	return "test" + b.String()
}

// FieldName turns a property name into a Java field name. Valid identifiers are
// kept as they are; anything else is camel-cased.
func FieldName(property string) string {
	name := property
	if !javaIdent.MatchString(name) {
		parts := nonAlnum.Split(property, -1)
		var b strings.Builder
		for _, p := range parts {
			if p == "" {
				continue
			}
			if b.Len() == 0 {
				b.WriteString(lowerFirst(p))
				continue
			}
			b.WriteString(capitalise(p))
		}
		name = b.String()
		if name == "" {
			name = "field"
		}
		if unicode.IsDigit(rune(name[0])) {
			name = "_" + name
		}
	}
	if _, reserved := javaKeywords[name]; reserved {
		name += "_"
	}
	return name
}

// JavaType maps a resolved type to the Java type used in generated code.
func JavaType(t model.ScalarType) string {
	switch t {
	case model.TypeString:
		return "String"
	case model.TypeInteger:
		return "Integer"
	case model.TypeLong:
		return "Long"
	case model.TypeFloat:
		return "Float"
	case model.TypeDouble:
		return "Double"
	case model.TypeBoolean:
		return "Boolean"
	case model.TypeList:
		return "List<Object>"
	default:
		return "Object"
	}
}

// Placeholder is the literal passed for a parameter of type t in a generated test.
func Placeholder(t model.ScalarType) string {
	switch t {
	case model.TypeString:
		return `"test-value"`
	case model.TypeInteger:
		return "1"
	case model.TypeLong:
		return "1L"
	case model.TypeFloat:
		return "1.0f"
	case model.TypeDouble:
		return "1.0"
	case model.TypeBoolean:
		return "true"
	default:
		return "null"
	}
}

// ValidPackage reports whether pkg is a dotted Java package name.
func ValidPackage(pkg string) bool {
	if pkg == "" {
		return false
	}
	for _, seg := range strings.Split(pkg, ".") {
		if !javaIdent.MatchString(seg) {
			return false
		}
		if _, reserved := javaKeywords[seg]; reserved {
			return false
		}
	}
	return true
}

// uniqueName returns name, or name with the smallest numeric suffix not yet used.
func uniqueName(name string, used map[string]struct{}) string {
	out := name
	for i := 2; ; i++ {
		if _, taken := used[out]; !taken {
			used[out] = struct{}{}
			return out
		}
		out = name + strconv.Itoa(i)
	}
}

func capitalise(s string) string {
	if s == "" {
		return ""
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func lowerFirst(s string) string {
	if s == "" {
		return ""
	}
	return strings.ToLower(s[:1]) + s[1:]
}
