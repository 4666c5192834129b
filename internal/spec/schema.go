package spec

import (
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/varnalabs/apitestgen/internal/engineerr"
	"github.com/varnalabs/apitestgen/internal/model"
)

// DefaultMaxDepth bounds schema nesting during conversion.
const DefaultMaxDepth = 64

// converter turns resolved kin-openapi schemas into IR schemas. The loader leaves
// $ref cycles in the object graph as pointer cycles; the IR is a tree, so any
// schema met again on the active path is rejected.
type converter struct {
	order    orderIndex
	maxDepth int
	active   map[*openapi3.Schema]string
	depth    int
}

func newConverter(order orderIndex, maxDepth int) *converter {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &converter{order: order, maxDepth: maxDepth, active: map[*openapi3.Schema]string{}}
}

func (c *converter) convert(ref *openapi3.SchemaRef, name, ptr string) (*model.Schema, error) {
	if ref == nil || ref.Value == nil {
		return model.Placeholder(name), nil
	}
	ptr = at(ref.Ref, ptr)
	s := ref.Value
	if first, seen := c.active[s]; seen {
		return nil, engineerr.Parse(nil, "spec: circular schema reference at %s (first seen at %s)", ptr, first)
	}
	if c.depth >= c.maxDepth {
		return nil, engineerr.Parse(nil, "spec: schema nesting exceeds %d levels at %s", c.maxDepth, ptr)
	}
	c.active[s] = ptr
	c.depth++
	defer func() {
		delete(c.active, s)
		c.depth--
	}()

	typ := strings.ToLower(strings.TrimSpace(s.Type))
	switch {
	case typ == "array":
		items, err := c.convert(s.Items, name+"Item", ptr+"/items")
		if err != nil {
			return nil, err
		}
		return c.build(model.NewArraySchema(name, items, s.Description))
	case len(s.Properties) > 0:
		props, err := c.properties(s, ptr)
		if err != nil {
			return nil, err
		}
		return c.build(model.NewObjectSchema(name, props, s.Description))
	case len(s.AllOf) > 0 && (typ == "" || typ == "object"):
		props, err := c.mergeAllOf(s, name, ptr)
		if err != nil {
			return nil, err
		}
		return c.build(model.NewObjectSchema(name, props, s.Description))
	case typ == "object":
		return c.build(model.NewObjectSchema(name, nil, s.Description))
	}
	if kind, ok := primitiveKind(typ); ok {
		return c.build(model.NewScalarSchema(name, kind, ResolveType(typ, s.Format), s.Description))
	}
	// oneOf/anyOf, absent and unknown types collapse to the generic object.
	return model.Placeholder(name), nil
}

func (c *converter) properties(s *openapi3.Schema, ptr string) ([]model.NamedSchema, error) {
	keys := make([]string, 0, len(s.Properties))
	for k := range s.Properties {
		keys = append(keys, k)
	}
	keys = c.order.ordered(ptr+"/properties", keys)
	out := make([]model.NamedSchema, 0, len(keys))
	for _, k := range keys {
		ps, err := c.convert(s.Properties[k], k, ptr+"/properties/"+escapePointer(k))
		if err != nil {
			return nil, err
		}
		out = append(out, model.NamedSchema{Name: k, Schema: ps})
	}
	return out, nil
}

// mergeAllOf flattens the properties of every member in order. A later member
// replaces an earlier property of the same name in place.
func (c *converter) mergeAllOf(s *openapi3.Schema, name, ptr string) ([]model.NamedSchema, error) {
	var out []model.NamedSchema
	index := map[string]int{}
	for i, member := range s.AllOf {
		ms, err := c.convert(member, name, ptr+"/allOf/"+strconv.Itoa(i))
		if err != nil {
			return nil, err
		}
		for _, p := range ms.Properties() {
			if j, ok := index[p.Name]; ok {
				out[j] = p
				continue
			}
			index[p.Name] = len(out)
			out = append(out, p)
		}
	}
	return out, nil
}

func (c *converter) build(s *model.Schema, err error) (*model.Schema, error) {
	if err != nil {
		return nil, engineerr.Parse(err, "spec: %v", err)
	}
	return s, nil
}
