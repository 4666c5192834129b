package spec

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// maxIndexDepth stops the index walk on pathological nesting.
const maxIndexDepth = 512

// Alias expansion may grow the document to aliasRatio times its literal node
// count plus aliasSlack nodes before it is rejected.
const (
	aliasRatio = 4
	aliasSlack = 100_000
)

var errExcessiveAliasing = errors.New("excessive aliasing")

// orderIndex maps a JSON pointer to the mapping keys found there, in the order
// they appear in the source text. kin-openapi decodes mappings into Go maps, so
// this is the only place declaration order survives.
type orderIndex map[string][]string

// document is the raw text decoded once with yaml.v3.
type document struct {
	root  *yaml.Node
	order orderIndex
}

func decodeDocument(raw []byte) (*document, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	root := &doc
	if root.Kind == yaml.DocumentNode {
		if len(root.Content) == 0 {
			return nil, fmt.Errorf("parse document: empty document")
		}
		root = root.Content[0]
	}
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("parse document: top level must be a mapping")
	}
	if err := checkAliasing(root); err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	ix := orderIndex{}
	ix.walk(root, "", 0)
	return &document{root: root, order: ix}, nil
}

func (ix orderIndex) walk(n *yaml.Node, ptr string, depth int) {
	if n == nil || depth > maxIndexDepth {
		return
	}
	switch n.Kind {
	case yaml.MappingNode:
		keys := make([]string, 0, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			k := n.Content[i].Value
			keys = append(keys, k)
			ix.walk(n.Content[i+1], ptr+"/"+escapePointer(k), depth+1)
		}
		ix[ptr] = keys
	case yaml.SequenceNode:
		for i, c := range n.Content {
			ix.walk(c, ptr+"/"+strconv.Itoa(i), depth+1)
		}
	case yaml.AliasNode:
		ix.walk(n.Alias, ptr, depth+1)
	}
}

// checkAliasing rejects documents whose aliases expand far beyond their text, such
// as nested anchor chains that double at every level.
func checkAliasing(root *yaml.Node) error {
	literal := countNodes(root)
	limit := aliasRatio*literal + aliasSlack
	if expandedNodes(root, map[*yaml.Node]int{}, limit) > limit {
		return fmt.Errorf("%w: aliases expand beyond %d nodes", errExcessiveAliasing, limit)
	}
	return nil
}

func countNodes(n *yaml.Node) int {
	if n == nil {
		return 0
	}
	total := 1
	for _, c := range n.Content {
		total += countNodes(c)
	}
	return total
}

// expandedNodes counts the nodes under n with every alias followed. Subtree sizes
// are memoised so shared anchors are measured once; the count saturates at limit+1.
func expandedNodes(n *yaml.Node, memo map[*yaml.Node]int, limit int) int {
	if n == nil {
		return 0
	}
	if v, ok := memo[n]; ok {
		return v
	}
	total := 1
	if n.Kind == yaml.AliasNode {
		total += expandedNodes(n.Alias, memo, limit)
	}
	for _, c := range n.Content {
		total += expandedNodes(c, memo, limit)
		if total > limit {
			break
		}
	}
	if total > limit {
		total = limit + 1
	}
	memo[n] = total
	return total
}

// ordered returns keys arranged in declaration order for the mapping at ptr. Keys
// the index does not know about follow in lexical order.
func (ix orderIndex) ordered(ptr string, keys []string) []string {
	want := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		want[k] = struct{}{}
	}
	out := make([]string, 0, len(keys))
	for _, k := range ix[ptr] {
		if _, ok := want[k]; ok {
			out = append(out, k)
			delete(want, k)
		}
	}
	rest := make([]string, 0, len(want))
	for k := range want {
		rest = append(rest, k)
	}
	sort.Strings(rest)
	return append(out, rest...)
}

// scalar returns the string value of a top-level key.
func (d *document) scalar(key string) (string, bool) {
	for i := 0; i+1 < len(d.root.Content); i += 2 {
		if d.root.Content[i].Value == key {
			v := d.root.Content[i+1]
			if v.Kind == yaml.ScalarNode {
				return v.Value, true
			}
			return "", true
		}
	}
	return "", false
}

// dialect checks the version marker. Only OpenAPI 3.0.x is accepted; 3.1 changes
// the schema vocabulary (type arrays, null) in ways the 3.0 model cannot represent.
func (d *document) dialect() error {
	if v, ok := d.scalar("openapi"); ok {
		v = strings.TrimSpace(v)
		if v == "3.0" || strings.HasPrefix(v, "3.0.") {
			return nil
		}
		if strings.HasPrefix(v, "3.") {
			return fmt.Errorf("OpenAPI %s documents are not supported; only 3.0.x is", v)
		}
		return fmt.Errorf("unsupported OpenAPI version %q (expected 3.0.x)", v)
	}
	if v, ok := d.scalar("swagger"); ok {
		return fmt.Errorf("Swagger %s documents are not supported; convert to OpenAPI 3.0 first", strings.TrimSpace(v))
	}
	return fmt.Errorf("missing version marker (expected 'openapi: 3.0.x')")
}

func escapePointer(s string) string {
	s = strings.ReplaceAll(s, "~", "~0")
	return strings.ReplaceAll(s, "/", "~1")
}

// refPointer converts an internal "#/a/b" reference to the pointer "/a/b".
func refPointer(ref string) (string, bool) {
	if strings.HasPrefix(ref, "#/") {
		return ref[1:], true
	}
	return "", false
}

// refName is the last segment of an internal reference, e.g. "Pet" for
// "#/components/schemas/Pet".
func refName(ref string) string {
	if i := strings.LastIndex(ref, "/"); i >= 0 {
		ref = ref[i+1:]
	}
	ref = strings.ReplaceAll(ref, "~1", "/")
	return strings.ReplaceAll(ref, "~0", "~")
}

// at returns the pointer to use for a node that may have been reached through ref.
func at(ref, fallback string) string {
	if p, ok := refPointer(ref); ok {
		return p
	}
	return fallback
}
