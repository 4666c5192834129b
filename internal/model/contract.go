package model

import (
	"errors"
	"fmt"
	"strings"
)

// Defaults applied when the source document omits a field.
const (
	DefaultTitle   = "Generated API"
	DefaultVersion = "1.0.0"
	DefaultBaseURL = "http://localhost:8080"
)

var (
	ErrNoEndpoints     = errors.New("model: contract must declare at least one endpoint")
	ErrDuplicateSchema = errors.New("model: duplicate component schema name")
	ErrNilSchemaEntry  = errors.New("model: component schema must not be nil")
)

// Info carries contract-level metadata.
type Info struct {
	Title       string
	Version     string
	Description string
	BaseURL     string
}

// Contract is the aggregate root of the IR.
type Contract struct {
	info      Info
	endpoints []Endpoint
	schemas   []NamedSchema
}

// NewContract applies defaults, validates invariants and copies all collections.
func NewContract(info Info, endpoints []Endpoint, schemas []NamedSchema) (*Contract, error) {
	if len(endpoints) == 0 {
		return nil, ErrNoEndpoints
	}
	info.Title = firstNonBlank(info.Title, DefaultTitle)
	info.Version = firstNonBlank(info.Version, DefaultVersion)
	info.Description = strings.TrimSpace(info.Description)
	info.BaseURL = firstNonBlank(info.BaseURL, DefaultBaseURL)

	seen := make(map[string]struct{}, len(schemas))
	for _, s := range schemas {
		if s.Schema == nil {
			return nil, fmt.Errorf("%w: %q", ErrNilSchemaEntry, s.Name)
		}
		if _, dup := seen[s.Name]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateSchema, s.Name)
		}
		seen[s.Name] = struct{}{}
	}
	return &Contract{
		info:      info,
		endpoints: append([]Endpoint(nil), endpoints...),
		schemas:   append([]NamedSchema(nil), schemas...),
	}, nil
}

func (c *Contract) Title() string       { return c.info.Title }
func (c *Contract) Version() string     { return c.info.Version }
func (c *Contract) Description() string { return c.info.Description }
func (c *Contract) BaseURL() string     { return c.info.BaseURL }
func (c *Contract) Info() Info          { return c.info }

// Endpoints returns a copy of the endpoint list in declaration order.
func (c *Contract) Endpoints() []Endpoint { return append([]Endpoint(nil), c.endpoints...) }

// Schemas returns a copy of the component schemas in declaration order.
func (c *Contract) Schemas() []NamedSchema { return append([]NamedSchema(nil), c.schemas...) }

func (c *Contract) Schema(name string) (*Schema, bool) {
	for _, s := range c.schemas {
		if s.Name == name {
			return s.Schema, true
		}
	}
	return nil, false
}

func (c *Contract) EndpointCount() int { return len(c.endpoints) }
func (c *Contract) HasSchemas() bool   { return len(c.schemas) > 0 }

// Equal reports structural equality.
func (c *Contract) Equal(o *Contract) bool {
	if c == nil || o == nil {
		return c == o
	}
	if c.info != o.info || len(c.endpoints) != len(o.endpoints) || len(c.schemas) != len(o.schemas) {
		return false
	}
	for i := range c.endpoints {
		if !c.endpoints[i].Equal(o.endpoints[i]) {
			return false
		}
	}
	for i := range c.schemas {
		if c.schemas[i].Name != o.schemas[i].Name || !c.schemas[i].Schema.Equal(o.schemas[i].Schema) {
			return false
		}
	}
	return true
}

func (c *Contract) String() string {
	return fmt.Sprintf("Contract{title=%q version=%q baseUrl=%q endpoints=%d schemas=%d}",
		c.info.Title, c.info.Version, c.info.BaseURL, len(c.endpoints), len(c.schemas))
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
