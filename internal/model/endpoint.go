package model

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrBlankPath        = errors.New("model: endpoint path must not be blank")
	ErrInvalidMethod    = errors.New("model: unsupported HTTP method")
	ErrBlankOperationID = errors.New("model: operation id must not be blank")
	ErrUnexpectedBody   = errors.New("model: method does not accept a request body")
	ErrDuplicateStatus  = errors.New("model: duplicate response status")
)

// Response is the body schema declared for one status code.
type Response struct {
	Status string
	Schema *Schema
}

// EndpointInput carries the fields of an Endpoint to its constructor.
type EndpointInput struct {
	Path        string
	Method      Method
	Summary     string
	OperationID string
	Parameters  []Parameter
	RequestBody *Schema
	Responses   []Response
	// Statuses lists every declared status code, including those without a body.
	Statuses []string
}

// Endpoint is one HTTP method + path combination.
type Endpoint struct {
	path        string
	method      Method
	summary     string
	operationID string
	params      []Parameter
	body        *Schema
	responses   []Response
	statuses    []string
}

// NewEndpoint validates in and builds an Endpoint.
func NewEndpoint(in EndpointInput) (Endpoint, error) {
	path := strings.TrimSpace(in.Path)
	if path == "" {
		return Endpoint{}, ErrBlankPath
	}
	m, ok := ParseMethod(string(in.Method))
	if !ok {
		return Endpoint{}, fmt.Errorf("%w: %q", ErrInvalidMethod, in.Method)
	}
	opID := strings.TrimSpace(in.OperationID)
	if opID == "" {
		return Endpoint{}, fmt.Errorf("%w: %s %s", ErrBlankOperationID, m, path)
	}
	if in.RequestBody != nil && !m.AcceptsBody() {
		return Endpoint{}, fmt.Errorf("%w: %s %s", ErrUnexpectedBody, m, path)
	}
	seen := make(map[string]struct{}, len(in.Responses))
	responses := make([]Response, 0, len(in.Responses))
	for _, r := range in.Responses {
		if _, dup := seen[r.Status]; dup {
			return Endpoint{}, fmt.Errorf("%w: %s on %s %s", ErrDuplicateStatus, r.Status, m, path)
		}
		seen[r.Status] = struct{}{}
		if r.Schema == nil {
			continue
		}
		responses = append(responses, r)
	}
	statuses := make([]string, 0, len(in.Statuses)+len(in.Responses))
	listed := make(map[string]struct{}, cap(statuses))
	for _, st := range in.Statuses {
		if _, ok := listed[st]; !ok {
			listed[st] = struct{}{}
			statuses = append(statuses, st)
		}
	}
	for _, r := range in.Responses {
		if _, ok := listed[r.Status]; !ok {
			listed[r.Status] = struct{}{}
			statuses = append(statuses, r.Status)
		}
	}
	return Endpoint{
		path:        path,
		method:      m,
		summary:     strings.TrimSpace(in.Summary),
		operationID: opID,
		params:      append([]Parameter(nil), in.Parameters...),
		body:        in.RequestBody,
		responses:   responses,
		statuses:    statuses,
	}, nil
}

func (e Endpoint) Path() string         { return e.path }
func (e Endpoint) Method() Method       { return e.method }
func (e Endpoint) Summary() string      { return e.summary }
func (e Endpoint) OperationID() string  { return e.operationID }
func (e Endpoint) RequestBody() *Schema { return e.body }

// Parameters returns a copy of the declared parameters in order.
func (e Endpoint) Parameters() []Parameter { return append([]Parameter(nil), e.params...) }

// Responses returns a copy of the declared responses in order.
func (e Endpoint) Responses() []Response { return append([]Response(nil), e.responses...) }

func (e Endpoint) HasRequestBody() bool { return e.body != nil }

func (e Endpoint) HasPathParameters() bool {
	for _, p := range e.params {
		if p.location == InPath {
			return true
		}
	}
	return false
}

// ParametersIn returns the parameters with the given location, in declaration order.
func (e Endpoint) ParametersIn(loc Location) []Parameter {
	var out []Parameter
	for _, p := range e.params {
		if p.location == loc {
			out = append(out, p)
		}
	}
	return out
}

// Response returns the schema declared for status.
func (e Endpoint) Response(status string) (*Schema, bool) {
	for _, r := range e.responses {
		if r.Status == status {
			return r.Schema, true
		}
	}
	return nil, false
}

// Statuses returns every declared status code, with or without a body schema.
func (e Endpoint) Statuses() []string { return append([]string(nil), e.statuses...) }

// DeclaresStatus reports whether the source declared status, even without a body.
func (e Endpoint) DeclaresStatus(status string) bool {
	for _, st := range e.statuses {
		if st == status {
			return true
		}
	}
	return false
}

// Equal reports structural equality.
func (e Endpoint) Equal(o Endpoint) bool {
	if e.path != o.path || e.method != o.method || e.summary != o.summary || e.operationID != o.operationID {
		return false
	}
	if !e.body.Equal(o.body) || len(e.params) != len(o.params) || len(e.responses) != len(o.responses) || len(e.statuses) != len(o.statuses) {
		return false
	}
	for i := range e.statuses {
		if e.statuses[i] != o.statuses[i] {
			return false
		}
	}
	for i := range e.params {
		if e.params[i] != o.params[i] {
			return false
		}
	}
	for i := range e.responses {
		if e.responses[i].Status != o.responses[i].Status || !e.responses[i].Schema.Equal(o.responses[i].Schema) {
			return false
		}
	}
	return true
}

func (e Endpoint) String() string {
	return fmt.Sprintf("Endpoint{%s %s operationId=%q params=%d body=%t responses=%d}",
		e.method, e.path, e.operationID, len(e.params), e.HasRequestBody(), len(e.responses))
}
