// Package spec translates OpenAPI 3.0 documents into the contract IR.
//
// Parsing and $ref resolution are delegated to kin-openapi. The raw text is also
// decoded once with yaml.v3 to recover the declaration order of paths, properties,
// media types and responses, which Go maps do not preserve.
package spec

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/varnalabs/apitestgen/internal/diag"
	"github.com/varnalabs/apitestgen/internal/engineerr"
	"github.com/varnalabs/apitestgen/internal/model"
)

const preferredMedia = "application/json"

// Options configures translation.
type Options struct {
	// Strict turns document validation problems into ParseFailures instead of warnings.
	Strict bool
	// MaxDepth bounds schema nesting; zero means DefaultMaxDepth.
	MaxDepth int
}

// Translator converts raw OpenAPI documents into contracts. It holds no per-call
// state and is safe for concurrent use.
type Translator struct {
	opts Options
	log  *diag.Logger
}

// NewTranslator returns a Translator logging to log (nil discards).
func NewTranslator(log *diag.Logger, opts Options) *Translator {
	if log == nil {
		log = diag.Discard()
	}
	return &Translator{opts: opts, log: log}
}

// Translate parses raw and returns the contract it describes. Every failure,
// including unexpected panics inside the parser, is reported as a ParseFailure.
func (t *Translator) Translate(ctx context.Context, raw []byte, correlationID string) (c *model.Contract, err error) {
	log := t.log.With(correlationID)
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("parser panic: %v", r)
			c, err = nil, engineerr.Parse(fmt.Errorf("panic: %v", r), "spec: failed to parse document: %v", r)
		}
	}()

	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, engineerr.Parse(nil, "spec: document is empty")
	}
	if !utf8.Valid(raw) {
		return nil, engineerr.Parse(nil, "spec: document is not valid UTF-8 text")
	}
	doc, err := decodeDocument(raw)
	if err != nil {
		return nil, engineerr.Parse(err, "spec: %v", err)
	}
	if err := doc.dialect(); err != nil {
		return nil, engineerr.Parse(err, "spec: %v", err)
	}

	loader := openapi3.NewLoader()
	loader.IsExternalRefsAllowed = false
	loader.Context = ctx
	api, err := loader.LoadFromData(raw)
	if err != nil {
		return nil, engineerr.Parse(err, "spec: failed to parse document: %v", err)
	}
	if verr := api.Validate(ctx); verr != nil {
		if t.opts.Strict {
			return nil, engineerr.Parse(verr, "spec: document is invalid: %v", verr)
		}
		log.Warnf("document failed validation, continuing: %v", verr)
	}
	if api.Info == nil {
		return nil, engineerr.Parse(nil, "spec: document has no info section")
	}
	if len(api.Paths) == 0 {
		return nil, engineerr.Parse(nil, "spec: document declares no paths")
	}

	tr := &translation{
		ctx:  ctx,
		log:  log,
		doc:  doc,
		conv: newConverter(doc.order, t.opts.MaxDepth),
	}
	contract, err := tr.contract(api)
	if err != nil {
		return nil, err
	}
	log.Infof("translated %q %s: %d endpoints, %d schemas", contract.Title(), contract.Version(), contract.EndpointCount(), len(contract.Schemas()))
	return contract, nil
}

// translation carries the state of one Translate call.
type translation struct {
	ctx  context.Context
	log  *diag.Logger
	doc  *document
	conv *converter
}

func (tr *translation) contract(api *openapi3.T) (*model.Contract, error) {
	info := model.Info{
		Title:       api.Info.Title,
		Version:     api.Info.Version,
		Description: api.Info.Description,
		BaseURL:     baseURL(api.Servers),
	}

	schemas, err := tr.components(api.Components)
	if err != nil {
		return nil, err
	}

	pathKeys := make([]string, 0, len(api.Paths))
	for p := range api.Paths {
		pathKeys = append(pathKeys, p)
	}
	var endpoints []model.Endpoint
	for _, p := range tr.doc.order.ordered("/paths", pathKeys) {
		if err := tr.ctx.Err(); err != nil {
			return nil, engineerr.Parse(err, "spec: translation cancelled: %v", err)
		}
		item := api.Paths[p]
		if item == nil {
			continue
		}
		eps, err := tr.pathItem(p, item)
		if err != nil {
			return nil, err
		}
		endpoints = append(endpoints, eps...)
	}

	c, err := model.NewContract(info, endpoints, schemas)
	if err != nil {
		return nil, engineerr.Parse(err, "spec: %v", err)
	}
	return c, nil
}

func (tr *translation) components(comp *openapi3.Components) ([]model.NamedSchema, error) {
	if comp == nil || len(comp.Schemas) == 0 {
		return nil, nil
	}
	keys := make([]string, 0, len(comp.Schemas))
	for k := range comp.Schemas {
		keys = append(keys, k)
	}
	out := make([]model.NamedSchema, 0, len(keys))
	for _, name := range tr.doc.order.ordered("/components/schemas", keys) {
		s, err := tr.conv.convert(comp.Schemas[name], name, "/components/schemas/"+escapePointer(name))
		if err != nil {
			return nil, err
		}
		out = append(out, model.NamedSchema{Name: name, Schema: s})
	}
	return out, nil
}

func (tr *translation) pathItem(path string, item *openapi3.PathItem) ([]model.Endpoint, error) {
	ops := []struct {
		m model.Method
		o *openapi3.Operation
	}{
		{model.GET, item.Get},
		{model.POST, item.Post},
		{model.PUT, item.Put},
		{model.DELETE, item.Delete},
		{model.PATCH, item.Patch},
		{model.HEAD, item.Head},
		{model.OPTIONS, item.Options},
	}
	if item.Trace != nil {
		tr.log.Debugf("skipping TRACE %s", path)
	}

	var out []model.Endpoint
	for _, pair := range ops {
		if pair.o == nil {
			continue
		}
		ep, err := tr.endpoint(path, pair.m, item, pair.o)
		if err != nil {
			return nil, err
		}
		tr.log.Debugf("endpoint %s", ep)
		out = append(out, ep)
	}
	return out, nil
}

func (tr *translation) endpoint(path string, m model.Method, item *openapi3.PathItem, op *openapi3.Operation) (model.Endpoint, error) {
	opPtr := "/paths/" + escapePointer(path) + "/" + strings.ToLower(string(m))

	opID := strings.TrimSpace(op.OperationID)
	if opID == "" {
		opID = SynthesizeOperationID(m, path)
	}

	params, err := tr.parameters(path, m, item.Parameters, op.Parameters)
	if err != nil {
		return model.Endpoint{}, err
	}

	body, err := tr.requestBody(path, m, op.RequestBody, opPtr+"/requestBody")
	if err != nil {
		return model.Endpoint{}, err
	}

	responses, statuses, err := tr.responses(op.Responses, opPtr+"/responses")
	if err != nil {
		return model.Endpoint{}, err
	}

	ep, err := model.NewEndpoint(model.EndpointInput{
		Path:        path,
		Method:      m,
		Summary:     op.Summary,
		OperationID: opID,
		Parameters:  params,
		RequestBody: body,
		Responses:   responses,
		Statuses:    statuses,
	})
	if err != nil {
		return model.Endpoint{}, engineerr.Parse(err, "spec: %s %s: %v", m, path, err)
	}
	return ep, nil
}

// parameters merges path-item and operation parameters. An operation parameter with
// the same location and name replaces the path-item one at its position.
func (tr *translation) parameters(path string, m model.Method, base, own openapi3.Parameters) ([]model.Parameter, error) {
	type key struct {
		in   model.Location
		name string
	}
	var merged []*openapi3.Parameter
	index := map[key]int{}
	add := func(refs openapi3.Parameters) {
		for _, ref := range refs {
			if ref == nil || ref.Value == nil {
				continue
			}
			p := ref.Value
			if strings.TrimSpace(p.Name) == "" {
				tr.log.Warnf("%s %s: skipping parameter with blank name", m, path)
				continue
			}
			k := key{model.ParseLocation(p.In), strings.TrimSpace(p.Name)}
			if i, ok := index[k]; ok {
				merged[i] = p
				continue
			}
			index[k] = len(merged)
			merged = append(merged, p)
		}
	}
	add(base)
	add(own)

	out := make([]model.Parameter, 0, len(merged))
	for _, p := range merged {
		mp, err := model.NewParameter(p.Name, model.ParseLocation(p.In), parameterType(p), p.Required, p.Description)
		if err != nil {
			return nil, engineerr.Parse(err, "spec: %s %s: %v", m, path, err)
		}
		out = append(out, mp)
	}
	return out, nil
}

// parameterType resolves the type from the schema, or from the preferred media type
// when the parameter is declared through content. Parameters without either are strings.
func parameterType(p *openapi3.Parameter) model.ScalarType {
	ref := p.Schema
	if ref == nil && len(p.Content) > 0 {
		if mt, ok := p.Content[preferredMedia]; ok && mt != nil {
			ref = mt.Schema
		} else {
			for _, mime := range sortedKeys(p.Content) {
				if mt := p.Content[mime]; mt != nil && mt.Schema != nil {
					ref = mt.Schema
					break
				}
			}
		}
	}
	if ref == nil || ref.Value == nil {
		return model.TypeString
	}
	return ResolveType(ref.Value.Type, ref.Value.Format)
}

func (tr *translation) requestBody(path string, m model.Method, ref *openapi3.RequestBodyRef, ptr string) (*model.Schema, error) {
	if ref == nil || ref.Value == nil || len(ref.Value.Content) == 0 {
		return nil, nil
	}
	if !m.AcceptsBody() {
		tr.log.Warnf("%s %s: dropping request body, %s requests do not carry one", m, path, m)
		return nil, nil
	}
	ptr = at(ref.Ref, ptr) + "/content"
	mime, mt := tr.preferredMedia(ref.Value.Content, ptr)
	if mt == nil || mt.Schema == nil {
		return nil, nil
	}
	return tr.conv.convert(mt.Schema, schemaName(mt.Schema, "RequestBody"), ptr+"/"+escapePointer(mime)+"/schema")
}

// responses returns the responses that declare a body schema, and every declared
// status code, both in declaration order.
func (tr *translation) responses(responses openapi3.Responses, ptr string) ([]model.Response, []string, error) {
	if len(responses) == 0 {
		return nil, nil, nil
	}
	codes := make([]string, 0, len(responses))
	for code := range responses {
		codes = append(codes, code)
	}
	codes = tr.doc.order.ordered(ptr, codes)
	var out []model.Response
	for _, code := range codes {
		ref := responses[code]
		if ref == nil || ref.Value == nil || len(ref.Value.Content) == 0 {
			continue
		}
		contentPtr := at(ref.Ref, ptr+"/"+escapePointer(code)) + "/content"
		mime, mt := tr.preferredMedia(ref.Value.Content, contentPtr)
		if mt == nil || mt.Schema == nil {
			continue
		}
		s, err := tr.conv.convert(mt.Schema, schemaName(mt.Schema, "Response_"+code), contentPtr+"/"+escapePointer(mime)+"/schema")
		if err != nil {
			return nil, nil, err
		}
		out = append(out, model.Response{Status: code, Schema: s})
	}
	return out, codes, nil
}

// preferredMedia picks application/json when declared, otherwise the first media
// type in declaration order.
func (tr *translation) preferredMedia(content openapi3.Content, ptr string) (string, *openapi3.MediaType) {
	if mt, ok := content[preferredMedia]; ok && mt != nil {
		return preferredMedia, mt
	}
	keys := make([]string, 0, len(content))
	for k := range content {
		keys = append(keys, k)
	}
	for _, k := range tr.doc.order.ordered(ptr, keys) {
		if mt := content[k]; mt != nil {
			return k, mt
		}
	}
	return "", nil
}

// schemaName names a body or response schema after the component it references.
func schemaName(ref *openapi3.SchemaRef, fallback string) string {
	if ref != nil && ref.Ref != "" {
		if n := refName(ref.Ref); n != "" {
			return n
		}
	}
	return fallback
}

// baseURL is the first server URL with declared variables replaced by their
// defaults. A missing, blank or "/" URL yields the default.
func baseURL(servers openapi3.Servers) string {
	if len(servers) == 0 || servers[0] == nil {
		return model.DefaultBaseURL
	}
	s := servers[0]
	u := strings.TrimSpace(s.URL)
	if u == "" || u == "/" {
		return model.DefaultBaseURL
	}
	for name, v := range s.Variables {
		if v == nil || v.Default == "" {
			continue
		}
		u = strings.ReplaceAll(u, "{"+name+"}", v.Default)
	}
	return u
}

func sortedKeys(content openapi3.Content) []string {
	keys := make([]string, 0, len(content))
	for k := range content {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
