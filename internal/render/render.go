// Package render turns typed contexts into file contents using text/template.
//
// Templates ship embedded in the binary and may be overridden per file from an
// operator-supplied directory. Compiled templates are kept in an injected cache.
package render

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"text/template"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/varnalabs/apitestgen/internal/engineerr"
)

//go:embed templates/*.tmpl
var embedded embed.FS

// TemplateID names one of the templates the generator knows about.
type TemplateID string

const (
	ProjectDescriptor  TemplateID = "project-descriptor"
	SuiteConfiguration TemplateID = "suite-configuration"
	BaseFixture        TemplateID = "base-fixture"
	DataModel          TemplateID = "data-model"
	TestClass          TemplateID = "test-class"
)

var templateFiles = map[TemplateID]string{
	ProjectDescriptor:  "pom.xml.tmpl",
	SuiteConfiguration: "testng.xml.tmpl",
	BaseFixture:        "base_test.java.tmpl",
	DataModel:          "model.java.tmpl",
	TestClass:          "test_class.java.tmpl",
}

// IDs returns every known template id in a stable order.
func IDs() []TemplateID {
	return []TemplateID{ProjectDescriptor, SuiteConfiguration, BaseFixture, DataModel, TestClass}
}

// FileName reports the template file backing id.
func FileName(id TemplateID) (string, bool) {
	name, ok := templateFiles[id]
	return name, ok
}

// Renderer renders the template id with data.
type Renderer interface {
	Render(id TemplateID, data any) (string, error)
}

// Cache stores compiled templates. Implementations must be safe for concurrent use.
// *lru.Cache[TemplateID, *template.Template] satisfies it.
type Cache interface {
	Get(id TemplateID) (*template.Template, bool)
	Add(id TemplateID, t *template.Template) bool
}

// DefaultCacheSize comfortably holds every template.
const DefaultCacheSize = 64

// NewLRUCache returns the default thread-safe cache.
func NewLRUCache(size int) (Cache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	c, err := lru.New[TemplateID, *template.Template](size)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Engine is the text/template Renderer. It is safe for concurrent use: racing
// first compiles of the same template are redundant but harmless.
type Engine struct {
	sources []fs.FS
	cache   Cache
	funcs   template.FuncMap
}

// Option configures an Engine.
type Option func(*Engine)

// WithDir makes templates in dir take precedence over the embedded ones. Files
// missing from dir fall back to the embedded copy.
func WithDir(dir string) Option {
	return func(e *Engine) {
		if dir != "" {
			e.sources = append([]fs.FS{os.DirFS(dir)}, e.sources...)
		}
	}
}

// WithFS replaces every template source with fsys.
func WithFS(fsys fs.FS) Option { return func(e *Engine) { e.sources = []fs.FS{fsys} } }

// WithCache injects the compiled-template cache.
func WithCache(c Cache) Option { return func(e *Engine) { e.cache = c } }

// NewEngine builds an Engine reading the embedded templates.
func NewEngine(opts ...Option) (*Engine, error) {
	sub, err := fs.Sub(embedded, "templates")
	if err != nil {
		return nil, err
	}
	e := &Engine{sources: []fs.FS{sub}, funcs: funcMap()}
	for _, opt := range opts {
		opt(e)
	}
	if e.cache == nil {
		c, err := NewLRUCache(DefaultCacheSize)
		if err != nil {
			return nil, err
		}
		e.cache = c
	}
	return e, nil
}

// Render executes the template id with data. Every failure is a TemplateFailure.
func (e *Engine) Render(id TemplateID, data any) (string, error) {
	tpl, err := e.compiled(id)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		return "", engineerr.Template(err, "render: execute template %s: %v", id, err)
	}
	return buf.String(), nil
}

func (e *Engine) compiled(id TemplateID) (*template.Template, error) {
	if tpl, ok := e.cache.Get(id); ok {
		return tpl, nil
	}
	name, ok := templateFiles[id]
	if !ok {
		return nil, engineerr.Template(nil, "render: unknown template %q", id)
	}
	text, err := e.read(name)
	if err != nil {
		return nil, engineerr.Template(err, "render: load template %s (%s): %v", id, name, err)
	}
	tpl, err := template.New(name).Option("missingkey=error").Funcs(e.funcs).Parse(string(text))
	if err != nil {
		return nil, engineerr.Template(err, "render: parse template %s: %v", id, err)
	}
	e.cache.Add(id, tpl)
	return tpl, nil
}

func (e *Engine) read(name string) ([]byte, error) {
	for _, src := range e.sources {
		b, err := fs.ReadFile(src, name)
		if err == nil {
			return b, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w: %s", fs.ErrNotExist, name)
}
