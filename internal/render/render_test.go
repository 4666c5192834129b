package render

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"testing/fstest"
	"text/template"

	"github.com/varnalabs/apitestgen/internal/engineerr"
)

// countingCache wraps the LRU cache and counts compiles.
type countingCache struct {
	Cache
	mu   sync.Mutex
	adds int
}

func (c *countingCache) Add(id TemplateID, t *template.Template) bool {
	c.mu.Lock()
	c.adds++
	c.mu.Unlock()
	return c.Cache.Add(id, t)
}

func newCountingCache(t *testing.T) *countingCache {
	t.Helper()
	inner, err := NewLRUCache(0)
	if err != nil {
		t.Fatalf("cache: %v", err)
	}
	return &countingCache{Cache: inner}
}

func TestEmbeddedTemplatesExist(t *testing.T) {
	t.Parallel()
	for _, id := range IDs() {
		name, ok := FileName(id)
		if !ok {
			t.Fatalf("no file for %s", id)
		}
		if _, err := embedded.ReadFile("templates/" + name); err != nil {
			t.Errorf("embedded template %s: %v", name, err)
		}
	}
}

func TestRender_CompilesOnce(t *testing.T) {
	t.Parallel()
	cache := newCountingCache(t)
	fsys := fstest.MapFS{"testng.xml.tmpl": {Data: []byte(`suite={{xml .Name}}`)}}
	e, err := NewEngine(WithFS(fsys), WithCache(cache))
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	for i := 0; i < 3; i++ {
		got, err := e.Render(SuiteConfiguration, map[string]string{"Name": "a<b"})
		if err != nil {
			t.Fatalf("render: %v", err)
		}
		if got != "suite=a&lt;b" {
			t.Fatalf("got %q", got)
		}
	}
	if cache.adds != 1 {
		t.Fatalf("expected one compile, got %d", cache.adds)
	}
}

func TestRender_ConcurrentUse(t *testing.T) {
	t.Parallel()
	cache := newCountingCache(t)
	e, err := NewEngine(WithFS(fstest.MapFS{"pom.xml.tmpl": {Data: []byte(`{{.}}`)}}), WithCache(cache))
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	var wg sync.WaitGroup
	errs := make(chan error, 32)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := e.Render(ProjectDescriptor, i); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent render: %v", err)
	}
	cache.mu.Lock()
	defer cache.mu.Unlock()
	if cache.adds < 1 || cache.adds > 32 {
		t.Fatalf("unexpected compile count %d", cache.adds)
	}
}

func TestRender_Failures(t *testing.T) {
	t.Parallel()
	fsys := fstest.MapFS{
		"pom.xml.tmpl":    {Data: []byte(`{{.Missing}}`)},
		"testng.xml.tmpl": {Data: []byte(`{{if}}`)},
	}
	e, err := NewEngine(WithFS(fsys))
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	tests := []struct {
		name string
		id   TemplateID
		data any
		msg  string
	}{
		{"missing file", BaseFixture, nil, "base_test.java.tmpl"},
		{"unknown id", TemplateID("nope"), nil, "unknown template"},
		{"parse error", SuiteConfiguration, nil, "parse template"},
		{"missing key", ProjectDescriptor, map[string]string{}, "execute template"},
		{"missing field", ProjectDescriptor, struct{ Other string }{}, "execute template"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := e.Render(tt.id, tt.data)
			if !errors.Is(err, engineerr.ErrTemplate) {
				t.Fatalf("expected TemplateFailure, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.msg) {
				t.Fatalf("message %q should mention %q", err.Error(), tt.msg)
			}
		})
	}
}

func TestWithDir_OverridesSingleTemplates(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "testng.xml.tmpl"), []byte("custom {{.SuiteName}}"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	e, err := NewEngine(WithDir(dir))
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	got, err := e.Render(SuiteConfiguration, map[string]any{"SuiteName": "S"})
	if err != nil || got != "custom S" {
		t.Fatalf("override: %q, %v", got, err)
	}
	fixture := map[string]string{"Package": "p", "BaseURL": `http://x/"q"`, "APITitle": "T", "APIVersion": "1"}
	got, err = e.Render(BaseFixture, fixture)
	if err != nil {
		t.Fatalf("embedded fallback: %v", err)
	}
	if !strings.Contains(got, `DEFAULT_BASE_URL = "http://x/\"q\"";`) {
		t.Fatalf("java string escaping missing:\n%s", got)
	}
}

func TestFuncs(t *testing.T) {
	t.Parallel()
	fm := funcMap()
	javadoc := fm["javadoc"].(func(string) string)
	if got := javadoc("ends */ here\n and\tmore"); got != "ends *&#47; here and more" {
		t.Fatalf("javadoc: %q", got)
	}
	javaString := fm["javaString"].(func(string) string)
	if got := javaString("a\\b\"c\n"); got != `a\\b\"c\n` {
		t.Fatalf("javaString: %q", got)
	}
}
