package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestApplyFile_YAML(t *testing.T) {
	t.Parallel()
	path := writeFile(t, "config.yaml", strings.TrimSpace(`
input: ./openapi.yaml
Out: build/tests.zip
dry_run: "yes"
STRICT: true
basePackage: org.example.qa
group-id: org.example
templatesDir: ./templates
max_upload_bytes: 2048
compressionLevel: 9
maxDepth: 16
httpTimeout: 3s
httpRetries: "0"
`)+"\n")

	cfg := Default()
	if err := cfg.ApplyFile(path); err != nil {
		t.Fatalf("apply: %v", err)
	}
	want := Default()
	want.Input = "./openapi.yaml"
	want.Out = "build/tests.zip"
	want.DryRun = true
	want.Strict = true
	want.BasePackage = "org.example.qa"
	want.GroupID = "org.example"
	want.TemplatesDir = "./templates"
	want.MaxUploadBytes = 2048
	want.CompressionLevel = 9
	want.MaxDepth = 16
	want.HTTPTimeout = 3 * time.Second
	want.HTTPRetries = 0
	want.ConfigPath = path
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Fatalf("config (-want +got):\n%s", diff)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestApplyFile_JSON(t *testing.T) {
	t.Parallel()
	path := writeFile(t, "config.json", `{"input": "spec.json", "force": true, "httpTimeout": 7}`)
	cfg := Default()
	if err := cfg.ApplyFile(path); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if cfg.Input != "spec.json" || !cfg.Force || cfg.HTTPTimeout != 7*time.Second {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestApplyFile_Errors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		content string
		msg     string
	}{
		{"unknown field", "lang: go\n", "unknown field"},
		{"wrong type", "force: [1, 2]\n", "expected boolean"},
		{"bad integer", "maxDepth: deep\n", "invalid integer"},
		{"bad duration", "httpTimeout: soon\n", "invalid duration"},
		{"not a mapping", "- a\n- b\n", "parse config file"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := Default()
			err := cfg.ApplyFile(writeFile(t, "c.yaml", tt.content))
			if !errors.Is(err, ErrInvalid) {
				t.Fatalf("expected ErrInvalid, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.msg) {
				t.Fatalf("message %q should mention %q", err.Error(), tt.msg)
			}
		})
	}

	cfg := Default()
	if err := cfg.ApplyFile(filepath.Join(t.TempDir(), "missing.yaml")); !errors.Is(err, ErrInvalid) {
		t.Fatalf("missing file should be ErrInvalid, got %v", err)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Parallel()
	cfg := Default()
	err := cfg.ApplyEnv(map[string]string{
		"APITESTGEN_BASE_PACKAGE": " com.acme.tests ",
		"APITESTGEN_LISTEN":       ":9090",
		"APITESTGEN_STRICT":       "1",
		"APITESTGEN_HTTP_TIMEOUT": "250ms",
		"APITESTGEN_OUT":          "   ",
		"UNRELATED":               "x",
	})
	if err != nil {
		t.Fatalf("apply env: %v", err)
	}
	if cfg.BasePackage != "com.acme.tests" || cfg.Listen != ":9090" || !cfg.Strict || cfg.HTTPTimeout != 250*time.Millisecond {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.Out != "" {
		t.Fatalf("blank env values must be ignored, got out=%q", cfg.Out)
	}

	err = cfg.ApplyEnv(map[string]string{"APITESTGEN_MAX_DEPTH": "lots"})
	if !errors.Is(err, ErrInvalid) || !strings.Contains(err.Error(), "APITESTGEN_MAX_DEPTH") {
		t.Fatalf("expected invalid env error naming the variable, got %v", err)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Parallel()
	path := writeFile(t, "c.yaml", "groupId: from.file\nlisten: ':1'\n")
	cfg, err := Load(path, map[string]string{"APITESTGEN_GROUP_ID": "from.env"})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.GroupID != "from.env" || cfg.Listen != ":1" {
		t.Fatalf("precedence: %+v", cfg)
	}
}

func TestEnviron_ReadsDotEnv(t *testing.T) {
	t.Parallel()
	path := writeFile(t, ".env", "APITESTGEN_PROJECT_SUFFIX=-qa\n# comment\nOTHER=1\n")
	env, err := Environ(path)
	if err != nil {
		t.Fatalf("environ: %v", err)
	}
	if env["APITESTGEN_PROJECT_SUFFIX"] != "-qa" {
		t.Fatalf("dotenv entry missing: %v", env)
	}
	if _, err := Environ(filepath.Join(t.TempDir(), "absent.env")); err != nil {
		t.Fatalf("absent env file should be ignored: %v", err)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"package", func(c *Config) { c.BasePackage = "com.1bad" }},
		{"level", func(c *Config) { c.CompressionLevel = 11 }},
		{"depth", func(c *Config) { c.MaxDepth = 0 }},
		{"upload", func(c *Config) { c.MaxUploadBytes = 0 }},
		{"timeout", func(c *Config) { c.HTTPTimeout = 0 }},
		{"retries", func(c *Config) { c.HTTPRetries = -1 }},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := Default()
			tt.mutate(&cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalid) {
				t.Fatalf("expected ErrInvalid, got %v", err)
			}
		})
	}
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestEnvName(t *testing.T) {
	t.Parallel()
	if got := EnvName("max-upload-bytes"); got != "APITESTGEN_MAX_UPLOAD_BYTES" {
		t.Fatalf("env name: %q", got)
	}
	for _, key := range Keys {
		cfg := Default()
		if known, _ := cfg.set(normalizeKey(key), nil); !known {
			t.Errorf("key %q is listed but not handled", key)
		}
	}
}
