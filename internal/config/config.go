// Package config resolves apitestgen settings from a config file, a .env file and
// the process environment. Command-line flags are applied on top by the cli package.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/klauspost/compress/flate"
	"gopkg.in/yaml.v3"

	"github.com/varnalabs/apitestgen/internal/generator"
	"github.com/varnalabs/apitestgen/internal/spec"
)

// EnvPrefix prefixes every environment variable apitestgen reads.
const EnvPrefix = "APITESTGEN_"

// Defaults for fields without a natural zero value.
const (
	DefaultListen         = ":8080"
	DefaultMaxUploadBytes = spec.DefaultMaxSourceBytes
	DefaultHTTPTimeout    = 10 * time.Second
	DefaultHTTPRetries    = 3
)

// ErrInvalid marks every configuration problem so callers can report it as bad input.
var ErrInvalid = errors.New("invalid configuration")

type invalidError struct {
	msg string
}

func invalidf(format string, args ...any) error {
	return invalidError{msg: fmt.Sprintf(format, args...)}
}

func (e invalidError) Error() string { return e.msg }

func (e invalidError) Is(target error) bool { return target == ErrInvalid }

// Config captures all inputs after merging defaults, the config file, .env and the
// environment.
type Config struct {
	Input   string
	Out     string
	DryRun  bool
	Force   bool
	Strict  bool
	Verbose bool

	BasePackage   string
	GroupID       string
	ProjectSuffix string
	TemplatesDir  string

	Listen           string
	MaxUploadBytes   int64
	CompressionLevel int
	MaxDepth         int
	HTTPTimeout      time.Duration
	HTTPRetries      int

	// ConfigPath is the file the values were read from, if any.
	ConfigPath string
}

// Default returns the stock configuration.
func Default() Config {
	return Config{
		BasePackage:      generator.DefaultBasePackage,
		GroupID:          generator.DefaultGroupID,
		ProjectSuffix:    generator.DefaultProjectSuffix,
		Listen:           DefaultListen,
		MaxUploadBytes:   DefaultMaxUploadBytes,
		CompressionLevel: flate.DefaultCompression,
		MaxDepth:         spec.DefaultMaxDepth,
		HTTPTimeout:      DefaultHTTPTimeout,
		HTTPRetries:      DefaultHTTPRetries,
	}
}

// Keys lists the recognised field names in their canonical spelling. Config files
// may spell them in any case with or without '-' and '_'; environment variables use
// EnvPrefix plus the upper snake form (APITESTGEN_BASE_PACKAGE).
var Keys = []string{
	"input", "out", "dry-run", "force", "strict", "verbose",
	"base-package", "group-id", "project-suffix", "templates-dir",
	"listen", "max-upload-bytes", "compression-level", "max-depth",
	"http-timeout", "http-retries",
}

// EnvName returns the environment variable for a canonical key.
func EnvName(key string) string {
	return EnvPrefix + strings.ToUpper(strings.ReplaceAll(key, "-", "_"))
}

// ApplyFile merges a YAML or JSON config file into c. Unknown fields are rejected.
func (c *Config) ApplyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return invalidf("read config file %q: %v", path, err)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return invalidf("parse config file %q: %v", path, err)
	}

	for key, value := range raw {
		known, err := c.set(normalizeKey(key), value)
		if !known {
			return invalidf("config file %q: unknown field %q", path, key)
		}
		if err != nil {
			return invalidf("config field %q: %v", key, err)
		}
	}
	c.ConfigPath = path
	return nil
}

// ApplyEnv merges the recognised APITESTGEN_* entries of env into c. Blank values
// are ignored.
func (c *Config) ApplyEnv(env map[string]string) error {
	for _, key := range Keys {
		name := EnvName(key)
		value := strings.TrimSpace(env[name])
		if value == "" {
			continue
		}
		if _, err := c.set(normalizeKey(key), value); err != nil {
			return invalidf("environment %s: %v", name, err)
		}
	}
	return nil
}

// Environ returns the variables apitestgen may read: the entries of the .env file at
// dotenvPath (a missing file is not an error), overlaid by the process environment.
func Environ(dotenvPath string) (map[string]string, error) {
	env := map[string]string{}
	if dotenvPath = strings.TrimSpace(dotenvPath); dotenvPath != "" {
		if _, err := os.Stat(dotenvPath); err == nil {
			values, err := godotenv.Read(dotenvPath)
			if err != nil {
				return nil, invalidf("read env file %q: %v", dotenvPath, err)
			}
			for k, v := range values {
				env[k] = v
			}
		}
	}
	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if ok && strings.HasPrefix(k, EnvPrefix) {
			env[k] = v
		}
	}
	return env, nil
}

// Load returns Default overlaid by the config file at path (when non-empty) and then
// by env.
func Load(path string, env map[string]string) (Config, error) {
	cfg := Default()
	if path = strings.TrimSpace(path); path != "" {
		if err := cfg.ApplyFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.ApplyEnv(env); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Normalize trims string fields.
func (c *Config) Normalize() {
	c.Input = strings.TrimSpace(c.Input)
	c.Out = strings.TrimSpace(c.Out)
	c.BasePackage = strings.TrimSpace(c.BasePackage)
	c.GroupID = strings.TrimSpace(c.GroupID)
	c.TemplatesDir = strings.TrimSpace(c.TemplatesDir)
	c.Listen = strings.TrimSpace(c.Listen)
}

// Validate checks the fields shared by every command.
func (c *Config) Validate() error {
	if c.BasePackage != "" && !generator.ValidPackage(c.BasePackage) {
		return invalidf("base-package %q is not a valid Java package name", c.BasePackage)
	}
	if c.CompressionLevel < flate.HuffmanOnly || c.CompressionLevel > flate.BestCompression {
		return invalidf("compression-level %d out of range (%d..%d)", c.CompressionLevel, flate.HuffmanOnly, flate.BestCompression)
	}
	if c.MaxDepth < 1 {
		return invalidf("max-depth must be positive, got %d", c.MaxDepth)
	}
	if c.MaxUploadBytes < 1 {
		return invalidf("max-upload-bytes must be positive, got %d", c.MaxUploadBytes)
	}
	if c.HTTPTimeout <= 0 {
		return invalidf("http-timeout must be positive, got %s", c.HTTPTimeout)
	}
	if c.HTTPRetries < 0 {
		return invalidf("http-retries must not be negative, got %d", c.HTTPRetries)
	}
	return nil
}

// GeneratorOptions projects the layout settings.
func (c Config) GeneratorOptions() generator.Options {
	return generator.Options{BasePackage: c.BasePackage, GroupID: c.GroupID, ProjectSuffix: c.ProjectSuffix}
}

// TranslatorOptions projects the translation settings.
func (c Config) TranslatorOptions() spec.Options {
	return spec.Options{Strict: c.Strict, MaxDepth: c.MaxDepth}
}

// SourceOptions projects the document-fetching settings.
func (c Config) SourceOptions() []spec.Option {
	return []spec.Option{
		spec.WithHTTPTimeout(c.HTTPTimeout),
		spec.WithMaxRetries(c.HTTPRetries),
		spec.WithMaxBytes(c.MaxUploadBytes),
	}
}

// set assigns one normalised key. known is false for unrecognised keys.
func (c *Config) set(key string, value any) (known bool, err error) {
	switch key {
	case "input":
		c.Input, err = valueAsString(value)
	case "out":
		c.Out, err = valueAsString(value)
	case "dryrun":
		c.DryRun, err = valueAsBool(value)
	case "force":
		c.Force, err = valueAsBool(value)
	case "strict":
		c.Strict, err = valueAsBool(value)
	case "verbose":
		c.Verbose, err = valueAsBool(value)
	case "basepackage":
		c.BasePackage, err = valueAsString(value)
	case "groupid":
		c.GroupID, err = valueAsString(value)
	case "projectsuffix":
		c.ProjectSuffix, err = valueAsString(value)
	case "templatesdir":
		c.TemplatesDir, err = valueAsString(value)
	case "listen":
		c.Listen, err = valueAsString(value)
	case "maxuploadbytes":
		var n int
		n, err = valueAsInt(value)
		c.MaxUploadBytes = int64(n)
	case "compressionlevel":
		c.CompressionLevel, err = valueAsInt(value)
	case "maxdepth":
		c.MaxDepth, err = valueAsInt(value)
	case "httptimeout":
		c.HTTPTimeout, err = valueAsDuration(value)
	case "httpretries":
		c.HTTPRetries, err = valueAsInt(value)
	default:
		return false, nil
	}
	return true, err
}

func normalizeKey(raw string) string {
	lowered := strings.ToLower(strings.TrimSpace(raw))
	lowered = strings.ReplaceAll(lowered, "-", "")
	lowered = strings.ReplaceAll(lowered, "_", "")
	return lowered
}

func valueAsString(v any) (string, error) {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val), nil
	case nil:
		return "", nil
	default:
		return "", fmt.Errorf("expected string, got %T", v)
	}
}

func valueAsBool(v any) (bool, error) {
	switch val := v.(type) {
	case bool:
		return val, nil
	case string:
		trimmed := strings.ToLower(strings.TrimSpace(val))
		switch trimmed {
		case "true", "t", "1", "yes", "y":
			return true, nil
		case "false", "f", "0", "no", "n", "":
			return false, nil
		default:
			return false, fmt.Errorf("invalid boolean value %q", val)
		}
	case nil:
		return false, nil
	default:
		return false, fmt.Errorf("expected boolean, got %T", v)
	}
}

func valueAsInt(v any) (int, error) {
	switch val := v.(type) {
	case int:
		return val, nil
	case int64:
		return int(val), nil
	case float64:
		if val != float64(int(val)) {
			return 0, fmt.Errorf("expected integer, got %v", val)
		}
		return int(val), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(val))
		if err != nil {
			return 0, fmt.Errorf("invalid integer value %q", val)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("expected integer, got %T", v)
	}
}

// valueAsDuration accepts Go duration strings ("15s") or a bare number of seconds.
func valueAsDuration(v any) (time.Duration, error) {
	if s, ok := v.(string); ok {
		s = strings.TrimSpace(s)
		if d, err := time.ParseDuration(s); err == nil {
			return d, nil
		}
		if n, err := strconv.Atoi(s); err == nil {
			return time.Duration(n) * time.Second, nil
		}
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	n, err := valueAsInt(v)
	if err != nil {
		return 0, fmt.Errorf("expected duration, got %T", v)
	}
	return time.Duration(n) * time.Second, nil
}
