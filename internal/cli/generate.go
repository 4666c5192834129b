package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/varnalabs/apitestgen/internal/archive"
	"github.com/varnalabs/apitestgen/internal/config"
	"github.com/varnalabs/apitestgen/internal/diag"
	"github.com/varnalabs/apitestgen/internal/generator"
	"github.com/varnalabs/apitestgen/internal/model"
	"github.com/varnalabs/apitestgen/internal/pipeline"
	"github.com/varnalabs/apitestgen/internal/render"
	"github.com/varnalabs/apitestgen/internal/spec"
)

var generateRunner = runGenerate

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a test automation project archive from an OpenAPI document",
		Long: "Generate a REST-Assured/TestNG Maven project from an OpenAPI 3.0 document and write it as a ZIP archive. " +
			"Options can be provided via flags, config files, APITESTGEN_* environment variables, or defaults.",
		Example: strings.TrimSpace(`  apitestgen generate --input openapi.yaml --out build/pets-tests.zip
  apitestgen generate --input https://example.com/openapi.json --dry-run
  apitestgen --config apitestgen.yaml generate --force --base-package org.example.qa`),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.Input == "" {
				return newUsageError("generate: --input is required (set via flag, config file or " + config.EnvName("input") + ")")
			}
			return generateRunner(cmd.Context(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.String("input", "", "Path or http(s) URL of the OpenAPI 3.0 document")
	flags.String("out", "", "Archive path, or an existing directory (defaults to <project>.zip)")
	flags.Bool("dry-run", false, "List the archive entries without writing anything")
	flags.Bool("force", false, "Overwrite an existing archive")
	addGenerationFlags(flags)
	flags.Duration("http-timeout", 0, "Timeout for each HTTP request when --input is a URL")
	flags.Int("http-retries", 0, "Retries for transient HTTP failures when --input is a URL")

	return cmd
}

// addGenerationFlags registers the flags shared by generate and serve.
func addGenerationFlags(flags *pflag.FlagSet) {
	flags.Bool("strict", false, "Fail on OpenAPI validation problems instead of warning")
	flags.String("base-package", "", "Java base package of the generated sources (default "+generator.DefaultBasePackage+")")
	flags.String("group-id", "", "Maven groupId of the generated project (default "+generator.DefaultGroupID+")")
	flags.String("project-suffix", "", "Suffix appended to the project name (default "+generator.DefaultProjectSuffix+")")
	flags.String("templates-dir", "", "Directory whose *.tmpl files override the built-in templates")
	flags.Int("compression-level", 0, "Deflate level for the archive (-2..9)")
	flags.Int("max-depth", 0, "Maximum schema nesting depth")
}

// resolveConfig merges defaults, the config file, the env file, the environment and
// explicitly set flags, in increasing precedence.
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	flags := cmd.Flags()
	configPath, err := flags.GetString("config")
	if err != nil {
		return nil, err
	}
	envFile, err := flags.GetString("env-file")
	if err != nil {
		return nil, err
	}

	env, err := config.Environ(envFile)
	if err != nil {
		return nil, asUsageError(err)
	}
	cfg, err := config.Load(configPath, env)
	if err != nil {
		return nil, asUsageError(err)
	}

	if err := applyFlagOverrides(flags, &cfg); err != nil {
		return nil, err
	}

	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, asUsageError(err)
	}
	return &cfg, nil
}

func applyFlagOverrides(flags *pflag.FlagSet, cfg *config.Config) error {
	for _, name := range []string{"input", "out", "base-package", "group-id", "project-suffix", "templates-dir", "listen"} {
		if !flags.Changed(name) {
			continue
		}
		value, err := flags.GetString(name)
		if err != nil {
			return err
		}
		switch name {
		case "input":
			cfg.Input = value
		case "out":
			cfg.Out = value
		case "base-package":
			cfg.BasePackage = value
		case "group-id":
			cfg.GroupID = value
		case "project-suffix":
			cfg.ProjectSuffix = value
		case "templates-dir":
			cfg.TemplatesDir = value
		case "listen":
			cfg.Listen = value
		}
	}
	for _, name := range []string{"dry-run", "force", "strict", "verbose"} {
		if !flags.Changed(name) {
			continue
		}
		value, err := flags.GetBool(name)
		if err != nil {
			return err
		}
		switch name {
		case "dry-run":
			cfg.DryRun = value
		case "force":
			cfg.Force = value
		case "strict":
			cfg.Strict = value
		case "verbose":
			cfg.Verbose = value
		}
	}
	for _, name := range []string{"compression-level", "max-depth", "http-retries"} {
		if !flags.Changed(name) {
			continue
		}
		value, err := flags.GetInt(name)
		if err != nil {
			return err
		}
		switch name {
		case "compression-level":
			cfg.CompressionLevel = value
		case "max-depth":
			cfg.MaxDepth = value
		case "http-retries":
			cfg.HTTPRetries = value
		}
	}
	if flags.Changed("http-timeout") {
		value, err := flags.GetDuration("http-timeout")
		if err != nil {
			return err
		}
		cfg.HTTPTimeout = value
	}
	if flags.Changed("max-upload-bytes") {
		value, err := flags.GetInt64("max-upload-bytes")
		if err != nil {
			return err
		}
		cfg.MaxUploadBytes = value
	}
	return nil
}

// newService wires the pipeline stages from cfg.
func newService(cfg *config.Config, log *diag.Logger) (*pipeline.Service, error) {
	var opts []render.Option
	if cfg.TemplatesDir != "" {
		if st, err := os.Stat(cfg.TemplatesDir); err != nil || !st.IsDir() {
			return nil, newUsageError(fmt.Sprintf("templates-dir %q is not a readable directory", cfg.TemplatesDir))
		}
		opts = append(opts, render.WithDir(cfg.TemplatesDir))
	}
	engine, err := render.NewEngine(opts...)
	if err != nil {
		return nil, err
	}
	return pipeline.New(
		spec.NewTranslator(log, cfg.TranslatorOptions()),
		generator.New(engine, log, cfg.GeneratorOptions()),
		archive.New(log, archive.WithLevel(cfg.CompressionLevel)),
		log,
	), nil
}

func runGenerate(ctx context.Context, cfg *config.Config) error {
	log := diag.New(os.Stderr, cfg.Verbose)
	svc, err := newService(cfg, log)
	if err != nil {
		return err
	}

	raw, err := spec.ReadSource(ctx, cfg.Input, cfg.SourceOptions()...)
	if err != nil {
		return asUsageError(err)
	}
	res, err := svc.Run(ctx, raw, "")
	if err != nil {
		return asUsageError(err)
	}

	out := resolveOutPath(cfg.Out, res.Project.Name())
	absOut := out
	if ap, err := filepath.Abs(out); err == nil {
		absOut = ap
	}

	if cfg.DryRun {
		printPlan(absOut, res.Project)
		return nil
	}
	if err := writeArchive(absOut, res.Archive, cfg.Force); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "Wrote %s (%d files, %d bytes)\n", absOut, res.Project.FileCount(), len(res.Archive))
	return nil
}

// resolveOutPath returns out, <out>/<project>.zip when out is an existing directory
// or ends in a separator, and <project>.zip when out is empty.
func resolveOutPath(out, projectName string) string {
	name := projectName + ".zip"
	if out == "" {
		return name
	}
	if strings.HasSuffix(out, "/") || strings.HasSuffix(out, string(filepath.Separator)) {
		return filepath.Join(out, name)
	}
	if st, err := os.Stat(out); err == nil && st.IsDir() {
		return filepath.Join(out, name)
	}
	return out
}

func printPlan(out string, p *model.Project) {
	fmt.Fprintf(os.Stdout, "Planned archive %s (%d files):\n", out, p.FileCount())
	for _, f := range p.Files() {
		fmt.Fprintf(os.Stdout, "- %s\n", archive.EntryName(p, f))
	}
}

func writeArchive(path string, data []byte, force bool) error {
	if st, err := os.Stat(path); err == nil {
		if st.IsDir() {
			return newUsageError(fmt.Sprintf("generate: %q is a directory", path))
		}
		if !force {
			return newUsageError(fmt.Sprintf("generate: %q already exists (use --force to overwrite)", path))
		}
	}
	if err := writeAtomic(path, data); err != nil {
		return wrapOutputError(err, path)
	}
	return nil
}

// writeAtomic creates parent directories and writes data through a temp file renamed
// into place, so readers never observe a partial file.
func writeAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

func wrapOutputError(err error, path string) error {
	return newUsageError(fmt.Sprintf("output error for %s: %v\nHint: choose a different --out or check directory permissions.", path, err))
}
