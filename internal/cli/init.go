package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

const defaultConfigFile = "apitestgen.yaml"

// InitConfig captures the options for the init command.
type InitConfig struct {
	OutputPath string
	Force      bool
}

var initRunner = runInit

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Scaffold a sample apitestgen configuration file",
		Long:  "Scaffold a commented apitestgen configuration file that documents available options.",
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := cmd.Flags().GetString("out")
			if err != nil {
				return err
			}
			force, err := cmd.Flags().GetBool("force")
			if err != nil {
				return err
			}
			return initRunner(cmd.Context(), &InitConfig{OutputPath: out, Force: force})
		},
	}

	cmd.Flags().String("out", defaultConfigFile, "Where to write the sample config file")
	cmd.Flags().Bool("force", false, "Overwrite the target file if it already exists")

	return cmd
}

func runInit(_ context.Context, cfg *InitConfig) error {
	out := strings.TrimSpace(cfg.OutputPath)
	if out == "" {
		out = defaultConfigFile
	}
	absPath, err := filepath.Abs(out)
	if err != nil {
		return fmt.Errorf("init: resolve output path: %w", err)
	}
	if st, err := os.Stat(absPath); err == nil && st.Mode().IsRegular() && !cfg.Force {
		return newUsageError(fmt.Sprintf("init: %q already exists (use --force to overwrite)", absPath))
	}
	if err := writeAtomic(absPath, []byte(strings.TrimSpace(sampleConfigYAML)+"\n")); err != nil {
		return wrapOutputError(err, absPath)
	}
	fmt.Fprintf(os.Stdout, "Wrote sample config to %s\n", absPath)
	return nil
}

// sampleConfigYAML documents every config key. Each key may also be set through an
// APITESTGEN_* environment variable (for example APITESTGEN_BASE_PACKAGE).
const sampleConfigYAML = `# apitestgen configuration (YAML or JSON)
# All fields are optional. Precedence: flags > environment > this file > defaults.

# Path or http(s) URL of the OpenAPI 3.0 document.
# input: ./openapi.yaml

# Archive to write. Defaults to <project>.zip in the current directory.
# out: ./build/pet-store-tests.zip

# List the archive entries without writing anything.
# dryRun: false

# Overwrite an existing archive.
# force: false

# Fail on OpenAPI validation problems instead of logging warnings.
# strict: false

# Enable debug logging.
# verbose: false

# Generated project layout.
# basePackage: com.automation.tests
# groupId: com.automation
# projectSuffix: -tests

# Directory whose *.tmpl files replace the built-in templates one by one.
# templatesDir: ./templates

# Server listen address and largest accepted upload.
# listen: ":8080"
# maxUploadBytes: 10485760

# Deflate level for the archive (-2 huffman only, 0 store, 9 best).
# compressionLevel: -1

# Maximum schema nesting depth.
# maxDepth: 64

# Remote documents: per-request timeout and retries for transient failures.
# httpTimeout: 10s
# httpRetries: 3
`
