package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Execute runs the apitestgen CLI.
func Execute() error {
	return NewRootCmd().Execute()
}

// NewRootCmd constructs the root command so tests can exercise the CLI easily.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apitestgen",
		Short: "Generate REST-Assured/TestNG projects from OpenAPI 3 documents",
		Long: "apitestgen turns an OpenAPI 3.0 document into a ready-to-run Maven test " +
			"automation project and packages it as a ZIP archive, from the command line or over HTTP.",
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().StringP("config", "c", "", "Config file path (YAML or JSON)")
	cmd.PersistentFlags().String("env-file", ".env", "Dotenv file with APITESTGEN_* overrides (ignored when missing)")
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging output")

	cmd.AddCommand(newGenerateCmd(), newServeCmd(), newInitCmd())

	// Convert Cobra flag errors (like unknown flags) into usage errors that also
	// show the command's help text.
	for _, c := range append([]*cobra.Command{cmd}, cmd.Commands()...) {
		c.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
			return newUsageError(fmt.Sprintf("%v\n\n%s", err, c.UsageString()))
		})
	}

	return cmd
}
