package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/varnalabs/apitestgen/internal/config"
	"github.com/varnalabs/apitestgen/internal/diag"
	"github.com/varnalabs/apitestgen/internal/server"
)

var serveRunner = runServe

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve project generation over HTTP",
		Long: "Serve POST " + server.ProjectsPath + " (multipart field '" + server.FileField + "') " +
			"and answer each upload with the generated project archive.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.Listen == "" {
				return newUsageError("serve: --listen must not be empty")
			}
			return serveRunner(cmd.Context(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.String("listen", "", "Address to listen on (default "+config.DefaultListen+")")
	flags.Int64("max-upload-bytes", 0, "Largest accepted document in bytes (default 10 MB)")
	addGenerationFlags(flags)

	return cmd
}

func runServe(ctx context.Context, cfg *config.Config) error {
	log := diag.New(os.Stderr, cfg.Verbose)
	svc, err := newService(cfg, log)
	if err != nil {
		return err
	}
	srv := server.New(svc, log, server.WithMaxUploadBytes(cfg.MaxUploadBytes))

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	return server.ListenAndServe(ctx, cfg.Listen, srv.Handler(), log)
}
