package cli

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/tobert/trace-flamegraph/internal/history"
	"github.com/tobert/trace-flamegraph/internal/webui"
)

// ServeCommand returns the CLI command definition for the 'serve' subcommand.
// This command starts the web UI, which also serves Prometheus metrics.
func ServeCommand() *cli.Command {
	flags := append(configFlags(),
		&cli.StringFlag{
			Name:  "webui-host",
			Usage: "Web UI bind address",
		},
		&cli.IntFlag{
			Name:  "webui-port",
			Usage: "Web UI port",
		},
		&cli.StringFlag{
			Name:  "from-dir",
			Usage: "Read <trace-id>.json flame graphs from a directory instead of the backend",
		},
	)

	return &cli.Command{
		Name:  "serve",
		Usage: "Start the flame graph web UI",
		Description: `Serves a browser UI at /ui/ that loads trace flame graphs from the backend.
Also serves /api/flame-graph, /api/history and Prometheus metrics at /metrics.`,
		Flags:  flags,
		Action: runServe,
	}
}

// runServe is the action handler for the serve command.
func runServe(cliCtx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	src, err := newSource(cmd, cfg)
	if err != nil {
		return err
	}

	srv, err := webui.New(webui.Options{
		Fetcher: src,
		AgentID: cfg.AgentID,
		History: history.New(history.DefaultCapacity),
		Verbose: cfg.Verbose,
	})
	if err != nil {
		return fmt.Errorf("failed to create web UI: %w", err)
	}

	// Graceful shutdown on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(cliCtx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	addr := fmt.Sprintf("%s:%d", cfg.WebUIHost, cfg.WebUIPort)
	log.Printf("🌐 Web UI listening on http://%s/ui/\n", addr)
	if cfg.Verbose {
		log.Printf("   Metrics at http://%s/metrics\n", addr)
	}

	if err := srv.ListenAndServe(ctx, addr); err != nil {
		return fmt.Errorf("web UI server error: %w", err)
	}
	return nil
}
