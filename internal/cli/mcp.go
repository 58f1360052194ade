package cli

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/tobert/trace-flamegraph/internal/history"
	"github.com/tobert/trace-flamegraph/internal/mcpserver"
)

// MCPCommand returns the CLI command definition for the 'mcp' subcommand.
func MCPCommand() *cli.Command {
	flags := append(configFlags(),
		&cli.IntFlag{
			Name:  "width",
			Usage: "Default text rendering width in columns",
		},
		&cli.StringFlag{
			Name:  "from-dir",
			Usage: "Read <trace-id>.json flame graphs from a directory instead of the backend",
		},
	)

	return &cli.Command{
		Name:  "mcp",
		Usage: "Run an MCP server on stdio",
		Description: `Exposes get_trace_flame_graph, parse_filter and get_recent_views to an
agent over stdio. Logs go to stderr; stdout carries the protocol.`,
		Flags:  flags,
		Action: runMCP,
	}
}

func runMCP(cliCtx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	src, err := newSource(cmd, cfg)
	if err != nil {
		return err
	}

	server, err := mcpserver.NewServer(mcpserver.Options{
		Fetcher: src,
		AgentID: cfg.AgentID,
		History: history.New(history.DefaultCapacity),
		Width:   cfg.Width,
		Verbose: cfg.Verbose,
	})
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	ctx, stop := signal.NotifyContext(cliCtx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Println("🎯 MCP server ready on stdio")
	if cfg.Verbose {
		log.Println("   - get_trace_flame_graph")
		log.Println("   - parse_filter")
		log.Println("   - get_recent_views")
	}

	if err := server.Run(ctx); err != nil {
		return fmt.Errorf("MCP server error: %w", err)
	}
	return nil
}
