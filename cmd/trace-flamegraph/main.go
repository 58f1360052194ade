package main

import (
	"context"
	"fmt"
	"os"

	"github.com/tobert/trace-flamegraph/internal/cli"
	cliframework "github.com/urfave/cli/v3"
)

const version = "0.1.0-dev"

func main() {
	app := &cliframework.Command{
		Name:    "trace-flamegraph",
		Usage:   "Fetch and draw per-trace flame graphs from a tracing backend",
		Version: version,
		Commands: []*cliframework.Command{
			cli.ViewCommand(),
			cli.BrowseCommand(),
			cli.ServeCommand(),
			cli.MCPCommand(),
			cli.DoctorCommand(version),
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "❌ error: %v\n", err)
		os.Exit(1)
	}
}
