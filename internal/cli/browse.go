package cli

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/tobert/trace-flamegraph/internal/tui"
)

// BrowseCommand returns the CLI command definition for the 'browse' subcommand.
func BrowseCommand() *cli.Command {
	flags := append(configFlags(), viewFlags()...)
	flags = append(flags, &cli.IntFlag{
		Name:  "width",
		Usage: "Width in columns until the terminal reports its size",
	})

	return &cli.Command{
		Name:      "browse",
		Usage:     "Explore a trace's flame graph interactively",
		ArgsUsage: "[trace-id]",
		Description: `Opens a full-screen flame graph browser. Edit the filter, toggle auxiliary
threads or change the truncate percentage and the flame graph reloads.`,
		Flags:  flags,
		Action: runBrowse,
	}
}

func runBrowse(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	params, err := viewParams(cmd)
	if err != nil {
		return err
	}
	src, err := newSource(cmd, cfg)
	if err != nil {
		return err
	}

	return tui.Run(tui.Options{
		Context: ctx,
		Fetcher: src,
		AgentID: cfg.AgentID,
		Width:   cfg.Width,
		Verbose: cfg.Verbose,
	}, params)
}
