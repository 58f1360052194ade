package cli

import (
	"context"
	"fmt"
	"log"

	"github.com/urfave/cli/v3"

	"github.com/tobert/trace-flamegraph/internal/fetcher"
	"github.com/tobert/trace-flamegraph/internal/view"
)

// configFlags are accepted by every command. Flags given explicitly override
// whatever the config files say.
func configFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "config",
			Usage: "Path to a JSON or YAML config file",
		},
		&cli.StringFlag{
			Name:    "backend-url",
			Usage:   "Base URL of the trace backend",
			Sources: cli.EnvVars("TRACE_FLAMEGRAPH_BACKEND_URL"),
		},
		&cli.StringFlag{
			Name:    "agent-id",
			Usage:   "Agent the traces belong to",
			Sources: cli.EnvVars("TRACE_FLAMEGRAPH_AGENT_ID"),
		},
		&cli.StringFlag{
			Name:  "timeout",
			Usage: "Backend request timeout (e.g. 30s)",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "Enable verbose logging",
		},
	}
}

// viewFlags describe the flame graph to load.
func viewFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "trace-id",
			Usage: "Trace to load (may also be given as the first argument)",
		},
		&cli.StringFlag{
			Name:  "filter",
			Usage: `Include/exclude terms, e.g. 'com.example -"java.lang"'`,
		},
		&cli.BoolFlag{
			Name:  "auxiliary",
			Usage: "Show auxiliary thread profile",
		},
		&cli.FloatFlag{
			Name:  "truncate-branch-percentage",
			Usage: "Hide branches below this share of samples (0 uses 1.0)",
		},
		&cli.StringFlag{
			Name:  "check-live-traces",
			Usage: "Forwarded to the backend unchanged",
		},
		&cli.StringFlag{
			Name:  "from-dir",
			Usage: "Read <trace-id>.json flame graphs from a directory (or one file) instead of the backend",
		},
	}
}

// loadConfig resolves the effective config for cmd: files first, then flags.
func loadConfig(cmd *cli.Command) (*Config, error) {
	cfg, err := LoadEffectiveConfig(cmd.String("config"))
	if err != nil {
		return nil, err
	}

	if cmd.IsSet("backend-url") {
		cfg.BackendURL = cmd.String("backend-url")
	}
	if cmd.IsSet("agent-id") {
		cfg.AgentID = cmd.String("agent-id")
	}
	if cmd.IsSet("timeout") {
		cfg.Timeout = cmd.String("timeout")
	}
	if cmd.IsSet("verbose") {
		cfg.Verbose = cmd.Bool("verbose")
	}
	if cmd.IsSet("width") {
		cfg.Width = cmd.Int("width")
	}
	if cmd.IsSet("webui-host") {
		cfg.WebUIHost = cmd.String("webui-host")
	}
	if cmd.IsSet("webui-port") {
		cfg.WebUIPort = cmd.Int("webui-port")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.Verbose {
		log.Println("🔧 Configuration:")
		log.Printf("  Backend: %s\n", cfg.BackendURL)
		if cfg.AgentID != "" {
			log.Printf("  Agent: %s\n", cfg.AgentID)
		}
		log.Printf("  Timeout: %s\n", cfg.Timeout)
		log.Println()
	}

	return cfg, nil
}

// viewParams reads the view flags. The trace ID may be a positional argument.
func viewParams(cmd *cli.Command) (view.Params, error) {
	p := view.Params{
		TraceID:                  cmd.String("trace-id"),
		CheckLiveTraces:          cmd.String("check-live-traces"),
		Auxiliary:                cmd.Bool("auxiliary"),
		Filter:                   cmd.String("filter"),
		TruncateBranchPercentage: cmd.Float("truncate-branch-percentage"),
	}
	if p.TraceID == "" {
		p.TraceID = cmd.Args().First()
	}
	if p.TraceID == "" {
		return p, fmt.Errorf("a trace ID is required (--trace-id or first argument)")
	}
	return p, nil
}

// source is where a command's views fetch from.
type source struct {
	fetcher.Fetcher
	files *fetcher.FileSource // nil when fetching from the backend
}

// newSource picks the file source when --from-dir is set, the backend otherwise.
func newSource(cmd *cli.Command, cfg *Config) (*source, error) {
	if dir := cmd.String("from-dir"); dir != "" {
		fs, err := fetcher.NewFileSource(dir, cfg.Verbose)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", dir, err)
		}
		if cfg.Verbose {
			log.Printf("📂 Reading flame graphs from %s\n", dir)
		}
		return &source{Fetcher: fs, files: fs}, nil
	}

	client, err := newClient(cfg)
	if err != nil {
		return nil, err
	}
	return &source{Fetcher: client}, nil
}

func newClient(cfg *Config) (*fetcher.Client, error) {
	timeout, err := cfg.TimeoutDuration()
	if err != nil {
		return nil, err
	}
	client, err := fetcher.NewClient(fetcher.Config{
		BaseURL: cfg.BackendURL,
		Timeout: timeout,
		Verbose: cfg.Verbose,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create backend client: %w", err)
	}
	return client, nil
}

// awaitView waits for v to finish loading or ctx to end.
func awaitView(ctx context.Context, v *view.View) error {
	select {
	case <-v.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
