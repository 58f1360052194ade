package cli

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/tobert/trace-flamegraph/internal/flamegraph"
	"github.com/tobert/trace-flamegraph/internal/view"
	"github.com/tobert/trace-flamegraph/internal/viz"
)

// ViewCommand returns the CLI command definition for the 'view' subcommand.
// It loads one trace's flame graph and prints it to stdout.
func ViewCommand() *cli.Command {
	flags := append(configFlags(), viewFlags()...)
	flags = append(flags,
		&cli.IntFlag{
			Name:  "width",
			Usage: "Output width in columns",
		},
		&cli.IntFlag{
			Name:  "hot",
			Usage: "Also list the N frames with the most self samples",
		},
		&cli.BoolFlag{
			Name:  "watch",
			Usage: "With --from-dir, redraw whenever the flame graph files change",
		},
	)

	return &cli.Command{
		Name:      "view",
		Usage:     "Print a trace's flame graph",
		ArgsUsage: "[trace-id]",
		Description: `Fetches the flame graph for one trace and draws it as text, root on top.
Frame widths are proportional to sample counts. A filter that does not parse
is reported without contacting the backend.`,
		Flags:  flags,
		Action: runView,
	}
}

func runView(cliCtx context.Context, cmd *cli.Command) error {
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

	p := &printer{out: os.Stdout, width: cfg.Width, hot: cmd.Int("hot")}

	ctx, stop := signal.NotifyContext(cliCtx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if !cmd.Bool("watch") {
		v, err := p.show(ctx, params, cfg, src)
		if err != nil {
			return err
		}
		defer v.Destroy()
		return viewOutcome(v)
	}

	if src.files == nil {
		return fmt.Errorf("--watch requires --from-dir")
	}
	changes, err := src.files.Watch(ctx)
	if err != nil {
		return fmt.Errorf("failed to watch flame graph files: %w", err)
	}

	current, err := p.show(ctx, params, cfg, src)
	if err != nil {
		return err
	}
	log.Println("👀 Watching for changes (Ctrl-C to stop)")

	for {
		select {
		case <-ctx.Done():
			current.Destroy()
			return nil
		case _, ok := <-changes:
			if !ok {
				current.Destroy()
				return nil
			}
			current.Destroy()
			if current, err = p.show(ctx, params, cfg, src); err != nil {
				return err
			}
		}
	}
}

// printer renders views as text.
type printer struct {
	out   io.Writer
	width int
	hot   int
}

// show enters a new view and blocks until it has loaded.
func (p *printer) show(ctx context.Context, params view.Params, cfg *Config, src *source) (*view.View, error) {
	v, err := view.New(params, view.Options{
		AgentID:  cfg.AgentID,
		Fetcher:  src,
		Renderer: view.RendererFunc(p.render),
		Reporter: view.ReporterFunc(func(err error) {
			fmt.Fprintf(p.out, "❌ failed to load trace %s: %v\n", params.TraceID, err)
		}),
		Verbose: cfg.Verbose,
	})
	if err != nil {
		return nil, err
	}

	v.Enter(ctx)
	if err := awaitView(ctx, v); err != nil {
		v.Destroy()
		return nil, err
	}

	switch v.State() {
	case view.StateLoadedNoData:
		fmt.Fprintf(p.out, "No flame graph data for trace %s\n", params.TraceID)
	case view.StateLoadedParseError:
		fmt.Fprintf(p.out, "❌ %v\n", v.ParseError())
	}
	return v, nil
}

func (p *printer) render(tree flamegraph.Tree, size view.Size) view.Overlay {
	fmt.Fprint(p.out, viz.FlameGraph(tree, p.width))
	if p.hot > 0 {
		fmt.Fprintln(p.out)
		fmt.Fprint(p.out, viz.HotFramesSummary(tree, p.hot))
	}
	return nil
}

// viewOutcome turns a failed load into the command's error.
func viewOutcome(v *view.View) error {
	if err := v.ParseError(); err != nil {
		return err
	}
	if err := v.FetchError(); err != nil {
		return fmt.Errorf("failed to load flame graph: %w", err)
	}
	return nil
}
