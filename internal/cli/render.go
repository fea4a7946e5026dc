package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/chazu/siphon/pkg/config"
	"github.com/chazu/siphon/pkg/engine"
	"github.com/chazu/siphon/pkg/export"
	"github.com/chazu/siphon/pkg/library"
	"github.com/chazu/siphon/pkg/tech"
)

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	output  string  // output file; the extension picks the format
	tech    string  // technology TOML; the built-in table when empty
	config  string  // config TOML; defaults and SIPHON_* when empty
	cell    string  // cell to export; the last declared when empty
	backend string  // layout backend; the configured one when empty
	merge   bool    // union overlapping polygons per layer
	scale   float64 // output units per micron for SVG and PNG
}

func newRenderCmd() *cobra.Command {
	opts := renderOpts{
		output: "out.svg",
		scale:  export.DefaultOptions().Scale,
	}

	cmd := &cobra.Command{
		Use:   "render [script]",
		Short: "Evaluate a layout script and export a cell",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd.Context(), args[0], &opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "out", "o", opts.output, "output file (.svg, .png or .dxf)")
	cmd.Flags().StringVar(&opts.tech, "tech", "", "technology file (TOML)")
	cmd.Flags().StringVar(&opts.config, "config", "", "configuration file (TOML)")
	cmd.Flags().StringVar(&opts.cell, "cell", "", "cell to export (default: last declared)")
	cmd.Flags().StringVar(&opts.backend, "backend", "", "layout backend: memory or sdfx (default from config)")
	cmd.Flags().BoolVar(&opts.merge, "merge", false, "merge overlapping polygons per layer")
	cmd.Flags().Float64Var(&opts.scale, "scale", opts.scale, "output units per micron")
	return cmd
}

func loadTech(path string) (*tech.Technology, error) {
	if path == "" {
		return library.DefaultTech(), nil
	}
	return tech.Load(path)
}

func runRender(ctx context.Context, script string, opts *renderOpts) (err error) {
	logger := loggerFromContext(ctx)
	prog := newProgress(logger)

	cfg, err := config.Load(opts.config)
	if err != nil {
		return err
	}
	if cfg.LogLevel < logger.GetLevel() {
		logger.SetLevel(cfg.LogLevel)
	}
	if opts.backend != "" {
		cfg.LayoutBackend = opts.backend
	}
	newBackend, err := cfg.Backend()
	if err != nil {
		return err
	}
	t, err := loadTech(opts.tech)
	if err != nil {
		return err
	}
	reg, err := library.NewRegistry()
	if err != nil {
		return err
	}
	c, err := cfg.Cache()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := c.Close(); err == nil {
			err = cerr
		}
	}()

	source, err := os.ReadFile(script)
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}

	eng := engine.NewEngine(reg,
		engine.WithLayers(t),
		engine.WithLogger(logger),
		engine.WithSettings(cfg.Settings()),
		engine.WithRouteOptions(cfg.Route),
		engine.WithTimeout(cfg.Timeout),
		engine.WithCache(c),
		engine.WithBackend(newBackend),
	)
	design, evalErrs, err := eng.Evaluate(string(source))
	if err != nil {
		return fmt.Errorf("render: %s: %w", script, err)
	}
	if len(evalErrs) > 0 {
		errs := make([]error, len(evalErrs))
		for i, e := range evalErrs {
			logger.Error("script error", "file", script, "line", e.Line, "msg", e.Message)
			errs[i] = e
		}
		return fmt.Errorf("render: %s: %w", script, errors.Join(errs...))
	}

	cell := design.Top()
	if opts.cell != "" {
		var ok bool
		if cell, ok = design.Cell(opts.cell); !ok {
			return fmt.Errorf("render: %s declares no cell %q", script, opts.cell)
		}
	}
	if cell == nil {
		return fmt.Errorf("render: %s declares no cell", script)
	}

	exp := export.DefaultOptions()
	exp.Merge = opts.merge
	exp.Scale = opts.scale
	exp.LayerName = t.NameOf
	if err := export.File(opts.output, cell, exp); err != nil {
		return err
	}
	logger.Debug("exported cell", "cell", cell.Name(), "backend", cfg.LayoutBackend)
	prog.done(fmt.Sprintf("Rendered %s to %s", cell.Name(), opts.output))
	return nil
}
