package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/robert-at-pretension-io/vhdl-ilagen/internal/config"
	"github.com/robert-at-pretension-io/vhdl-ilagen/internal/generator"
	"github.com/robert-at-pretension-io/vhdl-ilagen/internal/logging"
	"github.com/robert-at-pretension-io/vhdl-ilagen/internal/metrics"
	"github.com/robert-at-pretension-io/vhdl-ilagen/internal/sink"
)

var errNoWidth = errors.New("no width given: pass --width or set width in the config")

// loadConfig reads --config, or searches the usual locations, then applies
// the flags of cmd on top and validates the result.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	return loadConfigFrom(cmd, configPath)
}

// loadConfigFrom is loadConfig with an explicit file. An empty path searches.
func loadConfigFrom(cmd *cobra.Command, path string) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if path != "" {
		cfg, err = config.LoadFile(path)
	} else {
		cfg, err = config.Load(".")
	}
	if err != nil {
		return nil, err
	}
	applyFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("width") {
		cfg.Widths = append([]int(nil), widths...)
	}
	if flags.Changed("style") {
		cfg.Style = style
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logFormat != "" {
		cfg.Log.Format = logFormat
	}
	if flags.Changed("no-checks") && noChecks {
		off := false
		cfg.Checks.Schema, cfg.Checks.Rules, cfg.Checks.Readback = &off, &off, &off
	}
	if flags.Changed("no-manifest") && noManifest {
		off := false
		cfg.Manifest = &off
	}
}

func newLogger(cfg *config.Config) (*slog.Logger, error) {
	return logging.New(logging.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Service: "ilagen",
	})
}

// resolvePaths resolves config paths against the config file, then lets
// --out and --metrics override them relative to the working directory.
func resolvePaths(cmd *cobra.Command, cfg *config.Config) (config.Resolved, error) {
	paths, err := cfg.Resolve(".")
	if err != nil {
		return config.Resolved{}, err
	}
	flags := cmd.Flags()
	if flags.Changed("out") {
		if paths.OutputDir, err = filepath.Abs(outDir); err != nil {
			return config.Resolved{}, err
		}
	}
	if flags.Changed("metrics") {
		if paths.MetricsPath, err = filepath.Abs(metricsPath); err != nil {
			return config.Resolved{}, err
		}
	}
	return paths, nil
}

// runner performs one generation pass over every configured width.
type runner struct {
	cfg    *config.Config
	paths  config.Resolved
	log    *slog.Logger
	stdout bool
}

func (r *runner) run(ctx context.Context) ([]*generator.Artifacts, error) {
	widths := r.cfg.WidthList()
	if len(widths) == 0 {
		return nil, errNoWidth
	}
	for _, n := range widths {
		if err := config.CheckWidth(n); err != nil {
			return nil, err
		}
	}

	timing := generator.NewTiming(time.Now(), r.paths.TimingPath)
	if err := timing.Err(); err != nil {
		r.log.Warn("timing disabled", "path", r.paths.TimingPath, "error", err)
	}
	defer func() { _ = timing.Close() }()

	checks := generator.Checks{
		Schema:   r.cfg.SchemaCheck(),
		Rules:    r.cfg.RulesCheck(),
		Readback: r.cfg.ReadbackCheck(),
	}
	checker, err := generator.NewChecker(ctx, checks, r.paths.PolicyDir)
	if err != nil {
		return nil, err
	}

	rec := metrics.New()
	defer func() {
		if merr := rec.WriteTextfile(r.paths.MetricsPath); merr != nil {
			r.log.Warn("writing metrics", "path", r.paths.MetricsPath, "error", merr)
		}
	}()

	opts := generator.Options{
		Render:        r.cfg.ToOptions(),
		Checker:       checker,
		WriteManifest: r.cfg.WriteManifest(),
		Logger:        r.log,
		Metrics:       rec,
		Timing:        timing,
	}

	if r.stdout {
		// generated in parallel, streamed in width order
		results, err := generator.GenerateBatch(ctx, widths, opts)
		if err != nil {
			return nil, err
		}
		if err := stream(ctx, sink.NewWriter(os.Stdout), results, opts.WriteManifest); err != nil {
			return nil, err
		}
		return results, nil
	}

	dir, err := sink.NewDir(r.paths.OutputDir)
	if err != nil {
		return nil, err
	}
	defer func() { _ = dir.Close() }()
	opts.Sink = dir

	results, err := generator.GenerateBatch(ctx, widths, opts)
	if err != nil {
		return nil, err
	}
	written := dir.Written()
	sort.Strings(written)
	for _, path := range written {
		fmt.Printf("Wrote %s\n", path)
	}
	for _, art := range results {
		for _, f := range art.Findings {
			r.log.Debug("rule finding", "width", art.Width(), "rule", f.Rule, "severity", f.Severity, "message", f.Message)
		}
	}
	return results, nil
}

// stream writes every artifact set to w and flushes it.
func stream(ctx context.Context, w *sink.Writer, results []*generator.Artifacts, withManifest bool) (err error) {
	defer func() {
		if cerr := w.Close(); err == nil {
			err = cerr
		}
	}()
	for _, art := range results {
		files, err := art.Files(withManifest)
		if err != nil {
			return err
		}
		if err := w.Write(ctx, files...); err != nil {
			return err
		}
	}
	return nil
}
