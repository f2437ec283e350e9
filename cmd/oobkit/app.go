package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/oobkit/oobkit/pkg/config"
	"github.com/oobkit/oobkit/pkg/defaults"
	"github.com/oobkit/oobkit/pkg/duration"
	"github.com/oobkit/oobkit/pkg/httpclient"
	"github.com/oobkit/oobkit/pkg/metrics"
	"github.com/oobkit/oobkit/pkg/oob"
	"github.com/oobkit/oobkit/pkg/output"
	"github.com/oobkit/oobkit/pkg/payloads"
	"github.com/oobkit/oobkit/pkg/telemetry"
	"github.com/oobkit/oobkit/pkg/ui"
)

// globalFlags are accepted by every command.
type globalFlags struct {
	configPath   string
	format       string
	template     string
	templatePath string
	verbose      bool
	logFormat    string
	logFile      string
	silent       bool
	noColor      bool
}

func (g *globalFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&g.configPath, "config", "", "YAML configuration file")

	// === OUTPUT ===
	fs.StringVar(&g.format, "format", string(output.FormatText), "Output format: text, json, template")
	fs.StringVar(&g.template, "template", "", "Inline Go template (with -format template)")
	fs.StringVar(&g.templatePath, "template-file", "", "Go template file (with -format template)")
	fs.BoolVar(&g.silent, "silent", false, "Suppress status lines")
	fs.BoolVar(&g.silent, "s", false, "Silent (alias)")
	fs.BoolVar(&g.noColor, "no-color", false, "Disable colored output")

	// === LOGGING ===
	fs.BoolVar(&g.verbose, "verbose", false, "Debug logging")
	fs.BoolVar(&g.verbose, "v", false, "Verbose (alias)")
	fs.StringVar(&g.logFormat, "log-format", "text", "Log format: text, json")
	fs.StringVar(&g.logFile, "log-file", "", "Write logs to this file (rotated) instead of stderr")
}

// parseFlags parses args against the defaults, loads -config if given and
// parses args again on top of it, so flags win over the file.
func parseFlags(name string, args []string, stderr io.Writer, register func(fs *flag.FlagSet)) (*config.Config, *globalFlags, error) {
	cfg := config.Default()
	g := &globalFlags{}

	fs := newFlagSet(name, cfg, g, register, stderr)
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}

	if g.configPath != "" {
		loaded, err := config.Load(g.configPath)
		if err != nil {
			return nil, nil, err
		}
		cfg = loaded
		fs = newFlagSet(name, cfg, g, register, io.Discard)
		if err := fs.Parse(args); err != nil {
			return nil, nil, err
		}
	}

	if fs.NArg() > 0 {
		return nil, nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	return cfg, g, nil
}

func newFlagSet(name string, cfg *config.Config, g *globalFlags, register func(fs *flag.FlagSet), stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	g.register(fs)
	cfg.RegisterFlags(fs)
	if register != nil {
		register(fs)
	}
	return fs
}

// app holds what a command needs once flags are parsed.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	metrics  *metrics.Collector
	tracing  *telemetry.Provider
	renderer *output.Renderer

	metricsServer *metrics.Server
	logSink       io.Closer
}

func newApp(cfg *config.Config, g *globalFlags, stdout, stderr io.Writer) (*app, error) {
	logger, sink := newLogger(stderr, g)
	slog.SetDefault(logger)

	ui.SetOutput(stderr)
	ui.SetSilent(g.silent)
	if g.noColor {
		ui.SetNoColor(true)
	} else {
		ui.AutoColor()
	}

	format, err := output.ParseFormat(g.format)
	if err != nil {
		closeSink(sink)
		return nil, err
	}
	renderer, err := output.NewRenderer(stdout, output.Config{
		Format:       format,
		Template:     g.template,
		TemplatePath: g.templatePath,
	})
	if err != nil {
		closeSink(sink)
		return nil, err
	}
	if format == output.FormatText {
		ui.PrintBanner()
	}

	a := &app{
		cfg:      cfg,
		logger:   logger,
		renderer: renderer,
		logSink:  sink,
	}

	collector, err := metrics.New()
	if err != nil {
		a.close()
		return nil, fmt.Errorf("metrics: %w", err)
	}
	a.metrics = collector

	if cfg.Metrics.Listen != "" {
		srv, err := metrics.Serve(cfg.Metrics.Listen, collector, logger)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("metrics: %w", err)
		}
		a.metricsServer = srv
	}

	tracing, err := telemetry.Setup(cfg.TelemetryOptions())
	if err != nil {
		a.close()
		return nil, err
	}
	a.tracing = tracing
	return a, nil
}

// newLogger writes to w, or to a size-rotated file when -log-file is set.
// The returned closer is nil unless a file was opened.
func newLogger(w io.Writer, g *globalFlags) (*slog.Logger, io.Closer) {
	var sink io.Closer
	if g.logFile != "" {
		f := &lumberjack.Logger{
			Filename:   g.logFile,
			MaxSize:    defaults.LogFileMaxSizeMB,
			MaxBackups: defaults.LogFileMaxBackups,
			Compress:   true,
		}
		w, sink = f, f
	}

	opts := &slog.HandlerOptions{Level: slog.LevelWarn}
	if g.verbose {
		opts.Level = slog.LevelDebug
	}
	if g.logFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), sink
	}
	return slog.New(slog.NewTextHandler(w, opts)), sink
}

func closeSink(c io.Closer) {
	if c != nil {
		_ = c.Close()
	}
}

func (a *app) close() {
	if a.tracing != nil {
		ctx, cancel := context.WithTimeout(context.Background(), duration.TelemetryShutdown)
		defer cancel()
		if err := a.tracing.Shutdown(ctx); err != nil {
			a.logger.Warn("telemetry shutdown failed", slog.String("error", err.Error()))
		}
	}
	if a.metricsServer != nil {
		_ = a.metricsServer.Close()
	}
	closeSink(a.logSink)
}

// loadCatalog returns the configured catalog and a label for it.
func (a *app) loadCatalog() (*payloads.Catalog, string, error) {
	if a.cfg.Catalog == "" {
		c, err := payloads.LoadDefault()
		return c, "embedded", err
	}
	c, err := payloads.Load(a.cfg.Catalog)
	return c, a.cfg.Catalog, err
}

// newClient builds the callback server client, disabled when no callback
// server is configured.
func (a *app) newClient() (*oob.Client, error) {
	opts := []oob.Option{
		oob.WithLogger(a.logger),
		oob.WithMetrics(a.metrics),
		oob.WithTracer(a.tracing.Tracer()),
	}

	hc, err := httpclient.New(a.cfg.HTTPClientConfig())
	if err != nil {
		return nil, err
	}
	if !a.cfg.CallbackEnabled() {
		return oob.NewDisabledClient(hc, opts...), nil
	}

	cs := a.cfg.CallbackServer
	a.logger.Debug("callback server configured",
		slog.String("address", cs.Address),
		slog.Int("port", cs.Port),
		slog.String("polling_uri", cs.PollingURI),
	)
	return oob.NewClient(cs.Address, cs.Port, cs.PollingURI, hc, opts...)
}

// setup parses flags and builds the app. A nil app means the command is
// done and code is its exit status.
func setup(name string, args []string, stdout, stderr io.Writer, register func(fs *flag.FlagSet)) (a *app, code int) {
	cfg, g, err := parseFlags(name, args, stderr, register)
	if errors.Is(err, flag.ErrHelp) {
		return nil, defaults.ExitSuccess
	}
	if err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", name, err)
		return nil, defaults.ExitUserError
	}

	a, err = newApp(cfg, g, stdout, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", name, err)
		return nil, defaults.ExitUserError
	}
	return a, defaults.ExitSuccess
}
