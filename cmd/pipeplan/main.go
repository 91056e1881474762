package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/pipeplan/internal/logger"
	"github.com/samcharles93/pipeplan/internal/observability"
	"github.com/samcharles93/pipeplan/internal/version"
)

var (
	// loadedConfig is read once in the root Before hook.
	loadedConfig Config
	// shutdownTracing flushes spans; set by the root Before hook.
	shutdownTracing = func(context.Context) error { return nil }
)

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:  "pipeplan",
		Usage: "Pipeline-parallel stage planner",
		Flags: append(loggingFlags(), tracingFlags()...),
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			cfg, err := LoadConfig(configPath())
			if err != nil {
				return ctx, err
			}
			loadedConfig = cfg
			log, err := setupLogger(cmd, cfg)
			if err != nil {
				return ctx, err
			}

			applyTraceConfig(cmd, cfg.Trace)
			shutdown, err := observability.Setup(ctx, "pipeplan", version.String(), observability.TraceConfig{
				Exporter:    traceExporter,
				Endpoint:    traceEndpoint,
				Insecure:    traceInsecure,
				SampleRatio: traceRatio,
			})
			if err != nil {
				return ctx, err
			}
			shutdownTracing = shutdown
			return logger.WithContext(ctx, log), nil
		},
		After: func(ctx context.Context, cmd *cli.Command) error {
			flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			if err := shutdownTracing(flushCtx); err != nil {
				logger.FromContext(ctx).Warn("trace flush failed", "error", err)
			}
			return nil
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return cli.ShowAppHelp(cmd)
		},
		Commands: []*cli.Command{
			planCmd(),
			serveCmd(),
			profilesCmd(),
			synthCmd(),
			inspectCmd(),
			versionCmd(),
		},
	}
}

func setupLogger(cmd *cli.Command, cfg Config) (logger.Logger, error) {
	if cfg.LogLevel != "" && !cmd.IsSet("log-level") {
		logLevel = cfg.LogLevel
	}
	if cfg.LogFormat != "" && !cmd.IsSet("log-format") {
		logFormat = cfg.LogFormat
	}
	level := logger.ParseLevel(logLevel)
	if debug {
		level = slog.LevelDebug
	}
	return logger.ForFormat(logFormat, os.Stderr, level)
}
