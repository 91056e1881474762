package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/pipeplan/internal/api"
	"github.com/samcharles93/pipeplan/internal/logger"
	"github.com/samcharles93/pipeplan/internal/version"
)

func serveCmd() *cli.Command {
	var (
		addr          string
		readTimeout   time.Duration
		maxGenerators int64
	)

	flags := append([]cli.Flag{
		&cli.StringFlag{
			Name:        "base-dir",
			Aliases:     []string{"base", "b"},
			Usage:       "directory containing profiles/ (default $" + envBaseDir + " or .)",
			Destination: &baseDir,
		},
	}, plannerFlags()...)
	flags = append(flags, objectStoreFlags()...)
	flags = append(flags,
		&cli.StringFlag{
			Name:        "out",
			Aliases:     []string{"o"},
			Usage:       "directory for exported plan artifacts (default $" + envOutputDir + ")",
			Destination: &outputDir,
		},
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "listen address",
			Value:       "127.0.0.1:8080",
			Destination: &addr,
		},
		&cli.Int64Flag{
			Name:        "max-generators",
			Usage:       "cached generators kept across requests, least recently used dropped first",
			Value:       api.DefaultMaxGenerators,
			Destination: &maxGenerators,
		},
		&cli.DurationFlag{
			Name:        "read-timeout",
			Usage:       "read timeout",
			Value:       30 * time.Second,
			Destination: &readTimeout,
		},
	)

	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the planning REST API",
		Flags: flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			applyServeConfig(cmd, loadedConfig, &addr)

			capacity, err := resolveNodeMemory(nodeMemory)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: --node-memory: %v", err), 1)
			}

			provider := api.NewCachedGeneratorProvider(api.ProviderConfig{
				BaseDir:       resolveBaseDir(baseDir),
				OutputDir:     resolveOutputDir(outputDir),
				Workers:       int(workers),
				Logger:        log,
				MaxGenerators: int(maxGenerators),
			})
			service := api.NewPlanService(provider, capacity)
			store, err := objectStore(cmd)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			if store != nil {
				service.WithUploader(store)
				log.Info("plan uploads enabled", "endpoint", s3Endpoint, "bucket", s3Bucket)
			}
			server := api.NewServer(api.NewPlanStore(), service)
			e := echo.New()
			e.Use(middleware.RequestLogger())
			e.Use(middleware.Recover())
			server.Register(e)
			log.Info("starting server", "address", addr, "version", version.String())
			sc := echo.StartConfig{
				Address: addr,
				BeforeServeFunc: func(srv *http.Server) error {
					srv.ReadHeaderTimeout = readTimeout
					return nil
				},
			}
			return sc.Start(ctx, e)
		},
	}
}
