package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/pipeplan/internal/logger"
	"github.com/samcharles93/pipeplan/internal/profile"
)

func synthCmd() *cli.Command {
	var (
		layers      int64
		seed        int64
		memPerLayer string
		fileFormat  string
	)

	return &cli.Command{
		Name:  "synth",
		Usage: "Write a synthetic layer profile for testing",
		Flags: append(commonProfileFlags(),
			&cli.Int64Flag{
				Name:        "layers",
				Aliases:     []string{"l"},
				Usage:       "number of layers",
				Value:       24,
				Destination: &layers,
			},
			&cli.Int64Flag{
				Name:        "seed",
				Usage:       "random seed",
				Value:       1,
				Destination: &seed,
			},
			&cli.StringFlag{
				Name:        "mem-per-layer",
				Usage:       "mean per-layer memory (e.g. 512MiB)",
				Value:       "1GiB",
				Destination: &memPerLayer,
			},
			&cli.StringFlag{
				Name:        "file-format",
				Usage:       "profile file format (csv, json)",
				Value:       "csv",
				Destination: &fileFormat,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			applyPlannerConfig(cmd, loadedConfig)

			if tag == "" {
				return cli.Exit("error: --tag is required", 1)
			}
			mem, err := parseSize(memPerLayer)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: --mem-per-layer: %v", err), 1)
			}
			p, err := profile.Synthetic(modelName, tag, profile.SynthOptions{
				Layers:      int(layers),
				Seed:        uint64(seed),
				MemPerLayer: mem,
			})
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			loc := profile.Location{BaseDir: resolveBaseDir(baseDir), Model: modelName, Tag: tag}
			path, err := profile.Save(loc, p, fileFormat)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			log.Info("profile written", "path", path, "layers", p.Len())
			return nil
		},
	}
}
