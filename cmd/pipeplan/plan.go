package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/pipeplan/internal/export"
	"github.com/samcharles93/pipeplan/internal/logger"
	"github.com/samcharles93/pipeplan/internal/planner"
	"github.com/samcharles93/pipeplan/internal/profile"
)

func planCmd() *cli.Command {
	var (
		nodesList   string
		showModules bool
		upload      bool
	)

	flags := append(commonProfileFlags(), plannerFlags()...)
	flags = append(flags, outputFlags()...)
	flags = append(flags, objectStoreFlags()...)
	flags = append(flags,
		&cli.StringFlag{
			Name:        "nodes",
			Aliases:     []string{"n"},
			Usage:       "node counts to plan for, e.g. 1,2,4-8",
			Required:    true,
			Destination: &nodesList,
		},
		&cli.BoolFlag{
			Name:        "modules",
			Usage:       "print the layer names assigned to each stage",
			Destination: &showModules,
		},
		&cli.BoolFlag{
			Name:        "upload",
			Usage:       "also upload the plan artifact to the object store",
			Destination: &upload,
		},
	)

	return &cli.Command{
		Name:  "plan",
		Usage: "Generate pipeline templates for a layer profile",
		Flags: flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			applyPlannerConfig(cmd, loadedConfig)

			if strings.TrimSpace(tag) == "" {
				return cli.Exit("error: --tag is required", 1)
			}
			nodes, err := parseNodes(nodesList)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: --nodes: %v", err), 1)
			}
			capacity, err := resolveNodeMemory(nodeMemory)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: --node-memory: %v", err), 1)
			}
			format, err := export.ParseFormat(planFormat)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}

			loc := profile.Location{BaseDir: resolveBaseDir(baseDir), Model: modelName, Tag: tag}
			out := resolveOutputDir(outputDir)
			g, err := planner.New(loc, out, planner.Options{
				NodeMemory: capacity,
				Workers:    int(workers),
				Logger:     log,
			})
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}

			start := time.Now()
			res, err := g.Plan(ctx, nodes)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			log.Debug("plan complete", "profile", loc.String(), "elapsed", time.Since(start))

			artifact, err := export.FromResult(g.Profile(), res, time.Now())
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			printArtifact(cmd.Root().Writer, artifact, showModules)
			if len(res.Infeasible) > 0 {
				log.Warn("some node counts have no feasible template", "nodes", res.Infeasible)
			}

			if out != "" {
				path, err := export.Export(g, res, format, artifact.GeneratedAt)
				if err != nil {
					return cli.Exit(fmt.Sprintf("error: write plan: %v", err), 1)
				}
				log.Info("plan written", "path", path)
			}
			if !upload {
				return nil
			}
			store, err := objectStore(cmd)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			if store == nil {
				return cli.Exit("error: --upload requires --s3-endpoint", 1)
			}
			url, err := store.Upload(ctx, artifact, format)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			log.Info("plan uploaded", "url", url)
			return nil
		},
	}
}
