package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/pipeplan/internal/logger"
	"github.com/samcharles93/pipeplan/internal/profile"
)

func profilesCmd() *cli.Command {
	return &cli.Command{
		Name:    "profiles",
		Aliases: []string{"ls"},
		Usage:   "List available layer profiles",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "base-dir",
				Aliases:     []string{"base", "b"},
				Usage:       "directory containing profiles/ (default $" + envBaseDir + " or .)",
				Destination: &baseDir,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			applyPlannerConfig(cmd, loadedConfig)

			dir := resolveBaseDir(baseDir)
			entries, err := profile.List(dir)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			if len(entries) == 0 {
				log.Info("no profiles found", "path", dir)
				return nil
			}

			w := cmd.Root().Writer
			_, _ = fmt.Fprintf(w, "Profiles in %s:\n\n", dir)
			for _, e := range entries {
				name := e.Tag
				if e.Model != "" {
					name = e.Model + "/" + e.Tag
				}
				p, err := profile.LoadFile(e.Path, e.Model, e.Tag)
				if err != nil {
					log.Debug("profile unreadable", "path", e.Path, "error", err)
					_, _ = fmt.Fprintf(w, "  %-40s  (unreadable)\n", name)
					continue
				}
				total, _ := p.Memory(0, p.Len())
				_, _ = fmt.Fprintf(w, "  %-40s %5d layers %12s\n", name, p.Len(), formatBytes(total))
			}
			_, _ = fmt.Fprintf(w, "\n%d profile(s) found\n", len(entries))
			return nil
		},
	}
}
