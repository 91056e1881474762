package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/pipeplan/internal/export"
)

func inspectCmd() *cli.Command {
	var (
		planPath    string
		showModules bool
	)

	return &cli.Command{
		Name:  "inspect",
		Usage: "Print a saved plan artifact",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "plan",
				Aliases:     []string{"p"},
				Usage:       "path to a .plan.json or .plan.yaml file",
				Required:    true,
				Destination: &planPath,
			},
			&cli.BoolFlag{
				Name:        "modules",
				Usage:       "print the layer names assigned to each stage",
				Destination: &showModules,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			a, err := export.Read(planPath)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			printArtifact(cmd.Root().Writer, a, showModules)
			if !a.GeneratedAt.IsZero() {
				_, _ = fmt.Fprintf(cmd.Root().Writer, "\ngenerated at %s\n", a.GeneratedAt.Format("2006-01-02 15:04:05 MST"))
			}
			return nil
		},
	}
}
