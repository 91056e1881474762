package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/samcharles93/pipeplan/internal/export"
)

// printArtifact renders a plan as a table, one template per row.
func printArtifact(w io.Writer, a export.Artifact, showModules bool) {
	name := a.Tag
	if a.Model != "" {
		name = a.Model + "/" + a.Tag
	}
	capacity := "unlimited"
	if a.NodeMemory > 0 {
		capacity = formatBytes(a.NodeMemory)
	}
	_, _ = fmt.Fprintf(w, "Plan for %s (node memory %s):\n\n", name, capacity)
	_, _ = fmt.Fprintf(w, "  %5s  %14s  %12s  %s\n", "NODES", "LATENCY", "MEMORY", "STAGES")
	for _, t := range a.Templates {
		bounds := make([]string, len(t.Stages))
		for i, s := range t.Stages {
			bounds[i] = fmt.Sprintf("[%d,%d)", s.Start, s.End)
		}
		_, _ = fmt.Fprintf(w, "  %5d  %14.4f  %12s  %s\n", t.NumNodes, t.Latency, formatBytes(t.MemRequired), strings.Join(bounds, " "))
		if !showModules {
			continue
		}
		for i, mods := range t.ModulesPerStage {
			_, _ = fmt.Fprintf(w, "         stage %d: %s\n", i, strings.Join(mods, ", "))
		}
	}
	if len(a.Infeasible) > 0 {
		_, _ = fmt.Fprintf(w, "\nno feasible template for nodes %v\n", a.Infeasible)
	}
}
