package planner

import (
	"fmt"
	"slices"
	"strings"

	"github.com/samcharles93/pipeplan/internal/profile"
)

// Stage is a contiguous half-open range of layers [Start, End) run on one node.
type Stage struct {
	Start   int
	End     int
	Latency float64
	Memory  int64
}

// NumLayers returns End-Start.
func (s Stage) NumLayers() int { return s.End - s.Start }

func (s Stage) String() string {
	return fmt.Sprintf("[%d,%d)", s.Start, s.End)
}

// Template is the optimal partition of a model into NumNodes stages.
// It is immutable; accessors return copies.
type Template struct {
	numNodes    int
	stages      []Stage
	latency     float64
	memRequired int64
}

func newTemplate(stages []Stage) *Template {
	t := &Template{numNodes: len(stages), stages: stages}
	for _, s := range stages {
		t.latency = max(t.latency, s.Latency)
		t.memRequired = max(t.memRequired, s.Memory)
	}
	return t
}

func (t *Template) NumNodes() int { return t.numNodes }

// Latency is the bottleneck stage cost, which bounds steady-state throughput.
func (t *Template) Latency() float64 { return t.latency }

// MemRequired is the footprint of the most memory-hungry stage.
func (t *Template) MemRequired() int64 { return t.memRequired }

// Stages returns a copy of the stages in layer order.
func (t *Template) Stages() []Stage { return slices.Clone(t.stages) }

// Stage returns stage i.
func (t *Template) Stage(i int) Stage { return t.stages[i] }

// ModulesPerStage maps every stage to the names of the layers it holds.
func (t *Template) ModulesPerStage(p *profile.Profile) ([][]string, error) {
	out := make([][]string, 0, len(t.stages))
	for _, s := range t.stages {
		names, err := p.Names(s.Start, s.End)
		if err != nil {
			return nil, err
		}
		out = append(out, names)
	}
	return out, nil
}

// LayersPerStage maps every stage to its layer indices.
func (t *Template) LayersPerStage() [][]int {
	out := make([][]int, 0, len(t.stages))
	for _, s := range t.stages {
		idx := make([]int, 0, s.NumLayers())
		for i := s.Start; i < s.End; i++ {
			idx = append(idx, i)
		}
		out = append(out, idx)
	}
	return out
}

func (t *Template) String() string {
	parts := make([]string, len(t.stages))
	for i, s := range t.stages {
		parts[i] = s.String()
	}
	return fmt.Sprintf("template(nodes=%d latency=%g mem=%d stages=%s)",
		t.numNodes, t.latency, t.memRequired, strings.Join(parts, ""))
}
