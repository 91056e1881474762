// Package export converts solved pipeline templates into plain data for a
// downstream pipeline-parallel runtime and persists them as plan artifacts.
package export

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/samcharles93/pipeplan/internal/planner"
	"github.com/samcharles93/pipeplan/internal/profile"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat accepts json, yaml or yml.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported plan format %q (want json or yaml)", s)
	}
}

type Stage struct {
	Start   int     `json:"start" yaml:"start"`
	End     int     `json:"end" yaml:"end"`
	Latency float64 `json:"latency" yaml:"latency"`
	Memory  int64   `json:"memory" yaml:"memory"`
}

// Template carries the three fields a runtime needs to build a pipeline
// (latency, mem_required, modules_per_stage) plus the stage bounds.
type Template struct {
	NumNodes        int        `json:"num_nodes" yaml:"num_nodes"`
	Latency         float64    `json:"latency" yaml:"latency"`
	MemRequired     int64      `json:"mem_required" yaml:"mem_required"`
	Stages          []Stage    `json:"stages" yaml:"stages"`
	ModulesPerStage [][]string `json:"modules_per_stage" yaml:"modules_per_stage"`
}

type Artifact struct {
	Model       string     `json:"model,omitempty" yaml:"model,omitempty"`
	Tag         string     `json:"tag" yaml:"tag"`
	NodeMemory  int64      `json:"node_memory" yaml:"node_memory"`
	GeneratedAt time.Time  `json:"generated_at" yaml:"generated_at"`
	Templates   []Template `json:"templates" yaml:"templates"`
	Infeasible  []int      `json:"infeasible,omitempty" yaml:"infeasible,omitempty"`
}

func FromTemplate(p *profile.Profile, t *planner.Template) (Template, error) {
	modules, err := t.ModulesPerStage(p)
	if err != nil {
		return Template{}, err
	}
	out := Template{
		NumNodes:        t.NumNodes(),
		Latency:         t.Latency(),
		MemRequired:     t.MemRequired(),
		ModulesPerStage: modules,
	}
	for _, s := range t.Stages() {
		out.Stages = append(out.Stages, Stage{Start: s.Start, End: s.End, Latency: s.Latency, Memory: s.Memory})
	}
	return out, nil
}

func FromResult(p *profile.Profile, res *planner.Result, now time.Time) (Artifact, error) {
	a := Artifact{
		Model:       res.Model,
		Tag:         res.Tag,
		NodeMemory:  res.NodeMemory,
		GeneratedAt: now.UTC(),
		Templates:   make([]Template, 0, len(res.Templates)),
		Infeasible:  res.Infeasible,
	}
	for _, t := range res.Templates {
		et, err := FromTemplate(p, t)
		if err != nil {
			return Artifact{}, fmt.Errorf("template for %d nodes: %w", t.NumNodes(), err)
		}
		a.Templates = append(a.Templates, et)
	}
	return a, nil
}

// FileName returns <model>-<tag>.plan.<ext>, with path separators in the
// model name flattened. Names that profile.CheckModel or profile.CheckTag
// reject are an error.
func FileName(model, tag string, format Format) (string, error) {
	if err := profile.CheckModel(model); err != nil {
		return "", err
	}
	if err := profile.CheckTag(tag); err != nil {
		return "", err
	}
	base := tag
	if model != "" {
		base = strings.ReplaceAll(model, "/", "_") + "-" + tag
	}
	return base + ".plan." + string(format), nil
}

func Encode(w io.Writer, a Artifact, format Format) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(a)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(a); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported plan format %q", format)
	}
}

// Write encodes a into dir and returns the file path.
func Write(dir string, a Artifact, format Format) (string, error) {
	if strings.TrimSpace(dir) == "" {
		return "", fmt.Errorf("output directory is required")
	}
	name, err := FileName(a.Model, a.Tag, format)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := Encode(&buf, a, format); err != nil {
		return "", err
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// Export converts res and writes it to the generator's output directory.
func Export(g *planner.Generator, res *planner.Result, format Format, now time.Time) (string, error) {
	a, err := FromResult(g.Profile(), res, now)
	if err != nil {
		return "", err
	}
	return Write(g.OutputDir(), a, format)
}

// Read loads an artifact, choosing the decoder by extension.
func Read(path string) (Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Artifact{}, err
	}
	var a Artifact
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &a)
	default:
		err = json.Unmarshal(data, &a)
	}
	if err != nil {
		return Artifact{}, fmt.Errorf("decode plan %s: %w", path, err)
	}
	return a, nil
}
