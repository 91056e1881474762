// Package profile holds per-layer execution profiles and answers range
// cost and memory queries over them in constant time.
package profile

import (
	"fmt"
	"math"
	"slices"
)

// LayerExecutionResult is the recorded cost of one model layer.
type LayerExecutionResult struct {
	Index    int     `json:"index" yaml:"index"`
	Name     string  `json:"name,omitempty" yaml:"name,omitempty"`
	Forward  float64 `json:"forward" yaml:"forward"`
	Backward float64 `json:"backward" yaml:"backward"`
	// MemRequired is the parameter plus activation footprint in bytes.
	MemRequired int64 `json:"mem_required" yaml:"mem_required"`
}

// Latency is the forward plus backward cost of the layer.
func (r LayerExecutionResult) Latency() float64 {
	return r.Forward + r.Backward
}

// Profile is an immutable, index-ordered sequence of layer results for one
// model and configuration tag.
type Profile struct {
	model  string
	tag    string
	layers []LayerExecutionResult

	// prefix sums; costSum[i] covers layers [0, i)
	costSum []float64
	memSum  []int64
}

// New validates layers and builds a Profile. Layers may be given in any
// order but their indices must form 0..len-1 exactly once each.
func New(model, tag string, layers []LayerExecutionResult) (*Profile, error) {
	sorted := slices.Clone(layers)
	slices.SortFunc(sorted, func(a, b LayerExecutionResult) int {
		return a.Index - b.Index
	})

	for i, l := range sorted {
		if l.Index != i {
			return nil, fmt.Errorf("%w: layer indices must be contiguous from 0, found %d at position %d", ErrInvalidProfile, l.Index, i)
		}
		if !validLatency(l.Forward) || !validLatency(l.Backward) {
			return nil, fmt.Errorf("%w: layer %d has negative or non-finite latency", ErrInvalidProfile, i)
		}
		if l.MemRequired < 0 {
			return nil, fmt.Errorf("%w: layer %d has negative memory", ErrInvalidProfile, i)
		}
		if l.Name == "" {
			sorted[i].Name = fmt.Sprintf("layer_%d", i)
		}
	}

	p := &Profile{
		model:   model,
		tag:     tag,
		layers:  sorted,
		costSum: make([]float64, len(sorted)+1),
		memSum:  make([]int64, len(sorted)+1),
	}
	for i, l := range sorted {
		p.costSum[i+1] = p.costSum[i] + l.Latency()
		p.memSum[i+1] = p.memSum[i] + l.MemRequired
	}
	return p, nil
}

func (p *Profile) Model() string { return p.model }
func (p *Profile) Tag() string   { return p.tag }

// Len returns the number of layers.
func (p *Profile) Len() int { return len(p.layers) }

// Layer returns the result recorded for layer i.
func (p *Profile) Layer(i int) LayerExecutionResult { return p.layers[i] }

// Layers returns a copy of all layer results in index order.
func (p *Profile) Layers() []LayerExecutionResult {
	return slices.Clone(p.layers)
}

// Cost returns the summed forward+backward latency of layers [i, j).
func (p *Profile) Cost(i, j int) (float64, error) {
	if err := p.checkRange(i, j); err != nil {
		return 0, err
	}
	return p.costSum[j] - p.costSum[i], nil
}

// Memory returns the summed memory requirement of layers [i, j).
func (p *Profile) Memory(i, j int) (int64, error) {
	if err := p.checkRange(i, j); err != nil {
		return 0, err
	}
	return p.memSum[j] - p.memSum[i], nil
}

// Names returns the layer names of [i, j) in order.
func (p *Profile) Names(i, j int) ([]string, error) {
	if err := p.checkRange(i, j); err != nil {
		return nil, err
	}
	names := make([]string, 0, j-i)
	for _, l := range p.layers[i:j] {
		names = append(names, l.Name)
	}
	return names, nil
}

func (p *Profile) checkRange(i, j int) error {
	if i < 0 || j > len(p.layers) || i >= j {
		return fmt.Errorf("%w: [%d, %d) over %d layers", ErrInvalidRange, i, j, len(p.layers))
	}
	return nil
}

func validLatency(v float64) bool {
	return v >= 0 && !math.IsInf(v, 1)
}
