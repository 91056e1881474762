package profile

import (
	"fmt"
	"math/rand/v2"
)

// SynthOptions controls Synthetic.
type SynthOptions struct {
	Layers int
	Seed   uint64
	// MemPerLayer is the mean per-layer footprint in bytes.
	MemPerLayer int64
}

// Synthetic builds a random profile for dry runs. Backward costs are drawn
// at roughly three times the forward cost, as measured on transformer blocks.
func Synthetic(model, tag string, opts SynthOptions) (*Profile, error) {
	if opts.Layers < 1 {
		return nil, fmt.Errorf("%w: synthetic profile needs at least one layer", ErrInvalidProfile)
	}
	mem := opts.MemPerLayer
	if mem <= 0 {
		mem = 1 << 30
	}
	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15))

	layers := make([]LayerExecutionResult, opts.Layers)
	for i := range layers {
		layers[i] = LayerExecutionResult{
			Index:       i,
			Name:        fmt.Sprintf("layer_%d", i),
			Forward:     rng.Float64(),
			Backward:    rng.Float64() * 3,
			MemRequired: mem/2 + rng.Int64N(mem),
		}
	}
	return New(model, tag, layers)
}
