// Package planner searches, for every node count up to a maximum, the
// partition of a model's layers into pipeline stages that minimizes the
// bottleneck stage latency within a per-node memory ceiling.
//
// The search is a memoized divide-and-conquer over (start, end, n): a range
// split into n stages is the best combination of a left range in n1 stages
// and a right range in n-n1 stages. Planes of equal n are filled in parallel
// sweeps of increasing n; plane n only depends on planes below it.
package planner

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"slices"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/samcharles93/pipeplan/internal/logger"
	"github.com/samcharles93/pipeplan/internal/observability"
	"github.com/samcharles93/pipeplan/internal/profile"
)

// Source yields the layer profile a generator plans over.
type Source interface {
	Load() (*profile.Profile, error)
}

type Options struct {
	// NodeMemory is the per-node memory ceiling in bytes. Zero means unlimited.
	NodeMemory int64
	// Workers bounds sweep parallelism. Zero uses GOMAXPROCS.
	Workers int
	Logger  logger.Logger
}

// Generator owns the memo table for one profile and capacity. It is safe for
// concurrent use; solves are serialized.
type Generator struct {
	profile   *profile.Profile
	outputDir string
	capacity  int64
	workers   int
	log       logger.Logger

	mu        sync.Mutex
	memo      *memo
	full      int // highest n whose plane is completely swept
	maxSolved int
	templates []*Template // indexed by n up to min(maxSolved, layers); nil when infeasible
}

// New loads the profile from src and binds a generator to it. outputDir is
// where exported artifacts are written.
func New(src Source, outputDir string, opts Options) (*Generator, error) {
	p, err := src.Load()
	if err != nil {
		return nil, err
	}
	return NewFromProfile(p, outputDir, opts), nil
}

func NewFromProfile(p *profile.Profile, outputDir string, opts Options) *Generator {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	log := opts.Logger
	if log == nil {
		log = logger.Discard()
	}
	return &Generator{
		profile:   p,
		outputDir: outputDir,
		capacity:  max(opts.NodeMemory, 0),
		workers:   workers,
		log:       log.With("model", p.Model(), "tag", p.Tag()),
		memo:      newMemo(p.Len()),
		templates: make([]*Template, 1),
	}
}

func (g *Generator) Profile() *profile.Profile { return g.profile }
func (g *Generator) OutputDir() string         { return g.outputDir }
func (g *Generator) NodeMemory() int64         { return g.capacity }

// Solved returns the largest node count solved so far.
func (g *Generator) Solved() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.maxSolved
}

// SolveUpTo computes the optimal template for every n in [1, maxNodes].
// Counts without a feasible template are not an error unless no count in the
// range has one. Calling again with a larger maxNodes extends the table.
func (g *Generator) SolveUpTo(ctx context.Context, maxNodes int) (err error) {
	ctx, span := observability.StartSpan(ctx, "planner.solve",
		attribute.Int("nodes.max", maxNodes),
		attribute.Int("profile.layers", g.profile.Len()),
		attribute.Int64("node.memory", g.capacity),
	)
	defer func() { observability.EndSpan(span, err) }()

	if maxNodes < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidNodeCount, maxNodes)
	}
	numLayers := g.profile.Len()
	if numLayers == 0 {
		return ErrEmptyModel
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if maxNodes > g.maxSolved {
		start := time.Now()
		// no range holds more stages than layers, so planes above numLayers
		// are never needed
		for n := g.full + 1; n < maxNodes && n <= numLayers; n++ {
			if err := g.sweep(ctx, n); err != nil {
				return err
			}
			g.full = n
		}
		// The top plane only needs the full-range cell until a later call
		// sweeps it.
		if g.full < maxNodes && maxNodes <= numLayers {
			g.memo.plane(maxNodes)
			g.solveCell(0, numLayers, maxNodes)
		}

		// counts above numLayers are infeasible and get no slot
		feasibleCount := 0
		for n := len(g.templates); n <= min(maxNodes, numLayers); n++ {
			var t *Template
			if g.memo.at(0, numLayers, n).state == feasible {
				t = newTemplate(g.stages(0, numLayers, n))
				feasibleCount++
			}
			g.templates = append(g.templates, t)
		}
		g.log.Info("templates solved",
			"from", g.maxSolved+1,
			"to", maxNodes,
			"feasible", feasibleCount,
			"elapsed", time.Since(start),
		)
		g.maxSolved = maxNodes
	}

	for _, t := range g.templates[1:min(maxNodes, numLayers)+1] {
		if t != nil {
			return nil
		}
	}
	return fmt.Errorf("%w: no node count in [1, %d] fits %d bytes per node", ErrInfeasible, maxNodes, g.capacity)
}

// TemplateFor returns the template for n nodes.
func (g *Generator) TemplateFor(n int) (*Template, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if n < 1 || n > g.maxSolved {
		return nil, fmt.Errorf("%w: %d (solved up to %d)", ErrNotSolved, n, g.maxSolved)
	}
	if n >= len(g.templates) {
		return nil, fmt.Errorf("%w: %d nodes for %d layers", ErrInfeasible, n, g.profile.Len())
	}
	t := g.templates[n]
	if t == nil {
		return nil, fmt.Errorf("%w: %d nodes", ErrInfeasible, n)
	}
	return t, nil
}

// Result is the answer to a batch request. Infeasible lists requested counts
// that have no template; they are not an error.
type Result struct {
	Model      string
	Tag        string
	NodeMemory int64
	Templates  []*Template
	Infeasible []int
}

// Plan answers for a set of requested node counts. The set is normalized to
// [1, max(requested)] for the search and the feasible requested templates
// are returned in ascending node count. It fails with ErrInfeasible only if
// none of the requested counts is feasible.
func (g *Generator) Plan(ctx context.Context, requested []int) (_ *Result, err error) {
	ctx, span := observability.StartSpan(ctx, "planner.plan", attribute.IntSlice("nodes.requested", requested))
	defer func() { observability.EndSpan(span, err) }()

	nodes, err := NormalizeNodes(requested)
	if err != nil {
		return nil, err
	}
	if err := g.SolveUpTo(ctx, nodes[len(nodes)-1]); err != nil && !isInfeasible(err) {
		return nil, err
	}

	res := &Result{
		Model:      g.profile.Model(),
		Tag:        g.profile.Tag(),
		NodeMemory: g.capacity,
	}
	for _, n := range nodes {
		t, err := g.TemplateFor(n)
		switch {
		case err == nil:
			res.Templates = append(res.Templates, t)
		case isInfeasible(err):
			res.Infeasible = append(res.Infeasible, n)
		default:
			return nil, err
		}
	}
	if len(res.Templates) == 0 {
		return nil, fmt.Errorf("%w: none of %v nodes fits %d bytes per node", ErrInfeasible, nodes, g.capacity)
	}
	return res, nil
}

// NormalizeNodes sorts and deduplicates requested node counts.
func NormalizeNodes(requested []int) ([]int, error) {
	if len(requested) == 0 {
		return nil, fmt.Errorf("%w: no node counts requested", ErrInvalidNodeCount)
	}
	nodes := slices.Clone(requested)
	slices.Sort(nodes)
	nodes = slices.Compact(nodes)
	if nodes[0] < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidNodeCount, nodes[0])
	}
	return nodes, nil
}

// sweep fills plane n for every range. Workers own disjoint start rows.
func (g *Generator) sweep(ctx context.Context, n int) error {
	start := time.Now()
	numLayers := g.profile.Len()
	g.memo.plane(n)

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.workers)
	for s := 0; s < numLayers; s++ {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			for e := s + n; e <= numLayers; e++ {
				g.solveCell(s, e, n)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}
	g.log.Debug("sweep complete", "nodes", n, "elapsed", time.Since(start))
	return nil
}

// solveCell memoizes (start, end, n). Planes below n must be complete.
func (g *Generator) solveCell(start, end, n int) {
	c := g.memo.at(start, end, n)
	if c.state != unsolved {
		return
	}
	if end-start < n {
		c.state = infeasible
		return
	}

	if n == 1 {
		// ranges are valid by construction
		lat, _ := g.profile.Cost(start, end)
		mem, _ := g.profile.Memory(start, end)
		if g.capacity > 0 && mem > g.capacity {
			c.state = infeasible
			return
		}
		*c = cell{latency: lat, memory: mem, split: int32(end), left: 1, state: feasible}
		return
	}

	best := cell{state: infeasible}
	for k := start + 1; k < end; k++ {
		lo := max(1, n-(end-k))
		hi := min(n-1, k-start)
		for n1 := lo; n1 <= hi; n1++ {
			left := g.memo.at(start, k, n1)
			if left.state != feasible {
				continue
			}
			if best.state == feasible && left.latency > best.latency {
				continue
			}
			right := g.memo.at(k, end, n-n1)
			if right.state != feasible {
				continue
			}
			lat := max(left.latency, right.latency)
			mem := max(left.memory, right.memory)
			if best.state != feasible || lat < best.latency || (lat == best.latency && mem < best.memory) {
				best = cell{latency: lat, memory: mem, split: int32(k), left: int32(n1), state: feasible}
			}
		}
	}
	*c = best
}

// stages rebuilds the stage list of a feasible cell from recorded splits.
func (g *Generator) stages(start, end, n int) []Stage {
	c := g.memo.at(start, end, n)
	if n == 1 {
		return []Stage{{Start: start, End: end, Latency: c.latency, Memory: c.memory}}
	}
	k, n1 := int(c.split), int(c.left)
	return append(g.stages(start, k, n1), g.stages(k, end, n-n1)...)
}

func isInfeasible(err error) bool {
	return errors.Is(err, ErrInfeasible)
}
