package planner

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
	"sync"
	"testing"

	"github.com/samcharles93/pipeplan/internal/profile"
)

func makeProfile(t *testing.T, costs []float64, mem []int64) *profile.Profile {
	t.Helper()
	layers := make([]profile.LayerExecutionResult, len(costs))
	for i := range costs {
		layers[i] = profile.LayerExecutionResult{Index: i, Forward: costs[i], MemRequired: mem[i]}
	}
	p, err := profile.New("test-model", "test-tag", layers)
	if err != nil {
		t.Fatalf("profile.New: %v", err)
	}
	return p
}

func randomProfile(t *testing.T, seed uint64, numLayers int) *profile.Profile {
	t.Helper()
	rng := rand.New(rand.NewPCG(seed, seed+1))
	costs := make([]float64, numLayers)
	mem := make([]int64, numLayers)
	for i := range costs {
		// small integers keep ties common, which exercises tie-breaking
		costs[i] = float64(1 + rng.IntN(6))
		mem[i] = int64(1 + rng.IntN(4))
	}
	return makeProfile(t, costs, mem)
}

func stageBounds(tmpl *Template) [][2]int {
	out := make([][2]int, 0, tmpl.NumNodes())
	for _, s := range tmpl.Stages() {
		out = append(out, [2]int{s.Start, s.End})
	}
	return out
}

func checkTiling(t *testing.T, tmpl *Template, numLayers int) {
	t.Helper()
	stages := tmpl.Stages()
	if len(stages) != tmpl.NumNodes() {
		t.Fatalf("template has %d stages for %d nodes", len(stages), tmpl.NumNodes())
	}
	next := 0
	for i, s := range stages {
		if s.Start != next {
			t.Fatalf("stage %d starts at %d, want %d (%v)", i, s.Start, next, tmpl)
		}
		if s.End <= s.Start {
			t.Fatalf("stage %d is empty (%v)", i, tmpl)
		}
		next = s.End
	}
	if next != numLayers {
		t.Fatalf("stages end at %d, want %d (%v)", next, numLayers, tmpl)
	}
}

func TestScenarioEvenSplit(t *testing.T) {
	t.Parallel()

	p := makeProfile(t, []float64{1, 1, 1, 1}, []int64{1, 1, 1, 1})
	g := NewFromProfile(p, "", Options{NodeMemory: 10})
	if err := g.SolveUpTo(context.Background(), 2); err != nil {
		t.Fatalf("SolveUpTo: %v", err)
	}
	tmpl, err := g.TemplateFor(2)
	if err != nil {
		t.Fatalf("TemplateFor: %v", err)
	}
	if got, want := stageBounds(tmpl), [][2]int{{0, 2}, {2, 4}}; !slices.Equal(got, want) {
		t.Fatalf("stages: got %v want %v", got, want)
	}
	if tmpl.Latency() != 2 {
		t.Fatalf("latency: got %v want 2", tmpl.Latency())
	}
	if tmpl.MemRequired() != 2 {
		t.Fatalf("mem: got %d want 2", tmpl.MemRequired())
	}
}

func TestScenarioTightCapacity(t *testing.T) {
	t.Parallel()

	p := makeProfile(t, []float64{1, 1, 1, 1}, []int64{1, 1, 1, 1})
	g := NewFromProfile(p, "", Options{NodeMemory: 1})
	if err := g.SolveUpTo(context.Background(), 4); err != nil {
		t.Fatalf("SolveUpTo: %v", err)
	}
	for _, n := range []int{1, 2, 3} {
		if _, err := g.TemplateFor(n); !errors.Is(err, ErrInfeasible) {
			t.Fatalf("TemplateFor(%d): expected ErrInfeasible, got %v", n, err)
		}
	}
	tmpl, err := g.TemplateFor(4)
	if err != nil {
		t.Fatalf("TemplateFor(4): %v", err)
	}
	if got, want := stageBounds(tmpl), [][2]int{{0, 1}, {1, 2}, {2, 3}, {3, 4}}; !slices.Equal(got, want) {
		t.Fatalf("stages: got %v want %v", got, want)
	}

	res, err := g.Plan(context.Background(), []int{2, 3, 4})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(res.Templates) != 1 || res.Templates[0].NumNodes() != 4 {
		t.Fatalf("expected only the 4-node template, got %v", res.Templates)
	}
	if !slices.Equal(res.Infeasible, []int{2, 3}) {
		t.Fatalf("infeasible: got %v want [2 3]", res.Infeasible)
	}
}

func TestScenarioHeavyLayerIsolated(t *testing.T) {
	t.Parallel()

	p := makeProfile(t, []float64{5, 1, 1, 1}, []int64{1, 1, 1, 1})
	g := NewFromProfile(p, "", Options{})
	if err := g.SolveUpTo(context.Background(), 2); err != nil {
		t.Fatalf("SolveUpTo: %v", err)
	}
	tmpl, err := g.TemplateFor(2)
	if err != nil {
		t.Fatalf("TemplateFor: %v", err)
	}
	if got, want := stageBounds(tmpl), [][2]int{{0, 1}, {1, 4}}; !slices.Equal(got, want) {
		t.Fatalf("stages: got %v want %v", got, want)
	}
	if tmpl.Latency() != 5 {
		t.Fatalf("latency: got %v want 5", tmpl.Latency())
	}
}

func TestSingleNodeIsWholeModel(t *testing.T) {
	t.Parallel()

	p := randomProfile(t, 3, 9)
	g := NewFromProfile(p, "", Options{})
	if err := g.SolveUpTo(context.Background(), 1); err != nil {
		t.Fatalf("SolveUpTo: %v", err)
	}
	tmpl, err := g.TemplateFor(1)
	if err != nil {
		t.Fatalf("TemplateFor: %v", err)
	}
	cost, _ := p.Cost(0, p.Len())
	mem, _ := p.Memory(0, p.Len())
	if tmpl.Latency() != cost || tmpl.MemRequired() != mem {
		t.Fatalf("got latency=%v mem=%d, want %v %d", tmpl.Latency(), tmpl.MemRequired(), cost, mem)
	}
}

func TestInvariantsOnRandomProfiles(t *testing.T) {
	t.Parallel()

	for seed := uint64(1); seed <= 8; seed++ {
		p := randomProfile(t, seed, 12)
		const capacity = 9
		g := NewFromProfile(p, "", Options{NodeMemory: capacity, Workers: 3})
		if err := g.SolveUpTo(context.Background(), 12); err != nil {
			t.Fatalf("seed %d: SolveUpTo: %v", seed, err)
		}

		prevLatency := math.Inf(1)
		for n := 1; n <= 12; n++ {
			tmpl, err := g.TemplateFor(n)
			if errors.Is(err, ErrInfeasible) {
				continue
			}
			if err != nil {
				t.Fatalf("seed %d: TemplateFor(%d): %v", seed, n, err)
			}
			checkTiling(t, tmpl, p.Len())
			for _, s := range tmpl.Stages() {
				mem, _ := p.Memory(s.Start, s.End)
				if mem > capacity || s.Memory != mem {
					t.Fatalf("seed %d n=%d: stage %v memory %d (recorded %d) over capacity", seed, n, s, mem, s.Memory)
				}
			}
			if tmpl.Latency() > prevLatency {
				t.Fatalf("seed %d: latency for %d nodes %v exceeds %v for fewer nodes", seed, n, tmpl.Latency(), prevLatency)
			}
			prevLatency = tmpl.Latency()
		}
	}
}

// bruteForce enumerates every partition of [0, L) into n non-empty stages.
func bruteForce(p *profile.Profile, n int, capacity int64) (float64, bool) {
	best, found := math.Inf(1), false
	var walk func(start, left int, worst float64)
	walk = func(start, left int, worst float64) {
		if left == 1 {
			c, _ := p.Cost(start, p.Len())
			m, _ := p.Memory(start, p.Len())
			if capacity > 0 && m > capacity {
				return
			}
			if w := max(worst, c); w < best {
				best, found = w, true
			}
			return
		}
		for end := start + 1; end <= p.Len()-(left-1); end++ {
			c, _ := p.Cost(start, end)
			m, _ := p.Memory(start, end)
			if capacity > 0 && m > capacity {
				continue
			}
			walk(end, left-1, max(worst, c))
		}
	}
	walk(0, n, 0)
	return best, found
}

func TestMatchesBruteForce(t *testing.T) {
	t.Parallel()

	for seed := uint64(10); seed < 20; seed++ {
		p := randomProfile(t, seed, 9)
		capacity := int64(6)
		g := NewFromProfile(p, "", Options{NodeMemory: capacity})
		_ = g.SolveUpTo(context.Background(), 9)

		for n := 1; n <= 9; n++ {
			want, ok := bruteForce(p, n, capacity)
			tmpl, err := g.TemplateFor(n)
			if !ok {
				if !errors.Is(err, ErrInfeasible) {
					t.Fatalf("seed %d n=%d: expected ErrInfeasible, got %v", seed, n, err)
				}
				continue
			}
			if err != nil {
				t.Fatalf("seed %d n=%d: TemplateFor: %v", seed, n, err)
			}
			if tmpl.Latency() != want {
				t.Fatalf("seed %d n=%d: latency %v, brute force %v", seed, n, tmpl.Latency(), want)
			}
		}
	}
}

func TestDeterministicAcrossWorkerCounts(t *testing.T) {
	t.Parallel()

	p := randomProfile(t, 42, 16)
	var reference []string
	for _, workers := range []int{1, 2, 8} {
		g := NewFromProfile(p, "", Options{NodeMemory: 12, Workers: workers})
		if err := g.SolveUpTo(context.Background(), 8); err != nil {
			t.Fatalf("workers=%d: SolveUpTo: %v", workers, err)
		}
		var got []string
		for n := 1; n <= 8; n++ {
			tmpl, err := g.TemplateFor(n)
			if err != nil {
				got = append(got, err.Error())
				continue
			}
			got = append(got, tmpl.String())
		}
		if reference == nil {
			reference = got
			continue
		}
		if !slices.Equal(got, reference) {
			t.Fatalf("workers=%d produced different templates:\n%v\nwant\n%v", workers, got, reference)
		}
	}
}

func TestSolveUpToExtendsTable(t *testing.T) {
	t.Parallel()

	p := randomProfile(t, 5, 10)
	incremental := NewFromProfile(p, "", Options{})
	for _, limit := range []int{1, 3, 2, 7} {
		if err := incremental.SolveUpTo(context.Background(), limit); err != nil {
			t.Fatalf("SolveUpTo(%d): %v", limit, err)
		}
	}
	if incremental.Solved() != 7 {
		t.Fatalf("solved: got %d want 7", incremental.Solved())
	}

	oneShot := NewFromProfile(p, "", Options{})
	if err := oneShot.SolveUpTo(context.Background(), 7); err != nil {
		t.Fatalf("SolveUpTo: %v", err)
	}
	for n := 1; n <= 7; n++ {
		a, errA := incremental.TemplateFor(n)
		b, errB := oneShot.TemplateFor(n)
		if errA != nil || errB != nil {
			t.Fatalf("n=%d: %v %v", n, errA, errB)
		}
		if a.String() != b.String() {
			t.Fatalf("n=%d: incremental %v, one-shot %v", n, a, b)
		}
	}
}

func TestTemplateForErrors(t *testing.T) {
	t.Parallel()

	p := randomProfile(t, 1, 4)
	g := NewFromProfile(p, "", Options{})
	if _, err := g.TemplateFor(1); !errors.Is(err, ErrNotSolved) {
		t.Fatalf("expected ErrNotSolved before solving, got %v", err)
	}
	if err := g.SolveUpTo(context.Background(), 6); err != nil {
		t.Fatalf("SolveUpTo: %v", err)
	}
	if _, err := g.TemplateFor(7); !errors.Is(err, ErrNotSolved) {
		t.Fatalf("expected ErrNotSolved above solved range, got %v", err)
	}
	if _, err := g.TemplateFor(0); !errors.Is(err, ErrNotSolved) {
		t.Fatalf("expected ErrNotSolved for zero, got %v", err)
	}
	// more nodes than layers leaves a stage empty
	if _, err := g.TemplateFor(5); !errors.Is(err, ErrInfeasible) {
		t.Fatalf("expected ErrInfeasible for 5 nodes over 4 layers, got %v", err)
	}
}

func TestHugeNodeCountIsInfeasible(t *testing.T) {
	t.Parallel()

	p := makeProfile(t, []float64{1, 1, 1, 1, 1, 1}, []int64{1, 1, 1, 1, 1, 1})
	g := NewFromProfile(p, "", Options{Workers: 2})
	res, err := g.Plan(context.Background(), []int{2, 2_000_000_000})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(res.Templates) != 1 || res.Templates[0].NumNodes() != 2 {
		t.Fatalf("expected only the 2-node template, got %v", res.Templates)
	}
	if !slices.Equal(res.Infeasible, []int{2_000_000_000}) {
		t.Fatalf("infeasible: got %v", res.Infeasible)
	}
	if got := len(g.templates); got != p.Len()+1 {
		t.Fatalf("template table grew to %d slots for %d layers", got, p.Len())
	}
	for _, n := range []int{7, 1_000_000, 2_000_000_000} {
		if _, err := g.TemplateFor(n); !errors.Is(err, ErrInfeasible) {
			t.Fatalf("TemplateFor(%d): expected ErrInfeasible, got %v", n, err)
		}
	}
	if _, err := g.TemplateFor(2_000_000_001); !errors.Is(err, ErrNotSolved) {
		t.Fatalf("expected ErrNotSolved past the solved range, got %v", err)
	}
	if err := g.SolveUpTo(context.Background(), 6); err != nil {
		t.Fatalf("SolveUpTo below solved range: %v", err)
	}
	if tmpl, err := g.TemplateFor(6); err != nil || tmpl.NumNodes() != 6 {
		t.Fatalf("TemplateFor(6): %v, %v", tmpl, err)
	}
}

func TestTieBreaks(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		costs   []float64
		mem     []int64
		nodes   int
		want    [][2]int
		latency float64
		memory  int64
	}{
		{
			// both splits give latency 2; {0,2},{2,3} peaks at 5 instead of 6
			name:  "memory breaks latency tie",
			costs: []float64{1, 1, 1}, mem: []int64{1, 1, 5}, nodes: 2,
			want: [][2]int{{0, 2}, {2, 3}}, latency: 2, memory: 5,
		},
		{
			name:  "smallest split on full tie",
			costs: []float64{1, 1, 1}, mem: []int64{1, 1, 1}, nodes: 2,
			want: [][2]int{{0, 1}, {1, 3}}, latency: 2, memory: 2,
		},
		{
			// the k=1 candidate reaches latency 3 with memory 2; splitting
			// at k=2 with two nodes on the left reaches latency 3 with memory 1
			name:  "memory prefers later split",
			costs: []float64{3, 1, 1, 2}, mem: []int64{0, 1, 1, 0}, nodes: 3,
			want: [][2]int{{0, 1}, {1, 2}, {2, 4}}, latency: 3, memory: 1,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			g := NewFromProfile(makeProfile(t, tc.costs, tc.mem), "", Options{})
			if err := g.SolveUpTo(context.Background(), tc.nodes); err != nil {
				t.Fatalf("SolveUpTo: %v", err)
			}
			tmpl, err := g.TemplateFor(tc.nodes)
			if err != nil {
				t.Fatalf("TemplateFor: %v", err)
			}
			if got := stageBounds(tmpl); !slices.Equal(got, tc.want) {
				t.Fatalf("stages: got %v want %v", got, tc.want)
			}
			if tmpl.Latency() != tc.latency || tmpl.MemRequired() != tc.memory {
				t.Fatalf("got latency %v memory %d, want %v and %d", tmpl.Latency(), tmpl.MemRequired(), tc.latency, tc.memory)
			}
		})
	}
}

func TestSolveUpToErrors(t *testing.T) {
	t.Parallel()

	empty, err := profile.New("m", "t", nil)
	if err != nil {
		t.Fatalf("profile.New: %v", err)
	}
	if err := NewFromProfile(empty, "", Options{}).SolveUpTo(context.Background(), 2); !errors.Is(err, ErrEmptyModel) {
		t.Fatalf("expected ErrEmptyModel, got %v", err)
	}

	p := makeProfile(t, []float64{1, 1}, []int64{5, 5})
	g := NewFromProfile(p, "", Options{NodeMemory: 4})
	if err := g.SolveUpTo(context.Background(), 2); !errors.Is(err, ErrInfeasible) {
		t.Fatalf("expected ErrInfeasible when every layer exceeds capacity, got %v", err)
	}
	if err := g.SolveUpTo(context.Background(), 0); !errors.Is(err, ErrInvalidNodeCount) {
		t.Fatalf("expected ErrInvalidNodeCount, got %v", err)
	}
}

func TestSolveUpToCancelled(t *testing.T) {
	t.Parallel()

	p := randomProfile(t, 9, 20)
	g := NewFromProfile(p, "", Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := g.SolveUpTo(ctx, 6); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if g.Solved() != 0 {
		t.Fatalf("cancelled solve must not publish templates, solved=%d", g.Solved())
	}
	if err := g.SolveUpTo(context.Background(), 6); err != nil {
		t.Fatalf("SolveUpTo after cancel: %v", err)
	}
}

func TestConcurrentSolvers(t *testing.T) {
	t.Parallel()

	p := randomProfile(t, 77, 14)
	g := NewFromProfile(p, "", Options{NodeMemory: 16})
	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 1; i <= 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := g.SolveUpTo(context.Background(), i); err != nil && !errors.Is(err, ErrInfeasible) {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("SolveUpTo: %v", err)
	}
	if g.Solved() != 8 {
		t.Fatalf("solved: got %d want 8", g.Solved())
	}
}

func TestPlanCoversAllLayers(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	layers := make([]profile.LayerExecutionResult, 6)
	for i := range layers {
		layers[i] = profile.LayerExecutionResult{
			Index:       i,
			Name:        fmt.Sprintf("layer_%d", i),
			Forward:     float64(i + 1),
			Backward:    2,
			MemRequired: int64(i + 1),
		}
	}
	src, err := profile.New("", "gpt2-test", layers)
	if err != nil {
		t.Fatalf("profile.New: %v", err)
	}
	loc := profile.Location{BaseDir: base, Tag: "gpt2-test"}
	if _, err := profile.Save(loc, src, "csv"); err != nil {
		t.Fatalf("Save: %v", err)
	}

	g, err := New(loc, t.TempDir(), Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res, err := g.Plan(context.Background(), []int{4, 1, 3, 2, 2})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(res.Templates) != 4 || len(res.Infeasible) != 0 {
		t.Fatalf("expected 4 templates, got %d (infeasible %v)", len(res.Templates), res.Infeasible)
	}
	for i, tmpl := range res.Templates {
		if tmpl.NumNodes() != i+1 {
			t.Fatalf("templates not in ascending order: %v", res.Templates)
		}
		modules, err := tmpl.ModulesPerStage(g.Profile())
		if err != nil {
			t.Fatalf("ModulesPerStage: %v", err)
		}
		var covered []string
		for _, stage := range modules {
			covered = append(covered, stage...)
		}
		if !slices.Equal(covered, []string{"layer_0", "layer_1", "layer_2", "layer_3", "layer_4", "layer_5"}) {
			t.Fatalf("%d nodes: unexpected layer coverage %v", tmpl.NumNodes(), covered)
		}
	}

	if _, err := g.Plan(context.Background(), []int{8}); !errors.Is(err, ErrInfeasible) {
		t.Fatalf("expected ErrInfeasible for more nodes than layers, got %v", err)
	}
	if _, err := g.Plan(context.Background(), nil); !errors.Is(err, ErrInvalidNodeCount) {
		t.Fatalf("expected ErrInvalidNodeCount, got %v", err)
	}
}

func TestNewProfileNotFound(t *testing.T) {
	t.Parallel()

	_, err := New(profile.Location{BaseDir: t.TempDir(), Model: "gpt2", Tag: "missing"}, "", Options{})
	if !errors.Is(err, ErrProfileNotFound) {
		t.Fatalf("expected ErrProfileNotFound, got %v", err)
	}
}

func TestLayersPerStage(t *testing.T) {
	t.Parallel()

	tmpl := newTemplate([]Stage{{Start: 0, End: 2, Latency: 1}, {Start: 2, End: 3, Latency: 4, Memory: 7}})
	got := tmpl.LayersPerStage()
	if len(got) != 2 || !slices.Equal(got[0], []int{0, 1}) || !slices.Equal(got[1], []int{2}) {
		t.Fatalf("unexpected layers per stage: %v", got)
	}
	if tmpl.Latency() != 4 || tmpl.MemRequired() != 7 {
		t.Fatalf("unexpected aggregates: %v", tmpl)
	}
}
