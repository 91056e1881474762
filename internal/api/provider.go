package api

import (
	"container/list"
	"context"
	"strings"
	"sync"

	"github.com/samcharles93/pipeplan/internal/logger"
	"github.com/samcharles93/pipeplan/internal/planner"
	"github.com/samcharles93/pipeplan/internal/profile"
)

// GeneratorKey identifies one generator: generators for different keys never
// share memo state.
type GeneratorKey struct {
	Model      string
	Tag        string
	NodeMemory int64
}

type GeneratorProvider interface {
	Generator(ctx context.Context, key GeneratorKey) (*planner.Generator, error)
	Profiles() ([]profile.Entry, error)
}

// DefaultMaxGenerators bounds the provider cache when ProviderConfig leaves
// MaxGenerators at zero.
const DefaultMaxGenerators = 64

type ProviderConfig struct {
	BaseDir   string
	OutputDir string
	Workers   int
	Logger    logger.Logger
	// MaxGenerators caps cached generators; the least recently used one is
	// dropped first. Zero uses DefaultMaxGenerators.
	MaxGenerators int
}

// CachedGeneratorProvider loads each profile once per key and keeps the
// generator, so repeated requests reuse its solved templates. Each distinct
// node memory is its own key, so the cache is bounded.
type CachedGeneratorProvider struct {
	cfg   ProviderConfig
	mu    sync.Mutex
	cache map[GeneratorKey]*list.Element
	lru   *list.List // front is most recently used
}

type cacheEntry struct {
	key GeneratorKey
	gen *planner.Generator
}

func NewCachedGeneratorProvider(cfg ProviderConfig) *CachedGeneratorProvider {
	if cfg.Logger == nil {
		cfg.Logger = logger.Discard()
	}
	if cfg.MaxGenerators <= 0 {
		cfg.MaxGenerators = DefaultMaxGenerators
	}
	return &CachedGeneratorProvider{
		cfg:   cfg,
		cache: make(map[GeneratorKey]*list.Element),
		lru:   list.New(),
	}
}

// lookup returns the cached generator for key and marks it used. p.mu must be held.
func (p *CachedGeneratorProvider) lookup(key GeneratorKey) (*planner.Generator, bool) {
	el, ok := p.cache[key]
	if !ok {
		return nil, false
	}
	p.lru.MoveToFront(el)
	return el.Value.(*cacheEntry).gen, true
}

func (p *CachedGeneratorProvider) Generator(ctx context.Context, key GeneratorKey) (*planner.Generator, error) {
	key.Model = strings.TrimSpace(key.Model)
	key.Tag = strings.TrimSpace(key.Tag)

	p.mu.Lock()
	g, ok := p.lookup(key)
	p.mu.Unlock()
	if ok {
		return g, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	loc := profile.Location{BaseDir: p.cfg.BaseDir, Model: key.Model, Tag: key.Tag}
	loaded, err := planner.New(loc, p.cfg.OutputDir, planner.Options{
		NodeMemory: key.NodeMemory,
		Workers:    p.cfg.Workers,
		Logger:     p.cfg.Logger,
	})
	if err != nil {
		return nil, err
	}
	p.cfg.Logger.Debug("generator loaded", "profile", loc.String(), "layers", loaded.Profile().Len())

	p.mu.Lock()
	defer p.mu.Unlock()
	if existing, ok := p.lookup(key); ok {
		return existing, nil
	}
	p.cache[key] = p.lru.PushFront(&cacheEntry{key: key, gen: loaded})
	for p.lru.Len() > p.cfg.MaxGenerators {
		oldest := p.lru.Back()
		evicted := p.lru.Remove(oldest).(*cacheEntry)
		delete(p.cache, evicted.key)
		p.cfg.Logger.Debug("generator evicted", "model", evicted.key.Model, "tag", evicted.key.Tag, "node_memory", evicted.key.NodeMemory)
	}
	return loaded, nil
}

// Len reports the number of cached generators.
func (p *CachedGeneratorProvider) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lru.Len()
}

func (p *CachedGeneratorProvider) Profiles() ([]profile.Entry, error) {
	return profile.List(p.cfg.BaseDir)
}
