package choices

import "sync"

// ProgramCache stores compiled rule programs keyed by expression strings.
type ProgramCache interface {
	Get(key string) (any, bool)
	Set(key string, value any)
}

// WithProgramCache shares cache with the default rule evaluator so repeated
// normalizations with the same filter compile it once.
func WithProgramCache(cache ProgramCache) Option {
	return func(cfg *config) {
		cfg.programCache = cache
	}
}

// MemoryProgramCache is a concurrency safe ProgramCache.
type MemoryProgramCache struct {
	programs sync.Map
}

// NewMemoryProgramCache returns an empty cache.
func NewMemoryProgramCache() *MemoryProgramCache {
	return &MemoryProgramCache{}
}

func (c *MemoryProgramCache) Get(key string) (any, bool) {
	return c.programs.Load(key)
}

func (c *MemoryProgramCache) Set(key string, value any) {
	c.programs.Store(key, value)
}
