package tokenizer

import (
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultPatternCacheSize is the number of compiled patterns a cache keeps
// when no size is given.
const DefaultPatternCacheSize = 256

// PatternCache keeps recently compiled matchers so that rebuilding rules
// (rules reloads, checking several rules files) does not recompile patterns
// that have not changed. Compiled matchers are immutable and shared freely.
// A nil *PatternCache compiles without caching.
type PatternCache struct {
	cache *lru.Cache[string, Matcher]
}

// NewPatternCache creates a cache holding up to size matchers.
func NewPatternCache(size int) (*PatternCache, error) {
	if size <= 0 {
		size = DefaultPatternCacheSize
	}
	cache, err := lru.New[string, Matcher](size)
	if err != nil {
		return nil, fmt.Errorf("creating pattern cache: %w", err)
	}
	return &PatternCache{cache: cache}, nil
}

// Compile returns a cached matcher for the engine, source and timeout, or
// compiles and caches a new one. Compile errors are not cached.
func (c *PatternCache) Compile(engine Engine, source string, timeout time.Duration) (Matcher, error) {
	if c == nil {
		return CompileMatcher(engine, source, timeout)
	}
	key := fmt.Sprintf("%s\x00%d\x00%s", engine, timeout, source)
	if m, ok := c.cache.Get(key); ok {
		return m, nil
	}
	m, err := CompileMatcher(engine, source, timeout)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, m)
	return m, nil
}

// Len returns the number of cached matchers.
func (c *PatternCache) Len() int {
	if c == nil {
		return 0
	}
	return c.cache.Len()
}
