package coordinator

import (
	"github.com/corvidchess/engine/internal/engine"
)

// Config holds the tunables needed to construct a Coordinator: how many
// threads search in parallel, how large the shared transposition table is,
// and the per-worker cache sizes passed through to engine.Config.
type Config struct {
	Threads  int
	HashMB   int
	AgeBonus int

	// Debug turns a recovered worker panic into a fatal error surfaced
	// from Close, instead of just logging it; without Debug the worker sits
	// out the rest of that search and rejoins the next one.
	Debug bool

	Engine engine.Config
}

// DefaultConfig uses a single search thread (the main worker, no helpers)
// and a 16MB hash table, small enough to run comfortably in tests.
func DefaultConfig() Config {
	return Config{
		Threads:  1,
		HashMB:   16,
		AgeBonus: engine.DefaultAgeWeight,
		Engine:   engine.DefaultConfig(),
	}
}

// Option configures a Config.
type Option func(*Config)

// WithThreads sets the number of search threads (1 main + Threads-1 helpers).
func WithThreads(n int) Option {
	return func(c *Config) {
		if n < 1 {
			n = 1
		}
		c.Threads = n
	}
}

// WithHashMB sets the shared transposition table size in megabytes.
func WithHashMB(mb int) Option {
	return func(c *Config) {
		c.HashMB = mb
	}
}

// WithPawnCacheEntries sets each worker's private pawn hash table size.
func WithPawnCacheEntries(entries int) Option {
	return func(c *Config) {
		c.Engine.PawnCacheEntries = entries
	}
}

// WithMaterialCacheEntries sets the reserved material-imbalance cache size.
func WithMaterialCacheEntries(entries int) Option {
	return func(c *Config) {
		c.Engine.MaterialCacheEntries = entries
	}
}

// WithAgeBonus sets the weight given to an entry's search generation in the
// transposition table's replacement score (entry.age*ageWeight +
// entry.depth; the slot with the lowest score in its cluster is evicted).
// Raising it biases replacement toward clearing out stale-generation
// entries even when they're deep; lowering it lets depth dominate.
func WithAgeBonus(weight int) Option {
	return func(c *Config) {
		c.AgeBonus = weight
	}
}

// WithDebug enables fatal propagation of recovered worker panics via Close.
func WithDebug(debug bool) Option {
	return func(c *Config) {
		c.Debug = debug
	}
}

func NewConfig(opts ...Option) Config {
	c := DefaultConfig()
	for _, opt := range opts {
		opt(&c)
	}
	return c
}
