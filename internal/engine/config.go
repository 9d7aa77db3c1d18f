package engine

// Config holds the tunable sizing knobs each search worker is constructed
// with. Defaults are chosen to keep a single worker's private caches small
// enough that a many-threaded Lazy-SMP search doesn't dominate memory with
// per-worker state.
type Config struct {
	// PawnCacheEntries is the number of entries in each worker's pawn
	// structure hash table. Rounded down to a power of two.
	PawnCacheEntries int

	// MaterialCacheEntries is reserved for a future material-imbalance
	// cache; the classical evaluator currently folds material into the
	// same pass as piece-square terms, so nothing populates this cache
	// yet, but the sizing knob is part of Config so nothing else changes
	// shape when that cache is added.
	MaterialCacheEntries int
}

// DefaultConfig returns the sizing defaults used when a worker isn't given
// an explicit Config.
func DefaultConfig() Config {
	return Config{
		PawnCacheEntries:     8192,
		MaterialCacheEntries: 16384,
	}
}

// Option configures a Config.
type Option func(*Config)

// WithPawnCacheEntries overrides the per-worker pawn hash table size.
func WithPawnCacheEntries(entries int) Option {
	return func(c *Config) {
		c.PawnCacheEntries = entries
	}
}

// WithMaterialCacheEntries overrides the reserved material cache size.
func WithMaterialCacheEntries(entries int) Option {
	return func(c *Config) {
		c.MaterialCacheEntries = entries
	}
}

// NewConfig builds a Config from DefaultConfig with the given options
// applied on top.
func NewConfig(opts ...Option) Config {
	c := DefaultConfig()
	for _, opt := range opts {
		opt(&c)
	}
	return c
}
