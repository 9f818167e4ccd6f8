package dedupe

const defaultMaxSize = 50_000

// Option applies a configuration option to the deduper.
type Option func(*cache)

// WithMaxSize bounds the number of fingerprints kept in memory. The oldest
// entry is evicted when the bound is reached. maxSize <= 0 disables
// eviction.
func WithMaxSize(maxSize int) Option {
	return func(c *cache) {
		c.maxSize = maxSize
	}
}
