package dedupe

// Option configures the in-memory deduper.
type Option func(*memory)

// WithMaxSize bounds the number of remembered keys. Zero or negative means
// unbounded.
func WithMaxSize(n int) Option {
	return func(d *memory) {
		d.maxSize = n
	}
}
