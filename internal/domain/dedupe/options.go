package dedupe

// Option configures NewInMemoryDeduper.
type Option func(*window)

// WithMaxSize caps how many request ids are remembered. Zero or less keeps
// every id.
func WithMaxSize(maxSize int) Option {
	return func(d *window) {
		d.maxSize = maxSize
	}
}
