package dedupe

type settings struct {
	maxSize int
}

// Option configures NewInMemoryDeduper.
type Option func(*settings)

// WithMaxSize sets how many keys are kept. Zero or less means unbounded.
func WithMaxSize(maxSize int) Option {
	return func(s *settings) { s.maxSize = maxSize }
}
