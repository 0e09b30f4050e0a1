package xblit

// DefaultMaxScratch bounds the conversion working set: row batches are
// sized so the scratch buffer never exceeds it.
const DefaultMaxScratch = 256 << 10

// Option configures a Context during creation.
//
// Example:
//
//	ctx, err := xblit.NewContextFor(dev,
//		xblit.WithColorAllocator(colorcube.New(pal)))
type Option func(*contextOptions)

type contextOptions struct {
	alloc      ColorAllocator
	maxScratch int
}

func defaultOptions() contextOptions {
	return contextOptions{
		maxScratch: DefaultMaxScratch,
	}
}

// WithColorAllocator supplies the allocator used to resolve colors on
// palette-indexed visuals. Creating a Context for a palette visual without
// one fails.
func WithColorAllocator(a ColorAllocator) Option {
	return func(o *contextOptions) {
		o.alloc = a
	}
}

// WithMaxScratch overrides the conversion buffer ceiling. Values below one
// padded row still convert, one row at a time.
func WithMaxScratch(bytes int) Option {
	return func(o *contextOptions) {
		if bytes > 0 {
			o.maxScratch = bytes
		}
	}
}
