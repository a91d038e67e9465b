package timeseries

import "context"

// Sink records a series in a time-series store.
type Sink interface {
	Record(ctx context.Context, s Series) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, s Series) error

// Record calls f.
func (f SinkFunc) Record(ctx context.Context, s Series) error {
	return f(ctx, s)
}
