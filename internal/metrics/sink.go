// Package metrics records dispatcher and routine outcomes.
package metrics

import "time"

// Sink records metrics. Implementations must not block or return errors.
type Sink interface {
	// Invocation records one handled trigger. class is "" on success.
	Invocation(rule, class string, duration time.Duration)
	// SecretLoaded records the outcome of loading one credential.
	SecretLoaded(name string, ok bool)
	// SeriesRecorded records the number of points written for an instrument.
	SeriesRecorded(series, instrument string, points int)
	// AnnotationCreated records one annotation write.
	AnnotationCreated(dashboard, panel string)
}

// Outcome labels.
const (
	OutcomeSuccess = "success"
	OutcomeFailed  = "failed"
)

// UnknownRule labels invocations whose rule name is not in the closed set.
const UnknownRule = "unknown"

// NoopSink discards everything.
type NoopSink struct{}

// NewNoopSink returns a no-op sink.
func NewNoopSink() *NoopSink { return &NoopSink{} }

func (NoopSink) Invocation(rule, class string, duration time.Duration) {}
func (NoopSink) SecretLoaded(name string, ok bool)                     {}
func (NoopSink) SeriesRecorded(series, instrument string, points int)  {}
func (NoopSink) AnnotationCreated(dashboard, panel string)             {}
