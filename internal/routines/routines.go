// Package routines implements the ingestion routines the dispatcher can run.
//
// Each routine is a linear fetch, transform and write: it pulls one feed,
// shapes it into time series or annotations, and hands the result to a sink.
// Routines log their start and outcome and return any failure unchanged to
// the caller after logging it.
package routines

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/swxsoc/swxingest/internal/log"
)

// Routine is one runnable ingestion routine.
type Routine interface {
	Run(ctx context.Context) error
}

// Func adapts a function to Routine.
type Func func(ctx context.Context) error

// Run implements Routine.
func (f Func) Run(ctx context.Context) error { return f(ctx) }

// Clock returns the current time. Routines compute trailing windows from it.
type Clock func() time.Time

func (c Clock) now() time.Time {
	if c == nil {
		return time.Now().UTC()
	}
	return c().UTC()
}

// run wraps a routine body with start/outcome logging.
func run(ctx context.Context, rule string, body func(ctx context.Context, logger *slog.Logger) error) error {
	logger := log.WithRule(rule)
	logger.Info("routine started")
	start := time.Now()
	if err := body(ctx, logger); err != nil {
		logger.Error("routine failed", "error", err, "duration", time.Since(start))
		return err
	}
	logger.Info("routine completed", "duration", time.Since(start))
	return nil
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// parseTime parses the timestamp formats seen in the upstream feeds. Values
// without a zone are UTC.
func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}
