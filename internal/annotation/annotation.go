// Package annotation writes discrete textual event markers to dashboard panels.
package annotation

import (
	"context"
	"slices"
	"time"
)

// Annotation is one marker on a dashboard panel. A zero End, or End equal to
// Start, is a point-in-time marker.
type Annotation struct {
	Start     time.Time
	End       time.Time
	Text      string
	Tags      []string
	Dashboard string
	Panel     string
	Mission   string
}

// Sink creates annotations. With overwrite set, an existing annotation with
// the same dashboard, panel, time span and tag set is replaced rather than
// duplicated.
type Sink interface {
	Create(ctx context.Context, a Annotation, overwrite bool) error
}

// EndOrStart returns End, falling back to Start for point markers.
func (a Annotation) EndOrStart() time.Time {
	if a.End.IsZero() {
		return a.Start
	}
	return a.End
}

// SameIdentity reports whether two markers occupy the same slot for overwrite purposes.
func SameIdentity(a, b Annotation) bool {
	return a.Dashboard == b.Dashboard &&
		a.Panel == b.Panel &&
		a.Start.Equal(b.Start) &&
		a.EndOrStart().Equal(b.EndOrStart()) &&
		SameTags(a.Tags, b.Tags)
}

// SameTags compares tag sets ignoring order.
func SameTags(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	x := slices.Clone(a)
	y := slices.Clone(b)
	slices.Sort(x)
	slices.Sort(y)
	return slices.Equal(x, y)
}
