// Package timeseries holds the in-memory time-indexed tables produced by the
// ingestion routines, the windowing and join helpers that shape them, and the
// sinks that record them.
package timeseries

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// Point is one timestamped row of named numeric values.
type Point struct {
	Time   time.Time
	Values map[string]float64
}

// Series is a named table of points ordered by time.
//
// Name is the series (table) name, e.g. "GOES"; Instrument distinguishes
// sub-series written to the same table, e.g. "goes xrsa".
type Series struct {
	Name       string
	Instrument string
	Points     []Point
}

// New creates an empty series.
func New(name, instrument string) *Series {
	return &Series{Name: name, Instrument: instrument}
}

// Add appends a point. Call Sort before windowing if points arrive unordered.
func (s *Series) Add(t time.Time, values map[string]float64) {
	s.Points = append(s.Points, Point{Time: t.UTC(), Values: values})
}

// Sort orders points by time, keeping the input order of equal timestamps.
func (s *Series) Sort() {
	sort.SliceStable(s.Points, func(i, j int) bool {
		return s.Points[i].Time.Before(s.Points[j].Time)
	})
}

// Len returns the number of points.
func (s Series) Len() int {
	return len(s.Points)
}

// Columns returns the sorted union of value names across all points.
func (s Series) Columns() []string {
	seen := make(map[string]struct{})
	for _, p := range s.Points {
		for k := range p.Values {
			seen[k] = struct{}{}
		}
	}
	cols := make([]string, 0, len(seen))
	for k := range seen {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols
}

// Window returns the points of a sorted series whose time lies within w.
func (s Series) Window(w Window) Series {
	lo := sort.Search(len(s.Points), func(i int) bool {
		return !s.Points[i].Time.Before(w.Start)
	})
	hi := sort.Search(len(s.Points), func(i int) bool {
		return s.Points[i].Time.After(w.End)
	})
	out := Series{Name: s.Name, Instrument: s.Instrument}
	if lo < hi {
		out.Points = append([]Point(nil), s.Points[lo:hi]...)
	}
	return out
}

// Window is an inclusive time interval.
type Window struct {
	Start time.Time
	End   time.Time
}

// TrailingWindow returns the interval of the given length ending delay before now.
func TrailingWindow(now time.Time, delay, length time.Duration) Window {
	end := now.Add(-delay).UTC()
	return Window{Start: end.Add(-length), End: end}
}

// Contains reports whether t lies within w, ends included.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

func (w Window) String() string {
	return w.Start.Format(time.RFC3339) + ".." + w.End.Format(time.RFC3339)
}

// Join aligns sorted series on the union of their timestamps. Each output
// point carries the values every input has at that instant; columns absent
// from an input at an instant are left out rather than zero-filled.
// Two inputs sharing a column name is an error.
func Join(name, instrument string, inputs ...Series) (Series, error) {
	owner := make(map[string]int)
	for i, in := range inputs {
		for _, c := range in.Columns() {
			if j, dup := owner[c]; dup && j != i {
				return Series{}, fmt.Errorf("join %s: column %q present in more than one input", name, c)
			}
			owner[c] = i
		}
	}

	out := Series{Name: name, Instrument: instrument}
	idx := make([]int, len(inputs))
	for {
		var next time.Time
		found := false
		for i, in := range inputs {
			if idx[i] < len(in.Points) {
				t := in.Points[idx[i]].Time
				if !found || t.Before(next) {
					next, found = t, true
				}
			}
		}
		if !found {
			return out, nil
		}

		vals := make(map[string]float64)
		for i, in := range inputs {
			for idx[i] < len(in.Points) && in.Points[idx[i]].Time.Equal(next) {
				for k, v := range in.Points[idx[i]].Values {
					vals[k] = v
				}
				idx[i]++
			}
		}
		out.Points = append(out.Points, Point{Time: next, Values: vals})
	}
}

// Finite reports whether v can be written to every sink.
func Finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
