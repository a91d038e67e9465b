package routines

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/swxsoc/swxingest/internal/annotation"
	"github.com/swxsoc/swxingest/internal/fetch"
	"github.com/swxsoc/swxingest/internal/timeseries"
)

var flareTags = []string{"GOES XRS", "flare"}

type flareRow struct {
	BeginTime string `json:"begin_time"`
	MaxTime   string `json:"max_time"`
	EndTime   string `json:"end_time"`
	MaxClass  string `json:"max_class"`
}

// Flare is one solar flare event from the SWPC flare list.
type Flare struct {
	Begin time.Time
	Peak  time.Time
	End   time.Time
	Class string
}

// FlareAnnotations marks each recent GOES flare on the dashboard with a span
// annotation and a peak annotation.
type FlareAnnotations struct {
	URL       string
	Window    time.Duration
	Dashboard string
	Panel     string
	Mission   string
	Fetch     *fetch.Client
	Sink      Annotator
	Now       Clock
}

// Run implements Routine.
func (f *FlareAnnotations) Run(ctx context.Context) error {
	return run(ctx, "create_GOES_data_annotations", f.run)
}

func (f *FlareAnnotations) run(ctx context.Context, logger *slog.Logger) error {
	var rows []flareRow
	if err := f.Fetch.GetJSON(ctx, fetch.Request{URL: f.URL}, &rows); err != nil {
		return fmt.Errorf("fetch goes flares: %w", err)
	}

	window := timeseries.TrailingWindow(f.Now.now(), 0, f.Window)
	var flares []Flare
	for _, r := range rows {
		fl, err := parseFlare(r)
		if err != nil {
			return err
		}
		if window.Contains(fl.Begin) {
			flares = append(flares, fl)
		}
	}
	logger.Info("goes flares windowed", "window", window.String(), "events", len(flares))

	for _, fl := range flares {
		for _, a := range f.annotations(fl) {
			if err := f.Sink.Create(ctx, a, true); err != nil {
				return fmt.Errorf("annotate flare %s at %s: %w", fl.Class, fl.Begin.Format(time.RFC3339), err)
			}
		}
		logger.Debug("flare annotated", "class", fl.Class, "begin", fl.Begin)
	}
	return nil
}

// annotations returns the span and peak markers for one flare.
func (f *FlareAnnotations) annotations(fl Flare) []annotation.Annotation {
	span := annotation.Annotation{
		Start:     fl.Begin,
		End:       fl.End,
		Text:      fl.Class,
		Tags:      append([]string(nil), flareTags...),
		Dashboard: f.Dashboard,
		Panel:     f.Panel,
		Mission:   f.Mission,
	}
	peak := span
	peak.Start = fl.Peak
	peak.End = time.Time{}
	peak.Tags = append(append([]string(nil), flareTags...), "peak")
	return []annotation.Annotation{span, peak}
}

// parseFlare converts a feed row. The span ends at the peak when the end
// time is missing or reported as unknown.
func parseFlare(r flareRow) (Flare, error) {
	begin, err := parseTime(r.BeginTime)
	if err != nil {
		return Flare{}, fmt.Errorf("flare begin_time: %w", err)
	}
	peak, err := parseTime(r.MaxTime)
	if err != nil {
		return Flare{}, fmt.Errorf("flare max_time: %w", err)
	}
	end := peak
	if s := strings.TrimSpace(r.EndTime); s != "" && !strings.EqualFold(s, "unk") {
		if end, err = parseTime(s); err != nil {
			return Flare{}, fmt.Errorf("flare end_time: %w", err)
		}
	}
	class := strings.TrimSpace(r.MaxClass)
	if class == "" {
		class = "unknown"
	}
	return Flare{Begin: begin, Peak: peak, End: end, Class: class}, nil
}
