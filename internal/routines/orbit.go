package routines

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/tidwall/gjson"

	"github.com/swxsoc/swxingest/internal/fetch"
	"github.com/swxsoc/swxingest/internal/timeseries"
)

const orbitSeries = "orbit"

// OrbitImport records spacecraft ephemeris from a propagation service.
type OrbitImport struct {
	URL        string
	Window     time.Duration
	Instrument string
	// Rows is the gjson path of the ephemeris array; empty means the body itself.
	Rows  string
	Fetch *fetch.Client
	Sink  SeriesRecorder
	Now   Clock
}

// Run implements Routine.
func (o *OrbitImport) Run(ctx context.Context) error {
	return run(ctx, "import_orbit_to_timestream", o.run)
}

func (o *OrbitImport) run(ctx context.Context, logger *slog.Logger) error {
	if o.URL == "" {
		return errors.New("orbit: no ephemeris url configured")
	}
	window := timeseries.TrailingWindow(o.Now.now(), 0, o.Window)
	body, err := o.Fetch.Get(ctx, fetch.Request{
		URL: o.URL,
		Query: url.Values{
			"start": {window.Start.Format(time.RFC3339)},
			"end":   {window.End.Format(time.RFC3339)},
		},
	})
	if err != nil {
		return fmt.Errorf("fetch ephemeris: %w", err)
	}

	s, err := parseEphemeris(body, o.Rows, o.Instrument)
	if err != nil {
		return err
	}
	s = s.Window(window)
	logger.Info("ephemeris windowed", "window", window.String(), "points", s.Len())
	if s.Len() == 0 {
		return nil
	}
	if err := o.Sink.Record(ctx, s); err != nil {
		return fmt.Errorf("record %s: %w", s.Instrument, err)
	}
	return nil
}

// parseEphemeris reads rows of {time, lat, lon, alt}.
func parseEphemeris(body []byte, rowsPath, instrument string) (timeseries.Series, error) {
	if !gjson.ValidBytes(body) {
		return timeseries.Series{}, errors.New("ephemeris response is not valid JSON")
	}
	rows := gjson.ParseBytes(body)
	if rowsPath != "" {
		rows = rows.Get(rowsPath)
	}
	if !rows.IsArray() {
		return timeseries.Series{}, fmt.Errorf("ephemeris: %q is not an array", rowsPath)
	}

	s := timeseries.New(orbitSeries, instrument)
	for i, row := range rows.Array() {
		t, err := parseTime(row.Get("time").String())
		if err != nil {
			return timeseries.Series{}, fmt.Errorf("ephemeris row %d: %w", i, err)
		}
		vals := make(map[string]float64, 3)
		for _, col := range []string{"lat", "lon", "alt"} {
			if v := row.Get(col); v.Exists() {
				vals[col] = v.Float()
			}
		}
		s.Add(t, vals)
	}
	s.Sort()
	return *s, nil
}
