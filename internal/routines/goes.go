package routines

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/swxsoc/swxingest/internal/fetch"
	"github.com/swxsoc/swxingest/internal/timeseries"
)

// GOES X-ray energy bands as labelled by SWPC.
const (
	BandShort = "0.05-0.4nm"
	BandLong  = "0.1-0.8nm"
)

const goesSeries = "GOES"

// goesFluxRow is one row of the SWPC xrays feed.
type goesFluxRow struct {
	TimeTag   string   `json:"time_tag"`
	Satellite int      `json:"satellite"`
	Flux      *float64 `json:"flux"`
	Energy    string   `json:"energy"`
}

// GOESImport records the last window of GOES XRS short and long channel flux.
type GOESImport struct {
	URL    string
	Window time.Duration
	Fetch  *fetch.Client
	Sink   SeriesRecorder
	Now    Clock
}

// Run implements Routine.
func (g *GOESImport) Run(ctx context.Context) error {
	return run(ctx, "import_GOES_data_to_timestream", g.run)
}

func (g *GOESImport) run(ctx context.Context, logger *slog.Logger) error {
	var rows []goesFluxRow
	if err := g.Fetch.GetJSON(ctx, fetch.Request{URL: g.URL}, &rows); err != nil {
		return fmt.Errorf("fetch goes flux: %w", err)
	}

	xrsa, xrsb, err := splitBands(rows)
	if err != nil {
		return err
	}

	window := timeseries.TrailingWindow(g.Now.now(), 0, g.Window)
	xrsa = xrsa.Window(window)
	xrsb = xrsb.Window(window)
	logger.Info("goes flux windowed", "window", window.String(), "xrsa", xrsa.Len(), "xrsb", xrsb.Len())

	if xrsa.Len() == 0 {
		logger.Info("no goes flux in window")
		return nil
	}
	if err := g.Sink.Record(ctx, xrsa); err != nil {
		return fmt.Errorf("record %s: %w", xrsa.Instrument, err)
	}
	if err := g.Sink.Record(ctx, xrsb); err != nil {
		return fmt.Errorf("record %s: %w", xrsb.Instrument, err)
	}
	return nil
}

// splitBands separates the feed into the xrsa (short) and xrsb (long)
// channels. A null flux becomes NaN, which sinks skip.
func splitBands(rows []goesFluxRow) (timeseries.Series, timeseries.Series, error) {
	xrsa := timeseries.New(goesSeries, "goes xrsa")
	xrsb := timeseries.New(goesSeries, "goes xrsb")
	for _, r := range rows {
		var target *timeseries.Series
		var field string
		switch r.Energy {
		case BandShort:
			target, field = xrsa, "xrsa"
		case BandLong:
			target, field = xrsb, "xrsb"
		default:
			continue
		}
		t, err := parseTime(r.TimeTag)
		if err != nil {
			return timeseries.Series{}, timeseries.Series{}, fmt.Errorf("goes flux row: %w", err)
		}
		v := math.NaN()
		if r.Flux != nil {
			v = *r.Flux
		}
		target.Add(t, map[string]float64{field: v})
	}
	xrsa.Sort()
	xrsb.Sort()
	return *xrsa, *xrsb, nil
}
