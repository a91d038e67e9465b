package routines

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/swxsoc/swxingest/internal/fetch"
	"github.com/swxsoc/swxingest/internal/timeseries"
)

const (
	reachSeries = "REACH"
	udlTime     = "2006-01-02T15:04:05.000000Z"
)

// REACHImport records space-environment observations from the REACH
// dosimeters published through the Unified Data Library.
type REACHImport struct {
	URL    string
	Delay  time.Duration
	Window time.Duration
	// Auth returns the Basic credential, with or without the "Basic " prefix.
	Auth  func() (string, error)
	Fetch *fetch.Client
	Sink  SeriesRecorder
	Now   Clock
}

// Run implements Routine.
func (r *REACHImport) Run(ctx context.Context) error {
	return run(ctx, "import_UDL_REACH_to_timestream", r.run)
}

func (r *REACHImport) run(ctx context.Context, logger *slog.Logger) error {
	cred, err := r.Auth()
	if err != nil {
		return err
	}
	if !strings.HasPrefix(cred, "Basic ") {
		cred = "Basic " + cred
	}

	window := timeseries.TrailingWindow(r.Now.now(), r.Delay, r.Window)
	body, err := r.Fetch.Get(ctx, fetch.Request{
		URL:    r.URL,
		Query:  url.Values{"obTime": {window.Start.Format(udlTime) + ".." + window.End.Format(udlTime)}},
		Header: http.Header{"Authorization": {cred}},
	})
	if err != nil {
		return fmt.Errorf("fetch reach observations: %w", err)
	}
	if emptyResponse(body) {
		logger.Info("no response", "window", window.String())
		return nil
	}

	series, err := parseREACH(body)
	if err != nil {
		return err
	}
	logger.Info("reach observations parsed", "window", window.String(), "sensors", len(series))
	for _, s := range series {
		if err := r.Sink.Record(ctx, s); err != nil {
			return fmt.Errorf("record %s: %w", s.Instrument, err)
		}
	}
	return nil
}

// emptyResponse reports whether the body carries no observations at all.
func emptyResponse(body []byte) bool {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return true
	}
	res := gjson.ParseBytes(trimmed)
	switch res.Type {
	case gjson.Null, gjson.False:
		return true
	}
	return res.IsArray() && len(res.Array()) == 0
}

// parseREACH groups observations by sensor and joins each sensor's position
// with its dose readings on a common time axis.
func parseREACH(body []byte) ([]timeseries.Series, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("reach response is not valid JSON")
	}
	type sensorData struct {
		position *timeseries.Series
		readings *timeseries.Series
	}
	sensors := make(map[string]*sensorData)

	var parseErr error
	gjson.ParseBytes(body).ForEach(func(_, ob gjson.Result) bool {
		id := ob.Get("idSensor").String()
		if id == "" {
			id = "unknown"
		}
		t, err := parseTime(ob.Get("obTime").String())
		if err != nil {
			parseErr = fmt.Errorf("reach observation from %s: %w", id, err)
			return false
		}
		sd, ok := sensors[id]
		if !ok {
			instrument := "reach " + id
			sd = &sensorData{
				position: timeseries.New(reachSeries, instrument),
				readings: timeseries.New(reachSeries, instrument),
			}
			sensors[id] = sd
		}

		pos := make(map[string]float64)
		for col, path := range map[string]string{"lat": "senLat", "lon": "senLon", "alt": "senAlt"} {
			if v := ob.Get(path); v.Exists() {
				pos[col] = v.Float()
			}
		}
		if len(pos) > 0 {
			sd.position.Add(t, pos)
		}

		vals := make(map[string]float64)
		ob.Get("seoList").ForEach(func(_, m gjson.Result) bool {
			col := columnName(m.Get("obType").String())
			if col != "" && m.Get("obValue").Exists() {
				vals[col] = m.Get("obValue").Float()
			}
			return true
		})
		if len(vals) > 0 {
			sd.readings.Add(t, vals)
		}
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}

	ids := make([]string, 0, len(sensors))
	for id := range sensors {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]timeseries.Series, 0, len(ids))
	for _, id := range ids {
		sd := sensors[id]
		sd.position.Sort()
		sd.readings.Sort()
		joined, err := timeseries.Join(reachSeries, "reach "+id, *sd.position, *sd.readings)
		if err != nil {
			return nil, err
		}
		if joined.Len() > 0 {
			out = append(out, joined)
		}
	}
	return out, nil
}

// columnName normalises an observation type into a measure name.
func columnName(obType string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(obType)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return strings.Trim(b.String(), "_")
}
