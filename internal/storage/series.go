package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/swxsoc/swxingest/internal/timeseries"
)

// SeriesStore is a local timeseries.Sink. Re-recording a point replaces it.
type SeriesStore struct {
	db *sql.DB
}

// NewSeriesStore wraps an open database.
func NewSeriesStore(db *sql.DB) *SeriesStore {
	return &SeriesStore{db: db}
}

// Record upserts every finite value of s in one transaction.
func (s *SeriesStore) Record(ctx context.Context, series timeseries.Series) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO series_points(series, instrument, time_ms, measure, value, recorded_at)
VALUES(?, ?, ?, ?, ?, ?)
ON CONFLICT(series, instrument, time_ms, measure) DO UPDATE SET
  value = excluded.value,
  recorded_at = excluded.recorded_at;`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	for _, p := range series.Points {
		for measure, v := range p.Values {
			if !timeseries.Finite(v) {
				continue
			}
			if _, err := stmt.ExecContext(ctx, series.Name, series.Instrument, p.Time.UnixMilli(), measure, v, now); err != nil {
				return fmt.Errorf("insert point: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Load reads a stored series back, ordered by time.
func (s *SeriesStore) Load(ctx context.Context, name, instrument string) (timeseries.Series, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT time_ms, measure, value FROM series_points
WHERE series = ? AND instrument = ?
ORDER BY time_ms, measure;`, name, instrument)
	if err != nil {
		return timeseries.Series{}, fmt.Errorf("query series: %w", err)
	}
	defer rows.Close()

	out := timeseries.Series{Name: name, Instrument: instrument}
	for rows.Next() {
		var (
			ms      int64
			measure string
			value   float64
		)
		if err := rows.Scan(&ms, &measure, &value); err != nil {
			return timeseries.Series{}, fmt.Errorf("scan point: %w", err)
		}
		t := time.UnixMilli(ms).UTC()
		if n := len(out.Points); n > 0 && out.Points[n-1].Time.Equal(t) {
			out.Points[n-1].Values[measure] = value
			continue
		}
		out.Points = append(out.Points, timeseries.Point{Time: t, Values: map[string]float64{measure: value}})
	}
	return out, rows.Err()
}

// SeriesSummary describes one stored (series, instrument) pair.
type SeriesSummary struct {
	Series     string
	Instrument string
	Points     int
	First      time.Time
	Last       time.Time
}

// Summaries lists stored series with point counts and time bounds.
func (s *SeriesStore) Summaries(ctx context.Context) ([]SeriesSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT series, instrument, COUNT(DISTINCT time_ms), MIN(time_ms), MAX(time_ms)
FROM series_points
GROUP BY series, instrument
ORDER BY series, instrument;`)
	if err != nil {
		return nil, fmt.Errorf("query summaries: %w", err)
	}
	defer rows.Close()

	var out []SeriesSummary
	for rows.Next() {
		var (
			sum         SeriesSummary
			first, last int64
		)
		if err := rows.Scan(&sum.Series, &sum.Instrument, &sum.Points, &first, &last); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		sum.First = time.UnixMilli(first).UTC()
		sum.Last = time.UnixMilli(last).UTC()
		out = append(out, sum)
	}
	return out, rows.Err()
}
