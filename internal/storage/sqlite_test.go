package storage

import (
	"context"
	"database/sql"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swxsoc/swxingest/internal/annotation"
	"github.com/swxsoc/swxingest/internal/timeseries"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "swxingest.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestOpenSQLiteBootstrapsTables(t *testing.T) {
	t.Parallel()
	db := openTestDB(t)

	for _, table := range []string{"series_points", "annotations"} {
		var name string
		if err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?;", table).Scan(&name); err != nil {
			t.Fatalf("table %q missing: %v", table, err)
		}
	}
}

func TestOpenSQLiteEmptyPath(t *testing.T) {
	_, err := OpenSQLite(context.Background(), "")
	assert.Error(t, err)
}

var t0 = time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)

func TestSeriesStoreRecordAndLoad(t *testing.T) {
	t.Parallel()
	store := NewSeriesStore(openTestDB(t))
	ctx := context.Background()

	s := timeseries.New("GOES", "goes xrsb")
	s.Add(t0, map[string]float64{"xrsb": 1e-6})
	s.Add(t0.Add(time.Minute), map[string]float64{"xrsb": 2e-6, "bad": math.NaN()})
	require.NoError(t, store.Record(ctx, *s))

	// Re-record the first point with a corrected value.
	fix := timeseries.New("GOES", "goes xrsb")
	fix.Add(t0, map[string]float64{"xrsb": 1.5e-6})
	require.NoError(t, store.Record(ctx, *fix))

	got, err := store.Load(ctx, "GOES", "goes xrsb")
	require.NoError(t, err)
	require.Equal(t, 2, got.Len())
	assert.InDelta(t, 1.5e-6, got.Points[0].Values["xrsb"], 1e-15)
	assert.InDelta(t, 2e-6, got.Points[1].Values["xrsb"], 1e-15)
	assert.NotContains(t, got.Points[1].Values, "bad")

	sums, err := store.Summaries(ctx)
	require.NoError(t, err)
	require.Len(t, sums, 1)
	assert.Equal(t, 2, sums[0].Points)
	assert.Equal(t, t0, sums[0].First)
	assert.Equal(t, t0.Add(time.Minute), sums[0].Last)
}

func TestAnnotationStoreOverwrite(t *testing.T) {
	t.Parallel()
	store := NewAnnotationStore(openTestDB(t))
	ctx := context.Background()

	span := annotation.Annotation{
		Start: t0, End: t0.Add(20 * time.Minute), Text: "X1.0",
		Tags: []string{"GOES XRS", "flare"}, Dashboard: "Context Observations", Panel: "GOES XRS", Mission: "padre",
	}
	peak := span
	peak.Start = t0.Add(5 * time.Minute)
	peak.End = time.Time{}
	peak.Tags = []string{"GOES XRS", "flare", "peak"}

	for range 2 {
		require.NoError(t, store.Create(ctx, span, true))
		require.NoError(t, store.Create(ctx, peak, true))
	}

	got, err := store.List(ctx, "Context Observations", "GOES XRS")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, span.End, got[0].End)
	assert.True(t, got[1].End.IsZero(), "point marker keeps zero end")
	assert.Equal(t, []string{"GOES XRS", "flare", "peak"}, got[1].Tags)

	// Tag order does not change identity.
	reordered := span
	reordered.Tags = []string{"flare", "GOES XRS"}
	require.NoError(t, store.Create(ctx, reordered, true))
	got, err = store.List(ctx, "Context Observations", "GOES XRS")
	require.NoError(t, err)
	assert.Len(t, got, 2)

	require.NoError(t, store.Create(ctx, span, false))
	got, err = store.List(ctx, "Context Observations", "GOES XRS")
	require.NoError(t, err)
	assert.Len(t, got, 3)
}
