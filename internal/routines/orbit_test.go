package routines

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swxsoc/swxingest/internal/fetch"
	"github.com/swxsoc/swxingest/internal/routines/mocks"
	"github.com/swxsoc/swxingest/internal/timeseries"
)

const orbitFixture = `{"data": [
  {"time": "2024-05-10T11:00:00Z", "lat": 10.0, "lon": 20.0, "alt": 550.0},
  {"time": "2024-05-01T00:00:00Z", "lat": 1.0, "lon": 2.0, "alt": 551.0},
  {"time": "2024-05-10T10:00:00Z", "lat": 9.0, "lon": 19.0, "alt": 549.0}
]}`

func TestOrbitImport(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	var start, end string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start, end = r.URL.Query().Get("start"), r.URL.Query().Get("end")
		_, _ = w.Write([]byte(orbitFixture))
	}))
	defer srv.Close()

	sink := mocks.NewMockSeriesRecorder(ctrl)
	var got timeseries.Series
	sink.EXPECT().Record(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, s timeseries.Series) error {
		got = s
		return nil
	})

	o := &OrbitImport{
		URL: srv.URL, Window: 72 * time.Hour, Instrument: "padre orbit", Rows: "data",
		Fetch: fetch.New(time.Second), Sink: sink, Now: fixedClock,
	}
	require.NoError(t, o.Run(context.Background()))

	assert.Equal(t, "2024-05-07T12:00:00Z", start)
	assert.Equal(t, "2024-05-10T12:00:00Z", end)
	assert.Equal(t, "orbit", got.Name)
	assert.Equal(t, "padre orbit", got.Instrument)
	require.Equal(t, 2, got.Len())
	assert.Equal(t, 9.0, got.Points[0].Values["lat"], "points are sorted by time")
	assert.Equal(t, 550.0, got.Points[1].Values["alt"])
}

func TestOrbitImportRequiresURL(t *testing.T) {
	o := &OrbitImport{Window: time.Hour, Fetch: fetch.New(time.Second), Now: fixedClock}
	assert.ErrorContains(t, o.Run(context.Background()), "no ephemeris url")
}

func TestParseEphemeris(t *testing.T) {
	s, err := parseEphemeris([]byte(`[{"time": "2024-05-10T11:00:00Z", "lat": 1}]`), "", "x")
	require.NoError(t, err)
	assert.Equal(t, 1, s.Len())

	_, err = parseEphemeris([]byte(`{"data": {}}`), "data", "x")
	assert.ErrorContains(t, err, "not an array")

	_, err = parseEphemeris([]byte(`[{"time": "never"}]`), "", "x")
	assert.ErrorContains(t, err, "row 0")
}
