package annotation

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swxsoc/swxingest/internal/fetch"
)

// fakeGrafana is an in-memory stand-in for the handful of Grafana endpoints used.
type fakeGrafana struct {
	mu          sync.Mutex
	nextID      int64
	annotations map[int64]grafanaAnnotation
	searches    int
}

func newFakeGrafana() *fakeGrafana {
	return &fakeGrafana{annotations: make(map[int64]grafanaAnnotation)}
}

func (f *fakeGrafana) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if r.Header.Get("Authorization") != "Bearer glsa_test" {
		http.Error(w, `{"message":"invalid API key"}`, http.StatusUnauthorized)
		return
	}

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/api/search":
		f.searches++
		json.NewEncoder(w).Encode([]map[string]string{
			{"uid": "other", "title": "Context Observations (old)"},
			{"uid": "ctx-obs", "title": r.URL.Query().Get("query")},
		})
	case r.Method == http.MethodGet && r.URL.Path == "/api/dashboards/uid/ctx-obs":
		w.Write([]byte(`{"dashboard":{"panels":[
			{"id":1,"title":"Summary"},
			{"id":2,"title":"Row","panels":[{"id":7,"title":"GOES XRS"}]}
		]}}`))
	case r.Method == http.MethodGet && r.URL.Path == "/api/annotations":
		from, _ := strconv.ParseInt(r.URL.Query().Get("from"), 10, 64)
		to, _ := strconv.ParseInt(r.URL.Query().Get("to"), 10, 64)
		var out []grafanaAnnotation
		for _, a := range f.annotations {
			if a.Time <= to && a.TimeEnd >= from {
				out = append(out, a)
			}
		}
		json.NewEncoder(w).Encode(out)
	case r.Method == http.MethodDelete && strings.HasPrefix(r.URL.Path, "/api/annotations/"):
		id, _ := strconv.ParseInt(strings.TrimPrefix(r.URL.Path, "/api/annotations/"), 10, 64)
		delete(f.annotations, id)
		w.Write([]byte(`{"message":"Annotation deleted"}`))
	case r.Method == http.MethodPost && r.URL.Path == "/api/annotations":
		var a grafanaAnnotation
		if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.nextID++
		a.ID = f.nextID
		f.annotations[a.ID] = a
		w.Write([]byte(`{"message":"Annotation added","id":` + strconv.FormatInt(a.ID, 10) + `}`))
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeGrafana) all() []grafanaAnnotation {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]grafanaAnnotation, 0, len(f.annotations))
	for _, a := range f.annotations {
		out = append(out, a)
	}
	return out
}

func staticToken() TokenFunc {
	return func() (string, error) { return "glsa_test", nil }
}

var flareStart = time.Date(2024, 5, 10, 6, 0, 0, 0, time.UTC)

func flare() Annotation {
	return Annotation{
		Start:     flareStart,
		End:       flareStart.Add(20 * time.Minute),
		Text:      "M1.2",
		Tags:      []string{"GOES XRS", "flare"},
		Dashboard: "Context Observations",
		Panel:     "GOES XRS",
		Mission:   "padre",
	}
}

func TestGrafanaCreate(t *testing.T) {
	fake := newFakeGrafana()
	srv := httptest.NewServer(fake)
	defer srv.Close()

	sink := NewGrafanaSink(srv.URL, staticToken(), srv.Client())
	require.NoError(t, sink.Create(context.Background(), flare(), true))

	got := fake.all()
	require.Len(t, got, 1)
	assert.Equal(t, "ctx-obs", got[0].DashboardUID)
	assert.Equal(t, 7, got[0].PanelID)
	assert.Equal(t, flareStart.UnixMilli(), got[0].Time)
	assert.Equal(t, flareStart.Add(20*time.Minute).UnixMilli(), got[0].TimeEnd)
	assert.Equal(t, "M1.2", got[0].Text)
}

func TestGrafanaOverwriteIsIdempotent(t *testing.T) {
	fake := newFakeGrafana()
	srv := httptest.NewServer(fake)
	defer srv.Close()

	sink := NewGrafanaSink(srv.URL, staticToken(), srv.Client())
	ctx := context.Background()

	span := flare()
	peak := flare()
	peak.Start = flareStart.Add(8 * time.Minute)
	peak.End = time.Time{}
	peak.Tags = []string{"GOES XRS", "flare", "peak"}

	for range 2 {
		require.NoError(t, sink.Create(ctx, span, true))
		require.NoError(t, sink.Create(ctx, peak, true))
	}

	assert.Len(t, fake.all(), 2, "re-running must replace, not duplicate")
	assert.Equal(t, 1, fake.searches, "dashboard lookup is cached")
}

func TestGrafanaWithoutOverwriteDuplicates(t *testing.T) {
	fake := newFakeGrafana()
	srv := httptest.NewServer(fake)
	defer srv.Close()

	sink := NewGrafanaSink(srv.URL, staticToken(), srv.Client())
	require.NoError(t, sink.Create(context.Background(), flare(), false))
	require.NoError(t, sink.Create(context.Background(), flare(), false))
	assert.Len(t, fake.all(), 2)
}

func TestGrafanaOverwriteKeepsDifferentTags(t *testing.T) {
	fake := newFakeGrafana()
	srv := httptest.NewServer(fake)
	defer srv.Close()

	sink := NewGrafanaSink(srv.URL, staticToken(), srv.Client())
	a := flare()
	b := flare()
	b.Tags = []string{"GOES XRS", "flare", "reviewed"}

	require.NoError(t, sink.Create(context.Background(), a, true))
	require.NoError(t, sink.Create(context.Background(), b, true))
	assert.Len(t, fake.all(), 2)
}

func TestGrafanaTokenErrorSurfaces(t *testing.T) {
	sink := NewGrafanaSink("http://unused", func() (string, error) {
		return "", errors.New("secret GRAFANA_API_KEY unavailable: AccessDenied")
	}, nil)

	err := sink.Create(context.Background(), flare(), true)
	assert.ErrorContains(t, err, "GRAFANA_API_KEY")
}

func TestGrafanaUnauthorized(t *testing.T) {
	srv := httptest.NewServer(newFakeGrafana())
	defer srv.Close()

	sink := NewGrafanaSink(srv.URL, func() (string, error) { return "wrong", nil }, srv.Client())
	err := sink.Create(context.Background(), flare(), true)

	var ferr *fetch.ExternalFetchError
	require.ErrorAs(t, err, &ferr)
	assert.Equal(t, http.StatusUnauthorized, ferr.StatusCode)
}

func TestGrafanaMissingPanel(t *testing.T) {
	srv := httptest.NewServer(newFakeGrafana())
	defer srv.Close()

	a := flare()
	a.Panel = "Nope"
	err := NewGrafanaSink(srv.URL, staticToken(), srv.Client()).Create(context.Background(), a, true)
	assert.ErrorContains(t, err, `panel "Nope" not found`)
}

func TestGrafanaMissionPlaceholder(t *testing.T) {
	sink := NewGrafanaSink("https://grafana.{mission}.example.org/", staticToken(), nil)

	base, err := sink.base("padre")
	require.NoError(t, err)
	assert.Equal(t, "https://grafana.padre.example.org", base)

	_, err = sink.base("")
	assert.Error(t, err)

	_, err = NewGrafanaSink("", staticToken(), nil).base("padre")
	assert.ErrorContains(t, err, "not configured")
}

func TestSameIdentity(t *testing.T) {
	a := flare()
	b := flare()
	b.Tags = []string{"flare", "GOES XRS"}
	assert.True(t, SameIdentity(a, b))

	b.End = b.End.Add(time.Second)
	assert.False(t, SameIdentity(a, b))

	p := Annotation{Start: flareStart, Dashboard: "d", Panel: "p"}
	q := Annotation{Start: flareStart, End: flareStart, Dashboard: "d", Panel: "p"}
	assert.True(t, SameIdentity(p, q), "zero end equals start")
}
