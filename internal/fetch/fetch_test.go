package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Equal(t, "Basic abc", r.Header.Get("Authorization"))
		assert.Equal(t, "2024-01-01T00:00:00Z..2024-01-01T00:10:00Z", r.URL.Query().Get("obTime"))
		w.Write([]byte(`[{"flux":1.5e-6}]`))
	}))
	defer srv.Close()

	c := New(time.Second)
	var rows []struct {
		Flux float64 `json:"flux"`
	}
	err := c.GetJSON(context.Background(), Request{
		URL:    srv.URL,
		Query:  url.Values{"obTime": {"2024-01-01T00:00:00Z..2024-01-01T00:10:00Z"}},
		Header: http.Header{"Authorization": {"Basic abc"}},
	}, &rows)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.InDelta(t, 1.5e-6, rows[0].Flux, 1e-12)
}

func TestGetNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := New(time.Second).Get(context.Background(), Request{URL: srv.URL})
	var ferr *ExternalFetchError
	require.ErrorAs(t, err, &ferr)
	assert.Equal(t, http.StatusBadGateway, ferr.StatusCode)
	assert.Contains(t, err.Error(), "upstream down")
}

func TestGetJSONDecodeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>`))
	}))
	defer srv.Close()

	var v []any
	err := New(time.Second).GetJSON(context.Background(), Request{URL: srv.URL}, &v)
	var ferr *ExternalFetchError
	require.ErrorAs(t, err, &ferr)
	assert.Contains(t, err.Error(), "decode json")
}

func TestGetTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	_, err := New(50*time.Millisecond).Get(context.Background(), Request{URL: srv.URL})
	var ferr *ExternalFetchError
	require.ErrorAs(t, err, &ferr)
}

type failingDoer struct{}

func (failingDoer) Do(*http.Request) (*http.Response, error) {
	return nil, errors.New("dial tcp: connection refused")
}

func TestGetTransportError(t *testing.T) {
	_, err := NewWithDoer(failingDoer{}, 0).Get(context.Background(), Request{URL: "https://example.invalid/x"})
	var ferr *ExternalFetchError
	require.ErrorAs(t, err, &ferr)
	assert.Equal(t, 0, ferr.StatusCode)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestGetInvalidURL(t *testing.T) {
	_, err := New(0).Get(context.Background(), Request{URL: "://bad"})
	var ferr *ExternalFetchError
	assert.ErrorAs(t, err, &ferr)
}
