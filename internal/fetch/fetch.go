// Package fetch performs the single-shot HTTP GETs the ingestion routines
// make against external feeds. There is no retry: a failed request fails the
// invocation and the scheduler fires again on its next interval.
package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// DefaultTimeout bounds a request when the caller does not configure one.
const DefaultTimeout = 30 * time.Second

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 64 << 20

// HTTPDoer is satisfied by *http.Client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ExternalFetchError reports a failed request or an unparseable response.
type ExternalFetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *ExternalFetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *ExternalFetchError) Unwrap() error {
	return e.Err
}

// Client issues GET requests with a fixed timeout.
type Client struct {
	http    HTTPDoer
	timeout time.Duration
}

// New creates a Client whose requests are bounded by timeout.
func New(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{http: &http.Client{Timeout: timeout}, timeout: timeout}
}

// NewWithDoer creates a Client over a custom transport (tests, instrumentation).
func NewWithDoer(doer HTTPDoer, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{http: doer, timeout: timeout}
}

// Request describes one GET.
type Request struct {
	URL    string
	Query  url.Values
	Header http.Header
}

// Get returns the response body of a 2xx response.
func (c *Client) Get(ctx context.Context, r Request) ([]byte, error) {
	u, err := url.Parse(r.URL)
	if err != nil {
		return nil, &ExternalFetchError{URL: r.URL, Err: fmt.Errorf("invalid url: %w", err)}
	}
	if len(r.Query) > 0 {
		q := u.Query()
		for k, vs := range r.Query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}
	target := u.String()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &ExternalFetchError{URL: r.URL, Err: err}
	}
	for k, vs := range r.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &ExternalFetchError{URL: r.URL, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &ExternalFetchError{URL: r.URL, StatusCode: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &ExternalFetchError{URL: r.URL, StatusCode: resp.StatusCode, Err: fmt.Errorf("unexpected response: %s", truncate(body, 256))}
	}
	return body, nil
}

// GetJSON decodes the response body of a 2xx response into out.
func (c *Client) GetJSON(ctx context.Context, r Request, out any) error {
	body, err := c.Get(ctx, r)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &ExternalFetchError{URL: r.URL, Err: fmt.Errorf("decode json: %w", err)}
	}
	return nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
