package customer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/singleflight"
)

// ErrNotFound is returned when the record API has no customer for the ID.
var ErrNotFound = errors.New("customer: not found")

// StatusError is returned for any non-200 response from the record API.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("customer: record API returned HTTP %d: %s", e.StatusCode, e.Body)
}

// Unwrap lets errors.Is(err, ErrNotFound) match 404 responses.
func (e *StatusError) Unwrap() error {
	if e.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	return nil
}

// Client talks to the upstream customer record API (Nessie). Concurrent
// identical reads share one upstream request.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	group      singleflight.Group
}

// NewClient creates a record API client. If httpClient is nil, a client with
// the given timeout and OTEL-instrumented transport is used.
func NewClient(baseURL, apiKey string, timeout time.Duration, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: httpClient,
	}
}

// Get fetches one raw record by ID. The result is not normalized.
func (c *Client) Get(ctx context.Context, id string) (*Record, error) {
	v, err := c.shared(ctx, "get:"+id, func(ctx context.Context) (any, error) {
		var rec Record
		if err := c.getJSON(ctx, "/customers/"+url.PathEscape(id), &rec); err != nil {
			return nil, err
		}
		return rec, nil
	})
	if err != nil {
		return nil, err
	}
	rec := v.(Record)
	return &rec, nil
}

// List fetches every raw record. The results are not normalized.
func (c *Client) List(ctx context.Context) ([]Record, error) {
	v, err := c.shared(ctx, "list", func(ctx context.Context) (any, error) {
		var recs []Record
		if err := c.getJSON(ctx, "/customers", &recs); err != nil {
			return nil, err
		}
		return recs, nil
	})
	if err != nil {
		return nil, err
	}
	return append([]Record(nil), v.([]Record)...), nil
}

// shared runs fn once per key across concurrent callers. fn gets a context
// detached from the first caller's cancellation, since later waiters share
// its result; each caller still stops waiting when its own ctx is done.
func (c *Client) shared(ctx context.Context, key string, fn func(context.Context) (any, error)) (any, error) {
	ch := c.group.DoChan(key, func() (any, error) {
		return fn(context.WithoutCancel(ctx))
	})
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("customer: %s: %w", key, ctx.Err())
	case res := <-ch:
		return res.Val, res.Err
	}
}

func (c *Client) getJSON(ctx context.Context, path string, target any) error {
	u := c.baseURL + path + "?key=" + url.QueryEscape(c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("customer: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("customer: GET %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("customer: decode %s: %w", path, err)
	}
	return nil
}
