package kanshi

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Config holds the settings needed to construct a Client.
type Config struct {
	// BaseURL is the root URL of the kanshi server (e.g. "http://localhost:8080").
	BaseURL string

	// APIKey is sent as "Authorization: ApiKey <key>". Ignored when Token is set.
	APIKey string

	// Token is a JWT sent as "Authorization: Bearer <token>".
	Token string

	// HTTPClient is an optional custom HTTP client. If nil, a default client
	// is used.
	HTTPClient *http.Client

	// Timeout applies to the JSON endpoints. Defaults to 30 seconds.
	// Adjudication streams are bounded only by their context.
	Timeout time.Duration
}

// Client is an HTTP client for the kanshi API.
// All methods are safe for concurrent use.
type Client struct {
	baseURL       string
	authorization string
	client        *http.Client
	timeout       time.Duration
}

// NewClient creates a Client from the given configuration.
// Returns an error if BaseURL is empty.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("kanshi: BaseURL is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	var authorization string
	switch {
	case cfg.Token != "":
		authorization = "Bearer " + cfg.Token
	case cfg.APIKey != "":
		authorization = "ApiKey " + cfg.APIKey
	}

	return &Client{
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		authorization: authorization,
		client:        httpClient,
		timeout:       timeout,
	}, nil
}

// Customers lists every customer record, normalized.
func (c *Client) Customers(ctx context.Context) ([]Customer, error) {
	var out []Customer
	if err := c.get(ctx, "/customers", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Customer fetches one normalized customer record.
func (c *Client) Customer(ctx context.Context, id string) (*Customer, error) {
	var out Customer
	if err := c.get(ctx, "/customers/"+url.PathEscape(id), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Health reports the server's status. It succeeds for a degraded server;
// check Health.Degraded.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	var out Health
	if err := c.get(ctx, "/health", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Adjudicate opens the adjudication stream for a customer. The caller must
// Close the returned Stream. Canceling ctx ends the run server-side.
func (c *Client) Adjudicate(ctx context.Context, customerID string) (*Stream, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/adjudicate/"+url.PathEscape(customerID), nil)
	if err != nil {
		return nil, fmt.Errorf("kanshi: create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		defer func() { _ = resp.Body.Close() }()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		return nil, parseErrorResponse(resp.StatusCode, body)
	}
	return &Stream{body: resp.Body, reader: bufio.NewReader(resp.Body)}, nil
}

func (c *Client) get(ctx context.Context, path string, dest any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("kanshi: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	return handleResponse(resp, dest)
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	if c.authorization != "" {
		req.Header.Set("Authorization", c.authorization)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("kanshi: %s %s: %w", req.Method, req.URL.Path, err)
	}
	return resp, nil
}

type apiEnvelope struct {
	Data json.RawMessage `json:"data"`
}

type apiErrorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func handleResponse(resp *http.Response, dest any) error {
	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("kanshi: read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		return parseErrorResponse(resp.StatusCode, bodyBytes)
	}

	// Unwrap the server's { "data": ... } envelope.
	var envelope apiEnvelope
	if err := json.Unmarshal(bodyBytes, &envelope); err != nil {
		return fmt.Errorf("kanshi: decode response envelope: %w", err)
	}
	if envelope.Data == nil {
		return fmt.Errorf("kanshi: response has no data")
	}
	if err := json.Unmarshal(envelope.Data, dest); err != nil {
		return fmt.Errorf("kanshi: decode response data: %w", err)
	}
	return nil
}

func parseErrorResponse(statusCode int, body []byte) *Error {
	apiErr := &Error{StatusCode: statusCode}

	var envelope apiErrorEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		apiErr.Code = envelope.Error.Code
		apiErr.Message = envelope.Error.Message
	} else {
		apiErr.Code = http.StatusText(statusCode)
		apiErr.Message = strings.TrimSpace(string(body))
	}

	return apiErr
}
