package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tobert/trace-flamegraph/internal/flamegraph"
)

// FlameGraphPath is the backend endpoint, relative to the base URL.
const FlameGraphPath = "backend/transaction/traces/flame-graph"

// maxErrorBody caps how much of a failed response is read for its message.
const maxErrorBody = 64 * 1024

// HTTPError is a non-2xx response from the backend.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend returned %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("backend returned %d: %s", e.StatusCode, e.Message)
}

// Config holds configuration for a Client.
type Config struct {
	BaseURL    string        // e.g. "http://127.0.0.1:4000"
	Timeout    time.Duration // 0 leaves timeouts to the caller's context
	Verbose    bool
	HTTPClient *http.Client // optional, Timeout is ignored when set
}

// Client fetches flame graphs over HTTP.
type Client struct {
	endpoint   *url.URL
	httpClient *http.Client
	verbose    bool
}

// NewClient creates a Client for the backend at cfg.BaseURL.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("backend URL is required")
	}

	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid backend URL %q: %w", cfg.BaseURL, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid backend URL %q: scheme must be http or https", cfg.BaseURL)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &Client{
		endpoint:   base.ResolveReference(&url.URL{Path: FlameGraphPath}),
		httpClient: httpClient,
		verbose:    cfg.Verbose,
	}, nil
}

// Fetch implements Fetcher.
func (c *Client) Fetch(ctx context.Context, q flamegraph.Query) <-chan Result {
	return async(ctx, "http", q, c.Get)
}

// Get performs the request synchronously.
func (c *Client) Get(ctx context.Context, q flamegraph.Query) (flamegraph.Forest, error) {
	u := *c.endpoint
	u.RawQuery = q.Values().Encode()

	if c.verbose {
		log.Printf("📡 GET %s\n", u.String())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return flamegraph.Forest{}, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return flamegraph.Forest{}, fmt.Errorf("failed to fetch flame graph: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return flamegraph.Forest{}, readHTTPError(resp)
	}

	forest, err := flamegraph.DecodeForest(resp.Body)
	if err != nil {
		return flamegraph.Forest{}, fmt.Errorf("failed to decode flame graph for trace %s: %w", q.TraceID, err)
	}
	return forest, nil
}

func readHTTPError(resp *http.Response) error {
	herr := &HTTPError{StatusCode: resp.StatusCode}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil || len(data) == 0 {
		return herr
	}

	var body struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(data, &body) == nil && body.Message != "" {
		herr.Message = body.Message
	} else if !strings.Contains(resp.Header.Get("Content-Type"), "html") {
		herr.Message = strings.TrimSpace(string(data))
	}
	return herr
}
