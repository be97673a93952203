// Package api is the HTTP side of the backend contract: health, the node
// type registry, the synchronous run fallback, and nexus workspace
// persistence. Everything here is request/response; the streaming surface
// lives in pkg/connection.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/dd0wney/nodewire/pkg/logging"
	"github.com/dd0wney/nodewire/pkg/protocol"
)

// DefaultTimeout bounds every request when the config does not say
// otherwise.
const DefaultTimeout = 10 * time.Second

// Client talks to the backend's HTTP surface. Safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     logging.Logger
}

// NewClient builds a client for the given base URL (scheme and host, no
// trailing slash required). Zero timeout selects DefaultTimeout; a nil
// logger logs nowhere.
func NewClient(baseURL string, timeout time.Duration, logger logging.Logger) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("api base URL %q: want scheme://host", baseURL)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Client{
		baseURL:    u.Scheme + "://" + u.Host + u.Path,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}, nil
}

// Health reports the backend's own view of its health, including whether
// the BFF can reach the orchestrator.
func (c *Client) Health(ctx context.Context) (Health, error) {
	var out Health
	if err := c.getJSON(ctx, "/health", &out); err != nil {
		return Health{}, err
	}
	return out, nil
}

// NodeRegistry fetches the raw node type registry body, suitable for
// catalog.RefreshFromRegistry. The body is returned undecoded so the
// catalog owns the parse.
func (c *Client) NodeRegistry(ctx context.Context) ([]byte, error) {
	resp, err := c.do(ctx, http.MethodGet, "/nodes/registry", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, err
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read registry response: %w", err)
	}
	return body, nil
}

// Run submits a graph over HTTP and waits for the synchronous result.
// This is the fallback to the socket execute message; the execution
// session never calls it on its own.
func (c *Client) Run(ctx context.Context, req protocol.Execute) (RunResult, error) {
	start := time.Now()

	var out RunResult
	if err := c.postJSON(ctx, "/graphs/run", runRequest{Graph: req.Graph}, &out); err != nil {
		return RunResult{}, err
	}

	c.logger.Info("run submitted over http",
		logging.RunID(out.ExecutionID),
		logging.String("status", out.Status),
		logging.Latency(time.Since(start)))
	return out, nil
}

// getJSON issues a GET and decodes the JSON response into out.
func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

// postJSON issues a POST with a JSON body; out may be nil when the caller
// only needs the status check.
func (c *Client) postJSON(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode %s request: %w", path, err)
	}

	resp, err := c.do(ctx, http.MethodPost, path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build %s %s: %w", method, path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return resp, nil
}

// checkStatus turns a non-2xx response into an error carrying the status
// and a slice of the body for diagnosis.
func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return &StatusError{
		Method: resp.Request.Method,
		Path:   resp.Request.URL.Path,
		Code:   resp.StatusCode,
		Body:   string(body),
	}
}
