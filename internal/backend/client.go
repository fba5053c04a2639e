package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/northroute/internal/retry"
	"github.com/northroute/pkg/schema"
)

// Client wraps the assistant backend's HTTP surface: location extraction and
// reply generation share one base URL and one underlying http.Client. The
// two calls have deliberately different failure contracts; see resolver.go
// and reply.go.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	fallbackKey string
	retryCfg    retry.RetryConfig
}

// Config configures a backend client. Zero values fall back to defaults.
type Config struct {
	BaseURL          string
	Timeout          time.Duration
	FallbackLocation string
	Retry            retry.RetryConfig
}

// New creates a backend client for the given configuration.
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	fallback := strings.TrimSpace(cfg.FallbackLocation)
	if fallback == "" {
		fallback = schema.DefaultFallbackLocation
	}
	retryCfg := cfg.Retry
	if retryCfg == (retry.RetryConfig{}) {
		retryCfg = retry.BackendRetryConfig()
	}

	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		httpClient:  &http.Client{Timeout: timeout},
		fallbackKey: fallback,
		retryCfg:    retryCfg,
	}
}

// postJSON sends one request and decodes the response into out. Non-2xx
// responses are returned as a *StatusError carrying a body excerpt.
func (c *Client) postJSON(ctx context.Context, path string, payload, out any) error {
	reqBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(reqBytes))
	if err != nil {
		return fmt.Errorf("create %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &StatusError{Path: path, Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

// StatusError is a non-2xx backend response.
type StatusError struct {
	Path   string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("backend %s returned %d", e.Path, e.Status)
	}
	return fmt.Sprintf("backend %s returned %d: %s", e.Path, e.Status, e.Body)
}

// Health probes the backend's health endpoint.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("backend health check: %w", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("backend unhealthy: status %d", resp.StatusCode)
	}
	return nil
}
