package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Client is the shared outbound HTTP client for every fetcher and the alert
// webhook poster: bounded timeout per call, bounded retries with backoff via
// RetryPolicy, grounded on bot-service/internal/retry plus the per-call
// `timeout=15` pattern in original_source/pipeline/fetchers/*.py.
type Client struct {
	HTTP   *http.Client
	Retry  *RetryPolicy
}

// New builds a Client with the given per-call timeout and retry policy.
func New(timeout time.Duration, maxAttempts int, initialDelay time.Duration) *Client {
	return &Client{
		HTTP:  &http.Client{Timeout: timeout},
		Retry: NewRetryPolicy(maxAttempts, initialDelay),
	}
}

// GetJSON issues a GET request with query params, retries on failure, and
// decodes the JSON response body into out.
func (c *Client) GetJSON(ctx context.Context, rawURL string, params url.Values, out any) error {
	return c.Retry.Execute(ctx, func() error {
		u := rawURL
		if len(params) > 0 {
			u = rawURL + "?" + params.Encode()
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return fmt.Errorf("build request: %w", err)
		}
		resp, err := c.HTTP.Do(req)
		if err != nil {
			return fmt.Errorf("do request: %w", err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read body: %w", err)
		}
		if resp.StatusCode >= 400 {
			return fmt.Errorf("http %d from %s: %s", resp.StatusCode, rawURL, truncate(body, 500))
		}
		if out == nil {
			return nil
		}
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("decode json: %w", err)
		}
		return nil
	})
}

// PostJSON issues a POST with a JSON body, retrying on failure. Used by the
// alert webhook poster; it does not decode a response body.
func (c *Client) PostJSON(ctx context.Context, rawURL string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	return c.Retry.Execute(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.HTTP.Do(req)
		if err != nil {
			return fmt.Errorf("do request: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 400 {
			respBody, _ := io.ReadAll(resp.Body)
			return fmt.Errorf("http %d from %s: %s", resp.StatusCode, rawURL, truncate(respBody, 500))
		}
		return nil
	})
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
