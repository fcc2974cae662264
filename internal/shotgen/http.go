package shotgen

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPClient wraps http.Client with timeout
type HTTPClient struct {
	client *http.Client
}

func newHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{client: &http.Client{Timeout: timeout}}
}

// Get performs a GET request and returns the status and body.
func (c *HTTPClient) Get(ctx context.Context, url string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read body: %w", err)
	}
	return resp.StatusCode, body, nil
}

// GetJSON performs a GET request and decodes a 200 body into v.
func (c *HTTPClient) GetJSON(ctx context.Context, url string, v any) (int, error) {
	status, body, err := c.Get(ctx, url)
	if err != nil {
		return status, err
	}
	if status != http.StatusOK {
		return status, nil
	}
	if err := json.Unmarshal(body, v); err != nil {
		return status, fmt.Errorf("failed to decode %s: %w", url, err)
	}
	return status, nil
}
