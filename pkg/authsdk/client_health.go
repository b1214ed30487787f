package authsdk

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Ping calls GET /v1/ping and returns its message.
func (c *SDKClient) Ping(ctx context.Context) (string, error) {
	return c.doRequest(ctx, http.MethodGet, "/v1/ping", nil, nil)
}

// Liveness calls GET /livez.
func (c *SDKClient) Liveness(ctx context.Context) (*HealthResponse, error) {
	return c.health(ctx, "/livez")
}

// Readiness calls GET /readyz. A 503 comes back as an error.
func (c *SDKClient) Readiness(ctx context.Context) (*HealthResponse, error) {
	return c.health(ctx, "/readyz")
}

// Health probes answer with a bare object, not the envelope.
func (c *SDKClient) health(ctx context.Context, path string) (*HealthResponse, error) {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, parseErrorResponse(resp, body)
	}

	var health HealthResponse
	if err := json.Unmarshal(body, &health); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &health, nil
}
