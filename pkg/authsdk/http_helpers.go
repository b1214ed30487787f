package authsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// url builds a complete URL by appending the path to the base URL.
func (c *SDKClient) url(path string) string {
	return c.BaseURL + path
}

// newRequest builds a request with an optional JSON body.
func (c *SDKClient) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		r = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url(path), r)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// do sends req and decodes the envelope's data into target, which may be nil.
func (c *SDKClient) do(req *http.Request, target any) (string, error) {
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	return decodeEnvelope(resp, target)
}

// doRequest performs an unauthenticated request.
func (c *SDKClient) doRequest(ctx context.Context, method, path string, body, target any) (string, error) {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return "", err
	}
	return c.do(req, target)
}

// decodeEnvelope reads the response and returns the envelope message. A
// non-2xx status becomes an *APIError. 204 has no body to decode.
func decodeEnvelope(resp *http.Response, target any) (string, error) {
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", parseErrorResponse(resp, bodyBytes)
	}
	if resp.StatusCode == http.StatusNoContent || len(bodyBytes) == 0 {
		return "", nil
	}

	env := Response[json.RawMessage]{}
	if err := json.Unmarshal(bodyBytes, &env); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if target != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, target); err != nil {
			return "", fmt.Errorf("failed to decode response data: %w", err)
		}
	}
	return env.Message, nil
}
