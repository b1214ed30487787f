package authsdk

import (
	"net/http"
	"strings"
	"time"
)

// SDKClient is a client for the authbase service. It covers the public
// endpoints and creates authenticated Sessions.
type SDKClient struct {
	BaseURL    string
	HTTPClient *http.Client

	// RefreshLeeway is how long before access token expiry a Session
	// rotates its tokens. Default: 30 seconds.
	RefreshLeeway time.Duration
}

// NewSDKClient creates a new auth service client.
func NewSDKClient(baseURL string) *SDKClient {
	return &SDKClient{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		RefreshLeeway: 30 * time.Second,
	}
}

// NewSessionFromTokens creates a session from a token pair obtained
// elsewhere, for instance from the tokens cookie of an OAuth callback.
func (c *SDKClient) NewSessionFromTokens(tokens Tokens) *Session {
	return newSession(c, tokens)
}
