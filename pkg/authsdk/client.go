package authsdk

import (
	"net/http"
	"strings"
	"time"
)

// SDKClient is a client for the rollcall auth service. It performs the
// public operations and creates authenticated Sessions.
type SDKClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewSDKClient creates a client for the service at baseURL.
func NewSDKClient(baseURL string) *SDKClient {
	return &SDKClient{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// NewSessionFromTokens creates a session from tokens obtained earlier,
// e.g. restored from storage.
func (c *SDKClient) NewSessionFromTokens(accessToken, refreshToken string) *Session {
	return &Session{
		client:       c,
		accessToken:  accessToken,
		refreshToken: refreshToken,
	}
}
