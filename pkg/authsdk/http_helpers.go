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

// encodeBody marshals payload as a JSON request body. A nil payload sends
// no body.
func encodeBody(payload any) (io.Reader, map[string]string, error) {
	if payload == nil {
		return nil, nil, nil
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode request: %w", err)
	}
	return bytes.NewReader(b), map[string]string{"Content-Type": "application/json"}, nil
}

// doRequest performs an unauthenticated request with a JSON payload.
func (c *SDKClient) doRequest(ctx context.Context, method, path string, payload any) (*http.Response, error) {
	return c.send(ctx, method, path, payload, "")
}

func (c *SDKClient) send(ctx context.Context, method, path string, payload any, bearer string) (*http.Response, error) {
	body, headers, err := encodeBody(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url(path), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	return resp, nil
}

// doAuthRequest performs a request with the session's access token. On a
// 401 it rotates the tokens once and retries.
func (s *Session) doAuthRequest(ctx context.Context, method, path string, payload any) (*http.Response, error) {
	resp, err := s.client.send(ctx, method, path, payload, s.AccessToken())
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized || s.RefreshToken() == "" {
		return resp, nil
	}
	_ = resp.Body.Close()

	if err := s.Refresh(ctx); err != nil {
		return nil, fmt.Errorf("failed to refresh token: %w", err)
	}
	return s.client.send(ctx, method, path, payload, s.AccessToken())
}

// decodeJSON decodes a JSON response into target, or returns an *APIError
// if the status is not expectedStatus.
func decodeJSON(resp *http.Response, target any, expectedStatus int) error {
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != expectedStatus {
		if err := parseErrorResponse(resp, bodyBytes); err != nil {
			return err
		}
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	if err := json.Unmarshal(bodyBytes, target); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

// checkStatusNoContent returns a typed error if the response status is not 204 No Content.
func checkStatusNoContent(resp *http.Response) error {
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return parseErrorResponse(resp, bodyBytes)
	}

	return nil
}
