package authsdk

import (
	"context"
	"errors"
	"net/http"
	"sync"
)

// Session is an authenticated client. Requests that fail with 401 trigger
// one token rotation and a retry.
type Session struct {
	client *SDKClient

	mu           sync.RWMutex
	accessToken  string
	refreshToken string
}

// AccessToken returns the current access token.
func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

// RefreshToken returns the current refresh token.
func (s *Session) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshToken
}

// Refresh rotates the session's tokens.
func (s *Session) Refresh(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.refreshToken == "" {
		return errors.New("no refresh token available")
	}

	pair, err := s.client.Refresh(ctx, s.refreshToken)
	if err != nil {
		return err
	}
	s.accessToken = pair.AccessToken
	s.refreshToken = pair.RefreshToken
	return nil
}

// Logout revokes this session's refresh token and forgets both tokens.
func (s *Session) Logout(ctx context.Context) (*MessageResponse, error) {
	s.mu.Lock()
	refreshToken := s.refreshToken
	s.accessToken, s.refreshToken = "", ""
	s.mu.Unlock()

	return s.client.Logout(ctx, refreshToken)
}

// LogoutAll revokes every session of the authenticated user.
func (s *Session) LogoutAll(ctx context.Context) (*LogoutAllResponse, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodPost, "/v1/auth/logout/all", nil)
	if err != nil {
		return nil, err
	}

	var out LogoutAllResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// Me returns the authenticated user.
func (s *Session) Me(ctx context.Context) (*UserResponse, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, "/v1/auth/me", nil)
	if err != nil {
		return nil, err
	}

	var user UserResponse
	if err := decodeJSON(resp, &user, http.StatusOK); err != nil {
		return nil, err
	}
	return &user, nil
}

// ChangePassword replaces the password. Every session, this one included,
// is revoked on success.
func (s *Session) ChangePassword(ctx context.Context, current, next string) (*MessageResponse, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodPost, "/v1/auth/password/change", ChangePasswordRequest{
		CurrentPassword: current,
		NewPassword:     next,
	})
	if err != nil {
		return nil, err
	}

	var msg MessageResponse
	if err := decodeJSON(resp, &msg, http.StatusOK); err != nil {
		return nil, err
	}
	return &msg, nil
}
