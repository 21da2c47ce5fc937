package authsdk

import (
	"context"
	"net/http"
	"net/url"
)

// CreateAccount registers a founding user and organisation and returns a
// session for the new user.
func (c *SDKClient) CreateAccount(ctx context.Context, req CreateAccountRequest) (*Session, *AuthResponse, error) {
	return c.authenticate(ctx, "/v1/auth/account/create", req, http.StatusCreated)
}

// Login authenticates with email and password.
func (c *SDKClient) Login(ctx context.Context, email, password string) (*Session, *AuthResponse, error) {
	return c.authenticate(ctx, "/v1/auth/login", LoginRequest{Email: email, Password: password}, http.StatusOK)
}

func (c *SDKClient) authenticate(ctx context.Context, path string, payload any, status int) (*Session, *AuthResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, path, payload)
	if err != nil {
		return nil, nil, err
	}

	var authResp AuthResponse
	if err := decodeJSON(resp, &authResp, status); err != nil {
		return nil, nil, err
	}

	return c.NewSessionFromTokens(authResp.AccessToken, authResp.RefreshToken), &authResp, nil
}

// Refresh exchanges a refresh token for a new token pair. The presented
// token stops working.
func (c *SDKClient) Refresh(ctx context.Context, refreshToken string) (*TokenPairResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/v1/auth/refresh", RefreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return nil, err
	}

	var pair TokenPairResponse
	if err := decodeJSON(resp, &pair, http.StatusOK); err != nil {
		return nil, err
	}
	return &pair, nil
}

// Logout revokes the session of refreshToken. An empty token is allowed.
func (c *SDKClient) Logout(ctx context.Context, refreshToken string) (*MessageResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/v1/auth/logout", LogoutRequest{RefreshToken: refreshToken})
	if err != nil {
		return nil, err
	}

	var msg MessageResponse
	if err := decodeJSON(resp, &msg, http.StatusOK); err != nil {
		return nil, err
	}
	return &msg, nil
}

// GetInvite looks up an invite by its raw token.
func (c *SDKClient) GetInvite(ctx context.Context, token string) (*InviteResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/v1/invites/"+url.PathEscape(token), nil)
	if err != nil {
		return nil, err
	}

	var inv InviteResponse
	if err := decodeJSON(resp, &inv, http.StatusOK); err != nil {
		return nil, err
	}
	return &inv, nil
}

// AcceptInvite redeems an invite token and creates the member.
func (c *SDKClient) AcceptInvite(ctx context.Context, token string, req AcceptInviteRequest) (*UserResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/v1/invites/"+url.PathEscape(token)+"/accept", req)
	if err != nil {
		return nil, err
	}

	var user UserResponse
	if err := decodeJSON(resp, &user, http.StatusCreated); err != nil {
		return nil, err
	}
	return &user, nil
}
