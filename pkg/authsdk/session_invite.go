package authsdk

import (
	"context"
	"net/http"
	"net/url"
)

// SendInvite invites a new member into the caller's organisation.
// Requires admin or super user.
func (s *Session) SendInvite(ctx context.Context, req SendInviteRequest) (*InviteResponse, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodPost, "/v1/invites/send", req)
	if err != nil {
		return nil, err
	}

	var inv InviteResponse
	if err := decodeJSON(resp, &inv, http.StatusCreated); err != nil {
		return nil, err
	}
	return &inv, nil
}

// ResendInvite rotates an unused invite's token and emails it again.
func (s *Session) ResendInvite(ctx context.Context, inviteID string) (*InviteResponse, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodPatch, "/v1/invites/"+url.PathEscape(inviteID)+"/resend", nil)
	if err != nil {
		return nil, err
	}

	var inv InviteResponse
	if err := decodeJSON(resp, &inv, http.StatusOK); err != nil {
		return nil, err
	}
	return &inv, nil
}

// PendingInvites lists unused, unexpired invites.
func (s *Session) PendingInvites(ctx context.Context) (*InviteListResponse, error) {
	return s.listInvites(ctx, "/v1/invites/pending")
}

// AcceptedInvites lists redeemed invites.
func (s *Session) AcceptedInvites(ctx context.Context) (*InviteListResponse, error) {
	return s.listInvites(ctx, "/v1/invites/accepted")
}

func (s *Session) listInvites(ctx context.Context, path string) (*InviteListResponse, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var out InviteListResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}
