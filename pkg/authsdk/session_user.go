package authsdk

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// ListEmployees returns one page of the organisation's members.
// Zero page or limit uses the server defaults.
func (s *Session) ListEmployees(ctx context.Context, page, limit int) (*UserListResponse, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, "/v1/users/employees"+pageQuery(page, limit), nil)
	if err != nil {
		return nil, err
	}

	var out UserListResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// TotalEmployees counts the organisation's members.
func (s *Session) TotalEmployees(ctx context.Context) (int, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, "/v1/users/employees/total", nil)
	if err != nil {
		return 0, err
	}

	var out TotalResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return 0, err
	}
	return out.Total, nil
}

// DeleteEmployee removes a member. Requires super user.
func (s *Session) DeleteEmployee(ctx context.Context, userID string) error {
	resp, err := s.doAuthRequest(ctx, http.MethodDelete, "/v1/users/employees/"+url.PathEscape(userID), nil)
	if err != nil {
		return err
	}
	return checkStatusNoContent(resp)
}

// UpdateRole grants or withdraws admin rights. Withdrawing requires super user.
func (s *Session) UpdateRole(ctx context.Context, userID string, isAdmin bool) (*UserResponse, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodPatch,
		"/v1/users/employees/"+url.PathEscape(userID)+"/role",
		UpdateRoleRequest{IsAdmin: isAdmin},
	)
	if err != nil {
		return nil, err
	}

	var user UserResponse
	if err := decodeJSON(resp, &user, http.StatusOK); err != nil {
		return nil, err
	}
	return &user, nil
}

// CurrentOrganisation returns the caller's organisation.
func (s *Session) CurrentOrganisation(ctx context.Context) (*OrganisationResponse, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, "/v1/organisations/current", nil)
	if err != nil {
		return nil, err
	}

	var org OrganisationResponse
	if err := decodeJSON(resp, &org, http.StatusOK); err != nil {
		return nil, err
	}
	return &org, nil
}

// ActivityLogs returns one page of the organisation's activity, newest first.
func (s *Session) ActivityLogs(ctx context.Context, page, limit int) (*ActivityListResponse, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, "/v1/activity/logs"+pageQuery(page, limit), nil)
	if err != nil {
		return nil, err
	}

	var out ActivityListResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

func pageQuery(page, limit int) string {
	q := url.Values{}
	if page > 0 {
		q.Set("page", fmt.Sprint(page))
	}
	if limit > 0 {
		q.Set("limit", fmt.Sprint(limit))
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}

// UpdateOrganisation renames the organisation and changes its email.
// Requires super user.
func (s *Session) UpdateOrganisation(ctx context.Context, req UpdateOrganisationRequest) (*OrganisationResponse, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodPatch, "/v1/organisations/update", req)
	if err != nil {
		return nil, err
	}

	var org OrganisationResponse
	if err := decodeJSON(resp, &org, http.StatusOK); err != nil {
		return nil, err
	}
	return &org, nil
}

// SendMessage emails an arbitrary recipient through the service's mailer.
func (s *Session) SendMessage(ctx context.Context, req SendMessageRequest) error {
	resp, err := s.doAuthRequest(ctx, http.MethodPost, "/v1/messages/send", req)
	if err != nil {
		return err
	}

	var out MessageResponse
	return decodeJSON(resp, &out, http.StatusOK)
}
