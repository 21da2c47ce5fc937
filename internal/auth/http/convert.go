package http

import (
	"github.com/aussiebroadwan/rollcall/internal/auth/domain"
	"github.com/aussiebroadwan/rollcall/pkg/authsdk"
)

func toUserResponse(u domain.User) authsdk.UserResponse {
	return authsdk.UserResponse{
		ID:             u.ID,
		Name:           u.Name,
		Email:          u.Email,
		OrganisationID: u.OrganisationID,
		IsAdmin:        u.IsAdmin,
		IsSuperUser:    u.IsSuperUser,
		CreatedAt:      u.CreatedAt,
	}
}

func toUserResponses(users []domain.User) []authsdk.UserResponse {
	out := make([]authsdk.UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResponse(u))
	}
	return out
}

func toOrganisationResponse(o domain.Organisation) authsdk.OrganisationResponse {
	return authsdk.OrganisationResponse{
		ID:        o.ID,
		Name:      o.Name,
		Email:     o.Email,
		CreatedBy: o.CreatedBy,
		CreatedAt: o.CreatedAt,
	}
}

func toInviteResponse(i domain.Invite) authsdk.InviteResponse {
	return authsdk.InviteResponse{
		ID:             i.ID,
		Name:           i.Name,
		Email:          i.Email,
		OrganisationID: i.OrganisationID,
		InvitedBy:      i.InvitedBy,
		Used:           i.Used,
		UsedBy:         i.UsedBy,
		ExpiresAt:      i.ExpiresAt,
		CreatedAt:      i.CreatedAt,
	}
}

func toInviteList(invites []domain.Invite) authsdk.InviteListResponse {
	items := make([]authsdk.InviteResponse, 0, len(invites))
	for _, i := range invites {
		items = append(items, toInviteResponse(i))
	}
	return authsdk.InviteListResponse{Items: items}
}

func toActivityResponse(a domain.Activity) authsdk.ActivityResponse {
	return authsdk.ActivityResponse{
		ID:             a.ID,
		Kind:           string(a.Kind),
		Title:          a.Title,
		Description:    a.Description,
		UserID:         a.UserID,
		OrganisationID: a.OrganisationID,
		CreatedAt:      a.CreatedAt,
	}
}

func toAuthResponse(s domain.Session) authsdk.AuthResponse {
	return authsdk.AuthResponse{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		User:         toUserResponse(s.User),
	}
}
