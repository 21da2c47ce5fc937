package http

import (
	"net/http"

	"github.com/aussiebroadwan/rollcall/internal/auth/service"
	"github.com/aussiebroadwan/rollcall/pkg/authsdk"
	"github.com/aussiebroadwan/rollcall/pkg/httpx"
)

type InviteHandler struct {
	InviteService *service.InviteService
}

// HandleSend godoc
//
//	@Summary		Send invite
//	@Description	Invites a new member into the caller's organisation and emails them a single-use link.
//	@Description	At most one unused, unexpired invite may exist per email and organisation.
//	@Tags			Invitations
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.SendInviteRequest	true	"Invitee"
//	@Success		201		{object}	authsdk.InviteResponse
//	@Failure		400		{object}	authsdk.ValidationErrorResponse	"validation failed or active invite already exists"
//	@Failure		401		{object}	authsdk.ErrorResponse
//	@Failure		403		{object}	authsdk.ErrorResponse
//	@Failure		500		{object}	authsdk.ErrorResponse	"failed to send invite email"
//	@Security		BearerAuth
//	@Router			/v1/invites/send [post].
func (h *InviteHandler) HandleSend(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	var req authsdk.SendInviteRequest
	if !decodeBody(w, r, &req, false) {
		return
	}
	req.Email = normalizeEmail(req.Email)
	if err := validateSendInvite(req); err != nil {
		writeValidationError(w, err)
		return
	}

	inv, err := h.InviteService.Send(r.Context(), service.SendInviteInput{
		InvitedBy:      id.Sub,
		OrganisationID: id.OrganisationID,
		Name:           req.Name,
		Email:          req.Email,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, toInviteResponse(inv))
}

// HandleGet godoc
//
//	@Summary		Look up invite
//	@Description	Returns the invite behind a raw token so the recipient can review it before accepting.
//	@Tags			Invitations
//	@Produce		json
//	@Param			token	path		string	true	"Invite token"
//	@Success		200		{object}	authsdk.InviteResponse
//	@Failure		400		{object}	authsdk.ErrorResponse	"invite already used"
//	@Failure		404		{object}	authsdk.ErrorResponse	"invite not found"
//	@Failure		409		{object}	authsdk.ErrorResponse	"invite expired"
//	@Router			/v1/invites/{token} [get].
func (h *InviteHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	inv, err := h.InviteService.FindByToken(r.Context(), r.PathValue("token"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, toInviteResponse(inv))
}

// HandleAccept godoc
//
//	@Summary		Accept invite
//	@Description	Redeems an invite token and creates the member. Each token works once.
//	@Tags			Invitations
//	@Accept			json
//	@Produce		json
//	@Param			token	path		string						true	"Invite token"
//	@Param			request	body		authsdk.AcceptInviteRequest	true	"Member details"
//	@Success		201		{object}	authsdk.UserResponse
//	@Failure		400		{object}	authsdk.ValidationErrorResponse
//	@Failure		404		{object}	authsdk.ErrorResponse
//	@Failure		409		{object}	authsdk.ErrorResponse	"invite expired or email already exists"
//	@Router			/v1/invites/{token}/accept [post].
func (h *InviteHandler) HandleAccept(w http.ResponseWriter, r *http.Request) {
	var req authsdk.AcceptInviteRequest
	if !decodeBody(w, r, &req, false) {
		return
	}
	req.Email = normalizeEmail(req.Email)
	if err := validateAcceptInvite(req); err != nil {
		writeValidationError(w, err)
		return
	}

	u, err := h.InviteService.Accept(r.Context(), service.AcceptInviteInput{
		Token:    r.PathValue("token"),
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, toUserResponse(u))
}

// HandleResend godoc
//
//	@Summary		Resend invite
//	@Description	Issues a fresh token for an unused invite, invalidating the old one, and emails it again.
//	@Tags			Invitations
//	@Produce		json
//	@Param			id	path		string	true	"Invite ID"
//	@Success		200	{object}	authsdk.InviteResponse
//	@Failure		400	{object}	authsdk.ErrorResponse	"invite already used"
//	@Failure		404	{object}	authsdk.ErrorResponse
//	@Security		BearerAuth
//	@Router			/v1/invites/{id}/resend [patch].
func (h *InviteHandler) HandleResend(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	inv, err := h.InviteService.Resend(r.Context(), id.Sub, id.OrganisationID, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, toInviteResponse(inv))
}

// HandlePending godoc
//
//	@Summary		Pending invites
//	@Tags			Invitations
//	@Produce		json
//	@Success		200	{object}	authsdk.InviteListResponse
//	@Failure		401	{object}	authsdk.ErrorResponse
//	@Failure		403	{object}	authsdk.ErrorResponse
//	@Security		BearerAuth
//	@Router			/v1/invites/pending [get].
func (h *InviteHandler) HandlePending(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	invites, err := h.InviteService.Pending(r.Context(), id.OrganisationID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, toInviteList(invites))
}

// HandleAccepted godoc
//
//	@Summary		Accepted invites
//	@Tags			Invitations
//	@Produce		json
//	@Success		200	{object}	authsdk.InviteListResponse
//	@Failure		401	{object}	authsdk.ErrorResponse
//	@Failure		403	{object}	authsdk.ErrorResponse
//	@Security		BearerAuth
//	@Router			/v1/invites/accepted [get].
func (h *InviteHandler) HandleAccepted(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	invites, err := h.InviteService.Accepted(r.Context(), id.OrganisationID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, toInviteList(invites))
}
