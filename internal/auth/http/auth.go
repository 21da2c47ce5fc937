package http

import (
	"net/http"

	"github.com/aussiebroadwan/rollcall/internal/auth/domain"
	"github.com/aussiebroadwan/rollcall/internal/auth/service"
	"github.com/aussiebroadwan/rollcall/pkg/authsdk"
	"github.com/aussiebroadwan/rollcall/pkg/httpx"
)

// AuthHandler serves account creation, login and the session lifecycle.
type AuthHandler struct {
	AuthService *service.AuthService
}

// identity returns the caller attached by AccessGuard. Routes using it are
// always guarded, so a missing identity is a wiring bug reported as 401.
func identity(w http.ResponseWriter, r *http.Request) (domain.Identity, bool) {
	id, ok := httpx.IdentityFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, authsdk.ErrorCodeUnauthorized, httpx.ErrMissingToken.Error())
		return domain.Identity{}, false
	}
	return domain.Identity(id), true
}

// HandleCreateAccount godoc
//
//	@Summary		Create account
//	@Description	Registers a founding user together with a new organisation. The user becomes admin and super user of it.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.CreateAccountRequest	true	"Account details"
//	@Success		201		{object}	authsdk.AuthResponse
//	@Failure		400		{object}	authsdk.ValidationErrorResponse
//	@Failure		409		{object}	authsdk.ErrorResponse	"email or organisation email already exists"
//	@Failure		429		{object}	authsdk.ErrorResponse
//	@Router			/v1/auth/account/create [post].
func (h *AuthHandler) HandleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req authsdk.CreateAccountRequest
	if !decodeBody(w, r, &req, false) {
		return
	}
	req.Email = normalizeEmail(req.Email)
	req.OrganisationEmail = normalizeEmail(req.OrganisationEmail)
	if err := validateCreateAccount(req); err != nil {
		writeValidationError(w, err)
		return
	}

	sess, err := h.AuthService.CreateAccount(r.Context(), service.CreateAccountInput{
		Name:              req.Name,
		Email:             req.Email,
		Password:          req.Password,
		OrganisationName:  req.OrganisationName,
		OrganisationEmail: req.OrganisationEmail,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, toAuthResponse(sess))
}

// HandleLogin godoc
//
//	@Summary		Login
//	@Description	Authenticates with email and password. Only admins and super users may log in.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.LoginRequest	true	"Credentials"
//	@Success		200		{object}	authsdk.AuthResponse
//	@Failure		400		{object}	authsdk.ValidationErrorResponse
//	@Failure		401		{object}	authsdk.ErrorResponse	"invalid email or password"
//	@Failure		403		{object}	authsdk.ErrorResponse	"insufficient permissions"
//	@Failure		429		{object}	authsdk.ErrorResponse
//	@Router			/v1/auth/login [post].
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req authsdk.LoginRequest
	if !decodeBody(w, r, &req, false) {
		return
	}
	req.Email = normalizeEmail(req.Email)
	if err := validateLogin(req); err != nil {
		writeValidationError(w, err)
		return
	}

	sess, err := h.AuthService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, toAuthResponse(sess))
}

// HandleRefresh godoc
//
//	@Summary		Refresh tokens
//	@Description	Exchanges a refresh token for a new pair. The presented refresh token is revoked; replaying it fails.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.RefreshRequest	true	"Refresh token"
//	@Success		200		{object}	authsdk.TokenPairResponse
//	@Failure		401		{object}	authsdk.ErrorResponse	"missing, invalid, expired or revoked refresh token"
//	@Failure		429		{object}	authsdk.ErrorResponse
//	@Router			/v1/auth/refresh [post].
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	var req authsdk.RefreshRequest
	if !decodeBody(w, r, &req, true) {
		return
	}

	pair, err := h.AuthService.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.TokenPairResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

// HandleLogout godoc
//
//	@Summary		Logout
//	@Description	Revokes the session of the given refresh token. Never fails.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.LogoutRequest	false	"Refresh token"
//	@Success		200		{object}	authsdk.MessageResponse	"Logged out successfully / Already logged out"
//	@Router			/v1/auth/logout [post].
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	var req authsdk.LogoutRequest
	if !decodeBody(w, r, &req, true) {
		return
	}

	msg := h.AuthService.Logout(r.Context(), req.RefreshToken)
	httpx.WriteJSON(w, http.StatusOK, authsdk.MessageResponse{Message: msg})
}

// HandleLogoutAll godoc
//
//	@Summary		Logout from all devices
//	@Description	Revokes every refresh token of the caller.
//	@Tags			Auth
//	@Produce		json
//	@Success		200	{object}	authsdk.LogoutAllResponse
//	@Failure		401	{object}	authsdk.ErrorResponse
//	@Failure		500	{object}	authsdk.ErrorResponse
//	@Security		BearerAuth
//	@Router			/v1/auth/logout/all [post].
func (h *AuthHandler) HandleLogoutAll(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	n, err := h.AuthService.LogoutAllDevices(r.Context(), id.Sub)
	if err != nil {
		writeError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.LogoutAllResponse{
		Message: "Logged out from all devices",
		Revoked: n,
	})
}

// HandleMe godoc
//
//	@Summary		Current user
//	@Description	Returns the stored profile of the authenticated user.
//	@Tags			Auth
//	@Produce		json
//	@Success		200	{object}	authsdk.UserResponse
//	@Failure		401	{object}	authsdk.ErrorResponse
//	@Failure		404	{object}	authsdk.ErrorResponse	"user no longer exists"
//	@Security		BearerAuth
//	@Router			/v1/auth/me [get].
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	u, err := h.AuthService.Me(r.Context(), id.Sub)
	if err != nil {
		writeError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, toUserResponse(u))
}

// HandleChangePassword godoc
//
//	@Summary		Change password
//	@Description	Replaces the caller's password and revokes all of their sessions.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.ChangePasswordRequest	true	"Current and new password"
//	@Success		200		{object}	authsdk.MessageResponse
//	@Failure		400		{object}	authsdk.ValidationErrorResponse
//	@Failure		401		{object}	authsdk.ErrorResponse
//	@Security		BearerAuth
//	@Router			/v1/auth/password/change [post].
func (h *AuthHandler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	var req authsdk.ChangePasswordRequest
	if !decodeBody(w, r, &req, false) {
		return
	}
	if err := validateChangePassword(req); err != nil {
		writeValidationError(w, err)
		return
	}

	if err := h.AuthService.ChangePassword(r.Context(), id.Sub, req.CurrentPassword, req.NewPassword); err != nil {
		writeError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.MessageResponse{Message: "Password changed successfully"})
}
