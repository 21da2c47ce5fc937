package http

import (
	"net/http"
	"strconv"

	"github.com/aussiebroadwan/rollcall/internal/auth/service"
	"github.com/aussiebroadwan/rollcall/internal/auth/store"
	"github.com/aussiebroadwan/rollcall/pkg/authsdk"
	"github.com/aussiebroadwan/rollcall/pkg/httpx"
)

type UserHandler struct {
	UserService *service.UserService
}

// pageFromQuery reads ?page= and ?limit=. Missing values take the defaults.
func pageFromQuery(w http.ResponseWriter, r *http.Request) (store.Page, bool) {
	q := r.URL.Query()

	atoi := func(name string) (int, bool) {
		v := q.Get(name)
		if v == "" {
			return 0, true
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			httpx.WriteError(w, http.StatusBadRequest, authsdk.ErrorCodeBadRequest, name+" must be an integer")
			return 0, false
		}
		return n, true
	}

	page, ok := atoi("page")
	if !ok {
		return store.Page{}, false
	}
	limit, ok := atoi("limit")
	if !ok {
		return store.Page{}, false
	}

	p, err := service.NewPage(page, limit)
	if err != nil {
		writeError(w, r, err)
		return store.Page{}, false
	}
	return p, true
}

// HandleList godoc
//
//	@Summary		List employees
//	@Description	Returns one page of the caller's organisation members, oldest first.
//	@Tags			Users
//	@Produce		json
//	@Param			page	query		int	false	"Page, from 1"				default(1)
//	@Param			limit	query		int	false	"Page size, 1 to 100"		default(20)
//	@Success		200		{object}	authsdk.UserListResponse
//	@Failure		400		{object}	authsdk.ErrorResponse
//	@Failure		401		{object}	authsdk.ErrorResponse
//	@Failure		403		{object}	authsdk.ErrorResponse
//	@Security		BearerAuth
//	@Router			/v1/users/employees [get].
func (h *UserHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	page, ok := pageFromQuery(w, r)
	if !ok {
		return
	}

	users, err := h.UserService.Employees(r.Context(), id.OrganisationID, page)
	if err != nil {
		writeError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.UserListResponse{
		Items: toUserResponses(users),
		Page:  page.Page,
		Limit: page.Limit,
	})
}

// HandleTotal godoc
//
//	@Summary		Count employees
//	@Tags			Users
//	@Produce		json
//	@Success		200	{object}	authsdk.TotalResponse
//	@Failure		401	{object}	authsdk.ErrorResponse
//	@Failure		403	{object}	authsdk.ErrorResponse
//	@Security		BearerAuth
//	@Router			/v1/users/employees/total [get].
func (h *UserHandler) HandleTotal(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	n, err := h.UserService.TotalEmployees(r.Context(), id.OrganisationID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.TotalResponse{Total: n})
}

// HandleDelete godoc
//
//	@Summary		Remove employee
//	@Description	Deletes a member of the caller's organisation and revokes their sessions. Super user only.
//	@Tags			Users
//	@Param			id	path	string	true	"User ID"
//	@Success		204
//	@Failure		400	{object}	authsdk.ErrorResponse	"you cannot remove yourself"
//	@Failure		403	{object}	authsdk.ErrorResponse
//	@Failure		404	{object}	authsdk.ErrorResponse
//	@Security		BearerAuth
//	@Router			/v1/users/employees/{id} [delete].
func (h *UserHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	if err := h.UserService.DeleteEmployee(r.Context(), id, r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleUpdateRole godoc
//
//	@Summary		Change role
//	@Description	Grants or withdraws admin rights. Existing sessions keep their claims until refreshed.
//	@Tags			Users
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string						true	"User ID"
//	@Param			request	body		authsdk.UpdateRoleRequest	true	"Role"
//	@Success		200		{object}	authsdk.UserResponse
//	@Failure		403		{object}	authsdk.ErrorResponse
//	@Failure		404		{object}	authsdk.ErrorResponse
//	@Security		BearerAuth
//	@Router			/v1/users/employees/{id}/role [patch].
func (h *UserHandler) HandleUpdateRole(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	var req authsdk.UpdateRoleRequest
	if !decodeBody(w, r, &req, false) {
		return
	}

	u, err := h.UserService.UpdateRole(r.Context(), id, r.PathValue("id"), req.IsAdmin)
	if err != nil {
		writeError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, toUserResponse(u))
}

type OrganisationHandler struct {
	OrganisationService *service.OrganisationService
}

// HandleCurrent godoc
//
//	@Summary		Current organisation
//	@Tags			Organisations
//	@Produce		json
//	@Success		200	{object}	authsdk.OrganisationResponse
//	@Failure		401	{object}	authsdk.ErrorResponse
//	@Failure		404	{object}	authsdk.ErrorResponse
//	@Security		BearerAuth
//	@Router			/v1/organisations/current [get].
func (h *OrganisationHandler) HandleCurrent(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	org, err := h.OrganisationService.Current(r.Context(), id.OrganisationID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, toOrganisationResponse(org))
}

// HandleUpdate godoc
//
//	@Summary		Update organisation
//	@Description	Sets the organisation's name and email. Super user only.
//	@Tags			Organisations
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.UpdateOrganisationRequest	true	"Organisation details"
//	@Success		200		{object}	authsdk.OrganisationResponse
//	@Failure		400		{object}	authsdk.ValidationErrorResponse
//	@Failure		403		{object}	authsdk.ErrorResponse
//	@Failure		409		{object}	authsdk.ErrorResponse	"organisation email already exists"
//	@Security		BearerAuth
//	@Router			/v1/organisations/update [patch].
func (h *OrganisationHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	var req authsdk.UpdateOrganisationRequest
	if !decodeBody(w, r, &req, false) {
		return
	}
	req.Email = normalizeEmail(req.Email)
	if err := validateUpdateOrganisation(req); err != nil {
		writeValidationError(w, err)
		return
	}

	org, err := h.OrganisationService.Update(r.Context(), id, service.UpdateOrganisationInput{
		Name:  req.Name,
		Email: req.Email,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, toOrganisationResponse(org))
}

type MessageHandler struct {
	MessageService *service.MessageService
}

// HandleSend godoc
//
//	@Summary		Send message
//	@Description	Emails any recipient through the service's mailer.
//	@Tags			Messages
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.SendMessageRequest	true	"Message"
//	@Success		200		{object}	authsdk.MessageResponse
//	@Failure		400		{object}	authsdk.ValidationErrorResponse
//	@Failure		403		{object}	authsdk.ErrorResponse
//	@Failure		500		{object}	authsdk.ErrorResponse	"mail delivery failed"
//	@Security		BearerAuth
//	@Router			/v1/messages/send [post].
func (h *MessageHandler) HandleSend(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	var req authsdk.SendMessageRequest
	if !decodeBody(w, r, &req, false) {
		return
	}
	req.To = normalizeEmail(req.To)
	if err := validateSendMessage(req); err != nil {
		writeValidationError(w, err)
		return
	}

	err := h.MessageService.Send(r.Context(), id, service.SendMessageInput{
		To:      req.To,
		Subject: req.Subject,
		Body:    req.Message,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.MessageResponse{Message: "Message sent"})
}

type ActivityHandler struct {
	ActivityService *service.ActivityService
}

// HandleList godoc
//
//	@Summary		Activity log
//	@Description	Returns one page of the caller's organisation activity, newest first.
//	@Tags			Activity
//	@Produce		json
//	@Param			page	query		int	false	"Page, from 1"			default(1)
//	@Param			limit	query		int	false	"Page size, 1 to 100"	default(20)
//	@Success		200		{object}	authsdk.ActivityListResponse
//	@Failure		400		{object}	authsdk.ErrorResponse
//	@Failure		401		{object}	authsdk.ErrorResponse
//	@Failure		403		{object}	authsdk.ErrorResponse
//	@Security		BearerAuth
//	@Router			/v1/activity/logs [get].
func (h *ActivityHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	page, ok := pageFromQuery(w, r)
	if !ok {
		return
	}

	entries, err := h.ActivityService.List(r.Context(), id.OrganisationID, page)
	if err != nil {
		writeError(w, r, err)
		return
	}

	items := make([]authsdk.ActivityResponse, 0, len(entries))
	for _, a := range entries {
		items = append(items, toActivityResponse(a))
	}
	httpx.WriteJSON(w, http.StatusOK, authsdk.ActivityListResponse{
		Items: items,
		Page:  page.Page,
		Limit: page.Limit,
	})
}
