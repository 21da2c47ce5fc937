package authsdk

import "time"

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	// Error is a stable machine readable code (e.g. "bad_request", "unauthorized").
	Error string `json:"error"`

	// ErrorDescription is a short human readable message.
	ErrorDescription string `json:"error_description"`
}

// ValidationErrorResponse is returned with 400 when a request body fails
// validation. Details maps field names to their problem.
type ValidationErrorResponse struct {
	ErrorResponse
	Details map[string]string `json:"details,omitempty"`
}

// MessageResponse is returned by operations that have nothing else to say.
type MessageResponse struct {
	Message string `json:"message"`
}

// HealthResponse is returned by /livez and /readyz.
type HealthResponse struct {
	Status  string            `json:"status"`
	Uptime  string            `json:"uptime"`
	Version string            `json:"version"`
	Checks  map[string]string `json:"checks,omitempty"`
}

// ============================================================================
// Auth
// ============================================================================

type CreateAccountRequest struct {
	Name              string `json:"name"`
	Email             string `json:"email"`
	Password          string `json:"password"`
	OrganisationName  string `json:"organisationName"`
	OrganisationEmail string `json:"organisationEmail"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// LogoutRequest may omit the token; logout then reports "Already logged out".
type LogoutRequest struct {
	RefreshToken string `json:"refreshToken,omitempty"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// TokenPairResponse is returned by refresh.
type TokenPairResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// AuthResponse is returned by account creation and login.
type AuthResponse struct {
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
	User         UserResponse `json:"user"`
}

// LogoutAllResponse reports how many sessions were revoked.
type LogoutAllResponse struct {
	Message string `json:"message"`
	Revoked int    `json:"revoked"`
}

// ============================================================================
// Users and organisations
// ============================================================================

// UserResponse is the public view of a user. It never carries the password hash.
type UserResponse struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	OrganisationID string    `json:"organisationId,omitempty"`
	IsAdmin        bool      `json:"isAdmin"`
	IsSuperUser    bool      `json:"isSuperUser"`
	CreatedAt      time.Time `json:"createdAt"`
}

// IdentityResponse is the caller identity carried by the access token.
type IdentityResponse struct {
	Sub            string `json:"sub"`
	Email          string `json:"email"`
	Name           string `json:"name"`
	IsAdmin        bool   `json:"isAdmin"`
	IsSuperUser    bool   `json:"isSuperUser"`
	OrganisationID string `json:"organisationId"`
}

type UpdateRoleRequest struct {
	IsAdmin bool `json:"isAdmin"`
}

type UserListResponse struct {
	Items []UserResponse `json:"items"`
	Page  int            `json:"page"`
	Limit int            `json:"limit"`
}

type TotalResponse struct {
	Total int `json:"total"`
}

// UpdateOrganisationRequest replaces the organisation's name and email.
type UpdateOrganisationRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type OrganisationResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedBy string    `json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`
}

// ============================================================================
// Messages
// ============================================================================

// SendMessageRequest is a plain-text email sent on behalf of an admin.
type SendMessageRequest struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

// ============================================================================
// Invites
// ============================================================================

type SendInviteRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// AcceptInviteRequest creates the invited member. Name and Email default to
// the invitation's.
type AcceptInviteRequest struct {
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
	Password string `json:"password"`
}

// InviteResponse describes an invite. The token is never included.
type InviteResponse struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	OrganisationID string    `json:"organisationId"`
	InvitedBy      string    `json:"invitedBy"`
	Used           bool      `json:"used"`
	UsedBy         string    `json:"usedBy,omitempty"`
	ExpiresAt      time.Time `json:"expiresAt"`
	CreatedAt      time.Time `json:"createdAt"`
}

type InviteListResponse struct {
	Items []InviteResponse `json:"items"`
}

// ============================================================================
// Activity
// ============================================================================

type ActivityResponse struct {
	ID             string    `json:"id"`
	Kind           string    `json:"kind"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	UserID         string    `json:"userId"`
	OrganisationID string    `json:"organisationId"`
	CreatedAt      time.Time `json:"createdAt"`
}

type ActivityListResponse struct {
	Items []ActivityResponse `json:"items"`
	Page  int                `json:"page"`
	Limit int                `json:"limit"`
}

// ============================================================================
// Keys
// ============================================================================

// JWK is a public signing key as published in the JWKS document.
type JWK struct {
	Kty string `json:"kty"`
	Crv string `json:"crv,omitempty"`
	X   string `json:"x,omitempty"`
	Kid string `json:"kid"`
	Use string `json:"use,omitempty"`
	Alg string `json:"alg,omitempty"`
}

type JWKSResponse struct {
	Keys []JWK `json:"keys"`
}
