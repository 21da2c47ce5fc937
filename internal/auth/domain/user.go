package domain

import "time"

type User struct {
	ID             string
	Name           string
	Email          string // normalised: trimmed, lower case
	PasswordHash   string // argon2 encoded
	OrganisationID string // empty until the organisation exists
	IsAdmin        bool
	IsSuperUser    bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Identity is the view of a user carried inside access tokens and attached
// to authenticated requests.
type Identity struct {
	Sub            string `json:"sub"`
	Email          string `json:"email"`
	Name           string `json:"name"`
	IsAdmin        bool   `json:"isAdmin"`
	IsSuperUser    bool   `json:"isSuperUser"`
	OrganisationID string `json:"organisationId"`
}

// Identity returns the token/request view of the user.
func (u User) Identity() Identity {
	return Identity{
		Sub:            u.ID,
		Email:          u.Email,
		Name:           u.Name,
		IsAdmin:        u.IsAdmin,
		IsSuperUser:    u.IsSuperUser,
		OrganisationID: u.OrganisationID,
	}
}
