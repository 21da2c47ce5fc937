package domain

import "time"

type Invite struct {
	ID             string
	InvitedBy      string
	Name           string
	Email          string // normalised
	TokenHash      string // fingerprint of the opaque token, the raw token is never stored
	OrganisationID string
	Used           bool
	UsedBy         string // empty until redeemed
	ExpiresAt      time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Expired reports whether the invite can no longer be redeemed at t.
func (i Invite) Expired(t time.Time) bool {
	return !t.Before(i.ExpiresAt)
}
