package domain

import "time"

type Organisation struct {
	ID        string
	Name      string
	Email     string // normalised, unique
	CreatedBy string // founding user id
	CreatedAt time.Time
	UpdatedAt time.Time
}
