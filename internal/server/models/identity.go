package models

import "time"

type IdentityStatus string

const (
	StatusPending IdentityStatus = "PENDING"
	StatusActive  IdentityStatus = "ACTIVE"
)

// Identity is a registered account. It starts PENDING and becomes ACTIVE
// once the signup OTP is verified; it never goes back.
type Identity struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	Status       IdentityStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (i *Identity) Active() bool {
	return i.Status == StatusActive
}
