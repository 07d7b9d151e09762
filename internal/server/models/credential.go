package models

import "time"

type CredentialKind string

const (
	KindSignupOTP  CredentialKind = "SIGNUP_OTP"
	KindResetToken CredentialKind = "RESET_TOKEN"
)

// EphemeralCredential is a time-boxed secret owned by an identity. At most
// one row exists per (Kind, IdentityID); writing a new one supersedes it.
type EphemeralCredential struct {
	ID         string
	Kind       CredentialKind
	IdentityID string
	Value      string
	ExpiresAt  time.Time
	CreatedAt  time.Time
}

// Expired reports whether the credential is past its expiry at now.
// A credential is still valid at exactly ExpiresAt.
func (c *EphemeralCredential) Expired(now time.Time) bool {
	return c.ExpiresAt.Before(now)
}
