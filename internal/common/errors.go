package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound    = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")

	// Service-level errors.
	ErrorInternal      = errors.New("internal error")
	ErrorUnauthorized  = errors.New("unauthorized")
	ErrorValidation    = errors.New("validation error")
	ErrTooManyAttempts = errors.New("too many attempts")

	// Ephemeral credential lifecycle errors.
	ErrAlreadyVerified = errors.New("already verified")
	ErrExpired         = errors.New("expired")
	ErrMismatch        = errors.New("code mismatch")

	// ErrTransportFailure reports that a delegated verification call
	// could not complete. Callers treat it exactly like a rejected token.
	ErrTransportFailure = errors.New("transport failure")
)
