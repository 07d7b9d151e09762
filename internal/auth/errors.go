package auth

import "errors"

// Kind tags why a token failed verification.
type Kind int

const (
	Malformed Kind = iota + 1
	BadSignature
	Expired
)

func (k Kind) String() string {
	switch k {
	case Malformed:
		return "malformed"
	case BadSignature:
		return "bad signature"
	case Expired:
		return "expired"
	default:
		return "unknown"
	}
}

var (
	ErrMalformed    = &VerificationError{Kind: Malformed}
	ErrBadSignature = &VerificationError{Kind: BadSignature}
	ErrExpired      = &VerificationError{Kind: Expired}
)

// VerificationError is returned by TokenService.Verify.
//
//	if errors.Is(err, auth.ErrExpired) { ... }
type VerificationError struct {
	Kind Kind
	Err  error
}

func (e *VerificationError) Error() string {
	if e.Err == nil {
		return "token " + e.Kind.String()
	}
	return "token " + e.Kind.String() + ": " + e.Err.Error()
}

func (e *VerificationError) Unwrap() error { return e.Err }

// Is matches any VerificationError of the same Kind.
func (e *VerificationError) Is(target error) bool {
	var t *VerificationError
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}
