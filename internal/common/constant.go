// Package common contains constants, sentinel errors and small helpers shared
// by the identity service and the gateway.
package common

const (
	// AuthorizationHeader carries the bearer session token on inbound requests.
	AuthorizationHeader = "Authorization"

	// BearerScheme is the only accepted authorization scheme.
	BearerScheme = "Bearer"

	// TrustedIdentityHeader is injected by the gateway after a session token
	// has been verified. Downstream services read the caller's username from it.
	TrustedIdentityHeader = "X-User-Name"
)
