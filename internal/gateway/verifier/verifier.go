// Package verifier checks bearer tokens on behalf of the gateway filter,
// either in-process or by delegating to the identity service.
//
// Every implementation returns the token subject on success. A rejected
// token yields an error wrapping common.ErrorUnauthorized; a call that
// could not complete yields one wrapping common.ErrTransportFailure. The
// filter treats both the same way.
package verifier

import (
	"context"
	"fmt"

	"github.com/Mohamed-Afzal-Nandolia/ProjectRuX/internal/auth"
	"github.com/Mohamed-Afzal-Nandolia/ProjectRuX/internal/common"
)

type Verifier interface {
	Verify(ctx context.Context, token string) (string, error)
}

// Local verifies with a shared secret, no network involved.
type Local struct {
	tokens *auth.TokenService
}

func NewLocal(ts *auth.TokenService) *Local {
	return &Local{tokens: ts}
}

func (l *Local) Verify(ctx context.Context, token string) (string, error) {
	claims, err := l.tokens.Verify(ctx, token)
	if err != nil {
		return "", fmt.Errorf("%w: %w", common.ErrorUnauthorized, err)
	}
	return claims.Subject, nil
}
