package verifier

import (
	"context"
	"fmt"

	"github.com/Mohamed-Afzal-Nandolia/ProjectRuX/internal/common"
	"github.com/Mohamed-Afzal-Nandolia/ProjectRuX/internal/tokenrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
)

// GRPC calls the identity service's TokenVerifier.
type GRPC struct {
	client *tokenrpc.Client
}

func NewGRPC(cc grpc.ClientConnInterface) *GRPC {
	return &GRPC{client: tokenrpc.NewClient(cc)}
}

// DialGRPC opens a plaintext connection to the identity service. The
// connection is lazy; failures show up on the first Verify.
func DialGRPC(addr string) (*grpc.ClientConn, error) {
	return grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
}

func (g *GRPC) Verify(ctx context.Context, token string) (string, error) {
	sub, err := g.client.Verify(ctx, token)
	if err != nil {
		if status.Code(err) == codes.Unauthenticated {
			return "", fmt.Errorf("%w: %s", common.ErrorUnauthorized, status.Convert(err).Message())
		}
		return "", fmt.Errorf("%w: %w", common.ErrTransportFailure, err)
	}
	if sub == "" {
		return "", fmt.Errorf("%w: empty subject", common.ErrorUnauthorized)
	}
	return sub, nil
}
