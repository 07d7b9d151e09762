package grpc

import (
	"context"
	"errors"

	"github.com/Mohamed-Afzal-Nandolia/ProjectRuX/internal/auth"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Verify answers with the token subject, or codes.Unauthenticated.
func (s *GRPCServer) Verify(ctx context.Context, req *wrapperspb.StringValue) (*wrapperspb.StringValue, error) {

	claims, err := s.validator.Validate(ctx, req.GetValue())

	if err != nil {
		var verr *auth.VerificationError
		if errors.As(err, &verr) {
			return nil, status.Error(codes.Unauthenticated, verr.Error())
		}
		s.logger.Error(ctx, "token validation failed", "error", err)
		return nil, status.Error(codes.Unauthenticated, "invalid token")
	}

	return wrapperspb.String(claims.Subject), nil

}
