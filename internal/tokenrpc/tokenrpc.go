// Package tokenrpc describes the TokenVerifier gRPC service shared by the
// identity service (server side) and the gateway (client side).
//
// Both the request and the response are google.protobuf.StringValue: the
// request carries the bearer token, the response the verified subject.
// An invalid token is answered with codes.Unauthenticated.
package tokenrpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const (
	ServiceName  = "projectrux.identity.TokenVerifier"
	VerifyMethod = "/" + ServiceName + "/Verify"
)

// TokenVerifierServer is implemented by the identity service.
type TokenVerifierServer interface {
	Verify(ctx context.Context, token *wrapperspb.StringValue) (*wrapperspb.StringValue, error)
}

func RegisterTokenVerifierServer(s grpc.ServiceRegistrar, srv TokenVerifierServer) {
	s.RegisterService(&ServiceDesc, srv)
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*TokenVerifierServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Verify", Handler: verifyHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "projectrux/identity/token_verifier",
}

func verifyHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TokenVerifierServer).Verify(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: VerifyMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(TokenVerifierServer).Verify(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

// Client calls TokenVerifier over an existing connection.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Verify returns the subject of a valid token. Errors are gRPC status errors.
func (c *Client) Verify(ctx context.Context, token string, opts ...grpc.CallOption) (string, error) {
	out := new(wrapperspb.StringValue)
	if err := c.cc.Invoke(ctx, VerifyMethod, wrapperspb.String(token), out, opts...); err != nil {
		return "", err
	}
	return out.GetValue(), nil
}
