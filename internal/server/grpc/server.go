// Package grpc serves the TokenVerifier RPC used by the gateway.
package grpc

import (
	"context"
	"net"

	"github.com/Mohamed-Afzal-Nandolia/ProjectRuX/internal/auth"
	"github.com/Mohamed-Afzal-Nandolia/ProjectRuX/internal/logging"
	"github.com/Mohamed-Afzal-Nandolia/ProjectRuX/internal/tokenrpc"
	"google.golang.org/grpc"
)

// Validator verifies a session token.
type Validator interface {
	Validate(ctx context.Context, token string) (*auth.Claims, error)
}

type GRPCServer struct {
	address   string
	validator Validator
	logger    logging.Logger
}

func NewGRPCServer(a string, l logging.Logger, v Validator) *GRPCServer {
	return &GRPCServer{
		address:   a,
		logger:    l.With("module", "grpc_server"),
		validator: v,
	}
}

func (s *GRPCServer) newServer() *grpc.Server {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.loggingInterceptor))
	tokenrpc.RegisterTokenVerifierServer(srv, s)
	return srv
}

func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	return s.serve(ctx, listen)
}

func (s *GRPCServer) serve(ctx context.Context, listen net.Listener) error {
	srv := s.newServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", listen.Addr().String())

	// starts accepting incoming connections
	if err := srv.Serve(listen); err != nil {
		return err
	}

	return nil
}
