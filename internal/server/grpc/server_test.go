package grpc

import (
	"bytes"
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/Mohamed-Afzal-Nandolia/ProjectRuX/internal/auth"
	"github.com/Mohamed-Afzal-Nandolia/ProjectRuX/internal/logging"
	"github.com/Mohamed-Afzal-Nandolia/ProjectRuX/internal/tokenrpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

type nopLogger struct{}

func (n nopLogger) Debug(context.Context, string, ...any) {}
func (n nopLogger) Info(context.Context, string, ...any)  {}
func (n nopLogger) Warn(context.Context, string, ...any)  {}
func (n nopLogger) Error(context.Context, string, ...any) {}
func (n nopLogger) With(...any) logging.Logger            { return n }

// tokenValidator adapts a TokenService to Validator.
type tokenValidator struct{ ts *auth.TokenService }

func (v tokenValidator) Validate(ctx context.Context, token string) (*auth.Claims, error) {
	return v.ts.Verify(ctx, token)
}

type brokenValidator struct{}

func (brokenValidator) Validate(context.Context, string) (*auth.Claims, error) {
	return nil, errors.New("boom")
}

func dialBufconn(t *testing.T, s *GRPCServer) *tokenrpc.Client {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.serve(ctx, lis) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return tokenrpc.NewClient(conn)
}

func TestVerify_OverBufconn(t *testing.T) {
	ts := auth.NewTokenService([]byte("secret"), "", 0)
	c := dialBufconn(t, NewGRPCServer("bufnet", nopLogger{}, tokenValidator{ts}))

	token, err := ts.Issue(context.Background(), auth.Identity{ID: "id-1", Username: "alice"})
	require.NoError(t, err)

	sub, err := c.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "alice", sub)

	other := auth.NewTokenService([]byte("other"), "", 0)
	forged, err := other.Issue(context.Background(), auth.Identity{ID: "id-1", Username: "alice"})
	require.NoError(t, err)

	for _, bad := range []string{"", "garbage", forged} {
		_, err = c.Verify(context.Background(), bad)
		require.Error(t, err)
		assert.Equal(t, codes.Unauthenticated, status.Code(err), "token %q", bad)
	}
}

func TestVerify_ValidatorFailureIsUnauthenticated(t *testing.T) {
	c := dialBufconn(t, NewGRPCServer("bufnet", nopLogger{}, brokenValidator{}))

	_, err := c.Verify(context.Background(), "anything")
	require.Error(t, err)
	st, _ := status.FromError(err)
	assert.Equal(t, codes.Unauthenticated, st.Code())
	assert.Equal(t, "invalid token", st.Message(), "internal details are not leaked")
}

func TestLoggingInterceptor_TagsRequestID(t *testing.T) {
	buf := &bytes.Buffer{}
	s := NewGRPCServer("bufnet", logging.NewJSONLogger(buf, "debug"), brokenValidator{})

	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(requestIDKey, "req-42"))
	info := &grpc.UnaryServerInfo{FullMethod: tokenrpc.VerifyMethod}
	h := func(ctx context.Context, req any) (any, error) {
		return nil, status.Error(codes.Unauthenticated, "nope")
	}

	_, err := s.loggingInterceptor(ctx, nil, info, h)
	require.Error(t, err)
	out := buf.String()
	assert.Contains(t, out, `"request_id":"req-42"`)
	assert.Contains(t, out, `"code":"Unauthenticated"`)
	assert.Contains(t, out, tokenrpc.VerifyMethod)
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	t.Parallel()

	srv := NewGRPCServer("127.0.0.1:0", nopLogger{}, brokenValidator{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- srv.Run(ctx)
	}()

	select {
	case err := <-done:
		t.Fatalf("server exited too early: %v", err)
	case <-time.After(150 * time.Millisecond):
	}

	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error on graceful stop: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop within timeout after context cancel")
	}
}

func TestRun_ReturnsErrorOnBadAddress(t *testing.T) {
	t.Parallel()

	srv := NewGRPCServer("127.0.0.1:99999", nopLogger{}, brokenValidator{})

	if err := srv.Run(context.Background()); err == nil {
		t.Fatal("expected error from Run on bad address, got nil")
	}
}
