package grpc

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/dmitrijs2005/timecaddy/internal/logging"
	"github.com/dmitrijs2005/timecaddy/internal/server/accounts"
	"github.com/dmitrijs2005/timecaddy/internal/server/confirmation"
	"github.com/dmitrijs2005/timecaddy/internal/server/models"
	"github.com/dmitrijs2005/timecaddy/internal/server/passwordreset"
	"github.com/dmitrijs2005/timecaddy/internal/server/services"
	"github.com/dmitrijs2005/timecaddy/internal/timex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

type nopLogger struct{}

func (n nopLogger) Debug(context.Context, string, ...any) {}
func (n nopLogger) Info(context.Context, string, ...any)  {}
func (n nopLogger) Warn(context.Context, string, ...any)  {}
func (n nopLogger) Error(context.Context, string, ...any) {}
func (n nopLogger) With(...any) logging.Logger            { return n }

var fixedNow = time.Date(2024, 10, 1, 12, 0, 0, 0, time.UTC)

type fakeAccounts struct {
	signupIn  accounts.SignupInput
	signupOut services.SignupOutcome
	signupErr error

	loginIdentifier string
	loginPassword   string
	loginRes        services.LoginResult
	loginUser       *models.User

	resendRes  services.ResendResult
	confirmArg [2]string
	confirmRes confirmation.Result
	resetReq   services.ResetRequestResult
	resetArgs  [3]string
	resetRes   passwordreset.Result

	now time.Time
}

func (f *fakeAccounts) Signup(ctx context.Context, in accounts.SignupInput, now time.Time) (services.SignupOutcome, error) {
	f.signupIn, f.now = in, now
	return f.signupOut, f.signupErr
}

func (f *fakeAccounts) Login(ctx context.Context, identifier, password string, now time.Time) (services.LoginResult, *models.User, error) {
	f.loginIdentifier, f.loginPassword = identifier, password
	return f.loginRes, f.loginUser, nil
}

func (f *fakeAccounts) ResendConfirmation(ctx context.Context, identifier string, now time.Time) (services.ResendResult, error) {
	return f.resendRes, nil
}

func (f *fakeAccounts) ConfirmSignup(ctx context.Context, urlToken, code string, now time.Time) (confirmation.Result, error) {
	f.confirmArg = [2]string{urlToken, code}
	return f.confirmRes, nil
}

func (f *fakeAccounts) RequestPasswordReset(ctx context.Context, identifier string, now time.Time) (services.ResetRequestResult, error) {
	return f.resetReq, nil
}

func (f *fakeAccounts) ResetPassword(ctx context.Context, urlToken, code, newPassword string, now time.Time) (passwordreset.Result, error) {
	f.resetArgs = [3]string{urlToken, code, newPassword}
	return f.resetRes, nil
}

func startServer(t *testing.T, svc AccountService, opts Options) *grpc.ClientConn {
	t.Helper()
	if opts.Clock == nil {
		opts.Clock = timex.FixedClock(fixedNow)
	}

	lis := bufconn.Listen(1 << 20)
	srv := NewGRPCServer("bufnet", nopLogger{}, svc, opts)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, lis) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = conn.Close()
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Error("server did not stop")
		}
	})
	return conn
}

func call(t *testing.T, conn *grpc.ClientConn, method string, in map[string]any) (*structpb.Struct, error) {
	t.Helper()
	req, err := structpb.NewStruct(in)
	require.NoError(t, err)
	out := new(structpb.Struct)
	err = conn.Invoke(context.Background(), "/"+ServiceName+"/"+method, req, out)
	return out, err
}

func field(s *structpb.Struct, key string) string {
	return s.GetFields()[key].GetStringValue()
}

func TestSignup_Created(t *testing.T) {
	svc := &fakeAccounts{signupOut: services.SignupOutcome{Result: services.SignupCreated, User: &models.User{Username: "alice"}}}
	conn := startServer(t, svc, Options{})

	out, err := call(t, conn, "Signup", map[string]any{
		"username": "alice", "email": "alice@example.com", "password": "secret1", "timezone": "UTC",
	})
	require.NoError(t, err)
	assert.Equal(t, "created", field(out, "result"))
	assert.Equal(t, "alice", field(out, "username"))
	assert.Equal(t, accounts.SignupInput{Username: "alice", Email: "alice@example.com", Password: "secret1", Timezone: "UTC"}, svc.signupIn)
	assert.Equal(t, fixedNow, svc.now)
}

func TestSignup_InvalidAndConflict(t *testing.T) {
	svc := &fakeAccounts{signupOut: services.SignupOutcome{Result: services.SignupInvalid, Reasons: []string{"password: too short", "timezone: bad"}}}
	conn := startServer(t, svc, Options{})

	out, err := call(t, conn, "Signup", map[string]any{"username": "alice"})
	require.NoError(t, err)
	assert.Equal(t, "invalid", field(out, "result"))
	reasons := out.GetFields()["reasons"].GetListValue().AsSlice()
	assert.Equal(t, []any{"password: too short", "timezone: bad"}, reasons)

	svc.signupOut = services.SignupOutcome{Result: services.SignupConflict, Field: "email"}
	out, err = call(t, conn, "Signup", map[string]any{"username": "alice"})
	require.NoError(t, err)
	assert.Equal(t, "conflict", field(out, "result"))
	assert.Equal(t, "email", field(out, "field"))
}

func TestSignup_TechnicalError(t *testing.T) {
	svc := &fakeAccounts{signupOut: services.SignupOutcome{Result: services.SignupTechnicalError}, signupErr: errors.New("db down")}
	conn := startServer(t, svc, Options{})

	out, err := call(t, conn, "Signup", map[string]any{"username": "alice"})
	require.NoError(t, err)
	assert.Equal(t, "technical_error", field(out, "result"))
}

func TestLogin(t *testing.T) {
	svc := &fakeAccounts{loginRes: services.LoginOK, loginUser: &models.User{Username: "alice"}}
	conn := startServer(t, svc, Options{})

	out, err := call(t, conn, "Login", map[string]any{"identifier": "alice@example.com", "password": "pw"})
	require.NoError(t, err)
	assert.Equal(t, "ok", field(out, "result"))
	assert.Equal(t, "alice", field(out, "username"))
	assert.Equal(t, "alice@example.com", svc.loginIdentifier)
	assert.Equal(t, "pw", svc.loginPassword)

	svc.loginRes, svc.loginUser = services.LoginInvalidCredentials, nil
	out, err = call(t, conn, "Login", map[string]any{"identifier": "alice", "password": "nope"})
	require.NoError(t, err)
	assert.Equal(t, "invalid_credentials", field(out, "result"))
	assert.Empty(t, field(out, "username"))
}

func TestTokenMethods(t *testing.T) {
	svc := &fakeAccounts{
		resendRes:  services.ResendTooSoon,
		confirmRes: confirmation.WrongCode,
		resetReq:   services.ResetRequestRateLimited,
		resetRes:   passwordreset.Expired,
	}
	conn := startServer(t, svc, Options{})

	out, err := call(t, conn, "ResendConfirmation", map[string]any{"identifier": "alice"})
	require.NoError(t, err)
	assert.Equal(t, "too_soon", field(out, "result"))

	out, err = call(t, conn, "ConfirmSignup", map[string]any{"url_token": "u1", "code": "c1"})
	require.NoError(t, err)
	assert.Equal(t, "wrong_code", field(out, "result"))
	assert.Equal(t, [2]string{"u1", "c1"}, svc.confirmArg)

	out, err = call(t, conn, "RequestPasswordReset", map[string]any{"identifier": "alice"})
	require.NoError(t, err)
	assert.Equal(t, "rate_limited", field(out, "result"))

	out, err = call(t, conn, "ResetPassword", map[string]any{"url_token": "u2", "code": "c2", "new_password": "np"})
	require.NoError(t, err)
	assert.Equal(t, "expired", field(out, "result"))
	assert.Equal(t, [3]string{"u2", "c2", "np"}, svc.resetArgs)
}

func TestRateLimit(t *testing.T) {
	svc := &fakeAccounts{resendRes: services.ResendSent}
	conn := startServer(t, svc, Options{RateLimitRPS: 0.001, RateLimitBurst: 2})

	for range 2 {
		_, err := call(t, conn, "ResendConfirmation", map[string]any{"identifier": "alice"})
		require.NoError(t, err)
	}
	_, err := call(t, conn, "ResendConfirmation", map[string]any{"identifier": "alice"})
	assert.Equal(t, codes.ResourceExhausted, status.Code(err))
}

func TestHealth(t *testing.T) {
	conn := startServer(t, &fakeAccounts{}, Options{})

	resp, err := healthpb.NewHealthClient(conn).Check(context.Background(), &healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
}

func TestUnknownMethod(t *testing.T) {
	conn := startServer(t, &fakeAccounts{}, Options{})
	_, err := call(t, conn, "DeleteEverything", map[string]any{})
	assert.Equal(t, codes.Unimplemented, status.Code(err))
}

func TestRun_ReturnsErrorOnBadAddress(t *testing.T) {
	srv := NewGRPCServer("127.0.0.1:99999", nopLogger{}, &fakeAccounts{}, Options{})
	err := srv.Run(context.Background())
	require.Error(t, err)
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	srv := NewGRPCServer("127.0.0.1:0", nopLogger{}, &fakeAccounts{}, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	select {
	case err := <-done:
		t.Fatalf("server exited too early: %v", err)
	case <-time.After(150 * time.Millisecond):
	}

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop within timeout after context cancel")
	}
}
