package grpc

import (
	"context"
	"time"

	"github.com/dmitrijs2005/timecaddy/internal/server/accounts"
	"github.com/dmitrijs2005/timecaddy/internal/server/confirmation"
	"github.com/dmitrijs2005/timecaddy/internal/server/models"
	"github.com/dmitrijs2005/timecaddy/internal/server/passwordreset"
	"github.com/dmitrijs2005/timecaddy/internal/server/services"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// AccountService is what the adapter needs from services.AccountService.
type AccountService interface {
	Signup(ctx context.Context, in accounts.SignupInput, now time.Time) (services.SignupOutcome, error)
	Login(ctx context.Context, identifier, password string, now time.Time) (services.LoginResult, *models.User, error)
	ResendConfirmation(ctx context.Context, identifier string, now time.Time) (services.ResendResult, error)
	ConfirmSignup(ctx context.Context, urlToken, code string, now time.Time) (confirmation.Result, error)
	RequestPasswordReset(ctx context.Context, identifier string, now time.Time) (services.ResetRequestResult, error)
	ResetPassword(ctx context.Context, urlToken, code, newPassword string, now time.Time) (passwordreset.Result, error)
}

func str(req *structpb.Struct, key string) string {
	return req.GetFields()[key].GetStringValue()
}

func reply(fields map[string]any) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Error(codes.Internal, "internal error")
	}
	return out, nil
}

func (s *GRPCServer) logFailure(ctx context.Context, method string, err error) {
	if err != nil {
		s.logger.Error(ctx, "request failed", "method", method, "error", err)
	}
}

func (s *GRPCServer) Signup(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	in := accounts.SignupInput{
		Username: str(req, "username"),
		Email:    str(req, "email"),
		Password: str(req, "password"),
		Timezone: str(req, "timezone"),
	}

	out, err := s.accounts.Signup(ctx, in, s.now())
	s.logFailure(ctx, "Signup", err)

	fields := map[string]any{"result": out.Result.String()}
	switch out.Result {
	case services.SignupInvalid:
		reasons := make([]any, len(out.Reasons))
		for i, r := range out.Reasons {
			reasons[i] = r
		}
		fields["reasons"] = reasons
	case services.SignupConflict:
		fields["field"] = out.Field
	case services.SignupCreated:
		fields["username"] = out.User.Username
	}
	return reply(fields)
}

func (s *GRPCServer) Login(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	res, u, err := s.accounts.Login(ctx, str(req, "identifier"), str(req, "password"), s.now())
	s.logFailure(ctx, "Login", err)

	fields := map[string]any{"result": res.String()}
	if res == services.LoginOK {
		fields["username"] = u.Username
	}
	return reply(fields)
}

func (s *GRPCServer) ResendConfirmation(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	res, err := s.accounts.ResendConfirmation(ctx, str(req, "identifier"), s.now())
	s.logFailure(ctx, "ResendConfirmation", err)
	return reply(map[string]any{"result": res.String()})
}

func (s *GRPCServer) ConfirmSignup(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	res, err := s.accounts.ConfirmSignup(ctx, str(req, "url_token"), str(req, "code"), s.now())
	s.logFailure(ctx, "ConfirmSignup", err)
	return reply(map[string]any{"result": res.String()})
}

func (s *GRPCServer) RequestPasswordReset(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	res, err := s.accounts.RequestPasswordReset(ctx, str(req, "identifier"), s.now())
	s.logFailure(ctx, "RequestPasswordReset", err)
	return reply(map[string]any{"result": res.String()})
}

func (s *GRPCServer) ResetPassword(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	res, err := s.accounts.ResetPassword(ctx, str(req, "url_token"), str(req, "code"), str(req, "new_password"), s.now())
	s.logFailure(ctx, "ResetPassword", err)
	return reply(map[string]any{"result": res.String()})
}
