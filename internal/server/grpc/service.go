package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "timecaddy.v1.AccountService"

type unaryMethod func(s *GRPCServer, ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)

func methodDesc(name string, m unaryMethod) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			s := srv.(*GRPCServer)
			if interceptor == nil {
				return m(s, ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + name}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return m(s, ctx, req.(*structpb.Struct))
			})
		},
	}
}

// serviceDesc describes AccountService. Requests and responses are
// google.protobuf.Struct messages.
var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*any)(nil),
	Methods: []grpc.MethodDesc{
		methodDesc("Signup", (*GRPCServer).Signup),
		methodDesc("Login", (*GRPCServer).Login),
		methodDesc("ResendConfirmation", (*GRPCServer).ResendConfirmation),
		methodDesc("ConfirmSignup", (*GRPCServer).ConfirmSignup),
		methodDesc("RequestPasswordReset", (*GRPCServer).RequestPasswordReset),
		methodDesc("ResetPassword", (*GRPCServer).ResetPassword),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "timecaddy/v1/account_service",
}
