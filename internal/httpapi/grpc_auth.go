package httpapi

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"tillpoint.org/internal/auth"
	"tillpoint.org/internal/obs"
)

// UnaryAuthInterceptor validates the bearer token carried in the
// authorization metadata key and binds the resolved principal to the
// handler context. Internal gRPC surfaces reuse the exact validation
// path the HTTP gate goes through.
func UnaryAuthInterceptor(svc *auth.Service) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		md, _ := metadata.FromIncomingContext(ctx)
		var token string
		if vals := md.Get("authorization"); len(vals) > 0 {
			token = parseBearer(vals[0])
		}

		principal, err := svc.Validate(ctx, token)
		if err != nil {
			if auth.IsAuthError(err) {
				obs.AuthFailure(failureReason(err))
				return nil, status.Error(codes.Unauthenticated, err.Error())
			}
			return nil, status.Error(codes.Internal, "internal server error")
		}

		ctx = auth.ContextWithPrincipal(ctx, principal)
		ctx = auth.ContextWithToken(ctx, token)
		return handler(ctx, req)
	}
}
