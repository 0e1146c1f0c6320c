package grpc

import (
	"context"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/dmitrijs2005/memvault/internal/common"
	pb "github.com/dmitrijs2005/memvault/internal/proto"
	"github.com/dmitrijs2005/memvault/internal/server/auth"
)

type ctxKey string

const claimsKey ctxKey = "claims"

var publicMethods = map[string]bool{
	pb.MethodPing: true,
}

var operatorMethods = map[string]bool{
	pb.MethodRunPass:      true,
	pb.MethodRegisterUnit: true,
	pb.MethodSeedLedger:   true,
	pb.MethodAuditLog:     true,
}

func claimsFromContext(ctx context.Context) (*auth.Claims, bool) {
	c, ok := ctx.Value(claimsKey).(*auth.Claims)
	return c, ok
}

// accessTokenInterceptor requires a valid access token on every method
// except Ping, and the operator role on operator methods.
func (s *GRPCServer) accessTokenInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	if publicMethods[info.FullMethod] {
		return handler(ctx, req)
	}

	var accessToken string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		values := md.Get(common.AccessTokenHeaderName)
		if len(values) > 0 {
			accessToken = values[0]
		}
	}
	if len(accessToken) == 0 {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}

	claims, err := auth.ParseToken(accessToken, s.jwtSecret)
	if err != nil {
		if errors.Is(err, common.ErrTokenExpired) {
			return nil, status.Error(codes.Unauthenticated, common.ErrTokenExpired.Error())
		}
		return nil, status.Error(codes.Unauthenticated, common.ErrInvalidToken.Error())
	}

	if operatorMethods[info.FullMethod] && !claims.IsOperator() {
		s.logger.Warn(ctx, "operator method denied", "method", info.FullMethod, "email", claims.Email)
		return nil, status.Error(codes.PermissionDenied, common.ErrorForbidden.Error())
	}

	ctx = context.WithValue(ctx, claimsKey, claims)
	return handler(ctx, req)
}
