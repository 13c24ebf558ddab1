package jwtgrpc

import (
	"context"

	"google.golang.org/grpc"

	jwtguard "github.com/keyward/go-jwt-guard"
)

// JWTInterceptor provides token validation for gRPC servers.
type JWTInterceptor struct {
	validator           jwtguard.TokenValidator
	tokenExtractor      TokenExtractor
	errorHandler        ErrorHandler
	excludedMethods     map[string]bool
	credentialsOptional bool
	logger              jwtguard.Logger
}

// New creates a gRPC interceptor with the provided options. The
// WithValidator option is required.
func New(opts ...Option) (*JWTInterceptor, error) {
	interceptor := &JWTInterceptor{
		tokenExtractor:  MetadataTokenExtractor,
		errorHandler:    DefaultErrorHandler,
		excludedMethods: map[string]bool{},
		logger:          jwtguard.NoopLogger{},
	}

	for _, opt := range opts {
		if err := opt(interceptor); err != nil {
			return nil, err
		}
	}

	if interceptor.validator == nil {
		return nil, jwtguard.ErrValidatorNil
	}

	return interceptor, nil
}

// UnaryServerInterceptor returns a grpc.UnaryServerInterceptor that
// validates the token carried in the request metadata and makes the
// claims available through the handler context.
func (i *JWTInterceptor) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		if i.excludedMethods[info.FullMethod] {
			i.logger.Debugf("skipping token validation for excluded method %q", info.FullMethod)
			return handler(ctx, req)
		}

		validatedCtx, err := i.validateRequest(ctx, info.FullMethod)
		if err != nil {
			return nil, err
		}

		return handler(validatedCtx, req)
	}
}

// StreamServerInterceptor returns a grpc.StreamServerInterceptor that
// validates the token carried in the stream metadata and makes the
// claims available through the stream context.
func (i *JWTInterceptor) StreamServerInterceptor() grpc.StreamServerInterceptor {
	return func(
		srv any,
		ss grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) error {
		if i.excludedMethods[info.FullMethod] {
			i.logger.Debugf("skipping token validation for excluded method %q", info.FullMethod)
			return handler(srv, ss)
		}

		validatedCtx, err := i.validateRequest(ss.Context(), info.FullMethod)
		if err != nil {
			return err
		}

		return handler(srv, &wrappedServerStream{ServerStream: ss, ctx: validatedCtx})
	}
}

// validateRequest extracts and validates the token, returning a context
// enriched with the claims.
func (i *JWTInterceptor) validateRequest(ctx context.Context, method string) (context.Context, error) {
	token, err := i.tokenExtractor(ctx)
	if err != nil {
		i.logger.Errorf("failed to extract a token for %q: %v", method, err)
		return ctx, i.errorHandler(err)
	}

	if token == "" {
		if i.credentialsOptional {
			i.logger.Debugf("no credentials on %q, continuing without claims", method)
			return ctx, nil
		}
		return ctx, i.errorHandler(jwtguard.ErrJWTMissing)
	}

	claims, err := i.validator.ValidateToken(ctx, token)
	if err != nil {
		i.logger.Warnf("token validation failed for %q: %v", method, err)
		return ctx, i.errorHandler(err)
	}

	return jwtguard.SetClaims(ctx, claims), nil
}

// wrappedServerStream overrides the stream context with one carrying
// the validated claims.
type wrappedServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (w *wrappedServerStream) Context() context.Context {
	return w.ctx
}
