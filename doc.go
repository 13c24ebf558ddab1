/*
Package jwtguard provides HTTP middleware for JWT authentication.

The middleware is framework agnostic: CheckJWT wraps any http.Handler and
the framework subpackages adapt it to echo, gin, fiber and grpc. Token
validation is pluggable through the TokenValidator interface, implemented
by the validator package, which resolves verification keys through the
jwks package.

# Quick Start

	provider, err := jwks.New(
	    jwks.WithIssuerURL("https://your-domain.example.com"),
	)
	if err != nil {
	    log.Fatal(err)
	}
	provider.InitializeAndWait(ctx, nil)
	defer provider.Close()

	jwtValidator, err := validator.New(
	    validator.WithKeyProvider(provider),
	    validator.WithIssuer("https://your-domain.example.com"),
	    validator.WithAudience("your-api-identifier"),
	)
	if err != nil {
	    log.Fatal(err)
	}

	middleware, err := jwtguard.New(
	    jwtguard.WithValidator(jwtValidator),
	)
	if err != nil {
	    log.Fatal(err)
	}

	http.Handle("/api/", middleware.CheckJWT(apiHandler))
	http.ListenAndServe(":8080", nil)

# Accessing Claims

Use the type-safe generic helpers to access claims in your handlers:

	func apiHandler(w http.ResponseWriter, r *http.Request) {
	    claims, err := jwtguard.GetClaims[*validator.ValidatedClaims](r.Context())
	    if err != nil {
	        http.Error(w, "Unauthorized", http.StatusUnauthorized)
	        return
	    }
	    fmt.Fprintf(w, "Hello, %s!", claims.RegisteredClaims.Subject)
	}

HasClaims reports whether claims are present without retrieving them, which
is useful together with WithCredentialsOptional.

# Token Extraction

The default extractor reads the Authorization header with the Bearer
scheme. CookieTokenExtractor, ParameterTokenExtractor and
MultiTokenExtractor cover the other common transports:

	extractor := jwtguard.MultiTokenExtractor(
	    jwtguard.AuthHeaderTokenExtractor,
	    jwtguard.CookieTokenExtractor("jwt"),
	)

# Error Handling

The DefaultErrorHandler answers 400 for a missing token, 401 for an
invalid one and 500 for everything else, with a small JSON body. A custom
ErrorHandler can distinguish the cases with errors.Is against
ErrJWTMissing and ErrJWTInvalid.

# Observability

WithLogger, WithMetrics and WithTracer plug the middleware into the
process's logging, metrics and tracing stacks. Adapters for logrus, zap,
zerolog, Prometheus and OpenTelemetry ship with the package; everything
defaults to a no-op.
*/
package jwtguard
