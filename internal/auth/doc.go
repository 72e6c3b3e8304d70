// Package auth provides JWT-based authentication for the dev backend.
//
// # Tokens
//
// Tokens are HS256-signed JWTs carrying the client identity in the "sub"
// claim. The same JWTVerifier both mints tokens (for the "cui token new"
// command) and verifies them (in the backend's HTTP middleware):
//
//	verifier := auth.NewJWTVerifier(secret)
//	token, _ := verifier.Generate("laptop", 30*24*time.Hour)
//	subject, err := verifier.Verify(token)
//
// # Middleware
//
// HTTPAuthMiddleware guards API routes. The verified subject travels in the
// request context:
//
//	if id := auth.IdentityFromContext(r.Context()); id != nil {
//		// id.Subject
//	}
//
// Authentication is optional: a backend started without a secret serves
// requests unauthenticated, which is the default for local development.
package auth
