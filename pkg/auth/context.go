package auth

import (
	"context"
)

type contextKey string

const claimsKey contextKey = "session_claims"

// AddClaimsToContext stores validated claims in ctx.
func AddClaimsToContext(ctx context.Context, claims *SessionClaims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// GetClaimsFromContext returns the claims stored by RequireSessionToken.
func GetClaimsFromContext(ctx context.Context) (*SessionClaims, bool) {
	claims, ok := ctx.Value(claimsKey).(*SessionClaims)
	return claims, ok && claims != nil
}

// SessionIDFromContext returns the session id, or "" when there is none.
func SessionIDFromContext(ctx context.Context) string {
	if claims, ok := GetClaimsFromContext(ctx); ok {
		return claims.SessionID
	}
	return ""
}
