package auth

import (
	"context"

	"github.com/goliatone/go-router"
)

// DefaultContextKey is where the route middleware stores verified claims
const DefaultContextKey = "user"

var claimsCtxKey = &contextKey{"claims"}

type contextKey struct {
	name string
}

// WithClaimsContext sets the AuthClaims in the given context
func WithClaimsContext(r context.Context, claims AuthClaims) context.Context {
	return context.WithValue(r, claimsCtxKey, claims)
}

// GetClaims extracts the AuthClaims from the standard context
func GetClaims(ctx context.Context) (AuthClaims, bool) {
	raw, ok := ctx.Value(claimsCtxKey).(AuthClaims)
	return raw, ok
}

// GetRouterClaims extracts the AuthClaims from the router locals, falling
// back to the request context
func GetRouterClaims(ctx router.Context, key string) (AuthClaims, bool) {
	if key == "" {
		key = DefaultContextKey
	}
	raw := ctx.Locals(key)
	if raw == nil {
		return GetClaims(ctx.Context())
	}
	claims, ok := raw.(AuthClaims)
	return claims, ok
}

// IdentityFromContext returns the identity carried by the verified claims.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	claims, ok := GetClaims(ctx)
	if !ok || claims == nil {
		return nil, false
	}
	return claimsIdentity{claims: claims}, true
}
