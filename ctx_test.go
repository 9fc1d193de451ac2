package auth_test

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-keepin-auth"
)

func testClaims() *auth.JWTClaims {
	return &auth.JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1"},
		UID:              "user-1",
		UserEmail:        "a@b.com",
	}
}

func TestClaimsContext(t *testing.T) {
	_, ok := auth.GetClaims(context.Background())
	assert.False(t, ok)

	ctx := auth.WithClaimsContext(context.Background(), testClaims())
	claims, ok := auth.GetClaims(ctx)
	require.True(t, ok)
	assert.Equal(t, "user-1", claims.UserID())
}

func TestIdentityFromContext(t *testing.T) {
	_, ok := auth.IdentityFromContext(context.Background())
	assert.False(t, ok)

	identity, ok := auth.IdentityFromContext(auth.WithClaimsContext(context.Background(), testClaims()))
	require.True(t, ok)
	assert.Equal(t, "user-1", identity.ID())
	assert.Equal(t, "a@b.com", identity.Email())
}

func TestGetRouterClaims(t *testing.T) {
	srv := router.NewFiberAdapter(func(_ *fiber.App) *fiber.App {
		return router.DefaultFiberOptions(fiber.New())
	})
	r := srv.Router()

	r.Get("/locals", func(ctx router.Context) error {
		ctx.Locals(auth.DefaultContextKey, testClaims())
		claims, ok := auth.GetRouterClaims(ctx, "")
		if !ok {
			return ctx.Status(router.StatusUnauthorized).SendString("no claims")
		}
		return ctx.SendString(claims.UserID())
	})

	r.Get("/usercontext", func(ctx router.Context) error {
		ctx.SetContext(auth.WithClaimsContext(ctx.Context(), testClaims()))
		claims, ok := auth.GetRouterClaims(ctx, "session")
		if !ok {
			return ctx.Status(router.StatusUnauthorized).SendString("no claims")
		}
		return ctx.SendString(claims.Email())
	})

	r.Get("/none", func(ctx router.Context) error {
		if _, ok := auth.GetRouterClaims(ctx, ""); ok {
			return ctx.SendString("claims")
		}
		return ctx.Status(router.StatusUnauthorized).SendString("no claims")
	})

	for path, want := range map[string]int{
		"/locals":      router.StatusOK,
		"/usercontext": router.StatusOK,
		"/none":        router.StatusUnauthorized,
	} {
		res, err := srv.WrappedRouter().Test(httptest.NewRequest(fiber.MethodGet, path, nil), -1)
		require.NoError(t, err)
		assert.Equal(t, want, res.StatusCode, path)
	}
}
