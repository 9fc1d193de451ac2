package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-keepin-auth"
)

func newTestAuthenticator(t *testing.T, cfg *testConfig) (*auth.Auther, auth.RepositoryManager, *recordingSink) {
	t.Helper()

	repo := newTestRepo(t)
	sink := &recordingSink{}
	auther := auth.NewAuthenticator(repo, fastHasher(), cfg).WithActivitySink(sink)
	return auther, repo, sink
}

func TestAuther_SignupThenSignin(t *testing.T) {
	auther, repo, sink := newTestAuthenticator(t, newTestConfig())
	ctx := context.Background()

	user, err := auther.Signup(ctx, validSignup("a@b.com"))
	require.NoError(t, err)
	assert.Equal(t, "+821012345678", user.Phone)

	result, err := auther.Signin(ctx, "a@b.com", "secret1")
	require.NoError(t, err)
	assert.NotEmpty(t, result.Tokens.AccessToken)
	assert.NotEmpty(t, result.Tokens.RefreshToken)
	assert.Equal(t, "Kim Min", result.User.Name)

	stored, err := repo.Users().FindByEmail(ctx, "a@b.com")
	require.NoError(t, err)
	assert.Equal(t, result.Tokens.RefreshToken, stored.RefreshToken)

	claims, err := auther.SessionFromToken(result.Tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), claims.UserID())

	assert.Equal(t, []auth.ActivityEventType{
		auth.ActivityEventSignupSuccess,
		auth.ActivityEventLoginSuccess,
	}, sink.Types())
}

func TestAuther_SigninFailuresLookAlike(t *testing.T) {
	auther, repo, sink := newTestAuthenticator(t, newTestConfig())
	ctx := context.Background()
	seedUser(t, repo, "a@b.com", "secret1")

	_, wrongPassword := auther.Signin(ctx, "a@b.com", "wrong")
	_, unknownEmail := auther.Signin(ctx, "nobody@b.com", "secret1")

	assert.ErrorIs(t, wrongPassword, auth.ErrMismatchedHashAndPassword)
	assert.ErrorIs(t, unknownEmail, auth.ErrMismatchedHashAndPassword)
	assert.Equal(t, wrongPassword.Error(), unknownEmail.Error())

	assert.Equal(t, []auth.ActivityEventType{
		auth.ActivityEventLoginFailure,
		auth.ActivityEventLoginFailure,
	}, sink.Types())
}

func TestAuther_SignupDuplicate(t *testing.T) {
	auther, _, sink := newTestAuthenticator(t, newTestConfig())
	ctx := context.Background()

	_, err := auther.Signup(ctx, validSignup("a@b.com"))
	require.NoError(t, err)

	_, err = auther.Signup(ctx, validSignup("a@b.com"))
	assert.ErrorIs(t, err, auth.ErrDuplicateEmail)

	assert.Equal(t, []auth.ActivityEventType{
		auth.ActivityEventSignupSuccess,
		auth.ActivityEventSignupFailure,
	}, sink.Types())
}

func TestAuther_SecondSigninSupersedesRefreshToken(t *testing.T) {
	auther, repo, _ := newTestAuthenticator(t, newTestConfig())
	ctx := context.Background()
	seedUser(t, repo, "a@b.com", "secret1")

	first, err := auther.Signin(ctx, "a@b.com", "secret1")
	require.NoError(t, err)
	second, err := auther.Signin(ctx, "a@b.com", "secret1")
	require.NoError(t, err)

	_, err = auther.Refresh(ctx, first.Tokens.RefreshToken)
	assert.ErrorIs(t, err, auth.ErrTokenInvalid)

	access, err := auther.Refresh(ctx, second.Tokens.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, second.Tokens.AccessToken, access.Token)
}

func TestAuther_RefreshWithoutStoredCheck(t *testing.T) {
	cfg := newTestConfig()
	cfg.requireStored = false
	auther, repo, sink := newTestAuthenticator(t, cfg)
	ctx := context.Background()
	user := seedUser(t, repo, "a@b.com", "secret1")

	first, err := auther.Signin(ctx, "a@b.com", "secret1")
	require.NoError(t, err)
	_, err = auther.Signin(ctx, "a@b.com", "secret1")
	require.NoError(t, err)

	_, err = auther.Refresh(ctx, first.Tokens.RefreshToken)
	assert.NoError(t, err)

	last := sink.Last()
	assert.Equal(t, auth.ActivityEventTokenRefreshSuccess, last.EventType)
	assert.Equal(t, user.ID.String(), last.UserID)
}

func TestAuther_RefreshMissing(t *testing.T) {
	auther, _, sink := newTestAuthenticator(t, newTestConfig())

	_, err := auther.Refresh(context.Background(), "")
	assert.ErrorIs(t, err, auth.ErrRefreshTokenMissing)
	assert.Equal(t, []auth.ActivityEventType{auth.ActivityEventTokenRefreshFailure}, sink.Types())
}

func TestAuther_IndependentTTLs(t *testing.T) {
	cfg := newTestConfig()
	cfg.accessTTL = 15 * time.Minute
	cfg.refreshTTL = 7 * 24 * time.Hour

	auther, repo, _ := newTestAuthenticator(t, cfg)
	seedUser(t, repo, "a@b.com", "secret1")

	result, err := auther.Signin(context.Background(), "a@b.com", "secret1")
	require.NoError(t, err)

	ttl := result.Tokens.RefreshExpiresAt.Sub(result.Tokens.AccessExpiresAt)
	assert.Equal(t, 7*24*time.Hour-15*time.Minute, ttl)
}

func TestAuther_SessionFromTokenRejectsGarbage(t *testing.T) {
	auther, _, _ := newTestAuthenticator(t, newTestConfig())

	_, err := auther.SessionFromToken("garbage")
	assert.ErrorIs(t, err, auth.ErrTokenInvalid)
}
