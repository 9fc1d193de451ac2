package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-keepin-auth"
)

type refreshFixture struct {
	clock   *fakeClock
	tokens  *auth.TokenServiceImpl
	issuer  *auth.TokenIssuer
	repo    auth.RepositoryManager
	user    *auth.User
	session *auth.TokenPair
}

func newRefreshFixture(t *testing.T) *refreshFixture {
	t.Helper()

	clock := newFakeClock(t0)
	repo := newTestRepo(t)
	tokens := newClockedTokenService(clock)
	issuer := auth.NewTokenIssuer(tokens, repo.Users(), time.Hour, 24*time.Hour)

	user := seedUser(t, repo, "a@b.com", "secret1")
	session, err := issuer.IssueSession(context.Background(), auth.NewIdentityFromUser(user))
	require.NoError(t, err)

	return &refreshFixture{
		clock:   clock,
		tokens:  tokens,
		issuer:  issuer,
		repo:    repo,
		user:    user,
		session: session,
	}
}

func (f *refreshFixture) coordinator(requireStored bool) *auth.RefreshCoordinator {
	return auth.NewRefreshCoordinator(f.tokens, f.issuer, f.repo.Users(), requireStored)
}

func TestRefresh_MintsNewAccessToken(t *testing.T) {
	f := newRefreshFixture(t)
	f.clock.Advance(time.Second)

	access, refreshClaims, err := f.coordinator(true).Rotate(context.Background(), f.session.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, f.user.ID.String(), refreshClaims.UserID())

	assert.NotEqual(t, f.session.AccessToken, access.Token)
	assert.True(t, access.ExpiresAt.Equal(t0.Add(time.Second+time.Hour)))

	claims, err := f.tokens.Validate(access.Token)
	require.NoError(t, err)
	assert.Equal(t, f.user.ID.String(), claims.UserID())
	assert.Equal(t, "a@b.com", claims.Email())
}

func TestRefresh_DoesNotRotateRefreshToken(t *testing.T) {
	f := newRefreshFixture(t)
	coordinator := f.coordinator(true)

	_, _, err := coordinator.Rotate(context.Background(), f.session.RefreshToken)
	require.NoError(t, err)
	_, _, err = coordinator.Rotate(context.Background(), f.session.RefreshToken)
	require.NoError(t, err)

	stored, err := f.repo.Users().FindByID(context.Background(), f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, f.session.RefreshToken, stored.RefreshToken)
}

func TestRefresh_Missing(t *testing.T) {
	f := newRefreshFixture(t)

	_, _, err := f.coordinator(true).Rotate(context.Background(), "")
	assert.ErrorIs(t, err, auth.ErrRefreshTokenMissing)
}

func TestRefresh_Expired(t *testing.T) {
	f := newRefreshFixture(t)
	f.clock.Advance(25 * time.Hour)

	_, _, err := f.coordinator(true).Rotate(context.Background(), f.session.RefreshToken)
	assert.ErrorIs(t, err, auth.ErrTokenExpired)
}

func TestRefresh_Garbage(t *testing.T) {
	f := newRefreshFixture(t)

	_, _, err := f.coordinator(true).Rotate(context.Background(), "garbage")
	assert.ErrorIs(t, err, auth.ErrTokenInvalid)
}

func TestRefresh_SupersededTokenRejectedWhenStoredCheckEnabled(t *testing.T) {
	f := newRefreshFixture(t)
	old := f.session.RefreshToken

	_, err := f.issuer.IssueSession(context.Background(), auth.NewIdentityFromUser(f.user))
	require.NoError(t, err)

	_, _, err = f.coordinator(true).Rotate(context.Background(), old)
	assert.ErrorIs(t, err, auth.ErrTokenInvalid)

	// without the check any signed, unexpired refresh token is accepted
	_, _, err = f.coordinator(false).Rotate(context.Background(), old)
	assert.NoError(t, err)
}

func TestRefresh_UnknownIdentity(t *testing.T) {
	f := newRefreshFixture(t)

	orphan, _, err := f.tokens.Sign(auth.Claims{UserID: uuid.NewString(), Email: "x@b.com"}, time.Hour)
	require.NoError(t, err)

	_, _, err = f.coordinator(true).Rotate(context.Background(), orphan)
	assert.ErrorIs(t, err, auth.ErrTokenInvalid)
}
