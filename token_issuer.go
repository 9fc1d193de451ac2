package auth

import (
	"context"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// DefaultAccessTokenTTL is the access token lifetime when none is configured
const DefaultAccessTokenTTL = time.Hour

// DefaultRefreshTokenTTL is the refresh token lifetime when none is configured
const DefaultRefreshTokenTTL = 14 * 24 * time.Hour

// RefreshTokenStore persists the single live refresh token of an identity
type RefreshTokenStore interface {
	SetRefreshToken(ctx context.Context, id uuid.UUID, token string) error
}

// TokenIssuer mints access/refresh pairs and records the refresh token
type TokenIssuer struct {
	tokens     TokenService
	store      RefreshTokenStore
	accessTTL  time.Duration
	refreshTTL time.Duration
	logger     Logger
}

// NewTokenIssuer returns an issuer. Non positive TTLs use the defaults.
func NewTokenIssuer(tokens TokenService, store RefreshTokenStore, accessTTL, refreshTTL time.Duration) *TokenIssuer {
	if accessTTL <= 0 {
		accessTTL = DefaultAccessTokenTTL
	}
	if refreshTTL <= 0 {
		refreshTTL = DefaultRefreshTokenTTL
	}
	return &TokenIssuer{
		tokens:     tokens,
		store:      store,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		logger:     defLogger{},
	}
}

// WithLogger sets the logger
func (i *TokenIssuer) WithLogger(logger Logger) *TokenIssuer {
	i.logger = normalizeLogger(logger)
	return i
}

// AccessTokenTTL is the configured access token lifetime
func (i *TokenIssuer) AccessTokenTTL() time.Duration {
	return i.accessTTL
}

// RefreshTokenTTL is the configured refresh token lifetime
func (i *TokenIssuer) RefreshTokenTTL() time.Duration {
	return i.refreshTTL
}

// IssueSession signs an access and a refresh token for identity and stores
// the refresh token, replacing whatever the identity had before.
func (i *TokenIssuer) IssueSession(ctx context.Context, identity Identity) (*TokenPair, error) {
	if identity == nil {
		return nil, ErrIdentityNotFound
	}

	id, err := uuid.Parse(identity.ID())
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "identity carries an invalid id")
	}

	claims := ClaimsFromIdentity(identity)

	access, accessExp, err := i.tokens.Sign(claims, i.accessTTL)
	if err != nil {
		return nil, err
	}

	refresh, refreshExp, err := i.tokens.Sign(claims, i.refreshTTL)
	if err != nil {
		return nil, err
	}

	if err := i.store.SetRefreshToken(ctx, id, refresh); err != nil {
		i.logger.Error("failed to persist refresh token", "user_id", id.String(), "error", err)
		return nil, err
	}

	return &TokenPair{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// IssueAccessToken signs a standalone access token for claims
func (i *TokenIssuer) IssueAccessToken(claims Claims) (*AccessToken, error) {
	token, exp, err := i.tokens.Sign(claims, i.accessTTL)
	if err != nil {
		return nil, err
	}
	return &AccessToken{Token: token, ExpiresAt: exp}, nil
}
