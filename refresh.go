package auth

import (
	"context"
	"crypto/subtle"

	"github.com/google/uuid"
)

// RefreshTokenLookup resolves the refresh token currently stored for an
// identity
type RefreshTokenLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
}

// RefreshCoordinator exchanges a refresh token for a new access token. The
// refresh token itself is neither rotated nor persisted again; it stays
// usable until it expires.
type RefreshCoordinator struct {
	tokens        TokenService
	issuer        *TokenIssuer
	lookup        RefreshTokenLookup
	requireStored bool
	logger        Logger
}

// NewRefreshCoordinator returns a coordinator. When requireStored is true
// the presented token must equal the one stored for the identity, which
// invalidates refresh tokens from earlier logins.
func NewRefreshCoordinator(tokens TokenService, issuer *TokenIssuer, lookup RefreshTokenLookup, requireStored bool) *RefreshCoordinator {
	return &RefreshCoordinator{
		tokens:        tokens,
		issuer:        issuer,
		lookup:        lookup,
		requireStored: requireStored,
		logger:        defLogger{},
	}
}

// WithLogger sets the logger
func (r *RefreshCoordinator) WithLogger(logger Logger) *RefreshCoordinator {
	r.logger = normalizeLogger(logger)
	return r
}

// Rotate validates refreshToken and mints a fresh access token bound to the
// same claims. The verified refresh token claims are returned alongside it.
func (r *RefreshCoordinator) Rotate(ctx context.Context, refreshToken string) (*AccessToken, AuthClaims, error) {
	if refreshToken == "" {
		return nil, nil, ErrRefreshTokenMissing
	}

	claims, err := r.tokens.Validate(refreshToken)
	if err != nil {
		return nil, nil, err
	}

	if r.requireStored {
		if err := r.matchStored(ctx, claims, refreshToken); err != nil {
			return nil, nil, err
		}
	}

	token, err := r.issuer.IssueAccessToken(Claims{
		UserID: claims.UserID(),
		Email:  claims.Email(),
	})
	if err != nil {
		return nil, nil, err
	}

	return token, claims, nil
}

func (r *RefreshCoordinator) matchStored(ctx context.Context, claims AuthClaims, presented string) error {
	id, err := uuid.Parse(claims.UserID())
	if err != nil {
		return ErrTokenInvalid
	}

	user, err := r.lookup.FindByID(ctx, id)
	if err != nil {
		if IsIdentityNotFound(err) {
			return ErrTokenInvalid
		}
		return err
	}

	if subtle.ConstantTimeCompare([]byte(user.RefreshToken), []byte(presented)) != 1 {
		r.logger.Info("refresh token superseded by a newer login", "user_id", id.String())
		return ErrTokenInvalid
	}

	return nil
}
