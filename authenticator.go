package auth

import (
	"context"
	"time"

	"github.com/goliatone/go-errors"
)

// Auther orchestrates signup, signin and token refresh on top of the
// credential store, the hasher and the token services.
type Auther struct {
	repo     RepositoryManager
	hasher   PasswordHasher
	tokens   TokenService
	issuer   *TokenIssuer
	refresh  *RefreshCoordinator
	register *RegisterUserHandler
	logger   Logger
	activity ActivitySink
}

var _ Authenticator = (*Auther)(nil)

// NewAuthenticator returns a new Authenticator
func NewAuthenticator(repo RepositoryManager, hasher PasswordHasher, opts Config) *Auther {
	if hasher == nil {
		hasher = NewBcryptHasher(0)
	}

	tokens := NewTokenService([]byte(opts.GetSigningKey()), opts.GetIssuer())
	issuer := NewTokenIssuer(tokens, repo.Users(), opts.GetAccessTokenTTL(), opts.GetRefreshTokenTTL())
	refresh := NewRefreshCoordinator(tokens, issuer, repo.Users(), opts.GetRequireStoredRefreshToken())

	return &Auther{
		repo:     repo,
		hasher:   hasher,
		tokens:   tokens,
		issuer:   issuer,
		refresh:  refresh,
		register: NewRegisterUserHandler(repo, hasher),
		logger:   defLogger{},
		activity: noopActivitySink{},
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	s.logger = normalizeLogger(logger)
	s.issuer.WithLogger(s.logger)
	s.refresh.WithLogger(s.logger)
	s.register.WithLogger(s.logger)
	if ts, ok := s.tokens.(*TokenServiceImpl); ok {
		WithTokenLogger(s.logger)(ts)
	}
	return s
}

// WithActivitySink configures an ActivitySink for emitting auth events.
func (s *Auther) WithActivitySink(sink ActivitySink) *Auther {
	s.activity = normalizeActivitySink(sink)
	s.register.WithActivitySink(s.activity)
	return s
}

// WithRegisterHandler replaces the handler used by Signup.
func (s *Auther) WithRegisterHandler(h *RegisterUserHandler) *Auther {
	if h != nil {
		s.register = h
	}
	return s
}

// WithTokenService swaps the token codec, rebuilding the issuer and the
// refresh coordinator around it.
func (s *Auther) WithTokenService(tokens TokenService, requireStored bool) *Auther {
	if tokens == nil {
		return s
	}
	s.tokens = tokens
	s.issuer = NewTokenIssuer(tokens, s.repo.Users(), s.issuer.AccessTokenTTL(), s.issuer.RefreshTokenTTL()).
		WithLogger(s.logger)
	s.refresh = NewRefreshCoordinator(tokens, s.issuer, s.repo.Users(), requireStored).
		WithLogger(s.logger)
	return s
}

// TokenService returns the TokenService instance used by this Authenticator
func (s *Auther) TokenService() TokenService {
	return s.tokens
}

// Issuer returns the TokenIssuer used on signin
func (s *Auther) Issuer() *TokenIssuer {
	return s.issuer
}

// Signup registers a new identity. Tokens are not issued.
func (s *Auther) Signup(ctx context.Context, msg RegisterUserMessage) (*User, error) {
	return s.register.Register(ctx, msg)
}

// Signin verifies the credentials and issues a new token pair. Unknown email
// and wrong password produce the same error.
func (s *Auther) Signin(ctx context.Context, email, password string) (*SigninResult, error) {
	user, err := s.verify(ctx, email, password)
	if err != nil {
		s.logger.Warn("signin failed", "error", err)
		emitActivity(ctx, s.activity, s.logger, ActivityEventLoginFailure, "", map[string]any{
			"error": err.Error(),
		})
		return nil, err
	}

	pair, err := s.issuer.IssueSession(ctx, NewIdentityFromUser(user))
	if err != nil {
		emitActivity(ctx, s.activity, s.logger, ActivityEventLoginFailure, user.ID.String(), map[string]any{
			"error": err.Error(),
		})
		return nil, err
	}

	user.RefreshToken = pair.RefreshToken

	emitActivity(ctx, s.activity, s.logger, ActivityEventLoginSuccess, user.ID.String(), nil)

	return &SigninResult{Tokens: pair, User: user}, nil
}

func (s *Auther) verify(ctx context.Context, email, password string) (*User, error) {
	if email == "" || password == "" {
		return nil, ErrMismatchedHashAndPassword
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	user, err := s.repo.Users().FindByEmail(ctx, email)
	if err != nil {
		if IsIdentityNotFound(err) {
			return nil, ErrMismatchedHashAndPassword
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to retrieve user during signin")
	}

	if err := s.hasher.ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		if errors.Is(err, ErrMismatchedHashAndPassword) {
			return nil, ErrMismatchedHashAndPassword
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to verify password")
	}

	return user, nil
}

// Refresh exchanges a refresh token for a new access token
func (s *Auther) Refresh(ctx context.Context, refreshToken string) (*AccessToken, error) {
	token, claims, err := s.refresh.Rotate(ctx, refreshToken)
	if err != nil {
		emitActivity(ctx, s.activity, s.logger, ActivityEventTokenRefreshFailure, "", map[string]any{
			"error": err.Error(),
		})
		return nil, err
	}

	emitActivity(ctx, s.activity, s.logger, ActivityEventTokenRefreshSuccess, claims.UserID(), nil)

	return token, nil
}

// SessionFromToken validates an access token and returns its claims
func (s *Auther) SessionFromToken(raw string) (AuthClaims, error) {
	claims, err := s.tokens.Validate(raw)
	if err != nil {
		s.logger.Debug("SessionFromToken validation failed", "error", err)
		return nil, err
	}
	return claims, nil
}

// Validate implements the token validator used by the route middleware
func (s *Auther) Validate(raw string) (AuthClaims, error) {
	return s.SessionFromToken(raw)
}
