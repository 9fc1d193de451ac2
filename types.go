package auth

import (
	"context"
	"log/slog"
	"time"
)

// Logger is the logging contract used across the package. Arguments after
// the message are key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Identity holds the attributes of an identity
type Identity interface {
	ID() string
	Email() string
	Name() string
}

// Authenticator holds methods to deal with authentication
type Authenticator interface {
	Signup(ctx context.Context, msg RegisterUserMessage) (*User, error)
	Signin(ctx context.Context, email, password string) (*SigninResult, error)
	Refresh(ctx context.Context, refreshToken string) (*AccessToken, error)
	SessionFromToken(token string) (AuthClaims, error)
}

// Config holds auth options
type Config interface {
	GetSigningKey() string
	GetIssuer() string
	GetAccessTokenTTL() time.Duration
	GetRefreshTokenTTL() time.Duration
	GetAccessTokenHeader() string
	GetRefreshTokenHeader() string
	GetContextKey() string
	GetRequireStoredRefreshToken() bool
}

// PasswordHasher hashes and verifies credentials
type PasswordHasher interface {
	HashPassword(password string) (string, error)
	ComparePasswordAndHash(password, hash string) error
}

// SlogLogger adapts a *slog.Logger to Logger.
type SlogLogger struct {
	l *slog.Logger
}

// NewSlogLogger wraps l. A nil logger falls back to slog.Default.
func NewSlogLogger(l *slog.Logger) *SlogLogger {
	if l == nil {
		l = slog.Default()
	}
	return &SlogLogger{l: l}
}

func (s *SlogLogger) Debug(msg string, args ...any) { s.l.Debug(msg, args...) }
func (s *SlogLogger) Info(msg string, args ...any)  { s.l.Info(msg, args...) }
func (s *SlogLogger) Warn(msg string, args ...any)  { s.l.Warn(msg, args...) }
func (s *SlogLogger) Error(msg string, args ...any) { s.l.Error(msg, args...) }

// With returns a child logger that always includes args.
func (s *SlogLogger) With(args ...any) *SlogLogger {
	return &SlogLogger{l: s.l.With(args...)}
}

type defLogger struct{}

func (defLogger) Debug(msg string, args ...any) { authLog().Debug(msg, args...) }
func (defLogger) Info(msg string, args ...any)  { authLog().Info(msg, args...) }
func (defLogger) Warn(msg string, args ...any)  { authLog().Warn(msg, args...) }
func (defLogger) Error(msg string, args ...any) { authLog().Error(msg, args...) }

func authLog() *slog.Logger {
	return slog.Default().With("component", "auth")
}

func normalizeLogger(l Logger) Logger {
	if l == nil {
		return defLogger{}
	}
	return l
}
