package auth

import (
	"context"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"

	"github.com/goliatone/go-keepin-auth/middleware/jwtware"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// RouteAuthenticator guards routes with the access token header
type RouteAuthenticator struct {
	auth         Authenticator
	cfg          Config
	Logger       Logger
	ErrorHandler router.ErrorHandler
}

func NewHTTPAuthenticator(auther Authenticator, cfg Config) *RouteAuthenticator {
	a := &RouteAuthenticator{
		auth:   auther,
		cfg:    cfg,
		Logger: defLogger{},
	}
	a.ErrorHandler = a.defaultAuthErrHandler
	return a
}

// WithLogger sets the logger
func (a *RouteAuthenticator) WithLogger(logger Logger) *RouteAuthenticator {
	a.Logger = normalizeLogger(logger)
	return a
}

// ContextKey is the router locals key holding verified claims
func (a *RouteAuthenticator) ContextKey() string {
	if key := a.cfg.GetContextKey(); key != "" {
		return key
	}
	return DefaultContextKey
}

// ProtectedRoute returns a middleware that admits requests with a valid
// access token. Verification is purely cryptographic.
func (a *RouteAuthenticator) ProtectedRoute() router.MiddlewareFunc {
	header := a.cfg.GetAccessTokenHeader()
	if header == "" {
		header = "jwt"
	}

	return jwtware.New(jwtware.Config{
		TokenValidator:  tokenValidatorAdapter{auth: a.auth},
		TokenLookup:     "header:" + header,
		ContextKey:      a.ContextKey(),
		ErrorHandler:    a.ErrorHandler,
		ContextEnricher: enrichClaimsContext,
	})
}

func (a *RouteAuthenticator) defaultAuthErrHandler(ctx router.Context, err error) error {
	var richErr *errors.Error

	switch {
	case errors.Is(err, jwtware.ErrJWTMissing):
		richErr = ErrTokenMissing
	case IsTokenExpiredError(err):
		richErr = ErrTokenExpired
	case errors.As(err, &richErr) && richErr.Category == errors.CategoryAuth:
	default:
		richErr = ErrTokenInvalid
	}

	a.Logger.Debug(
		"route authentication rejected",
		"error", richErr.Message,
		"text_code", richErr.TextCode,
		"path", ctx.OriginalURL(),
	)

	return renderError(ctx, richErr)
}

type tokenValidatorAdapter struct {
	auth Authenticator
}

func (v tokenValidatorAdapter) Validate(raw string) (jwtware.AuthClaims, error) {
	claims, err := v.auth.SessionFromToken(raw)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

func enrichClaimsContext(ctx context.Context, claims jwtware.AuthClaims) context.Context {
	if ac, ok := claims.(AuthClaims); ok {
		return WithClaimsContext(ctx, ac)
	}
	return ctx
}

// ErrorStatus maps err to the HTTP status it is rendered with
func ErrorStatus(err error) int {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		return http.StatusInternalServerError
	}

	if richErr.Code >= 400 && richErr.Code < 600 {
		return richErr.Code
	}

	switch richErr.Category {
	case errors.CategoryValidation, errors.CategoryBadInput, errors.CategoryConflict, errors.CategoryNotFound:
		return http.StatusBadRequest
	case errors.CategoryAuth:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func errorResponse(err error) ErrorResponse {
	status := ErrorStatus(err)

	res := ErrorResponse{
		Status:  status,
		Message: err.Error(),
	}

	// internal failures pass the underlying message through
	var richErr *errors.Error
	if errors.As(err, &richErr) {
		res.Code = richErr.TextCode
		if status < http.StatusInternalServerError && richErr.Message != "" {
			res.Message = richErr.Message
		}
	}

	return res
}

func renderError(ctx router.Context, err error) error {
	res := errorResponse(err)
	return ctx.JSON(res.Status, res)
}

func logFailure(logger Logger, path string, err error) {
	if ErrorStatus(err) < http.StatusInternalServerError {
		return
	}

	var richErr *errors.Error
	details := any(nil)
	if errors.As(err, &richErr) {
		details = richErr.Metadata
	}

	logger.Error(
		"request failed",
		"path", path,
		"error", err,
		"details", print.MaybePrettyJSON(details),
	)
}

// NewErrorHandler renders handler errors as {status, message, code} and
// logs server side failures.
func NewErrorHandler(logger Logger) router.ErrorHandler {
	logger = normalizeLogger(logger)
	return func(ctx router.Context, err error) error {
		logFailure(logger, ctx.OriginalURL(), err)
		return renderError(ctx, err)
	}
}

// DefaultErrorHandler renders any error escaping the router, panics
// included, as {status, message}. Use it as the fiber app ErrorHandler.
func DefaultErrorHandler(logger Logger) fiber.ErrorHandler {
	logger = normalizeLogger(logger)
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(ErrorResponse{Status: fe.Code, Message: fe.Message})
		}

		logFailure(logger, c.OriginalURL(), err)

		res := errorResponse(err)
		return c.Status(res.Status).JSON(res)
	}
}
