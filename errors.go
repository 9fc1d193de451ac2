package auth

import (
	"strings"

	"github.com/goliatone/go-errors"
)

// ErrValidation is the base error for malformed or missing request fields
var ErrValidation = errors.New("required fields are missing or invalid", errors.CategoryValidation).
	WithCode(errors.CodeBadRequest).
	WithTextCode("VALIDATION_ERROR")

// ErrDuplicateEmail is returned when the email is already registered
var ErrDuplicateEmail = errors.New("email is already registered", errors.CategoryConflict).
	WithCode(errors.CodeBadRequest).
	WithTextCode("DUPLICATE_CREDENTIAL")

// ErrIdentityNotFound is the error we return for non found identities
var ErrIdentityNotFound = errors.New("identity not found", errors.CategoryNotFound).
	WithCode(errors.CodeBadRequest).
	WithTextCode("IDENTITY_NOT_FOUND")

// ErrMismatchedHashAndPassword is returned for unknown emails and wrong
// passwords alike so sign in does not leak which one failed
var ErrMismatchedHashAndPassword = errors.New("invalid email or password", errors.CategoryAuth).
	WithCode(errors.CodeBadRequest).
	WithTextCode("AUTHENTICATION_FAILURE")

// ErrCurrentPasswordMismatch is returned when a password change presents
// the wrong current password
var ErrCurrentPasswordMismatch = errors.New("current password does not match", errors.CategoryBadInput).
	WithCode(errors.CodeBadRequest).
	WithTextCode("PASSWORD_MISMATCH")

// ErrPasswordTooShort new passwords need at least MinPasswordLength chars
var ErrPasswordTooShort = errors.New("password must be at least 6 characters long", errors.CategoryBadInput).
	WithCode(errors.CodeBadRequest).
	WithTextCode("PASSWORD_TOO_SHORT")

// ErrNoEmptyString empty passwords are never hashed
var ErrNoEmptyString = errors.New("password must not be empty", errors.CategoryBadInput).
	WithCode(errors.CodeBadRequest).
	WithTextCode("EMPTY_PASSWORD")

// ErrTokenMissing the access token header was not sent
var ErrTokenMissing = errors.New("jwt header is missing", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized).
	WithTextCode("TOKEN_MISSING")

// ErrRefreshTokenMissing the refresh token header was not sent
var ErrRefreshTokenMissing = errors.New("refreshToken header is missing", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized).
	WithTextCode("REFRESH_TOKEN_MISSING")

// ErrTokenInvalid covers malformed tokens and bad signatures
var ErrTokenInvalid = errors.New("invalid token", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized).
	WithTextCode("TOKEN_INVALID")

// ErrTokenExpired the token signature is valid but its expiry has passed
var ErrTokenExpired = errors.New("token expired, request a new token", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized).
	WithTextCode("TOKEN_EXPIRED")

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTokenExpired) {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for invalid or malformed tokens
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTokenInvalid) {
		return true
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "signature is invalid")
}

// IsDuplicateEmailError reports a registration conflict
func IsDuplicateEmailError(err error) bool {
	return err != nil && errors.Is(err, ErrDuplicateEmail)
}

// IsIdentityNotFound reports a missing identity record
func IsIdentityNotFound(err error) bool {
	return err != nil && errors.Is(err, ErrIdentityNotFound)
}
