package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type ChangePasswordMessage struct {
	UserID          uuid.UUID `json:"-"`
	CurrentPassword string    `json:"currentPassword"`
	NewPassword     string    `json:"newPassword"`
}

func (e ChangePasswordMessage) Type() string { return "user.password.change" }

// ChangePasswordHandler swaps the password hash of an authenticated user
// after checking the current password.
type ChangePasswordHandler struct {
	repo     RepositoryManager
	hasher   PasswordHasher
	activity ActivitySink
	logger   Logger
}

// NewChangePasswordHandler creates a handler with sane defaults.
func NewChangePasswordHandler(repo RepositoryManager, hasher PasswordHasher) *ChangePasswordHandler {
	if hasher == nil {
		hasher = NewBcryptHasher(0)
	}
	return &ChangePasswordHandler{
		repo:     repo,
		hasher:   hasher,
		activity: noopActivitySink{},
		logger:   defLogger{},
	}
}

// WithActivitySink sets the sink used to emit password events.
func (h *ChangePasswordHandler) WithActivitySink(sink ActivitySink) *ChangePasswordHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *ChangePasswordHandler) WithLogger(logger Logger) *ChangePasswordHandler {
	h.logger = normalizeLogger(logger)
	return h
}

func (h *ChangePasswordHandler) Execute(ctx context.Context, event ChangePasswordMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password change",
		)
	default:
	}

	if err := h.execute(ctx, event); err != nil {
		emitActivity(ctx, h.activity, h.logger, ActivityEventPasswordChangeFailure, event.UserID.String(), map[string]any{
			"error": err.Error(),
		})
		return err
	}

	emitActivity(ctx, h.activity, h.logger, ActivityEventPasswordChanged, event.UserID.String(), nil)
	return nil
}

func (h *ChangePasswordHandler) execute(ctx context.Context, event ChangePasswordMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	return h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		user, err := h.repo.Users().FindByIDTx(ctx, tx, event.UserID)
		if err != nil {
			return err
		}

		if err := h.hasher.ComparePasswordAndHash(event.CurrentPassword, user.PasswordHash); err != nil {
			if goerrors.Is(err, ErrMismatchedHashAndPassword) {
				return ErrCurrentPasswordMismatch
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to verify current password")
		}

		if len(event.NewPassword) < MinPasswordLength {
			return ErrPasswordTooShort
		}

		if len(event.NewPassword) > MaxPasswordLength {
			return validationError(goerrors.New("password is too long", goerrors.CategoryValidation))
		}

		hash, err := h.hasher.HashPassword(event.NewPassword)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
		}

		return h.repo.Users().UpdatePasswordHashTx(ctx, tx, event.UserID, hash)
	})
}
