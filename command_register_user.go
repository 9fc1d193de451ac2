package auth

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// MinPasswordLength is the shortest password accepted on signup and change
const MinPasswordLength = 6

// MaxPasswordLength bcrypt ignores anything past 72 bytes
const MaxPasswordLength = 72

type RegisterUserMessage struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	Name        string `json:"name"`
	Birth       string `json:"birth"`
	Phone       string `json:"phone"`
	DeviceToken string `json:"token"`
}

func (e RegisterUserMessage) Type() string { return "user.register" }

// Validate will run validation rules
func (e RegisterUserMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Email, validation.Required, validation.Length(3, 254), is.Email),
		// same bounds as a password change, 72 is the bcrypt input limit
		validation.Field(&e.Password, validation.Required, validation.Length(MinPasswordLength, MaxPasswordLength)),
		validation.Field(&e.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&e.Birth, validation.Required, validation.Length(1, 50)),
		validation.Field(&e.Phone, validation.Required),
		validation.Field(&e.DeviceToken, validation.Required),
	)
}

// RegisterUserHandler creates identity records
type RegisterUserHandler struct {
	repo        RepositoryManager
	hasher      PasswordHasher
	activity    ActivitySink
	logger      Logger
	phoneRegion string
	strictPhone bool
	newID       func(email string) (uuid.UUID, error)
}

// NewRegisterUserHandler creates a handler with sane defaults.
func NewRegisterUserHandler(repo RepositoryManager, hasher PasswordHasher) *RegisterUserHandler {
	if hasher == nil {
		hasher = NewBcryptHasher(0)
	}
	return &RegisterUserHandler{
		repo:        repo,
		hasher:      hasher,
		activity:    noopActivitySink{},
		logger:      defLogger{},
		phoneRegion: DefaultPhoneRegion,
	}
}

// WithActivitySink sets the sink used to emit signup events.
func (h *RegisterUserHandler) WithActivitySink(sink ActivitySink) *RegisterUserHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *RegisterUserHandler) WithLogger(logger Logger) *RegisterUserHandler {
	h.logger = normalizeLogger(logger)
	return h
}

// WithPhoneRegion sets the region used to parse local phone numbers.
func (h *RegisterUserHandler) WithPhoneRegion(region string) *RegisterUserHandler {
	if region != "" {
		h.phoneRegion = region
	}
	return h
}

// WithStrictPhone rejects phone numbers that are not valid for the
// configured region. By default they are stored as given.
func (h *RegisterUserHandler) WithStrictPhone(strict bool) *RegisterUserHandler {
	h.strictPhone = strict
	return h
}

// WithHashid derives user ids from the email instead of random UUIDs.
func (h *RegisterUserHandler) WithHashid(enabled bool) *RegisterUserHandler {
	if enabled {
		h.newID = func(email string) (uuid.UUID, error) {
			return hashid.NewUUID(email)
		}
	} else {
		h.newID = nil
	}
	return h
}

// WithIDGenerator derives user ids from the email with fn.
func (h *RegisterUserHandler) WithIDGenerator(fn func(email string) (uuid.UUID, error)) *RegisterUserHandler {
	h.newID = fn
	return h
}

func (h *RegisterUserHandler) Execute(ctx context.Context, event RegisterUserMessage) error {
	_, err := h.Register(ctx, event)
	return err
}

// Register validates event, hashes the password and stores the new user.
func (h *RegisterUserHandler) Register(ctx context.Context, event RegisterUserMessage) (*User, error) {
	select {
	case <-ctx.Done():
		return nil, goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during user registration",
		)
	default:
	}

	user, err := h.register(ctx, event)
	if err != nil {
		emitActivity(ctx, h.activity, h.logger, ActivityEventSignupFailure, "", map[string]any{
			"error": err.Error(),
		})
		return nil, err
	}

	emitActivity(ctx, h.activity, h.logger, ActivityEventSignupSuccess, user.ID.String(), nil)
	return user, nil
}

func (h *RegisterUserHandler) register(ctx context.Context, event RegisterUserMessage) (*User, error) {
	if err := event.Validate(); err != nil {
		return nil, validationError(err)
	}

	phone, err := resolvePhone(event.Phone, h.phoneRegion, h.strictPhone)
	if err != nil {
		return nil, err
	}

	hash, err := h.hasher.HashPassword(event.Password)
	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}

	user := &User{
		Email:        event.Email,
		PasswordHash: hash,
		Name:         event.Name,
		Birth:        event.Birth,
		Phone:        phone,
		DeviceToken:  event.DeviceToken,
	}

	if h.newID != nil {
		id, err := h.newID(event.Email)
		if err != nil {
			h.logger.Warn("deterministic user id failed, using random id", "error", err)
		} else {
			user.ID = id
		}
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		created, err := h.repo.Users().CreateTx(ctx, tx, user)
		if err != nil {
			return err
		}
		user = created
		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "user registration transaction failed")
	}

	h.logger.Info("user registered", "user_id", user.ID.String())
	return user, nil
}

func validationError(err error) error {
	return goerrors.Wrap(err, goerrors.CategoryValidation, "required fields are missing or invalid").
		WithCode(goerrors.CodeBadRequest).
		WithTextCode("VALIDATION_ERROR")
}
