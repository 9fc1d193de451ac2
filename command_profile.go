package auth

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

type UpdateProfileMessage struct {
	UserID      uuid.UUID `json:"-"`
	Name        *string   `json:"name"`
	Birth       *string   `json:"birth"`
	Phone       *string   `json:"phone"`
	DeviceToken *string   `json:"token"`
}

func (e UpdateProfileMessage) Type() string { return "user.profile.update" }

// Validate will run validation rules. Phone numbers are only checked
// against region when strictPhone is set.
func (e UpdateProfileMessage) Validate(region string, strictPhone bool) error {
	phoneRules := []validation.Rule{validation.NilOrNotEmpty}
	if strictPhone {
		phoneRules = append(phoneRules, validation.By(PhoneRule(region)))
	}

	return validation.ValidateStruct(&e,
		validation.Field(&e.Name, validation.NilOrNotEmpty, validation.Length(1, 200)),
		validation.Field(&e.Birth, validation.NilOrNotEmpty, validation.Length(1, 50)),
		validation.Field(&e.Phone, phoneRules...),
		validation.Field(&e.DeviceToken, validation.NilOrNotEmpty),
	)
}

// UpdateProfileHandler edits the mutable profile attributes of a user
type UpdateProfileHandler struct {
	repo        RepositoryManager
	activity    ActivitySink
	logger      Logger
	phoneRegion string
	strictPhone bool
}

// NewUpdateProfileHandler creates a handler with sane defaults.
func NewUpdateProfileHandler(repo RepositoryManager) *UpdateProfileHandler {
	return &UpdateProfileHandler{
		repo:        repo,
		activity:    noopActivitySink{},
		logger:      defLogger{},
		phoneRegion: DefaultPhoneRegion,
	}
}

// WithActivitySink sets the sink used to emit profile events.
func (h *UpdateProfileHandler) WithActivitySink(sink ActivitySink) *UpdateProfileHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *UpdateProfileHandler) WithLogger(logger Logger) *UpdateProfileHandler {
	h.logger = normalizeLogger(logger)
	return h
}

// WithPhoneRegion sets the region used to parse local phone numbers.
func (h *UpdateProfileHandler) WithPhoneRegion(region string) *UpdateProfileHandler {
	if region != "" {
		h.phoneRegion = region
	}
	return h
}

// WithStrictPhone rejects phone numbers that are not valid for the
// configured region.
func (h *UpdateProfileHandler) WithStrictPhone(strict bool) *UpdateProfileHandler {
	h.strictPhone = strict
	return h
}

func (h *UpdateProfileHandler) Execute(ctx context.Context, event UpdateProfileMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during profile update",
		)
	default:
	}

	if err := event.Validate(h.phoneRegion, h.strictPhone); err != nil {
		return validationError(err)
	}

	update := ProfileUpdate{
		Name:        event.Name,
		Birth:       event.Birth,
		DeviceToken: event.DeviceToken,
	}

	if event.Phone != nil {
		phone, err := resolvePhone(*event.Phone, h.phoneRegion, h.strictPhone)
		if err != nil {
			return err
		}
		update.Phone = &phone
	}

	if update.Empty() {
		return validationError(goerrors.New("nothing to update", goerrors.CategoryValidation))
	}

	if err := h.repo.Users().UpdateProfile(ctx, event.UserID, update); err != nil {
		return err
	}

	emitActivity(ctx, h.activity, h.logger, ActivityEventProfileUpdated, event.UserID.String(), nil)
	return nil
}
