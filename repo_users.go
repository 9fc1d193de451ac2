package auth

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Users is the credential store. It owns identity records and enforces email
// uniqueness at the storage layer.
type Users interface {
	repository.Repository[*User]

	Create(ctx context.Context, record *User, criteria ...repository.InsertCriteria) (*User, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *User, criteria ...repository.InsertCriteria) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
	FindByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*User, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, update ProfileUpdate) error
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, passwordHash string) error
	UpdatePasswordHashTx(ctx context.Context, tx bun.IDB, id uuid.UUID, passwordHash string) error
	SetRefreshToken(ctx context.Context, id uuid.UUID, token string) error
}

type users struct {
	repository.Repository[*User]
	db  *bun.DB
	now func() time.Time
}

var (
	_ Users                        = (*users)(nil)
	_ repository.Repository[*User] = (*users)(nil)
	_ RefreshTokenStore            = (*users)(nil)
	_ RefreshTokenLookup           = (*users)(nil)
)

// UsersOption configures the users repository
type UsersOption func(*users)

// WithUsersClock overrides the clock used for timestamps
func WithUsersClock(now func() time.Time) UsersOption {
	return func(u *users) {
		if now != nil {
			u.now = now
		}
	}
}

// NewUsersRepository returns a bun backed Users store
func NewUsersRepository(db *bun.DB, opts ...UsersOption) Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	repoUsers := &users{
		Repository: repo,
		db:         db,
		now:        time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(repoUsers)
		}
	}
	return repoUsers
}

func (a *users) Create(ctx context.Context, record *User, criteria ...repository.InsertCriteria) (*User, error) {
	return a.CreateTx(ctx, a.db, record, criteria...)
}

// CreateTx inserts record. The duplicate check and the insert are a single
// statement so two concurrent registrations can not both succeed.
func (a *users) CreateTx(ctx context.Context, tx bun.IDB, record *User, criteria ...repository.InsertCriteria) (*User, error) {
	if record == nil {
		return nil, errors.New("user record must not be nil", errors.CategoryInternal)
	}

	prepareUserDefaults(record, a.now())

	q := tx.NewInsert().
		Model(record).
		On("CONFLICT (email) DO NOTHING").
		Returning("NULL")

	for _, c := range criteria {
		q.Apply(c)
	}

	res, err := q.Exec(ctx)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to insert user")
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to read insert result")
	}

	if affected == 0 {
		return nil, ErrDuplicateEmail
	}

	return record, nil
}

func (a *users) FindByEmail(ctx context.Context, email string) (*User, error) {
	return a.FindByEmailTx(ctx, a.db, email)
}

func (a *users) FindByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error) {
	return mapNotFound(a.Repository.GetByIdentifierTx(ctx, tx, email))
}

func (a *users) FindByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return a.FindByIDTx(ctx, a.db, id)
}

func (a *users) FindByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*User, error) {
	return mapNotFound(a.Repository.GetByIDTx(ctx, tx, id.String()))
}

func mapNotFound(record *User, err error) (*User, error) {
	if err == nil {
		return record, nil
	}
	if repository.IsRecordNotFound(err) || errors.Is(err, sql.ErrNoRows) {
		return nil, ErrIdentityNotFound
	}
	return nil, errors.Wrap(err, errors.CategoryInternal, "failed to load user")
}

func (a *users) UpdateProfile(ctx context.Context, id uuid.UUID, update ProfileUpdate) error {
	q := a.db.NewUpdate().
		Model((*User)(nil)).
		Set("updated_at = ?", a.now()).
		Where("id = ?", id)

	if update.Name != nil {
		q = q.Set("name = ?", *update.Name)
	}
	if update.Birth != nil {
		q = q.Set("birth = ?", *update.Birth)
	}
	if update.Phone != nil {
		q = q.Set("phone = ?", *update.Phone)
	}
	if update.DeviceToken != nil {
		q = q.Set("device_token = ?", *update.DeviceToken)
	}

	return expectOneRow(q.Exec(ctx))
}

func (a *users) UpdatePasswordHash(ctx context.Context, id uuid.UUID, passwordHash string) error {
	return a.UpdatePasswordHashTx(ctx, a.db, id, passwordHash)
}

func (a *users) UpdatePasswordHashTx(ctx context.Context, tx bun.IDB, id uuid.UUID, passwordHash string) error {
	res, err := tx.NewUpdate().
		Model((*User)(nil)).
		Set("password_hash = ?", passwordHash).
		Set("updated_at = ?", a.now()).
		Where("id = ?", id).
		Exec(ctx)
	return expectOneRow(res, err)
}

// SetRefreshToken overwrites the stored refresh token. Last write wins.
func (a *users) SetRefreshToken(ctx context.Context, id uuid.UUID, token string) error {
	res, err := a.db.NewUpdate().
		Model((*User)(nil)).
		Set("refresh_token = ?", token).
		Set("updated_at = ?", a.now()).
		Where("id = ?", id).
		Exec(ctx)
	return expectOneRow(res, err)
}

func expectOneRow(res sql.Result, err error) error {
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to update user")
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to read update result")
	}

	if affected == 0 {
		return ErrIdentityNotFound
	}

	return nil
}

func isUniqueViolation(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key value")
}
