package auth

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the identity record. PasswordHash and RefreshToken never leave
// the server.
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`
	ID            uuid.UUID  `bun:"id,pk,type:uuid" json:"id,omitempty"`
	Email         string     `bun:"email,notnull,unique" json:"email,omitempty"`
	PasswordHash  string     `bun:"password_hash,notnull" json:"-"`
	Name          string     `bun:"name,notnull" json:"name,omitempty"`
	Birth         string     `bun:"birth" json:"birth,omitempty"`
	Phone         string     `bun:"phone" json:"phone,omitempty"`
	DeviceToken   string     `bun:"device_token" json:"-"`
	RefreshToken  string     `bun:"refresh_token" json:"-"`
	CreatedAt     *time.Time `bun:"created_at,nullzero" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero" json:"updated_at,omitempty"`
}

// Profile is the public view of a User
type Profile struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Birth string `json:"birth"`
	Phone string `json:"phone"`
}

// ToProfile strips credential fields
func (u *User) ToProfile() Profile {
	if u == nil {
		return Profile{}
	}
	return Profile{
		Name:  u.Name,
		Email: u.Email,
		Birth: u.Birth,
		Phone: u.Phone,
	}
}

// ProfileUpdate holds mutable profile attributes. Nil fields are left
// untouched.
type ProfileUpdate struct {
	Name        *string
	Birth       *string
	Phone       *string
	DeviceToken *string
}

// Empty reports whether the update changes nothing
func (p ProfileUpdate) Empty() bool {
	return p.Name == nil && p.Birth == nil && p.Phone == nil && p.DeviceToken == nil
}

// TokenPair is what a successful sign in hands out
type TokenPair struct {
	AccessToken      string    `json:"jwt"`
	AccessExpiresAt  time.Time `json:"-"`
	RefreshToken     string    `json:"refreshToken"`
	RefreshExpiresAt time.Time `json:"-"`
}

// AccessToken is a freshly minted access token
type AccessToken struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"-"`
}

// SigninResult bundles the issued tokens with the identity they belong to
type SigninResult struct {
	Tokens *TokenPair
	User   *User
}

func prepareUserDefaults(record *User, now time.Time) {
	if record == nil {
		return
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}

	if record.CreatedAt == nil {
		record.CreatedAt = &now
	}

	if record.UpdatedAt == nil {
		record.UpdatedAt = &now
	}
}
