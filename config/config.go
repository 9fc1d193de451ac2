// Package config loads the service configuration from defaults, a YAML
// file, command line flags and KEEPIN_* environment variables, in that
// order of increasing precedence.
package config

import (
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/goliatone/go-errors"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	auth "github.com/goliatone/go-keepin-auth"
)

// MinSigningKeyLength HS256 secrets shorter than the hash output are rejected
const MinSigningKeyLength = 32

type Config struct {
	Debug    bool     `koanf:"debug" env:"KEEPIN_DEBUG" json:"debug"`
	Server   Server   `koanf:"server" json:"server"`
	Database Database `koanf:"database" json:"database"`
	Auth     Auth     `koanf:"auth" json:"auth"`
	Users    Users    `koanf:"users" json:"users"`
	Log      Log      `koanf:"log" json:"log"`
}

type Server struct {
	Addr            string        `koanf:"addr" env:"KEEPIN_SERVER_ADDR" json:"addr"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" env:"KEEPIN_SERVER_SHUTDOWN_TIMEOUT" json:"shutdown_timeout"`
}

type Database struct {
	DSN          string `koanf:"dsn" env:"KEEPIN_DATABASE_DSN" json:"dsn"`
	PingAttempts uint64 `koanf:"ping_attempts" env:"KEEPIN_DATABASE_PING_ATTEMPTS" json:"ping_attempts"`
}

type Auth struct {
	SigningKey                string        `koanf:"signing_key" env:"KEEPIN_SIGNING_KEY" json:"-"`
	Issuer                    string        `koanf:"issuer" env:"KEEPIN_AUTH_ISSUER" json:"issuer"`
	AccessTokenTTL            time.Duration `koanf:"access_token_ttl" env:"KEEPIN_AUTH_ACCESS_TOKEN_TTL" json:"access_token_ttl"`
	RefreshTokenTTL           time.Duration `koanf:"refresh_token_ttl" env:"KEEPIN_AUTH_REFRESH_TOKEN_TTL" json:"refresh_token_ttl"`
	AccessTokenHeader         string        `koanf:"access_token_header" env:"KEEPIN_AUTH_ACCESS_TOKEN_HEADER" json:"access_token_header"`
	RefreshTokenHeader        string        `koanf:"refresh_token_header" env:"KEEPIN_AUTH_REFRESH_TOKEN_HEADER" json:"refresh_token_header"`
	ContextKey                string        `koanf:"context_key" env:"KEEPIN_AUTH_CONTEXT_KEY" json:"context_key"`
	BcryptCost                int           `koanf:"bcrypt_cost" env:"KEEPIN_AUTH_BCRYPT_COST" json:"bcrypt_cost"`
	RequireStoredRefreshToken bool          `koanf:"require_stored_refresh_token" env:"KEEPIN_AUTH_REQUIRE_STORED_REFRESH_TOKEN" json:"require_stored_refresh_token"`
}

type Users struct {
	PhoneRegion      string `koanf:"phone_region" env:"KEEPIN_USERS_PHONE_REGION" json:"phone_region"`
	DeterministicIDs bool   `koanf:"deterministic_ids" env:"KEEPIN_USERS_DETERMINISTIC_IDS" json:"deterministic_ids"`
	StrictPhone      bool   `koanf:"strict_phone" env:"KEEPIN_USERS_STRICT_PHONE" json:"strict_phone"`
}

type Log struct {
	Level  string `koanf:"level" env:"KEEPIN_LOG_LEVEL" json:"level"`
	Format string `koanf:"format" env:"KEEPIN_LOG_FORMAT" json:"format"`
}

var _ auth.Config = (*Config)(nil)

// Defaults returns the configuration used when nothing overrides it
func Defaults() *Config {
	return &Config{
		Server: Server{
			Addr:            ":3000",
			ShutdownTimeout: 10 * time.Second,
		},
		Database: Database{
			DSN:          "file:keepin.db?cache=shared",
			PingAttempts: 5,
		},
		Auth: Auth{
			AccessTokenTTL:            auth.DefaultAccessTokenTTL,
			RefreshTokenTTL:           auth.DefaultRefreshTokenTTL,
			AccessTokenHeader:         "jwt",
			RefreshTokenHeader:        "refreshToken",
			ContextKey:                auth.DefaultContextKey,
			BcryptCost:                10,
			RequireStoredRefreshToken: true,
		},
		Users: Users{
			PhoneRegion: auth.DefaultPhoneRegion,
		},
		Log: Log{
			Level:  "info",
			Format: "text",
		},
	}
}

// BindFlags registers the flags Load understands on fs. Flag names are the
// dotted config keys.
func BindFlags(fs *pflag.FlagSet) {
	d := Defaults()
	fs.String("server.addr", d.Server.Addr, "HTTP listen address")
	fs.String("database.dsn", d.Database.DSN, "sqlite data source name")
	fs.String("auth.issuer", d.Auth.Issuer, "token issuer claim")
	fs.Duration("auth.access_token_ttl", d.Auth.AccessTokenTTL, "access token lifetime")
	fs.Duration("auth.refresh_token_ttl", d.Auth.RefreshTokenTTL, "refresh token lifetime")
	fs.Bool("auth.require_stored_refresh_token", d.Auth.RequireStoredRefreshToken, "reject refresh tokens superseded by a newer signin")
	fs.String("users.phone_region", d.Users.PhoneRegion, "default region for local phone numbers")
	fs.Bool("users.strict_phone", d.Users.StrictPhone, "reject phone numbers that are not valid for the region")
	fs.String("log.level", d.Log.Level, "log level: debug, info, warn, error")
	fs.String("log.format", d.Log.Format, "log format: text or json")
	fs.Bool("debug", d.Debug, "enable debug output")
}

// Load builds the configuration. path and flags are optional. Only flags
// explicitly set on the command line override the file.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, errors.Wrap(err, errors.CategoryBadInput, "failed to read config file").
				WithMetadata(map[string]any{"path": path})
		}
	}

	if flags != nil {
		provider := posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			if !f.Changed {
				return "", nil
			}
			return f.Name, posflag.FlagVal(flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, errors.Wrap(err, errors.CategoryBadInput, "failed to read flags")
		}
	}

	cfg := Defaults()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, errors.Wrap(err, errors.CategoryBadInput, "failed to decode config")
	}

	if err := env.Parse(cfg); err != nil {
		return nil, errors.Wrap(err, errors.CategoryBadInput, "failed to parse environment")
	}

	cfg.Log.Level = strings.ToLower(cfg.Log.Level)
	cfg.Log.Format = strings.ToLower(cfg.Log.Format)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate will run validation rules
func (c *Config) Validate() error {
	err := validation.Errors{
		"server": validation.ValidateStruct(&c.Server,
			validation.Field(&c.Server.Addr, validation.Required),
		),
		"database": validation.ValidateStruct(&c.Database,
			validation.Field(&c.Database.DSN, validation.Required),
		),
		"auth": validation.ValidateStruct(&c.Auth,
			validation.Field(&c.Auth.SigningKey, validation.Required, validation.Length(MinSigningKeyLength, 0)),
			validation.Field(&c.Auth.AccessTokenTTL, validation.Required, validation.Min(time.Second)),
			validation.Field(&c.Auth.RefreshTokenTTL, validation.Required, validation.Min(time.Second)),
			validation.Field(&c.Auth.AccessTokenHeader, validation.Required),
			validation.Field(&c.Auth.RefreshTokenHeader, validation.Required),
		),
		"log": validation.ValidateStruct(&c.Log,
			validation.Field(&c.Log.Level, validation.In("debug", "info", "warn", "error")),
			validation.Field(&c.Log.Format, validation.In("text", "json")),
		),
	}.Filter()

	if err != nil {
		return errors.Wrap(err, errors.CategoryValidation, "invalid configuration").
			WithTextCode("CONFIG_INVALID")
	}

	return nil
}

func (c *Config) GetSigningKey() string             { return c.Auth.SigningKey }
func (c *Config) GetIssuer() string                 { return c.Auth.Issuer }
func (c *Config) GetAccessTokenTTL() time.Duration  { return c.Auth.AccessTokenTTL }
func (c *Config) GetRefreshTokenTTL() time.Duration { return c.Auth.RefreshTokenTTL }
func (c *Config) GetAccessTokenHeader() string      { return c.Auth.AccessTokenHeader }
func (c *Config) GetRefreshTokenHeader() string     { return c.Auth.RefreshTokenHeader }
func (c *Config) GetContextKey() string             { return c.Auth.ContextKey }
func (c *Config) GetRequireStoredRefreshToken() bool {
	return c.Auth.RequireStoredRefreshToken
}
