package auth_test

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"golang.org/x/crypto/bcrypt"

	"github.com/goliatone/go-keepin-auth"
)

const testSigningKey = "test-signing-key-0123456789abcdef"

// t0 is a whole second so NumericDate truncation never shifts expiries.
var t0 = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(t time.Time) *fakeClock {
	return &fakeClock{now: t}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// testConfig implements auth.Config
type testConfig struct {
	signingKey    string
	issuer        string
	accessTTL     time.Duration
	refreshTTL    time.Duration
	requireStored bool
}

func newTestConfig() *testConfig {
	return &testConfig{
		signingKey:    testSigningKey,
		issuer:        "keepin-test",
		accessTTL:     time.Hour,
		refreshTTL:    14 * 24 * time.Hour,
		requireStored: true,
	}
}

func (c *testConfig) GetSigningKey() string              { return c.signingKey }
func (c *testConfig) GetIssuer() string                  { return c.issuer }
func (c *testConfig) GetAccessTokenTTL() time.Duration   { return c.accessTTL }
func (c *testConfig) GetRefreshTokenTTL() time.Duration  { return c.refreshTTL }
func (c *testConfig) GetAccessTokenHeader() string       { return "jwt" }
func (c *testConfig) GetRefreshTokenHeader() string      { return "refreshToken" }
func (c *testConfig) GetContextKey() string              { return "user" }
func (c *testConfig) GetRequireStoredRefreshToken() bool { return c.requireStored }

// recordingSink collects activity events
type recordingSink struct {
	mu     sync.Mutex
	events []auth.ActivityEvent
}

func (s *recordingSink) Record(_ context.Context, event auth.ActivityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *recordingSink) Types() []auth.ActivityEventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]auth.ActivityEventType, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.EventType)
	}
	return out
}

func (s *recordingSink) Last() auth.ActivityEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.events) == 0 {
		return auth.ActivityEvent{}
	}
	return s.events[len(s.events)-1]
}

type logEntry struct {
	level string
	msg   string
}

// capturingLogger records every message it receives
type capturingLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (l *capturingLogger) add(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, logEntry{level: level, msg: msg})
}

func (l *capturingLogger) Debug(msg string, _ ...any) { l.add("debug", msg) }
func (l *capturingLogger) Info(msg string, _ ...any)  { l.add("info", msg) }
func (l *capturingLogger) Warn(msg string, _ ...any)  { l.add("warn", msg) }
func (l *capturingLogger) Error(msg string, _ ...any) { l.add("error", msg) }

func (l *capturingLogger) Messages(level string) []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []string
	for _, e := range l.entries {
		if e.level == level {
			out = append(out, e.msg)
		}
	}
	return out
}

// MockLogger implements auth.Logger for testing
type MockLogger struct {
	mock.Mock
}

func (m *MockLogger) Debug(msg string, args ...any) { m.Called(msg, args) }
func (m *MockLogger) Info(msg string, args ...any)  { m.Called(msg, args) }
func (m *MockLogger) Warn(msg string, args ...any)  { m.Called(msg, args) }
func (m *MockLogger) Error(msg string, args ...any) { m.Called(msg, args) }

// MockRefreshTokenStore implements auth.RefreshTokenStore
type MockRefreshTokenStore struct {
	mock.Mock
}

func (m *MockRefreshTokenStore) SetRefreshToken(ctx context.Context, id uuid.UUID, token string) error {
	args := m.Called(ctx, id, token)
	return args.Error(0)
}

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, auth.Migrate(context.Background(), db, nil))

	return db
}

func newTestRepo(t *testing.T) auth.RepositoryManager {
	t.Helper()
	return auth.NewRepositoryManager(newTestDB(t))
}

func fastHasher() auth.PasswordHasher {
	return auth.NewBcryptHasher(bcrypt.MinCost)
}

func validSignup(email string) auth.RegisterUserMessage {
	return auth.RegisterUserMessage{
		Email:       email,
		Password:    "secret1",
		Name:        "Kim Min",
		Birth:       "1990-01-01",
		Phone:       "010-1234-5678",
		DeviceToken: "device-token-1",
	}
}

func seedUser(t *testing.T, repo auth.RepositoryManager, email, password string) *auth.User {
	t.Helper()

	msg := validSignup(email)
	msg.Password = password

	user, err := auth.NewRegisterUserHandler(repo, fastHasher()).Register(context.Background(), msg)
	require.NoError(t, err)
	return user
}
