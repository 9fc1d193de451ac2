package auth_test

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-keepin-auth"
)

func newClockedTokenService(clock *fakeClock) *auth.TokenServiceImpl {
	return auth.NewTokenService([]byte(testSigningKey), "keepin-test", auth.WithTokenClock(clock.Now))
}

func TestTokenService_SignValidateRoundTrip(t *testing.T) {
	clock := newFakeClock(t0)
	service := newClockedTokenService(clock)

	token, exp, err := service.Sign(auth.Claims{UserID: "user-1", Email: "a@b.com"}, time.Hour)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.True(t, exp.Equal(t0.Add(time.Hour)))

	claims, err := service.Validate(token)
	require.NoError(t, err)

	assert.Equal(t, "user-1", claims.UserID())
	assert.Equal(t, "user-1", claims.Subject())
	assert.Equal(t, "a@b.com", claims.Email())
	assert.NotEmpty(t, claims.TokenID())
	assert.True(t, claims.IssuedAt().Equal(t0))
	assert.True(t, claims.Expires().Equal(t0.Add(time.Hour)))
}

func TestTokenService_SameSecondTokensDiffer(t *testing.T) {
	service := newClockedTokenService(newFakeClock(t0))
	claims := auth.Claims{UserID: "user-1", Email: "a@b.com"}

	first, _, err := service.Sign(claims, time.Hour)
	require.NoError(t, err)
	second, _, err := service.Sign(claims, time.Hour)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestTokenService_Expired(t *testing.T) {
	clock := newFakeClock(t0)
	service := newClockedTokenService(clock)

	token, _, err := service.Sign(auth.Claims{UserID: "user-1"}, time.Minute)
	require.NoError(t, err)

	clock.Advance(59 * time.Second)
	_, err = service.Validate(token)
	require.NoError(t, err)

	clock.Advance(2 * time.Second)
	_, err = service.Validate(token)
	assert.ErrorIs(t, err, auth.ErrTokenExpired)
	assert.True(t, auth.IsTokenExpiredError(err))
}

func TestTokenService_TamperedPayloadIsInvalid(t *testing.T) {
	service := newClockedTokenService(newFakeClock(t0))

	token, _, err := service.Sign(auth.Claims{UserID: "user-1", Email: "a@b.com"}, time.Hour)
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)

	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	require.NoError(t, err)
	payload[len(payload)/2] ^= 0x01
	parts[1] = base64.RawURLEncoding.EncodeToString(payload)

	_, err = service.Validate(strings.Join(parts, "."))
	assert.ErrorIs(t, err, auth.ErrTokenInvalid)
}

func TestTokenService_TrailingSignatureBitsAreChecked(t *testing.T) {
	service := newClockedTokenService(newFakeClock(t0))

	for i := 0; i < 50; i++ {
		token, _, err := service.Sign(auth.Claims{UserID: "user-1", Email: "a@b.com"}, time.Hour)
		require.NoError(t, err)

		b := []byte(token)
		b[len(b)-1] ^= 0x02

		_, err = service.Validate(string(b))
		require.ErrorIs(t, err, auth.ErrTokenInvalid, "last char %q -> %q", token[len(token)-1], b[len(b)-1])
	}
}

func TestTokenService_AnySingleBitFlipIsInvalid(t *testing.T) {
	service := newClockedTokenService(newFakeClock(t0))

	token, _, err := service.Sign(auth.Claims{UserID: "user-1", Email: "a@b.com"}, time.Hour)
	require.NoError(t, err)

	for pos := 0; pos < len(token); pos++ {
		for bit := 0; bit < 8; bit++ {
			b := []byte(token)
			b[pos] ^= 1 << bit

			_, err := service.Validate(string(b))
			if !assert.ErrorIs(t, err, auth.ErrTokenInvalid, "pos %d bit %d", pos, bit) {
				return
			}
		}
	}
}

func TestTokenService_TamperedExpiredTokenIsInvalid(t *testing.T) {
	clock := newFakeClock(t0)
	service := newClockedTokenService(clock)

	token, _, err := service.Sign(auth.Claims{UserID: "user-1"}, time.Minute)
	require.NoError(t, err)

	clock.Advance(time.Hour)

	parts := strings.Split(token, ".")
	sig := []byte(parts[2])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	parts[2] = string(sig)

	_, err = service.Validate(strings.Join(parts, "."))
	assert.ErrorIs(t, err, auth.ErrTokenInvalid)
}

func TestTokenService_WrongKey(t *testing.T) {
	clock := newFakeClock(t0)
	signer := auth.NewTokenService([]byte("another-signing-key-0123456789abcdef"), "keepin-test", auth.WithTokenClock(clock.Now))
	verifier := newClockedTokenService(clock)

	token, _, err := signer.Sign(auth.Claims{UserID: "user-1"}, time.Hour)
	require.NoError(t, err)

	_, err = verifier.Validate(token)
	assert.ErrorIs(t, err, auth.ErrTokenInvalid)
}

func TestTokenService_RejectsOtherAlgorithms(t *testing.T) {
	clock := newFakeClock(t0)
	service := newClockedTokenService(clock)

	claims := jwt.MapClaims{
		"id":  "user-1",
		"sub": "user-1",
		"iss": "keepin-test",
		"exp": t0.Add(time.Hour).Unix(),
	}

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = service.Validate(unsigned)
	assert.ErrorIs(t, err, auth.ErrTokenInvalid)

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(testSigningKey))
	require.NoError(t, err)
	_, err = service.Validate(hs512)
	assert.ErrorIs(t, err, auth.ErrTokenInvalid)
}

func TestTokenService_MalformedInputs(t *testing.T) {
	service := newClockedTokenService(newFakeClock(t0))

	for _, raw := range []string{"", "abc", "a.b.c", "not.a.jwt.at.all"} {
		_, err := service.Validate(raw)
		assert.ErrorIs(t, err, auth.ErrTokenInvalid, raw)
		assert.True(t, auth.IsMalformedError(err), raw)
	}
}

func TestTokenService_RequiresExpiry(t *testing.T) {
	service := newClockedTokenService(newFakeClock(t0))

	token, err := service.SignClaims(&auth.JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{Issuer: "keepin-test", Subject: "user-1"},
		UID:              "user-1",
	})
	require.NoError(t, err)

	_, err = service.Validate(token)
	assert.ErrorIs(t, err, auth.ErrTokenInvalid)
}

func TestTokenService_IssuerMismatch(t *testing.T) {
	clock := newFakeClock(t0)
	other := auth.NewTokenService([]byte(testSigningKey), "someone-else", auth.WithTokenClock(clock.Now))

	token, _, err := other.Sign(auth.Claims{UserID: "user-1"}, time.Hour)
	require.NoError(t, err)

	_, err = newClockedTokenService(clock).Validate(token)
	assert.ErrorIs(t, err, auth.ErrTokenInvalid)
}

func TestTokenService_SignRejectsBadInput(t *testing.T) {
	service := newClockedTokenService(newFakeClock(t0))

	_, _, err := service.Sign(auth.Claims{}, time.Hour)
	assert.Error(t, err)

	_, _, err = service.Sign(auth.Claims{UserID: "user-1"}, 0)
	assert.Error(t, err)
}

func TestTokenService_SigningKeyIsCopied(t *testing.T) {
	clock := newFakeClock(t0)
	key := []byte(testSigningKey)
	service := auth.NewTokenService(key, "keepin-test", auth.WithTokenClock(clock.Now))

	token, _, err := service.Sign(auth.Claims{UserID: "user-1"}, time.Hour)
	require.NoError(t, err)

	key[0] ^= 0xff

	_, err = service.Validate(token)
	assert.NoError(t, err)
}
