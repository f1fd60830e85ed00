package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-at-least-32-chars-long"

func TestTokens_RoundTrip(t *testing.T) {
	tokens := NewTokens(testSecret, time.Hour)

	raw, err := tokens.Issue(42, "writer@example.com")
	require.NoError(t, err)

	id, err := tokens.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, Identity{UserID: 42, Email: "writer@example.com", Authenticated: true}, id)
}

func TestTokens_Expired(t *testing.T) {
	tokens := NewTokens(testSecret, time.Hour)
	issuedAt := time.Now().Add(-2 * time.Hour)
	tokens.now = func() time.Time { return issuedAt }

	raw, err := tokens.Issue(7, "old@example.com")
	require.NoError(t, err)

	tokens.now = time.Now
	id, err := tokens.Parse(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.False(t, id.Authenticated)
}

func TestTokens_StillValidJustBeforeExpiry(t *testing.T) {
	tokens := NewTokens(testSecret, time.Hour)
	issuedAt := time.Now().Add(-59 * time.Minute)
	tokens.now = func() time.Time { return issuedAt }

	raw, err := tokens.Issue(7, "recent@example.com")
	require.NoError(t, err)

	tokens.now = time.Now
	id, err := tokens.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, uint(7), id.UserID)
}

func TestTokens_Rejects(t *testing.T) {
	tokens := NewTokens(testSecret, time.Hour)
	other := NewTokens("another-secret-key-at-least-32-chars", time.Hour)
	forged, err := other.Issue(1, "x@example.com")
	require.NoError(t, err)

	noneToken := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": "1", "iss": issuer, "aud": audience, "exp": time.Now().Add(time.Hour).Unix(),
	})
	unsigned, err := noneToken.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	wrongAudience := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "1", "iss": issuer, "aud": "someone-else", "exp": time.Now().Add(time.Hour).Unix(),
	})
	wrongAud, err := wrongAudience.SignedString([]byte(testSecret))
	require.NoError(t, err)

	badSubject := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "abc", "iss": issuer, "aud": audience, "exp": time.Now().Add(time.Hour).Unix(),
	})
	badSub, err := badSubject.SignedString([]byte(testSecret))
	require.NoError(t, err)

	tests := []struct {
		name string
		raw  string
	}{
		{"Wrong secret", forged},
		{"None algorithm", unsigned},
		{"Wrong audience", wrongAud},
		{"Non-numeric subject", badSub},
		{"Garbage", "not.a.token"},
		{"Empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := tokens.Parse(tt.raw)
			assert.ErrorIs(t, err, ErrInvalidToken)
			assert.Equal(t, Anonymous(), id)
		})
	}
}

func TestTokens_MissingSecret(t *testing.T) {
	_, err := NewTokens("", time.Hour).Issue(1, "a@example.com")
	assert.ErrorIs(t, err, ErrMissingSecret)
}

func TestBearerToken(t *testing.T) {
	tok, ok := BearerToken("Bearer abc.def.ghi")
	assert.True(t, ok)
	assert.Equal(t, "abc.def.ghi", tok)

	_, ok = BearerToken("Basic dXNlcjpwYXNz")
	assert.False(t, ok)
	_, ok = BearerToken("Bearer")
	assert.False(t, ok)
	_, ok = BearerToken("")
	assert.False(t, ok)
}

func TestIdentityContext(t *testing.T) {
	assert.Equal(t, Anonymous(), IdentityFromContext(context.Background()))

	ctx := WithIdentity(context.Background(), Identity{UserID: 3, Authenticated: true})
	assert.Equal(t, uint(3), IdentityFromContext(ctx).UserID)
	assert.True(t, IdentityFromContext(ctx).Authenticated)
}
