package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := tok.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return s
}

func TestValidateFutureExpiry(t *testing.T) {
	v := NewValidator()
	token := signedToken(t, jwt.MapClaims{
		"sub":  "user-1",
		"name": "Dana Landlord",
		"exp":  float64(time.Now().Add(time.Hour).Unix()),
	})

	id, err := v.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", id.UserID)
	assert.Equal(t, "Dana Landlord", id.DisplayName)
	assert.WithinDuration(t, time.Now().Add(time.Hour), id.ExpiresAt, 2*time.Second)
}

func TestValidatePastExpiry(t *testing.T) {
	v := NewValidator()
	token := signedToken(t, jwt.MapClaims{
		"sub": "user-1",
		"exp": float64(time.Now().Add(-time.Minute).Unix()),
	})

	_, err := v.Validate(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestValidateMissingSubject(t *testing.T) {
	v := NewValidator()
	token := signedToken(t, jwt.MapClaims{
		"name": "No Subject",
		"exp":  float64(time.Now().Add(time.Hour).Unix()),
	})

	_, err := v.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateGarbage(t *testing.T) {
	v := NewValidator()
	_, err := v.Validate("not.a.jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateNoExpiryClaim(t *testing.T) {
	// A token without exp is accepted; only a past expiry rejects.
	v := NewValidator()
	token := signedToken(t, jwt.MapClaims{"sub": "user-2"})

	id, err := v.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "user-2", id.UserID)
	assert.True(t, id.ExpiresAt.IsZero())
}

func TestValidateIgnoresSignature(t *testing.T) {
	// The identity provider is trusted out-of-band; a token signed with an
	// unknown key still decodes.
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "user-3",
		"exp": float64(time.Now().Add(time.Hour).Unix()),
	})
	s, err := tok.SignedString([]byte("some-other-key"))
	require.NoError(t, err)

	id, err := NewValidator().Validate(s)
	require.NoError(t, err)
	assert.Equal(t, "user-3", id.UserID)
}
