package jwtutil

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidate(t *testing.T) {
	util := NewJWTUtil(&JWTConfig{SigningKey: "secret", ExpirationHours: 1})

	token, err := util.GenerateToken(7, "ana@urbani.cl", "Ana", "manager")
	require.NoError(t, err)

	claims, err := util.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.UserID)
	assert.Equal(t, "ana@urbani.cl", claims.Email)
	assert.Equal(t, "Ana", claims.Name)
	assert.Equal(t, "manager", claims.Role)
	assert.Equal(t, "7", claims.Subject)
}

func TestValidateRejectsWrongKey(t *testing.T) {
	issuer := NewJWTUtil(&JWTConfig{SigningKey: "one", ExpirationHours: 1})
	verifier := NewJWTUtil(&JWTConfig{SigningKey: "two", ExpirationHours: 1})

	token, err := issuer.GenerateToken(1, "a@b.c", "A", "admin")
	require.NoError(t, err)

	_, err = verifier.ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	util := NewJWTUtil(&JWTConfig{SigningKey: "secret", ExpirationHours: 1})
	issuedAt := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	util.now = func() time.Time { return issuedAt }

	token, err := util.GenerateToken(1, "a@b.c", "A", "executive")
	require.NoError(t, err)

	util.now = func() time.Time { return issuedAt.Add(2 * time.Hour) }
	_, err = util.ValidateToken(token)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestValidateRejectsNoneAlgorithm(t *testing.T) {
	util := NewJWTUtil(&JWTConfig{SigningKey: "secret", ExpirationHours: 1})
	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, UserClaims{UserID: 1, Role: "admin"})
	token, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = util.ValidateToken(token)
	assert.Error(t, err)
}

func TestMissingConfig(t *testing.T) {
	util := NewJWTUtil(nil)
	_, err := util.GenerateToken(1, "a@b.c", "A", "admin")
	assert.Error(t, err)
	_, err = util.ValidateToken("x.y.z")
	assert.Error(t, err)
}
