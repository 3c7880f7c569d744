package jwttoken

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"testing"
	"time"

	"idregistry/pkg/domain"
	dErrors "idregistry/pkg/domain-errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var jwtService = NewJWTService("test-audience")
var callerPub, callerKey, _ = ed25519.GenerateKey(rand.Reader)
var callerAddr, _ = domain.DeriveAddress(callerPub)
var expiresIn = time.Hour

func Test_GenerateAccessToken(t *testing.T) {
	token, err := jwtService.GenerateAccessToken(callerKey, expiresIn)
	require.NoError(t, err)
	require.NotEmpty(t, token)
	claims, err := jwtService.ValidateToken(token)
	require.NoError(t, err)
	assert.NotNil(t, claims)
	assert.Equal(t, callerAddr.String(), claims.Subject)
	assert.Equal(t, base64.StdEncoding.EncodeToString(callerPub), claims.PublicKey)
	assert.WithinDuration(t, time.Now().Add(expiresIn), claims.ExpiresAt.Time, time.Minute)
}

func Test_ValidateToken_InvalidToken(t *testing.T) {
	_, err := jwtService.ValidateToken("invalid-token-string")
	require.ErrorIs(t, err, dErrors.New(dErrors.CodeUnauthorized, "invalid token"))
}

func Test_ValidateToken_ExpiredToken(t *testing.T) {
	expiresIn := -time.Hour // Expired token

	token, err := jwtService.GenerateAccessToken(callerKey, expiresIn)
	require.NoError(t, err)

	_, err = jwtService.ValidateToken(token)
	require.ErrorIs(t, err, dErrors.New(dErrors.CodeUnauthorized, "token has expired"))
}

func Test_ValidateToken_WrongAudience(t *testing.T) {
	token, err := NewJWTService("other-audience").GenerateAccessToken(callerKey, expiresIn)
	require.NoError(t, err)

	_, err = jwtService.ValidateToken(token)
	require.ErrorIs(t, err, dErrors.New(dErrors.CodeUnauthorized, "invalid token"))
}

func Test_ValidateToken_SubjectMismatch(t *testing.T) {
	otherPub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	otherAddr, err := domain.DeriveAddress(otherPub)
	require.NoError(t, err)

	// Signed with callerKey but claiming someone else's address.
	forged := jwt.NewWithClaims(jwt.SigningMethodEdDSA, Claims{
		PublicKey: base64.StdEncoding.EncodeToString(callerPub),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   otherAddr.String(),
			Audience:  []string{"test-audience"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
		},
	})
	token, err := forged.SignedString(callerKey)
	require.NoError(t, err)

	_, err = jwtService.ValidateToken(token)
	require.ErrorIs(t, err, dErrors.New(dErrors.CodeUnauthorized, "token subject does not match signing key"))
}

func Test_ValidateToken_WrongSigningMethod(t *testing.T) {
	hmacToken := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		PublicKey: base64.StdEncoding.EncodeToString(callerPub),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   callerAddr.String(),
			Audience:  []string{"test-audience"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
		},
	})
	token, err := hmacToken.SignedString([]byte("shared-secret"))
	require.NoError(t, err)

	_, err = jwtService.ValidateToken(token)
	require.ErrorIs(t, err, dErrors.New(dErrors.CodeUnauthorized, "invalid token"))
}

func Test_ExtractCallerFromToken(t *testing.T) {
	token, err := jwtService.GenerateAccessToken(callerKey, expiresIn)
	require.NoError(t, err)

	addr, err := jwtService.ExtractCallerFromToken(token)
	require.NoError(t, err)
	assert.Equal(t, callerAddr, addr)
}
