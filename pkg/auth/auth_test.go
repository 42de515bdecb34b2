package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestSignAndValidateRoundtrip(t *testing.T) {
	token, err := SignAccessToken("user_2kX9", "secret", time.Minute)
	require.NoError(t, err)

	claims, err := ValidateAccessToken(token, "secret")
	require.NoError(t, err)
	require.Equal(t, "user_2kX9", claims.Subject)
}

func TestValidateAccessToken_WrongSecret(t *testing.T) {
	token, err := SignAccessToken("user_1", "secret", time.Minute)
	require.NoError(t, err)

	_, err = ValidateAccessToken(token, "other-secret")
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateAccessToken_Expired(t *testing.T) {
	token, err := SignAccessToken("user_1", "secret", -time.Minute)
	require.NoError(t, err)

	_, err = ValidateAccessToken(token, "secret")
	require.ErrorIs(t, err, ErrExpiredToken)
}

func TestValidateAccessToken_MissingSubject(t *testing.T) {
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = ValidateAccessToken(token, "secret")
	require.ErrorIs(t, err, ErrMissingSubject)
}

// Tokens signed with an asymmetric algorithm are rejected outright; only
// the provider's HMAC scheme is trusted.
func TestValidateAccessToken_RejectsNonHMAC(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "user_1"})
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = ValidateAccessToken(signed, "secret")
	require.ErrorIs(t, err, ErrInvalidToken)
}
