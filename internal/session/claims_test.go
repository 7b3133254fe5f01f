package session

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-key"))
	require.NoError(t, err)
	return token
}

func TestDecodeClaims_RoleAndSubject(t *testing.T) {
	token := signedToken(t, jwt.MapClaims{"role": "officer", "sub": "42"})

	claims, err := DecodeClaims(token)
	require.NoError(t, err)
	assert.Equal(t, "officer", claims.Role)
	assert.Equal(t, "42", claims.Subject)
}

func TestDecodeClaims_MissingFieldsAreEmpty(t *testing.T) {
	token := signedToken(t, jwt.MapClaims{"exp": 9999999999})

	claims, err := DecodeClaims(token)
	require.NoError(t, err)
	assert.Empty(t, claims.Role)
	assert.Empty(t, claims.Subject)
}

func TestDecodeClaims_RejectsMalformedTokens(t *testing.T) {
	for _, token := range []string{"", "   ", "not-a-jwt", "a.b", "a.!!!.c"} {
		_, err := DecodeClaims(token)
		assert.Error(t, err, "token %q", token)
	}
}
