package session

import (
	"errors"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is routing data decoded from the token payload. It is advisory
// only: the payload is read without signature verification, so it must
// never be treated as authorization proof. The backend re-checks every
// privileged action.
type Claims struct {
	Role    string
	Subject string
}

// DecodeClaims extracts role and subject from a bearer token. An
// unparseable token is an error; callers treat it as an invalid session.
func DecodeClaims(token string) (Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Claims{}, errors.New("empty token")
	}

	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return Claims{}, err
	}

	mapClaims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, errors.New("unexpected claims shape")
	}

	out := Claims{}
	if role, ok := mapClaims["role"].(string); ok {
		out.Role = role
	}
	if sub, err := mapClaims.GetSubject(); err == nil {
		out.Subject = sub
	}
	return out, nil
}
