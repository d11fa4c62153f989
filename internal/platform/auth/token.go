package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

const tokenIssuer = "clinic-server"

// Claims is the JWT body handed to clients. It names the session; every
// other session attribute lives in the SessionStore.
type Claims struct {
	jwt.RegisteredClaims
	Role Role `json:"role"`
}

// TokenIssuer signs and verifies HS256 session tokens.
type TokenIssuer struct {
	key []byte
}

func NewTokenIssuer(secret []byte) (*TokenIssuer, error) {
	if len(secret) == 0 {
		return nil, errors.New("session secret is required")
	}
	return &TokenIssuer{key: secret}, nil
}

// Issue returns a signed token for s.
func (t *TokenIssuer) Issue(s *Session) (string, error) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        s.ID,
			Subject:   s.StaffID.String(),
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(s.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(s.ExpiresAt),
		},
		Role: s.Role,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.key)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// Parse verifies tokenStr and returns the session id it names.
func (t *TokenIssuer) Parse(tokenStr string) (string, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (interface{}, error) {
		return t.key, nil
	},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return "", fmt.Errorf("invalid token: %w", err)
	}
	if claims.ID == "" {
		return "", errors.New("invalid token: missing session id")
	}
	return claims.ID, nil
}
