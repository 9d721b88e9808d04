// Package token issues and verifies the bearer tokens the Control API
// accepts, signed with the operator-configured jwt_secret.
package token

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims identifies the operator a Control API token was issued to.
type Claims struct {
	Subject string `json:"sub"`
	jwt.RegisteredClaims
}

// Manager signs and verifies Control API bearer tokens.
type Manager struct {
	secret []byte
}

// NewManager builds a Manager from the control_api.jwt_secret setting.
func NewManager(secret string) *Manager {
	return &Manager{secret: []byte(secret)}
}

// Issue mints a token for subject valid for ttl.
func (m *Manager) Issue(subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		Subject: subject,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "plbd",
			Subject:   subject,
			Audience:  jwt.ClaimStrings{"plbd-control-api"},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates tokenString, returning its claims.
func (m *Manager) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}
