// Package session issues and verifies signed session tokens.
package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"brand-ranking/internal/model"
)

// ErrInvalidToken is returned for tokens that are malformed, expired or
// signed with another key.
var ErrInvalidToken = errors.New("invalid session token")

// Claims is the session payload.
type Claims struct {
	UserID uuid.UUID  `json:"id"`
	FID    int64      `json:"fid"`
	Role   model.Role `json:"role"`
	jwt.RegisteredClaims
}

// Issuer signs and parses HS256 session tokens.
type Issuer struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

// NewIssuer creates an Issuer. A non-positive ttl issues tokens without expiry.
func NewIssuer(key string, ttl time.Duration) *Issuer {
	return &Issuer{key: []byte(key), ttl: ttl, now: time.Now}
}

// Issue signs a token for user.
func (i *Issuer) Issue(user *model.User) (string, error) {
	now := i.now()
	claims := Claims{
		UserID: user.ID,
		FID:    user.FID,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  user.ID.String(),
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if i.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(i.ttl))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}

// Parse verifies token and returns its claims.
func (i *Issuer) Parse(token string) (*Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return i.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.UserID == uuid.Nil {
		return nil, ErrInvalidToken
	}
	return &claims, nil
}
