package identity

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"fieldops/internal/task"
)

var ErrInvalidToken = errors.New("invalid or expired token")

// TokenIssuer signs and verifies session tokens. Tokens carry the user
// id and role so requests can be authorized without a database lookup.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenIssuer constructs an issuer with the given signing secret and
// token lifetime.
func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), ttl: ttl}
}

type sessionClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Issue creates a signed token for the given user.
func (ti *TokenIssuer) Issue(u *User) (string, error) {
	now := timeNow().UTC()
	claims := sessionClaims{
		Role: string(u.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(u.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ti.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(ti.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a token, returning the actor it encodes.
func (ti *TokenIssuer) Verify(tokenString string) (task.Actor, error) {
	var claims sessionClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return ti.secret, nil
	})
	if err != nil || !token.Valid {
		return task.Actor{}, ErrInvalidToken
	}

	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return task.Actor{}, ErrInvalidToken
	}
	role := task.Role(claims.Role)
	if err := task.ValidateRole(role); err != nil {
		return task.Actor{}, ErrInvalidToken
	}
	return task.Actor{ID: id, Role: role}, nil
}
