package tokens

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrMalformed         = errors.New("token malformed")
	ErrExpired           = errors.New("token expired")
	ErrSignatureMismatch = errors.New("token signature mismatch")

	ErrInvalidTTL    = errors.New("token ttl must be positive")
	ErrEmptySecret   = errors.New("token secret is empty")
	errUnexpectedAlg = errors.New("unexpected sign method")
)

// Codec signs and verifies HS256 session tokens. Access and refresh tokens
// use the same codec with different secrets.
type Codec struct {
	now func() time.Time
}

type Option func(*Codec)

func WithClock(now func() time.Time) Option {
	return func(c *Codec) { c.now = now }
}

func NewCodec(opts ...Option) *Codec {
	c := &Codec{now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Codec) Issue(sub Subject, secret []byte, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		return "", ErrInvalidTTL
	}
	if len(secret) == 0 {
		return "", ErrEmptySecret
	}

	now := c.now()
	claims := Claims{
		Username: sub.Username,
		UserID:   sub.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (c *Codec) Verify(tokenStr string, secret []byte) (Subject, error) {
	if len(secret) == 0 {
		return Subject{}, ErrEmptySecret
	}

	var claims Claims
	tkn, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errUnexpectedAlg
		}
		return secret, nil
	},
		jwt.WithTimeFunc(c.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return Subject{}, classify(err)
	}
	if !tkn.Valid {
		return Subject{}, ErrMalformed
	}

	// exp is second-precision; a token is dead from its exp second onwards.
	if !claims.ExpiresAt.Time.After(c.now()) {
		return Subject{}, ErrExpired
	}
	if claims.Username == "" || claims.UserID == 0 {
		return Subject{}, fmt.Errorf("%w: missing subject", ErrMalformed)
	}

	return claims.Subject(), nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return fmt.Errorf("%w: %v", ErrSignatureMismatch, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", ErrExpired, err)
	default:
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
}
