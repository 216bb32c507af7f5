// Package signedlink issues short-lived HMAC tokens that let a student
// redeem a live-class join link.
package signedlink

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken is returned for malformed, tampered or foreign tokens.
	ErrInvalidToken = errors.New("invalid join token")
	// ErrExpiredToken is returned once the token lifetime has passed.
	ErrExpiredToken = errors.New("join token expired")
)

const issuer = "aulao-join"

// Claims identifies the seat the token grants access to.
type Claims struct {
	ClassEventID     string `json:"eventId"`
	StudentProfileID string `json:"studentProfileId"`
	jwt.RegisteredClaims
}

// Signer creates and validates join tokens.
type Signer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSigner constructs a signer with the provided secret and TTL.
func NewSigner(secret string, ttl time.Duration) *Signer {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Signer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Generate returns a signed token for the student's seat in the class event.
func (s *Signer) Generate(classEventID, studentProfileID string) (string, time.Time, error) {
	if classEventID == "" || studentProfileID == "" {
		return "", time.Time{}, fmt.Errorf("classEventID and studentProfileID required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("signing secret missing")
	}
	issuedAt := s.now()
	expiresAt := issuedAt.Add(s.ttl)
	claims := Claims{
		ClassEventID:     classEventID,
		StudentProfileID: studentProfileID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   studentProfileID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign join token: %w", err)
	}
	return token, expiresAt, nil
}

// Parse validates a token and returns its claims.
func (s *Signer) Parse(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid || claims.ClassEventID == "" || claims.StudentProfileID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
