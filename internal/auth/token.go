// Package auth verifies the access tokens issued by the identity service.
// The wallet service never issues tokens for real users; Issue exists for
// tests and local tooling.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
)

// Account statuses carried in the token. Only StatusActive may move money.
const (
	StatusPending   = "pending"
	StatusActive    = "active"
	StatusBlocked   = "blocked"
	StatusSuspended = "suspended"
)

// Claims carries the caller identity. Subject is the numeric user id.
type Claims struct {
	Status        string `json:"status"`
	PhoneVerified bool   `json:"phone_verified"`
	jwt.RegisteredClaims
}

// UserID parses the subject.
func (c Claims) UserID() (int64, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidToken
	}
	return id, nil
}

// Verifier checks HS256 access tokens.
type Verifier struct {
	secret []byte
}

// NewVerifier builds a verifier for secret.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify validates the signature and expiry and returns the claims.
func (v *Verifier) Verify(token string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if _, err := claims.UserID(); err != nil {
		return nil, err
	}
	return claims, nil
}

// Issue signs a token for userID valid for ttl.
func (v *Verifier) Issue(userID int64, status string, phoneVerified bool, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Status:        status,
		PhoneVerified: phoneVerified,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}
