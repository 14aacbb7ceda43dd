package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/AntonKrinichnyi/trainstation/internal/apperr"
	"github.com/AntonKrinichnyi/trainstation/internal/models"
	"github.com/golang-jwt/jwt/v4"
)

// Claims identify the bearer of an access token.
type Claims struct {
	UserID  uint `json:"uid"`
	IsStaff bool `json:"staff"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies HS256 access tokens.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer returns an Issuer signing with secret. Tokens expire after ttl.
func NewIssuer(secret string, ttl time.Duration) *Issuer {
	return &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue returns a signed token for user and its expiry.
func (i *Issuer) Issue(user models.User) (string, time.Time, error) {
	now := i.now()
	exp := now.Add(i.ttl)
	claims := Claims{
		UserID:  user.ID,
		IsStaff: user.IsStaff,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(user.ID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, exp, nil
}

// Parse verifies token and returns its claims. Any failure is reported as
// an apperr unauthenticated error.
func (i *Issuer) Parse(token string) (*Claims, error) {
	var claims Claims
	parser := jwt.Parser{ValidMethods: []string{jwt.SigningMethodHS256.Alg()}}
	_, err := parser.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return i.secret, nil
	})
	if err != nil {
		var verr *jwt.ValidationError
		if errors.As(err, &verr) && verr.Errors&jwt.ValidationErrorExpired != 0 {
			return nil, apperr.Unauthenticated("token has expired")
		}
		return nil, apperr.Unauthenticated("invalid token")
	}
	if claims.UserID == 0 {
		return nil, apperr.Unauthenticated("token does not identify a user")
	}
	return &claims, nil
}
