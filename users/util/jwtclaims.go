package util

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const ClaimsKey contextKey = "claims"

// AccessTokenClaims is the claim set carried by the server's HS256 access
// tokens.
type AccessTokenClaims struct {
	jwt.Claims
	SessionID string `json:"session_id"`
	Expiry    int64  `json:"exp"`
	IssuedAt  int64  `json:"iat"`
	TokenID   string `json:"jti"`
}

func (c AccessTokenClaims) GetExpirationTime() (*jwt.NumericDate, error) {
	return jwt.NewNumericDate(time.Unix(c.Expiry, 0)), nil
}

func (c AccessTokenClaims) GetIssuedAt() (*jwt.NumericDate, error) {
	return jwt.NewNumericDate(time.Unix(c.IssuedAt, 0)), nil
}

func (c AccessTokenClaims) GetNotBefore() (*jwt.NumericDate, error) {
	return jwt.NewNumericDate(time.Unix(c.IssuedAt, 0)), nil
}

func (c AccessTokenClaims) GetIssuer() (string, error) {
	return "", nil
}

func (c AccessTokenClaims) GetSubject() (string, error) {
	return "", nil
}

func (c AccessTokenClaims) GetAudience() (jwt.ClaimStrings, error) {
	return nil, nil
}
