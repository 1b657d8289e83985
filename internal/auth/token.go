package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned by VerifyToken for any token that cannot be
// trusted: bad signature, wrong algorithm, malformed payload or past expiry.
var ErrInvalidToken = errors.New("invalid session token")

// Claims is the payload carried by a session token.
type Claims struct {
	UserID int64 `json:"uid"`
	jwt.RegisteredClaims
}

// IssueToken signs a session token for the given user, valid for ttl from now.
func IssueToken(userID int64, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// VerifyToken parses and validates a session token. The signing algorithm is
// pinned to HS256; expiry is checked by the parser. Any failure collapses to
// ErrInvalidToken so callers cannot distinguish why a token was rejected.
func VerifyToken(tokenString, secret string) (*Claims, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	return &claims, nil
}
