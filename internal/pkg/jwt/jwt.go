package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrTokenExpired = errors.New("token has expired")
	ErrTokenInvalid = errors.New("token is invalid")
)

// UnknownUser is shown when the id token carries no usable name.
const UnknownUser = "Unknown User"

// Claims represents the identity provider's token claims we read
type Claims struct {
	Name              string `json:"name,omitempty"`
	PreferredUsername string `json:"preferred_username,omitempty"`
	Email             string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

var parser = jwt.NewParser()

// Decode reads a token's payload without verifying its signature.
// The backend remains the authority on whether a token is acceptable.
func Decode(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrTokenInvalid
	}
	claims := &Claims{}
	if _, _, err := parser.ParseUnverified(tokenString, claims); err != nil {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// CheckExpiry decodes the token and requires an exp claim strictly after now
func CheckExpiry(tokenString string, now time.Time) (*Claims, error) {
	claims, err := Decode(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.ExpiresAt == nil {
		return nil, ErrTokenInvalid
	}
	if !claims.ExpiresAt.Time.After(now) {
		return claims, ErrTokenExpired
	}
	return claims, nil
}

// IsValid never fails; any decode problem counts as invalid.
func IsValid(tokenString string, now time.Time) bool {
	_, err := CheckExpiry(tokenString, now)
	return err == nil
}

// DisplayName picks name, then preferred_username, then UnknownUser
func (c *Claims) DisplayName() string {
	switch {
	case c.Name != "":
		return c.Name
	case c.PreferredUsername != "":
		return c.PreferredUsername
	default:
		return UnknownUser
	}
}

// GenerateToken signs an HS256 token shaped like the identity provider's.
// A negative ttl yields an already expired token.
func GenerateToken(subject, name, username, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Name:              name,
		PreferredUsername: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "setoran-pa",
			Subject:   subject,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}
