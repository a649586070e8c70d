// Package auth verifies bearer tokens for the Deuce API.
//
// Auth is optional: when no secret is configured the API trusts the
// X-Project-Id header alone. When enabled, requests must carry an
// HMAC-signed token whose project claim matches the header.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Common errors for token operations.
var (
	ErrInvalidToken        = errors.New("invalid token")
	ErrExpiredToken        = errors.New("token has expired")
	ErrInvalidSecretLength = errors.New("auth secret must be at least 32 characters")
)

// Claims are the token claims Deuce understands.
type Claims struct {
	jwt.RegisteredClaims

	// ProjectID pins the token to a single tenant. When set, the auth
	// middleware rejects requests whose X-Project-Id disagrees.
	ProjectID string `json:"project_id,omitempty"`
}

// Verifier validates HMAC-signed bearer tokens.
type Verifier struct {
	secret []byte
	issuer string
}

// NewVerifier creates a Verifier for the given signing secret. A non-empty
// issuer additionally pins the "iss" claim.
func NewVerifier(secret, issuer string) (*Verifier, error) {
	if len(secret) < 32 {
		return nil, ErrInvalidSecretLength
	}
	return &Verifier{secret: []byte(secret), issuer: issuer}, nil
}

// Verify validates a token string and returns its claims.
func (v *Verifier) Verify(tokenString string) (*Claims, error) {
	var opts []jwt.ParserOption
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		// Verify signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// NewToken signs a token scoped to projectID, valid for ttl. The server only
// verifies tokens; minting is for operator tooling and tests.
func NewToken(secret, issuer, projectID string, ttl time.Duration) (string, error) {
	if len(secret) < 32 {
		return "", ErrInvalidSecretLength
	}

	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   projectID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		ProjectID: projectID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}
