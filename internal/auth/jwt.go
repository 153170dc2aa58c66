// Package auth holds the credential plumbing of the tracker: password hashing,
// session tokens, the admin key and the generator for submission codes.
//
// SESSION FLOW:
//  1. POST /login verifies the password and calls TokenService.Issue
//  2. SetSessionCookie stores the token in an HttpOnly "token" cookie
//  3. RequireAuth reads the cookie on later requests and puts the
//     user ID in the request context
//  4. POST /logout calls ClearSessionCookie
//
// Nothing about the session lives on the server. The token is an HS256 JWT
// whose "sub" claim is the user ID; the signature is the only proof needed.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	issuer = "challenge-tracker"

	// SessionCookie is the name of the cookie carrying the JWT.
	SessionCookie = "token"

	// DefaultSessionTTL is how long a login lasts.
	DefaultSessionTTL = 24 * time.Hour
)

// ErrTokenExpired is returned by Validate for a well-formed but expired token.
var ErrTokenExpired = errors.New("auth: token expired")

// TokenService signs and verifies session tokens with one HMAC secret.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService creates a TokenService. The secret must be at least 16
// characters; generate one with `openssl rand -hex 32`.
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &TokenService{secret: []byte(secret), ttl: ttl}, nil
}

// TTL reports the lifetime of tokens from Issue.
func (s *TokenService) TTL() time.Duration { return s.ttl }

// Issue signs a token for userID with the service's TTL.
func (s *TokenService) Issue(userID string) (string, error) {
	return s.IssueFor(userID, s.ttl)
}

// IssueFor signs a token for userID that expires after d. A negative d yields
// an already-expired token, which tests use.
func (s *TokenService) IssueFor(userID string, d time.Duration) (string, error) {
	now := time.Now()
	c := jwt.RegisteredClaims{
		Subject:   userID,
		Issuer:    issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(d)),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}
	return signed, nil
}

// Validate verifies tokenStr and returns the user ID it was issued for.
//
// Only HS256 tokens from this issuer with an expiry are accepted. Pinning
// the method closes the "alg: none" hole.
func (s *TokenService) Validate(tokenStr string) (string, error) {
	var c jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&c,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", fmt.Errorf("auth: invalid token: %w", err)
	}
	if !token.Valid || c.Subject == "" {
		return "", errors.New("auth: token has no subject")
	}
	return c.Subject, nil
}

// SetSessionCookie writes the session cookie. secure should be true whenever
// the app is served over HTTPS.
func SetSessionCookie(w http.ResponseWriter, token string, ttl time.Duration, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie expires the session cookie in the browser.
func ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
