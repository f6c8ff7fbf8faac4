package utils // package utils provides helper functions for session token creation and hashing

import (
	"crypto/rand"   // secure random number generation
	"crypto/sha256" // SHA-256 hashing for session tokens
	"encoding/hex"  // hex encoding functions
	"errors"        // sentinel error for invalid cookies
	"time"          // time utilities for generating expirations

	"github.com/golang-jwt/jwt/v5" // JWT library for signing the cookie value
)

// SessionToken is a freshly issued server-side session.  Raw is the random
// token handed to the client (wrapped in a signed cookie); only its SHA-256
// hash is stored in the database.  Exp records when the session expires.
type SessionToken struct {
	Raw string    // raw token string, never persisted
	Exp time.Time // UTC expiration time
}

// ErrBadCookie is returned when a session cookie fails signature or shape
// checks.  Callers treat it as an unauthenticated request.
var ErrBadCookie = errors.New("invalid session cookie")

// NewSessionToken returns a cryptographically random session token with the
// given time to live.
func NewSessionToken(ttl time.Duration) (SessionToken, error) {
	raw, err := randomHex(32) // 32 bytes -> 64 hex chars
	if err != nil {
		return SessionToken{}, err
	}
	return SessionToken{Raw: raw, Exp: time.Now().UTC().Add(ttl)}, nil
}

// HashSessionRaw returns the SHA-256 hash of the raw session token as a hex
// string.  Storing only the hash prevents stolen database rows from being
// replayed as live sessions.
func HashSessionRaw(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// SignSessionCookie wraps the raw session token in a compact HS256 JWT.
// The signature lets the server reject tampered cookies before touching
// the database; the session itself stays bound server-side.
func SignSessionCookie(secret, raw string, exp time.Time) (string, error) {
	claims := jwt.MapClaims{
		"sid": raw,
		"exp": exp.Unix(),
		"iat": time.Now().UTC().Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(secret))
}

// ParseSessionCookie verifies the cookie signature and returns the raw
// session token carried in the sid claim.  Any parse or signature failure
// yields ErrBadCookie.
func ParseSessionCookie(secret, cookie string) (string, error) {
	tok, err := jwt.Parse(cookie, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrBadCookie
		}
		return []byte(secret), nil
	})
	if err != nil || !tok.Valid {
		return "", ErrBadCookie
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrBadCookie
	}
	raw, ok := claims["sid"].(string)
	if !ok || raw == "" {
		return "", ErrBadCookie
	}
	return raw, nil
}

// randomHex returns a hex-encoded string generated from n bytes of
// cryptographically secure random data.
func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
