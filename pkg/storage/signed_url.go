package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SignedURLSigner creates and validates signed file tokens.
type SignedURLSigner struct {
	secret []byte
	ttl    time.Duration
}

// NewSignedURLSigner constructs a signer. A ttl of zero or less issues tokens
// that never expire, which is what stored image references need.
func NewSignedURLSigner(secret string, ttl time.Duration) *SignedURLSigner {
	return &SignedURLSigner{secret: []byte(secret), ttl: ttl}
}

// Generate returns a signed token binding scope and path. The returned time is
// zero for non-expiring tokens.
func (s *SignedURLSigner) Generate(scope, relPath string) (string, time.Time, error) {
	if scope == "" || relPath == "" {
		return "", time.Time{}, fmt.Errorf("scope and relPath required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("signing secret missing")
	}
	var expiresAt time.Time
	var exp int64
	if s.ttl > 0 {
		expiresAt = time.Now().Add(s.ttl)
		exp = expiresAt.Unix()
	}
	encodedPath := base64.RawURLEncoding.EncodeToString([]byte(relPath))
	ts := strconv.FormatInt(exp, 10)
	signature := s.sign(scope, ts, encodedPath)
	return strings.Join([]string{scope, ts, encodedPath, signature}, "."), expiresAt, nil
}

// Parse validates a token and returns the embedded metadata.
// When allowExpired is true, the timestamp check is skipped.
func (s *SignedURLSigner) Parse(token string, allowExpired bool) (scope, relPath string, expiresAt time.Time, err error) {
	parts := strings.Split(token, ".")
	if len(parts) != 4 {
		return "", "", time.Time{}, fmt.Errorf("invalid token format")
	}
	scope, ts, encodedPath, signature := parts[0], parts[1], parts[2], parts[3]

	rawPath, err := base64.RawURLEncoding.DecodeString(encodedPath)
	if err != nil {
		return "", "", time.Time{}, fmt.Errorf("decode path: %w", err)
	}
	exp, err := strconv.ParseInt(ts, 10, 64)
	if err != nil || exp < 0 {
		return "", "", time.Time{}, fmt.Errorf("invalid timestamp")
	}
	if !hmac.Equal([]byte(s.sign(scope, ts, encodedPath)), []byte(signature)) {
		return "", "", time.Time{}, fmt.Errorf("invalid token signature")
	}
	if exp > 0 {
		expiresAt = time.Unix(exp, 0)
		if !allowExpired && time.Now().After(expiresAt) {
			return "", "", time.Time{}, fmt.Errorf("token expired")
		}
	}
	return scope, string(rawPath), expiresAt, nil
}

func (s *SignedURLSigner) sign(scope, ts, encodedPath string) string {
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(scope + "|" + ts + "|" + encodedPath))
	return hex.EncodeToString(mac.Sum(nil))
}
