package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ShareClaims is what a share token vouches for.
type ShareClaims struct {
	Calendar  string
	Path      string
	ExpiresAt time.Time
}

// SignedURLSigner issues and checks HMAC-signed share tokens for exports.
type SignedURLSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSignedURLSigner constructs a signer with the provided secret and TTL.
func NewSignedURLSigner(secret string, ttl time.Duration) *SignedURLSigner {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SignedURLSigner{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Generate signs a token for the export of calendar stored at path.
func (s *SignedURLSigner) Generate(calendar, path string) (string, time.Time, error) {
	if calendar == "" || path == "" {
		return "", time.Time{}, errors.New("calendar and path required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, errors.New("signing secret missing")
	}
	expiresAt := s.now().Add(s.ttl).Truncate(time.Second)
	fields := []string{
		base64.RawURLEncoding.EncodeToString([]byte(calendar)),
		base64.RawURLEncoding.EncodeToString([]byte(path)),
		strconv.FormatInt(expiresAt.Unix(), 10),
	}
	payload := strings.Join(fields, ".")
	return payload + "." + s.sign(payload), expiresAt, nil
}

// Parse validates a token. With allowExpired the expiry check is skipped,
// which cleanup uses to map old tokens back to files.
func (s *SignedURLSigner) Parse(token string, allowExpired bool) (ShareClaims, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 4 {
		return ShareClaims{}, errors.New("invalid token format")
	}
	payload := strings.Join(parts[:3], ".")
	if !hmac.Equal([]byte(s.sign(payload)), []byte(parts[3])) {
		return ShareClaims{}, errors.New("invalid token signature")
	}
	calendar, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return ShareClaims{}, fmt.Errorf("decode calendar: %w", err)
	}
	path, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return ShareClaims{}, fmt.Errorf("decode path: %w", err)
	}
	exp, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return ShareClaims{}, errors.New("invalid expiry")
	}
	claims := ShareClaims{Calendar: string(calendar), Path: string(path), ExpiresAt: time.Unix(exp, 0)}
	if !allowExpired && s.now().After(claims.ExpiresAt) {
		return ShareClaims{}, errors.New("token expired")
	}
	return claims, nil
}

func (s *SignedURLSigner) sign(payload string) string {
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}
