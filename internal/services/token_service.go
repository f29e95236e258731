package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/dgrijalva/jwt-go"
)

// ErrTokenDecode is returned when a token is malformed or its signature does
// not verify.
var ErrTokenDecode = errors.New("token could not be decoded")

// TokenService issues and validates HMAC-signed, expiring bearer tokens.
// It keeps no state beyond its configuration.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenService creates a TokenService signing with secret; issued tokens
// expire after ttl.
func NewTokenService(secret string, ttl time.Duration) *TokenService {
	return &TokenService{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// WithClock returns a copy of the service reading time from now.
func (s *TokenService) WithClock(now func() time.Time) *TokenService {
	cp := *s
	cp.now = now
	return &cp
}

// TTL returns the lifetime of issued tokens.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// Issue signs a token for subject, valid from now until now+TTL.
func (s *TokenService) Issue(subject string) (string, error) {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.StandardClaims{
		Subject:   subject,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(s.ttl).Unix(),
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Validate reports whether token carries expectedSubject and has not yet
// expired. Any decoding failure yields false.
func (s *TokenService) Validate(tokenString, expectedSubject string) bool {
	claims, err := s.decode(tokenString)
	if err != nil {
		return false
	}
	if claims.Subject != expectedSubject {
		return false
	}
	return s.now().Before(time.Unix(claims.ExpiresAt, 0))
}

// SubjectOf returns the subject embedded in token.
func (s *TokenService) SubjectOf(tokenString string) (string, error) {
	claims, err := s.decode(tokenString)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// ExpiryOf returns the expiry embedded in token.
func (s *TokenService) ExpiryOf(tokenString string) (time.Time, error) {
	claims, err := s.decode(tokenString)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(claims.ExpiresAt, 0), nil
}

// decode verifies the signature only. Expiry is checked by Validate against
// the service clock rather than by the jwt library.
func (s *TokenService) decode(tokenString string) (*jwt.StandardClaims, error) {
	parser := &jwt.Parser{SkipClaimsValidation: true}
	claims := &jwt.StandardClaims{}
	token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenDecode, err)
	}
	if !token.Valid {
		return nil, ErrTokenDecode
	}
	return claims, nil
}
