package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const defaultSessionTTL = 24 * time.Hour

var (
	ErrInvalidToken = errors.New("auth: invalid token")
	ErrUnauthorized = errors.New("auth: unauthorized")
)

// Principal is the authenticated actor behind a request.
type Principal struct {
	UserID string
}

// Service verifies session tokens issued for the web client. Tokens are
// HS256 JWTs whose subject is the profile id.
type Service struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// Option configures Service behavior.
type Option func(*Service)

// WithSessionTTL overrides the issued token lifetime.
func WithSessionTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithClock overrides the time source (tests).
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates a token service. An empty secret disables token support.
func New(secret string, opts ...Option) *Service {
	s := &Service{
		secret: []byte(strings.TrimSpace(secret)),
		issuer: "leadsniper",
		ttl:    defaultSessionTTL,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SupportsTokens reports whether a signing secret is configured.
func (s *Service) SupportsTokens() bool {
	return s != nil && len(s.secret) > 0
}

// IssueToken signs a session token for the given profile id.
func (s *Service) IssueToken(userID string) (string, error) {
	if !s.SupportsTokens() {
		return "", errors.New("auth: token support disabled")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", errors.New("auth: user id is required")
	}
	now := s.now().UTC()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		Issuer:    s.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, nil
}

// VerifyToken validates a bearer token and returns the principal it names.
func (s *Service) VerifyToken(raw string) (Principal, error) {
	if !s.SupportsTokens() {
		return Principal{}, ErrInvalidToken
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Principal{}, ErrInvalidToken
	}

	parsed, err := jwt.ParseWithClaims(raw, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now), jwt.WithIssuer(s.issuer))
	if err != nil || !parsed.Valid {
		return Principal{}, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || strings.TrimSpace(claims.Subject) == "" {
		return Principal{}, ErrInvalidToken
	}
	return Principal{UserID: claims.Subject}, nil
}
