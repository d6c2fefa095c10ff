// Package auth issues and validates the HS256 session tokens that
// authenticate callers of the link-issuing API. The token service is an
// explicitly constructed, immutable object: tests build independent
// instances with distinct secrets.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const defaultIssuer = "benefits-navigator"

// ErrInvalidToken indicates the token failed validation.
var ErrInvalidToken = errors.New("auth: invalid token")

// Claims are the JWT claims carried by session tokens.
type Claims struct {
	jwt.RegisteredClaims
}

// UserID returns the numeric subject.
func (c *Claims) UserID() (int64, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return 0, ErrInvalidToken
	}
	return id, nil
}

// Service signs and parses session tokens with a fixed secret.
type Service struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithIssuer overrides the issuer claim.
func WithIssuer(issuer string) Option {
	return func(s *Service) {
		if issuer != "" {
			s.issuer = issuer
		}
	}
}

// WithClock overrides the time source, for expiry tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService constructs a Service. An empty secret is a fatal
// configuration error.
func NewService(secret []byte, opts ...Option) (*Service, error) {
	if len(secret) == 0 {
		return nil, errors.New("auth: secret is not configured")
	}
	s := &Service{
		secret: append([]byte(nil), secret...),
		issuer: defaultIssuer,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// GenerateToken signs a session JWT for the given user using HS256.
func (s *Service) GenerateToken(userID int64, ttl time.Duration) (string, error) {
	if userID <= 0 {
		return "", errors.New("auth: userID is required")
	}
	if ttl <= 0 {
		return "", errors.New("auth: ttl must be greater than zero")
	}

	now := s.now().UTC()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ParseAndValidate verifies the token signature and required claims. All
// failures collapse into ErrInvalidToken.
func (s *Service) ParseAndValidate(token string) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidToken
	}

	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if err := s.validateClaims(claims); err != nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (s *Service) validateClaims(claims *Claims) error {
	if claims.Issuer != s.issuer {
		return fmt.Errorf("unexpected issuer: %s", claims.Issuer)
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return errors.New("subject missing")
	}
	if claims.ExpiresAt == nil || claims.IssuedAt == nil {
		return errors.New("timestamps missing")
	}
	now := s.now().UTC()
	if now.After(claims.ExpiresAt.Time) {
		return errors.New("token expired")
	}
	// Allow a small clock skew of 5 seconds when validating issued-at.
	if claims.IssuedAt.Time.After(now.Add(5 * time.Second)) {
		return errors.New("token issued in the future")
	}
	if claims.ExpiresAt.Time.Before(claims.IssuedAt.Time) {
		return errors.New("token expiry precedes issued-at")
	}
	if _, err := claims.UserID(); err != nil {
		return errors.New("subject is not a user id")
	}
	return nil
}
