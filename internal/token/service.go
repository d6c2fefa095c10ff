package token

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/Beaudoin0zach/benefits-navigator-sub001/internal/signing"
)

const (
	// DefaultExpiryMinutes applies when a grant does not name an expiry.
	DefaultExpiryMinutes = 30
	// MaxExpiryMinutes caps every grant at 24 hours.
	MaxExpiryMinutes = 1440

	defaultAction   = "download"
	defaultRoute    = "document-download"
	defaultBasePath = "/documents/download"
)

var (
	// ErrInvalidToken covers malformed structure, bad signatures and
	// undecodable payloads. Callers get no finer detail.
	ErrInvalidToken = errors.New("token: invalid")
	// ErrTokenExpired marks a token that verified as authentic but whose
	// expiry has passed.
	ErrTokenExpired = errors.New("token: expired")
)

// RouteResolver resolves a symbolic route name plus parameters to a path.
// The second return value is false when the route is unknown, in which
// case the service falls back to a query-string URL.
type RouteResolver interface {
	Resolve(name string, params map[string]string) (string, bool)
}

// Grant describes a token to be issued. Zero values take service defaults:
// Action defaults to "download" and ExpiresInMinutes to the configured
// default. ExpiresInMinutes is clamped to [1, MaxExpiryMinutes]; the
// absolute expiry is always computed server-side.
type Grant struct {
	ResourceType     string
	ResourceID       int64
	UserID           int64
	Action           string
	ExpiresInMinutes int
	ExtraData        map[string]any
}

// Service issues and validates signed access tokens. It is immutable after
// construction and safe for concurrent use; construct one per secret and
// pass it by reference.
type Service struct {
	signer    *signing.Signer
	resolver  RouteResolver
	routeName string
	basePath  string
	now       func() time.Time
	defaultM  int
	maxM      int
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source. Tests use this to cross expiry
// boundaries without sleeping.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithRouteResolver installs the resolver used by GenerateURL.
func WithRouteResolver(r RouteResolver, routeName string) Option {
	return func(s *Service) {
		s.resolver = r
		if routeName != "" {
			s.routeName = routeName
		}
	}
}

// WithBasePath overrides the query-string fallback path.
func WithBasePath(path string) Option {
	return func(s *Service) {
		if path != "" {
			s.basePath = path
		}
	}
}

// WithDefaultExpiry overrides the default grant lifetime in minutes.
func WithDefaultExpiry(minutes int) Option {
	return func(s *Service) {
		if minutes > 0 {
			s.defaultM = minutes
		}
	}
}

// NewService constructs a Service. A missing secret is fatal: the error is
// signing.ErrMissingSecret and nothing may be issued.
func NewService(secret []byte, opts ...Option) (*Service, error) {
	signer, err := signing.New(secret)
	if err != nil {
		return nil, err
	}
	s := &Service{
		signer:    signer,
		routeName: defaultRoute,
		basePath:  defaultBasePath,
		now:       time.Now,
		defaultM:  DefaultExpiryMinutes,
		maxM:      MaxExpiryMinutes,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// GenerateToken issues a signed token for the grant. Tokens are stateless:
// nothing is stored server-side, validity is self-contained.
func (s *Service) GenerateToken(g Grant) (string, error) {
	action := g.Action
	if action == "" {
		action = defaultAction
	}
	minutes := g.ExpiresInMinutes
	if minutes == 0 {
		minutes = s.defaultM
	}
	if minutes < 1 {
		minutes = 1
	}
	if minutes > s.maxM {
		minutes = s.maxM
	}

	payload := Payload{
		ResourceType: g.ResourceType,
		ResourceID:   g.ResourceID,
		UserID:       g.UserID,
		Action:       action,
		ExpiresAt:    s.now().Unix() + int64(minutes)*60,
		ExtraData:    g.ExtraData,
	}
	segment, err := encodePayload(payload)
	if err != nil {
		return "", err
	}
	return segment + "." + s.signer.Sign([]byte(segment)), nil
}

// ValidateToken checks structure, then authenticity, then expiry — in that
// order. Expiry is never inspected before the signature verifies, so a
// probing caller cannot distinguish "valid but expired" from "forged"
// more cheaply than a full signature check.
func (s *Service) ValidateToken(tok string) (Payload, error) {
	payloadSeg, sigSeg, ok := strings.Cut(tok, ".")
	if !ok || payloadSeg == "" || sigSeg == "" || strings.Contains(sigSeg, ".") {
		return Payload{}, ErrInvalidToken
	}
	if !s.signer.Verify([]byte(payloadSeg), sigSeg) {
		return Payload{}, ErrInvalidToken
	}
	payload, err := decodePayload(payloadSeg)
	if err != nil {
		return Payload{}, ErrInvalidToken
	}
	if s.now().Unix() > payload.ExpiresAt {
		return Payload{}, ErrTokenExpired
	}
	return payload, nil
}

// GenerateURL issues a token and embeds it in a resolvable route. When no
// resolver is configured or the route is unknown, it falls back to the
// query-string form.
func (s *Service) GenerateURL(g Grant) (string, error) {
	tok, err := s.GenerateToken(g)
	if err != nil {
		return "", err
	}
	if s.resolver != nil {
		if path, ok := s.resolver.Resolve(s.routeName, map[string]string{"token": tok}); ok {
			return path, nil
		}
	}
	return fmt.Sprintf("%s?token=%s", s.basePath, url.QueryEscape(tok)), nil
}
