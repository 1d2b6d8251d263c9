// Package session keys chat transcripts to browsers with a signed cookie.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"splitbill/internal/log"
)

const (
	CookieName      = "splitbill_session"
	DefaultLifetime = 30 * 24 * time.Hour
	issuer          = "splitbill"
)

var ErrInvalidToken = errors.New("invalid or expired session token")

type contextKey struct{}

// Claims carries the session id in the standard subject claim.
type Claims struct {
	jwt.RegisteredClaims
}

// Manager issues and validates HS256 session tokens.
type Manager struct {
	secret   []byte
	lifetime time.Duration
	secure   bool
	now      func() time.Time
	logger   *log.Logger
}

type Option func(*Manager)

// WithSecureCookie marks the cookie Secure, for deployments behind TLS.
func WithSecureCookie(secure bool) Option {
	return func(m *Manager) { m.secure = secure }
}

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func WithLogger(l *log.Logger) Option {
	return func(m *Manager) { m.logger = l.WithComponent(log.ComponentSession) }
}

func NewManager(secret string, lifetime time.Duration, opts ...Option) *Manager {
	if lifetime <= 0 {
		lifetime = DefaultLifetime
	}
	m := &Manager{
		secret:   []byte(secret),
		lifetime: lifetime,
		now:      time.Now,
		logger:   log.Discard(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Issue signs a token for id.
func (m *Manager) Issue(id string) (string, error) {
	now := m.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.lifetime)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}

// Parse validates a token and returns its session id.
func (m *Manager) Parse(token string) (string, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{},
		func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return m.secret, nil
		},
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return "", ErrInvalidToken
	}
	if _, err := uuid.Parse(claims.Subject); err != nil {
		return "", fmt.Errorf("%w: bad subject", ErrInvalidToken)
	}
	return claims.Subject, nil
}

// Middleware makes sure every request has a session id, starting a new
// session when the cookie is missing or does not validate.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie(CookieName); err == nil {
			id, err := m.Parse(c.Value)
			if err == nil {
				next.ServeHTTP(w, r.WithContext(WithID(r.Context(), id)))
				return
			}
			m.logger.DebugContext(r.Context(), "Discarding session cookie", log.FieldError, err)
		}

		id := uuid.NewString()
		token, err := m.Issue(id)
		if err != nil {
			m.logger.ErrorContext(r.Context(), "Failed to issue session", log.FieldError, err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		http.SetCookie(w, &http.Cookie{
			Name:     CookieName,
			Value:    token,
			Path:     "/",
			HttpOnly: true,
			Secure:   m.secure,
			SameSite: http.SameSiteLaxMode,
			Expires:  m.now().Add(m.lifetime),
		})
		next.ServeHTTP(w, r.WithContext(WithID(r.Context(), id)))
	})
}

func WithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// ID returns the session id stored by Middleware.
func ID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(contextKey{}).(string)
	return id, ok && id != ""
}
