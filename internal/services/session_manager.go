package services

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"costtracker/internal/cache"
	"costtracker/internal/core"
	"costtracker/internal/log"
)

const (
	// SessionTTL is the absolute session lifetime. It is never extended.
	SessionTTL = 24 * time.Hour

	// SessionCookieName is the name of the session cookie.
	SessionCookieName = "costtracker_sid"

	tokenBytes = 32
)

// IssuedSession is a freshly created session and the cookie value naming it.
type IssuedSession struct {
	CookieValue string
	ExpiresAt   time.Time
	Identity    core.Identity
}

// SessionManager issues signed session tokens backed by a SessionStore.
type SessionManager struct {
	store        SessionStore
	secret       []byte
	secureCookie bool
	now          func() time.Time
	logger       *log.Logger
	cache        cache.Cache[core.Session]
}

// SessionOption customises a SessionManager.
type SessionOption func(*SessionManager)

// WithClock replaces time.Now. Used by tests to move past expiry.
func WithClock(now func() time.Time) SessionOption {
	return func(m *SessionManager) { m.now = now }
}

// WithLogger sets the logger.
func WithLogger(logger *log.Logger) SessionOption {
	return func(m *SessionManager) { m.logger = logger.WithComponent(log.ComponentSession) }
}

// WithCache keeps resolved sessions in c so repeat requests skip the store.
// Expiry is still checked on every hit.
func WithCache(c cache.Cache[core.Session]) SessionOption {
	return func(m *SessionManager) { m.cache = c }
}

// NewSessionManager returns a manager signing cookie values with secret.
// secureCookie marks cookies Secure (production only).
func NewSessionManager(store SessionStore, secret []byte, secureCookie bool, opts ...SessionOption) (*SessionManager, error) {
	if len(secret) == 0 {
		return nil, errors.New("session secret is empty")
	}
	m := &SessionManager{
		store:        store,
		secret:       append([]byte(nil), secret...),
		secureCookie: secureCookie,
		now:          time.Now,
		logger:       log.Discard(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Create stores a new session for identity and returns its signed cookie value.
func (m *SessionManager) Create(ctx context.Context, identity core.Identity) (IssuedSession, error) {
	token, err := generateToken()
	if err != nil {
		return IssuedSession{}, err
	}

	created := m.now().UTC().Truncate(time.Second)
	s := core.Session{
		Token:     token,
		UserID:    identity.ID,
		Username:  identity.Username,
		CreatedAt: created,
		ExpiresAt: created.Add(SessionTTL),
	}
	if err := m.store.CreateSession(ctx, s); err != nil {
		return IssuedSession{}, fmt.Errorf("store session: %w", err)
	}

	m.logger.InfoContext(ctx, "Session created",
		log.FieldUserID, identity.ID,
		log.FieldUsername, identity.Username,
		"expires_at", s.ExpiresAt)

	return IssuedSession{
		CookieValue: token + "." + m.sign(token),
		ExpiresAt:   s.ExpiresAt,
		Identity:    identity,
	}, nil
}

// Resolve maps a cookie value to its identity. Anything that is not a live,
// correctly signed session is core.ErrUnauthorized; store failures are
// returned wrapped.
func (m *SessionManager) Resolve(ctx context.Context, cookieValue string) (core.Identity, error) {
	token, ok := m.verify(cookieValue)
	if !ok {
		return core.Identity{}, core.ErrUnauthorized
	}

	s, cached := m.cached(token)
	if !cached {
		var err error
		s, err = m.store.GetSession(ctx, token)
		if err != nil {
			if errors.Is(err, core.ErrNotFound) {
				return core.Identity{}, core.ErrUnauthorized
			}
			return core.Identity{}, fmt.Errorf("resolve session: %w", err)
		}
	}

	if s.Expired(m.now()) {
		if m.cache != nil {
			m.cache.Delete(token)
		}
		return core.Identity{}, core.ErrUnauthorized
	}
	if !cached && m.cache != nil {
		m.cache.Set(token, s)
	}
	return s.Identity(), nil
}

func (m *SessionManager) cached(token string) (core.Session, bool) {
	if m.cache == nil {
		return core.Session{}, false
	}
	return m.cache.Get(token)
}

// Sweep deletes expired sessions and returns how many were removed.
func (m *SessionManager) Sweep(ctx context.Context) (int64, error) {
	n, err := m.store.DeleteExpiredSessions(ctx, m.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		m.logger.InfoContext(ctx, "Expired sessions removed", log.FieldOperation, log.OpSweep, log.FieldCount, n)
	}
	return n, nil
}

// Cookie builds the Set-Cookie for an issued session.
func (m *SessionManager) Cookie(issued IssuedSession) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    issued.CookieValue,
		Path:     "/",
		Expires:  issued.ExpiresAt,
		MaxAge:   int(SessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   m.secureCookie,
		SameSite: http.SameSiteLaxMode,
	}
}

func (m *SessionManager) sign(token string) string {
	mac := hmac.New(sha256.New, m.secret)
	mac.Write([]byte(token))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func (m *SessionManager) verify(cookieValue string) (string, bool) {
	token, sig, found := strings.Cut(cookieValue, ".")
	if !found || token == "" || sig == "" {
		return "", false
	}
	if !hmac.Equal([]byte(sig), []byte(m.sign(token))) {
		return "", false
	}
	return token, true
}

func generateToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
