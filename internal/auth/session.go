package auth

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/leadsync/leadsync/internal/models"
	"github.com/leadsync/leadsync/internal/store"
)

// SessionCookieName is the cookie carrying the session id.
const SessionCookieName = "session_id"

// SessionManager issues and resolves store-backed browser sessions.
type SessionManager struct {
	store store.Store
	ttl   time.Duration
}

// NewSessionManager creates a session manager with the given TTL.
func NewSessionManager(s store.Store, ttl time.Duration) *SessionManager {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SessionManager{store: s, ttl: ttl}
}

// Create issues a new session for a user.
func (m *SessionManager) Create(ctx context.Context, userID string) (*models.Session, error) {
	now := time.Now().UTC()
	session := &models.Session{
		ID:        uuid.New().String(),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}
	if err := m.store.SaveSession(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// Resolve returns the session for an id, or nil when it does not exist
// or has expired. Expired sessions are removed on lookup.
func (m *SessionManager) Resolve(ctx context.Context, sessionID string) (*models.Session, error) {
	session, err := m.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, nil
	}
	if session.Expired(time.Now().UTC()) {
		_ = m.store.DeleteSession(ctx, sessionID)
		return nil, nil
	}
	return session, nil
}

// Destroy removes a session.
func (m *SessionManager) Destroy(ctx context.Context, sessionID string) error {
	return m.store.DeleteSession(ctx, sessionID)
}

// Cookie builds the session cookie for a session. An expired time in the
// past clears the cookie.
func (m *SessionManager) Cookie(session *models.Session, secure bool) *http.Cookie {
	cookie := &http.Cookie{
		Name:     SessionCookieName,
		Path:     "/",
		Secure:   secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if session == nil {
		cookie.Expires = time.Unix(1, 0)
		cookie.MaxAge = -1
		return cookie
	}
	cookie.Value = session.ID
	cookie.Expires = session.ExpiresAt
	cookie.MaxAge = int(time.Until(session.ExpiresAt).Seconds())
	return cookie
}
