package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"aurenix/internal/config"
	"aurenix/internal/ids"
	"aurenix/internal/models"
	"aurenix/internal/repository"
	"aurenix/internal/security"
)

// touchEvery bounds how often a busy session writes its last-seen time.
const touchEvery = time.Minute

type SessionMeta struct {
	IPAddress string
	UserAgent string
}

// SessionManager keeps sessions server side. The client only ever holds a
// signed token naming the session id.
type SessionManager struct {
	sessions    SessionStore
	users       UserStore
	secret      string
	ttl         time.Duration
	maxSessions int
	log         zerolog.Logger
	now         func() time.Time
}

func NewSessionManager(sessions SessionStore, users UserStore, cfg config.SecurityConfig, log zerolog.Logger) *SessionManager {
	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &SessionManager{
		sessions:    sessions,
		users:       users,
		secret:      cfg.SessionSecret,
		ttl:         ttl,
		maxSessions: cfg.MaxSessions,
		log:         log,
		now:         time.Now,
	}
}

func (m *SessionManager) TTL() time.Duration {
	return m.ttl
}

// Establish opens a new session for userID. Every login gets a fresh id.
func (m *SessionManager) Establish(ctx context.Context, userID string, meta SessionMeta) (string, models.Session, error) {
	session := models.Session{
		ID:        ids.New(),
		UserID:    userID,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
		ExpiresAt: m.now().Add(m.ttl),
	}

	token, err := security.GenerateSessionToken(m.secret, session.ID, session.ExpiresAt)
	if err != nil {
		return "", models.Session{}, err
	}
	if err := m.sessions.Create(ctx, session); err != nil {
		return "", models.Session{}, err
	}

	if err := m.enforceSessionLimit(ctx, userID); err != nil {
		m.log.Warn().Err(err).Str("user_id", userID).Msg("enforce session limit failed")
	}
	return token, session, nil
}

func (m *SessionManager) enforceSessionLimit(ctx context.Context, userID string) error {
	if m.maxSessions <= 0 {
		return nil
	}
	count, err := m.sessions.CountByUser(ctx, userID)
	if err != nil {
		return err
	}
	if count <= m.maxSessions {
		return nil
	}
	return m.sessions.DeleteOldestSessions(ctx, userID, m.maxSessions)
}

// Resolve rehydrates the identity behind token from the stores. Any token
// that does not lead to a live session and user yields ErrNoSession.
func (m *SessionManager) Resolve(ctx context.Context, token string, meta SessionMeta) (Identity, error) {
	if token == "" {
		return Identity{}, ErrNoSession
	}
	sessionID, err := security.ParseSessionToken(token, m.secret)
	if err != nil {
		return Identity{}, ErrNoSession
	}

	session, err := m.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return Identity{}, ErrNoSession
		}
		return Identity{}, err
	}

	now := m.now()
	if session.Expired(now) {
		m.discard(ctx, session.ID)
		return Identity{}, ErrNoSession
	}

	user, err := m.users.GetByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			m.discard(ctx, session.ID)
			return Identity{}, ErrNoSession
		}
		return Identity{}, err
	}

	if now.Sub(session.LastSeenAt) >= touchEvery {
		if err := m.sessions.Touch(ctx, session.ID, meta.IPAddress, meta.UserAgent); err != nil {
			m.log.Warn().Err(err).Str("session_id", session.ID).Msg("touch session failed")
		}
	}

	return NewIdentity(user, session.ID), nil
}

// Destroy ends the session named by token. Unknown or invalid tokens are
// already logged out.
func (m *SessionManager) Destroy(ctx context.Context, token string) error {
	sessionID, err := security.ParseSessionToken(token, m.secret)
	if err != nil {
		return nil
	}
	if err := m.sessions.DeleteByID(ctx, sessionID); err != nil && !errors.Is(err, repository.ErrSessionNotFound) {
		return err
	}
	return nil
}

func (m *SessionManager) discard(ctx context.Context, sessionID string) {
	if err := m.sessions.DeleteByID(ctx, sessionID); err != nil && !errors.Is(err, repository.ErrSessionNotFound) {
		m.log.Warn().Err(err).Str("session_id", sessionID).Msg("discard session failed")
	}
}
