package session

import (
	"context"
	"sync"

	"github.com/2beens/gymstreak/internal/streak"

	log "github.com/sirupsen/logrus"
)

var _ streak.LiveSessions = (*Manager)(nil)

// userSessions is the one session of a user and the tokens bound to it.
type userSessions struct {
	session *Session
	tokens  map[string]struct{}
}

// Manager maps session tokens to the sessions of signed in users. All tokens
// of a user share one session, so there is a single cached streak per user.
type Manager struct {
	deps Deps

	mutex  sync.RWMutex
	tokens map[string]string // token -> user id
	users  map[string]*userSessions
}

func NewManager(deps Deps) *Manager {
	return &Manager{
		deps:   deps,
		tokens: make(map[string]string),
		users:  make(map[string]*userSessions),
	}
}

// SignIn binds token to the session of userID, loading it when the user has
// none yet.
func (m *Manager) SignIn(ctx context.Context, token, userID string) error {
	if _, err := m.open(ctx, token, userID); err != nil {
		return err
	}
	log.Debugf("session signed in for user [%s]", userID)
	return nil
}

func (m *Manager) Get(token string) (*Session, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.getLocked(token)
}

func (m *Manager) getLocked(token string) (*Session, bool) {
	userID, ok := m.tokens[token]
	if !ok {
		return nil, false
	}
	return m.users[userID].session, true
}

// Session returns the session under token, loading it when the token is
// valid but unknown here, e.g. after a restart.
func (m *Manager) Session(ctx context.Context, token, userID string) (*Session, error) {
	m.mutex.RLock()
	s, ok := m.getLocked(token)
	m.mutex.RUnlock()
	if ok && s.UserID() == userID {
		return s, nil
	}
	return m.open(ctx, token, userID)
}

func (m *Manager) open(ctx context.Context, token, userID string) (*Session, error) {
	var loaded *Session
	for {
		m.mutex.RLock()
		_, exists := m.users[userID]
		m.mutex.RUnlock()

		if !exists && loaded == nil {
			loaded = New(userID, m.deps)
			if err := loaded.Load(ctx); err != nil {
				return nil, err
			}
		}

		m.mutex.Lock()
		entry, ok := m.users[userID]
		if !ok {
			if loaded == nil {
				// signed out while we looked, load again
				m.mutex.Unlock()
				continue
			}
			entry = &userSessions{session: loaded, tokens: make(map[string]struct{})}
			m.users[userID] = entry
			loaded = nil
		}
		released := m.bindLocked(token, userID, entry)
		s := entry.session
		m.mutex.Unlock()

		// lost the race to another loader
		if loaded != nil {
			loaded.Close()
		}
		if released != nil {
			released.Close()
		}
		m.updateGauge()
		return s, nil
	}
}

// bindLocked points token at entry and returns the session the token used to
// hold when no other token keeps it alive.
func (m *Manager) bindLocked(token, userID string, entry *userSessions) *Session {
	var released *Session
	if previous, ok := m.tokens[token]; ok && previous != userID {
		released = m.unbindLocked(token)
	}
	m.tokens[token] = userID
	entry.tokens[token] = struct{}{}
	return released
}

func (m *Manager) unbindLocked(token string) *Session {
	userID, ok := m.tokens[token]
	if !ok {
		return nil
	}
	delete(m.tokens, token)

	entry := m.users[userID]
	delete(entry.tokens, token)
	if len(entry.tokens) > 0 {
		return nil
	}
	delete(m.users, userID)
	return entry.session
}

// SignOut unbinds token. The user's session is torn down with its last
// token. Unknown tokens are ignored.
func (m *Manager) SignOut(token string) {
	m.mutex.Lock()
	released := m.unbindLocked(token)
	m.mutex.Unlock()

	if released == nil {
		return
	}
	released.Close()
	m.updateGauge()
	log.Debugf("session signed out for user [%s]", released.UserID())
}

// RepairLive recomputes the streak of userID in its live session, if any.
func (m *Manager) RepairLive(ctx context.Context, userID string) (bool, error) {
	m.mutex.RLock()
	entry, ok := m.users[userID]
	m.mutex.RUnlock()
	if !ok {
		return false, nil
	}

	if _, err := entry.session.RecomputeStreak(ctx); err != nil {
		return true, err
	}
	return true, nil
}

// Len is the number of users with a live session.
func (m *Manager) Len() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.users)
}

// Close tears down every session.
func (m *Manager) Close() {
	m.mutex.Lock()
	users := m.users
	m.users = make(map[string]*userSessions)
	m.tokens = make(map[string]string)
	m.mutex.Unlock()

	for _, entry := range users {
		entry.session.Close()
	}
	m.updateGauge()
}

func (m *Manager) updateGauge() {
	if m.deps.Metrics != nil {
		m.deps.Metrics.GaugeActiveSessions.Set(float64(m.Len()))
	}
}
