// Package session keeps one favourites cache per logged-in client session.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/giannis84/matchday-favourites/internal/favourites"
	"github.com/giannis84/matchday-favourites/internal/logging"
	"github.com/giannis84/matchday-favourites/internal/metrics"
	"github.com/giannis84/matchday-favourites/internal/models"
	"github.com/giannis84/matchday-favourites/internal/store"
	"github.com/google/uuid"
)

var (
	ErrNotFound  = errors.New("session not found")
	ErrForbidden = errors.New("session belongs to another user")
	ErrClosed    = errors.New("session manager closed")
)

// StoreFactory builds the store a session talks to, authenticated with the caller's token.
type StoreFactory func(token string) store.Store

// Session is one client's view of the favourites store.
type Session struct {
	ID         string
	UserID     models.UserID
	Token      string
	CreatedAt  time.Time
	Favourites *favourites.Synchronizer

	lastSeen time.Time
}

// Options configures a Manager.
type Options struct {
	IdleTimeout time.Duration // zero disables expiry
	Favourites  favourites.Options
	Metrics     *metrics.Metrics
	Now         func() time.Time
}

// Manager owns every live session.
type Manager struct {
	factory     StoreFactory
	idleTimeout time.Duration
	favOpts     favourites.Options
	metrics     *metrics.Metrics
	now         func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
	closed   bool
}

func NewManager(factory StoreFactory, opts Options) *Manager {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Manager{
		factory:     factory,
		idleTimeout: opts.IdleTimeout,
		favOpts:     opts.Favourites,
		metrics:     opts.Metrics,
		now:         now,
		sessions:    make(map[string]*Session),
	}
}

// Start opens a session for userID. The cache starts empty and is filled on first use.
func (m *Manager) Start(ctx context.Context, userID models.UserID, token string) (*Session, error) {
	if userID == 0 {
		return nil, &favourites.ValidationError{Errors: []string{"user id is required"}}
	}

	now := m.now()
	sess := &Session{
		ID:         uuid.NewString(),
		UserID:     userID,
		Token:      token,
		CreatedAt:  now,
		Favourites: favourites.NewSynchronizer(m.factory(token), userID, m.favOpts),
		lastSeen:   now,
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrClosed
	}
	m.sweepLocked(now)
	m.sessions[sess.ID] = sess
	count := len(m.sessions)
	m.mu.Unlock()

	m.metrics.SetActiveSessions(count)
	logging.Log(ctx).Layer("session").Op("Start").User(userID).Session(sess.ID).Info("session started")
	return sess, nil
}

// Get returns the session with id if it is still live and belongs to userID.
func (m *Manager) Get(id string, userID models.UserID) (*Session, error) {
	now := m.now()

	m.mu.Lock()
	sess, ok := m.sessions[id]
	if ok && m.expired(sess, now) {
		delete(m.sessions, id)
		sess.Favourites.Clear()
		ok = false
	}
	if ok && sess.UserID == userID {
		sess.lastSeen = now
	}
	count := len(m.sessions)
	m.mu.Unlock()

	m.metrics.SetActiveSessions(count)
	if !ok {
		return nil, ErrNotFound
	}
	if sess.UserID != userID {
		return nil, ErrForbidden
	}
	return sess, nil
}

// End discards the session and its cache. Logging out calls this.
func (m *Manager) End(ctx context.Context, id string, userID models.UserID) error {
	m.mu.Lock()
	sess, ok := m.sessions[id]
	if !ok {
		m.mu.Unlock()
		return ErrNotFound
	}
	if sess.UserID != userID {
		m.mu.Unlock()
		return ErrForbidden
	}
	delete(m.sessions, id)
	count := len(m.sessions)
	m.mu.Unlock()

	sess.Favourites.Clear()
	m.metrics.SetActiveSessions(count)
	logging.Log(ctx).Layer("session").Op("End").User(userID).Session(id).Info("session ended")
	return nil
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Close ends every session. Further Start calls fail with ErrClosed.
func (m *Manager) Close() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.closed = true
	m.mu.Unlock()

	for _, sess := range sessions {
		sess.Favourites.Clear()
	}
	m.metrics.SetActiveSessions(0)
}

func (m *Manager) expired(sess *Session, now time.Time) bool {
	return m.idleTimeout > 0 && now.Sub(sess.lastSeen) > m.idleTimeout
}

// sweepLocked drops idle sessions. Callers hold m.mu.
func (m *Manager) sweepLocked(now time.Time) {
	for id, sess := range m.sessions {
		if m.expired(sess, now) {
			delete(m.sessions, id)
			sess.Favourites.Clear()
		}
	}
}
