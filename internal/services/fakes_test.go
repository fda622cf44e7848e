package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"costtracker/internal/core"
)

// memStore implements UserStore, SessionStore and CostStore in memory.
type memStore struct {
	mu       sync.Mutex
	users    map[string]core.User
	sessions map[string]core.Session
	costs    []core.CostRecord
	nextID   int64

	failWith error
}

func newMemStore() *memStore {
	return &memStore{
		users:    make(map[string]core.User),
		sessions: make(map[string]core.Session),
	}
}

func (m *memStore) CreateUser(ctx context.Context, username, hash string) (core.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return core.User{}, m.failWith
	}
	if _, ok := m.users[username]; ok {
		return core.User{}, core.ErrDuplicateUsername
	}
	m.nextID++
	u := core.User{ID: m.nextID, Username: username, PasswordHash: hash}
	m.users[username] = u
	return u, nil
}

func (m *memStore) FindUserByUsername(ctx context.Context, username string) (core.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return core.User{}, m.failWith
	}
	u, ok := m.users[username]
	if !ok {
		return core.User{}, core.ErrNotFound
	}
	return u, nil
}

func (m *memStore) CreateSession(ctx context.Context, s core.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	m.sessions[s.Token] = s
	return nil
}

func (m *memStore) GetSession(ctx context.Context, token string) (core.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return core.Session{}, m.failWith
	}
	s, ok := m.sessions[token]
	if !ok {
		return core.Session{}, core.ErrNotFound
	}
	return s, nil
}

func (m *memStore) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for token, s := range m.sessions {
		if s.Expired(now) {
			delete(m.sessions, token)
			n++
		}
	}
	return n, nil
}

func (m *memStore) CreateCost(ctx context.Context, c core.CostRecord) (core.CostRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return core.CostRecord{}, m.failWith
	}
	m.nextID++
	c.ID = m.nextID
	m.costs = append(m.costs, c)
	return c, nil
}

func (m *memStore) ListCosts(ctx context.Context, userID int64) ([]core.CostRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	out := []core.CostRecord{}
	for _, c := range m.costs {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []core.CostRecord
	err    error
}

func (p *recordingPublisher) PublishCostAdded(ctx context.Context, c core.CostRecord) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, c)
	return p.err
}

var errStoreDown = errors.New("store down")
