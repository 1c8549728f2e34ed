package store

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/giannis84/matchday-favourites/internal/models"
)

var errInjected = errors.New("connection refused")

// Memory is a simple in-memory Store intended for unit tests only.
// Failures can be injected per operation with FailNext.
type Memory struct {
	mu         sync.Mutex
	favourites map[models.UserID]map[models.MatchID]*models.FavouriteRecord
	nextID     int64
	failNext   map[string]int
	calls      map[string]int
	hooks      map[string]func()
}

// Operation names accepted by FailNext, CallCount and OnCall.
const (
	OpList   = "list"
	OpAdd    = "add"
	OpRemove = "remove"
)

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{
		favourites: make(map[models.UserID]map[models.MatchID]*models.FavouriteRecord),
		failNext:   make(map[string]int),
		calls:      make(map[string]int),
		hooks:      make(map[string]func()),
	}
}

// Seed stores active favourites for userID without counting as calls.
func (m *Memory) Seed(userID models.UserID, matchIDs ...models.MatchID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range matchIDs {
		m.insert(id, userID)
	}
}

// FailNext makes the next n calls of op return a transport FetchError.
func (m *Memory) FailNext(op string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext[op] += n
}

// OnCall registers fn to run (without the store lock held) at the start of every op call.
func (m *Memory) OnCall(op string, fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hooks[op] = fn
}

// CallCount returns how many times op was invoked.
func (m *Memory) CallCount(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

func (m *Memory) enter(op string) error {
	m.mu.Lock()
	m.calls[op]++
	hook := m.hooks[op]
	fail := m.failNext[op] > 0
	if fail {
		m.failNext[op]--
	}
	m.mu.Unlock()

	if hook != nil {
		hook()
	}
	if fail {
		return &FetchError{Op: op, Err: errInjected}
	}
	return nil
}

func (m *Memory) ListFavourites(_ context.Context, userID models.UserID) ([]*models.FavouriteRecord, error) {
	if err := m.enter(OpList); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	userFavourites := m.favourites[userID]
	result := make([]*models.FavouriteRecord, 0, len(userFavourites))
	for _, fav := range userFavourites {
		copied := *fav
		result = append(result, &copied)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID > result[j].ID })
	return result, nil
}

func (m *Memory) AddFavourite(_ context.Context, matchID models.MatchID, userID models.UserID) (*models.FavouriteRecord, error) {
	if err := m.enter(OpAdd); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Re-adding an existing favourite is idempotent, like the backend.
	if fav, exists := m.favourites[userID][matchID]; exists {
		copied := *fav
		return &copied, nil
	}
	copied := *m.insert(matchID, userID)
	return &copied, nil
}

func (m *Memory) RemoveFavourite(_ context.Context, matchID models.MatchID, userID models.UserID) error {
	if err := m.enter(OpRemove); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.favourites[userID][matchID]; !exists {
		return ErrNotFound
	}
	delete(m.favourites[userID], matchID)
	return nil
}

// Ping always succeeds.
func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) insert(matchID models.MatchID, userID models.UserID) *models.FavouriteRecord {
	if _, exists := m.favourites[userID]; !exists {
		m.favourites[userID] = make(map[models.MatchID]*models.FavouriteRecord)
	}
	m.nextID++
	fav := &models.FavouriteRecord{
		ID:        m.nextID,
		MatchID:   matchID,
		UserID:    userID,
		IsActive:  true,
		CreatedAt: time.Now(),
		Match:     &models.MatchSnapshot{ID: matchID},
	}
	m.favourites[userID][matchID] = fav
	return fav
}
