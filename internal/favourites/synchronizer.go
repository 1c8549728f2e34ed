// Package favourites keeps a per-session cache of favourited matches in sync with the remote store.
package favourites

import (
	"context"
	"sync"
	"time"

	"github.com/giannis84/matchday-favourites/internal/logging"
	"github.com/giannis84/matchday-favourites/internal/metrics"
	"github.com/giannis84/matchday-favourites/internal/models"
	"github.com/giannis84/matchday-favourites/internal/store"
	"golang.org/x/sync/singleflight"
)

const (
	opAdd    = "add"
	opRemove = "remove"
	// opToggle is resolved to opAdd or opRemove under the lock that claims the match.
	opToggle = "toggle"
)

// Options configures a Synchronizer.
type Options struct {
	// Optimistic applies a mutation to the cache before the remote store answers
	// and rolls it back on failure. When false the cache only changes after a refetch.
	Optimistic bool
	Metrics    *metrics.Metrics
}

type mutationKey struct {
	user  models.UserID
	match models.MatchID
}

// Synchronizer owns the favourites cache of one user session.
// It is safe for concurrent use.
type Synchronizer struct {
	store      store.Store
	userID     models.UserID
	optimistic bool
	metrics    *metrics.Metrics

	mu       sync.RWMutex
	caches   map[models.UserID]*collection
	inFlight map[mutationKey]struct{}
	// gen is bumped on every invalidation; fetches started under an older gen are not cached.
	gen uint64
	// clears is bumped by Clear; mutations that straddle a Clear leave the cache empty.
	clears uint64

	fetches singleflight.Group
}

// NewSynchronizer returns a Synchronizer for userID backed by st.
func NewSynchronizer(st store.Store, userID models.UserID, opts Options) *Synchronizer {
	return &Synchronizer{
		store:      st,
		userID:     userID,
		optimistic: opts.Optimistic,
		metrics:    opts.Metrics,
		caches:     make(map[models.UserID]*collection),
		inFlight:   make(map[mutationKey]struct{}),
	}
}

// UserID returns the session user the synchronizer was created for.
func (s *Synchronizer) UserID() models.UserID { return s.userID }

// ListFavourites returns the cached favourites of userID, fetching them on first access
// or after an invalidation. A missing userID is a logged no-op returning an empty collection.
func (s *Synchronizer) ListFavourites(ctx context.Context, userID models.UserID) ([]*models.FavouriteRecord, error) {
	if userID == 0 {
		logging.Log(ctx).Layer("synchronizer").Op("listFavourites").
			Warn("no user for favourites lookup; returning empty collection")
		return []*models.FavouriteRecord{}, nil
	}

	s.mu.RLock()
	c, ok := s.caches[userID]
	if ok && !c.stale {
		out := c.snapshot()
		s.mu.RUnlock()
		return out, nil
	}
	s.mu.RUnlock()

	return s.fetch(ctx, userID)
}

// Refresh discards the cached favourites of userID and fetches them again.
func (s *Synchronizer) Refresh(ctx context.Context, userID models.UserID) ([]*models.FavouriteRecord, error) {
	if userID == 0 {
		logging.Log(ctx).Layer("synchronizer").Op("refreshFavourites").
			Warn("no user for favourites refresh; returning empty collection")
		return []*models.FavouriteRecord{}, nil
	}
	s.invalidate(userID)
	return s.fetch(ctx, userID)
}

// IsFavourite reports whether matchID is in the session user's cached collection.
func (s *Synchronizer) IsFavourite(matchID models.MatchID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.caches[s.userID]
	return ok && c.has(matchID)
}

// IsPending reports whether a mutation for matchID is in flight for the session user.
func (s *Synchronizer) IsPending(matchID models.MatchID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.inFlight[mutationKey{user: s.userID, match: matchID}]
	return ok
}

// Status returns the UI view of matchID.
func (s *Synchronizer) Status(matchID models.MatchID) models.FavouriteStatus {
	return models.FavouriteStatus{
		MatchID:   matchID,
		Favourite: s.IsFavourite(matchID),
		Pending:   s.IsPending(matchID),
	}
}

// Toggle adds matchID to the session user's favourites if absent, removes it otherwise.
// At most one mutation is sent per call; a toggle racing another mutation of the same
// match returns OutcomeBusy without contacting the store.
func (s *Synchronizer) Toggle(ctx context.Context, matchID models.MatchID) Result {
	if res, invalid := s.validate(ctx, "toggleFavourite", matchID, s.userID); invalid {
		return res
	}

	if _, err := s.ListFavourites(ctx, s.userID); err != nil {
		s.metrics.ObserveMutation("toggle", OutcomeFailed.String())
		logging.Log(ctx).Layer("synchronizer").Op("toggleFavourite").User(s.userID).Match(matchID).Err(err).
			Warn("cannot resolve favourite state; toggle not sent")
		return Result{Outcome: OutcomeFailed, MatchID: matchID, Err: err}
	}

	return s.mutate(ctx, opToggle, matchID, s.userID)
}

// Add favourites matchID for userID.
func (s *Synchronizer) Add(ctx context.Context, matchID models.MatchID, userID models.UserID) Result {
	if res, invalid := s.validate(ctx, "addFavourite", matchID, userID); invalid {
		return res
	}
	return s.mutate(ctx, opAdd, matchID, userID)
}

// Remove un-favourites matchID for userID.
func (s *Synchronizer) Remove(ctx context.Context, matchID models.MatchID, userID models.UserID) Result {
	if res, invalid := s.validate(ctx, "removeFavourite", matchID, userID); invalid {
		return res
	}
	return s.mutate(ctx, opRemove, matchID, userID)
}

// Clear drops every cached collection. Used when the session ends.
func (s *Synchronizer) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.caches = make(map[models.UserID]*collection)
	s.gen++
	s.clears++
}

func (s *Synchronizer) validate(ctx context.Context, op string, matchID models.MatchID, userID models.UserID) (Result, bool) {
	err := Validate(
		func() string { return RequirePositive("user_id", int64(userID)) },
		func() string { return RequirePositive("match_id", int64(matchID)) },
	)
	if err == nil {
		return Result{}, false
	}
	s.metrics.ObserveMutation(op, OutcomeSkipped.String())
	logging.Log(ctx).Layer("synchronizer").Op(op).User(userID).Match(matchID).Err(err).
		Warn("favourite mutation skipped")
	return Result{Outcome: OutcomeSkipped, MatchID: matchID, Err: err}, true
}

// mutate sends exactly one mutation, then invalidates and refetches the cache of userID.
func (s *Synchronizer) mutate(ctx context.Context, op string, matchID models.MatchID, userID models.UserID) Result {
	key := mutationKey{user: userID, match: matchID}
	log := logging.Log(ctx).Layer("synchronizer").User(userID).Match(matchID)

	s.mu.Lock()
	if _, busy := s.inFlight[key]; busy {
		s.mu.Unlock()
		s.metrics.ObserveMutation(op, OutcomeBusy.String())
		log.Op(op + "Favourite").Outcome(OutcomeBusy.String()).Info("favourite mutation already in flight")
		return Result{Outcome: OutcomeBusy, MatchID: matchID}
	}
	s.inFlight[key] = struct{}{}
	epoch := s.clears
	if op == opToggle {
		op = opAdd
		if c, ok := s.caches[userID]; ok && c.has(matchID) {
			op = opRemove
		}
	}
	log.Op(op + "Favourite")
	undo := s.applyOptimistic(op, matchID, userID)
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.inFlight, key)
		s.mu.Unlock()
	}()

	start := time.Now()
	var (
		added *models.FavouriteRecord
		err   error
	)
	switch op {
	case opAdd:
		added, err = s.store.AddFavourite(ctx, matchID, userID)
	default:
		err = s.store.RemoveFavourite(ctx, matchID, userID)
	}
	elapsed := time.Since(start)

	s.mu.Lock()
	cleared := s.clears != epoch
	switch {
	case cleared:
	case err != nil:
		if undo != nil {
			undo()
		}
	default:
		s.applyAcknowledged(op, matchID, userID, added)
	}
	s.mu.Unlock()

	// The mutation result is known; only now is the cache invalidated and refetched.
	// A session cleared meanwhile stays empty.
	if !cleared {
		s.invalidate(userID)
		if _, ferr := s.fetch(ctx, userID); ferr != nil {
			logging.Log(ctx).Layer("synchronizer").Op(op+"Favourite").User(userID).Match(matchID).Err(ferr).
				Warn("favourites refetch after mutation failed; cache left stale")
		}
	}

	if err != nil {
		s.metrics.ObserveMutation(op, OutcomeFailed.String())
		log.Outcome(OutcomeFailed.String()).Dur("elapsed", elapsed).Err(err).
			Error("favourite mutation failed")
		return Result{Outcome: OutcomeFailed, MatchID: matchID, Err: err}
	}

	outcome := OutcomeAdded
	if op == opRemove {
		outcome = OutcomeRemoved
	}
	s.metrics.ObserveMutation(op, outcome.String())
	log.Outcome(outcome.String()).Dur("elapsed", elapsed).Info("favourite mutation acknowledged")
	return Result{Outcome: outcome, MatchID: matchID}
}

// applyOptimistic changes the cached collection ahead of the remote answer and
// returns the rollback to the last known-good state. Caller holds s.mu.
func (s *Synchronizer) applyOptimistic(op string, matchID models.MatchID, userID models.UserID) func() {
	if !s.optimistic {
		return nil
	}
	c, ok := s.caches[userID]
	if !ok {
		return nil
	}

	switch op {
	case opAdd:
		if c.has(matchID) {
			return nil
		}
		c.insert(0, &models.FavouriteRecord{MatchID: matchID, UserID: userID, IsActive: true})
		return func() {
			if cur, ok := s.caches[userID]; ok {
				cur.remove(matchID)
			}
		}
	default:
		rec, pos := c.remove(matchID)
		if rec == nil {
			return nil
		}
		return func() {
			if cur, ok := s.caches[userID]; ok {
				cur.insert(pos, rec)
			}
		}
	}
}

// applyAcknowledged reflects a mutation the store confirmed, so a failed refetch
// does not leave the opposite state visible. Caller holds s.mu.
func (s *Synchronizer) applyAcknowledged(op string, matchID models.MatchID, userID models.UserID, added *models.FavouriteRecord) {
	c, ok := s.caches[userID]
	if !ok {
		return
	}
	switch op {
	case opAdd:
		if added == nil {
			added = &models.FavouriteRecord{MatchID: matchID, UserID: userID, IsActive: true}
		}
		c.remove(matchID)
		c.insert(0, added)
	default:
		c.remove(matchID)
	}
}

// invalidate marks the cached collection of userID stale and makes sure the next
// fetch does not join a request that started before the invalidation.
func (s *Synchronizer) invalidate(userID models.UserID) {
	s.mu.Lock()
	if c, ok := s.caches[userID]; ok {
		c.stale = true
	}
	s.gen++
	s.mu.Unlock()

	s.fetches.Forget(userID.String())
}

// fetch loads the favourites of userID through a flight shared by concurrent callers.
// The flight outlives any single caller and fills the cache itself; each caller stops
// waiting when its own ctx ends.
func (s *Synchronizer) fetch(ctx context.Context, userID models.UserID) ([]*models.FavouriteRecord, error) {
	s.mu.RLock()
	gen := s.gen
	s.mu.RUnlock()

	flightCtx := context.WithoutCancel(ctx)
	ch := s.fetches.DoChan(userID.String(), func() (any, error) {
		// A flight that finished just before this one started may already have filled the cache.
		s.mu.RLock()
		if c, ok := s.caches[userID]; ok && !c.stale && s.gen == gen {
			fresh := newCollection(c.records)
			s.mu.RUnlock()
			return fresh, nil
		}
		s.mu.RUnlock()

		records, err := s.store.ListFavourites(flightCtx, userID)
		if err != nil {
			return nil, err
		}
		fetched := newCollection(records)
		s.mu.Lock()
		if s.gen == gen {
			s.caches[userID] = newCollection(fetched.records)
		}
		s.mu.Unlock()
		return fetched, nil
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		res.Err = &store.FetchError{Op: store.OpList, Err: ctx.Err()}
	}
	if res.Err != nil {
		s.metrics.ObserveFetch("error")
		logging.Log(ctx).Layer("synchronizer").Op("fetchFavourites").User(userID).Err(res.Err).
			Error("failed to fetch favourites")
		return nil, res.Err
	}
	s.metrics.ObserveFetch("ok")

	// The shared result is never modified; the flight installed its own copy.
	return res.Val.(*collection).snapshot(), nil
}
