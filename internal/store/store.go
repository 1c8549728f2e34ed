package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/giannis84/matchday-favourites/internal/models"
)

var (
	ErrNotFound     = errors.New("favourite not found")
	ErrUnauthorized = errors.New("remote store rejected credentials")
)

// Store is the remote source of truth for user favourites.
type Store interface {
	ListFavourites(ctx context.Context, userID models.UserID) ([]*models.FavouriteRecord, error)
	AddFavourite(ctx context.Context, matchID models.MatchID, userID models.UserID) (*models.FavouriteRecord, error)
	RemoveFavourite(ctx context.Context, matchID models.MatchID, userID models.UserID) error
}

// Pinger is implemented by stores that can report readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// FetchError reports that the remote store could not be reached or failed to answer.
// StatusCode is zero for transport failures.
type FetchError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: remote store returned status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// IsFetchError reports whether err is, or wraps, a *FetchError.
func IsFetchError(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe)
}
