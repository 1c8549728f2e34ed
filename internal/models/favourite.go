// Favourite and match model definitions

package models

import (
	"fmt"
	"strconv"
	"time"
)

// MatchID identifies a football match in the remote store. Zero means unset.
type MatchID int64

// UserID identifies a platform user in the remote store. Zero means unset.
type UserID int64

func (id MatchID) String() string { return strconv.FormatInt(int64(id), 10) }
func (id UserID) String() string  { return strconv.FormatInt(int64(id), 10) }

// ParseMatchID parses a positive decimal match identifier.
func ParseMatchID(s string) (MatchID, error) {
	n, err := parsePositiveID(s)
	return MatchID(n), err
}

// ParseUserID parses a positive decimal user identifier.
func ParseUserID(s string) (UserID, error) {
	n, err := parsePositiveID(s)
	return UserID(n), err
}

func parsePositiveID(s string) (int64, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid identifier %q", s)
	}
	if n <= 0 {
		return 0, fmt.Errorf("identifier must be positive, got %d", n)
	}
	return n, nil
}

// FavouriteRecord links a user to a favourited match. JSON names follow the backend wire format.
type FavouriteRecord struct {
	ID        int64          `json:"id_favorito,omitempty"`
	MatchID   MatchID        `json:"id_partido"`
	UserID    UserID         `json:"id_usuario"`
	IsActive  bool           `json:"is_active"`
	CreatedAt time.Time      `json:"created_at"`
	Match     *MatchSnapshot `json:"partido,omitempty"`
}

// MatchSnapshot is the denormalised match view embedded in a favourite.
type MatchSnapshot struct {
	ID       MatchID      `json:"id_partido"`
	Date     string       `json:"dia"`
	HomeTeam TeamSummary  `json:"equipo_local"`
	AwayTeam TeamSummary  `json:"equipo_visita"`
	Link     *string      `json:"enlace_fotmob,omitempty"`
	State    *StateBrief  `json:"estado,omitempty"`
	League   *LeagueBrief `json:"liga,omitempty"`
	Score    *Score       `json:"marcador,omitempty"`
}

type TeamSummary struct {
	ID   int64  `json:"id_equipo"`
	Name string `json:"nombre_equipo"`
	Logo string `json:"logo"`
}

type LeagueBrief struct {
	ID      int64  `json:"id_liga"`
	Name    string `json:"nombre_liga"`
	Country string `json:"pais"`
}

type StateBrief struct {
	ID   int64  `json:"id_estado"`
	Name string `json:"nombre_estado"`
}

type Score struct {
	Home int `json:"local"`
	Away int `json:"visita"`
}

// AddFavouriteRequest is the body the remote store expects when creating a favourite.
type AddFavouriteRequest struct {
	MatchID MatchID `json:"id_partido"`
	UserID  UserID  `json:"id_usuario"`
}

// FavouriteStatus is the per-match view presented to the UI.
type FavouriteStatus struct {
	MatchID   MatchID `json:"match_id"`
	Favourite bool    `json:"favourite"`
	Pending   bool    `json:"pending"`
}
