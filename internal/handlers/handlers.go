package handlers

import (
	"context"

	"github.com/giannis84/matchday-favourites/internal/favourites"
	"github.com/giannis84/matchday-favourites/internal/logging"
	"github.com/giannis84/matchday-favourites/internal/models"
	"github.com/giannis84/matchday-favourites/internal/session"
)

func StartSession(ctx context.Context, mgr *session.Manager, userID models.UserID, token string) (*session.Session, error) {
	return mgr.Start(ctx, userID, token)
}

func EndSession(ctx context.Context, mgr *session.Manager, sessionID string, userID models.UserID) error {
	if err := ValidateSessionID(sessionID); err != nil {
		return err
	}
	return mgr.End(ctx, sessionID, userID)
}

// LookupSession resolves the session named by the X-Session-ID header for userID.
func LookupSession(mgr *session.Manager, sessionID string, userID models.UserID) (*session.Session, error) {
	if err := ValidateSessionID(sessionID); err != nil {
		return nil, err
	}
	return mgr.Get(sessionID, userID)
}

func GetUserFavourites(ctx context.Context, sess *session.Session) ([]*models.FavouriteRecord, error) {
	return sess.Favourites.ListFavourites(ctx, sess.UserID)
}

func RefreshUserFavourites(ctx context.Context, sess *session.Session) ([]*models.FavouriteRecord, error) {
	return sess.Favourites.Refresh(ctx, sess.UserID)
}

// GetFavouriteStatus loads the cache if needed so the answer reflects the store.
func GetFavouriteStatus(ctx context.Context, sess *session.Session, matchID models.MatchID) (models.FavouriteStatus, error) {
	if _, err := sess.Favourites.ListFavourites(ctx, sess.UserID); err != nil {
		return models.FavouriteStatus{MatchID: matchID}, err
	}
	return sess.Favourites.Status(matchID), nil
}

func ToggleFavourite(ctx context.Context, sess *session.Session, matchID models.MatchID) favourites.Result {
	res := sess.Favourites.Toggle(ctx, matchID)
	logResult(ctx, "toggleFavourite", sess, res)
	return res
}

func AddFavourite(ctx context.Context, sess *session.Session, matchID models.MatchID) favourites.Result {
	res := sess.Favourites.Add(ctx, matchID, sess.UserID)
	logResult(ctx, "addFavourite", sess, res)
	return res
}

func RemoveFavourite(ctx context.Context, sess *session.Session, matchID models.MatchID) favourites.Result {
	res := sess.Favourites.Remove(ctx, matchID, sess.UserID)
	logResult(ctx, "removeFavourite", sess, res)
	return res
}

func logResult(ctx context.Context, op string, sess *session.Session, res favourites.Result) {
	logging.Log(ctx).Layer("handler").Op(op).User(sess.UserID).Session(sess.ID).Match(res.MatchID).
		Outcome(res.Outcome.String()).Err(res.Err).Debug("favourite mutation handled")
}
