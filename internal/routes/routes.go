package routes

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/giannis84/matchday-favourites/internal/auth"
	"github.com/giannis84/matchday-favourites/internal/config"
	"github.com/giannis84/matchday-favourites/internal/favourites"
	"github.com/giannis84/matchday-favourites/internal/handlers"
	"github.com/giannis84/matchday-favourites/internal/logging"
	"github.com/giannis84/matchday-favourites/internal/models"
	"github.com/giannis84/matchday-favourites/internal/session"
	"github.com/giannis84/matchday-favourites/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
)

// SessionHeader carries the id returned by POST /api/v1/session.
const SessionHeader = "X-Session-ID"

type contextKey string

const sessionKey contextKey = "session"

// RegisterFavouritesRoutes sets up the favourites API routes.
// HTTP concerns are handled here, while business logic is delegated to the handlers package.
func RegisterFavouritesRoutes(mgr *session.Manager, authCfg auth.AuthConfig, rl config.RateLimitConfig) func(r chi.Router) {
	return func(r chi.Router) {
		r.Route("/api/v1", func(r chi.Router) {
			if rl.Requests > 0 {
				r.Use(httprate.Limit(rl.Requests, rl.Window,
					httprate.WithKeyFuncs(httprate.KeyByIP),
					httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
						respondWithError(w, http.StatusTooManyRequests, "Rate limit exceeded")
					}),
				))
			}
			r.Use(requireJSONAccept)
			r.Use(requireJSONContentType)
			r.Use(auth.JWTMiddleware(authCfg))

			r.Post("/session", startSessionRoute(mgr))
			r.Delete("/session", endSessionRoute(mgr))

			r.Route("/favourites", func(r chi.Router) {
				r.Use(sessionMiddleware(mgr))
				r.Get("/", getUserFavouritesRoute())
				r.Post("/refresh", refreshUserFavouritesRoute())
				r.Get("/{matchID}", getFavouriteStatusRoute())
				r.Post("/{matchID}/toggle", mutateFavouriteRoute("toggleFavourite", handlers.ToggleFavourite))
				r.Put("/{matchID}", mutateFavouriteRoute("addFavourite", handlers.AddFavourite))
				r.Delete("/{matchID}", mutateFavouriteRoute("removeFavourite", handlers.RemoveFavourite))
			})
		})
	}
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type SessionResponse struct {
	SessionID string        `json:"session_id"`
	UserID    models.UserID `json:"user_id"`
	CreatedAt time.Time     `json:"created_at"`
}

type MutationResponse struct {
	MatchID   models.MatchID `json:"match_id"`
	Outcome   string         `json:"outcome"`
	Favourite bool           `json:"favourite"`
}

func startSessionRoute(mgr *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := auth.UserIDFromContext(ctx)

		sess, err := handlers.StartSession(ctx, mgr, userID, auth.TokenFromContext(ctx))
		if err != nil {
			logging.Log(ctx).Layer("routes").Op("startSession").User(userID).Err(err).
				Error("failed to start session")
			respondWithStoreError(w, err)
			return
		}

		logging.Log(ctx).Layer("routes").Op("startSession").User(userID).Session(sess.ID).
			Int("status_code", http.StatusCreated).Info("session started")
		respondWithJSON(w, http.StatusCreated, SessionResponse{
			SessionID: sess.ID,
			UserID:    sess.UserID,
			CreatedAt: sess.CreatedAt,
		})
	}
}

func endSessionRoute(mgr *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := auth.UserIDFromContext(ctx)
		sessionID := r.Header.Get(SessionHeader)

		if err := handlers.EndSession(ctx, mgr, sessionID, userID); err != nil {
			logging.Log(ctx).Layer("routes").Op("endSession").User(userID).Session(sessionID).Err(err).
				Warn("failed to end session")
			respondWithStoreError(w, err)
			return
		}
		respondWithJSON(w, http.StatusOK, map[string]string{"message": "Session ended"})
	}
}

// sessionMiddleware resolves the caller's session and stores it in the request context.
func sessionMiddleware(mgr *session.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			userID := auth.UserIDFromContext(ctx)
			sessionID := r.Header.Get(SessionHeader)

			sess, err := handlers.LookupSession(mgr, sessionID, userID)
			if err != nil {
				logging.Log(ctx).Layer("routes").User(userID).Session(sessionID).Err(err).
					Warn("request without a usable session")
				respondWithStoreError(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, sessionKey, sess)))
		})
	}
}

func sessionFromContext(ctx context.Context) *session.Session {
	sess, _ := ctx.Value(sessionKey).(*session.Session)
	return sess
}

func getUserFavouritesRoute() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		sess := sessionFromContext(ctx)

		logging.Log(ctx).Layer("routes").Op("getUserFavourites").User(sess.UserID).Session(sess.ID).
			Info("received get favourites request")

		favs, err := handlers.GetUserFavourites(ctx, sess)
		if err != nil {
			logging.Log(ctx).Layer("routes").User(sess.UserID).Err(err).
				Error("failed to get user favourites")
			respondWithStoreError(w, err)
			return
		}

		logging.Log(ctx).Layer("routes").Op("getUserFavourites").User(sess.UserID).
			Int("count", len(favs)).Int("status_code", http.StatusOK).
			Info("favourites retrieved successfully")
		respondWithJSON(w, http.StatusOK, favs)
	}
}

func refreshUserFavouritesRoute() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		sess := sessionFromContext(ctx)

		favs, err := handlers.RefreshUserFavourites(ctx, sess)
		if err != nil {
			logging.Log(ctx).Layer("routes").Op("refreshUserFavourites").User(sess.UserID).Err(err).
				Error("failed to refresh user favourites")
			respondWithStoreError(w, err)
			return
		}

		logging.Log(ctx).Layer("routes").Op("refreshUserFavourites").User(sess.UserID).
			Int("count", len(favs)).Info("favourites refreshed")
		respondWithJSON(w, http.StatusOK, favs)
	}
}

func getFavouriteStatusRoute() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		sess := sessionFromContext(ctx)

		matchID, err := handlers.ParseMatchID(chi.URLParam(r, "matchID"))
		if err != nil {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}

		status, err := handlers.GetFavouriteStatus(ctx, sess, matchID)
		if err != nil {
			logging.Log(ctx).Layer("routes").Op("getFavouriteStatus").User(sess.UserID).Match(matchID).Err(err).
				Error("failed to resolve favourite status")
			respondWithStoreError(w, err)
			return
		}
		respondWithJSON(w, http.StatusOK, status)
	}
}

type mutationFunc func(context.Context, *session.Session, models.MatchID) favourites.Result

func mutateFavouriteRoute(op string, mutate mutationFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		sess := sessionFromContext(ctx)

		matchID, err := handlers.ParseMatchID(chi.URLParam(r, "matchID"))
		if err != nil {
			logging.Log(ctx).Layer("routes").Op(op).User(sess.UserID).Err(err).
				Warn("invalid match id")
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}

		logging.Log(ctx).Layer("routes").Op(op).User(sess.UserID).Match(matchID).
			Info("received favourite mutation request")

		res := mutate(ctx, sess, matchID)
		code := resultStatus(res)
		if !res.OK() {
			msg := http.StatusText(code)
			if res.Err != nil {
				msg = res.Err.Error()
			} else if res.Outcome == favourites.OutcomeBusy {
				msg = "A change to this favourite is already in progress"
			}
			logging.Log(ctx).Layer("routes").Op(op).User(sess.UserID).Match(matchID).
				Outcome(res.Outcome.String()).Int("status_code", code).Err(res.Err).
				Warn("favourite mutation not applied")
			respondWithError(w, code, msg)
			return
		}

		logging.Log(ctx).Layer("routes").Op(op).User(sess.UserID).Match(matchID).
			Outcome(res.Outcome.String()).Int("status_code", code).
			Info("favourite mutation applied")
		respondWithJSON(w, code, MutationResponse{
			MatchID:   matchID,
			Outcome:   res.Outcome.String(),
			Favourite: res.Outcome == favourites.OutcomeAdded,
		})
	}
}

// resultStatus maps a mutation outcome to its HTTP status.
func resultStatus(res favourites.Result) int {
	switch res.Outcome {
	case favourites.OutcomeAdded:
		return http.StatusCreated
	case favourites.OutcomeRemoved:
		return http.StatusOK
	case favourites.OutcomeBusy:
		return http.StatusConflict
	case favourites.OutcomeSkipped:
		return http.StatusBadRequest
	default:
		return errorStatus(res.Err)
	}
}

func errorStatus(err error) int {
	var validationErr *favourites.ValidationError
	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, session.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, session.ErrClosed):
		return http.StatusServiceUnavailable
	case store.IsFetchError(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func respondWithStoreError(w http.ResponseWriter, err error) {
	code := errorStatus(err)
	msg := err.Error()
	switch {
	case errors.Is(err, store.ErrNotFound):
		msg = "Favourite not found"
	case errors.Is(err, session.ErrNotFound):
		msg = "Session not found"
	case code == http.StatusInternalServerError:
		msg = http.StatusText(code)
	}
	respondWithError(w, code, msg)
}

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	response, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, ErrorResponse{Error: message})
}
