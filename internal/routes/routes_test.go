package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/giannis84/matchday-favourites/internal/auth"
	"github.com/giannis84/matchday-favourites/internal/config"
	"github.com/giannis84/matchday-favourites/internal/logging"
	"github.com/giannis84/matchday-favourites/internal/models"
	"github.com/giannis84/matchday-favourites/internal/session"
	"github.com/giannis84/matchday-favourites/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testToken(sub string) string {
	claims := jwt.MapClaims{
		"sub": sub,
		"exp": time.Now().Add(time.Hour).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodNone, claims)
	s, _ := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	return s
}

type testAPI struct {
	router *chi.Mux
	mem    *store.Memory
	mgr    *session.Manager
}

func setupTestHandler(t *testing.T, rl config.RateLimitConfig) *testAPI {
	t.Helper()
	mem := store.NewMemory()
	mgr := session.NewManager(func(string) store.Store { return mem }, session.Options{})
	t.Cleanup(mgr.Close)

	router := chi.NewRouter()
	router.Use(logging.RequestLogger(testLogger()))
	router.Group(RegisterFavouritesRoutes(mgr, auth.AuthConfig{
		Secret:              "",
		AllowUnsignedTokens: true,
	}, rl))

	return &testAPI{router: router, mem: mem, mgr: mgr}
}

func (a *testAPI) do(t *testing.T, method, path, user, sessionID string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set("Accept", "application/json")
	if user != "" {
		req.Header.Set("Authorization", "Bearer "+testToken(user))
	}
	if sessionID != "" {
		req.Header.Set(SessionHeader, sessionID)
	}
	rr := httptest.NewRecorder()
	a.router.ServeHTTP(rr, req)
	return rr
}

func (a *testAPI) startSession(t *testing.T, user string) string {
	t.Helper()
	rr := a.do(t, "POST", "/api/v1/session", user, "")
	if rr.Code != http.StatusCreated {
		t.Fatalf("start session: status %d, body %s", rr.Code, rr.Body.String())
	}
	var resp SessionResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode session response: %v", err)
	}
	return resp.SessionID
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var resp ErrorResponse
	json.Unmarshal(rr.Body.Bytes(), &resp)
	return resp.Error
}

func TestSessionRoutes(t *testing.T) {
	api := setupTestHandler(t, config.RateLimitConfig{})

	rr := api.do(t, "POST", "/api/v1/session", "42", "")
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected %d, got %d. Body: %s", http.StatusCreated, rr.Code, rr.Body.String())
	}
	var resp SessionResponse
	json.Unmarshal(rr.Body.Bytes(), &resp)
	if resp.SessionID == "" || resp.UserID != 42 {
		t.Fatalf("unexpected session response: %+v", resp)
	}
	if api.mgr.Count() != 1 {
		t.Errorf("expected 1 live session, got %d", api.mgr.Count())
	}

	if rr := api.do(t, "DELETE", "/api/v1/session", "7", resp.SessionID); rr.Code != http.StatusForbidden {
		t.Errorf("other user ending session: expected 403, got %d", rr.Code)
	}
	if rr := api.do(t, "DELETE", "/api/v1/session", "42", resp.SessionID); rr.Code != http.StatusOK {
		t.Errorf("expected 200, got %d. Body: %s", rr.Code, rr.Body.String())
	}
	if rr := api.do(t, "GET", "/api/v1/favourites", "42", resp.SessionID); rr.Code != http.StatusNotFound {
		t.Errorf("ended session: expected 404, got %d", rr.Code)
	}
}

func TestFavouritesRoutes_SessionRequired(t *testing.T) {
	api := setupTestHandler(t, config.RateLimitConfig{})
	sid := api.startSession(t, "42")

	tests := []struct {
		name      string
		user      string
		sessionID string
		wantCode  int
	}{
		{name: "missing token", user: "", sessionID: sid, wantCode: http.StatusUnauthorized},
		{name: "missing session header", user: "42", sessionID: "", wantCode: http.StatusBadRequest},
		{name: "malformed session id", user: "42", sessionID: "abc", wantCode: http.StatusBadRequest},
		{name: "unknown session", user: "42", sessionID: "6f1c2a8e-3b7d-4c1e-9a2f-0d5b8e7c4a31", wantCode: http.StatusNotFound},
		{name: "session of another user", user: "7", sessionID: sid, wantCode: http.StatusForbidden},
		{name: "owner", user: "42", sessionID: sid, wantCode: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := api.do(t, "GET", "/api/v1/favourites", tt.user, tt.sessionID)
			if rr.Code != tt.wantCode {
				t.Errorf("expected status %d, got %d. Body: %s", tt.wantCode, rr.Code, rr.Body.String())
			}
		})
	}
}

func TestFavouritesRoutes_GetUserFavourites(t *testing.T) {
	api := setupTestHandler(t, config.RateLimitConfig{})
	api.mem.Seed(42, 7, 8)
	sid := api.startSession(t, "42")

	rr := api.do(t, "GET", "/api/v1/favourites", "42", sid)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d. Body: %s", http.StatusOK, rr.Code, rr.Body.String())
	}

	var favs []models.FavouriteRecord
	if err := json.Unmarshal(rr.Body.Bytes(), &favs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(favs) != 2 {
		t.Fatalf("expected 2 favourites, got %d", len(favs))
	}
	if favs[0].MatchID != 8 || favs[1].MatchID != 7 {
		t.Errorf("expected newest first, got %d, %d", favs[0].MatchID, favs[1].MatchID)
	}

	// Served from the session cache the second time.
	api.do(t, "GET", "/api/v1/favourites", "42", sid)
	if n := api.mem.CallCount(store.OpList); n != 1 {
		t.Errorf("expected 1 list call, got %d", n)
	}
}

func TestFavouritesRoutes_EmptyListIsArray(t *testing.T) {
	api := setupTestHandler(t, config.RateLimitConfig{})
	sid := api.startSession(t, "42")

	rr := api.do(t, "GET", "/api/v1/favourites", "42", sid)
	if body := strings.TrimSpace(rr.Body.String()); body != "[]" {
		t.Errorf("expected empty JSON array, got %s", body)
	}
}

func TestFavouritesRoutes_Toggle(t *testing.T) {
	api := setupTestHandler(t, config.RateLimitConfig{})
	api.mem.Seed(42, 7)
	sid := api.startSession(t, "42")

	tests := []struct {
		name        string
		matchID     string
		wantCode    int
		wantOutcome string
		wantFav     bool
	}{
		{name: "remove present match", matchID: "7", wantCode: http.StatusOK, wantOutcome: "removed"},
		{name: "add absent match", matchID: "9", wantCode: http.StatusCreated, wantOutcome: "added", wantFav: true},
		{name: "toggle back", matchID: "9", wantCode: http.StatusOK, wantOutcome: "removed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := api.do(t, "POST", "/api/v1/favourites/"+tt.matchID+"/toggle", "42", sid)
			if rr.Code != tt.wantCode {
				t.Fatalf("expected status %d, got %d. Body: %s", tt.wantCode, rr.Code, rr.Body.String())
			}
			var resp MutationResponse
			json.Unmarshal(rr.Body.Bytes(), &resp)
			if resp.Outcome != tt.wantOutcome || resp.Favourite != tt.wantFav {
				t.Errorf("unexpected response: %+v", resp)
			}

			rr = api.do(t, "GET", "/api/v1/favourites/"+tt.matchID, "42", sid)
			var status models.FavouriteStatus
			json.Unmarshal(rr.Body.Bytes(), &status)
			if status.Favourite != tt.wantFav || status.Pending {
				t.Errorf("unexpected status: %+v", status)
			}
		})
	}
}

func TestFavouritesRoutes_ToggleStoreFailure(t *testing.T) {
	api := setupTestHandler(t, config.RateLimitConfig{})
	sid := api.startSession(t, "42")
	api.mem.FailNext(store.OpAdd, 1)

	rr := api.do(t, "POST", "/api/v1/favourites/9/toggle", "42", sid)
	if rr.Code != http.StatusBadGateway {
		t.Fatalf("expected status %d, got %d. Body: %s", http.StatusBadGateway, rr.Code, rr.Body.String())
	}
	if msg := decodeError(t, rr); !strings.Contains(msg, "connection refused") {
		t.Errorf("unexpected error message %q", msg)
	}

	rr = api.do(t, "GET", "/api/v1/favourites/9", "42", sid)
	var status models.FavouriteStatus
	json.Unmarshal(rr.Body.Bytes(), &status)
	if status.Favourite {
		t.Error("failed add must not leave the match favourited")
	}
}

func TestFavouritesRoutes_ToggleBusy(t *testing.T) {
	api := setupTestHandler(t, config.RateLimitConfig{})
	sid := api.startSession(t, "42")
	// Prime the cache so the toggle goes straight to the add call.
	api.do(t, "GET", "/api/v1/favourites", "42", sid)

	entered := make(chan struct{})
	release := make(chan struct{})
	api.mem.OnCall(store.OpAdd, func() {
		close(entered)
		<-release
	})

	first := make(chan *httptest.ResponseRecorder)
	go func() {
		first <- api.do(t, "POST", "/api/v1/favourites/9/toggle", "42", sid)
	}()
	<-entered

	rr := api.do(t, "POST", "/api/v1/favourites/9/toggle", "42", sid)
	if rr.Code != http.StatusConflict {
		t.Errorf("expected status %d, got %d. Body: %s", http.StatusConflict, rr.Code, rr.Body.String())
	}
	rr = api.do(t, "GET", "/api/v1/favourites/9", "42", sid)
	var status models.FavouriteStatus
	json.Unmarshal(rr.Body.Bytes(), &status)
	if !status.Pending {
		t.Error("expected pending flag while the add is in flight")
	}

	close(release)
	if rr := <-first; rr.Code != http.StatusCreated {
		t.Errorf("first toggle: expected %d, got %d", http.StatusCreated, rr.Code)
	}
	if n := api.mem.CallCount(store.OpAdd); n != 1 {
		t.Errorf("expected exactly one add call, got %d", n)
	}
}

func TestFavouritesRoutes_AddAndRemove(t *testing.T) {
	api := setupTestHandler(t, config.RateLimitConfig{})
	sid := api.startSession(t, "42")

	if rr := api.do(t, "PUT", "/api/v1/favourites/5", "42", sid); rr.Code != http.StatusCreated {
		t.Fatalf("add: expected 201, got %d. Body: %s", rr.Code, rr.Body.String())
	}
	if rr := api.do(t, "DELETE", "/api/v1/favourites/5", "42", sid); rr.Code != http.StatusOK {
		t.Fatalf("remove: expected 200, got %d. Body: %s", rr.Code, rr.Body.String())
	}
	rr := api.do(t, "DELETE", "/api/v1/favourites/5", "42", sid)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("second remove: expected 404, got %d. Body: %s", rr.Code, rr.Body.String())
	}
	if msg := decodeError(t, rr); msg == "" {
		t.Error("expected an error message")
	}
}

func TestFavouritesRoutes_Refresh(t *testing.T) {
	api := setupTestHandler(t, config.RateLimitConfig{})
	api.mem.Seed(42, 1)
	sid := api.startSession(t, "42")

	api.do(t, "GET", "/api/v1/favourites", "42", sid)
	api.mem.Seed(42, 2)

	rr := api.do(t, "POST", "/api/v1/favourites/refresh", "42", sid)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d. Body: %s", rr.Code, rr.Body.String())
	}
	var favs []models.FavouriteRecord
	json.Unmarshal(rr.Body.Bytes(), &favs)
	if len(favs) != 2 {
		t.Errorf("expected 2 favourites after refresh, got %d", len(favs))
	}
}

func TestFavouritesRoutes_InvalidMatchID(t *testing.T) {
	api := setupTestHandler(t, config.RateLimitConfig{})
	sid := api.startSession(t, "42")

	tests := []struct {
		name   string
		method string
		path   string
	}{
		{name: "status with text id", method: "GET", path: "/api/v1/favourites/abc"},
		{name: "toggle with zero id", method: "POST", path: "/api/v1/favourites/0/toggle"},
		{name: "add with negative id", method: "PUT", path: "/api/v1/favourites/-1"},
		{name: "remove with whitespace id", method: "DELETE", path: "/api/v1/favourites/%20%20"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := api.do(t, tt.method, tt.path, "42", sid)
			if rr.Code != http.StatusBadRequest {
				t.Errorf("expected status %d, got %d. Body: %s", http.StatusBadRequest, rr.Code, rr.Body.String())
			}
		})
	}
	if api.mem.CallCount(store.OpAdd)+api.mem.CallCount(store.OpRemove) != 0 {
		t.Error("invalid requests must not reach the store")
	}
}

func TestFavouritesRoutes_ListFetchError(t *testing.T) {
	api := setupTestHandler(t, config.RateLimitConfig{})
	sid := api.startSession(t, "42")
	api.mem.FailNext(store.OpList, 1)

	rr := api.do(t, "GET", "/api/v1/favourites", "42", sid)
	if rr.Code != http.StatusBadGateway {
		t.Errorf("expected status %d, got %d. Body: %s", http.StatusBadGateway, rr.Code, rr.Body.String())
	}
}

func TestFavouritesRoutes_AcceptHeaderMiddleware(t *testing.T) {
	api := setupTestHandler(t, config.RateLimitConfig{})
	sid := api.startSession(t, "42")

	tests := []struct {
		name      string
		accept    string
		wantCode  int
		wantError string
	}{
		{name: "missing Accept header", accept: "", wantCode: http.StatusNotAcceptable, wantError: "Accept header must include application/json"},
		{name: "wrong Accept header", accept: "text/html", wantCode: http.StatusNotAcceptable, wantError: "Accept header must include application/json"},
		{name: "Accept */* is allowed", accept: "*/*", wantCode: http.StatusOK},
		{name: "Accept application/json is allowed", accept: "application/json", wantCode: http.StatusOK},
		{name: "Accept with multiple types including json", accept: "text/html, application/json;q=0.9", wantCode: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/v1/favourites", nil)
			if tt.accept != "" {
				req.Header.Set("Accept", tt.accept)
			}
			req.Header.Set("Authorization", "Bearer "+testToken("42"))
			req.Header.Set(SessionHeader, sid)
			rr := httptest.NewRecorder()
			api.router.ServeHTTP(rr, req)

			if rr.Code != tt.wantCode {
				t.Errorf("expected status %d, got %d. Body: %s", tt.wantCode, rr.Code, rr.Body.String())
			}
			if tt.wantError != "" && decodeError(t, rr) != tt.wantError {
				t.Errorf("expected error %q, got %q", tt.wantError, decodeError(t, rr))
			}
		})
	}
}

func TestFavouritesRoutes_ContentTypeMiddleware(t *testing.T) {
	api := setupTestHandler(t, config.RateLimitConfig{})
	sid := api.startSession(t, "42")

	tests := []struct {
		name        string
		body        string
		contentType string
		wantCode    int
	}{
		{name: "body without Content-Type", body: `{}`, wantCode: http.StatusUnsupportedMediaType},
		{name: "body with wrong Content-Type", body: `{}`, contentType: "text/plain", wantCode: http.StatusUnsupportedMediaType},
		{name: "body with JSON Content-Type", body: `{}`, contentType: "application/json; charset=utf-8", wantCode: http.StatusCreated},
		{name: "no body needs no Content-Type", wantCode: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/api/v1/favourites/3/toggle", bytes.NewBufferString(tt.body))
			req.Header.Set("Accept", "application/json")
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			req.Header.Set("Authorization", "Bearer "+testToken("42"))
			req.Header.Set(SessionHeader, sid)
			rr := httptest.NewRecorder()
			api.router.ServeHTTP(rr, req)

			if rr.Code != tt.wantCode {
				t.Errorf("expected status %d, got %d. Body: %s", tt.wantCode, rr.Code, rr.Body.String())
			}
		})
	}
}

func TestFavouritesRoutes_RateLimit(t *testing.T) {
	api := setupTestHandler(t, config.RateLimitConfig{Requests: 2, Window: time.Minute})

	for i := 0; i < 2; i++ {
		if rr := api.do(t, "POST", "/api/v1/session", "42", ""); rr.Code != http.StatusCreated {
			t.Fatalf("request %d: expected 201, got %d", i, rr.Code)
		}
	}
	rr := api.do(t, "POST", "/api/v1/session", "42", "")
	if rr.Code != http.StatusTooManyRequests {
		t.Errorf("expected status %d, got %d", http.StatusTooManyRequests, rr.Code)
	}
}

func TestHealthRoutes(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		ready    ReadinessCheck
		wantCode int
	}{
		{name: "live", path: "/health/live", wantCode: http.StatusOK},
		{name: "ready", path: "/health/ready", ready: func(context.Context) error { return nil }, wantCode: http.StatusOK},
		{name: "not ready", path: "/health/ready", ready: func(context.Context) error { return errors.New("down") }, wantCode: http.StatusServiceUnavailable},
		{name: "metrics", path: "/metrics", wantCode: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			metricsHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("# HELP"))
			})
			router := chi.NewRouter()
			router.Group(RegisterHealthRoutes(tt.ready, metricsHandler))

			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, httptest.NewRequest("GET", tt.path, nil))
			if rr.Code != tt.wantCode {
				t.Errorf("expected status %d, got %d", tt.wantCode, rr.Code)
			}
		})
	}
}
