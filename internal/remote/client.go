// Package remote implements store.Store against the platform's REST backend.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/giannis84/matchday-favourites/internal/logging"
	"github.com/giannis84/matchday-favourites/internal/metrics"
	"github.com/giannis84/matchday-favourites/internal/models"
	"github.com/giannis84/matchday-favourites/internal/store"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	favouritesPath = "/favoritos/"
	maxErrorBody   = 512
)

// Client holds the connection settings shared by every session.
type Client struct {
	baseURL    string
	httpClient *http.Client
	metrics    *metrics.Metrics
}

// NewClient creates a Client for the backend at baseURL. A zero timeout keeps the transport default.
func NewClient(baseURL string, timeout time.Duration, m *metrics.Metrics) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		metrics: m,
	}
}

// NewClientWithHTTP is like NewClient but uses hc as is. Intended for tests.
func NewClientWithHTTP(baseURL string, hc *http.Client, m *metrics.Metrics) *Client {
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), httpClient: hc, metrics: m}
}

// ForToken returns a store.Store that authenticates as the holder of token.
func (c *Client) ForToken(token string) *SessionStore {
	return &SessionStore{client: c, token: token}
}

// Ping checks that the backend answers HTTP at all.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return fmt.Errorf("creating ping request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &store.FetchError{Op: "ping", Err: err}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusInternalServerError {
		return &store.FetchError{Op: "ping", StatusCode: resp.StatusCode, Err: errors.New(http.StatusText(resp.StatusCode))}
	}
	return nil
}

// SessionStore is the per-session view of the backend.
type SessionStore struct {
	client *Client
	token  string
}

func (s *SessionStore) ListFavourites(ctx context.Context, userID models.UserID) ([]*models.FavouriteRecord, error) {
	query := url.Values{"id_usuario": {userID.String()}}
	endpoint := s.client.baseURL + favouritesPath + "?" + query.Encode()

	var records []*models.FavouriteRecord
	if err := s.do(ctx, "list", http.MethodGet, endpoint, nil, &records); err != nil {
		return nil, err
	}
	if records == nil {
		records = []*models.FavouriteRecord{}
	}
	return records, nil
}

func (s *SessionStore) AddFavourite(ctx context.Context, matchID models.MatchID, userID models.UserID) (*models.FavouriteRecord, error) {
	body, err := json.Marshal(models.AddFavouriteRequest{MatchID: matchID, UserID: userID})
	if err != nil {
		return nil, fmt.Errorf("marshalling add favourite request: %w", err)
	}

	var record models.FavouriteRecord
	if err := s.do(ctx, "add", http.MethodPost, s.client.baseURL+favouritesPath, body, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

func (s *SessionStore) RemoveFavourite(ctx context.Context, matchID models.MatchID, userID models.UserID) error {
	endpoint := s.client.baseURL + favouritesPath +
		url.PathEscape(matchID.String()) + "/" + url.PathEscape(userID.String())
	return s.do(ctx, "remove", http.MethodDelete, endpoint, nil, nil)
}

func (s *SessionStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx)
}

// do performs one request and decodes a 2xx JSON body into out when out is non-nil.
func (s *SessionStore) do(ctx context.Context, op, method, endpoint string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("creating %s request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	if reqID := middleware.GetReqID(ctx); reqID != "" {
		req.Header.Set(middleware.RequestIDHeader, reqID)
	}

	log := logging.Log(ctx).Layer("remote").Op(op).Str("method", method)

	start := time.Now()
	resp, err := s.client.httpClient.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		s.client.metrics.ObserveRemote(method, 0, elapsed)
		log.Dur("elapsed", elapsed).Err(err).Error("remote store unreachable")
		return &store.FetchError{Op: op, Err: err}
	}
	defer resp.Body.Close()
	s.client.metrics.ObserveRemote(method, resp.StatusCode, elapsed)

	log = log.Int("status_code", resp.StatusCode).Dur("elapsed", elapsed)

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		log.Warn("remote store rejected credentials")
		return store.ErrUnauthorized
	case resp.StatusCode == http.StatusNotFound && op == "remove":
		log.Warn("favourite not found in remote store")
		return store.ErrNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		msg := strings.TrimSpace(string(detail))
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		log.Str("body", msg).Error("remote store returned an error")
		return &store.FetchError{Op: op, StatusCode: resp.StatusCode, Err: errors.New(msg)}
	}

	log.Debug("remote store request completed")

	if out == nil || resp.StatusCode == http.StatusNoContent {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return &store.FetchError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("decoding response: %w", err)}
	}
	return nil
}
