package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/giannis84/matchday-favourites/internal/models"
	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const (
	userIDKey contextKey = "userID"
	tokenKey  contextKey = "token"
)

// AuthConfig controls how bearer tokens are validated.
type AuthConfig struct {
	// Secret is the HS256 signing key. When empty, tokens are only accepted
	// if AllowUnsignedTokens is set.
	Secret string
	// AllowUnsignedTokens permits alg=none tokens when no Secret is configured.
	// Intended for local development and testing only.
	AllowUnsignedTokens bool
}

// JWTMiddleware returns HTTP middleware that validates a JWT from the
// Authorization header. The numeric "sub" claim is placed into the request
// context as the user id, together with the raw token so downstream stores
// can authenticate against the backend on the caller's behalf.
func JWTMiddleware(cfg AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, ok := extractBearerToken(r)
			if !ok {
				unauthorized(w, "missing or malformed Authorization header")
				return
			}

			claims, err := parseToken(tokenString, cfg)
			if err != nil {
				unauthorized(w, err.Error())
				return
			}

			sub, err := claims.GetSubject()
			if err != nil || sub == "" {
				unauthorized(w, "token missing sub claim")
				return
			}
			userID, err := models.ParseUserID(sub)
			if err != nil {
				unauthorized(w, "token sub claim is not a user id")
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, userID)
			ctx = context.WithValue(ctx, tokenKey, tokenString)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserIDFromContext returns the user ID stored by JWTMiddleware.
// Returns zero if no user ID is present.
func UserIDFromContext(ctx context.Context) models.UserID {
	v, _ := ctx.Value(userIDKey).(models.UserID)
	return v
}

// TokenFromContext returns the raw bearer token stored by JWTMiddleware.
func TokenFromContext(ctx context.Context) string {
	v, _ := ctx.Value(tokenKey).(string)
	return v
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	fmt.Fprintf(w, `{"error":%q}`, msg)
}

// extractBearerToken pulls the token from "Authorization: Bearer <token>".
func extractBearerToken(r *http.Request) (string, bool) {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return "", false
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// parseToken validates the JWT string. With a secret, HS256 is required.
// Without one, alg=none is accepted only when the config opts in.
func parseToken(tokenString string, cfg AuthConfig) (jwt.MapClaims, error) {
	if cfg.Secret == "" {
		if !cfg.AllowUnsignedTokens {
			return nil, fmt.Errorf("no jwt secret configured")
		}
		token, _, err := jwt.NewParser().ParseUnverified(tokenString, jwt.MapClaims{})
		if err != nil {
			return nil, fmt.Errorf("invalid token: %w", err)
		}
		if token.Method.Alg() != "none" {
			return nil, fmt.Errorf("no jwt secret configured; only unsigned tokens (alg=none) are accepted")
		}
		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return nil, fmt.Errorf("invalid token claims")
		}
		// ParseUnverified skips claim validation.
		if err := jwt.NewValidator().Validate(claims); err != nil {
			return nil, fmt.Errorf("invalid token: %w", err)
		}
		return claims, nil
	}

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		return []byte(cfg.Secret), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}
