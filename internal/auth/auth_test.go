package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ---------- helpers ----------

func unsignedToken(sub string, exp time.Time) string {
	claims := jwt.MapClaims{"sub": sub, "exp": exp.Unix()}
	token := jwt.NewWithClaims(jwt.SigningMethodNone, claims)
	s, _ := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	return s
}

func signedToken(sub, secret string, exp time.Time) string {
	claims := jwt.MapClaims{"sub": sub, "exp": exp.Unix()}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, _ := token.SignedString([]byte(secret))
	return s
}

// dummyHandler writes 200 and the extracted userID.
var dummyHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	uid := UserIDFromContext(r.Context())
	if TokenFromContext(r.Context()) == "" {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(uid.String()))
})

type authCase struct {
	name       string
	authHeader string
	wantStatus int
	wantBody   string
}

func runAuthCases(t *testing.T, mw func(http.Handler) http.Handler, tests []authCase) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rr := httptest.NewRecorder()
			mw(dummyHandler).ServeHTTP(rr, req)

			if rr.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d; body: %s", rr.Code, tt.wantStatus, rr.Body.String())
			}
			if tt.wantBody != "" && rr.Body.String() != tt.wantBody {
				t.Errorf("body = %q, want %q", rr.Body.String(), tt.wantBody)
			}
		})
	}
}

// ---------- tests ----------

func TestJWTMiddleware_UnsignedMode(t *testing.T) {
	mw := JWTMiddleware(AuthConfig{AllowUnsignedTokens: true})

	runAuthCases(t, mw, []authCase{
		{
			name:       "valid unsigned token",
			authHeader: "Bearer " + unsignedToken("42", time.Now().Add(time.Hour)),
			wantStatus: http.StatusOK,
			wantBody:   "42",
		},
		{
			name:       "missing Authorization header",
			authHeader: "",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "malformed header (no Bearer prefix)",
			authHeader: "Token abc",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "signed token rejected in unsigned mode",
			authHeader: "Bearer " + signedToken("1", "secret", time.Now().Add(time.Hour)),
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "garbage token",
			authHeader: "Bearer not.a.token",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "non-numeric subject",
			authHeader: "Bearer " + unsignedToken("user42", time.Now().Add(time.Hour)),
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "expired unsigned token",
			authHeader: "Bearer " + unsignedToken("42", time.Now().Add(-time.Hour)),
			wantStatus: http.StatusUnauthorized,
		},
	})
}

func TestJWTMiddleware_NoSecretWithoutOptIn(t *testing.T) {
	mw := JWTMiddleware(AuthConfig{})

	runAuthCases(t, mw, []authCase{
		{
			name:       "unsigned token rejected",
			authHeader: "Bearer " + unsignedToken("42", time.Now().Add(time.Hour)),
			wantStatus: http.StatusUnauthorized,
		},
	})
}

func TestJWTMiddleware_SignedMode(t *testing.T) {
	const secret = "test-secret"
	mw := JWTMiddleware(AuthConfig{Secret: secret})

	runAuthCases(t, mw, []authCase{
		{
			name:       "valid signed token",
			authHeader: "Bearer " + signedToken("7", secret, time.Now().Add(time.Hour)),
			wantStatus: http.StatusOK,
			wantBody:   "7",
		},
		{
			name:       "wrong secret",
			authHeader: "Bearer " + signedToken("7", "wrong", time.Now().Add(time.Hour)),
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "unsigned token rejected in signed mode",
			authHeader: "Bearer " + unsignedToken("7", time.Now().Add(time.Hour)),
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "expired token",
			authHeader: "Bearer " + signedToken("7", secret, time.Now().Add(-time.Hour)),
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "zero subject",
			authHeader: "Bearer " + signedToken("0", secret, time.Now().Add(time.Hour)),
			wantStatus: http.StatusUnauthorized,
		},
	})
}

func TestUserIDFromContext_EmptyWhenNoMiddleware(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	if uid := UserIDFromContext(req.Context()); uid != 0 {
		t.Errorf("expected zero user ID, got %d", uid)
	}
	if tok := TokenFromContext(req.Context()); tok != "" {
		t.Errorf("expected empty token, got %q", tok)
	}
}
