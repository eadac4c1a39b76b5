package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tomyedwab/libsqlhttp/users/util"
)

func signToken(t *testing.T, secret []byte, expiresAt time.Time) string {
	t.Helper()
	claims := jwt.MapClaims{
		"session_id": "sess-1",
		"exp":        expiresAt.Unix(),
		"iat":        time.Now().UTC().Unix(),
		"jti":        "token-1",
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return token
}

func TestLoginRequired(t *testing.T) {
	secret := []byte("0123456789abcdef0123456789abcdef")

	var gotClaims *util.AccessTokenClaims
	handler := LoginRequired(secret, func(w http.ResponseWriter, r *http.Request) {
		gotClaims, _ = r.Context().Value(util.ClaimsKey).(*util.AccessTokenClaims)
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"valid token", "Bearer " + signToken(t, secret, time.Now().Add(time.Minute)), http.StatusOK},
		{"no header", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"garbage token", "Bearer garbage", http.StatusUnauthorized},
		{"expired token", "Bearer " + signToken(t, secret, time.Now().Add(-time.Minute)), http.StatusUnauthorized},
		{"wrong key", "Bearer " + signToken(t, []byte("another-secret-another-secret-xx"), time.Now().Add(time.Minute)), http.StatusUnauthorized},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/v2/pipeline", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			handler(w, req)
			if w.Code != tc.status {
				t.Errorf("status = %d, want %d", w.Code, tc.status)
			}
		})
	}

	if gotClaims == nil {
		t.Fatal("valid request did not attach claims to the context")
	}
	if gotClaims.SessionID != "sess-1" {
		t.Errorf("claims.SessionID = %q, want sess-1", gotClaims.SessionID)
	}
}

func TestChainOrder(t *testing.T) {
	var order []string
	mk := func(name string) func(http.HandlerFunc) http.HandlerFunc {
		return func(next http.HandlerFunc) http.HandlerFunc {
			return func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			}
		}
	}

	handler := Chain(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "handler")
	}, mk("inner"), mk("outer"))

	handler(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))

	if len(order) != 3 || order[0] != "outer" || order[1] != "inner" || order[2] != "handler" {
		t.Errorf("execution order = %v", order)
	}
}
