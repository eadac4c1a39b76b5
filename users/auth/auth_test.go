package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/tomyedwab/libsqlhttp/users/sessions"
	"github.com/tomyedwab/libsqlhttp/users/state"
)

func setupAuth(t *testing.T) (*sqlx.DB, *sessions.SessionManager) {
	t.Helper()
	tmpDir := t.TempDir()
	db := sqlx.MustConnect("sqlite3", path.Join(tmpDir, "test_auth.db"))
	t.Cleanup(func() { db.Close() })

	if err := state.DBInit(db); err != nil {
		t.Fatalf("state.DBInit returned error: %v", err)
	}
	if err := state.AddUser(db, "alice", "hunter2"); err != nil {
		t.Fatalf("AddUser returned error: %v", err)
	}

	m, err := sessions.NewManager(db, time.Minute, time.Hour, path.Join(tmpDir, "jwt.secret"))
	if err != nil {
		t.Fatalf("NewManager returned error: %v", err)
	}
	return db, m
}

func postHandler(t *testing.T, handler http.HandlerFunc, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal request: %v", err)
	}
	req := httptest.NewRequest("POST", "/", bytes.NewReader(data))
	w := httptest.NewRecorder()
	handler(w, req)
	return w
}

func TestDoLogin(t *testing.T) {
	db, m := setupAuth(t)

	resp, err := DoLogin(db, m, LoginRequest{Username: "alice", Password: "hunter2"})
	if err != nil {
		t.Fatalf("DoLogin returned error: %v", err)
	}
	if resp.RefreshToken == "" || resp.AccessToken == "" {
		t.Errorf("login response is missing tokens: %+v", resp)
	}
}

func TestDoLoginRejectsBadCredentials(t *testing.T) {
	db, m := setupAuth(t)

	if _, err := DoLogin(db, m, LoginRequest{Username: "alice", Password: "wrong"}); err == nil {
		t.Error("login with wrong password succeeded")
	}
	if _, err := DoLogin(db, m, LoginRequest{Username: "nobody", Password: "hunter2"}); err == nil {
		t.Error("login with unknown user succeeded")
	}
}

func TestDoRefresh(t *testing.T) {
	db, m := setupAuth(t)

	login, err := DoLogin(db, m, LoginRequest{Username: "alice", Password: "hunter2"})
	if err != nil {
		t.Fatalf("DoLogin returned error: %v", err)
	}

	refreshed, err := DoRefresh(m, RefreshRequest{RefreshToken: login.RefreshToken})
	if err != nil {
		t.Fatalf("DoRefresh returned error: %v", err)
	}
	if refreshed.RefreshToken == login.RefreshToken {
		t.Error("refresh token was not rotated")
	}
	if refreshed.AccessToken == "" {
		t.Error("no access token issued")
	}

	// The consumed refresh token stops working.
	if _, err := DoRefresh(m, RefreshRequest{RefreshToken: login.RefreshToken}); err == nil {
		t.Error("consumed refresh token still works")
	}
}

func TestDoLogout(t *testing.T) {
	db, m := setupAuth(t)

	login, _ := DoLogin(db, m, LoginRequest{Username: "alice", Password: "hunter2"})
	if err := DoLogout(db, m, login.RefreshToken); err != nil {
		t.Fatalf("DoLogout returned error: %v", err)
	}
	if _, err := DoRefresh(m, RefreshRequest{RefreshToken: login.RefreshToken}); err == nil {
		t.Error("refresh after logout succeeded")
	}
}

func TestHandleLogin(t *testing.T) {
	db, m := setupAuth(t)
	handler := HandleLogin(db, m)

	w := postHandler(t, handler, LoginRequest{Username: "alice", Password: "hunter2"})
	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d: %s", w.Code, w.Body.String())
	}
	var resp LoginResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode login response: %v", err)
	}
	if resp.RefreshToken == "" || resp.AccessToken == "" {
		t.Errorf("login response is missing tokens: %+v", resp)
	}

	w = postHandler(t, handler, LoginRequest{Username: "alice", Password: "nope"})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("bad login status = %d, want 401", w.Code)
	}
}

func TestHandleRefreshAndLogout(t *testing.T) {
	db, m := setupAuth(t)

	login, _ := DoLogin(db, m, LoginRequest{Username: "alice", Password: "hunter2"})

	w := postHandler(t, HandleRefresh(m), RefreshRequest{RefreshToken: login.RefreshToken})
	if w.Code != http.StatusOK {
		t.Fatalf("refresh status = %d: %s", w.Code, w.Body.String())
	}
	var refreshed RefreshResponse
	if err := json.Unmarshal(w.Body.Bytes(), &refreshed); err != nil {
		t.Fatalf("failed to decode refresh response: %v", err)
	}

	w = postHandler(t, HandleLogout(db, m), LogoutRequest{RefreshToken: refreshed.RefreshToken})
	if w.Code != http.StatusOK {
		t.Fatalf("logout status = %d: %s", w.Code, w.Body.String())
	}

	w = postHandler(t, HandleRefresh(m), RefreshRequest{RefreshToken: refreshed.RefreshToken})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("refresh after logout status = %d, want 401", w.Code)
	}
}
