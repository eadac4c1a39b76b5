package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/jmoiron/sqlx"

	"github.com/tomyedwab/libsqlhttp/applib/httputils"
	"github.com/tomyedwab/libsqlhttp/users/sessions"
	"github.com/tomyedwab/libsqlhttp/users/state"
)

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	RefreshToken string `json:"refresh_token"`
	AccessToken  string `json:"access_token"`
}

// DoLogin verifies the given username and password and mints a session.
// Returns the session's refresh token and an initial access token.
func DoLogin(db *sqlx.DB, sessionManager *sessions.SessionManager, loginRequest LoginRequest) (*LoginResponse, error) {
	success, userId, err := state.AttemptLogin(db, loginRequest.Username, loginRequest.Password)
	if err != nil {
		return nil, errors.New("invalid username or password")
	}
	if !success {
		return nil, errors.New("invalid username or password")
	}

	session, err := sessionManager.CreateSession(userId)
	if err != nil {
		return nil, errors.New("failed to create session")
	}

	accessToken, refreshToken, err := sessionManager.RefreshAccessToken(session, session.RefreshToken)
	if err != nil {
		return nil, errors.New("failed to issue access token")
	}

	return &LoginResponse{
		RefreshToken: refreshToken,
		AccessToken:  accessToken,
	}, nil
}

// HandleLogin implements POST /auth/login.
func HandleLogin(db *sqlx.DB, sessionManager *sessions.SessionManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httputils.HandleAPIResponse(w, r, nil, fmt.Errorf("malformed login request: %v", err), http.StatusBadRequest)
			return
		}
		resp, err := DoLogin(db, sessionManager, req)
		if err != nil {
			httputils.HandleAPIResponse(w, r, nil, err, http.StatusUnauthorized)
			return
		}
		httputils.HandleAPIResponse(w, r, resp, nil, http.StatusOK)
	}
}
