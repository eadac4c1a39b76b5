package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/jmoiron/sqlx"

	"github.com/tomyedwab/libsqlhttp/applib/httputils"
	"github.com/tomyedwab/libsqlhttp/users/sessions"
)

type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// DoLogout deletes the session identified by the given refresh token.
func DoLogout(db *sqlx.DB, sessionManager *sessions.SessionManager, refreshToken string) error {
	session, err := sessionManager.GetSessionByRefreshToken(refreshToken)
	if err != nil {
		return errors.New("failed to get session")
	}

	if err := session.DBDelete(db); err != nil {
		return errors.New("failed to delete session")
	}

	return nil
}

// HandleLogout implements POST /auth/logout.
func HandleLogout(db *sqlx.DB, sessionManager *sessions.SessionManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LogoutRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httputils.HandleAPIResponse(w, r, nil, fmt.Errorf("malformed logout request: %v", err), http.StatusBadRequest)
			return
		}
		if err := DoLogout(db, sessionManager, req.RefreshToken); err != nil {
			httputils.HandleAPIResponse(w, r, nil, err, http.StatusUnauthorized)
			return
		}
		httputils.HandleAPIResponse(w, r, map[string]bool{"success": true}, nil, http.StatusOK)
	}
}
