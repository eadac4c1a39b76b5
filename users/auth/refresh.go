package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/tomyedwab/libsqlhttp/applib/httputils"
	"github.com/tomyedwab/libsqlhttp/users/sessions"
)

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type RefreshResponse struct {
	RefreshToken string `json:"refresh_token"`
	AccessToken  string `json:"access_token"`
}

// DoRefresh exchanges a valid refresh token for a new access token, rotating
// the refresh token in the process.
func DoRefresh(sessionManager *sessions.SessionManager, refreshRequest RefreshRequest) (*RefreshResponse, error) {
	session, err := sessionManager.GetSessionByRefreshToken(refreshRequest.RefreshToken)
	if err != nil {
		fmt.Printf("DoRefresh failed to find session: %v\n", err)
		return nil, errors.New("failed to get session")
	}

	accessToken, refreshToken, err := sessionManager.RefreshAccessToken(session, refreshRequest.RefreshToken)
	if err != nil {
		fmt.Printf("DoRefresh failed to refresh access token: %v\n", err)
		return nil, errors.New("failed to refresh access token")
	}

	return &RefreshResponse{
		RefreshToken: refreshToken,
		AccessToken:  accessToken,
	}, nil
}

// HandleRefresh implements POST /auth/refresh.
func HandleRefresh(sessionManager *sessions.SessionManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RefreshRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httputils.HandleAPIResponse(w, r, nil, fmt.Errorf("malformed refresh request: %v", err), http.StatusBadRequest)
			return
		}
		resp, err := DoRefresh(sessionManager, req)
		if err != nil {
			httputils.HandleAPIResponse(w, r, nil, err, http.StatusUnauthorized)
			return
		}
		httputils.HandleAPIResponse(w, r, resp, nil, http.StatusOK)
	}
}
