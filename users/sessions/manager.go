package sessions

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/tomyedwab/libsqlhttp/users/util"
)

var (
	ErrSessionNotFound     = errors.New("session not found")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrTokenGeneration     = errors.New("failed to generate token")
	ErrSessionExpired      = errors.New("session expired")
)

// SessionManager handles the lifecycle of user sessions and refresh tokens.
type SessionManager struct {
	db            *sqlx.DB
	accessExpiry  time.Duration // How long access tokens are valid
	sessionExpiry time.Duration // How long sessions are valid
	jwtSecretKey  []byte        // The secret key for JWT signing
}

// NewManager creates and initializes a new SessionManager. The signing
// secret is read from jwtSecretKeyPath, generated on first use.
func NewManager(db *sqlx.DB, accessTokenExpiry, sessionExpiry time.Duration, jwtSecretKeyPath string) (*SessionManager, error) {
	if err := DBInit(db); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	jwtSecretKey, err := util.LoadJWTSecretKey(jwtSecretKeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load JWT secret key: %w", err)
	}

	m := &SessionManager{
		db:            db,
		accessExpiry:  accessTokenExpiry,
		sessionExpiry: sessionExpiry,
		jwtSecretKey:  jwtSecretKey,
	}

	fmt.Println("SessionManager initialized")

	return m, nil
}

// CreateSession mints a new session with a fresh refresh token and stores it.
func (m *SessionManager) CreateSession(userID int) (*Session, error) {
	session, err := NewSession(userID)
	if err != nil {
		return nil, ErrTokenGeneration
	}

	if err := session.DBCreate(m.db); err != nil {
		return nil, err
	}

	return session, nil
}

func (m *SessionManager) GetSession(sessionID string) (*Session, error) {
	session, err := DBGetSessionByID(m.db, sessionID)
	if err != nil {
		return nil, ErrSessionNotFound
	}

	if time.Since(session.LastRefreshed) > m.sessionExpiry {
		session.DBDelete(m.db)
		return nil, ErrSessionExpired
	}

	return session, nil
}

func (m *SessionManager) GetSessionByRefreshToken(refreshToken string) (*Session, error) {
	session, err := DBGetSessionByRefreshToken(m.db, refreshToken)
	if err != nil {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// Delete sessions that have been inactive for a while
func (m *SessionManager) DeleteExpiredSessions() error {
	return DBDeleteExpiredSessions(m.db, m.sessionExpiry)
}

// JWTSecretKey exposes the signing secret for token validation middleware.
func (m *SessionManager) JWTSecretKey() []byte {
	return m.jwtSecretKey
}

// RefreshAccessToken creates a new JWT access token and rotates the session's
// refresh token. It returns the access and refresh tokens, or an error.
func (m *SessionManager) RefreshAccessToken(session *Session, refreshToken string) (string, string, error) {
	if session.RefreshToken != refreshToken {
		return "", "", ErrInvalidRefreshToken
	}

	if time.Since(session.LastRefreshed) > m.sessionExpiry {
		session.DBDelete(m.db)
		return "", "", ErrSessionExpired
	}

	expiresAt := time.Now().UTC().Add(m.accessExpiry)

	claims := jwt.MapClaims{
		"session_id": session.ID,
		"exp":        expiresAt.Unix(),
		"iat":        time.Now().UTC().Unix(),
		"jti":        uuid.NewString(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString(m.jwtSecretKey)
	if err != nil {
		return "", "", fmt.Errorf("failed to sign JWT token: %w", err)
	}

	// Rotate the refresh token; the one just presented stops working.
	refreshToken, err = session.DBUpdateRefreshToken(m.db)
	if err != nil {
		return "", "", fmt.Errorf("failed to update session with new refresh token: %w", err)
	}

	return tokenString, refreshToken, nil
}
