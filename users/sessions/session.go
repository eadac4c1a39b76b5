package sessions

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// Session represents an active user session. Sessions are stored in the
// database and referenced by their ID; the refresh token rotates on every
// successful refresh.
type Session struct {
	ID            string    `json:"id" db:"id"`
	UserID        int       `json:"user_id" db:"user_id"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	LastRefreshed time.Time `json:"last_refreshed" db:"last_refreshed"`
	RefreshToken  string    `json:"refresh_token" db:"refresh_token"`
}

// NewSession creates a new session instance with a unique ID and an initial
// refresh token.
func NewSession(userID int) (*Session, error) {
	sessionID, err := generateRandomID(16)
	if err != nil {
		return nil, err
	}

	refreshToken, err := generateRandomID(32)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	return &Session{
		ID:            sessionID,
		UserID:        userID,
		CreatedAt:     now,
		LastRefreshed: now,
		RefreshToken:  refreshToken,
	}, nil
}

// generateRandomID generates a cryptographically secure random string encoded
// in URL-safe base64 without padding.
func generateRandomID(length int) (string, error) {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// --- Database Methods ---

func DBInit(db *sqlx.DB) error {
	_, err := db.Exec(`
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		user_id INTEGER NOT NULL,
		refresh_token TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		last_refreshed TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY(user_id) REFERENCES users_v1(id) ON DELETE CASCADE
	)
	`)
	return err
}

func DBGetSessionByID(db *sqlx.DB, id string) (*Session, error) {
	var s Session
	err := db.Get(&s, "SELECT * FROM sessions WHERE id = $1", id)
	return &s, err
}

func DBGetSessionByRefreshToken(db *sqlx.DB, refreshToken string) (*Session, error) {
	var s Session
	err := db.Get(&s, "SELECT * FROM sessions WHERE refresh_token = $1", refreshToken)
	return &s, err
}

func (s *Session) DBCreate(db *sqlx.DB) error {
	fmt.Printf("Creating session %s\n", s.ID)
	_, err := db.Exec("INSERT INTO sessions (id, user_id, refresh_token, last_refreshed) VALUES ($1, $2, $3, $4)", s.ID, s.UserID, s.RefreshToken, s.LastRefreshed)
	return err
}

func (s *Session) DBUpdateRefreshToken(db *sqlx.DB) (string, error) {
	refreshToken, err := generateRandomID(32)
	if err != nil {
		return "", err
	}
	s.RefreshToken = refreshToken
	s.LastRefreshed = time.Now().UTC()
	_, err = db.Exec("UPDATE sessions SET refresh_token = $1, last_refreshed = $2 WHERE id = $3", s.RefreshToken, s.LastRefreshed, s.ID)
	return refreshToken, err
}

func (s *Session) DBDelete(db *sqlx.DB) error {
	fmt.Printf("Deleting session %s\n", s.ID)
	_, err := db.Exec("DELETE FROM sessions WHERE id = $1", s.ID)
	return err
}

func DBDeleteExpiredSessions(db *sqlx.DB, sessionExpiry time.Duration) error {
	var sessionIDs []string
	err := db.Select(&sessionIDs, "SELECT id FROM sessions WHERE last_refreshed < $1", time.Now().UTC().Add(-sessionExpiry))
	if err != nil {
		return err
	}

	for _, sessionID := range sessionIDs {
		fmt.Printf("Automatically deleting expired session %s\n", sessionID)
		if _, err := db.Exec("DELETE FROM sessions WHERE id = $1", sessionID); err != nil {
			return err
		}
	}
	return nil
}
