package state

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type User struct {
	ID           int    `db:"id"`
	Username     string `db:"username"`
	Salt         string `db:"salt"`
	PasswordHash string `db:"password_hash"`
}

func DBInit(db *sqlx.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS users_v1 (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT UNIQUE NOT NULL,
			salt TEXT NOT NULL,
			password_hash TEXT NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("failed to create users table: %w", err)
	}
	return nil
}

func GetUser(db *sqlx.DB, username string) (*User, error) {
	var user User
	err := db.Get(&user, "SELECT id, username, salt, password_hash FROM users_v1 WHERE username = $1", username)
	return &user, err
}

// AddUser inserts a user with a random salt and the salted hash of the given
// password.
func AddUser(db *sqlx.DB, username string, password string) error {
	salt := uuid.New().String()
	_, err := db.Exec(`INSERT INTO users_v1 (username, salt, password_hash) VALUES ($1, $2, $3)`,
		username, salt, hashPassword(salt, password))
	if err != nil {
		return fmt.Errorf("failed to insert user %s: %w", username, err)
	}
	return nil
}

func AttemptLogin(db *sqlx.DB, username string, password string) (bool, int, error) {
	fmt.Printf("Attempting login for user: %s\n", username)
	user, err := GetUser(db, username)
	if err != nil {
		return false, 0, fmt.Errorf("failed to get user %s: %w", username, err)
	}

	return user.PasswordHash == hashPassword(user.Salt, password), user.ID, nil
}

func ChangePassword(db *sqlx.DB, username string, password string) error {
	user, err := GetUser(db, username)
	if err != nil {
		return fmt.Errorf("failed to get user %s: %w", username, err)
	}

	_, err = db.Exec(`UPDATE users_v1 SET password_hash = $1 WHERE username = $2`,
		hashPassword(user.Salt, password), username)
	if err != nil {
		return fmt.Errorf("failed to update user %s: %w", username, err)
	}
	return nil
}

func hashPassword(salt string, password string) string {
	hasher := sha256.New()
	hasher.Write([]byte(salt + password))
	return hex.EncodeToString(hasher.Sum(nil))
}
