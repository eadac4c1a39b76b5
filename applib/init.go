package applib

import (
	"flag"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// Config holds the flag-driven settings for one server process.
type Config struct {
	DBPath        string
	Port          int
	AuthRequired  bool
	JWTSecretPath string
}

func Init(serverVersion string) (*Application, error) {
	dbPath := flag.String("dbPath", "", "Path to the SQLite database file")
	port := flag.Int("port", 8080, "Port for the HTTP server")
	authRequired := flag.Bool("authRequired", false, "Require a valid access token on the protocol endpoints")
	jwtSecretPath := flag.String("jwtSecretPath", "jwt.secret", "Path to the JWT signing secret file")
	flag.Parse()

	if *dbPath == "" {
		return nil, fmt.Errorf("Database path must be provided via -dbPath flag")
	}

	db, err := sqlx.Connect("sqlite3", *dbPath)
	if err != nil {
		return nil, fmt.Errorf("Failed to connect to database: %v", err)
	}

	cfg := Config{
		DBPath:        *dbPath,
		Port:          *port,
		AuthRequired:  *authRequired,
		JWTSecretPath: *jwtSecretPath,
	}
	return NewApplication(serverVersion, cfg, db), nil
}
