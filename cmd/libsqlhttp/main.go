package main

import (
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/tomyedwab/libsqlhttp/applib"
	"github.com/tomyedwab/libsqlhttp/hrana"
	"github.com/tomyedwab/libsqlhttp/hrana/streams"
	"github.com/tomyedwab/libsqlhttp/sqlexec"
	"github.com/tomyedwab/libsqlhttp/users/auth"
	"github.com/tomyedwab/libsqlhttp/users/middleware"
	"github.com/tomyedwab/libsqlhttp/users/sessions"
	"github.com/tomyedwab/libsqlhttp/users/state"
)

func main() {
	// 1. Setup logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(logger)

	logger.Info("Starting libSQL HTTP server", "version", hrana.ServerVersion)

	// 2. Parse flags and connect to the database
	app, err := applib.Init(hrana.ServerVersion)
	if err != nil {
		logger.Error("Failed to initialize application", "error", err)
		os.Exit(1)
	}
	cfg := app.Config()
	db := app.GetSqliteDB()

	// 3. Protocol server: executor, stream registry with idle sweeper
	executor := sqlexec.NewSQLiteExecutor(db)
	registry := streams.NewRegistry(streams.DefaultIdleTimeout)
	go func() {
		for range time.Tick(time.Minute) {
			if dropped := registry.Sweep(); dropped > 0 {
				logger.Debug("Swept idle streams", "dropped", dropped)
			}
		}
	}()
	protocol := hrana.NewServer(executor, registry)

	// 4. Authentication: users table, session manager, auth routes
	if err := state.DBInit(db); err != nil {
		logger.Error("Failed to initialize users table", "error", err)
		os.Exit(1)
	}
	sessionManager, err := sessions.NewManager(db, 15*time.Minute, 30*24*time.Hour, cfg.JWTSecretPath)
	if err != nil {
		logger.Error("Failed to initialize session manager", "error", err)
		os.Exit(1)
	}
	go func() {
		for range time.Tick(time.Hour) {
			if err := sessionManager.DeleteExpiredSessions(); err != nil {
				logger.Error("Failed to sweep expired sessions", "error", err)
			}
		}
	}()

	// 5. Routes. The protocol server is authentication-agnostic; the access
	// token gate sits in front of it only when -authRequired is set. Health
	// and version are never gated.
	protocolHandler := middleware.Chain(protocol.ServeHTTP, middleware.LogRequests)
	if cfg.AuthRequired {
		gated := middleware.Chain(
			protocol.ServeHTTP,
			func(h http.HandlerFunc) http.HandlerFunc {
				return middleware.LoginRequired(sessionManager.JWTSecretKey(), h)
			},
			middleware.LogRequests,
		)
		protocolHandler = func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/health" || r.URL.Path == "/version" ||
				r.URL.Path == "/health/" || r.URL.Path == "/version/" {
				middleware.Chain(protocol.ServeHTTP, middleware.LogRequests)(w, r)
				return
			}
			gated(w, r)
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login", middleware.Chain(auth.HandleLogin(db, sessionManager), middleware.LogRequests))
	mux.HandleFunc("/auth/refresh", middleware.Chain(auth.HandleRefresh(sessionManager), middleware.LogRequests))
	mux.HandleFunc("/auth/logout", middleware.Chain(auth.HandleLogout(db, sessionManager), middleware.LogRequests))
	mux.HandleFunc("/", protocolHandler)

	// 6. Serve (blocking)
	app.Serve(mux)
}
