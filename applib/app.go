package applib

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"

	"github.com/jmoiron/sqlx"
)

type Application struct {
	serverVersion string
	config        Config
	db            *sqlx.DB
	contextVars   map[string]any
}

var (
	ContextApplicationKey    = "application"
	ContextSqliteDatabaseKey = "sqlite_database"
)

func NewApplication(serverVersion string, config Config, db *sqlx.DB) *Application {
	return &Application{
		serverVersion: serverVersion,
		config:        config,
		db:            db,
		contextVars:   make(map[string]any),
	}
}

func (app *Application) AddContextVar(key string, value any) {
	app.contextVars[key] = value
}

// Serve blocks on the HTTP listener. Every request context carries the
// application, the database handle, and any registered context vars.
func (app *Application) Serve(handler http.Handler) {
	listenAddr := fmt.Sprintf(":%d", app.config.Port)
	log.Printf("Starting server on %s", listenAddr)
	contextFn := func(net.Listener) context.Context {
		ctx := context.Background()
		ctx = context.WithValue(ctx, ContextApplicationKey, app)
		ctx = context.WithValue(ctx, ContextSqliteDatabaseKey, app.db)
		for key, value := range app.contextVars {
			ctx = context.WithValue(ctx, key, value)
		}
		return ctx
	}
	server := &http.Server{Addr: listenAddr, Handler: handler, BaseContext: contextFn}
	log.Fatal(server.ListenAndServe())
}

func (app *Application) GetSqliteDB() *sqlx.DB {
	return app.db
}

func (app *Application) Config() Config {
	return app.config
}

func (app *Application) Version() string {
	return app.serverVersion
}
