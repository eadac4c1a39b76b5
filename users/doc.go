// Package users provides the user management half of the server.
// Users are added to the database by the admin with a username and password.
// Logging in creates a long-lived refresh token and a short-lived JWT access
// token; the refresh token rotates on every refresh.
//
// The middleware subpackage gates the protocol endpoints with access-token
// validation when the server runs with -authRequired.
//
// The server is initialized in cmd/libsqlhttp/main.go and the state is
// managed in state/users.go.
package users
