package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tomyedwab/libsqlhttp/users/util"
)

// LoginRequired rejects requests that do not carry a valid Bearer access
// token signed with the given secret. Valid claims are attached to the
// request context under util.ClaimsKey.
func LoginRequired(jwtSecretKey []byte, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Get bearer token from request
		token := r.Header.Get("Authorization")
		if token == "" {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		if !strings.HasPrefix(token, "Bearer ") {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		// Decode JWT token
		var claimValue util.AccessTokenClaims
		tokenString := strings.TrimPrefix(token, "Bearer ")
		claims, err := jwt.ParseWithClaims(tokenString, &claimValue, func(token *jwt.Token) (interface{}, error) {
			return jwtSecretKey, nil
		})
		if err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		if !claims.Valid {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		nextRequest := r.WithContext(context.WithValue(r.Context(), util.ClaimsKey, &claimValue))

		next.ServeHTTP(w, nextRequest)
	}
}

func LogRequests(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		next.ServeHTTP(w, r)

		duration := time.Since(start)
		fmt.Printf("%s - %s %s %s - %v\n",
			r.RemoteAddr,
			r.Method,
			r.URL.Path,
			r.Proto,
			duration,
		)
	}
}

// Combine multiple middleware functions
func Chain(h http.HandlerFunc, middleware ...func(http.HandlerFunc) http.HandlerFunc) http.HandlerFunc {
	for _, m := range middleware {
		h = m(h)
	}
	return h
}
