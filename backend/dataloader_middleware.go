package main

import (
	"database/sql"
	"net/http"
)

// DataLoaderMiddleware creates middleware that injects dataloaders into the request context
func DataLoaderMiddleware(db *sql.DB) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// New loaders per request so cached profiles never outlive it
			ctx := WithDataLoaders(r.Context(), NewDataLoaders(db))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
