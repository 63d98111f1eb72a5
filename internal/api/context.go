package api

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
)

type contextKey string

const userIDKey contextKey = "userID"

// UserIDFromContext extracts the user ID from the context.
// Returns empty string if not present.
func UserIDFromContext(ctx context.Context) string {
	if userID, ok := ctx.Value(userIDKey).(string); ok {
		return userID
	}

	return ""
}

func withUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// docID returns the {id} route variable.
func docID(r *http.Request) string {
	return mux.Vars(r)["id"]
}
