package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

// OwnerHeader carries the conversation owner's id. Authentication happens
// upstream; this service trusts the header.
const OwnerHeader = "X-User-ID"

type ctxKey string

const ownerKey ctxKey = "reflection.owner_id"

// WithOwnerID stores the owner id in context.
func WithOwnerID(ctx context.Context, ownerID string) context.Context {
	return context.WithValue(ctx, ownerKey, ownerID)
}

// OwnerIDFromContext extracts the owner id if present.
func OwnerIDFromContext(ctx context.Context) (string, bool) {
	val := ctx.Value(ownerKey)
	if val == nil {
		return "", false
	}
	ownerID, ok := val.(string)
	return ownerID, ok && ownerID != ""
}

// Owner copies the owner header into the request context when present.
func Owner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ownerID := strings.TrimSpace(r.Header.Get(OwnerHeader)); ownerID != "" {
			r = r.WithContext(WithOwnerID(r.Context(), ownerID))
		}
		next.ServeHTTP(w, r)
	})
}

// RequireOwner rejects requests without an owner with 401.
func RequireOwner(next http.Handler) http.Handler {
	return Owner(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := OwnerIDFromContext(r.Context()); !ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "User not authenticated"})
			return
		}
		next.ServeHTTP(w, r)
	}))
}
