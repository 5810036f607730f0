package httputil

import (
	"context"
	"net/http"

	"quill/internal/domain/models"
)

// Context key type to avoid collisions
type contextKey string

const (
	identityKey contextKey = "identity"
)

// WithIdentity adds the authenticated identity to the request context
func WithIdentity(r *http.Request, identity models.Identity) *http.Request {
	ctx := context.WithValue(r.Context(), identityKey, identity)
	return r.WithContext(ctx)
}

// GetIdentity retrieves the identity from context. The zero value (empty
// UserID) means "no identity"; callers reject it as Unauthenticated.
func GetIdentity(r *http.Request) models.Identity {
	identity, _ := r.Context().Value(identityKey).(models.Identity)
	return identity
}

// GetUserID retrieves the authenticated user id, empty string if not found
func GetUserID(r *http.Request) string {
	return GetIdentity(r).UserID
}
