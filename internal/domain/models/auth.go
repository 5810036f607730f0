package models

import "github.com/golang-jwt/jwt/v5"

// SupabaseClaims represents the JWT claims structure from Supabase Auth.
// See: https://supabase.com/docs/guides/auth/jwts
type SupabaseClaims struct {
	jwt.RegisteredClaims                          // Standard JWT claims (sub, iss, aud, exp, iat, etc.)
	Email                string                   `json:"email"`
	Phone                string                   `json:"phone"`
	AppMetadata          map[string]interface{}   `json:"app_metadata"`
	UserMetadata         map[string]interface{}   `json:"user_metadata"`
	Role                 string                   `json:"role"` // "authenticated" or "anon"
	AAL                  string                   `json:"aal"`  // Authentication Assurance Level: "aal1" or "aal2"
	AMR                  []map[string]interface{} `json:"amr"`  // Authentication Method References
	SessionID            string                   `json:"session_id"`
	IsAnonymous          bool                     `json:"is_anonymous"`
}

// GetUserID returns the user ID from the JWT subject claim.
// This is the primary identifier for the authenticated user.
func (c *SupabaseClaims) GetUserID() string {
	return c.Subject
}

// Identity is the signed-in identity the rest of the system consumes.
// An empty UserID means "no identity": all send/observe operations are
// rejected with an Unauthenticated condition.
type Identity struct {
	UserID      string `json:"user_id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url"`
}

// ToIdentity flattens the claims into the identity attached to messages.
// Display name and avatar come from user_metadata when present, falling
// back to the email address.
func (c *SupabaseClaims) ToIdentity() Identity {
	id := Identity{
		UserID:      c.Subject,
		Email:       c.Email,
		DisplayName: c.Email,
	}
	if name, ok := c.UserMetadata["full_name"].(string); ok && name != "" {
		id.DisplayName = name
	}
	if avatar, ok := c.UserMetadata["avatar_url"].(string); ok {
		id.AvatarURL = avatar
	}
	return id
}
