package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"

	"quill/internal/domain/models"
	"quill/internal/httputil"
)

// fakeVerifier accepts exactly one token string.
type fakeVerifier struct {
	token  string
	claims *models.SupabaseClaims
}

func (f *fakeVerifier) VerifyToken(tokenString string) (*models.SupabaseClaims, error) {
	if tokenString != f.token {
		return nil, fmt.Errorf("unknown token")
	}
	return f.claims, nil
}

func (f *fakeVerifier) Close() error { return nil }

func testClaims() *models.SupabaseClaims {
	return &models.SupabaseClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1"},
		Email:            "u@example.com",
		Role:             "authenticated",
		UserMetadata: map[string]interface{}{
			"full_name":  "Test User",
			"avatar_url": "https://example.com/a.png",
		},
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	verifier := &fakeVerifier{token: "good-token", claims: testClaims()}

	var seen models.Identity
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = httputil.GetIdentity(r)
		w.WriteHeader(http.StatusOK)
	})

	handler := AuthMiddleware(verifier)(next)

	req := httptest.NewRequest(http.MethodGet, "/api/chats", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if seen.UserID != "user-1" {
		t.Errorf("identity not injected: %+v", seen)
	}
	if seen.DisplayName != "Test User" {
		t.Errorf("display name not flattened from metadata: %q", seen.DisplayName)
	}
	if seen.AvatarURL != "https://example.com/a.png" {
		t.Errorf("avatar not flattened from metadata: %q", seen.AvatarURL)
	}
}

func TestAuthMiddleware_RejectsBadTokens(t *testing.T) {
	verifier := &fakeVerifier{token: "good-token", claims: testClaims()}
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler reached without valid token")
	})
	handler := AuthMiddleware(verifier)(next)

	cases := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"not bearer", "Basic abc"},
		{"empty token", "Bearer "},
		{"wrong token", "Bearer bad-token"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/chats", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("expected 401, got %d", rec.Code)
			}
		})
	}
}

func TestAuthMiddleware_HealthCheckOpen(t *testing.T) {
	verifier := &fakeVerifier{token: "good-token", claims: testClaims()}
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := AuthMiddleware(verifier)(next)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("health probe rejected: %d", rec.Code)
	}
}
