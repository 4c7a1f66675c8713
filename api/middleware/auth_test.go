package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	pkgauth "github.com/nextcart/storefront-backend/pkg/auth"
	"github.com/nextcart/storefront-backend/pkg/config"
	"github.com/nextcart/storefront-backend/pkg/enums"
)

type stubSessionChecker struct {
	sessions map[string]bool
	err      error
}

func (s *stubSessionChecker) HasSession(_ context.Context, accessID string) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	return s.sessions[accessID], nil
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "test-secret",
		Issuer:            "storefront-test",
		ExpirationMinutes: 15,
	}
}

func mintToken(t *testing.T, cfg config.JWTConfig, userID uuid.UUID, jti string) string {
	t.Helper()

	token, err := pkgauth.MintAccessToken(cfg, time.Now().UTC(), pkgauth.AccessTokenPayload{
		UserID: userID,
		Email:  "buyer@example.com",
		Role:   enums.UserRoleCustomer,
		JTI:    jti,
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func recordingHandler(called *bool, gotUserID, gotRole *string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		*gotUserID = UserIDFromContext(r.Context())
		*gotRole = RoleFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthRejectsMissingToken(t *testing.T) {
	called := false
	var userID, role string
	handler := Auth(testJWTConfig(), nil, nil)(recordingHandler(&called, &userID, &role))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if called {
		t.Fatal("handler must not run without credentials")
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAuthSeedsContext(t *testing.T) {
	cfg := testJWTConfig()
	uid := uuid.New()
	jti := uuid.NewString()
	checker := &stubSessionChecker{sessions: map[string]bool{jti: true}}

	called := false
	var userID, role string
	handler := Auth(cfg, checker, nil)(recordingHandler(&called, &userID, &role))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, cfg, uid, jti))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if !called {
		t.Fatal("expected handler to run")
	}
	if userID != uid.String() {
		t.Fatalf("expected user id %s, got %s", uid, userID)
	}
	if role != string(enums.UserRoleCustomer) {
		t.Fatalf("expected customer role, got %s", role)
	}
}

func TestAuthRejectsRevokedSession(t *testing.T) {
	cfg := testJWTConfig()
	jti := uuid.NewString()
	checker := &stubSessionChecker{sessions: map[string]bool{}}

	called := false
	var userID, role string
	handler := Auth(cfg, checker, nil)(recordingHandler(&called, &userID, &role))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, cfg, uuid.New(), jti))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if called {
		t.Fatal("handler must not run for revoked session")
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestOptionalAuthPassesAnonymous(t *testing.T) {
	called := false
	var userID, role string
	handler := OptionalAuth(testJWTConfig(), nil, nil)(recordingHandler(&called, &userID, &role))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if !called {
		t.Fatal("anonymous request must pass through")
	}
	if userID != "" {
		t.Fatalf("expected empty user id, got %s", userID)
	}
}

func TestOptionalAuthSeedsValidToken(t *testing.T) {
	cfg := testJWTConfig()
	uid := uuid.New()
	jti := uuid.NewString()
	checker := &stubSessionChecker{sessions: map[string]bool{jti: true}}

	called := false
	var userID, role string
	handler := OptionalAuth(cfg, checker, nil)(recordingHandler(&called, &userID, &role))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, cfg, uid, jti))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if !called {
		t.Fatal("expected handler to run")
	}
	if userID != uid.String() {
		t.Fatalf("expected user id %s, got %s", uid, userID)
	}
}

func TestOptionalAuthIgnoresBadToken(t *testing.T) {
	called := false
	var userID, role string
	handler := OptionalAuth(testJWTConfig(), nil, nil)(recordingHandler(&called, &userID, &role))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if !called {
		t.Fatal("bad token must degrade to anonymous")
	}
	if userID != "" {
		t.Fatalf("expected empty user id, got %s", userID)
	}
}
