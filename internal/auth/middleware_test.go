package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Subject", SubjectFromContext(r.Context()))
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthMiddleware_NoToken(t *testing.T) {
	secret := []byte("test-secret")
	mw := NewMiddleware(secret, NewDefaultPolicy(nil, nil))
	handler := mw.Wrap(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/lodging", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}

func TestAuthMiddleware_Roles(t *testing.T) {
	secret := []byte("test-secret")
	mw := NewMiddleware(secret, NewDefaultPolicy([]string{"/healthz"}, []string{"/metrics"}))
	handler := mw.Wrap(okHandler())

	cases := []struct {
		name   string
		role   string
		method string
		path   string
		want   int
	}{
		{name: "viewer reads summary", role: "viewer", method: http.MethodGet, path: "/api/lodging/summary", want: http.StatusOK},
		{name: "viewer cannot toggle", role: "viewer", method: http.MethodPost, path: "/api/lodging/days/toggle", want: http.StatusForbidden},
		{name: "editor toggles", role: "editor", method: http.MethodPost, path: "/api/lodging/days/toggle", want: http.StatusOK},
		{name: "editor closes month", role: "editor", method: http.MethodPost, path: "/api/lodging/months/2025-01/close", want: http.StatusOK},
		{name: "editor cannot replace document", role: "editor", method: http.MethodPost, path: "/api/lodging", want: http.StatusForbidden},
		{name: "editor cannot read tables", role: "editor", method: http.MethodGet, path: "/api/database/tables/months", want: http.StatusForbidden},
		{name: "admin edits tables", role: "admin", method: http.MethodDelete, path: "/api/database/tables/months/2025-01", want: http.StatusOK},
		{name: "admin replaces document", role: "admin", method: http.MethodPost, path: "/api/hospedagem", want: http.StatusOK},
		{name: "editor cannot replace document with trailing slash", role: "editor", method: http.MethodPost, path: "/api/lodging/", want: http.StatusForbidden},
		{name: "editor cannot replace legacy document with trailing slash", role: "editor", method: http.MethodPost, path: "/api/hospedagem/", want: http.StatusForbidden},
		{name: "viewer reads document with trailing slash", role: "viewer", method: http.MethodGet, path: "/api/lodging/", want: http.StatusOK},
		{name: "admin replaces document with trailing slash", role: "admin", method: http.MethodPost, path: "/api/lodging/", want: http.StatusOK},
		{name: "healthz exempt", method: http.MethodGet, path: "/healthz", want: http.StatusOK},
		{name: "metrics exempt", method: http.MethodGet, path: "/metrics", want: http.StatusOK},
		{name: "preflight exempt", method: http.MethodOptions, path: "/api/lodging", want: http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, nil)
			if tc.role != "" {
				req.Header.Set("Authorization", "Bearer "+mustToken(t, secret, tc.role))
			}
			resp := httptest.NewRecorder()
			handler.ServeHTTP(resp, req)
			if resp.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, resp.Code)
			}
		})
	}
}

func TestAuthMiddleware_SubjectInContext(t *testing.T) {
	secret := []byte("test-secret")
	handler := NewMiddleware(secret, NewDefaultPolicy(nil, nil)).Wrap(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/lodging", nil)
	req.Header.Set("Authorization", "Bearer "+mustToken(t, secret, "viewer"))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if got := resp.Header().Get("X-Subject"); got != "user-1" {
		t.Fatalf("subject=%q", got)
	}
}

func TestAuthMiddleware_WrongSecret(t *testing.T) {
	handler := NewMiddleware([]byte("server-secret"), NewDefaultPolicy(nil, nil)).Wrap(okHandler())
	req := httptest.NewRequest(http.MethodGet, "/api/lodging", nil)
	req.Header.Set("Authorization", "Bearer "+mustToken(t, []byte("other"), "admin"))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}

func TestIssueTokenRoundTrip(t *testing.T) {
	secret := []byte("test-secret")
	token, err := IssueToken(secret, "cli", RoleEditor, time.Hour, time.Now())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	claims, err := ParseJWT(token, secret)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Role != "editor" || claims.Subject != "cli" {
		t.Fatalf("claims: %+v", claims)
	}

	if _, err := IssueToken(secret, "cli", Role("owner"), time.Hour, time.Now()); !errors.Is(err, ErrInvalidRole) {
		t.Fatalf("expected ErrInvalidRole, got %v", err)
	}
	expired, err := IssueToken(secret, "cli", RoleViewer, time.Minute, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("issue expired: %v", err)
	}
	if _, err := ParseJWT(expired, secret); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestRoleAtLeast(t *testing.T) {
	if !RoleAtLeast(RoleAdmin, RoleEditor) || RoleAtLeast(RoleViewer, RoleEditor) || RoleAtLeast("", RoleViewer) {
		t.Fatalf("unexpected role ordering")
	}
	if role, ok := NormalizeRole(" Editor "); !ok || role != RoleEditor {
		t.Fatalf("normalize: %q %v", role, ok)
	}
}

func mustToken(t *testing.T, secret []byte, role string) string {
	t.Helper()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-time.Minute)),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}
