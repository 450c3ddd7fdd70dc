package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"famlink/internal/security"
)

func TestCSRFProtect(t *testing.T) {
	csrf := security.NewCSRFGenerator("test-secret")
	m := NewMiddleware(nil, nil, nil, csrf)

	sessionID := "session-abc"
	validToken, err := csrf.GenerateToken(sessionID)
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}

	tests := []struct {
		name       string
		cookieName string
		token      string
		wantStatus int
	}{
		{name: "valid adult session token", cookieName: SessionCookieName, token: validToken, wantStatus: http.StatusOK},
		{name: "valid child session token", cookieName: ChildSessionCookieName, token: validToken, wantStatus: http.StatusOK},
		{name: "missing token", cookieName: SessionCookieName, token: "", wantStatus: http.StatusForbidden},
		{name: "wrong token", cookieName: SessionCookieName, token: "forged", wantStatus: http.StatusForbidden},
		{name: "no session cookie", cookieName: "", token: validToken, wantStatus: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			handler := m.CSRFProtect(func(w http.ResponseWriter, r *http.Request) {
				called = true
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodPost, "/test", nil)
			if tt.cookieName != "" {
				req.AddCookie(&http.Cookie{Name: tt.cookieName, Value: sessionID})
			}
			if tt.token != "" {
				req.Header.Set("X-CSRF-Token", tt.token)
			}

			recorder := httptest.NewRecorder()
			handler(recorder, req)

			if recorder.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", recorder.Code, tt.wantStatus)
			}
			if called != (tt.wantStatus == http.StatusOK) {
				t.Errorf("handler called = %v with status %d", called, recorder.Code)
			}
		})
	}
}

func TestGetUserFromContextMissing(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	if user := GetUserFromContext(req.Context()); user != nil {
		t.Errorf("expected nil user, got %+v", user)
	}
	if child := GetChildFromContext(req.Context()); child != nil {
		t.Errorf("expected nil child, got %+v", child)
	}
}
