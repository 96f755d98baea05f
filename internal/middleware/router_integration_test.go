package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/ignitecall/internal/auth"
)

// TestRouterIntegration_ProtectedRoute_WithMiddlewareChain は
// Session -> CSRF のミドルウェアチェーンがchi.Routerで正しく動作することを検証する。
func TestRouterIntegration_ProtectedRoute_WithMiddlewareChain(t *testing.T) {
	r := chi.NewRouter()
	csrfConfig := CSRFConfig{}

	// CSRFトークン取得エンドポイント（認証不要）
	r.Get("/api/csrf-token", NewCSRFTokenHandler(csrfConfig).ServeHTTP)

	r.Group(func(r chi.Router) {
		r.Use(NewSessionMiddleware(validFinder("router-test-session", "user-router-test"), SessionConfig{}))
		r.Use(NewCSRFMiddleware(csrfConfig))

		r.Get("/api/auth/me", func(w http.ResponseWriter, r *http.Request) {
			userID, _ := UserIDFromContext(r.Context())
			json.NewEncoder(w).Encode(map[string]string{"user_id": userID})
		})
		r.Put("/users/profile", func(w http.ResponseWriter, r *http.Request) {
			userID, _ := UserIDFromContext(r.Context())
			json.NewEncoder(w).Encode(map[string]string{"user_id": userID, "action": "done"})
		})
	})

	tests := []struct {
		name       string
		method     string
		path       string
		session    bool
		csrf       bool
		wantStatus int
	}{
		{"GET 認証あり", http.MethodGet, "/api/auth/me", true, false, http.StatusOK},
		{"GET 認証なし", http.MethodGet, "/api/auth/me", false, false, http.StatusUnauthorized},
		{"PUT 認証あり CSRFあり", http.MethodPut, "/users/profile", true, true, http.StatusOK},
		{"PUT 認証あり CSRFなし", http.MethodPut, "/users/profile", true, false, http.StatusForbidden},
		{"PUT 認証なし", http.MethodPut, "/users/profile", false, true, http.StatusUnauthorized},
		{"CSRFトークン取得は認証不要", http.MethodGet, "/api/csrf-token", false, false, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.session {
				req.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: "router-test-session"})
			}
			if tt.csrf {
				req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: "test-csrf-token"})
				req.Header.Set(csrfHeaderName, "test-csrf-token")
			}
			w := httptest.NewRecorder()

			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusOK && tt.session {
				var body map[string]string
				json.NewDecoder(w.Body).Decode(&body)
				if body["user_id"] != "user-router-test" {
					t.Errorf("user_id = %q", body["user_id"])
				}
			}
		})
	}
}
